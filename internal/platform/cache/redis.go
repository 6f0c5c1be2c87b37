package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrMiss = errors.New("cache miss")

func New(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// JSON stores values as JSON documents under a key prefix. A JSON with a nil
// client misses on every read and drops every write.
type JSON struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewJSON(client *redis.Client, prefix string, ttl time.Duration) *JSON {
	return &JSON{client: client, prefix: prefix, ttl: ttl}
}

func (c *JSON) Key(id string) string {
	return c.prefix + ":" + id
}

func (c *JSON) Get(ctx context.Context, id string, v any) error {
	if c == nil || c.client == nil {
		return ErrMiss
	}
	b, err := c.client.Get(ctx, c.Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("redis get: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode cached %s: %w", c.Key(id), err)
	}
	return nil
}

func (c *JSON) Set(ctx context.Context, id string, v any) error {
	if c == nil || c.client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.Key(id), err)
	}
	return c.client.Set(ctx, c.Key(id), b, c.ttl).Err()
}

func (c *JSON) Delete(ctx context.Context, id string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.Key(id)).Err()
}
