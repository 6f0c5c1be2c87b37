package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	domain "boardquest/internal/domain/game"
	"boardquest/internal/platform/cache"
	"boardquest/internal/platform/mq"
)

const SubjectAwarded = "ledger.awarded"

var ErrInvalidAward = errors.New("invalid castle award")

// Service records castle awards and serves per-player totals.
type Service struct {
	db     *pgxpool.Pool
	totals *cache.JSON
	pub    mq.Publisher
}

type Totals struct {
	PlayerID    uuid.UUID  `json:"player_id"`
	PlayerName  string     `json:"player_name,omitempty"`
	Wins        int        `json:"wins"`
	Gold        int        `json:"gold"`
	Orbs        int        `json:"orbs"`
	LastAwardAt *time.Time `json:"last_award_at,omitempty"`
}

func NewService(db *pgxpool.Pool, redisClient *redis.Client, cacheTTL time.Duration, pub mq.Publisher) *Service {
	return &Service{db: db, totals: cache.NewJSON(redisClient, "ledger:totals", cacheTTL), pub: pub}
}

func validate(a domain.CastleAward) error {
	if a.SessionID == uuid.Nil || a.PlayerID == uuid.Nil {
		return fmt.Errorf("%w: missing ids", ErrInvalidAward)
	}
	if strings.TrimSpace(a.PlayerName) == "" {
		return fmt.Errorf("%w: missing player name", ErrInvalidAward)
	}
	if a.Gold < 0 || a.Orbs < 1 {
		return fmt.Errorf("%w: gold %d orbs %d", ErrInvalidAward, a.Gold, a.Orbs)
	}
	return nil
}

func (s *Service) Award(ctx context.Context, a domain.CastleAward) error {
	if err := validate(a); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO castle_awards (id, session_id, player_id, player_name, gold, orbs)
VALUES ($1, $2, $3, $4, $5, $6)
`, uuid.New(), a.SessionID, a.PlayerID, a.PlayerName, a.Gold, a.Orbs)
	if err != nil {
		return fmt.Errorf("insert castle award: %w", err)
	}
	_ = s.totals.Delete(ctx, a.PlayerID.String())
	_ = mq.PublishJSON(ctx, s.pub, SubjectAwarded, a)
	return nil
}

// Totals sums every award of a player. Unknown players have zero totals.
func (s *Service) Totals(ctx context.Context, playerID uuid.UUID) (Totals, error) {
	var cached Totals
	if err := s.totals.Get(ctx, playerID.String(), &cached); err == nil {
		return cached, nil
	}

	t := Totals{PlayerID: playerID}
	var name *string
	err := s.db.QueryRow(ctx, `
SELECT COUNT(*), COALESCE(SUM(gold), 0), COALESCE(SUM(orbs), 0), MAX(awarded_at),
       (SELECT player_name FROM castle_awards WHERE player_id = $1 ORDER BY awarded_at DESC LIMIT 1)
FROM castle_awards WHERE player_id = $1
`, playerID).Scan(&t.Wins, &t.Gold, &t.Orbs, &t.LastAwardAt, &name)
	if err != nil {
		return Totals{}, fmt.Errorf("query award totals: %w", err)
	}
	if name != nil {
		t.PlayerName = *name
	}

	_ = s.totals.Set(ctx, playerID.String(), t)
	return t, nil
}
