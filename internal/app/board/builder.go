package board

import (
	"context"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"boardquest/internal/app/reward"
	"boardquest/internal/catalog"
	domain "boardquest/internal/domain/game"
	"boardquest/internal/platform/telemetry"
)

// Percent chances for a path tile that is neither start nor castle.
const (
	battleChance = 40
	bonusChance  = 14
)

type Builder struct {
	enemies []catalog.EnemyTemplate
	rewards *reward.Generator
}

func NewBuilder(c *catalog.Catalog, rewards *reward.Generator) *Builder {
	return &Builder{enemies: c.Enemies, rewards: rewards}
}

// Generate lays out a fresh path and builds the board over it.
func (b *Builder) Generate(ctx context.Context, rng *rand.Rand, width, height int) domain.Board {
	_, span := telemetry.Tracer("board").Start(ctx, "board.generate")
	defer span.End()

	started := time.Now()
	p := GeneratePath(rng, width, height)
	board := b.Build(rng, p)

	battles := 0
	for _, t := range board.Tiles {
		if t.Kind == domain.TileBattle {
			battles++
		}
	}
	span.SetAttributes(
		attribute.Int("board.width", width),
		attribute.Int("board.height", height),
		attribute.Int("board.path_length", len(p.Main)),
		attribute.Int("board.branch_count", len(p.Branches)),
		attribute.Int("board.battle_tiles", battles),
		attribute.Int64("board.generation_ms", time.Since(started).Milliseconds()),
	)
	return board
}

// Build covers every grid cell with a tile. Main walk cells are numbered in
// walk order; branch cells are walkable with PathIndex -1.
func (b *Builder) Build(rng *rand.Rand, p Path) domain.Board {
	board := domain.Board{
		Width:  p.Width,
		Height: p.Height,
		Tiles:  make([]domain.Tile, p.Width*p.Height),
		Path:   make([]int, len(p.Main)),
	}
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			board.Tiles[board.Index(x, y)] = domain.Tile{
				ID:        domain.NewID(rng),
				X:         x,
				Y:         y,
				Kind:      domain.TileNormal,
				PathIndex: -1,
			}
		}
	}

	last := len(p.Main) - 1
	for i, c := range p.Main {
		idx := board.Index(c.X, c.Y)
		board.Path[i] = idx
		t := &board.Tiles[idx]
		t.IsPath = true
		t.PathIndex = i
		switch i {
		case 0:
			t.Kind = domain.TileStart
		case last:
			t.Kind = domain.TileCastle
		default:
			b.decorate(rng, t)
		}
	}
	for _, branch := range p.Branches {
		for _, c := range branch {
			t := &board.Tiles[board.Index(c.X, c.Y)]
			t.IsPath = true
			b.decorate(rng, t)
		}
	}
	return board
}

func (b *Builder) decorate(rng *rand.Rand, t *domain.Tile) {
	roll := rng.Intn(100)
	switch {
	case roll < battleChance:
		t.Kind = domain.TileBattle
		e := b.SpawnEnemy(rng, 0)
		t.Enemy = &e
	case roll < battleChance+bonusChance:
		t.Kind = domain.TileBonus
	default:
		t.Kind = domain.TileNormal
	}
}

// SpawnEnemy instantiates a uniformly chosen template carrying a fresh
// weapon-or-armor reward. bonusPower is added on top of the template power.
func (b *Builder) SpawnEnemy(rng *rand.Rand, bonusPower int) domain.Enemy {
	tpl := b.enemies[rng.Intn(len(b.enemies))]
	return domain.Enemy{
		ID:         domain.NewID(rng),
		Name:       tpl.Name,
		Health:     tpl.Health,
		Power:      tpl.Power + bonusPower,
		Reward:     b.rewards.RandomItemOfCategory(rng, domain.CategoryWeapon, domain.CategoryArmor),
		GoldReward: tpl.GoldReward,
	}
}
