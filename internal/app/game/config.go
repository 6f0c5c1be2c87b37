package game

import (
	"time"

	"boardquest/internal/app/board"
	platformconfig "boardquest/internal/platform/config"
)

const (
	logLimit          = 100
	lowHealthFraction = 0.3
)

// Config holds the per-session tunables. Rules and formulas are fixed; only
// board size and pacing vary.
type Config struct {
	Width  int
	Height int

	RollDelay      time.Duration
	SelectDelay    time.Duration
	CombatDelay    time.Duration
	AckDelay       time.Duration
	FinishDelay    time.Duration
	EnemyTurnDelay time.Duration

	ContinueChance float64
	LedgerTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Width:          board.DefaultWidth,
		Height:         board.DefaultHeight,
		RollDelay:      800 * time.Millisecond,
		SelectDelay:    1200 * time.Millisecond,
		CombatDelay:    1000 * time.Millisecond,
		AckDelay:       1500 * time.Millisecond,
		FinishDelay:    1000 * time.Millisecond,
		EnemyTurnDelay: 900 * time.Millisecond,
		ContinueChance: 0.7,
		LedgerTimeout:  3 * time.Second,
	}
}

// ConfigFrom applies the environment pacing on top of DefaultConfig.
func ConfigFrom(env platformconfig.Config) Config {
	c := DefaultConfig()
	c.RollDelay = env.AIRollDelay
	c.SelectDelay = env.AISelectDelay
	c.CombatDelay = env.AICombatDelay
	c.AckDelay = env.AIAckDelay
	c.FinishDelay = env.AIFinishDelay
	c.EnemyTurnDelay = env.EnemyTurnDelay
	c.ContinueChance = env.AIContinueChance
	return c
}
