package game

import (
	"time"

	"github.com/google/uuid"

	domain "boardquest/internal/domain/game"
)

// nextTaskLocked decides what the engine does on its own from the current
// state: enemy combat turns for everyone, and every move of an AI player.
func (s *Session) nextTaskLocked() (time.Duration, func() bool, bool) {
	st := &s.state
	if st.Phase == domain.PhaseGameOver {
		return 0, nil, false
	}
	if st.Phase == domain.PhaseBattle && st.CurrentBattle != nil && st.CurrentBattle.Phase == domain.BattleEnemyAttack {
		return s.cfg.EnemyTurnDelay, s.enemyTurnLocked, true
	}

	cur := st.Current()
	if cur == nil || !cur.IsAI {
		return 0, nil, false
	}

	switch st.Phase {
	case domain.PhaseRolling:
		return s.cfg.RollDelay, s.rollLocked, true
	case domain.PhaseSelectingTile:
		target, ok := chooseTile(st, cur)
		if !ok {
			return 0, nil, false
		}
		return s.cfg.SelectDelay, func() bool { return s.selectTileLocked(target) }, true
	case domain.PhaseBattle:
		if potion, ok := chooseHeal(st.CurrentBattle, cur); ok {
			return s.cfg.CombatDelay, func() bool { return s.useItemLocked(potion) }, true
		}
		return s.cfg.CombatDelay, s.attackLocked, true
	case domain.PhaseReward, domain.PhaseTrap:
		return s.cfg.AckDelay, s.acknowledgeLocked, true
	case domain.PhaseFinishing:
		if item, ok := betterGear(cur); ok {
			return s.cfg.FinishDelay, func() bool { return s.equipLocked(cur, item) }, true
		}
		if trap, ok := trapToPlace(st, cur); ok {
			return s.cfg.FinishDelay, func() bool { return s.placeTrapLocked(trap) }, true
		}
		if st.CanContinue && s.rng.Float64() < s.cfg.ContinueChance {
			return s.cfg.FinishDelay, s.continueLocked, true
		}
		return s.cfg.FinishDelay, s.endTurnLocked, true
	}
	return 0, nil, false
}

func lowHealth(health, maxHealth int) bool {
	return float64(health) < lowHealthFraction*float64(maxHealth)
}

// chooseTile takes the castle when it is in reach, otherwise the furthest
// legal tile. A wounded player steers around battle tiles when it can.
func chooseTile(st *domain.GameState, p *domain.Player) (int, bool) {
	if len(st.LegalPositions) == 0 {
		return 0, false
	}
	castle := len(st.Board.Path) - 1
	for _, pos := range st.LegalPositions {
		if pos == castle {
			return pos, true
		}
	}

	isBattle := func(pos int) bool {
		t, _ := st.Board.PathTile(pos)
		return t.Kind == domain.TileBattle
	}
	avoid := lowHealth(p.Health, p.MaxHealth)

	best, found := -1, false
	for _, pos := range st.LegalPositions {
		if avoid && isBattle(pos) {
			continue
		}
		if !found || pos > best {
			best, found = pos, true
		}
	}
	if found {
		return best, true
	}
	return st.LegalPositions[len(st.LegalPositions)-1], true
}

func chooseHeal(b *domain.BattleState, p *domain.Player) (uuid.UUID, bool) {
	if b == nil || !lowHealth(b.PlayerHealth, b.PlayerMaxHealth) {
		return uuid.Nil, false
	}
	for _, item := range p.Inventory {
		if item.Category == domain.CategoryPotion {
			return item.ID, true
		}
	}
	return uuid.Nil, false
}

// betterGear returns an inventory item that beats what is equipped in its
// slot.
func betterGear(p *domain.Player) (uuid.UUID, bool) {
	for _, item := range p.Inventory {
		slot, ok := item.Slot()
		if !ok {
			continue
		}
		current, has := p.Equipped[slot]
		if !has || item.Stats > current.Stats {
			return item.ID, true
		}
	}
	return uuid.Nil, false
}

func trapToPlace(st *domain.GameState, p *domain.Player) (uuid.UUID, bool) {
	tile, ok := st.Board.PathTile(p.Position)
	if !ok || tile.Kind != domain.TileNormal || tile.Trap != nil {
		return uuid.Nil, false
	}
	for _, item := range p.Inventory {
		if item.Category == domain.CategoryTrap && domain.TrapKind(item.Effect).Valid() {
			return item.ID, true
		}
	}
	return uuid.Nil, false
}
