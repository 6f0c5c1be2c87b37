package game

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"boardquest/internal/app/combat"
	domain "boardquest/internal/domain/game"
)

func (s *Session) applyLocked(a Action) bool {
	if !a.Type.Valid() || s.state.Phase == domain.PhaseGameOver {
		return false
	}

	switch a.Type {
	case ActionEquipItem:
		return s.equipLocked(s.actorLocked(a.PlayerID), a.ItemID)
	case ActionUnequipItem:
		return s.unequipLocked(s.actorLocked(a.PlayerID), a.Slot)
	}

	cur := s.state.Current()
	if cur == nil || (a.PlayerID != uuid.Nil && a.PlayerID != cur.ID) {
		return false
	}

	switch a.Type {
	case ActionRollDice:
		return s.rollLocked()
	case ActionSelectTile:
		if a.Position == nil {
			return false
		}
		return s.selectTileLocked(*a.Position)
	case ActionAttack:
		return s.attackLocked()
	case ActionDefend:
		return s.playerRoundLocked(combat.PlayerDefend)
	case ActionUseItem:
		return s.useItemLocked(a.ItemID)
	case ActionAcknowledge:
		return s.acknowledgeLocked()
	case ActionContinue:
		return s.continueLocked()
	case ActionEndTurn:
		return s.endTurnLocked()
	case ActionPlaceTrap:
		return s.placeTrapLocked(a.ItemID)
	}
	return false
}

// actorLocked resolves the player an action applies to. uuid.Nil means the
// current player.
func (s *Session) actorLocked(id uuid.UUID) *domain.Player {
	if id == uuid.Nil {
		return s.state.Current()
	}
	idx := s.state.PlayerIndex(id)
	if idx < 0 {
		return nil
	}
	return &s.state.Players[idx]
}

func (s *Session) rollLocked() bool {
	if s.state.Phase != domain.PhaseRolling {
		return false
	}
	cur := s.state.Current()
	v := s.rng.Intn(6) + 1
	s.state.DiceValue = &v
	s.state.LegalPositions = legalPositions(cur.Position, v, len(s.state.Board.Path))
	s.state.Phase = domain.PhaseSelectingTile
	s.logf("%s rolls a %d.", cur.Name, v)
	return true
}

// legalPositions lists every walk index within dice steps of position in
// either direction, excluding position itself.
func legalPositions(position, dice, pathLen int) []int {
	out := make([]int, 0, 2*dice)
	for p := position - dice; p <= position+dice; p++ {
		if p < 0 || p >= pathLen || p == position {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (s *Session) selectTileLocked(position int) bool {
	if s.state.Phase != domain.PhaseSelectingTile {
		return false
	}
	legal := false
	for _, p := range s.state.LegalPositions {
		if p == position {
			legal = true
			break
		}
	}
	if !legal {
		return false
	}

	cur := s.state.Current()
	delta := position - cur.Position
	if delta < 0 {
		delta = -delta
	}
	cur.Stats.TilesMovedTotal += delta
	cur.Position = position
	s.state.DiceValue = nil
	s.state.LegalPositions = nil
	s.state.Phase = domain.PhaseMoving
	s.logf("%s moves to tile %d.", cur.Name, position)

	s.enterTileLocked()
	return true
}

// enterTileLocked resolves the tile the current player just landed on.
func (s *Session) enterTileLocked() {
	cur := s.state.Current()
	idx := s.state.Board.Path[cur.Position]
	tile := &s.state.Board.Tiles[idx]

	switch tile.Kind {
	case domain.TileCastle:
		s.winLocked(cur)
	case domain.TileBattle:
		if tile.Enemy == nil {
			s.state.Phase = domain.PhaseFinishing
			return
		}
		s.logf("A %s blocks the way!", tile.Enemy.Name)
		s.startBattleLocked(*tile.Enemy)
	case domain.TileBonus:
		item := s.deps.Rewards.RandomItem(s.rng)
		cur.Inventory = append(cur.Inventory, item)
		s.state.Reward = &item
		s.state.Phase = domain.PhaseReward
		s.logf("%s finds a %s %s.", cur.Name, item.Rarity, item.Name)
	case domain.TileTrap:
		if tile.Trap == nil || tile.Trap.OwnerID == cur.ID {
			s.state.Phase = domain.PhaseFinishing
			return
		}
		s.triggerTrapLocked(tile)
	default:
		s.state.Phase = domain.PhaseFinishing
	}
}

func (s *Session) winLocked(p *domain.Player) {
	winner := p.Clone()
	s.state.Winner = &winner
	s.state.Phase = domain.PhaseGameOver
	collected := p.Stats.GoldCollected
	orbs := domain.OrbsFor(collected)
	s.state.Award = &domain.Award{
		PlayerID: p.ID,
		Gold:     collected,
		Orbs:     orbs,
		Pending:  s.deps.Ledger != nil,
	}
	s.award = &domain.CastleAward{
		SessionID:  s.id,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Gold:       collected,
		Orbs:       orbs,
	}
	s.logf("%s reaches the castle and wins!", p.Name)
	s.logger.Info().Str("player_id", p.ID.String()).Int("turn", s.state.Turn).Msg("castle reached")
	s.emit(SubjectCastleReached, map[string]any{
		"session_id":  s.id,
		"player_id":   p.ID,
		"player_name": p.Name,
		"turn":        s.state.Turn,
		"gold":        collected,
		"orbs":        orbs,
	})
}

func (s *Session) startBattleLocked(enemy domain.Enemy) {
	cur := s.state.Current()
	stats := cur.EffectiveStats()
	b := combat.InitiateBattle(s.rng, enemy, combat.Snapshot{
		Health:    cur.Health,
		MaxHealth: cur.MaxHealth,
		Attack:    stats.Attack,
		Defense:   stats.Defense,
		Speed:     stats.Speed,
	})
	s.state.CurrentBattle = &b
	s.state.Phase = domain.PhaseBattle

	_, span := s.deps.Tracer.Start(context.Background(), "combat.start")
	span.SetAttributes(
		attribute.String("enemy", enemy.Name),
		attribute.Int("enemy.health", enemy.Health),
		attribute.Int("enemy.power", enemy.Power),
		attribute.String("first", string(b.Phase)),
	)
	span.End()
	s.logf("%s", b.Rounds[len(b.Rounds)-1].Description)
}

func (s *Session) playerRoundLocked(next func(domain.BattleState) domain.BattleState) bool {
	if s.state.Phase != domain.PhaseBattle || s.state.CurrentBattle == nil ||
		s.state.CurrentBattle.Phase != domain.BattlePlayerAttack {
		return false
	}
	s.advanceBattleLocked(next(*s.state.CurrentBattle))
	return true
}

func (s *Session) attackLocked() bool {
	return s.playerRoundLocked(func(b domain.BattleState) domain.BattleState {
		return combat.PlayerAttack(s.rng, b)
	})
}

func (s *Session) useItemLocked(itemID uuid.UUID) bool {
	if s.state.Phase != domain.PhaseBattle || s.state.CurrentBattle == nil ||
		s.state.CurrentBattle.Phase != domain.BattlePlayerAttack {
		return false
	}
	cur := s.state.Current()
	idx, ok := cur.FindItem(itemID)
	if !ok || !cur.Inventory[idx].Usable() {
		return false
	}
	item := cur.TakeItem(idx)
	s.advanceBattleLocked(combat.PlayerUseItem(*s.state.CurrentBattle, item))
	return true
}

func (s *Session) enemyTurnLocked() bool {
	if s.state.Phase != domain.PhaseBattle || s.state.CurrentBattle == nil ||
		s.state.CurrentBattle.Phase != domain.BattleEnemyAttack {
		return false
	}
	s.advanceBattleLocked(combat.EnemyAttack(s.rng, *s.state.CurrentBattle))
	return true
}

func (s *Session) advanceBattleLocked(b domain.BattleState) {
	s.state.CurrentBattle = &b
	last := b.Rounds[len(b.Rounds)-1]

	_, span := s.deps.Tracer.Start(context.Background(), "combat.round")
	span.SetAttributes(
		attribute.Int("round", last.Round),
		attribute.String("actor", string(last.Actor)),
		attribute.String("action", last.Action),
		attribute.Bool("hit", last.Hit),
		attribute.Int("damage", last.Damage),
	)
	span.End()

	s.logf("%s", last.Description)
	if b.Phase.Terminal() {
		s.finishBattleLocked()
	}
}

func (s *Session) finishBattleLocked() {
	b := *s.state.CurrentBattle
	out := combat.Resolve(b)
	cur := s.state.Current()

	cur.Health = min(b.PlayerHealth, cur.MaxHealth)
	s.state.LastBattle = &b
	s.state.CurrentBattle = nil

	_, span := s.deps.Tracer.Start(context.Background(), "combat.end")
	span.SetAttributes(
		attribute.Bool("player_won", out.PlayerWon),
		attribute.Int("rounds", b.CurrentRound),
		attribute.Int("damage_taken", out.DamageTaken),
	)
	span.End()

	if out.PlayerWon {
		cur.Gold += b.Enemy.GoldReward
		cur.Stats.GoldCollected += b.Enemy.GoldReward
		cur.Stats.BattlesWon++
		item := b.Enemy.Reward
		item.ID = domain.NewID(s.rng)
		cur.Inventory = append(cur.Inventory, item)
		s.state.Reward = &item
		s.state.Phase = domain.PhaseReward
		s.logf("%s defeats the %s and earns %d gold and a %s.", cur.Name, b.Enemy.Name, b.Enemy.GoldReward, item.Name)
	} else {
		cur.Reset()
		s.state.Phase = domain.PhaseFinishing
		s.logf("%s falls to the %s and wakes up back at the start.", cur.Name, b.Enemy.Name)
	}

	s.emit(SubjectBattleResolved, map[string]any{
		"session_id":   s.id,
		"player_id":    cur.ID,
		"enemy":        b.Enemy.Name,
		"player_won":   out.PlayerWon,
		"damage_taken": out.DamageTaken,
		"rounds":       b.CurrentRound,
	})
}

// triggerTrapLocked springs a foreign trap. The trap is removed from the
// board whatever its kind. A fatal trap ends the move like a lost battle.
func (s *Session) triggerTrapLocked(tile *domain.Tile) {
	trap := *tile.Trap
	tile.Trap = nil
	tile.Kind = domain.TileNormal
	s.state.ActiveTrap = &trap

	cur := s.state.Current()
	s.logf("%s springs %s's %s trap!", cur.Name, trap.OwnerName, trap.Kind)

	switch trap.Kind {
	case domain.TrapCreature:
		s.startBattleLocked(s.deps.Builder.SpawnEnemy(s.rng, trap.Power))
		return
	case domain.TrapDamage:
		cur.Health -= trap.Power
		if cur.Health <= 0 {
			cur.Reset()
			s.state.Phase = domain.PhaseFinishing
			s.logf("The trap is fatal. %s wakes up back at the start.", cur.Name)
			return
		}
		s.logf("%s takes %d damage.", cur.Name, trap.Power)
	case domain.TrapItemLoss:
		if len(cur.Inventory) > 0 {
			lost := cur.TakeItem(s.rng.Intn(len(cur.Inventory)))
			s.logf("%s loses the %s.", cur.Name, lost.Name)
		} else {
			s.logf("%s has nothing to lose.", cur.Name)
		}
	}
	s.state.Phase = domain.PhaseTrap
}

func (s *Session) acknowledgeLocked() bool {
	switch s.state.Phase {
	case domain.PhaseReward:
		s.state.Reward = nil
	case domain.PhaseTrap:
	default:
		return false
	}
	s.state.CanContinue = true
	s.state.Phase = domain.PhaseFinishing
	return true
}

func (s *Session) continueLocked() bool {
	if s.state.Phase != domain.PhaseFinishing || !s.state.CanContinue {
		return false
	}
	s.state.CanContinue = false
	s.clearTurnLocked()
	s.state.Phase = domain.PhaseRolling
	s.logf("%s presses on.", s.state.Current().Name)
	return true
}

func (s *Session) endTurnLocked() bool {
	switch s.state.Phase {
	case domain.PhaseFinishing, domain.PhaseReward, domain.PhaseTrap:
	default:
		return false
	}

	_, span := s.deps.Tracer.Start(context.Background(), "game.turn_end")
	defer span.End()

	prev := s.state.Current()
	s.clearTurnLocked()
	s.state.CanContinue = false

	idx := (s.state.PlayerIndex(prev.ID) + 1) % len(s.state.Players)
	next := s.state.Players[idx]
	ended := s.state.Turn
	s.state.CurrentPlayerID = next.ID
	s.state.Turn++
	s.state.Phase = domain.PhaseRolling

	span.SetAttributes(
		attribute.Int("turn", ended),
		attribute.String("player", prev.Name),
		attribute.String("next_player", next.Name),
	)
	s.logf("%s ends the turn. %s is up.", prev.Name, next.Name)
	s.emit(SubjectTurnEnded, map[string]any{
		"session_id":     s.id,
		"turn":           ended,
		"player_id":      prev.ID,
		"next_player_id": next.ID,
	})
	return true
}

func (s *Session) clearTurnLocked() {
	s.state.DiceValue = nil
	s.state.LegalPositions = nil
	s.state.Reward = nil
	s.state.CurrentBattle = nil
	s.state.LastBattle = nil
	s.state.ActiveTrap = nil
}

func (s *Session) equipLocked(p *domain.Player, itemID uuid.UUID) bool {
	if p == nil || s.state.Phase == domain.PhaseBattle {
		return false
	}
	idx, ok := p.FindItem(itemID)
	if !ok {
		return false
	}
	slot, ok := p.Inventory[idx].Slot()
	if !ok {
		return false
	}
	item := p.TakeItem(idx)
	if prev, had := p.Equipped[slot]; had {
		p.Inventory = append(p.Inventory, prev)
	}
	p.Equipped[slot] = item
	p.RecalculateHealth()
	s.logf("%s equips the %s.", p.Name, item.Name)
	return true
}

func (s *Session) unequipLocked(p *domain.Player, slot domain.Slot) bool {
	if p == nil || !slot.Valid() || s.state.Phase == domain.PhaseBattle {
		return false
	}
	item, ok := p.Equipped[slot]
	if !ok {
		return false
	}
	delete(p.Equipped, slot)
	p.Inventory = append(p.Inventory, item)
	p.RecalculateHealth()
	s.logf("%s unequips the %s.", p.Name, item.Name)
	return true
}

// placeTrapLocked arms a trap item on the current player's tile. Only plain
// path tiles can hold a trap.
func (s *Session) placeTrapLocked(itemID uuid.UUID) bool {
	if s.state.Phase != domain.PhaseFinishing {
		return false
	}
	cur := s.state.Current()
	idx, ok := cur.FindItem(itemID)
	if !ok {
		return false
	}
	item := cur.Inventory[idx]
	kind := domain.TrapKind(item.Effect)
	if item.Category != domain.CategoryTrap || !kind.Valid() {
		return false
	}
	tile := &s.state.Board.Tiles[s.state.Board.Path[cur.Position]]
	if tile.Kind != domain.TileNormal || tile.Trap != nil {
		return false
	}

	cur.TakeItem(idx)
	tile.Kind = domain.TileTrap
	tile.Trap = &domain.Trap{
		ID:        domain.NewID(s.rng),
		Kind:      kind,
		Power:     item.Stats,
		OwnerID:   cur.ID,
		OwnerName: cur.Name,
	}
	s.logf("%s hides a %s on tile %d.", cur.Name, item.Name, cur.Position)
	return true
}
