package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"boardquest/internal/app/board"
	"boardquest/internal/app/reward"
	"boardquest/internal/catalog"
	domain "boardquest/internal/domain/game"
	"boardquest/internal/platform/telemetry"
)

type fakeLedger struct {
	mu     sync.Mutex
	awards []domain.CastleAward
	err    error
}

func (l *fakeLedger) Award(_ context.Context, a domain.CastleAward) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.awards = append(l.awards, a)
	return l.err
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *fakePublisher) Publish(_ context.Context, subject string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *fakePublisher) Close() {}

func (p *fakePublisher) count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

func testDeps(t *testing.T, sched Scheduler) Deps {
	t.Helper()
	c, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load err: %v", err)
	}
	rewards := reward.NewGenerator(c)
	return Deps{
		Logger:    zerolog.Nop(),
		Scheduler: sched,
		Tracer:    telemetry.NoopTracer(),
		Builder:   board.NewBuilder(c, rewards),
		Rewards:   rewards,
	}
}

func newTestSession(t *testing.T, deps Deps, players ...PlayerSpec) *Session {
	t.Helper()
	return NewSession(deps, DefaultConfig(), uuid.New(), 42, players)
}

func humans(names ...string) []PlayerSpec {
	out := make([]PlayerSpec, 0, len(names))
	for _, n := range names {
		out = append(out, PlayerSpec{Name: n})
	}
	return out
}

// normalPathTile returns a main walk position holding a plain tile.
func normalPathTile(t *testing.T, s *Session) int {
	t.Helper()
	for pos := 1; pos < len(s.state.Board.Path)-1; pos++ {
		if tile, _ := s.state.Board.PathTile(pos); tile.Kind == domain.TileNormal {
			return pos
		}
	}
	t.Fatal("board has no normal path tile")
	return -1
}

func TestRollAndMovementBounds(t *testing.T) {
	sched := NewManualScheduler()
	s := newTestSession(t, testDeps(t, sched), humans("Ann")...)

	s.mu.Lock()
	s.state.Players[0].Position = 5
	s.mu.Unlock()

	st := s.Dispatch(Action{Type: ActionRollDice})
	if st.Phase != domain.PhaseSelectingTile {
		t.Fatalf("phase after roll = %v, want selecting_tile", st.Phase)
	}
	if st.DiceValue == nil || *st.DiceValue < 1 || *st.DiceValue > 6 {
		t.Fatalf("dice value = %v", st.DiceValue)
	}
	dice := *st.DiceValue
	for _, p := range st.LegalPositions {
		if p == 5 || p < 0 || p >= len(st.Board.Path) || p < 5-dice || p > 5+dice {
			t.Fatalf("illegal position %d offered for dice %d", p, dice)
		}
	}
	want := 0
	for p := 5 - dice; p <= 5+dice; p++ {
		if p >= 0 && p < len(st.Board.Path) && p != 5 {
			want++
		}
	}
	if len(st.LegalPositions) != want {
		t.Fatalf("len(LegalPositions) = %d, want %d", len(st.LegalPositions), want)
	}

	far := 5 + dice + 1
	if got := s.Dispatch(Action{Type: ActionSelectTile, Position: &far}); got.Phase != domain.PhaseSelectingTile {
		t.Fatalf("out of range move accepted, phase %v", got.Phase)
	}

	target := st.LegalPositions[0]
	got := s.Dispatch(Action{Type: ActionSelectTile, Position: &target})
	p := got.Players[0]
	if p.Position != target {
		t.Fatalf("Position = %d, want %d", p.Position, target)
	}
	if want := 5 - target; p.Stats.TilesMovedTotal != want {
		t.Fatalf("TilesMovedTotal = %d, want %d", p.Stats.TilesMovedTotal, want)
	}
	if got.DiceValue != nil || len(got.LegalPositions) != 0 {
		t.Fatal("dice not cleared after move")
	}
}

func TestLegalPositionsClampToPath(t *testing.T) {
	got := legalPositions(1, 3, 10)
	want := []int{0, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("legalPositions(1, 3, 10) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("legalPositions(1, 3, 10) = %v, want %v", got, want)
		}
	}
	if got := legalPositions(9, 2, 10); len(got) != 2 {
		t.Fatalf("legalPositions(9, 2, 10) = %v", got)
	}
}

func TestCastleWinRecordsAward(t *testing.T) {
	tests := []struct {
		name         string
		ledgerErr    error
		wantRecorded bool
	}{
		{"recorded", nil, true},
		{"ledger down", errors.New("db down"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &fakeLedger{err: tt.ledgerErr}
			pub := &fakePublisher{}
			deps := testDeps(t, NewManualScheduler())
			deps.Ledger = ledger
			deps.Publisher = pub
			s := newTestSession(t, deps, humans("Ann", "Bob")...)

			castle := len(s.Snapshot().Board.Path) - 1
			s.mu.Lock()
			p := &s.state.Players[0]
			p.Position = castle - 2
			p.Gold = 120
			p.Stats.GoldCollected = 110
			dice := 2
			s.state.DiceValue = &dice
			s.state.LegalPositions = legalPositions(p.Position, dice, len(s.state.Board.Path))
			s.state.Phase = domain.PhaseSelectingTile
			s.mu.Unlock()

			st := s.Dispatch(Action{Type: ActionSelectTile, Position: &castle})
			if st.Phase != domain.PhaseGameOver {
				t.Fatalf("phase = %v, want game_over", st.Phase)
			}
			if st.Winner == nil || st.Winner.Name != "Ann" {
				t.Fatalf("winner = %+v", st.Winner)
			}
			if st.Award == nil || st.Award.Orbs != 3 || st.Award.Gold != 110 {
				t.Fatalf("award = %+v, want 110 collected gold and 3 orbs", st.Award)
			}
			if st.Award.Recorded != tt.wantRecorded || st.Award.Pending {
				t.Fatalf("award recorded=%v pending=%v", st.Award.Recorded, st.Award.Pending)
			}
			if tt.ledgerErr != nil && st.Award.Error == "" {
				t.Fatal("ledger error not surfaced")
			}
			if len(ledger.awards) != 1 || ledger.awards[0].PlayerName != "Ann" || ledger.awards[0].Gold != 110 {
				t.Fatalf("ledger awards = %+v", ledger.awards)
			}
			if pub.count(SubjectCastleReached) != 1 {
				t.Fatalf("castle event published %d times", pub.count(SubjectCastleReached))
			}

			after := s.Dispatch(Action{Type: ActionRollDice})
			if after.Phase != domain.PhaseGameOver || after.DiceValue != nil {
				t.Fatal("action accepted after game over")
			}
		})
	}
}

func TestTurnRotationWraps(t *testing.T) {
	pub := &fakePublisher{}
	deps := testDeps(t, NewManualScheduler())
	deps.Publisher = pub
	s := newTestSession(t, deps, humans("Ann", "Bob", "Cid")...)

	order := s.Snapshot().Players
	for i := 0; i < 3; i++ {
		s.mu.Lock()
		s.state.Phase = domain.PhaseFinishing
		s.mu.Unlock()

		st := s.Dispatch(Action{Type: ActionEndTurn})
		want := order[(i+1)%3].ID
		if st.CurrentPlayerID != want {
			t.Fatalf("after end %d current = %v, want %v", i, st.CurrentPlayerID, want)
		}
		if st.Phase != domain.PhaseRolling {
			t.Fatalf("phase after end_turn = %v", st.Phase)
		}
	}
	if st := s.Snapshot(); st.Turn != 4 {
		t.Fatalf("Turn = %d, want 4", st.Turn)
	}
	if n := pub.count(SubjectTurnEnded); n != 3 {
		t.Fatalf("turn_ended published %d times, want 3", n)
	}
}

func TestInvalidActionsAreIgnored(t *testing.T) {
	s := newTestSession(t, testDeps(t, NewManualScheduler()), humans("Ann", "Bob")...)
	before := s.Snapshot()
	bob := before.Players[1].ID

	cases := []Action{
		{Type: ActionEndTurn},
		{Type: ActionAttack},
		{Type: ActionAcknowledge},
		{Type: ActionContinue},
		{Type: ActionRollDice, PlayerID: bob},
		{Type: "dance"},
	}
	for _, a := range cases {
		st := s.Dispatch(a)
		if st.Phase != before.Phase || st.Turn != before.Turn || st.DiceValue != nil {
			t.Fatalf("action %+v changed state", a)
		}
	}
}

func TestStaleTaskIsDiscarded(t *testing.T) {
	sched := NewManualScheduler()
	s := newTestSession(t, testDeps(t, sched), PlayerSpec{Name: "Bot", AI: true}, PlayerSpec{Name: "Ann"})

	stale := sched.Last()
	if stale == nil || sched.Pending() != 1 {
		t.Fatalf("expected one pending AI task, got %d", sched.Pending())
	}

	ann := s.Snapshot().Players[1].ID
	sword := domain.Item{ID: uuid.New(), Name: "Sword", Category: domain.CategoryWeapon, Stats: 5}
	s.mu.Lock()
	s.state.Players[1].Inventory = append(s.state.Players[1].Inventory, sword)
	s.mu.Unlock()

	st := s.Dispatch(Action{Type: ActionEquipItem, PlayerID: ann, ItemID: sword.ID})
	if _, ok := st.Players[1].Equipped[domain.SlotWeapon]; !ok {
		t.Fatal("equip for a waiting player was not applied")
	}
	if sched.Pending() != 1 {
		t.Fatalf("pending tasks = %d, want 1", sched.Pending())
	}

	stale.Fn()
	if st := s.Snapshot(); st.Phase != domain.PhaseRolling || st.DiceValue != nil {
		t.Fatalf("stale task mutated state: phase %v", st.Phase)
	}

	if !sched.RunNext() {
		t.Fatal("rescheduled task missing")
	}
	if st := s.Snapshot(); st.Phase != domain.PhaseSelectingTile {
		t.Fatalf("fresh task did not roll: phase %v", st.Phase)
	}
}

func TestRestartDiscardsPendingTask(t *testing.T) {
	sched := NewManualScheduler()
	s := newTestSession(t, testDeps(t, sched), PlayerSpec{Name: "Bot", AI: true})
	stale := sched.Last()

	st := s.Restart()
	if st.Turn != 1 || st.Phase != domain.PhaseRolling {
		t.Fatalf("restart state turn=%d phase=%v", st.Turn, st.Phase)
	}
	stale.Fn()
	if s.Snapshot().Phase != domain.PhaseRolling {
		t.Fatal("task from before restart was applied")
	}
	if sched.Pending() != 1 {
		t.Fatalf("pending tasks = %d, want 1", sched.Pending())
	}
}

func TestAIOnlyGameReachesGameOver(t *testing.T) {
	sched := NewManualScheduler()
	s := newTestSession(t, testDeps(t, sched),
		PlayerSpec{Name: "Bot A", AI: true},
		PlayerSpec{Name: "Bot B", AI: true},
		PlayerSpec{Name: "Bot C", AI: true},
	)

	sched.RunAll(1_000_000)

	st := s.Snapshot()
	if st.Phase != domain.PhaseGameOver {
		t.Fatalf("phase = %v after draining scheduler, want game_over", st.Phase)
	}
	if st.Winner == nil {
		t.Fatal("no winner")
	}
	if sched.Pending() != 0 {
		t.Fatalf("pending tasks after game over = %d", sched.Pending())
	}
	if len(st.Log) > logLimit {
		t.Fatalf("log grew to %d entries", len(st.Log))
	}
}

func TestDefeatResetsPlayer(t *testing.T) {
	s := newTestSession(t, testDeps(t, NewManualScheduler()), humans("Ann")...)

	s.mu.Lock()
	p := &s.state.Players[0]
	p.Position = 7
	p.Gold = 300
	p.Health = 1
	p.Stats.BattlesWon = 2
	p.Inventory = append(p.Inventory, domain.Item{ID: uuid.New(), Name: "Potion", Category: domain.CategoryPotion, Stats: 10})
	s.startBattleLocked(domain.Enemy{ID: uuid.New(), Name: "Titan", Health: 1000, Power: 1000})
	for i := 0; i < 100 && s.state.Phase == domain.PhaseBattle; i++ {
		s.state.CurrentBattle.Phase = domain.BattleEnemyAttack
		s.enemyTurnLocked()
	}
	s.mu.Unlock()

	st := s.Snapshot()
	if st.Phase != domain.PhaseFinishing {
		t.Fatalf("phase = %v, want finishing", st.Phase)
	}
	got := st.Players[0]
	if got.Position != 0 || got.Gold != domain.StartingGold || len(got.Inventory) != 0 || got.Health != got.MaxHealth {
		t.Fatalf("player not reset: %+v", got)
	}
	if got.Stats.BattlesWon != 2 {
		t.Fatalf("BattlesWon = %d, want 2", got.Stats.BattlesWon)
	}
	if st.LastBattle == nil || st.LastBattle.Phase != domain.BattleDefeat || st.CurrentBattle != nil {
		t.Fatal("last battle not kept as defeat")
	}
	if st.CanContinue {
		t.Fatal("defeat granted a continue")
	}
}

func TestVictoryRewardAndContinue(t *testing.T) {
	s := newTestSession(t, testDeps(t, NewManualScheduler()), humans("Ann", "Bob")...)
	axe := domain.Item{ID: uuid.New(), Name: "Axe", Category: domain.CategoryWeapon, Rarity: domain.RarityCommon, Stats: 4}

	s.mu.Lock()
	p := &s.state.Players[0]
	p.BaseStats.Attack = 1000
	s.startBattleLocked(domain.Enemy{ID: uuid.New(), Name: "Rat", Health: 1, Power: 1, GoldReward: 25, Reward: axe})
	s.mu.Unlock()

	for i := 0; i < 100 && s.Snapshot().Phase == domain.PhaseBattle; i++ {
		s.mu.Lock()
		s.state.CurrentBattle.Phase = domain.BattlePlayerAttack
		s.mu.Unlock()
		s.Dispatch(Action{Type: ActionAttack})
	}

	st := s.Snapshot()
	if st.Phase != domain.PhaseReward {
		t.Fatalf("phase = %v, want reward", st.Phase)
	}
	got := st.Players[0]
	if got.Gold != domain.StartingGold+25 || got.Stats.GoldCollected != 25 || got.Stats.BattlesWon != 1 {
		t.Fatalf("victory not credited: gold=%d collected=%d won=%d", got.Gold, got.Stats.GoldCollected, got.Stats.BattlesWon)
	}
	if len(got.Inventory) != 1 || got.Inventory[0].Name != "Axe" || got.Inventory[0].ID == axe.ID {
		t.Fatalf("reward item not granted with a fresh id: %+v", got.Inventory)
	}

	st = s.Dispatch(Action{Type: ActionAcknowledge})
	if st.Phase != domain.PhaseFinishing || !st.CanContinue {
		t.Fatalf("after acknowledge phase=%v canContinue=%v", st.Phase, st.CanContinue)
	}
	st = s.Dispatch(Action{Type: ActionContinue})
	if st.Phase != domain.PhaseRolling || st.CurrentPlayerID != got.ID || st.CanContinue {
		t.Fatalf("continue: phase=%v current=%v canContinue=%v", st.Phase, st.CurrentPlayerID, st.CanContinue)
	}
	if st.Turn != 1 {
		t.Fatalf("continue advanced turn to %d", st.Turn)
	}
}

func TestPlacedTrapTriggersForOthers(t *testing.T) {
	s := newTestSession(t, testDeps(t, NewManualScheduler()), humans("Ann", "Bob")...)
	pos := normalPathTile(t, s)
	spikes := domain.Item{ID: uuid.New(), Name: "Spikes", Category: domain.CategoryTrap, Stats: 12, Effect: string(domain.TrapDamage)}

	s.mu.Lock()
	s.state.Players[0].Position = pos
	s.state.Players[0].Inventory = append(s.state.Players[0].Inventory, spikes)
	s.state.Phase = domain.PhaseFinishing
	s.mu.Unlock()

	st := s.Dispatch(Action{Type: ActionPlaceTrap, ItemID: spikes.ID})
	tile, _ := st.Board.PathTile(pos)
	if tile.Kind != domain.TileTrap || tile.Trap == nil || tile.Trap.OwnerName != "Ann" || tile.Trap.Power != 12 {
		t.Fatalf("trap not placed: %+v", tile)
	}
	if len(st.Players[0].Inventory) != 0 {
		t.Fatal("trap item not consumed")
	}

	st = s.Dispatch(Action{Type: ActionEndTurn})
	bob := st.Players[1]
	s.mu.Lock()
	dice := 1
	s.state.Players[1].Position = pos - 1
	s.state.DiceValue = &dice
	s.state.LegalPositions = []int{pos}
	s.state.Phase = domain.PhaseSelectingTile
	s.mu.Unlock()

	st = s.Dispatch(Action{Type: ActionSelectTile, Position: &pos})
	if st.Phase != domain.PhaseTrap {
		t.Fatalf("phase = %v, want trap", st.Phase)
	}
	if st.Players[1].Health != bob.MaxHealth-12 {
		t.Fatalf("Health = %d, want %d", st.Players[1].Health, bob.MaxHealth-12)
	}
	tile, _ = st.Board.PathTile(pos)
	if tile.Trap != nil || tile.Kind != domain.TileNormal {
		t.Fatal("trap not cleared after triggering")
	}
	if st.ActiveTrap == nil || st.ActiveTrap.Kind != domain.TrapDamage {
		t.Fatalf("ActiveTrap = %+v", st.ActiveTrap)
	}

	st = s.Dispatch(Action{Type: ActionAcknowledge})
	if st.Phase != domain.PhaseFinishing || !st.CanContinue {
		t.Fatalf("after acknowledge phase=%v canContinue=%v", st.Phase, st.CanContinue)
	}
}

// springTrap arms a trap owned by someone outside the game on a plain tile
// and walks Ann onto it.
func springTrap(t *testing.T, s *Session, trap domain.Trap, setup func(p *domain.Player)) domain.GameState {
	t.Helper()
	pos := normalPathTile(t, s)

	s.mu.Lock()
	tile := &s.state.Board.Tiles[s.state.Board.Path[pos]]
	tile.Kind = domain.TileTrap
	tile.Trap = &trap
	p := &s.state.Players[0]
	p.Position = pos - 1
	if setup != nil {
		setup(p)
	}
	dice := 1
	s.state.DiceValue = &dice
	s.state.LegalPositions = []int{pos}
	s.state.Phase = domain.PhaseSelectingTile
	s.mu.Unlock()

	st := s.Dispatch(Action{Type: ActionSelectTile, Position: &pos})
	if tile, _ := st.Board.PathTile(pos); tile.Trap != nil || tile.Kind != domain.TileNormal {
		t.Fatalf("trap not cleared after triggering: %+v", tile)
	}
	if st.ActiveTrap == nil || st.ActiveTrap.Kind != trap.Kind {
		t.Fatalf("ActiveTrap = %+v, want %s", st.ActiveTrap, trap.Kind)
	}
	return st
}

func TestTrapKinds(t *testing.T) {
	c, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load err: %v", err)
	}
	basePower := map[string]int{}
	for _, e := range c.Enemies {
		basePower[e.Name] = e.Power
	}
	potion := func() domain.Item {
		return domain.Item{ID: uuid.New(), Name: "Potion", Category: domain.CategoryPotion, Stats: 10}
	}

	tests := []struct {
		name  string
		kind  domain.TrapKind
		power int
		setup func(p *domain.Player)
		check func(t *testing.T, st domain.GameState)
	}{
		{
			name:  "creature starts a boosted battle",
			kind:  domain.TrapCreature,
			power: 9,
			check: func(t *testing.T, st domain.GameState) {
				if st.Phase != domain.PhaseBattle || st.CurrentBattle == nil {
					t.Fatalf("phase = %v battle = %v, want battle", st.Phase, st.CurrentBattle)
				}
				e := st.CurrentBattle.Enemy
				base, ok := basePower[e.Name]
				if !ok {
					t.Fatalf("enemy %q not from the catalog", e.Name)
				}
				if e.Power != base+9 {
					t.Fatalf("enemy power = %d, want %d", e.Power, base+9)
				}
			},
		},
		{
			name:  "item loss takes one item",
			kind:  domain.TrapItemLoss,
			power: 1,
			setup: func(p *domain.Player) {
				p.Inventory = append(p.Inventory, potion(), potion())
			},
			check: func(t *testing.T, st domain.GameState) {
				if st.Phase != domain.PhaseTrap {
					t.Fatalf("phase = %v, want trap", st.Phase)
				}
				if n := len(st.Players[0].Inventory); n != 1 {
					t.Fatalf("inventory size = %d, want 1", n)
				}
			},
		},
		{
			name:  "item loss with empty inventory",
			kind:  domain.TrapItemLoss,
			power: 1,
			check: func(t *testing.T, st domain.GameState) {
				if st.Phase != domain.PhaseTrap {
					t.Fatalf("phase = %v, want trap", st.Phase)
				}
				if n := len(st.Players[0].Inventory); n != 0 {
					t.Fatalf("inventory size = %d, want 0", n)
				}
			},
		},
		{
			name:  "fatal damage resets the player",
			kind:  domain.TrapDamage,
			power: 12,
			setup: func(p *domain.Player) {
				p.Health = 5
				p.Gold = 300
				p.Inventory = append(p.Inventory, potion())
			},
			check: func(t *testing.T, st domain.GameState) {
				if st.Phase != domain.PhaseFinishing {
					t.Fatalf("phase = %v, want finishing", st.Phase)
				}
				got := st.Players[0]
				if got.Position != 0 || got.Gold != domain.StartingGold || len(got.Inventory) != 0 || got.Health != got.MaxHealth {
					t.Fatalf("player not reset: %+v", got)
				}
				if st.CanContinue {
					t.Fatal("fatal trap granted a continue")
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, testDeps(t, NewManualScheduler()), humans("Ann", "Bob")...)
			trap := domain.Trap{ID: uuid.New(), Kind: tt.kind, Power: tt.power, OwnerID: uuid.New(), OwnerName: "Mole"}
			tt.check(t, springTrap(t, s, trap, tt.setup))
		})
	}
}

func TestFatalTrapCannotBeAcknowledged(t *testing.T) {
	s := newTestSession(t, testDeps(t, NewManualScheduler()), humans("Ann", "Bob")...)
	trap := domain.Trap{ID: uuid.New(), Kind: domain.TrapDamage, Power: 500, OwnerID: uuid.New(), OwnerName: "Mole"}
	springTrap(t, s, trap, nil)

	for _, a := range []ActionType{ActionAcknowledge, ActionContinue} {
		st := s.Dispatch(Action{Type: a})
		if st.Phase != domain.PhaseFinishing || st.CanContinue {
			t.Fatalf("%s after fatal trap: phase=%v canContinue=%v", a, st.Phase, st.CanContinue)
		}
	}
	if st := s.Dispatch(Action{Type: ActionEndTurn}); st.CurrentPlayerID != st.Players[1].ID {
		t.Fatal("end_turn after fatal trap did not rotate")
	}
}

func TestOwnTrapDoesNotTrigger(t *testing.T) {
	s := newTestSession(t, testDeps(t, NewManualScheduler()), humans("Ann")...)
	pos := normalPathTile(t, s)
	snare := domain.Item{ID: uuid.New(), Name: "Snare", Category: domain.CategoryTrap, Stats: 1, Effect: string(domain.TrapItemLoss)}

	s.mu.Lock()
	s.state.Players[0].Position = pos
	s.state.Players[0].Inventory = append(s.state.Players[0].Inventory, snare)
	s.state.Phase = domain.PhaseFinishing
	s.mu.Unlock()
	s.Dispatch(Action{Type: ActionPlaceTrap, ItemID: snare.ID})

	s.mu.Lock()
	dice := 1
	s.state.Players[0].Position = pos - 1
	s.state.DiceValue = &dice
	s.state.LegalPositions = []int{pos}
	s.state.Phase = domain.PhaseSelectingTile
	s.mu.Unlock()

	st := s.Dispatch(Action{Type: ActionSelectTile, Position: &pos})
	if st.Phase != domain.PhaseFinishing {
		t.Fatalf("phase = %v, want finishing", st.Phase)
	}
	if tile, _ := st.Board.PathTile(pos); tile.Trap == nil {
		t.Fatal("owner cleared their own trap")
	}
}

func TestEquipAndUnequip(t *testing.T) {
	s := newTestSession(t, testDeps(t, NewManualScheduler()), humans("Ann")...)
	armor := domain.Item{ID: uuid.New(), Name: "Plate", Category: domain.CategoryArmor, Stats: 20}
	s.mu.Lock()
	s.state.Players[0].Inventory = append(s.state.Players[0].Inventory, armor)
	s.mu.Unlock()

	st := s.Dispatch(Action{Type: ActionEquipItem, ItemID: armor.ID})
	p := st.Players[0]
	if p.Equipped[domain.SlotArmor].ID != armor.ID || len(p.Inventory) != 0 {
		t.Fatalf("equip failed: %+v", p)
	}
	if p.MaxHealth != domain.BaseHealth+4 {
		t.Fatalf("MaxHealth = %d, want %d", p.MaxHealth, domain.BaseHealth+4)
	}

	st = s.Dispatch(Action{Type: ActionUnequipItem, Slot: domain.SlotArmor})
	p = st.Players[0]
	if len(p.Equipped) != 0 || len(p.Inventory) != 1 || p.MaxHealth != domain.BaseHealth {
		t.Fatalf("unequip failed: %+v", p)
	}
	if p.Health > p.MaxHealth {
		t.Fatalf("Health %d above MaxHealth %d", p.Health, p.MaxHealth)
	}
}

func TestObserversReceiveCopies(t *testing.T) {
	s := newTestSession(t, testDeps(t, NewManualScheduler()), humans("Ann")...)

	var got []domain.GameState
	unsubscribe := s.Subscribe(func(st domain.GameState) { got = append(got, st) })
	s.Dispatch(Action{Type: ActionRollDice})
	if len(got) != 1 || got[0].Phase != domain.PhaseSelectingTile {
		t.Fatalf("observer calls = %d", len(got))
	}

	got[0].Players[0].Name = "Mallory"
	got[0].Board.Tiles[0].Kind = "mutated"
	snap := s.Snapshot()
	if snap.Players[0].Name != "Ann" || snap.Board.Tiles[0].Kind == "mutated" {
		t.Fatal("observer copy shares memory with the session")
	}

	unsubscribe()
	s.mu.Lock()
	s.state.Phase = domain.PhaseFinishing
	s.mu.Unlock()
	s.Dispatch(Action{Type: ActionEndTurn})
	if len(got) != 1 {
		t.Fatalf("observer called after unsubscribe: %d calls", len(got))
	}
}

func TestClosedSessionRefusesActions(t *testing.T) {
	sched := NewManualScheduler()
	s := newTestSession(t, testDeps(t, sched), PlayerSpec{Name: "Bot", AI: true})
	s.Close()

	if sched.Pending() != 0 {
		t.Fatalf("pending tasks after close = %d", sched.Pending())
	}
	if st := s.Dispatch(Action{Type: ActionRollDice}); st.Phase != domain.PhaseRolling {
		t.Fatalf("closed session accepted roll: %v", st.Phase)
	}
}

func TestLogIsBounded(t *testing.T) {
	s := newTestSession(t, testDeps(t, NewManualScheduler()), humans("Ann")...)
	s.mu.Lock()
	for i := 0; i < 3*logLimit; i++ {
		s.logf("line %d", i)
	}
	s.mu.Unlock()

	st := s.Snapshot()
	if len(st.Log) != logLimit {
		t.Fatalf("len(Log) = %d, want %d", len(st.Log), logLimit)
	}
	if last := st.Log[len(st.Log)-1]; last != "line 299" {
		t.Fatalf("last log line = %q", last)
	}
}

func TestSnapshotVersionOrdersChanges(t *testing.T) {
	s := newTestSession(t, testDeps(t, NewManualScheduler()), humans("Ann")...)

	var seen []uint64
	s.Subscribe(func(st domain.GameState) { seen = append(seen, st.Version) })

	v0 := s.Snapshot().Version
	if st := s.Dispatch(Action{Type: ActionEndTurn}); st.Version != v0 {
		t.Fatalf("refused action moved version %d -> %d", v0, st.Version)
	}
	rolled := s.Dispatch(Action{Type: ActionRollDice})
	if rolled.Version <= v0 {
		t.Fatalf("roll version %d, want above %d", rolled.Version, v0)
	}
	restarted := s.Restart()
	if restarted.Version <= rolled.Version {
		t.Fatalf("restart version %d, want above %d", restarted.Version, rolled.Version)
	}

	if len(seen) != 2 || seen[0] != rolled.Version || seen[1] != restarted.Version {
		t.Fatalf("observer versions = %v, want [%d %d]", seen, rolled.Version, restarted.Version)
	}
}
