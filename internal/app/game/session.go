package game

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"boardquest/internal/app/board"
	"boardquest/internal/app/reward"
	domain "boardquest/internal/domain/game"
	"boardquest/internal/platform/mq"
	"boardquest/internal/platform/telemetry"
)

const (
	SubjectTurnEnded      = "game.turn_ended"
	SubjectBattleResolved = "game.battle_resolved"
	SubjectCastleReached  = "game.castle_reached"
)

// Ledger credits castle winners in the persistent economy.
type Ledger interface {
	Award(ctx context.Context, award domain.CastleAward) error
}

type PlayerSpec struct {
	Name string `json:"name"`
	AI   bool   `json:"ai"`
}

// Deps are the collaborators shared by every session of a Manager. Ledger
// and Publisher may be nil.
type Deps struct {
	Logger    zerolog.Logger
	Scheduler Scheduler
	Ledger    Ledger
	Publisher mq.Publisher
	Tracer    trace.Tracer
	Builder   *board.Builder
	Rewards   *reward.Generator
}

type taskKey struct {
	epoch uint64
	turn  int
	step  uint64
}

type outboundEvent struct {
	subject string
	payload any
}

// Session owns one game. Every mutation happens under mu; observers, the
// event publisher and the ledger are only called after it is released.
type Session struct {
	id     uuid.UUID
	deps   Deps
	cfg    Config
	logger zerolog.Logger

	mu        sync.Mutex
	rng       *rand.Rand
	state     domain.GameState
	epoch     uint64
	step      uint64
	version   uint64
	cancel    func()
	observers map[int]func(domain.GameState)
	nextObs   int
	closed    bool
	outbox    []outboundEvent
	award     *domain.CastleAward
}

func NewSession(deps Deps, cfg Config, id uuid.UUID, seed int64, players []PlayerSpec) *Session {
	if deps.Scheduler == nil {
		deps.Scheduler = TimerScheduler{}
	}
	if deps.Publisher == nil {
		deps.Publisher = mq.NewNoopPublisher()
	}
	if deps.Tracer == nil {
		deps.Tracer = telemetry.Tracer("game")
	}
	s := &Session{
		id:        id,
		deps:      deps,
		cfg:       cfg,
		logger:    deps.Logger.With().Str("session_id", id.String()).Logger(),
		rng:       rand.New(rand.NewSource(seed)),
		observers: make(map[int]func(domain.GameState)),
	}

	roster := make([]domain.Player, 0, len(players))
	for _, p := range players {
		roster = append(roster, domain.NewPlayer(domain.NewID(s.rng), p.Name, p.AI))
	}

	s.mu.Lock()
	s.resetLocked(roster)
	s.rescheduleLocked()
	s.mu.Unlock()
	return s
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() domain.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers fn for every accepted change. The returned func
// removes it.
func (s *Session) Subscribe(fn func(domain.GameState)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Dispatch applies a player action and returns the resulting state. Actions
// that are not valid in the current phase leave the state untouched.
func (s *Session) Dispatch(a Action) domain.GameState {
	s.mu.Lock()
	if s.closed {
		snap := s.state.Clone()
		s.mu.Unlock()
		return snap
	}
	accepted := s.applyLocked(a)
	if !accepted {
		s.logger.Debug().Str("action", string(a.Type)).Str("phase", string(s.state.Phase)).Msg("action ignored")
		snap := s.state.Clone()
		s.mu.Unlock()
		return snap
	}
	s.commitLocked()
	snap, observers, events, award := s.drainLocked()
	s.mu.Unlock()

	s.deliver(snap, observers, events, award)
	return s.Snapshot()
}

// Restart starts a new game for the same roster on a fresh board. Pending
// tasks from the previous game are discarded.
func (s *Session) Restart() domain.GameState {
	s.mu.Lock()
	if s.closed {
		snap := s.state.Clone()
		s.mu.Unlock()
		return snap
	}
	s.epoch++
	roster := make([]domain.Player, 0, len(s.state.Players))
	for _, p := range s.state.Players {
		roster = append(roster, domain.NewPlayer(p.ID, p.Name, p.IsAI))
	}
	s.resetLocked(roster)
	s.commitLocked()
	snap, observers, events, award := s.drainLocked()
	s.mu.Unlock()

	s.deliver(snap, observers, events, award)
	return s.Snapshot()
}

// Close cancels any pending task and refuses further actions.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.observers = map[int]func(domain.GameState){}
}

func (s *Session) resetLocked(roster []domain.Player) {
	b := s.deps.Builder.Generate(context.Background(), s.rng, s.cfg.Width, s.cfg.Height)
	s.state = domain.GameState{
		SessionID: s.id,
		Turn:      1,
		Players:   roster,
		Board:     b,
		Phase:     domain.PhaseRolling,
		Log:       make([]string, 0, logLimit),
	}
	if len(roster) > 0 {
		s.state.CurrentPlayerID = roster[0].ID
	}
	s.award = nil
	s.logf("A new board of %d path tiles is ready.", len(b.Path))
	if cur := s.state.Current(); cur != nil {
		s.logf("%s goes first.", cur.Name)
	}
}

// commitLocked records an accepted mutation: the step moves on, which makes
// any task keyed to the old step stale, and the next decision is scheduled.
func (s *Session) commitLocked() {
	s.step++
	s.rescheduleLocked()
}

func (s *Session) rescheduleLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.closed {
		return
	}
	delay, task, ok := s.nextTaskLocked()
	if !ok {
		return
	}
	key := s.keyLocked()
	s.cancel = s.deps.Scheduler.Schedule(delay, func() { s.runTask(key, task) })
}

func (s *Session) keyLocked() taskKey {
	return taskKey{epoch: s.epoch, turn: s.state.Turn, step: s.step}
}

// runTask applies a scheduled mutation if nothing has changed since it was
// scheduled.
func (s *Session) runTask(key taskKey, task func() bool) {
	s.mu.Lock()
	if s.closed || key != s.keyLocked() {
		s.logger.Debug().Uint64("epoch", key.epoch).Int("turn", key.turn).Uint64("step", key.step).Msg("stale task discarded")
		s.mu.Unlock()
		return
	}
	s.cancel = nil
	if !task() {
		s.mu.Unlock()
		return
	}
	s.commitLocked()
	snap, observers, events, award := s.drainLocked()
	s.mu.Unlock()

	s.deliver(snap, observers, events, award)
}

// drainLocked stamps the state with the next version and collects what must
// be delivered once the lock is released. Versions keep rising across
// restarts so observers can drop snapshots that arrive late.
func (s *Session) drainLocked() (domain.GameState, []func(domain.GameState), []outboundEvent, *domain.CastleAward) {
	s.version++
	s.state.Version = s.version

	observers := make([]func(domain.GameState), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	var snap domain.GameState
	if len(observers) > 0 {
		snap = s.state.Clone()
	}
	events := s.outbox
	s.outbox = nil
	award := s.award
	s.award = nil
	return snap, observers, events, award
}

func (s *Session) deliver(snap domain.GameState, observers []func(domain.GameState), events []outboundEvent, award *domain.CastleAward) {
	for _, fn := range observers {
		fn(snap.Clone())
	}
	for _, evt := range events {
		s.publish(evt)
	}
	if award != nil {
		s.recordAward(*award)
	}
}

func (s *Session) publish(evt outboundEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := mq.PublishJSON(ctx, s.deps.Publisher, evt.subject, evt.payload); err != nil {
		s.logger.Warn().Err(err).Str("subject", evt.subject).Msg("publish event failed")
	}
}

// recordAward calls the ledger without holding the lock and writes the
// outcome back into the state.
func (s *Session) recordAward(award domain.CastleAward) {
	if s.deps.Ledger == nil {
		return
	}
	timeout := s.cfg.LedgerTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	err := s.deps.Ledger.Award(ctx, award)
	cancel()

	s.mu.Lock()
	if s.state.Award == nil || s.state.Award.PlayerID != award.PlayerID {
		s.mu.Unlock()
		return
	}
	s.state.Award.Pending = false
	if err != nil {
		s.logger.Warn().Err(err).Str("player_id", award.PlayerID.String()).Msg("castle award failed")
		s.state.Award.Error = err.Error()
		s.logf("The treasury could not record %s's reward.", award.PlayerName)
	} else {
		s.state.Award.Recorded = true
		s.logf("%s banks %d gold and %d orbs.", award.PlayerName, award.Gold, award.Orbs)
	}
	snap, observers, events, next := s.drainLocked()
	s.mu.Unlock()

	s.deliver(snap, observers, events, next)
}

func (s *Session) logf(format string, args ...any) {
	s.state.Log = append(s.state.Log, fmt.Sprintf(format, args...))
	if over := len(s.state.Log) - logLimit; over > 0 {
		s.state.Log = append(s.state.Log[:0:0], s.state.Log[over:]...)
	}
}

func (s *Session) emit(subject string, payload any) {
	s.outbox = append(s.outbox, outboundEvent{subject: subject, payload: payload})
}
