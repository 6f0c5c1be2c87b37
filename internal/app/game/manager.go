package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const maxPlayers = 4

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
	ErrInvalidPlayers  = errors.New("a game needs between 1 and 4 named players")
)

// SeatIssuer hands out the bearer tokens human players act with.
type SeatIssuer interface {
	Issue(sessionID, playerID uuid.UUID) (string, error)
}

type NewGameConfig struct {
	Players []PlayerSpec `json:"players"`
	Seed    *int64       `json:"seed,omitempty"`
}

type Seat struct {
	PlayerID uuid.UUID `json:"player_id"`
	Name     string    `json:"name"`
	Token    string    `json:"token,omitempty"`
}

// Manager owns the live sessions of one process.
type Manager struct {
	deps        Deps
	cfg         Config
	seats       SeatIssuer
	maxSessions int

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewManager(deps Deps, cfg Config, seats SeatIssuer, maxSessions int) *Manager {
	return &Manager{
		deps:        deps,
		cfg:         cfg,
		seats:       seats,
		maxSessions: maxSessions,
		sessions:    make(map[uuid.UUID]*Session),
	}
}

// Create starts a game. Human players get a seat token when the manager has
// an issuer.
func (m *Manager) Create(_ context.Context, gc NewGameConfig) (*Session, []Seat, error) {
	if len(gc.Players) == 0 || len(gc.Players) > maxPlayers {
		return nil, nil, ErrInvalidPlayers
	}
	players := make([]PlayerSpec, 0, len(gc.Players))
	for _, p := range gc.Players {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, nil, ErrInvalidPlayers
		}
		players = append(players, PlayerSpec{Name: name, AI: p.AI})
	}

	seed := time.Now().UnixNano()
	if gc.Seed != nil {
		seed = *gc.Seed
	}

	m.mu.Lock()
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		return nil, nil, ErrTooManySessions
	}
	id := uuid.New()
	s := NewSession(m.deps, m.cfg, id, seed, players)
	m.sessions[id] = s
	m.mu.Unlock()

	snap := s.Snapshot()
	seats := make([]Seat, 0, len(snap.Players))
	for _, p := range snap.Players {
		seat := Seat{PlayerID: p.ID, Name: p.Name}
		if !p.IsAI && m.seats != nil {
			tok, err := m.seats.Issue(id, p.ID)
			if err != nil {
				_ = m.Remove(id)
				return nil, nil, fmt.Errorf("issue seat: %w", err)
			}
			seat.Token = tok
		}
		seats = append(seats, seat)
	}

	m.deps.Logger.Info().Str("session_id", id.String()).Int("players", len(players)).Int64("seed", seed).Msg("game created")
	return s, seats, nil
}

func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) Remove(id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	m.deps.Logger.Info().Str("session_id", id.String()).Msg("game removed")
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[uuid.UUID]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
