package game

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type fakeIssuer struct{ issued int }

func (f *fakeIssuer) Issue(sessionID, playerID uuid.UUID) (string, error) {
	f.issued++
	return sessionID.String() + ":" + playerID.String(), nil
}

func TestManagerCreateIssuesSeatsForHumans(t *testing.T) {
	issuer := &fakeIssuer{}
	m := NewManager(testDeps(t, NewManualScheduler()), DefaultConfig(), issuer, 2)
	seed := int64(7)

	s, seats, err := m.Create(context.Background(), NewGameConfig{
		Players: []PlayerSpec{{Name: " Ann "}, {Name: "Bot", AI: true}},
		Seed:    &seed,
	})
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if len(seats) != 2 || issuer.issued != 1 {
		t.Fatalf("seats=%d issued=%d, want 2 and 1", len(seats), issuer.issued)
	}
	if seats[0].Name != "Ann" || seats[0].Token == "" || seats[1].Token != "" {
		t.Fatalf("unexpected seats: %+v", seats)
	}

	got, err := m.Get(s.ID())
	if err != nil || got != s {
		t.Fatalf("Get err: %v", err)
	}
	if err := m.Remove(s.ID()); err != nil {
		t.Fatalf("Remove err: %v", err)
	}
	if _, err := m.Get(s.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestManagerSameSeedSameBoard(t *testing.T) {
	m := NewManager(testDeps(t, NewManualScheduler()), DefaultConfig(), nil, 0)
	seed := int64(99)
	cfg := NewGameConfig{Players: []PlayerSpec{{Name: "Ann"}}, Seed: &seed}

	a, _, err := m.Create(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	b, _, err := m.Create(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	pa, pb := a.Snapshot().Board.Path, b.Snapshot().Board.Path
	if len(pa) != len(pb) {
		t.Fatalf("path lengths differ: %d vs %d", len(pa), len(pb))
	}
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("paths diverge at %d", i)
		}
	}
}

func TestManagerLimits(t *testing.T) {
	m := NewManager(testDeps(t, NewManualScheduler()), DefaultConfig(), nil, 1)

	if _, _, err := m.Create(context.Background(), NewGameConfig{}); !errors.Is(err, ErrInvalidPlayers) {
		t.Fatalf("expected ErrInvalidPlayers, got %v", err)
	}
	if _, _, err := m.Create(context.Background(), NewGameConfig{Players: []PlayerSpec{{Name: "  "}}}); !errors.Is(err, ErrInvalidPlayers) {
		t.Fatalf("expected ErrInvalidPlayers for blank name, got %v", err)
	}
	if _, _, err := m.Create(context.Background(), NewGameConfig{Players: []PlayerSpec{{Name: "Ann"}}}); err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if _, _, err := m.Create(context.Background(), NewGameConfig{Players: []PlayerSpec{{Name: "Bob"}}}); !errors.Is(err, ErrTooManySessions) {
		t.Fatalf("expected ErrTooManySessions, got %v", err)
	}
	m.Close()
	if m.Len() != 0 {
		t.Fatalf("Len after Close = %d", m.Len())
	}
}
