package game

import "github.com/google/uuid"

type Phase string

const (
	PhaseRolling       Phase = "rolling"
	PhaseSelectingTile Phase = "selecting_tile"
	PhaseMoving        Phase = "moving"
	PhaseBattle        Phase = "battle"
	PhaseTrap          Phase = "trap"
	PhaseReward        Phase = "reward"
	PhaseFinishing     Phase = "finishing"
	PhaseGameOver      Phase = "game_over"
)

// Award is what the castle winner is owed by the persistent economy and
// whether the ledger accepted it.
type Award struct {
	PlayerID uuid.UUID `json:"player_id"`
	Gold     int       `json:"gold"`
	Orbs     int       `json:"orbs"`
	Recorded bool      `json:"recorded"`
	Pending  bool      `json:"pending"`
	Error    string    `json:"error,omitempty"`
}

type GameState struct {
	SessionID       uuid.UUID    `json:"session_id"`
	Version         uint64       `json:"version"`
	Turn            int          `json:"turn"`
	Players         []Player     `json:"players"`
	CurrentPlayerID uuid.UUID    `json:"current_player_id"`
	Board           Board        `json:"board"`
	Phase           Phase        `json:"phase"`
	DiceValue       *int         `json:"dice_value"`
	LegalPositions  []int        `json:"legal_positions,omitempty"`
	CurrentBattle   *BattleState `json:"current_battle"`
	LastBattle      *BattleState `json:"last_battle,omitempty"`
	ActiveTrap      *Trap        `json:"active_trap"`
	Reward          *Item        `json:"reward,omitempty"`
	CanContinue     bool         `json:"can_continue"`
	Winner          *Player      `json:"winner"`
	Award           *Award       `json:"award,omitempty"`
	Log             []string     `json:"log"`
}

func (s *GameState) PlayerIndex(id uuid.UUID) int {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// Current returns a pointer to the active player, or nil before the game has
// players.
func (s *GameState) Current() *Player {
	idx := s.PlayerIndex(s.CurrentPlayerID)
	if idx < 0 {
		return nil
	}
	return &s.Players[idx]
}

// Clone returns a deep copy safe to hand to readers outside the engine.
func (s GameState) Clone() GameState {
	out := s
	out.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		out.Players[i] = p.Clone()
	}
	out.Board = s.Board.Clone()
	if s.DiceValue != nil {
		v := *s.DiceValue
		out.DiceValue = &v
	}
	out.LegalPositions = append([]int(nil), s.LegalPositions...)
	if s.CurrentBattle != nil {
		b := s.CurrentBattle.Clone()
		out.CurrentBattle = &b
	}
	if s.LastBattle != nil {
		b := s.LastBattle.Clone()
		out.LastBattle = &b
	}
	if s.ActiveTrap != nil {
		t := *s.ActiveTrap
		out.ActiveTrap = &t
	}
	if s.Reward != nil {
		r := *s.Reward
		out.Reward = &r
	}
	if s.Winner != nil {
		w := s.Winner.Clone()
		out.Winner = &w
	}
	if s.Award != nil {
		a := *s.Award
		out.Award = &a
	}
	out.Log = append([]string(nil), s.Log...)
	return out
}

// CastleAward is the persistent-currency credit sent to the rewards ledger
// when a player reaches the castle.
type CastleAward struct {
	SessionID  uuid.UUID `json:"session_id"`
	PlayerID   uuid.UUID `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Gold       int       `json:"gold"`
	Orbs       int       `json:"orbs"`
}

// OrbsFor converts gold collected over a game into orbs.
func OrbsFor(goldCollected int) int {
	return 1 + goldCollected/50
}
