package game

import (
	"github.com/google/uuid"

	domain "boardquest/internal/domain/game"
)

type ActionType string

const (
	ActionRollDice    ActionType = "roll_dice"
	ActionSelectTile  ActionType = "select_tile"
	ActionAttack      ActionType = "attack"
	ActionDefend      ActionType = "defend"
	ActionUseItem     ActionType = "use_item"
	ActionAcknowledge ActionType = "acknowledge"
	ActionContinue    ActionType = "continue"
	ActionEndTurn     ActionType = "end_turn"
	ActionEquipItem   ActionType = "equip_item"
	ActionUnequipItem ActionType = "unequip_item"
	ActionPlaceTrap   ActionType = "place_trap"
)

// Action is a player intent. PlayerID may be uuid.Nil, in which case the
// action is attributed to the current player.
type Action struct {
	Type     ActionType  `json:"type"`
	PlayerID uuid.UUID   `json:"player_id"`
	Position *int        `json:"position,omitempty"`
	ItemID   uuid.UUID   `json:"item_id"`
	Slot     domain.Slot `json:"slot,omitempty"`
}

func (t ActionType) Valid() bool {
	switch t {
	case ActionRollDice, ActionSelectTile, ActionAttack, ActionDefend, ActionUseItem,
		ActionAcknowledge, ActionContinue, ActionEndTurn, ActionEquipItem,
		ActionUnequipItem, ActionPlaceTrap:
		return true
	}
	return false
}
