package game

import "github.com/google/uuid"

type Category string

const (
	CategoryWeapon     Category = "weapon"
	CategoryArmor      Category = "armor"
	CategoryTrap       Category = "trap"
	CategoryConsumable Category = "consumable"
	CategoryPotion     Category = "potion"
	CategoryMythic     Category = "mythic"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityVeryRare  Rarity = "very_rare"
	RarityLegendary Rarity = "legendary"
)

// Rarities lists every tier from most to least common.
var Rarities = []Rarity{RarityCommon, RarityUncommon, RarityRare, RarityVeryRare, RarityLegendary}

// Multiplier is the fixed stat scale applied to items of this rarity.
func (r Rarity) Multiplier() int {
	switch r {
	case RarityUncommon:
		return 2
	case RarityRare:
		return 3
	case RarityVeryRare:
		return 4
	case RarityLegendary:
		return 5
	default:
		return 1
	}
}

type Slot string

const (
	SlotWeapon Slot = "weapon"
	SlotArmor  Slot = "armor"
)

func (s Slot) Valid() bool {
	return s == SlotWeapon || s == SlotArmor
}

type Item struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category Category  `json:"category"`
	Rarity   Rarity    `json:"rarity"`
	Stats    int       `json:"stats"`
	Effect   string    `json:"effect,omitempty"`
	Value    int       `json:"value"`
}

// Slot returns the equipment slot the item occupies, if it is equippable.
func (i Item) Slot() (Slot, bool) {
	switch i.Category {
	case CategoryWeapon:
		return SlotWeapon, true
	case CategoryArmor:
		return SlotArmor, true
	}
	return "", false
}

// Usable reports whether the item can be spent during a battle round.
func (i Item) Usable() bool {
	switch i.Category {
	case CategoryPotion, CategoryConsumable, CategoryMythic:
		return true
	}
	return false
}
