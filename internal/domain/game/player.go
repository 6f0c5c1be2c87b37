package game

import "github.com/google/uuid"

const (
	StartingGold = 50
	BaseAttack   = 10
	BaseDefense  = 10
	BaseHealth   = 100
	BaseSpeed    = 10
)

type Stats struct {
	Attack  int `json:"attack"`
	Defense int `json:"defense"`
	Health  int `json:"health"`
	Speed   int `json:"speed"`
}

type PlayerStats struct {
	BattlesWon      int `json:"battles_won"`
	TilesMovedTotal int `json:"tiles_moved_total"`
	GoldCollected   int `json:"gold_collected"`
}

type Player struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	IsAI      bool          `json:"is_ai"`
	Position  int           `json:"position"`
	Health    int           `json:"health"`
	MaxHealth int           `json:"max_health"`
	Gold      int           `json:"gold"`
	BaseStats Stats         `json:"base_stats"`
	Equipped  map[Slot]Item `json:"equipped"`
	Inventory []Item        `json:"inventory"`
	Stats     PlayerStats   `json:"stats"`
}

func DefaultBaseStats() Stats {
	return Stats{Attack: BaseAttack, Defense: BaseDefense, Health: BaseHealth, Speed: BaseSpeed}
}

func NewPlayer(id uuid.UUID, name string, isAI bool) Player {
	p := Player{
		ID:        id,
		Name:      name,
		IsAI:      isAI,
		Gold:      StartingGold,
		BaseStats: DefaultBaseStats(),
		Equipped:  make(map[Slot]Item),
		Inventory: make([]Item, 0),
	}
	p.MaxHealth = p.EffectiveStats().Health
	p.Health = p.MaxHealth
	return p
}

// EquipmentBonus is the stat contribution of a single equipped item.
func EquipmentBonus(item Item) Stats {
	switch item.Category {
	case CategoryWeapon:
		return Stats{Attack: item.Stats, Health: item.Stats / 5}
	case CategoryArmor:
		return Stats{Defense: item.Stats, Health: item.Stats / 5}
	}
	return Stats{}
}

// EffectiveStats is BaseStats plus every equipped bonus. It is derived on
// every call and never stored.
func (p Player) EffectiveStats() Stats {
	s := p.BaseStats
	for _, item := range p.Equipped {
		b := EquipmentBonus(item)
		s.Attack += b.Attack
		s.Defense += b.Defense
		s.Health += b.Health
		s.Speed += b.Speed
	}
	return s
}

// RecalculateHealth refreshes MaxHealth from the effective stats and clamps
// Health into range. Call it after any equipment change.
func (p *Player) RecalculateHealth() {
	p.MaxHealth = p.EffectiveStats().Health
	if p.Health > p.MaxHealth {
		p.Health = p.MaxHealth
	}
	if p.Health < 0 {
		p.Health = 0
	}
}

func (p Player) FindItem(id uuid.UUID) (int, bool) {
	for i, item := range p.Inventory {
		if item.ID == id {
			return i, true
		}
	}
	return -1, false
}

// TakeItem removes and returns the inventory item at idx.
func (p *Player) TakeItem(idx int) Item {
	item := p.Inventory[idx]
	p.Inventory = append(p.Inventory[:idx:idx], p.Inventory[idx+1:]...)
	return item
}

// Reset returns the player to the start of the path with starting resources.
// Progress counters survive.
func (p *Player) Reset() {
	p.Position = 0
	p.Gold = StartingGold
	p.Equipped = make(map[Slot]Item)
	p.Inventory = make([]Item, 0)
	p.MaxHealth = p.EffectiveStats().Health
	p.Health = p.MaxHealth
}

func (p Player) Clone() Player {
	out := p
	out.Equipped = make(map[Slot]Item, len(p.Equipped))
	for k, v := range p.Equipped {
		out.Equipped[k] = v
	}
	out.Inventory = append(make([]Item, 0, len(p.Inventory)), p.Inventory...)
	return out
}
