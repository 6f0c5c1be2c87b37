package game

import (
	"io"

	"github.com/google/uuid"
)

type TileKind string

const (
	TileStart  TileKind = "start"
	TileNormal TileKind = "normal"
	TileBattle TileKind = "battle"
	TileBonus  TileKind = "bonus"
	TileTrap   TileKind = "trap"
	TileCastle TileKind = "castle"
)

type TrapKind string

const (
	TrapCreature TrapKind = "creature"
	TrapDamage   TrapKind = "damage"
	TrapItemLoss TrapKind = "item_loss"
)

// Valid reports whether k is one of the known trap kinds.
func (k TrapKind) Valid() bool {
	switch k {
	case TrapCreature, TrapDamage, TrapItemLoss:
		return true
	}
	return false
}

type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Adjacent reports whether c and o are one axis step apart.
func (c Coordinate) Adjacent(o Coordinate) bool {
	return abs(c.X-o.X)+abs(c.Y-o.Y) == 1
}

type Enemy struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Health     int       `json:"health"`
	Power      int       `json:"power"`
	Reward     Item      `json:"reward"`
	GoldReward int       `json:"gold_reward"`
}

type Trap struct {
	ID        uuid.UUID `json:"id"`
	Kind      TrapKind  `json:"kind"`
	Power     int       `json:"power"`
	OwnerID   uuid.UUID `json:"owner_id"`
	OwnerName string    `json:"owner_name"`
}

// Tile is one grid cell. PathIndex is the position on the ordered main walk,
// or -1 for cells that are not on it (including branch cells).
type Tile struct {
	ID        uuid.UUID `json:"id"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Kind      TileKind  `json:"kind"`
	IsPath    bool      `json:"is_path"`
	PathIndex int       `json:"path_index"`
	Enemy     *Enemy    `json:"enemy,omitempty"`
	Trap      *Trap     `json:"trap,omitempty"`
}

// Board is the full tile grid in row-major order plus the ordered main walk
// expressed as indices into Tiles.
type Board struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Tiles  []Tile `json:"tiles"`
	Path   []int  `json:"path"`
}

func (b Board) Index(x, y int) int {
	return y*b.Width + x
}

// PathTile returns the tile at the given main-walk position.
func (b Board) PathTile(position int) (Tile, bool) {
	if position < 0 || position >= len(b.Path) {
		return Tile{}, false
	}
	return b.Tiles[b.Path[position]], true
}

func (b Board) Clone() Board {
	out := Board{Width: b.Width, Height: b.Height}
	out.Tiles = make([]Tile, len(b.Tiles))
	for i, t := range b.Tiles {
		if t.Enemy != nil {
			e := *t.Enemy
			t.Enemy = &e
		}
		if t.Trap != nil {
			tr := *t.Trap
			t.Trap = &tr
		}
		out.Tiles[i] = t
	}
	out.Path = append([]int(nil), b.Path...)
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// NewID draws a v4 uuid from r so that ids follow the session seed.
func NewID(r io.Reader) uuid.UUID {
	id, err := uuid.NewRandomFromReader(r)
	if err != nil {
		return uuid.New()
	}
	return id
}
