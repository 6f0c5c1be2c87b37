package board

import (
	"math/rand"

	domain "boardquest/internal/domain/game"
)

const (
	DefaultWidth  = 12
	DefaultHeight = 12

	MinPathLength = 35
	MaxPathLength = 45

	minBranchLength = 5
	maxBranchLength = 15

	walkAttempts = 10
)

var directions = [4]domain.Coordinate{{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}}

// Path is the ordered main walk from start to castle plus side branches that
// rejoin it. Branch cells are walkable but never part of the ordered walk.
type Path struct {
	Width    int
	Height   int
	Main     []domain.Coordinate
	Branches [][]domain.Coordinate
}

type walker struct {
	rng           *rand.Rand
	width, height int
	path          []domain.Coordinate
	index         map[domain.Coordinate]int
	dead          map[domain.Coordinate]bool
}

// GeneratePath grows a self-avoiding walk from the bottom-left corner. The
// result is never empty and is always connected. Walks that come out shorter
// than MinPathLength are regrown from the same rng a bounded number of times
// and the longest is kept. Grids too small for the minimum still return a
// short path.
func GeneratePath(rng *rand.Rand, width, height int) Path {
	var best *walker
	for i := 0; i < walkAttempts; i++ {
		w := walk(rng, width, height)
		if best == nil || len(w.path) > len(best.path) {
			best = w
		}
		if len(best.path) >= MinPathLength {
			break
		}
	}

	p := Path{Width: width, Height: height, Main: best.path}
	p.Branches = best.branches(1 + rng.Intn(2))
	return p
}

func walk(rng *rand.Rand, width, height int) *walker {
	w := &walker{
		rng:    rng,
		width:  width,
		height: height,
		index:  make(map[domain.Coordinate]int),
		dead:   make(map[domain.Coordinate]bool),
	}
	w.push(domain.Coordinate{X: 0, Y: height - 1})

	target := MinPathLength + rng.Intn(MaxPathLength-MinPathLength+1)
	for len(w.path) < target {
		if w.step() {
			continue
		}
		if len(w.path) == 1 {
			break
		}
		w.dead[w.pop()] = true
	}

	if w.tail().Y >= height/2 {
		w.climb()
	}
	return w
}

func (w *walker) tail() domain.Coordinate {
	return w.path[len(w.path)-1]
}

func (w *walker) push(c domain.Coordinate) {
	w.index[c] = len(w.path)
	w.path = append(w.path, c)
}

func (w *walker) pop() domain.Coordinate {
	c := w.tail()
	w.path = w.path[:len(w.path)-1]
	delete(w.index, c)
	return c
}

func (w *walker) inBounds(c domain.Coordinate) bool {
	return c.X >= 0 && c.X < w.width && c.Y >= 0 && c.Y < w.height
}

func (w *walker) shuffled() [4]domain.Coordinate {
	dirs := directions
	w.rng.Shuffle(len(dirs), func(i, j int) { dirs[i], dirs[j] = dirs[j], dirs[i] })
	return dirs
}

// step extends the walk by one cell. A candidate may only touch the path
// through the cell it is entered from, so the walk never runs alongside
// itself.
func (w *walker) step() bool {
	from := w.tail()
	for _, d := range w.shuffled() {
		next := domain.Coordinate{X: from.X + d.X, Y: from.Y + d.Y}
		if !w.inBounds(next) || w.dead[next] {
			continue
		}
		if _, on := w.index[next]; on {
			continue
		}
		if w.touchesPath(next, from) {
			continue
		}
		w.push(next)
		return true
	}
	return false
}

func (w *walker) touchesPath(c, except domain.Coordinate) bool {
	for _, d := range directions {
		n := domain.Coordinate{X: c.X + d.X, Y: c.Y + d.Y}
		if n == except {
			continue
		}
		if _, on := w.index[n]; on {
			return true
		}
	}
	return false
}

// climb drives the tail straight up to row 0. The tail is first trimmed so
// the climb cannot exceed MaxPathLength; running into the walk cuts it back
// to the crossed cell.
func (w *walker) climb() {
	for len(w.path) > 1 && len(w.path)+w.tail().Y > MaxPathLength {
		w.pop()
	}
	x := w.tail().X
	for y := w.tail().Y - 1; y >= 0; y-- {
		c := domain.Coordinate{X: x, Y: y}
		if idx, on := w.index[c]; on {
			for len(w.path) > idx+1 {
				w.pop()
			}
			continue
		}
		w.push(c)
	}
}

func (w *walker) branches(attempts int) [][]domain.Coordinate {
	if len(w.path) < 6 {
		return nil
	}
	taken := make(map[domain.Coordinate]bool, len(w.path))
	for c := range w.index {
		taken[c] = true
	}

	var out [][]domain.Coordinate
	for i := 0; i < attempts; i++ {
		origin := w.path[len(w.path)/4+w.rng.Intn(len(w.path)/2)]
		b := w.grow(origin, taken)
		if b == nil {
			continue
		}
		for _, c := range b {
			taken[c] = true
		}
		out = append(out, b)
	}
	return out
}

// grow walks away from origin and keeps the branch only if it comes back
// alongside a main walk cell other than origin. It is cut at the first such
// cell.
func (w *walker) grow(origin domain.Coordinate, taken map[domain.Coordinate]bool) []domain.Coordinate {
	length := minBranchLength + w.rng.Intn(maxBranchLength-minBranchLength+1)
	branch := make([]domain.Coordinate, 0, length)
	seen := make(map[domain.Coordinate]bool, length)

	cur := origin
	for len(branch) < length {
		moved := false
		for _, d := range w.shuffled() {
			next := domain.Coordinate{X: cur.X + d.X, Y: cur.Y + d.Y}
			if !w.inBounds(next) || taken[next] || seen[next] {
				continue
			}
			branch = append(branch, next)
			seen[next] = true
			cur = next
			moved = true
			break
		}
		if !moved {
			break
		}
	}

	for i := 1; i < len(branch); i++ {
		for _, d := range directions {
			n := domain.Coordinate{X: branch[i].X + d.X, Y: branch[i].Y + d.Y}
			if n == origin {
				continue
			}
			if _, on := w.index[n]; on {
				return branch[:i+1]
			}
		}
	}
	return nil
}
