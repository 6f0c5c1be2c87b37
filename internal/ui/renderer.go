package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	domain "boardquest/internal/domain/game"
)

const (
	boardX = 1
	boardY = 1
	// cellWidth columns per tile keep the grid roughly square.
	cellWidth = 2
	panelGap  = 3
)

var (
	styleDefault = tcell.StyleDefault
	styleDim     = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	styleTitle   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleCursor  = tcell.StyleDefault.Background(tcell.ColorYellow).Foreground(tcell.ColorBlack)
	styleHealth  = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleGold    = tcell.StyleDefault.Foreground(tcell.ColorGold)
	styleHelp    = tcell.StyleDefault.Foreground(tcell.ColorTeal)

	legalBackground = tcell.ColorDarkGreen
	playerColors    = []tcell.Color{tcell.ColorAqua, tcell.ColorFuchsia, tcell.ColorLime, tcell.ColorOrange}
)

// View is client-side selection state layered over a snapshot.
type View struct {
	Cursor   int // index into LegalPositions
	Selected int // index into the current player's inventory
	Message  string
}

// Renderer handles drawing a game snapshot to a canvas.
type Renderer struct {
	canvas Canvas
}

func NewRenderer(canvas Canvas) *Renderer {
	return &Renderer{canvas: canvas}
}

// Render draws the board, the side panel, the log and the key help.
func (r *Renderer) Render(gs domain.GameState, v View) {
	r.canvas.Clear()
	r.drawBoard(gs, v)

	x := boardX + gs.Board.Width*cellWidth + panelGap
	y := r.drawPlayers(gs, x, boardY)
	y = r.drawEncounter(gs, x, y+1)
	r.drawInventory(gs, v, x, y+1)

	logY := boardY + gs.Board.Height + 1
	_, h := r.canvas.Size()
	r.drawLog(gs.Log, boardX, logY, h-logY-2)
	if v.Message != "" {
		r.text(boardX, h-2, v.Message, styleGold)
	}
	r.text(boardX, h-1, helpLine(gs), styleHelp)

	r.canvas.Show()
}

func (r *Renderer) drawBoard(gs domain.GameState, v View) {
	occupant := make(map[int]int, len(gs.Players))
	for i := len(gs.Players) - 1; i >= 0; i-- {
		if pos := gs.Players[i].Position; pos >= 0 && pos < len(gs.Board.Path) {
			occupant[gs.Board.Path[pos]] = i
		}
	}
	legal := make(map[int]bool, len(gs.LegalPositions))
	cursorTile := -1
	for i, pos := range gs.LegalPositions {
		if pos < 0 || pos >= len(gs.Board.Path) {
			continue
		}
		legal[gs.Board.Path[pos]] = true
		if i == v.Cursor {
			cursorTile = gs.Board.Path[pos]
		}
	}

	for i, t := range gs.Board.Tiles {
		ch, style := tileGlyph(t)
		if p, ok := occupant[i]; ok {
			ch = rune('1' + p)
			style = tcell.StyleDefault.Foreground(playerColors[p%len(playerColors)]).Bold(true)
		}
		switch {
		case i == cursorTile:
			style = styleCursor
		case legal[i]:
			style = style.Background(legalBackground)
		}
		r.put(boardX+t.X*cellWidth, boardY+t.Y, ch, style)
	}
}

func tileGlyph(t domain.Tile) (rune, tcell.Style) {
	if !t.IsPath {
		return ' ', styleDefault
	}
	switch t.Kind {
	case domain.TileStart:
		return 'S', styleTitle
	case domain.TileCastle:
		return 'C', tcell.StyleDefault.Foreground(tcell.ColorGold).Bold(true)
	case domain.TileBattle:
		return 'x', styleHealth
	case domain.TileBonus:
		return '$', styleGold
	case domain.TileTrap:
		return '^', tcell.StyleDefault.Foreground(tcell.ColorPurple)
	}
	if t.PathIndex < 0 {
		return ',', styleDim
	}
	return '.', tcell.StyleDefault.Foreground(tcell.ColorGray)
}

func (r *Renderer) drawPlayers(gs domain.GameState, x, y int) int {
	r.text(x, y, fmt.Sprintf("Turn %d  %s", gs.Turn, phaseLabel(gs.Phase)), styleTitle)
	y++
	for i, p := range gs.Players {
		marker := " "
		if p.ID == gs.CurrentPlayerID {
			marker = ">"
		}
		name := p.Name
		if p.IsAI {
			name += " (AI)"
		}
		style := tcell.StyleDefault.Foreground(playerColors[i%len(playerColors)])
		r.text(x, y, fmt.Sprintf("%s%d %-14s", marker, i+1, name), style)
		r.text(x+19, y, fmt.Sprintf("HP %3d/%-3d", p.Health, p.MaxHealth), styleHealth)
		r.text(x+31, y, fmt.Sprintf("G %4d", p.Gold), styleGold)
		r.text(x+38, y, fmt.Sprintf("@%d/%d", p.Position, len(gs.Board.Path)-1), styleDefault)
		y++
		eff := p.EffectiveStats()
		r.text(x+3, y, fmt.Sprintf("atk %d def %d spd %d  %s", eff.Attack, eff.Defense, eff.Speed, gearLine(p)), styleDim)
		y++
	}
	return y
}

func gearLine(p domain.Player) string {
	var parts []string
	for _, slot := range []domain.Slot{domain.SlotWeapon, domain.SlotArmor} {
		if it, ok := p.Equipped[slot]; ok {
			parts = append(parts, fmt.Sprintf("%s: %s", slot, it.Name))
		}
	}
	return strings.Join(parts, ", ")
}

func (r *Renderer) drawEncounter(gs domain.GameState, x, y int) int {
	b := gs.CurrentBattle
	if b == nil && gs.Phase != domain.PhaseRolling {
		b = gs.LastBattle
	}
	if b != nil {
		r.text(x, y, fmt.Sprintf("vs %s  HP %d/%d", b.Enemy.Name, b.EnemyHealth, b.EnemyMaxHealth), styleHealth)
		y++
		r.text(x, y, fmt.Sprintf("you HP %d/%d  round %d  %s", b.PlayerHealth, b.PlayerMaxHealth, b.CurrentRound, b.Phase), styleDefault)
		y++
		start := len(b.Rounds) - 3
		if start < 0 {
			start = 0
		}
		for _, rd := range b.Rounds[start:] {
			r.text(x, y, rd.Description, styleDim)
			y++
		}
	}
	if gs.ActiveTrap != nil {
		r.text(x, y, fmt.Sprintf("Trap (%s, power %d) set by %s", gs.ActiveTrap.Kind, gs.ActiveTrap.Power, gs.ActiveTrap.OwnerName), tcell.StyleDefault.Foreground(tcell.ColorPurple))
		y++
	}
	if gs.Reward != nil {
		r.text(x, y, "Reward: "+itemLabel(*gs.Reward), styleGold)
		y++
	}
	if gs.Winner != nil {
		line := gs.Winner.Name + " reached the castle!"
		if gs.Award != nil {
			line += fmt.Sprintf(" %d gold, %d orbs", gs.Award.Gold, gs.Award.Orbs)
			if gs.Award.Error != "" {
				line += " (not recorded)"
			}
		}
		r.text(x, y, line, styleTitle)
		y++
	}
	return y
}

func (r *Renderer) drawInventory(gs domain.GameState, v View, x, y int) {
	cur := gs.Current()
	if cur == nil {
		return
	}
	r.text(x, y, "Inventory of "+cur.Name, styleTitle)
	y++
	if len(cur.Inventory) == 0 {
		r.text(x, y, "(empty)", styleDim)
		return
	}
	for i, it := range cur.Inventory {
		style := styleDefault
		marker := "  "
		if i == v.Selected {
			style = styleCursor
			marker = "> "
		}
		r.text(x, y, marker+itemLabel(it), style)
		y++
	}
}

func itemLabel(it domain.Item) string {
	return fmt.Sprintf("%s [%s %s +%d]", it.Name, it.Rarity, it.Category, it.Stats)
}

func (r *Renderer) drawLog(lines []string, x, y, rows int) {
	if rows <= 0 {
		return
	}
	start := len(lines) - rows
	if start < 0 {
		start = 0
	}
	for i, line := range lines[start:] {
		r.text(x, y+i, line, styleDefault)
	}
}

func (r *Renderer) text(x, y int, s string, style tcell.Style) {
	for _, ch := range s {
		r.put(x, y, ch, style)
		x++
	}
}

// put drops cells outside the canvas.
func (r *Renderer) put(x, y int, ch rune, style tcell.Style) {
	w, h := r.canvas.Size()
	if x < 0 || y < 0 || x >= w || y >= h {
		return
	}
	r.canvas.SetContent(x, y, ch, style)
}

func phaseLabel(p domain.Phase) string {
	return strings.ReplaceAll(string(p), "_", " ")
}

func helpLine(gs domain.GameState) string {
	cur := gs.Current()
	if gs.Phase == domain.PhaseGameOver {
		return "[R] new game  [q] quit"
	}
	if cur != nil && cur.IsAI {
		return cur.Name + " is thinking...  [q] quit"
	}
	switch gs.Phase {
	case domain.PhaseRolling:
		return "[r] roll  [up/down] item  [e] equip  [1/2] unequip weapon/armor  [q] quit"
	case domain.PhaseSelectingTile:
		return "[left/right] choose tile  [enter] move  [q] quit"
	case domain.PhaseBattle:
		return "[a] attack  [d] defend  [u] use item  [up/down] item  [q] quit"
	case domain.PhaseReward, domain.PhaseTrap:
		return "[space] continue  [q] quit"
	case domain.PhaseFinishing:
		return "[c] keep going  [n] end turn  [e] equip  [t] place trap  [q] quit"
	}
	return "[q] quit"
}
