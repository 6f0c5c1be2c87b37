package ui

import (
	"context"
	"reflect"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	gameapp "boardquest/internal/app/game"
	domain "boardquest/internal/domain/game"
)

// Game is the slice of a session the terminal client drives.
type Game interface {
	Snapshot() domain.GameState
	Dispatch(a gameapp.Action) domain.GameState
	Restart() domain.GameState
	Subscribe(fn func(domain.GameState)) func()
}

// Terminal is a canvas that also produces input events.
type Terminal interface {
	Canvas
	PollEvent() tcell.Event
	Wake()
	Sync()
}

// App is a hot-seat client: whoever sits at the keyboard plays every human
// seat, AI seats play themselves.
type App struct {
	logger   zerolog.Logger
	term     Terminal
	renderer *Renderer
	game     Game

	view      View
	lastPhase domain.Phase
	running   bool
}

func NewApp(logger zerolog.Logger, term Terminal, game Game) *App {
	return &App{
		logger:   logger,
		term:     term,
		renderer: NewRenderer(term),
		game:     game,
		running:  true,
	}
}

// Run draws and handles input until the player quits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	unsubscribe := a.game.Subscribe(func(domain.GameState) {
		a.term.Wake()
	})
	defer unsubscribe()

	stop := context.AfterFunc(ctx, a.term.Wake)
	defer stop()

	for a.running {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.draw()

		switch ev := a.term.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventKey:
			a.press(ev.Key(), ev.Rune())
		case *tcell.EventResize:
			a.term.Sync()
		}
	}
	return nil
}

func (a *App) draw() {
	gs := a.game.Snapshot()
	a.sync(gs)
	a.renderer.Render(gs, a.view)
}

// sync keeps the local selection inside the current snapshot.
func (a *App) sync(gs domain.GameState) {
	if gs.Phase == domain.PhaseSelectingTile && a.lastPhase != domain.PhaseSelectingTile {
		// Default to the furthest tile forward.
		a.view.Cursor = len(gs.LegalPositions) - 1
	}
	if a.view.Cursor >= len(gs.LegalPositions) {
		a.view.Cursor = len(gs.LegalPositions) - 1
	}
	if a.view.Cursor < 0 {
		a.view.Cursor = 0
	}

	n := 0
	if cur := gs.Current(); cur != nil {
		n = len(cur.Inventory)
	}
	if a.view.Selected >= n {
		a.view.Selected = n - 1
	}
	if a.view.Selected < 0 {
		a.view.Selected = 0
	}
	a.lastPhase = gs.Phase
}

func (a *App) press(k tcell.Key, ch rune) {
	if k == tcell.KeyEscape || k == tcell.KeyCtrlC || (k == tcell.KeyRune && ch == 'q') {
		a.running = false
		return
	}

	gs := a.game.Snapshot()
	a.sync(gs)
	a.view.Message = ""

	if gs.Phase == domain.PhaseGameOver {
		if k == tcell.KeyRune && ch == 'R' {
			a.game.Restart()
		}
		return
	}
	cur := gs.Current()
	if cur == nil || cur.IsAI {
		return
	}

	switch k {
	case tcell.KeyLeft:
		a.view.Cursor--
		return
	case tcell.KeyRight, tcell.KeyTab:
		a.view.Cursor++
		return
	case tcell.KeyUp:
		a.view.Selected--
		return
	case tcell.KeyDown:
		a.view.Selected++
		return
	case tcell.KeyEnter:
		if a.view.Cursor < len(gs.LegalPositions) {
			pos := gs.LegalPositions[a.view.Cursor]
			a.dispatch(gameapp.Action{Type: gameapp.ActionSelectTile, Position: &pos})
		}
		return
	case tcell.KeyRune:
	default:
		return
	}

	switch ch {
	case 'r':
		a.dispatch(gameapp.Action{Type: gameapp.ActionRollDice})
	case 'a':
		a.dispatch(gameapp.Action{Type: gameapp.ActionAttack})
	case 'd':
		a.dispatch(gameapp.Action{Type: gameapp.ActionDefend})
	case ' ':
		a.dispatch(gameapp.Action{Type: gameapp.ActionAcknowledge})
	case 'c':
		a.dispatch(gameapp.Action{Type: gameapp.ActionContinue})
	case 'n':
		a.dispatch(gameapp.Action{Type: gameapp.ActionEndTurn})
	case '1':
		a.dispatch(gameapp.Action{Type: gameapp.ActionUnequipItem, Slot: domain.SlotWeapon})
	case '2':
		a.dispatch(gameapp.Action{Type: gameapp.ActionUnequipItem, Slot: domain.SlotArmor})
	case 'u', 'e', 't':
		id := a.selectedItem(cur)
		if id == uuid.Nil {
			a.view.Message = "No item selected."
			return
		}
		typ := map[rune]gameapp.ActionType{
			'u': gameapp.ActionUseItem,
			'e': gameapp.ActionEquipItem,
			't': gameapp.ActionPlaceTrap,
		}[ch]
		a.dispatch(gameapp.Action{Type: typ, ItemID: id})
	}
}

func (a *App) selectedItem(p *domain.Player) uuid.UUID {
	if a.view.Selected < 0 || a.view.Selected >= len(p.Inventory) {
		return uuid.Nil
	}
	return p.Inventory[a.view.Selected].ID
}

// dispatch sends an action for the current player and reports refusals in
// the status line.
func (a *App) dispatch(act gameapp.Action) {
	before := a.game.Snapshot()
	after := a.game.Dispatch(act)
	if reflect.DeepEqual(before, after) {
		a.view.Message = "Not now."
		a.logger.Debug().Str("action", string(act.Type)).Str("phase", string(before.Phase)).Msg("action refused")
	}
}
