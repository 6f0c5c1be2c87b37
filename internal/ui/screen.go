// Package ui renders a game session in the terminal using tcell.
package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Canvas is the drawing surface the renderer needs.
type Canvas interface {
	SetContent(x, y int, r rune, style tcell.Style)
	Size() (width, height int)
	Clear()
	Show()
}

// Screen is a tcell screen limited to single-rune cells. Size, Clear, Show,
// Sync and PollEvent come straight from tcell.
type Screen struct {
	tcell.Screen
}

func NewScreen() (*Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("open terminal: %w", err)
	}
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("init terminal: %w", err)
	}
	s.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	s.HideCursor()
	return &Screen{Screen: s}, nil
}

// Close restores the terminal.
func (s *Screen) Close() {
	s.Fini()
}

func (s *Screen) SetContent(x, y int, r rune, style tcell.Style) {
	s.Screen.SetContent(x, y, r, nil, style)
}

// Wake unblocks PollEvent when the session changes without a key press.
func (s *Screen) Wake() {
	_ = s.PostEvent(tcell.NewEventInterrupt(nil))
}
