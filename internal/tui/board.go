package tui

import (
	"sync"

	"github.com/lox/memorymatch/internal/game"
)

// Board is the terminal implementation of game.Renderer and game.ScoreSink.
// The session writes to it from the UI goroutine and from its timer; the
// model reads snapshots of it when rendering.
type Board struct {
	mu       sync.Mutex
	tiles    []tileView
	activate func(game.Tile)
	score    int
	changed  chan struct{}
}

type tileView struct {
	tile        game.Tile
	revealed    bool
	interactive bool
}

// NewBoard returns an empty board
func NewBoard() *Board {
	return &Board{changed: make(chan struct{}, 1)}
}

// Render implements game.Renderer
func (b *Board) Render(tiles []game.Tile, activate func(game.Tile)) {
	b.mu.Lock()
	b.tiles = make([]tileView, len(tiles))
	for i, t := range tiles {
		b.tiles[i] = tileView{tile: t, interactive: true}
	}
	b.activate = activate
	b.mu.Unlock()
	b.notify()
}

// SetRevealed implements game.Renderer
func (b *Board) SetRevealed(t game.Tile, revealed bool) {
	b.update(t, func(v *tileView) { v.revealed = revealed })
}

// SetInteractive implements game.Renderer
func (b *Board) SetInteractive(t game.Tile, interactive bool) {
	b.update(t, func(v *tileView) { v.interactive = interactive })
}

// Clear implements game.Renderer
func (b *Board) Clear() {
	b.mu.Lock()
	b.tiles = nil
	b.activate = nil
	b.mu.Unlock()
	b.notify()
}

// PublishScore implements game.ScoreSink
func (b *Board) PublishScore(score int) {
	b.mu.Lock()
	b.score = score
	b.mu.Unlock()
	b.notify()
}

func (b *Board) update(t game.Tile, fn func(*tileView)) {
	b.mu.Lock()
	if t.Index >= 0 && t.Index < len(b.tiles) && b.tiles[t.Index].tile.Deal == t.Deal {
		fn(&b.tiles[t.Index])
	}
	b.mu.Unlock()
	b.notify()
}

// Activate forwards a selection of the tile at index to the session.
// Matched tiles do not respond.
func (b *Board) Activate(index int) {
	b.mu.Lock()
	if index < 0 || index >= len(b.tiles) || b.activate == nil || !b.tiles[index].interactive {
		b.mu.Unlock()
		return
	}
	t, activate := b.tiles[index].tile, b.activate
	b.mu.Unlock()

	activate(t)
}

// Changes signals, coalesced, that the board needs redrawing
func (b *Board) Changes() <-chan struct{} {
	return b.changed
}

func (b *Board) notify() {
	select {
	case b.changed <- struct{}{}:
	default:
	}
}

// boardState is an immutable copy used for drawing
type boardState struct {
	tiles []tileView
	score int
}

func (s boardState) complete() bool {
	if len(s.tiles) == 0 {
		return false
	}
	for _, t := range s.tiles {
		if t.interactive {
			return false
		}
	}
	return true
}

func (s boardState) matchedPairs() int {
	n := 0
	for _, t := range s.tiles {
		if !t.interactive {
			n++
		}
	}
	return n / 2
}

func (b *Board) state() boardState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return boardState{
		tiles: append([]tileView(nil), b.tiles...),
		score: b.score,
	}
}
