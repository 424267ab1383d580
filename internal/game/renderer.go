package game

import "github.com/lox/memorymatch/internal/card"

// Tile is the handle for one rendered tile. Deal identifies the board it was
// dealt on; handles from an earlier deal are stale after a restart.
type Tile struct {
	Deal  uint64
	Index int
	Card  card.Definition
}

// Name returns the name of the card bound to the tile
func (t Tile) Name() string {
	return t.Card.Name
}

// Renderer materialises tiles. It is the only way the session touches the
// presentation layer.
type Renderer interface {
	// Render creates one interactive, face-down tile per entry, in order.
	// Activating a tile must call activate with that tile.
	Render(tiles []Tile, activate func(Tile))
	SetRevealed(t Tile, revealed bool)
	SetInteractive(t Tile, interactive bool)
	// Clear removes every rendered tile
	Clear()
}

// ScoreSink receives the current score whenever it changes
type ScoreSink interface {
	PublishScore(score int)
}

// ScoreSinkFunc adapts a plain function to ScoreSink
type ScoreSinkFunc func(score int)

func (f ScoreSinkFunc) PublishScore(score int) {
	f(score)
}

// nopRenderer discards everything; used when no renderer is configured
type nopRenderer struct{}

func (nopRenderer) Render([]Tile, func(Tile))  {}
func (nopRenderer) SetRevealed(Tile, bool)    {}
func (nopRenderer) SetInteractive(Tile, bool) {}
func (nopRenderer) Clear()                    {}
