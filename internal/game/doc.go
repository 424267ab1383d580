// Package game implements the memory-matching game loop.
//
// The main type is Session, which owns one dealt board: the deck, the tile
// flags, the two selection slots, the board lock, the score and the pending
// mismatch timer.
//
// # Basic Usage
//
// Create a session bound to a renderer and feed it activations:
//
//	s, err := game.NewSession(defs,
//	    game.WithRenderer(board),
//	    game.WithScoreSink(board))
//	if err != nil {
//	    return err // *card.ValidationError
//	}
//	defer s.Close()
//
// The renderer receives every tile through Render together with an activate
// callback. Calling it with a tile flips that tile; the second flip of a round
// scores an attempt and either keeps the pair (match) or hides both tiles
// again once the mismatch delay has elapsed.
//
//	s.Restart() // new shuffle, score back to zero, board re-rendered
//
// # Deterministic Testing
//
// Inject the RNG and a quartz mock clock:
//
//	clock := quartz.NewMock(t)
//	s, _ := game.NewSession(defs,
//	    game.WithRand(randutil.New(42)),
//	    game.WithClock(clock))
//	...
//	clock.Advance(game.DefaultMismatchDelay).MustWait(ctx)
//
// # Concurrency
//
// Activations, restarts and the mismatch timer are serialised by the session.
// Renderers must not invoke the activate callback synchronously from inside
// one of their own Renderer methods.
package game
