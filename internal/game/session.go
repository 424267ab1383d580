package game

import (
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/memorymatch/internal/card"
	"github.com/lox/memorymatch/internal/deck"
	"github.com/lox/memorymatch/internal/randutil"
	"github.com/lox/memorymatch/internal/sessionid"
)

const noSelection = -1

type tileFlags struct {
	revealed    bool
	interactive bool
}

// Session owns one game: the dealt board, the selection slots, the board
// lock, the score and the pending mismatch resolution.
type Session struct {
	mu sync.Mutex

	id         string
	defs       []card.Definition
	cfg        *sessionConfig
	renderer   Renderer
	scores     ScoreSink
	clock      quartz.Clock
	delay      time.Duration
	logger     *log.Logger
	onComplete func(score int)

	deal    uint64
	deck    deck.Deck
	tiles   []Tile
	flags   []tileFlags
	first   int
	second  int
	state   State
	locked  bool
	score   int
	matched int

	// round identifies the pair the pending timer was scheduled for
	round   uint64
	pending *quartz.Timer
	closed  bool
}

// NewSession validates defs, deals the first board and renders it.
// Invalid definitions return a *card.ValidationError.
func NewSession(defs []card.Definition, opts ...SessionOption) (*Session, error) {
	if err := card.Validate(defs); err != nil {
		return nil, err
	}

	cfg := &sessionConfig{
		delay: DefaultMismatchDelay,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.id == "" {
		cfg.id = sessionid.New()
	}
	if cfg.rng == nil {
		cfg.rng = randutil.New(randutil.Seed(nil))
	}
	if cfg.clock == nil {
		cfg.clock = quartz.NewReal()
	}
	if cfg.renderer == nil {
		cfg.renderer = nopRenderer{}
	}
	if cfg.scores == nil {
		cfg.scores = ScoreSinkFunc(func(int) {})
	}
	if cfg.logger == nil {
		cfg.logger = log.New(io.Discard)
	}

	s := &Session{
		id:         cfg.id,
		defs:       slices.Clone(defs),
		cfg:        cfg,
		renderer:   cfg.renderer,
		scores:     cfg.scores,
		clock:      cfg.clock,
		delay:      cfg.delay,
		logger:     cfg.logger.WithPrefix("session").With("session", cfg.id),
		onComplete: cfg.onComplete,
		first:      noSelection,
		second:     noSelection,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.dealLocked(); err != nil {
		return nil, err
	}
	s.logger.Info("Session started", "pairs", s.deck.Pairs(), "delay", s.delay)
	return s, nil
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Activate handles a tile activation. Activations while the board is locked,
// of the current first selection, of matched tiles or of tiles from an
// earlier deal are ignored.
func (s *Session) Activate(t Tile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reason := s.rejectLocked(t); reason != "" {
		s.logger.Debug("Ignoring activation", "tile", t.Index, "deal", t.Deal, "reason", reason)
		return
	}

	i := t.Index
	tile := s.tiles[i]
	s.flags[i].revealed = true
	s.renderer.SetRevealed(tile, true)

	if s.first == noSelection {
		s.first = i
		s.state = AwaitingSecond
		s.logger.Debug("First tile selected", "tile", i, "card", tile.Name())
		return
	}

	s.second = i
	s.score++
	s.scores.PublishScore(s.score)
	s.locked = true
	s.state = Resolving
	s.logger.Debug("Second tile selected", "tile", i, "card", tile.Name(), "score", s.score)

	s.evaluateLocked()
}

// rejectLocked returns why an activation must be ignored, or "" to accept it
func (s *Session) rejectLocked(t Tile) string {
	switch {
	case s.closed:
		return "session closed"
	case s.locked:
		return "board locked"
	case t.Deal != s.deal:
		return "stale tile"
	case t.Index < 0 || t.Index >= len(s.tiles):
		return "unknown tile"
	case t.Index == s.first:
		return "already selected"
	case !s.flags[t.Index].interactive:
		return "already matched"
	}
	return ""
}

func (s *Session) evaluateLocked() {
	a, b := s.tiles[s.first], s.tiles[s.second]

	if a.Name() == b.Name() {
		s.flags[a.Index].interactive = false
		s.flags[b.Index].interactive = false
		s.renderer.SetInteractive(a, false)
		s.renderer.SetInteractive(b, false)
		s.matched++
		s.logger.Debug("Pair matched", "card", a.Name(), "matched", s.matched, "pairs", s.deck.Pairs())

		s.resetBoardLocked()

		if s.matched == s.deck.Pairs() {
			s.logger.Info("All pairs matched", "score", s.score, "deal", s.deal)
			if s.onComplete != nil {
				s.onComplete(s.score)
			}
		}
		return
	}

	s.round++
	round := s.round
	s.pending = s.clock.AfterFunc(s.delay, func() {
		s.resolveMismatch(round)
	})
	s.logger.Debug("Pair mismatched", "first", a.Name(), "second", b.Name(), "delay", s.delay)
}

// resolveMismatch hides a mismatched pair once the delay has elapsed. It is
// a no-op when the pair it was scheduled for is no longer pending.
func (s *Session) resolveMismatch(round uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.pending == nil || round != s.round {
		s.logger.Debug("Dropping stale mismatch resolution", "round", round)
		return
	}
	s.pending = nil

	for _, i := range []int{s.first, s.second} {
		s.flags[i].revealed = false
		s.renderer.SetRevealed(s.tiles[i], false)
	}
	s.resetBoardLocked()
}

// resetBoardLocked clears both selections and releases the board lock
func (s *Session) resetBoardLocked() {
	s.first = noSelection
	s.second = noSelection
	s.locked = false
	s.state = Idle
}

// cancelPendingLocked stops any scheduled mismatch resolution
func (s *Session) cancelPendingLocked() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.round++
}

// Restart abandons the current board, reshuffles the same definitions,
// zeroes the score and renders the new deal. Safe in any state.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.logger.Debug("Ignoring restart of closed session")
		return
	}
	if err := s.dealLocked(); err != nil {
		// defs were validated by NewSession
		s.logger.Error("Failed to deal new board", "error", err)
		return
	}
	s.logger.Info("Session restarted", "deal", s.deal)
}

func (s *Session) dealLocked() error {
	s.cancelPendingLocked()
	s.resetBoardLocked()

	d, err := deck.Build(s.defs, s.cfg.rng)
	if err != nil {
		return err
	}

	s.deal++
	s.deck = d
	s.tiles = make([]Tile, len(d))
	s.flags = make([]tileFlags, len(d))
	for i, def := range d {
		s.tiles[i] = Tile{Deal: s.deal, Index: i, Card: def}
		s.flags[i] = tileFlags{interactive: true}
	}

	s.score = 0
	s.matched = 0
	s.scores.PublishScore(s.score)

	s.renderer.Clear()
	s.renderer.Render(slices.Clone(s.tiles), s.Activate)
	return nil
}

// Close cancels any pending resolution. A closed session ignores input.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.cancelPendingLocked()
	s.closed = true
	s.logger.Debug("Session closed")
}

// Tiles returns the handles of the current deal
func (s *Session) Tiles() []Tile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tiles)
}

// Score returns the number of completed pair attempts on this deal
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// State returns the current phase
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Complete reports whether every pair of the current deal is matched
func (s *Session) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matched == s.deck.Pairs()
}

// Snapshot returns a copy of the session state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:           s.id,
		Deal:         s.deal,
		State:        s.state,
		Score:        s.score,
		Locked:       s.locked,
		First:        s.first,
		Second:       s.second,
		MatchedPairs: s.matched,
		Pairs:        s.deck.Pairs(),
		Tiles:        make([]TileView, len(s.tiles)),
	}
	for i, t := range s.tiles {
		snap.Tiles[i] = TileView{
			Index:       i,
			Name:        t.Name(),
			Revealed:    s.flags[i].revealed,
			Interactive: s.flags[i].interactive,
		}
	}
	return snap
}
