package game

import (
	rand "math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// DefaultMismatchDelay is how long a mismatched pair stays face up
const DefaultMismatchDelay = 1000 * time.Millisecond

// SessionOption configures a Session during creation.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	id         string
	rng        *rand.Rand
	clock      quartz.Clock
	delay      time.Duration
	renderer   Renderer
	scores     ScoreSink
	logger     *log.Logger
	onComplete func(score int)
}

// WithID sets the identifier used in logs. Default: a generated session ID.
func WithID(id string) SessionOption {
	return func(c *sessionConfig) {
		c.id = id
	}
}

// WithRand sets the random source used to shuffle every deal
func WithRand(rng *rand.Rand) SessionOption {
	return func(c *sessionConfig) {
		c.rng = rng
	}
}

// WithClock sets the clock the mismatch delay is scheduled on. Default: real clock.
func WithClock(clock quartz.Clock) SessionOption {
	return func(c *sessionConfig) {
		c.clock = clock
	}
}

// WithMismatchDelay overrides DefaultMismatchDelay. Non-positive values are ignored.
func WithMismatchDelay(d time.Duration) SessionOption {
	return func(c *sessionConfig) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithRenderer binds the session to a renderer
func WithRenderer(r Renderer) SessionOption {
	return func(c *sessionConfig) {
		c.renderer = r
	}
}

// WithScoreSink sets where score updates are published
func WithScoreSink(sink ScoreSink) SessionOption {
	return func(c *sessionConfig) {
		c.scores = sink
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *log.Logger) SessionOption {
	return func(c *sessionConfig) {
		c.logger = logger
	}
}

// WithOnComplete registers a callback run when the last pair of a deal is
// matched. It runs while the session is locked and must not call back into it.
func WithOnComplete(fn func(score int)) SessionOption {
	return func(c *sessionConfig) {
		c.onComplete = fn
	}
}
