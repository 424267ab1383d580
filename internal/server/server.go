package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	rand "math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/lox/memorymatch/internal/card"
	"github.com/lox/memorymatch/internal/game"
	"github.com/lox/memorymatch/internal/randutil"
	"github.com/lox/memorymatch/internal/sessionid"
)

//go:embed web/index.html
var indexHTML []byte

// Server hosts one game session per websocket connection
type Server struct {
	defs      []card.Definition
	loadErr   error
	clock     quartz.Clock
	delay     time.Duration
	assetsDir string
	logger    *log.Logger

	upgrader websocket.Upgrader
	router   chi.Router

	rngMu sync.Mutex
	rng   *rand.Rand

	mu          sync.RWMutex
	connections map[*Connection]*game.Session

	gamesStarted   atomic.Int64
	gamesCompleted atomic.Int64
	startTime      time.Time
}

// Option configures a Server
type Option func(*Server)

// WithLoadError makes the server report err to every client instead of
// dealing a board
func WithLoadError(err error) Option {
	return func(s *Server) { s.loadErr = err }
}

// WithClock sets the clock driving mismatch delays
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

// WithSeed makes the sequence of shuffles reproducible across sessions
func WithSeed(seed int64) Option {
	return func(s *Server) { s.rng = randutil.New(seed) }
}

// WithMismatchDelay overrides game.DefaultMismatchDelay
func WithMismatchDelay(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

// WithAssetsDir serves card images from dir under /assets/
func WithAssetsDir(dir string) Option {
	return func(s *Server) { s.assetsDir = dir }
}

// New creates a server dealing boards from defs
func New(defs []card.Definition, logger *log.Logger, opts ...Option) *Server {
	s := &Server{
		defs:   defs,
		clock:  quartz.NewReal(),
		delay:  game.DefaultMismatchDelay,
		logger: logger.WithPrefix("server"),
		upgrader: websocket.Upgrader{
			// the page and the socket are served from the same origin, but
			// local development often proxies through another port
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]*game.Session),
		startTime:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = randutil.New(randutil.Seed(nil))
	}

	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)

	if s.assetsDir != "" {
		r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(s.assetsDir))))
	}
	return r
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// Shutdown closes every session and connection
func (s *Server) Shutdown() {
	s.mu.Lock()
	conns := s.connections
	s.connections = make(map[*Connection]*game.Session)
	s.mu.Unlock()

	for conn, session := range conns {
		if session != nil {
			session.Close()
		}
		_ = conn.Close()
	}
	s.logger.Info("Server stopped", "closed", len(conns))
}

// ActiveSessions returns the number of connected games
func (s *Server) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

// handleHealth reports whether boards can be dealt
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.loadErr != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(s.loadErr.Error()))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Stats is the /stats response body
type Stats struct {
	ActiveSessions int     `json:"active_sessions"`
	GamesStarted   int64   `json:"games_started"`
	GamesCompleted int64   `json:"games_completed"`
	Pairs          int     `json:"pairs"`
	Uptime         float64 `json:"uptime_seconds"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := Stats{
		ActiveSessions: s.ActiveSessions(),
		GamesStarted:   s.gamesStarted.Load(),
		GamesCompleted: s.gamesCompleted.Load(),
		Pairs:          len(s.defs),
		Uptime:         time.Since(s.startTime).Seconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		s.logger.Error("Failed to encode stats", "error", err)
	}
}

// handleWebSocket upgrades the request and starts a fresh game on it
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	conn := NewConnection(ws, s.logger)

	if s.loadErr != nil {
		conn.sendError("load_failed", s.loadErr.Error())
		conn.CloseAfterFlush()
		conn.Start()
		return
	}

	id := sessionid.New()
	conn.sendData(MessageTypeSession, SessionData{ID: id, Pairs: len(s.defs)})

	session, err := game.NewSession(s.defs,
		game.WithID(id),
		game.WithRand(s.sessionRand()),
		game.WithClock(s.clock),
		game.WithMismatchDelay(s.delay),
		game.WithRenderer(conn),
		game.WithScoreSink(conn),
		game.WithLogger(s.logger),
		game.WithOnComplete(func(score int) {
			s.gamesCompleted.Add(1)
			conn.complete(score)
		}),
	)
	if err != nil {
		// defs were validated at startup, so this is unexpected
		s.logger.Error("Failed to start session", "error", err)
		conn.sendError("session_failed", err.Error())
		conn.CloseAfterFlush()
		conn.Start()
		return
	}
	// the first board is already queued; pumps start once input has a
	// session to go to
	conn.Attach(session)
	conn.Start()
	s.gamesStarted.Add(1)

	s.mu.Lock()
	s.connections[conn] = session
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client connected", "session", id, "total", total)

	go func() {
		<-conn.Done()
		session.Close()

		s.mu.Lock()
		delete(s.connections, conn)
		total := len(s.connections)
		s.mu.Unlock()
		s.logger.Info("Client disconnected", "session", id, "total", total)
	}()
}

// sessionRand derives an independent generator for one session
func (s *Server) sessionRand() *rand.Rand {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return randutil.New(s.rng.Int64())
}
