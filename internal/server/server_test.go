package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/lox/memorymatch/internal/card"
	"github.com/lox/memorymatch/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

var testDefs = []card.Definition{
	{Name: "fox", Image: "fox.svg"},
	{Name: "owl", Image: "owl.svg"},
}

type testServer struct {
	srv   *Server
	ts    *httptest.Server
	clock *quartz.Mock
}

func newTestServer(t *testing.T, defs []card.Definition, opts ...Option) *testServer {
	t.Helper()
	clock := quartz.NewMock(t)
	opts = append([]Option{WithSeed(7), WithClock(clock)}, opts...)
	srv := New(defs, testLogger(), opts...)
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		srv.Shutdown()
		ts.Close()
	})
	return &testServer{srv: srv, ts: ts, clock: clock}
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
	ts   *testServer
}

func (ts *testServer) dial(t *testing.T) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return &wsClient{t: t, conn: conn, ts: ts}
}

func (c *wsClient) send(messageType MessageType, data any) {
	c.t.Helper()
	msg, err := NewMessage(messageType, data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteJSON(msg))
}

func (c *wsClient) read() Message {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(c.t, c.conn.ReadJSON(&msg))
	return msg
}

// expect reads the next message, requires its type and decodes its data
func (c *wsClient) expect(messageType MessageType, into any) {
	c.t.Helper()
	msg := c.read()
	require.Equal(c.t, messageType, msg.Type, "data: %s", string(msg.Data))
	if into != nil {
		require.NoError(c.t, json.Unmarshal(msg.Data, into))
	}
}

// expectDeal consumes the messages sent for a fresh board
func (c *wsClient) expectDeal() BoardData {
	c.t.Helper()
	var score ScoreData
	c.expect(MessageTypeScore, &score)
	assert.Equal(c.t, 0, score.Score)
	c.expect(MessageTypeClear, nil)
	var board BoardData
	c.expect(MessageTypeBoard, &board)
	return board
}

// sync round-trips a message the server always answers, so every message
// sent before it has been handled
func (c *wsClient) sync() {
	c.t.Helper()
	c.send(MessageType("ping"), nil)
	var e ErrorData
	c.expect(MessageTypeError, &e)
	require.Equal(c.t, "unknown_message_type", e.Code)
}

// session returns the game behind this client's connection
func (c *wsClient) session() *game.Session {
	c.t.Helper()
	require.Eventually(c.t, func() bool { return c.ts.srv.ActiveSessions() == 1 }, time.Second, 5*time.Millisecond)

	c.ts.srv.mu.RLock()
	defer c.ts.srv.mu.RUnlock()
	for _, s := range c.ts.srv.connections {
		return s
	}
	return nil
}

// waitForState blocks until the session reaches state. Observing Resolving
// means the mismatch timer has been scheduled.
func (c *wsClient) waitForState(state game.State) {
	c.t.Helper()
	s := c.session()
	require.Eventually(c.t, func() bool { return s.State() == state }, time.Second, time.Millisecond)
}

func (c *wsClient) advance() {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.ts.clock.Advance(game.DefaultMismatchDelay).MustWait(ctx)
}

// mismatchedPair returns two tile indices holding different cards
func (c *wsClient) mismatchedPair() (int, int) {
	c.t.Helper()
	tiles := c.session().Tiles()
	for i := 1; i < len(tiles); i++ {
		if tiles[i].Name() != tiles[0].Name() {
			return 0, i
		}
	}
	c.t.Fatal("board has no mismatched pair")
	return 0, 0
}

func (c *wsClient) flip(deal uint64, index int) RevealData {
	c.t.Helper()
	c.send(MessageTypeActivate, ActivateData{Deal: deal, Index: index})
	var reveal RevealData
	c.expect(MessageTypeReveal, &reveal)
	require.Equal(c.t, index, reveal.Index)
	require.True(c.t, reveal.Revealed)
	return reveal
}

func (c *wsClient) expectHidden(indices ...int) {
	c.t.Helper()
	hidden := map[int]bool{}
	for range indices {
		var reveal RevealData
		c.expect(MessageTypeReveal, &reveal)
		assert.False(c.t, reveal.Revealed)
		assert.Empty(c.t, reveal.Name)
		hidden[reveal.Index] = true
	}
	want := map[int]bool{}
	for _, i := range indices {
		want[i] = true
	}
	assert.Equal(c.t, want, hidden)
}

// attempt flips two tiles and consumes the outcome, advancing the clock past
// the mismatch delay when needed. It reports the names seen and whether they
// matched.
func (c *wsClient) attempt(deal uint64, a, b int, wantScore int) (string, string, bool) {
	c.t.Helper()
	first := c.flip(deal, a)
	second := c.flip(deal, b)

	var score ScoreData
	c.expect(MessageTypeScore, &score)
	assert.Equal(c.t, wantScore, score.Score)

	if first.Name == second.Name {
		for range 2 {
			var in InteractiveData
			c.expect(MessageTypeInteractive, &in)
			assert.False(c.t, in.Interactive)
		}
		return first.Name, second.Name, true
	}

	c.waitForState(game.Resolving)
	c.advance()
	c.expectHidden(a, b)
	return first.Name, second.Name, false
}

func TestHealth(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		srv := New(testDefs, testLogger())
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	})

	t.Run("load failure", func(t *testing.T) {
		loadErr := &card.LoadError{Source: "cards.json", Err: errors.New("no such file")}
		srv := New(nil, testLogger(), WithLoadError(loadErr))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "cards.json")
	})
}

func TestIndex(t *testing.T) {
	t.Parallel()
	srv := New(testDefs, testLogger())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<title>Memory Match</title>")
}

func TestAssets(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fox.svg"), []byte("<svg/>"), 0o644))

	srv := New(testDefs, testLogger(), WithAssetsDir(dir))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/fox.svg", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<svg/>", rec.Body.String())

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/missing.svg", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStats(t *testing.T) {
	t.Parallel()
	srv := New(testDefs, testLogger())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.ActiveSessions)
	assert.Equal(t, int64(0), stats.GamesStarted)
	assert.Equal(t, 2, stats.Pairs)
}

func TestPlayOverWebSocket(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, testDefs)
	c := ts.dial(t)

	var session SessionData
	c.expect(MessageTypeSession, &session)
	assert.Len(t, session.ID, 26)
	assert.Equal(t, 2, session.Pairs)

	board := c.expectDeal()
	require.Equal(t, 4, board.Count)

	// first attempt on tiles 0 and 1 tells us enough to finish the board
	score := 1
	a, b, matched := c.attempt(board.Deal, 0, 1, score)

	if matched {
		score++
		_, _, ok := c.attempt(board.Deal, 2, 3, score)
		require.True(t, ok)
	} else {
		score++
		third := c.flip(board.Deal, 2)
		// tile 2 pairs with either tile 0 or tile 1
		partner := 0
		if third.Name == b {
			partner = 1
		} else {
			require.Equal(t, a, third.Name)
		}
		c.flip(board.Deal, partner)
		var s ScoreData
		c.expect(MessageTypeScore, &s)
		assert.Equal(t, score, s.Score)
		c.expect(MessageTypeInteractive, nil)
		c.expect(MessageTypeInteractive, nil)

		score++
		_, _, ok := c.attempt(board.Deal, 3, 1-partner, score)
		require.True(t, ok)
	}

	var done CompleteData
	c.expect(MessageTypeComplete, &done)
	assert.Equal(t, score, done.Score)

	var stats Stats
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.GamesStarted)
	assert.Equal(t, int64(1), stats.GamesCompleted)
}

func TestMismatchHidesOnlyAfterDelay(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, testDefs)
	c := ts.dial(t)
	c.expect(MessageTypeSession, nil)
	board := c.expectDeal()

	a, b := c.mismatchedPair()
	c.flip(board.Deal, a)
	c.flip(board.Deal, b)
	c.expect(MessageTypeScore, nil)
	c.waitForState(game.Resolving)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ts.clock.Advance(game.DefaultMismatchDelay - time.Millisecond).MustWait(ctx)

	// nothing was hidden yet, so the next message answers the sync
	c.sync()
	assert.Equal(t, game.Resolving, c.session().State())

	ts.clock.Advance(time.Millisecond).MustWait(ctx)
	c.expectHidden(a, b)
	assert.Equal(t, game.Idle, c.session().State())
}

func TestClickWhileResolvingIsIgnored(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, testDefs)
	c := ts.dial(t)
	c.expect(MessageTypeSession, nil)
	board := c.expectDeal()

	a, b := c.mismatchedPair()
	other := 3
	if b == 3 {
		other = 2
	}

	c.flip(board.Deal, a)
	c.flip(board.Deal, b)
	c.expect(MessageTypeScore, nil)
	c.waitForState(game.Resolving)

	// the locked board answers the click with nothing
	c.send(MessageTypeActivate, ActivateData{Deal: board.Deal, Index: other})
	c.sync()

	c.advance()
	c.expectHidden(a, b)

	snap := c.session().Snapshot()
	assert.Equal(t, 1, snap.Score)
	assert.False(t, snap.Tiles[other].Revealed)
}

func TestRestartWhileResolvingDropsPendingHide(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, testDefs)
	c := ts.dial(t)
	c.expect(MessageTypeSession, nil)
	first := c.expectDeal()

	a, b := c.mismatchedPair()
	c.flip(first.Deal, a)
	c.flip(first.Deal, b)
	c.expect(MessageTypeScore, nil)
	c.waitForState(game.Resolving)

	c.send(MessageTypeRestart, nil)
	second := c.expectDeal()
	assert.Equal(t, first.Deal+1, second.Deal)

	c.advance()

	// a stale hide would arrive before this reveal
	reveal := c.flip(second.Deal, 0)
	assert.Equal(t, second.Deal, reveal.Deal)
	assert.Equal(t, game.AwaitingSecond, c.session().State())
}

func TestRestartOverWebSocket(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, testDefs)
	c := ts.dial(t)

	c.expect(MessageTypeSession, nil)
	first := c.expectDeal()
	c.flip(first.Deal, 0)

	c.send(MessageTypeRestart, nil)
	second := c.expectDeal()
	assert.Greater(t, second.Deal, first.Deal)
	assert.Equal(t, first.Count, second.Count)

	// clicks on the old board are dropped; the next message answers the
	// click on the new one
	c.send(MessageTypeActivate, ActivateData{Deal: first.Deal, Index: 1})
	reveal := c.flip(second.Deal, 1)
	assert.Equal(t, second.Deal, reveal.Deal)
}

func TestEmptyBoardCountsDeals(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	c := ts.dial(t)

	var session SessionData
	c.expect(MessageTypeSession, &session)
	assert.Equal(t, 0, session.Pairs)

	first := c.expectDeal()
	assert.Equal(t, BoardData{Deal: 1, Count: 0}, first)

	c.send(MessageTypeRestart, nil)
	second := c.expectDeal()
	assert.Equal(t, BoardData{Deal: 2, Count: 0}, second)
}

func TestBadMessages(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, testDefs)
	c := ts.dial(t)
	c.expect(MessageTypeSession, nil)
	c.expectDeal()

	c.send(MessageType("shuffle"), nil)
	var e ErrorData
	c.expect(MessageTypeError, &e)
	assert.Equal(t, "unknown_message_type", e.Code)

	require.NoError(t, c.conn.WriteJSON(map[string]any{"type": "activate", "data": "nope"}))
	c.expect(MessageTypeError, &e)
	assert.Equal(t, "invalid_message", e.Code)
}

func TestLoadErrorOverWebSocket(t *testing.T) {
	t.Parallel()
	loadErr := &card.LoadError{Source: "cards.json", Err: errors.New("no such file")}
	ts := newTestServer(t, nil, WithLoadError(loadErr))
	c := ts.dial(t)

	var e ErrorData
	c.expect(MessageTypeError, &e)
	assert.Equal(t, "load_failed", e.Code)
	assert.Contains(t, e.Message, "cards.json")

	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := c.conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestShutdownClosesSessions(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, testDefs)

	c := ts.dial(t)
	c.expect(MessageTypeSession, nil)
	c.expectDeal()
	require.NotNil(t, c.session())

	ts.srv.Shutdown()
	assert.Equal(t, 0, ts.srv.ActiveSessions())

	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := c.conn.ReadMessage()
	assert.Error(t, err)
}
