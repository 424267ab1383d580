package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/memorymatch/internal/game"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	sendBufferSize = 256
)

// ErrConnectionClosed is returned when sending on a closed connection
var ErrConnectionClosed = errors.New("connection closed")

// Connection is one browser tab playing one game. It renders the session's
// board by sending messages, and feeds the browser's clicks back into it.
type Connection struct {
	conn   *websocket.Conn
	send   chan *Message
	logger *log.Logger
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once

	mu       sync.Mutex
	closed   bool
	session  *game.Session
	activate func(game.Tile)
	deal     uint64
}

// NewConnection wraps an upgraded websocket
func NewConnection(conn *websocket.Conn, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:   conn,
		send:   make(chan *Message, sendBufferSize),
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Attach binds the session whose board this connection renders
func (c *Connection) Attach(s *game.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
	c.logger = c.logger.With("session", s.ID())
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Done is closed once the connection shuts down
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close shuts the connection down. The pending outbound queue is dropped.
func (c *Connection) Close() error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()

	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

// CloseAfterFlush stops accepting messages and lets the write pump drain
// what is queued before closing the socket.
func (c *Connection) CloseAfterFlush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// SendMessage queues msg for the client. A client that cannot keep up is
// disconnected.
func (c *Connection) SendMessage(msg *Message) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnectionClosed
	}
	select {
	case c.send <- msg:
		c.mu.Unlock()
		return nil
	default:
	}
	c.mu.Unlock()

	c.logger.Warn("Connection send buffer full, closing connection")
	_ = c.Close()
	return ErrConnectionClosed
}

func (c *Connection) sendData(messageType MessageType, data any) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", messageType, "error", err)
		return
	}
	if err := c.SendMessage(msg); err != nil {
		c.logger.Debug("Dropping message", "type", messageType, "error", err)
	}
}

func (c *Connection) sendError(code, message string) {
	c.sendData(MessageTypeError, ErrorData{Code: code, Message: message})
}

// Render implements game.Renderer
func (c *Connection) Render(tiles []game.Tile, activate func(game.Tile)) {
	c.mu.Lock()
	// a session renders once per deal and numbers deals from 1, so an empty
	// board still advances the count
	deal := c.deal + 1
	if len(tiles) > 0 {
		deal = tiles[0].Deal
	}
	c.activate = activate
	c.deal = deal
	c.mu.Unlock()

	c.sendData(MessageTypeBoard, BoardData{Deal: deal, Count: len(tiles)})
}

// SetRevealed implements game.Renderer
func (c *Connection) SetRevealed(t game.Tile, revealed bool) {
	data := RevealData{Deal: t.Deal, Index: t.Index, Revealed: revealed}
	if revealed {
		data.Name = t.Card.Name
		data.Image = t.Card.Image
	}
	c.sendData(MessageTypeReveal, data)
}

// SetInteractive implements game.Renderer
func (c *Connection) SetInteractive(t game.Tile, interactive bool) {
	c.sendData(MessageTypeInteractive, InteractiveData{Deal: t.Deal, Index: t.Index, Interactive: interactive})
}

// Clear implements game.Renderer
func (c *Connection) Clear() {
	c.mu.Lock()
	c.activate = nil
	c.mu.Unlock()

	c.sendData(MessageTypeClear, struct{}{})
}

// PublishScore implements game.ScoreSink
func (c *Connection) PublishScore(score int) {
	c.sendData(MessageTypeScore, ScoreData{Score: score})
}

func (c *Connection) complete(score int) {
	c.sendData(MessageTypeComplete, CompleteData{Score: score})
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type)

	c.mu.Lock()
	session, activate, deal := c.session, c.activate, c.deal
	c.mu.Unlock()

	if session == nil {
		c.sendError("no_session", "No game in progress")
		return
	}

	switch msg.Type {
	case MessageTypeActivate:
		var data ActivateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse activate data")
			return
		}
		// clicks on a board that has since been replaced are dropped silently
		if activate == nil || data.Deal != deal {
			c.logger.Debug("Ignoring activation for old board", "deal", data.Deal, "current", deal)
			return
		}
		activate(game.Tile{Deal: data.Deal, Index: data.Index})

	case MessageTypeRestart:
		session.Restart()

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}
