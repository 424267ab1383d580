package server

import (
	"encoding/json"
	"time"
)

// MessageType names a websocket message
type MessageType string

const (
	// Client to server
	MessageTypeActivate MessageType = "activate"
	MessageTypeRestart  MessageType = "restart"

	// Server to client
	MessageTypeSession     MessageType = "session"
	MessageTypeBoard       MessageType = "board"
	MessageTypeClear       MessageType = "clear"
	MessageTypeReveal      MessageType = "reveal"
	MessageTypeInteractive MessageType = "interactive"
	MessageTypeScore       MessageType = "score"
	MessageTypeComplete    MessageType = "complete"
	MessageTypeError       MessageType = "error"
)

func (mt MessageType) String() string {
	return string(mt)
}

// Message is the envelope for every websocket frame
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	return &Message{
		Type:      messageType,
		Data:      raw,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server

type ActivateData struct {
	Deal  uint64 `json:"deal"`
	Index int    `json:"index"`
}

// Server → Client

type SessionData struct {
	ID    string `json:"id"`
	Pairs int    `json:"pairs"`
}

type BoardData struct {
	Deal  uint64 `json:"deal"`
	Count int    `json:"count"`
}

// RevealData carries the card face only while the tile is revealed
type RevealData struct {
	Deal     uint64 `json:"deal"`
	Index    int    `json:"index"`
	Revealed bool   `json:"revealed"`
	Name     string `json:"name,omitempty"`
	Image    string `json:"image,omitempty"`
}

type InteractiveData struct {
	Deal        uint64 `json:"deal"`
	Index       int    `json:"index"`
	Interactive bool   `json:"interactive"`
}

type ScoreData struct {
	Score int `json:"score"`
}

type CompleteData struct {
	Score int `json:"score"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
