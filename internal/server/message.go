package server

import (
	"encoding/json"
	"time"

	"github.com/lox/liarsdice/internal/game"
)

// Message is the framing for every websocket frame in both directions.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage wraps data in a stamped frame.
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// eventMessage converts an engine event into a wire frame.
func eventMessage(ev game.Event) (*Message, error) {
	return NewMessage(MessageType(ev.Type), ev.Payload)
}

// Client → server payloads

type CreateSessionData struct {
	Name string `json:"name"`
}

type JoinSessionData struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
}

type AddBotData struct {
	SessionID string `json:"sessionId"`
}

type StartSessionData struct {
	SessionID string `json:"sessionId"`
}

type PlaceBidData struct {
	SessionID string `json:"sessionId"`
	Count     int    `json:"count"`
	Value     int    `json:"value"`
}

type CallBluffData struct {
	SessionID string `json:"sessionId"`
}

// Server → client payloads

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionSummary is lightweight lobby metadata for session discovery.
type SessionSummary struct {
	ID       string `json:"id"`
	Players  int    `json:"players"`
	Capacity int    `json:"capacity"`
	Started  bool   `json:"started"`
	Over     bool   `json:"over"`
}

type SessionListData struct {
	Sessions []SessionSummary `json:"sessions"`
}
