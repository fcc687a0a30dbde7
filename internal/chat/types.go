// Package chat owns assistant conversations: per-session message history and
// the widget state (open, minimized) the UI renders.
package chat

import (
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cropwatch/cropwatch/internal/assistant"
)

// Author identifies who wrote a message.
type Author string

const (
	AuthorUser Author = "user"
	AuthorBot  Author = "bot"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session IDs.
	ErrSessionNotFound = errors.New("chat session not found")
	// ErrEmptyMessage is returned when a user submits blank text.
	ErrEmptyMessage = errors.New("message is empty")
)

// Message is a single chat bubble.
type Message struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps a message with a fresh ULID.
func NewMessage(author Author, text string, at time.Time) Message {
	return Message{
		ID:        ulid.Make().String(),
		Author:    author,
		Text:      text,
		Timestamp: at,
	}
}

// Session is one conversation and the widget state that goes with it.
type Session struct {
	ID        string             `json:"id"`
	Open      bool               `json:"open"`
	Minimized bool               `json:"minimized"`
	Features  assistant.Features `json:"features"`
	Messages  []Message          `json:"messages"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Clone returns a copy that shares no message storage with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	return &out
}

// Turn is the result of one user submission.
type Turn struct {
	User  Message         `json:"user"`
	Bot   Message         `json:"bot"`
	Topic assistant.Topic `json:"topic"`
}
