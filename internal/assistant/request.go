package assistant

import (
	"errors"
	"strings"

	"github.com/cropwatch/cropwatch/internal/farm"
)

// ErrEmptyQuestion is returned by Answer for a blank message.
var ErrEmptyQuestion = errors.New("question is empty")

// Request is a one-shot question, optionally carrying its own readings.
type Request struct {
	Message  string                `json:"message"`
	Snapshot *farm.MetricsSnapshot `json:"snapshot,omitempty"`
}

// Reply is the answer to a Request.
type Reply struct {
	Text  string `json:"text,omitempty"`
	Topic Topic  `json:"topic,omitempty"`
	Error string `json:"error,omitempty"`
}

// Answer responds to req. current is used when req carries no snapshot.
// Blank messages are rejected with ErrEmptyQuestion.
func Answer(req Request, current farm.MetricsSnapshot) (Reply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return Reply{}, ErrEmptyQuestion
	}

	snap := current
	if req.Snapshot != nil {
		snap = *req.Snapshot
	}
	e := New(FeaturesFor(snap))
	return Reply{
		Text:  e.Respond(req.Message, snap),
		Topic: e.Match(req.Message),
	}, nil
}
