// Package transport answers assistant questions over NATS request/reply.
package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/cropwatch/cropwatch/internal/assistant"
	"github.com/cropwatch/cropwatch/internal/farm"
	"github.com/cropwatch/cropwatch/internal/metrics"
)

const DefaultSubject = "cropwatch.assistant.respond"

// SnapshotSource supplies the readings used when a request carries none.
type SnapshotSource interface {
	Snapshot() farm.MetricsSnapshot
}

// NATSResponder subscribes to a subject and replies to each question with
// the assistant's answer.
type NATSResponder struct {
	conn    *nats.Conn
	subject string
	source  SnapshotSource
	sub     *nats.Subscription
}

// NewNATSResponder connects to the NATS server at url.
func NewNATSResponder(url, subject string, source SnapshotSource) (*NATSResponder, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(url,
		nats.Name("cropwatch-assistant"),
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info().Str("url", url).Msg("Connected to NATS server")
	return &NATSResponder{conn: conn, subject: subject, source: source}, nil
}

// Start subscribes to the request subject.
func (r *NATSResponder) Start() error {
	sub, err := r.conn.Subscribe(r.subject, r.handleRequest)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.subject, err)
	}
	r.sub = sub
	log.Info().Str("subject", r.subject).Msg("Subscribed to assistant requests")
	return nil
}

func (r *NATSResponder) handleRequest(msg *nats.Msg) {
	if msg.Reply == "" {
		log.Debug().Str("subject", msg.Subject).Msg("Ignoring assistant request without reply subject")
		return
	}
	if err := msg.Respond(handle(msg.Data, r.source)); err != nil {
		log.Error().Err(err).Msg("Failed to send assistant reply")
	}
}

// handle decodes a request and encodes the reply. Failures are reported in
// the reply's error field.
func handle(data []byte, source SnapshotSource) []byte {
	var (
		req   assistant.Request
		reply assistant.Reply
	)

	if err := json.Unmarshal(data, &req); err != nil {
		reply.Error = "invalid request format"
	} else {
		var current farm.MetricsSnapshot
		if req.Snapshot == nil {
			current = source.Snapshot()
		}
		answer, err := assistant.Answer(req, current)
		if err != nil {
			reply.Error = err.Error()
		} else {
			reply = answer
			metrics.RecordAssistantResponse(string(answer.Topic), "nats")
		}
	}

	out, err := json.Marshal(reply)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal assistant reply")
		return []byte(`{"error":"internal error"}`)
	}
	return out
}

// Close drains the subscription and closes the connection.
func (r *NATSResponder) Close() error {
	if r.conn == nil {
		return nil
	}
	if err := r.conn.Drain(); err != nil {
		r.conn.Close()
		return err
	}
	log.Info().Msg("NATS connection closed")
	return nil
}
