package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cropwatch/cropwatch/internal/assistant"
	apperrors "github.com/cropwatch/cropwatch/internal/errors"
	"github.com/cropwatch/cropwatch/internal/farm"
	"github.com/cropwatch/cropwatch/internal/metrics"
)

// SnapshotSource supplies the metrics a conversation turn is answered from.
type SnapshotSource interface {
	Snapshot() farm.MetricsSnapshot
}

// SnapshotFunc adapts a function to SnapshotSource.
type SnapshotFunc func() farm.MetricsSnapshot

// Snapshot implements SnapshotSource.
func (f SnapshotFunc) Snapshot() farm.MetricsSnapshot { return f() }

// Listener is notified after a session changes.
type Listener func(s *Session)

// Option configures a Service.
type Option func(*Service)

// WithFeatures fixes the assistant features for new sessions instead of
// inferring them from the snapshot.
func WithFeatures(f assistant.Features) Option {
	return func(s *Service) { s.features = &f }
}

// WithListener registers a change listener.
func WithListener(l Listener) Option {
	return func(s *Service) { s.listeners = append(s.listeners, l) }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service is the chat widget controller. It owns session state and hands the
// assistant a read-only snapshot on every turn.
type Service struct {
	store     Store
	source    SnapshotSource
	features  *assistant.Features
	listeners []Listener
	now       func() time.Time

	locks sync.Map // session id -> *sync.Mutex
}

// NewService creates a chat controller.
func NewService(store Store, source SnapshotSource, opts ...Option) *Service {
	s := &Service{
		store:  store,
		source: source,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) lock(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (s *Service) notify(sess *Session) {
	for _, l := range s.listeners {
		l(sess.Clone())
	}
}

// NewSession starts a closed conversation seeded with the greeting.
func (s *Service) NewSession(ctx context.Context) (*Session, error) {
	snap := s.source.Snapshot()
	features := assistant.FeaturesFor(snap)
	if s.features != nil {
		features = *s.features
	}

	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Features:  features,
		Messages:  []Message{NewMessage(AuthorBot, assistant.Greeting(snap, features), now)},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	active, err := s.store.Count(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to count chat sessions")
	}
	metrics.RecordChatSessionCreated(active)

	log.Debug().Str("session", sess.ID).Bool("crop", features.Crop).Bool("pest", features.Pest).Msg("Chat session started")
	return sess, nil
}

// Session returns a session by ID.
func (s *Service) Session(ctx context.Context, id string) (*Session, error) {
	return s.store.Get(ctx, id)
}

// Send answers text in session id. Blank text is rejected with
// ErrEmptyMessage and leaves the session untouched.
func (s *Service) Send(ctx context.Context, id, text string) (Turn, error) {
	if strings.TrimSpace(text) == "" {
		metrics.RecordChatMessageRejected()
		return Turn{}, apperrors.Invalid("chat.send", ErrEmptyMessage)
	}

	unlock := s.lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return Turn{}, err
	}

	engine := assistant.New(sess.Features)
	snap := s.source.Snapshot()

	now := s.now()
	turn := Turn{
		User:  NewMessage(AuthorUser, text, now),
		Topic: engine.Match(text),
	}
	turn.Bot = NewMessage(AuthorBot, engine.Respond(text, snap), s.now())

	sess.Messages = append(sess.Messages, turn.User, turn.Bot)
	sess.UpdatedAt = turn.Bot.Timestamp
	if err := s.store.Save(ctx, sess); err != nil {
		return Turn{}, err
	}

	metrics.RecordChatMessage(string(AuthorUser))
	metrics.RecordChatMessage(string(AuthorBot))
	metrics.RecordAssistantResponse(string(turn.Topic), "chat")
	s.notify(sess)

	return turn, nil
}

func (s *Service) update(ctx context.Context, id string, fn func(*Session)) (*Session, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fn(sess)
	sess.UpdatedAt = s.now()
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.notify(sess)
	return sess, nil
}

// Open shows the chat window.
func (s *Service) Open(ctx context.Context, id string) (*Session, error) {
	return s.update(ctx, id, func(sess *Session) { sess.Open = true })
}

// Close hides the chat window.
func (s *Service) Close(ctx context.Context, id string) (*Session, error) {
	return s.update(ctx, id, func(sess *Session) { sess.Open = false })
}

// Toggle flips the chat window between open and closed.
func (s *Service) Toggle(ctx context.Context, id string) (*Session, error) {
	return s.update(ctx, id, func(sess *Session) { sess.Open = !sess.Open })
}

// SetMinimized collapses or restores an open chat window.
func (s *Service) SetMinimized(ctx context.Context, id string, minimized bool) (*Session, error) {
	return s.update(ctx, id, func(sess *Session) { sess.Minimized = minimized })
}

// End discards a session and its history.
func (s *Service) End(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.locks.Delete(id)

	if active, err := s.store.Count(ctx); err == nil {
		metrics.SetChatSessionsActive(active)
	}
	return nil
}
