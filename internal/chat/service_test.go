package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropwatch/cropwatch/internal/assistant"
	apperrors "github.com/cropwatch/cropwatch/internal/errors"
	"github.com/cropwatch/cropwatch/internal/farm"
)

func soilSource(mutate func(*farm.SoilData)) SnapshotSource {
	return SnapshotFunc(func() farm.MetricsSnapshot {
		s := farm.MetricsSnapshot{Soil: farm.DefaultSoilData}
		if mutate != nil {
			mutate(&s.Soil)
		}
		return s
	})
}

func TestNewSessionStartsClosedWithGreeting(t *testing.T) {
	svc := NewService(NewMemoryStore(0), soilSource(nil))

	sess, err := svc.NewSession(context.Background())
	require.NoError(t, err)

	assert.False(t, sess.Open)
	assert.False(t, sess.Minimized)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, AuthorBot, sess.Messages[0].Author)
	assert.Contains(t, sess.Messages[0].Text, "AI soil specialist")
	assert.Equal(t, assistant.Features{}, sess.Features)
}

func TestNewSessionInfersFeaturesFromSnapshot(t *testing.T) {
	src := SnapshotFunc(farm.SampleSnapshot)
	svc := NewService(NewMemoryStore(0), src)

	sess, err := svc.NewSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, assistant.Features{Crop: true, Pest: true}, sess.Features)

	fixed := NewService(NewMemoryStore(0), src, WithFeatures(assistant.Features{Pest: true}))
	sess, err = fixed.NewSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, assistant.Features{Pest: true}, sess.Features)
}

func TestSendAppendsUserAndBotMessages(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(0), soilSource(func(s *farm.SoilData) { s.PH = 6.0 }))
	sess, err := svc.NewSession(ctx)
	require.NoError(t, err)

	turn, err := svc.Send(ctx, sess.ID, "What about pH?")
	require.NoError(t, err)

	assert.Equal(t, assistant.TopicPH, turn.Topic)
	assert.Equal(t, AuthorUser, turn.User.Author)
	assert.Equal(t, AuthorBot, turn.Bot.Author)
	assert.Contains(t, turn.Bot.Text, "Too acidic")
	assert.Less(t, turn.User.ID, turn.Bot.ID, "message IDs must be monotonic")

	got, err := svc.Session(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "What about pH?", got.Messages[1].Text)
	assert.Equal(t, turn.Bot.ID, got.Messages[2].ID)
}

func TestSendIgnoresBlankInput(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(0), soilSource(nil))
	sess, err := svc.NewSession(ctx)
	require.NoError(t, err)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := svc.Send(ctx, sess.ID, text)
		assert.True(t, errors.Is(err, ErrEmptyMessage))
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	}

	got, err := svc.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 1)
}

func TestSendUnknownSession(t *testing.T) {
	svc := NewService(NewMemoryStore(0), soilSource(nil))
	_, err := svc.Send(context.Background(), "missing", "hello")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestWindowState(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(0), soilSource(nil))
	sess, err := svc.NewSession(ctx)
	require.NoError(t, err)

	got, err := svc.Toggle(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.Open)

	got, err = svc.SetMinimized(ctx, sess.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Minimized)
	assert.True(t, got.Open)

	got, err = svc.Close(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, got.Open)

	got, err = svc.Open(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.Open)

	got, err = svc.Toggle(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, got.Open)
}

func TestEndDiscardsHistory(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(0), soilSource(nil))
	sess, err := svc.NewSession(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.End(ctx, sess.ID))

	_, err = svc.Session(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// gatedStore holds the first armed Get until release is closed.
type gatedStore struct {
	Store
	armed   atomic.Bool
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Get(ctx context.Context, id string) (*Session, error) {
	if g.armed.Load() {
		g.once.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
	return g.Store.Get(ctx, id)
}

func TestEndWaitsForInFlightSend(t *testing.T) {
	ctx := context.Background()
	store := &gatedStore{
		Store:   NewMemoryStore(0),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := NewService(store, soilSource(nil))
	sess, err := svc.NewSession(ctx)
	require.NoError(t, err)
	store.armed.Store(true)

	sent := make(chan error, 1)
	go func() {
		_, err := svc.Send(ctx, sess.ID, "water")
		sent <- err
	}()
	<-store.entered

	ended := make(chan error, 1)
	go func() { ended <- svc.End(ctx, sess.ID) }()

	select {
	case <-ended:
		t.Fatal("End returned while Send held the session")
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	require.NoError(t, <-sent)
	require.NoError(t, <-ended)

	_, err = svc.Session(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestListenerReceivesCopies(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	var seen []*Session
	svc := NewService(NewMemoryStore(0), soilSource(nil), WithListener(func(s *Session) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
	}))
	sess, err := svc.NewSession(ctx)
	require.NoError(t, err)

	_, err = svc.Send(ctx, sess.ID, "moisture")
	require.NoError(t, err)
	_, err = svc.Open(ctx, sess.ID)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Len(t, seen[0].Messages, 3)
	assert.True(t, seen[1].Open)
}

func TestConcurrentSendsKeepAllMessages(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(0), soilSource(nil))
	sess, err := svc.NewSession(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Send(ctx, sess.ID, "water")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 21)
	for _, m := range got.Messages[1:] {
		if m.Author == AuthorBot {
			assert.True(t, strings.HasPrefix(m.Text, "💧"))
		}
	}
}
