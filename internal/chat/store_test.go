package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	apperrors "github.com/cropwatch/cropwatch/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMemoryStoreRoundTripCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	sess := &Session{ID: "a", Messages: []Message{{ID: "1", Text: "hi"}}}
	require.NoError(t, store.Save(ctx, sess))

	sess.Messages[0].Text = "changed"

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Messages[0].Text)

	got.Messages = append(got.Messages, Message{ID: "2"})
	again, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, again.Messages, 1)
}

func TestMemoryStoreNotFound(t *testing.T) {
	_, err := NewMemoryStore(0).Get(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, &Session{ID: "old"}))
	now = now.Add(30 * time.Second)
	require.NoError(t, store.Save(ctx, &Session{ID: "new"}))

	now = now.Add(45 * time.Second)

	_, err := store.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Get(ctx, "new")
	assert.NoError(t, err)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 0, store.Sweep())
}

func TestMemoryStoreRunStopsOnCancel(t *testing.T) {
	store := NewMemoryStore(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		store.Run(ctx, time.Millisecond)
		close(done)
	}()

	require.NoError(t, store.Save(context.Background(), &Session{ID: "x"}))
	require.Eventually(t, func() bool {
		store.mu.RLock()
		defer store.mu.RUnlock()
		return len(store.sessions) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestMemoryStoreDeleteUnknownIsNoop(t *testing.T) {
	assert.NoError(t, NewMemoryStore(0).Delete(context.Background(), "nope"))
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not a url", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse Redis URL")
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "cropwatch:chat:abc", sessionKey("abc"))
}
