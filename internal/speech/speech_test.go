package speech

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	Type string
	Data interface{}
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) Broadcast(msgType string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{Type: msgType, Data: data})
}

func (r *recorder) all() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

func TestVoiceLang(t *testing.T) {
	assert.Equal(t, "en-US", VoiceLang("en"))
	assert.Equal(t, "te-IN", VoiceLang("te"))
	assert.Equal(t, "te-IN", VoiceLang("TE"))
	assert.Equal(t, "en-US", VoiceLang(""))
}

func TestAnnouncement(t *testing.T) {
	tests := []struct {
		name  string
		title string
		stats []string
		want  string
	}{
		{"title only", "Soil Analysis", nil, "Soil Analysis. "},
		{"no title", "", []string{"Moisture 68%"}, "Moisture 68%. "},
		{"empty", "", nil, ""},
		{
			"caps at four stats",
			"Farm Dashboard",
			[]string{"a", "b", "c", "d", "e"},
			"Farm Dashboard. a. b. c. d. ",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Announcement(tc.title, tc.stats))
		})
	}
}

func TestBridgeSpeak(t *testing.T) {
	rec := &recorder{}
	b := NewBridge(rec, "te")

	require.NoError(t, b.Speak(context.Background(), "Soil moisture is 68 percent"))
	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, TypeSpeak, events[0].Type)
	assert.Equal(t, Utterance{
		Text:   "Soil moisture is 68 percent",
		Lang:   "te-IN",
		Rate:   0.9,
		Pitch:  1,
		Volume: 1,
	}, events[0].Data)
}

func TestBridgeSpeakIgnoresBlankText(t *testing.T) {
	rec := &recorder{}
	b := NewBridge(rec, "en")

	require.NoError(t, b.Speak(context.Background(), "   \n"))
	assert.Empty(t, rec.all())
}

func TestBridgeSpeakDisabled(t *testing.T) {
	rec := &recorder{}
	b := NewBridge(rec, "en")
	b.Configure("en", 1.2, false)

	require.NoError(t, b.Speak(context.Background(), "hello"))
	assert.Empty(t, rec.all())

	b.Configure("en", 0, true)
	require.NoError(t, b.Speak(context.Background(), "hello"))
	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, DefaultRate, events[0].Data.(Utterance).Rate)
}

func TestBridgeSpeakCancelledContext(t *testing.T) {
	rec := &recorder{}
	b := NewBridge(rec, "en")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Speak(ctx, "hello"), context.Canceled)
	assert.Empty(t, rec.all())
}

func TestBridgeStop(t *testing.T) {
	rec := &recorder{}
	NewBridge(rec, "en").Stop()

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, TypeSpeakCancel, events[0].Type)
}

func TestBridgeListening(t *testing.T) {
	rec := &recorder{}
	b := NewBridge(rec, "en")

	assert.False(t, b.Deliver(Transcript{Text: "ignored"}))
	assert.Error(t, b.StartListening("c1", nil))

	var got []Transcript
	require.NoError(t, b.StartListening("c1", func(tr Transcript) { got = append(got, tr) }))
	assert.True(t, b.Listening())
	assert.ErrorIs(t, b.StartListening("c2", func(Transcript) {}), ErrAlreadyListening)

	assert.False(t, b.Deliver(Transcript{ClientID: "c2", Text: "not mine", Final: true}))
	assert.True(t, b.Deliver(Transcript{ClientID: "c1", Text: "nitrogen levels", Final: true}))
	require.Len(t, got, 1)
	assert.Equal(t, "nitrogen levels", got[0].Text)

	b.StopListening()
	assert.False(t, b.Listening())
	assert.False(t, b.Deliver(Transcript{Text: "late"}))
	b.StopListening()

	var types []string
	for _, e := range rec.all() {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{TypeListenStart, TypeListenStop}, types)
	assert.Equal(t, "en-US", rec.all()[0].Data.(map[string]interface{})["lang"])
}

func TestBridgeRelease(t *testing.T) {
	tests := []struct {
		name          string
		release       string
		wantListening bool
	}{
		{"owner leaves", "c1", false},
		{"other client leaves", "c2", true},
		{"unknown client", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBridge(&recorder{}, "en")
			require.NoError(t, b.StartListening("c1", func(Transcript) {}))

			b.Release(tt.release)
			assert.Equal(t, tt.wantListening, b.Listening())

			if !tt.wantListening {
				assert.NoError(t, b.StartListening("c2", func(Transcript) {}))
			}
		})
	}
}
