// Package speech exposes text-to-speech and speech-to-text as injected
// capabilities. Browsers do the actual synthesis and recognition; the server
// only issues speak requests and receives transcripts.
package speech

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	apperrors "github.com/cropwatch/cropwatch/internal/errors"
	"github.com/cropwatch/cropwatch/internal/metrics"
)

// Event types sent to and received from browsers.
const (
	TypeSpeak       = "speak"
	TypeSpeakCancel = "speakCancel"
	TypeListenStart = "listenStart"
	TypeListenStop  = "listenStop"
	TypeTranscript  = "transcript"
)

const (
	DefaultRate   = 0.9
	DefaultPitch  = 1.0
	DefaultVolume = 1.0

	maxAnnouncedStats = 4
)

// ErrAlreadyListening is returned by StartListening while another client
// holds the microphone.
var ErrAlreadyListening = errors.New("already listening")

// Speaker plays text aloud.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Stop()
}

// Listener captures speech and reports transcripts. Recognition belongs to
// one client at a time.
type Listener interface {
	StartListening(clientID string, onResult func(Transcript)) error
	StopListening()
	Release(clientID string)
}

// Transcript is a recognition result reported by a browser.
type Transcript struct {
	ClientID string `json:"-"`
	Text     string `json:"text"`
	Final    bool   `json:"final"`
}

// Utterance is the payload of a speak event.
type Utterance struct {
	Text   string  `json:"text"`
	Lang   string  `json:"lang"`
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
}

// Broadcaster delivers typed events to connected browsers.
type Broadcaster interface {
	Broadcast(msgType string, data interface{})
}

// VoiceLang maps an interface language to a speech locale.
func VoiceLang(language string) string {
	if strings.EqualFold(language, "te") {
		return "te-IN"
	}
	return "en-US"
}

// Announcement builds the text read out when a page loads: the title followed
// by at most four key statistics.
func Announcement(title string, stats []string) string {
	var b strings.Builder
	if title != "" {
		b.WriteString(title)
		b.WriteString(". ")
	}
	for i, stat := range stats {
		if i >= maxAnnouncedStats {
			break
		}
		b.WriteString(stat)
		b.WriteString(". ")
	}
	return b.String()
}

// Bridge implements Speaker and Listener on top of a Broadcaster.
type Bridge struct {
	out Broadcaster

	mu       sync.RWMutex
	language string
	rate     float64
	enabled  bool
	listener string
	onResult func(Transcript)
}

var (
	_ Speaker  = (*Bridge)(nil)
	_ Listener = (*Bridge)(nil)
)

// NewBridge creates a speech bridge speaking the given language.
func NewBridge(out Broadcaster, language string) *Bridge {
	return &Bridge{
		out:      out,
		language: language,
		rate:     DefaultRate,
		enabled:  true,
	}
}

// Configure applies user speech preferences. A non-positive rate restores the default.
func (b *Bridge) Configure(language string, rate float64, enabled bool) {
	if rate <= 0 {
		rate = DefaultRate
	}
	b.mu.Lock()
	b.language = language
	b.rate = rate
	b.enabled = enabled
	b.mu.Unlock()
}

// Speak asks browsers to read text aloud. Blank text is ignored.
func (b *Bridge) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	b.mu.RLock()
	enabled := b.enabled
	u := Utterance{
		Text:   text,
		Lang:   VoiceLang(b.language),
		Rate:   b.rate,
		Pitch:  DefaultPitch,
		Volume: DefaultVolume,
	}
	b.mu.RUnlock()

	if !enabled {
		log.Debug().Msg("Speech disabled, skipping utterance")
		return nil
	}

	b.out.Broadcast(TypeSpeak, u)
	metrics.RecordSpeechEvent(TypeSpeak)
	return nil
}

// Stop cancels any ongoing speech.
func (b *Bridge) Stop() {
	b.out.Broadcast(TypeSpeakCancel, nil)
	metrics.RecordSpeechEvent(TypeSpeakCancel)
}

// StartListening registers onResult for transcripts from clientID and asks
// browsers to start recognition.
func (b *Bridge) StartListening(clientID string, onResult func(Transcript)) error {
	if onResult == nil {
		return apperrors.Invalid("speech.listen", errors.New("nil result callback"))
	}

	b.mu.Lock()
	if b.onResult != nil {
		b.mu.Unlock()
		return ErrAlreadyListening
	}
	b.listener = clientID
	b.onResult = onResult
	lang := VoiceLang(b.language)
	b.mu.Unlock()

	b.out.Broadcast(TypeListenStart, map[string]interface{}{
		"lang":           lang,
		"continuous":     false,
		"interimResults": true,
	})
	metrics.RecordSpeechEvent(TypeListenStart)
	return nil
}

// StopListening stops delivering transcripts.
func (b *Bridge) StopListening() {
	b.mu.Lock()
	wasListening := b.onResult != nil
	b.listener = ""
	b.onResult = nil
	b.mu.Unlock()

	if wasListening {
		b.out.Broadcast(TypeListenStop, nil)
		metrics.RecordSpeechEvent(TypeListenStop)
	}
}

// Release stops listening if clientID owns the current recognition. It is
// called when a client goes away so the microphone is not held forever.
func (b *Bridge) Release(clientID string) {
	b.mu.RLock()
	owned := b.onResult != nil && b.listener == clientID
	b.mu.RUnlock()

	if owned {
		log.Debug().Str("client", clientID).Msg("Listening client left, stopping recognition")
		b.StopListening()
	}
}

// Listening reports whether a transcript callback is registered.
func (b *Bridge) Listening() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.onResult != nil
}

// Deliver hands a browser transcript to the registered callback. It returns
// false when nobody is listening or t comes from another client.
func (b *Bridge) Deliver(t Transcript) bool {
	b.mu.RLock()
	cb := b.onResult
	owner := b.listener
	b.mu.RUnlock()

	if cb == nil {
		log.Debug().Str("client", t.ClientID).Msg("Dropping transcript, not listening")
		return false
	}
	if owner != "" && owner != t.ClientID {
		log.Debug().Str("client", t.ClientID).Str("listener", owner).Msg("Dropping transcript from another client")
		return false
	}
	metrics.RecordSpeechEvent(TypeTranscript)
	cb(t)
	return true
}
