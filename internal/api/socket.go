package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cropwatch/cropwatch/internal/speech"
	"github.com/cropwatch/cropwatch/internal/websocket"
)

// Socket message types understood from browsers.
const (
	socketChat          = "chat"
	socketError         = "error"
	socketListen        = "listen"
	socketStopListening = "stopListening"
)

const socketChatTimeout = 10 * time.Second

type socketChatRequest struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

type socketTranscript struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// handleSocketMessage dispatches inbound websocket messages from clientID.
func (r *Router) handleSocketMessage(clientID string, msg websocket.Message) {
	switch msg.Type {
	case socketChat:
		var body socketChatRequest
		if err := json.Unmarshal(msg.Data, &body); err != nil {
			r.sendSocketError(clientID, "invalid chat message")
			return
		}
		r.sendChat(clientID, body.SessionID, body.Text)

	case speech.TypeTranscript:
		if r.Speech == nil {
			return
		}
		var body socketTranscript
		if err := json.Unmarshal(msg.Data, &body); err != nil {
			r.sendSocketError(clientID, "invalid transcript")
			return
		}
		r.Speech.Deliver(speech.Transcript{ClientID: clientID, Text: body.Text, Final: body.Final})

	case socketListen:
		if r.Speech == nil {
			r.sendSocketError(clientID, "speech is not enabled")
			return
		}
		var body socketChatRequest
		if err := json.Unmarshal(msg.Data, &body); err != nil || body.SessionID == "" {
			r.sendSocketError(clientID, "listen requires a sessionId")
			return
		}
		r.listen(clientID, body.SessionID)

	case socketStopListening:
		if r.Speech != nil {
			r.Speech.StopListening()
		}

	default:
		log.Debug().Str("client", clientID).Str("type", msg.Type).Msg("Ignoring unknown websocket message")
	}
}

// listen starts recognition and submits the first final transcript from
// clientID as a chat message.
func (r *Router) listen(clientID, sessionID string) {
	err := r.Speech.StartListening(clientID, func(t speech.Transcript) {
		if !t.Final {
			return
		}
		r.Speech.StopListening()
		r.sendChat(clientID, sessionID, t.Text)
	})
	if errors.Is(err, speech.ErrAlreadyListening) {
		r.sendSocketError(clientID, "already listening")
	} else if err != nil {
		r.sendSocketError(clientID, err.Error())
	}
}

func (r *Router) sendChat(clientID, sessionID, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), socketChatTimeout)
	defer cancel()

	turn, err := r.Chat.Send(ctx, sessionID, text)
	if err != nil {
		log.Warn().Err(err).Str("client", clientID).Str("session", sessionID).Msg("Websocket chat message failed")
		r.sendSocketError(clientID, err.Error())
		return
	}
	if err := r.Hub.SendTo(clientID, socketChat, turn); err != nil {
		log.Debug().Err(err).Str("client", clientID).Msg("Client gone before chat reply")
	}
}

func (r *Router) sendSocketError(clientID, message string) {
	if r.Hub == nil {
		return
	}
	if err := r.Hub.SendTo(clientID, socketError, map[string]string{"message": message}); err != nil {
		log.Debug().Err(err).Str("client", clientID).Msg("Failed to send websocket error")
	}
}
