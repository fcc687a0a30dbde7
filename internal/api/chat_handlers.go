package api

import (
	"errors"
	"net/http"

	"github.com/cropwatch/cropwatch/internal/assistant"
	"github.com/cropwatch/cropwatch/internal/chat"
	apperrors "github.com/cropwatch/cropwatch/internal/errors"
	"github.com/cropwatch/cropwatch/internal/metrics"
	"github.com/cropwatch/cropwatch/internal/utils"
)

// SendMessageRequest is the body of a chat submission.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// UpdateSessionRequest changes widget state. Nil fields are left alone.
type UpdateSessionRequest struct {
	Open      *bool `json:"open,omitempty"`
	Minimized *bool `json:"minimized,omitempty"`
}

func (r *Router) handleRespond(w http.ResponseWriter, req *http.Request) {
	var body assistant.Request
	if err := utils.DecodeJSONBody(w, req, &body); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_body", "Request body must be JSON")
		return
	}

	reply, err := assistant.Answer(body, r.Provider.Snapshot())
	if err != nil {
		if errors.Is(err, assistant.ErrEmptyQuestion) {
			writeErrorResponse(w, http.StatusBadRequest, "empty_message", "Message must not be empty")
			return
		}
		writeError(w, req, err)
		return
	}

	metrics.RecordAssistantResponse(string(reply.Topic), "http")
	writeJSON(w, http.StatusOK, reply)
}

func (r *Router) handleCreateSession(w http.ResponseWriter, req *http.Request) {
	sess, err := r.Chat.NewSession(req.Context())
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (r *Router) handleGetSession(w http.ResponseWriter, req *http.Request) {
	sess, err := r.Chat.Session(req.Context(), req.PathValue("id"))
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (r *Router) handleUpdateSession(w http.ResponseWriter, req *http.Request) {
	var body UpdateSessionRequest
	if err := utils.DecodeJSONBody(w, req, &body); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_body", "Request body must be JSON")
		return
	}

	ctx := req.Context()
	id := req.PathValue("id")
	sess, err := r.Chat.Session(ctx, id)
	if err == nil && body.Open != nil {
		if *body.Open {
			sess, err = r.Chat.Open(ctx, id)
		} else {
			sess, err = r.Chat.Close(ctx, id)
		}
	}
	if err == nil && body.Minimized != nil {
		sess, err = r.Chat.SetMinimized(ctx, id, *body.Minimized)
	}
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (r *Router) handleToggleSession(w http.ResponseWriter, req *http.Request) {
	sess, err := r.Chat.Toggle(req.Context(), req.PathValue("id"))
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (r *Router) handleDeleteSession(w http.ResponseWriter, req *http.Request) {
	if err := r.Chat.End(req.Context(), req.PathValue("id")); err != nil {
		writeError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleSendMessage(w http.ResponseWriter, req *http.Request) {
	var body SendMessageRequest
	if err := utils.DecodeJSONBody(w, req, &body); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_body", "Request body must be JSON")
		return
	}

	turn, err := r.Chat.Send(req.Context(), req.PathValue("id"), body.Text)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			writeErrorResponse(w, http.StatusBadRequest, "empty_message", "Message must not be empty")
			return
		}
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func (r *Router) handlePrompts(w http.ResponseWriter, req *http.Request) {
	features := assistant.FeaturesFor(r.Provider.Snapshot())
	if id := req.URL.Query().Get("session"); id != "" {
		sess, err := r.Chat.Session(req.Context(), id)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				writeError(w, req, err)
				return
			}
		} else {
			features = sess.Features
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"prompts":  assistant.Prompts(features),
		"features": features,
	})
}
