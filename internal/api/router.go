// Package api serves the CropWatch REST API and the websocket endpoint.
package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cropwatch/cropwatch/internal/chat"
	"github.com/cropwatch/cropwatch/internal/config"
	"github.com/cropwatch/cropwatch/internal/mock"
	"github.com/cropwatch/cropwatch/internal/settings"
	"github.com/cropwatch/cropwatch/internal/speech"
	"github.com/cropwatch/cropwatch/internal/utils"
	"github.com/cropwatch/cropwatch/internal/websocket"
	"github.com/cropwatch/cropwatch/pkg/reporting"
)

// SpeechBridge is the speech capability the API drives.
type SpeechBridge interface {
	speech.Speaker
	speech.Listener
	Deliver(t speech.Transcript) bool
}

// Options wires the router's collaborators. History, Speech and Hub are optional.
type Options struct {
	Config   *config.Config
	Provider *mock.Provider
	Chat     *chat.Service
	History  reporting.StatsSource
	Reports  *reporting.Engine
	Settings *settings.Store
	Speech   SpeechBridge
	Hub      *websocket.Hub
	Version  string
	Build    string
	Now      func() time.Time
}

// Router handles HTTP routing
type Router struct {
	mux *http.ServeMux
	Options
	startTime time.Time
}

// NewRouter creates a new router instance
func NewRouter(opts Options) http.Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Reports == nil {
		opts.Reports = reporting.NewEngine()
	}
	r := &Router{
		mux:       http.NewServeMux(),
		Options:   opts,
		startTime: opts.Now(),
	}

	r.setupRoutes()
	if r.Hub != nil {
		r.Hub.SetHandler(r.handleSocketMessage)
		if r.Speech != nil {
			r.Hub.SetDisconnectHandler(r.Speech.Release)
		}
	}
	return ErrorHandler(r.mux)
}

// setupRoutes configures all routes
func (r *Router) setupRoutes() {
	r.mux.HandleFunc("GET /api/health", r.handleHealth)
	r.mux.HandleFunc("GET /api/version", r.handleVersion)

	// Farm data
	r.mux.HandleFunc("GET /api/dashboard", r.handleDashboard)
	r.mux.HandleFunc("GET /api/crops", r.handleCrops)
	r.mux.HandleFunc("GET /api/soil", r.handleSoil)
	r.mux.HandleFunc("GET /api/pests", r.handlePests)

	// Assistant and chat widget
	r.mux.HandleFunc("POST /api/assistant/respond", r.handleRespond)
	r.mux.HandleFunc("POST /api/chat/sessions", r.handleCreateSession)
	r.mux.HandleFunc("GET /api/chat/sessions/{id}", r.handleGetSession)
	r.mux.HandleFunc("PATCH /api/chat/sessions/{id}", r.handleUpdateSession)
	r.mux.HandleFunc("DELETE /api/chat/sessions/{id}", r.handleDeleteSession)
	r.mux.HandleFunc("POST /api/chat/sessions/{id}/messages", r.handleSendMessage)
	r.mux.HandleFunc("POST /api/chat/sessions/{id}/toggle", r.handleToggleSession)
	r.mux.HandleFunc("GET /api/chat/prompts", r.handlePrompts)

	// Reports
	r.mux.HandleFunc("GET /api/reports", r.handleListReports)
	r.mux.HandleFunc("GET /api/reports/{id}/export", r.handleExportReport)

	// Settings and speech
	r.mux.HandleFunc("GET /api/settings", r.handleGetSettings)
	r.mux.HandleFunc("PUT /api/settings", r.handleUpdateSettings)
	r.mux.HandleFunc("POST /api/speech/announce", r.handleAnnounce)

	r.mux.HandleFunc("GET /ws", r.handleWebSocket)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	if err := utils.WriteJSONStatus(w, status, data); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// handleHealth handles health check requests
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": r.Now().Unix(),
		"uptime":    r.Now().Sub(r.startTime).Seconds(),
		"mockMode":  r.Provider.IsEnabled(),
	}
	if r.Hub != nil {
		health["websocketClients"] = r.Hub.GetClientCount()
	}
	writeJSON(w, http.StatusOK, health)
}

// handleVersion handles version requests
func (r *Router) handleVersion(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": r.Version,
		"build":   r.Build,
		"runtime": runtime.Version(),
	})
}

func (r *Router) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	if r.Hub == nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "unavailable", "Live updates are not enabled")
		return
	}
	r.Hub.HandleWebSocket(w, req)
}
