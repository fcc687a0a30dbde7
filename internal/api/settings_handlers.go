package api

import (
	"net/http"

	"github.com/cropwatch/cropwatch/internal/utils"
)

func (r *Router) handleGetSettings(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.Settings.Get())
}

// handleUpdateSettings applies the body on top of the current settings, so
// omitted fields keep their values.
func (r *Router) handleUpdateSettings(w http.ResponseWriter, req *http.Request) {
	next := r.Settings.Get()
	if err := utils.DecodeJSONBody(w, req, &next); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_body", "Request body must be JSON")
		return
	}

	saved, err := r.Settings.Update(next)
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
