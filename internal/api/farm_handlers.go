package api

import (
	"net/http"

	"github.com/cropwatch/cropwatch/internal/assistant"
	"github.com/cropwatch/cropwatch/internal/farm"
	"github.com/cropwatch/cropwatch/internal/mock"
)

// DashboardResponse is the dashboard page payload.
type DashboardResponse struct {
	mock.Dashboard
	Analysis assistant.Analysis `json:"analysis"`
}

// CropsResponse is the crop health page payload.
type CropsResponse struct {
	Summary *farm.CropData   `json:"summary"`
	Fields  []farm.CropField `json:"fields"`
}

// SoilResponse is the soil page payload.
type SoilResponse struct {
	Soil     farm.SoilData      `json:"soil"`
	Zones    []farm.SoilZone    `json:"zones"`
	Analysis assistant.Analysis `json:"analysis"`
}

// PestsResponse is the pest management page payload.
type PestsResponse struct {
	Summary *farm.PestData   `json:"summary"`
	Alerts  []farm.PestAlert `json:"alerts"`
}

func (r *Router) handleDashboard(w http.ResponseWriter, req *http.Request) {
	d := r.Provider.Dashboard()
	writeJSON(w, http.StatusOK, DashboardResponse{
		Dashboard: d,
		Analysis:  assistant.Analyze(d.Snapshot),
	})
}

// handleCrops serves field health. Summary is null when crop data is withheld.
func (r *Router) handleCrops(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, CropsResponse{
		Summary: r.Provider.Snapshot().Crop,
		Fields:  r.Provider.Fields(),
	})
}

func (r *Router) handleSoil(w http.ResponseWriter, req *http.Request) {
	snap := r.Provider.Snapshot()
	writeJSON(w, http.StatusOK, SoilResponse{
		Soil:     snap.Soil,
		Zones:    r.Provider.Zones(),
		Analysis: assistant.Analyze(snap),
	})
}

func (r *Router) handlePests(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, PestsResponse{
		Summary: r.Provider.Snapshot().Pest,
		Alerts:  r.Provider.PestAlerts(),
	})
}
