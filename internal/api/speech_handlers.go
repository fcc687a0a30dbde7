package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cropwatch/cropwatch/internal/farm"
	"github.com/cropwatch/cropwatch/internal/speech"
	"github.com/cropwatch/cropwatch/internal/utils"
	"github.com/cropwatch/cropwatch/pkg/reporting"
)

// AnnounceRequest names the page whose summary should be read aloud.
type AnnounceRequest struct {
	Page string `json:"page"`
}

var pageTitles = map[string]string{
	"dashboard": "Dashboard",
	"crops":     "Crop Health Monitoring",
	"soil":      "Soil Condition Monitoring",
	"pests":     "Pest Management",
	"reports":   "Reports & Analytics",
	"settings":  "Settings",
}

// pageStats lists the key figures announced for page.
func pageStats(page string, snap farm.MetricsSnapshot) []string {
	full := snap.WithDefaults()
	num := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

	switch page {
	case "dashboard":
		return []string{
			fmt.Sprintf("Soil moisture %s%%", num(full.Soil.Moisture)),
			fmt.Sprintf("Crop health %s%%", num(full.Crop.AvgHealthScore)),
			fmt.Sprintf("Active pest alerts %d", full.Pest.ActiveAlerts),
			fmt.Sprintf("Fields at risk %d", full.Crop.FieldsAtRisk),
		}
	case "crops":
		return []string{
			fmt.Sprintf("Average health score %s%%", num(full.Crop.AvgHealthScore)),
			fmt.Sprintf("NDVI average %s", num(full.Crop.NDVIAverage)),
			fmt.Sprintf("Total fields %d", full.Crop.TotalFields),
			fmt.Sprintf("Fields at risk %d", full.Crop.FieldsAtRisk),
		}
	case "soil":
		return []string{
			fmt.Sprintf("Moisture %s%%", num(full.Soil.Moisture)),
			fmt.Sprintf("pH %s", num(full.Soil.PH)),
			fmt.Sprintf("Nitrogen %s ppm", num(full.Soil.Nitrogen)),
			fmt.Sprintf("Temperature %s degrees", num(full.Soil.Temperature)),
		}
	case "pests":
		return []string{
			fmt.Sprintf("Active alerts %d", full.Pest.ActiveAlerts),
			fmt.Sprintf("Risk level %s", full.Pest.RiskLevel),
			"Recently detected " + strings.Join(full.Pest.RecentPests, ", "),
		}
	case "reports":
		return []string{fmt.Sprintf("%d reports available", len(reporting.Catalog()))}
	}
	return nil
}

func (r *Router) handleAnnounce(w http.ResponseWriter, req *http.Request) {
	var body AnnounceRequest
	if err := utils.DecodeJSONBody(w, req, &body); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_body", "Request body must be JSON")
		return
	}

	page := strings.ToLower(strings.TrimSpace(body.Page))
	title, ok := pageTitles[page]
	if !ok {
		writeErrorResponse(w, http.StatusBadRequest, "unknown_page", fmt.Sprintf("Unknown page %q", body.Page))
		return
	}

	text := speech.Announcement(title, pageStats(page, r.Provider.Snapshot()))
	spoken := false
	if r.Speech != nil {
		if err := r.Speech.Speak(req.Context(), text); err != nil {
			writeError(w, req, err)
			return
		}
		spoken = true
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"text":   text,
		"spoken": spoken,
	})
}
