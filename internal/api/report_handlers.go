package api

import (
	"fmt"
	"net/http"

	"github.com/cropwatch/cropwatch/pkg/reporting"
)

func (r *Router) handleListReports(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reporting.Catalog(),
	})
}

// handleExportReport renders a catalog report as a CSV or PDF download.
func (r *Router) handleExportReport(w http.ResponseWriter, req *http.Request) {
	report, err := reporting.Lookup(req.PathValue("id"))
	if err != nil {
		writeError(w, req, err)
		return
	}

	format, err := reporting.ParseFormat(req.URL.Query().Get("format"))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_format", "Format must be 'pdf' or 'csv'")
		return
	}

	data, err := reporting.Collect(req.Context(), report, r.Provider, r.History, r.Now())
	if err != nil {
		writeError(w, req, err)
		return
	}

	out, contentType, err := r.Reports.Generate(data, format)
	if err != nil {
		writeError(w, req, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reporting.Filename(report, format)))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}
