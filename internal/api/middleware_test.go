package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropwatch/cropwatch/internal/metrics"
)

func requestCount(t *testing.T, method, route string, status int) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Write(&m))
	return m.GetCounter().GetValue()
}

func TestRequestMetricsUseRoutePattern(t *testing.T) {
	h, opts := newTestRouter(t)
	sess, err := opts.Chat.NewSession(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		route  string
		status int
	}{
		{"static route", http.MethodGet, "/api/soil", "GET /api/soil", http.StatusOK},
		{"session id", http.MethodGet, "/api/chat/sessions/" + sess.ID, "GET /api/chat/sessions/{id}", http.StatusOK},
		{"numeric id", http.MethodGet, "/api/chat/sessions/12345", "GET /api/chat/sessions/{id}", http.StatusNotFound},
		{"report export", http.MethodGet, "/api/reports/soil-analysis/export?format=csv", "GET /api/reports/{id}/export", http.StatusOK},
		{"no route", http.MethodGet, "/api/nothing/42", unmatchedRoute, http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/api/soil", unmatchedRoute, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := requestCount(t, tt.method, tt.route, tt.status)

			rec := doRequest(t, h, tt.method, tt.path, "")
			require.Equal(t, tt.status, rec.Code)
			assert.Equal(t, before+1, requestCount(t, tt.method, tt.route, tt.status))
		})
	}
}

func TestErrorHandlerRecoversPanics(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /boom/{id}", func(http.ResponseWriter, *http.Request) {
		panic("sensor offline")
	})
	before := requestCount(t, http.MethodGet, "GET /boom/{id}", http.StatusInternalServerError)

	req := httptest.NewRequest(http.MethodGet, "/boom/7", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	ErrorHandler(mux).ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "internal_error", apiErr.Code)
	assert.Equal(t, "req-42", apiErr.RequestID)
	assert.Equal(t, before+1, requestCount(t, http.MethodGet, "GET /boom/{id}", http.StatusInternalServerError))
}
