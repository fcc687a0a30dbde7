package api

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/cropwatch/cropwatch/internal/errors"
	"github.com/cropwatch/cropwatch/internal/logging"
	"github.com/cropwatch/cropwatch/internal/metrics"
)

// unmatchedRoute labels requests no route pattern accepted.
const unmatchedRoute = "unmatched"

// APIError is the JSON body of every error response.
type APIError struct {
	ErrorMessage string `json:"error"`
	Code         string `json:"code,omitempty"`
	StatusCode   int    `json:"status_code"`
	Timestamp    int64  `json:"timestamp"`
	RequestID    string `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	return e.ErrorMessage
}

// ErrorHandler serves mux with request IDs, panic recovery and per-route
// request metrics. Routes are labelled by the pattern mux matched.
func ErrorHandler(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The hub hijacks the connection.
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			mux.ServeHTTP(w, r)
			return
		}

		ctx, requestID := logging.WithRequestID(r.Context(), r.Header.Get("X-Request-ID"))
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK, requestID: requestID}
		rw.Header().Set("X-Request-ID", requestID)

		_, route := mux.Handler(r)
		if route == "" {
			route = unmatchedRoute
		}
		start := time.Now()

		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("route", route).
					Str("request_id", requestID).
					Bytes("stack", debug.Stack()).
					Msg("Panic recovered in API handler")
				writeErrorResponse(rw, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
			}
			metrics.RecordHTTPRequest(r.Method, route, rw.statusCode, time.Since(start))

			if rw.statusCode >= 400 {
				log.Warn().
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Int("status", rw.statusCode).
					Str("request_id", requestID).
					Msg("Request failed")
			}
		}()

		mux.ServeHTTP(rw, r)
	})
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	resp := APIError{
		ErrorMessage: message,
		Code:         code,
		StatusCode:   statusCode,
		Timestamp:    time.Now().Unix(),
	}
	if rw, ok := w.(*responseWriter); ok {
		resp.RequestID = rw.requestID
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("Failed to encode error response")
	}
}

// writeError maps err to a status and error code. Internal errors are logged
// and replaced with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request error")
		message = "An unexpected error occurred"
	}
	writeErrorResponse(w, status, apperrors.Code(err), message)
}

// responseWriter records the status code and carries the request ID into
// error bodies.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
	requestID  string
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.ResponseWriter.WriteHeader(code)
		rw.written = true
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
