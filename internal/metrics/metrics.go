package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cropwatch/cropwatch/internal/farm"
)

var (
	// Assistant metrics
	AssistantResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropwatch_assistant_responses_total",
			Help: "Total number of assistant answers by topic and source",
		},
		[]string{"topic", "source"}, // source: chat, api, nats, cli
	)

	// Chat session metrics
	ChatSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cropwatch_chat_sessions_active",
			Help: "Number of live chat sessions",
		},
	)

	ChatSessionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cropwatch_chat_sessions_created_total",
			Help: "Total number of chat sessions started",
		},
	)

	ChatMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropwatch_chat_messages_total",
			Help: "Total number of chat messages by author",
		},
		[]string{"author"},
	)

	ChatMessagesRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cropwatch_chat_messages_rejected_total",
			Help: "Total number of blank chat submissions ignored",
		},
	)

	// Realtime metrics
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cropwatch_websocket_clients",
			Help: "Number of connected websocket clients",
		},
	)

	SpeechEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropwatch_speech_events_total",
			Help: "Total number of speech events by kind",
		},
		[]string{"kind"}, // speak, cancel, transcript
	)

	// Farm readings
	SoilReading = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cropwatch_soil_reading",
			Help: "Latest soil reading by metric",
		},
		[]string{"metric"},
	)

	CropHealthScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cropwatch_crop_health_score",
			Help: "Average crop health score across monitored fields",
		},
	)

	PestActiveAlerts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cropwatch_pest_active_alerts",
			Help: "Number of active pest alerts",
		},
	)

	// HTTP API metrics, labelled by the matched route pattern
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cropwatch_http_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropwatch_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	ReportsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropwatch_reports_generated_total",
			Help: "Total number of reports exported by format",
		},
		[]string{"format"},
	)
)

// RecordAssistantResponse records one answered message.
func RecordAssistantResponse(topic, source string) {
	AssistantResponsesTotal.WithLabelValues(topic, source).Inc()
}

// RecordChatSessionCreated records a new session and the resulting live count.
func RecordChatSessionCreated(active int) {
	ChatSessionsCreatedTotal.Inc()
	ChatSessionsActive.Set(float64(active))
}

// SetChatSessionsActive updates the live session gauge.
func SetChatSessionsActive(active int) {
	ChatSessionsActive.Set(float64(active))
}

// RecordChatMessage records a message appended to a session.
func RecordChatMessage(author string) {
	ChatMessagesTotal.WithLabelValues(author).Inc()
}

// RecordChatMessageRejected records an ignored blank submission.
func RecordChatMessageRejected() {
	ChatMessagesRejectedTotal.Inc()
}

// SetWebsocketClients updates the connected client gauge.
func SetWebsocketClients(n int) {
	WebsocketClients.Set(float64(n))
}

// RecordSpeechEvent records a speech event sent to or received from browsers.
func RecordSpeechEvent(kind string) {
	SpeechEventsTotal.WithLabelValues(kind).Inc()
}

// RecordHTTPRequest records one served request. route is the mux pattern
// that matched, never the raw path.
func RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	HTTPRequestDuration.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
}

// RecordReportGenerated records an exported report.
func RecordReportGenerated(format string) {
	ReportsGeneratedTotal.WithLabelValues(format).Inc()
}

// RecordSnapshot publishes the latest farm readings as gauges.
func RecordSnapshot(s farm.MetricsSnapshot) {
	SoilReading.WithLabelValues("moisture").Set(s.Soil.Moisture)
	SoilReading.WithLabelValues("temperature").Set(s.Soil.Temperature)
	SoilReading.WithLabelValues("ph").Set(s.Soil.PH)
	SoilReading.WithLabelValues("nitrogen").Set(s.Soil.Nitrogen)
	SoilReading.WithLabelValues("phosphorus").Set(s.Soil.Phosphorus)
	SoilReading.WithLabelValues("potassium").Set(s.Soil.Potassium)

	if s.Crop != nil {
		CropHealthScore.Set(s.Crop.AvgHealthScore)
	}
	if s.Pest != nil {
		PestActiveAlerts.Set(float64(s.Pest.ActiveAlerts))
	}
}
