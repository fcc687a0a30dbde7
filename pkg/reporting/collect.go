package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/cropwatch/cropwatch/internal/assistant"
	"github.com/cropwatch/cropwatch/internal/farm"
	"github.com/cropwatch/cropwatch/internal/history"
)

// DefaultWindow is the history span covered by a report.
const DefaultWindow = 7 * 24 * time.Hour

// FarmSource supplies current farm data.
type FarmSource interface {
	Snapshot() farm.MetricsSnapshot
	Fields() []farm.CropField
	Zones() []farm.SoilZone
	PestAlerts() []farm.PestAlert
}

// StatsSource summarizes stored readings.
type StatsSource interface {
	Summary(ctx context.Context, start, end time.Time) ([]history.Stats, error)
}

// Collect gathers report data for r. stats may be nil when no history is kept.
func Collect(ctx context.Context, r Report, src FarmSource, stats StatsSource, now time.Time) (*ReportData, error) {
	snap := src.Snapshot()
	analysis := assistant.Analyze(snap)

	data := &ReportData{
		Report:          r,
		Snapshot:        snap,
		Fields:          src.Fields(),
		Zones:           src.Zones(),
		PestAlerts:      src.PestAlerts(),
		Issues:          analysis.Issues,
		Recommendations: assistant.Priorities(snap, assistant.FeaturesFor(snap)),
		Start:           now.Add(-DefaultWindow),
		End:             now,
		GeneratedAt:     now,
	}

	if stats != nil {
		summary, err := stats.Summary(ctx, data.Start, data.End)
		if err != nil {
			return nil, fmt.Errorf("summarize history: %w", err)
		}
		data.Stats = summary
	}
	return data, nil
}
