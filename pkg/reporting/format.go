package reporting

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cropwatch/cropwatch/internal/history"
)

var metricNames = map[string]string{
	history.MetricMoisture:    "Soil Moisture",
	history.MetricTemperature: "Soil Temperature",
	history.MetricPH:          "pH",
	history.MetricNitrogen:    "Nitrogen",
	history.MetricPhosphorus:  "Phosphorus",
	history.MetricPotassium:   "Potassium",
	history.MetricCropHealth:  "Crop Health",
	history.MetricPestAlerts:  "Pest Alerts",
}

var metricUnits = map[string]string{
	history.MetricMoisture:    "%",
	history.MetricTemperature: "°C",
	history.MetricNitrogen:    "ppm",
	history.MetricPhosphorus:  "ppm",
	history.MetricPotassium:   "ppm",
	history.MetricCropHealth:  "%",
}

// GetMetricDisplayName returns a human-readable metric name.
func GetMetricDisplayName(metric string) string {
	if name, ok := metricNames[metric]; ok {
		return name
	}
	return metric
}

// GetMetricUnit returns the unit suffix for metric, or "".
func GetMetricUnit(metric string) string {
	return metricUnits[metric]
}

func soilMetric(metric string) bool {
	switch metric {
	case history.MetricCropHealth, history.MetricPestAlerts:
		return false
	}
	return true
}

// filterStats keeps the history stats relevant to kind.
func filterStats(stats []history.Stats, kind Kind) []history.Stats {
	out := make([]history.Stats, 0, len(stats))
	for _, s := range stats {
		switch {
		case kind == KindPerformance:
		case kind == KindSoil && soilMetric(s.Metric):
		case kind == KindCropHealth && s.Metric == history.MetricCropHealth:
		case kind == KindPest && s.Metric == history.MetricPestAlerts:
		default:
			continue
		}
		out = append(out, s)
	}
	return out
}

// formatValue formats a reading without trailing zeros.
func formatValue(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatStat(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	if hours >= 24 {
		days := hours / 24
		remainingHours := hours % 24
		dayWord := "days"
		if days == 1 {
			dayWord = "day"
		}
		if remainingHours > 0 {
			hourWord := "hours"
			if remainingHours == 1 {
				hourWord = "hour"
			}
			return fmt.Sprintf("%d %s, %d %s", days, dayWord, remainingHours, hourWord)
		}
		return fmt.Sprintf("%d %s", days, dayWord)
	}
	if hours > 0 {
		minutes := int(d.Minutes()) % 60
		hourWord := "hours"
		if hours == 1 {
			hourWord = "hour"
		}
		if minutes > 0 {
			minWord := "minutes"
			if minutes == 1 {
				minWord = "minute"
			}
			return fmt.Sprintf("%d %s, %d %s", hours, hourWord, minutes, minWord)
		}
		return fmt.Sprintf("%d %s", hours, hourWord)
	}
	minutes := int(d.Minutes())
	minWord := "minutes"
	if minutes == 1 {
		minWord = "minute"
	}
	return fmt.Sprintf("%d %s", minutes, minWord)
}
