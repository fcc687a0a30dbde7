package reporting

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"
)

// CSVGenerator handles CSV report generation.
type CSVGenerator struct{}

// NewCSVGenerator creates a new CSV generator.
func NewCSVGenerator() *CSVGenerator {
	return &CSVGenerator{}
}

// Generate creates a CSV report from the provided data.
func (g *CSVGenerator) Generate(data *ReportData) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	sections := []struct {
		name  string
		write func(*csv.Writer, *ReportData) error
	}{
		{"header", g.writeHeader},
		{"readings", g.writeReadings},
		{"history", g.writeHistory},
		{"fields", g.writeFields},
		{"pests", g.writePests},
		{"analysis", g.writeAnalysis},
	}
	for _, s := range sections {
		if err := s.write(w, data); err != nil {
			return nil, fmt.Errorf("write CSV %s section: %w", s.name, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("CSV write error: %w", err)
	}

	return buf.Bytes(), nil
}

func writeRows(w *csv.Writer, rows [][]string) error {
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row %q: %w", row[0], err)
		}
	}
	return nil
}

func (g *CSVGenerator) writeHeader(w *csv.Writer, data *ReportData) error {
	return writeRows(w, [][]string{
		{"# CropWatch Farm Report"},
		{"# Title:", data.Report.Title},
		{"# Type:", data.Report.Type},
		{"# Period:", fmt.Sprintf("%s to %s", data.Start.Format(time.RFC3339), data.End.Format(time.RFC3339))},
		{"# Generated:", data.GeneratedAt.Format(time.RFC3339)},
		{""},
	})
}

func (g *CSVGenerator) writeReadings(w *csv.Writer, data *ReportData) error {
	snap := data.Snapshot.WithDefaults()
	rows := [][]string{{"# CURRENT READINGS"}, {"Metric", "Value", "Unit"}}

	if data.Report.Kind.includes(KindSoil) {
		s := snap.Soil
		rows = append(rows,
			[]string{"Soil Moisture", formatValue(s.Moisture), "%"},
			[]string{"Soil Temperature", formatValue(s.Temperature), "°C"},
			[]string{"pH", formatValue(s.PH), ""},
			[]string{"Nitrogen", formatValue(s.Nitrogen), "ppm"},
			[]string{"Phosphorus", formatValue(s.Phosphorus), "ppm"},
			[]string{"Potassium", formatValue(s.Potassium), "ppm"},
		)
	}
	if data.Report.Kind.includes(KindCropHealth) {
		c := snap.Crop
		rows = append(rows,
			[]string{"Total Fields", fmt.Sprintf("%d", c.TotalFields), ""},
			[]string{"Average Health Score", formatValue(c.AvgHealthScore), "%"},
			[]string{"NDVI Average", formatValue(c.NDVIAverage), ""},
			[]string{"Fields At Risk", fmt.Sprintf("%d", c.FieldsAtRisk), ""},
		)
	}
	if data.Report.Kind.includes(KindPest) {
		p := snap.Pest
		rows = append(rows,
			[]string{"Active Pest Alerts", fmt.Sprintf("%d", p.ActiveAlerts), ""},
			[]string{"Pest Risk Level", string(p.RiskLevel), ""},
			[]string{"Recent Pests", strings.Join(p.RecentPests, "; "), ""},
		)
	}
	rows = append(rows, []string{""})
	return writeRows(w, rows)
}

func (g *CSVGenerator) writeHistory(w *csv.Writer, data *ReportData) error {
	stats := filterStats(data.Stats, data.Report.Kind)
	if len(stats) == 0 {
		return nil
	}

	rows := [][]string{{"# HISTORY"}, {"Metric", "Count", "Min", "Max", "Average", "Current", "Unit"}}
	for _, s := range stats {
		rows = append(rows, []string{
			GetMetricDisplayName(s.Metric),
			fmt.Sprintf("%d", s.Count),
			formatStat(s.Min),
			formatStat(s.Max),
			formatStat(s.Avg),
			formatStat(s.Current),
			GetMetricUnit(s.Metric),
		})
	}
	rows = append(rows, []string{""})
	return writeRows(w, rows)
}

func (g *CSVGenerator) writeFields(w *csv.Writer, data *ReportData) error {
	if !data.Report.Kind.includes(KindCropHealth) || len(data.Fields) == 0 {
		return nil
	}

	rows := [][]string{{"# FIELDS"}, {"Field", "Crop", "Health Score", "NDVI", "Growth Stage", "Area (acres)", "Status", "Last Scanned"}}
	for _, f := range data.Fields {
		rows = append(rows, []string{
			f.Name,
			f.Crop,
			formatValue(f.HealthScore),
			formatValue(f.NDVI),
			f.GrowthStage,
			formatValue(f.AreaAcres),
			f.Status,
			f.LastScanned.Format(time.RFC3339),
		})
	}
	rows = append(rows, []string{""})
	return writeRows(w, rows)
}

func (g *CSVGenerator) writePests(w *csv.Writer, data *ReportData) error {
	if !data.Report.Kind.includes(KindPest) || len(data.PestAlerts) == 0 {
		return nil
	}

	rows := [][]string{{"# PEST ALERTS"}, {"Pest", "Severity", "Zone", "Confidence", "Detected", "Treatment"}}
	for _, a := range data.PestAlerts {
		rows = append(rows, []string{
			a.Type,
			string(a.Severity),
			a.Zone,
			formatValue(a.Confidence),
			a.Detected.Format(time.RFC3339),
			a.Treatment,
		})
	}
	rows = append(rows, []string{""})
	return writeRows(w, rows)
}

func (g *CSVGenerator) writeAnalysis(w *csv.Writer, data *ReportData) error {
	rows := [][]string{{"# ANALYSIS"}, {"Kind", "Detail"}}
	if len(data.Issues) == 0 {
		rows = append(rows, []string{"Issue", "No major issues detected"})
	}
	for _, issue := range data.Issues {
		rows = append(rows, []string{"Issue", issue})
	}
	for _, rec := range data.Recommendations {
		rows = append(rows, []string{"Recommendation", rec})
	}
	return writeRows(w, rows)
}
