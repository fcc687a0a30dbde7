package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/cropwatch/cropwatch/internal/errors"
	"github.com/cropwatch/cropwatch/internal/farm"
	"github.com/cropwatch/cropwatch/internal/history"
)

var testNow = time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC)

type fakeFarm struct {
	snap farm.MetricsSnapshot
}

func (f fakeFarm) Snapshot() farm.MetricsSnapshot { return f.snap }

func (f fakeFarm) Fields() []farm.CropField {
	return []farm.CropField{
		{ID: "1", Name: "North Field", Crop: "Wheat", HealthScore: 92, GrowthStage: "Flowering", AreaAcres: 45, NDVI: 0.82, Status: "excellent", LastScanned: testNow},
		{ID: "4", Name: "West Field", Crop: "Rice", HealthScore: 34, GrowthStage: "Maturity", AreaAcres: 38, NDVI: 0.32, Status: "critical", LastScanned: testNow},
	}
}

func (f fakeFarm) Zones() []farm.SoilZone {
	return []farm.SoilZone{{Name: "North Field Zone A", Moisture: 72, PH: 6.9, Nitrogen: 45, Status: "excellent"}}
}

func (f fakeFarm) PestAlerts() []farm.PestAlert {
	return []farm.PestAlert{
		{ID: "1", Type: "Aphids", Severity: farm.RiskHigh, Zone: "Field Zone A", Confidence: 94, Detected: testNow, Treatment: "Neem oil spray recommended within 24 hours"},
	}
}

type fakeStats struct {
	stats []history.Stats
	err   error
	start time.Time
	end   time.Time
}

func (f *fakeStats) Summary(_ context.Context, start, end time.Time) ([]history.Stats, error) {
	f.start, f.end = start, end
	return f.stats, f.err
}

func sampleStats() []history.Stats {
	return []history.Stats{
		{Metric: history.MetricMoisture, Count: 12, Min: 61, Max: 72.5, Avg: 67.25, Current: 68},
		{Metric: history.MetricPH, Count: 12, Min: 6.7, Max: 6.9, Avg: 6.8, Current: 6.8},
		{Metric: history.MetricCropHealth, Count: 12, Min: 75, Max: 80, Avg: 78, Current: 78},
		{Metric: history.MetricPestAlerts, Count: 12, Min: 2, Max: 4, Avg: 3, Current: 3},
	}
}

func collect(t *testing.T, id string, snap farm.MetricsSnapshot) *ReportData {
	t.Helper()
	r, err := Lookup(id)
	require.NoError(t, err)
	data, err := Collect(context.Background(), r, fakeFarm{snap: snap}, &fakeStats{stats: sampleStats()}, testNow)
	require.NoError(t, err)
	return data
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ReportFormat
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{"PDF", FormatPDF, false},
		{" pdf ", FormatPDF, false},
		{"", FormatCSV, false},
		{"xlsx", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseFormat(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnknownFormat)
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Equal(t, "text/csv", FormatCSV.ContentType())
}

func TestCatalog(t *testing.T) {
	reports := Catalog()
	require.Len(t, reports, 4)
	assert.Equal(t, "Weekly Crop Health Summary", reports[0].Title)
	assert.Equal(t, "Monthly Performance Analytics", reports[3].Title)

	reports[0].Title = "changed"
	assert.Equal(t, "Weekly Crop Health Summary", Catalog()[0].Title)

	_, err := Lookup("missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFilename(t *testing.T) {
	r, err := Lookup("soil-analysis")
	require.NoError(t, err)
	assert.Equal(t, "soil-analysis-2024-03-14.pdf", Filename(r, FormatPDF))
}

func TestCollect(t *testing.T) {
	snap := farm.SampleSnapshot()
	snap.Soil.Nitrogen = 30
	src := &fakeStats{stats: sampleStats()}

	r, err := Lookup("monthly-performance")
	require.NoError(t, err)
	data, err := Collect(context.Background(), r, fakeFarm{snap: snap}, src, testNow)
	require.NoError(t, err)

	assert.Equal(t, []string{"low nitrogen levels"}, data.Issues)
	assert.Contains(t, data.Recommendations, "Apply nitrogen-rich fertilizer or compost")
	assert.Contains(t, data.Recommendations, "Increase pest scouting to twice weekly")
	assert.Equal(t, testNow.Add(-DefaultWindow), src.start)
	assert.Equal(t, testNow, src.end)
	assert.Len(t, data.Stats, 4)
}

func TestCollectWithoutHistory(t *testing.T) {
	r, err := Lookup("soil-analysis")
	require.NoError(t, err)
	data, err := Collect(context.Background(), r, fakeFarm{snap: farm.SampleSnapshot()}, nil, testNow)
	require.NoError(t, err)
	assert.Empty(t, data.Stats)
}

func TestCollectHistoryError(t *testing.T) {
	r, err := Lookup("soil-analysis")
	require.NoError(t, err)
	_, err = Collect(context.Background(), r, fakeFarm{snap: farm.SampleSnapshot()}, &fakeStats{err: errors.New("db closed")}, testNow)
	assert.ErrorContains(t, err, "db closed")
}

func readCSV(t *testing.T, out []byte) [][]string {
	t.Helper()
	r := csv.NewReader(bytes.NewReader(out))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func hasRow(rows [][]string, first string) bool {
	for _, row := range rows {
		if len(row) > 0 && row[0] == first {
			return true
		}
	}
	return false
}

func TestCSVSoilReport(t *testing.T) {
	out, err := NewCSVGenerator().Generate(collect(t, "soil-analysis", farm.SampleSnapshot()))
	require.NoError(t, err)
	rows := readCSV(t, out)

	assert.Equal(t, []string{"# CropWatch Farm Report"}, rows[0])
	assert.Equal(t, []string{"# Title:", "Soil Analysis Report"}, rows[1])
	assert.True(t, hasRow(rows, "Soil Moisture"))
	assert.True(t, hasRow(rows, "# HISTORY"))
	assert.False(t, hasRow(rows, "# FIELDS"))
	assert.False(t, hasRow(rows, "# PEST ALERTS"))
	assert.False(t, hasRow(rows, "Crop Health"))
	assert.Contains(t, string(out), "Issue,No major issues detected")
}

func TestCSVPestReport(t *testing.T) {
	out, err := NewCSVGenerator().Generate(collect(t, "pest-risk", farm.SampleSnapshot()))
	require.NoError(t, err)
	rows := readCSV(t, out)

	assert.True(t, hasRow(rows, "# PEST ALERTS"))
	assert.True(t, hasRow(rows, "Aphids"))
	assert.True(t, hasRow(rows, "Pest Alerts"))
	assert.False(t, hasRow(rows, "Soil Moisture"))
	assert.Contains(t, string(out), "Aphid; Cutworm; Spider Mite")
}

func TestCSVPerformanceReportHasAllSections(t *testing.T) {
	out, err := NewCSVGenerator().Generate(collect(t, "monthly-performance", farm.SampleSnapshot()))
	require.NoError(t, err)
	rows := readCSV(t, out)

	for _, section := range []string{"# CURRENT READINGS", "# HISTORY", "# FIELDS", "# PEST ALERTS", "# ANALYSIS"} {
		assert.True(t, hasRow(rows, section), section)
	}
}

func TestPDFGenerate(t *testing.T) {
	for _, r := range Catalog() {
		t.Run(r.ID, func(t *testing.T) {
			out, err := NewPDFGenerator().Generate(collect(t, r.ID, farm.SampleSnapshot()))
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
			assert.Greater(t, len(out), 1000)
		})
	}
}

func TestEngineGenerate(t *testing.T) {
	e := NewEngine()
	data := collect(t, "weekly-crop-health", farm.SampleSnapshot())

	out, contentType, err := e.Generate(data, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.True(t, strings.HasPrefix(string(out), "# CropWatch Farm Report"))

	_, _, err = e.Generate(data, "xlsx")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, _, err = e.Generate(nil, FormatPDF)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestOverallStatus(t *testing.T) {
	healthy := &ReportData{Snapshot: farm.MetricsSnapshot{Soil: farm.DefaultSoilData}}
	status, _, _ := overallStatus(healthy)
	assert.Equal(t, "HEALTHY", status)

	high := farm.SampleSnapshot()
	high.Pest.RiskLevel = farm.RiskHigh
	status, _, _ = overallStatus(&ReportData{Snapshot: high})
	assert.Equal(t, "CRITICAL", status)

	status, _, msg := overallStatus(&ReportData{Snapshot: farm.SampleSnapshot(), Issues: []string{"a", "b"}})
	assert.Equal(t, "ATTENTION", status)
	assert.Equal(t, "2 soil issues detected - review recommended", msg)
}

func TestFilterStats(t *testing.T) {
	names := func(stats []history.Stats) []string {
		var out []string
		for _, s := range stats {
			out = append(out, s.Metric)
		}
		return out
	}
	all := sampleStats()
	assert.Equal(t, []string{"moisture", "ph"}, names(filterStats(all, KindSoil)))
	assert.Equal(t, []string{"crop_health"}, names(filterStats(all, KindCropHealth)))
	assert.Equal(t, []string{"pest_alerts"}, names(filterStats(all, KindPest)))
	assert.Len(t, filterStats(all, KindPerformance), 4)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "7 days", formatDuration(7*24*time.Hour))
	assert.Equal(t, "1 day, 1 hour", formatDuration(25*time.Hour))
	assert.Equal(t, "2 hours, 1 minute", formatDuration(121*time.Minute))
	assert.Equal(t, "5 minutes", formatDuration(5*time.Minute))
}
