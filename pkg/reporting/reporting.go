// Package reporting renders farm reports as CSV or PDF.
package reporting

import (
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/cropwatch/cropwatch/internal/errors"
	"github.com/cropwatch/cropwatch/internal/farm"
	"github.com/cropwatch/cropwatch/internal/history"
	"github.com/cropwatch/cropwatch/internal/metrics"
)

// ReportFormat represents the output format of a report
type ReportFormat string

const (
	FormatCSV ReportFormat = "csv"
	FormatPDF ReportFormat = "pdf"
)

var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat validates a format name. An empty name selects CSV.
func ParseFormat(s string) (ReportFormat, error) {
	switch ReportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV, "":
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", apperrors.Invalid("report.format", fmt.Errorf("%w: %q", ErrUnknownFormat, s))
	}
}

// ContentType returns the MIME type for f.
func (f ReportFormat) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// Kind selects which sections a report contains.
type Kind string

const (
	KindCropHealth  Kind = "crop_health"
	KindSoil        Kind = "soil"
	KindPest        Kind = "pest"
	KindPerformance Kind = "performance"
)

func (k Kind) includes(section Kind) bool {
	return k == KindPerformance || k == section
}

// Report is an entry in the report catalog.
type Report struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	Kind        Kind      `json:"kind"`
	Date        time.Time `json:"date"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
}

var catalog = []Report{
	{
		ID:          "weekly-crop-health",
		Title:       "Weekly Crop Health Summary",
		Type:        "Crop Health",
		Kind:        KindCropHealth,
		Date:        time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
		Status:      "completed",
		Description: "Comprehensive analysis of crop conditions across all field zones",
	},
	{
		ID:          "soil-analysis",
		Title:       "Soil Analysis Report",
		Type:        "Soil Condition",
		Kind:        KindSoil,
		Date:        time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC),
		Status:      "completed",
		Description: "Detailed soil composition and nutrient level analysis",
	},
	{
		ID:          "pest-risk",
		Title:       "Pest Risk Assessment",
		Type:        "Pest Management",
		Kind:        KindPest,
		Date:        time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC),
		Status:      "completed",
		Description: "Current pest threat levels and recommended interventions",
	},
	{
		ID:          "monthly-performance",
		Title:       "Monthly Performance Analytics",
		Type:        "Performance",
		Kind:        KindPerformance,
		Date:        time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		Status:      "completed",
		Description: "Farm productivity metrics and trend analysis for February",
	},
}

// Catalog returns the available reports, newest first.
func Catalog() []Report {
	return append([]Report(nil), catalog...)
}

// Lookup finds a catalog entry by id.
func Lookup(id string) (Report, error) {
	for _, r := range catalog {
		if r.ID == id {
			return r, nil
		}
	}
	return Report{}, apperrors.NotFound("report.lookup", id, errors.New("no such report"))
}

// ReportData is everything a generator renders.
type ReportData struct {
	Report          Report
	Snapshot        farm.MetricsSnapshot
	Stats           []history.Stats
	Fields          []farm.CropField
	Zones           []farm.SoilZone
	PestAlerts      []farm.PestAlert
	Issues          []string
	Recommendations []string
	Start           time.Time
	End             time.Time
	GeneratedAt     time.Time
}

// Generator renders report data in one format.
type Generator interface {
	Generate(data *ReportData) ([]byte, error)
}

// Engine renders reports in any supported format.
type Engine struct {
	generators map[ReportFormat]Generator
}

// NewEngine returns an engine with the CSV and PDF generators.
func NewEngine() *Engine {
	return &Engine{generators: map[ReportFormat]Generator{
		FormatCSV: NewCSVGenerator(),
		FormatPDF: NewPDFGenerator(),
	}}
}

// Generate renders data in format.
func (e *Engine) Generate(data *ReportData, format ReportFormat) (out []byte, contentType string, err error) {
	gen, ok := e.generators[format]
	if !ok {
		return nil, "", apperrors.Invalid("report.generate", fmt.Errorf("%w: %q", ErrUnknownFormat, format))
	}
	if data == nil {
		return nil, "", apperrors.Invalid("report.generate", errors.New("report data is required"))
	}

	out, err = gen.Generate(data)
	if err != nil {
		return nil, "", fmt.Errorf("generate %s report %s: %w", format, data.Report.ID, err)
	}
	metrics.RecordReportGenerated(string(format))
	return out, format.ContentType(), nil
}

// Filename returns a download name such as soil-analysis-2024-03-14.pdf.
func Filename(r Report, format ReportFormat) string {
	return fmt.Sprintf("%s-%s.%s", r.ID, r.Date.Format("2006-01-02"), format)
}
