package reporting

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/cropwatch/cropwatch/internal/farm"
	"github.com/cropwatch/cropwatch/internal/history"
)

// Color scheme - field green theme
var (
	colorPrimary     = [3]int{34, 94, 52}    // Deep green
	colorSecondary   = [3]int{52, 152, 219}  // Bright blue
	colorAccent      = [3]int{46, 204, 113}  // Green
	colorWarning     = [3]int{241, 196, 15}  // Yellow
	colorDanger      = [3]int{231, 76, 60}   // Red
	colorTextDark    = [3]int{44, 62, 80}    // Dark text
	colorTextMuted   = [3]int{127, 140, 141} // Muted text
	colorBackground  = [3]int{248, 249, 250} // Light gray bg
	colorTableHeader = [3]int{34, 94, 52}    // Green header
	colorTableAlt    = [3]int{241, 248, 243} // Alternating row
	colorGridLine    = [3]int{220, 220, 220} // Table grid
)

// PDFGenerator handles PDF report generation.
type PDFGenerator struct{}

// NewPDFGenerator creates a new PDF generator.
func NewPDFGenerator() *PDFGenerator {
	return &PDFGenerator{}
}

type pdfDoc struct {
	*fpdf.Fpdf
	tr   func(string) string
	data *ReportData
}

func setText(pdf *pdfDoc, c [3]int) { pdf.SetTextColor(c[0], c[1], c[2]) }
func setFill(pdf *pdfDoc, c [3]int) { pdf.SetFillColor(c[0], c[1], c[2]) }
func setDraw(pdf *pdfDoc, c [3]int) { pdf.SetDrawColor(c[0], c[1], c[2]) }

// Generate creates a PDF report from the provided data.
func (g *PDFGenerator) Generate(data *ReportData) ([]byte, error) {
	f := fpdf.New("P", "mm", "A4", "")
	f.SetMargins(20, 20, 20)
	f.SetAutoPageBreak(true, 25)
	f.SetTitle(data.Report.Title, true)
	f.SetCreator("CropWatch", true)

	pdf := &pdfDoc{Fpdf: f, tr: f.UnicodeTranslatorFromDescriptor(""), data: data}

	g.writeCoverPage(pdf)

	pdf.AddPage()
	g.addPageHeader(pdf, "Executive Summary")
	g.writeExecutiveSummary(pdf)
	g.writeReadings(pdf)

	if stats := filterStats(data.Stats, data.Report.Kind); len(stats) > 0 {
		pdf.AddPage()
		g.addPageHeader(pdf, "Trends")
		g.writeStatsCards(pdf, stats)
	}

	if data.Report.Kind.includes(KindCropHealth) && len(data.Fields) > 0 {
		g.ensureSpace(pdf, 60, "Crop Health")
		g.writeFieldsTable(pdf)
	}
	if data.Report.Kind.includes(KindSoil) && len(data.Zones) > 0 {
		g.ensureSpace(pdf, 50, "Soil Zones")
		g.writeZonesTable(pdf)
	}
	if data.Report.Kind.includes(KindPest) && len(data.PestAlerts) > 0 {
		g.ensureSpace(pdf, 50, "Pest Alerts")
		g.writePestTable(pdf)
	}

	g.ensureSpace(pdf, 60, "Recommendations")
	g.writeRecommendations(pdf)

	g.addPageNumbers(pdf)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("PDF build error: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("PDF output error: %w", err)
	}

	return buf.Bytes(), nil
}

// ensureSpace starts a new page when less than need mm remain.
func (g *PDFGenerator) ensureSpace(pdf *pdfDoc, need float64, section string) {
	_, pageHeight := pdf.GetPageSize()
	if pdf.GetY()+need > pageHeight-25 {
		pdf.AddPage()
		g.addPageHeader(pdf, section)
	}
}

func (g *PDFGenerator) writeCoverPage(pdf *pdfDoc) {
	data := pdf.data
	pdf.AddPage()

	pageWidth, pageHeight := pdf.GetPageSize()

	// Top accent bar
	setFill(pdf, colorPrimary)
	pdf.Rect(0, 0, pageWidth, 8, "F")

	pdf.SetY(50)
	pdf.SetFont("Arial", "B", 32)
	setText(pdf, colorPrimary)
	pdf.CellFormat(0, 15, "CROPWATCH", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 12)
	setText(pdf, colorTextMuted)
	pdf.CellFormat(0, 8, "Farm Monitoring", "", 1, "C", false, 0, "")

	pdf.SetY(100)
	pdf.SetFont("Arial", "B", 24)
	setText(pdf, colorTextDark)
	pdf.CellFormat(0, 12, pdf.tr(data.Report.Title), "", 1, "C", false, 0, "")

	// Report info box
	pdf.SetY(130)
	boxX := 40.0
	boxWidth := pageWidth - 80
	setFill(pdf, colorBackground)
	setDraw(pdf, colorGridLine)
	pdf.RoundedRect(boxX, pdf.GetY(), boxWidth, 40, 3, "1234", "FD")

	pdf.SetY(pdf.GetY() + 8)
	pdf.SetFont("Arial", "B", 11)
	setText(pdf, colorTextMuted)
	pdf.CellFormat(0, 7, pdf.tr(data.Report.Type), "", 1, "C", false, 0, "")

	pdf.SetX(boxX + 5)
	pdf.SetFont("Arial", "", 10)
	setText(pdf, colorTextDark)
	pdf.MultiCell(boxWidth-10, 6, pdf.tr(data.Report.Description), "", "C", false)

	pdf.SetY(200)
	pdf.SetFont("Arial", "B", 11)
	setText(pdf, colorTextMuted)
	pdf.CellFormat(0, 7, "REPORTING PERIOD", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 12)
	setText(pdf, colorTextDark)
	period := fmt.Sprintf("%s  -  %s",
		data.Start.Format("January 2, 2006 15:04"),
		data.End.Format("January 2, 2006 15:04"))
	pdf.CellFormat(0, 8, period, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	setText(pdf, colorTextMuted)
	pdf.CellFormat(0, 6, fmt.Sprintf("(%s)", formatDuration(data.End.Sub(data.Start))), "", 1, "C", false, 0, "")

	pdf.SetY(pageHeight - 50)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", data.GeneratedAt.Format("January 2, 2006 at 15:04 MST")), "", 1, "C", false, 0, "")

	// Bottom accent bar
	setFill(pdf, colorPrimary)
	pdf.Rect(0, pageHeight-8, pageWidth, 8, "F")
}

func (g *PDFGenerator) addPageHeader(pdf *pdfDoc, section string) {
	pageWidth, _ := pdf.GetPageSize()

	setDraw(pdf, colorPrimary)
	pdf.SetLineWidth(0.5)
	pdf.Line(20, 15, pageWidth-20, 15)

	pdf.SetY(18)
	pdf.SetFont("Arial", "B", 9)
	setText(pdf, colorPrimary)
	pdf.CellFormat(0, 5, "CROPWATCH FARM REPORT", "", 0, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	setText(pdf, colorTextMuted)
	pdf.CellFormat(0, 5, pdf.tr(pdf.data.Report.Title), "", 1, "R", false, 0, "")

	pdf.SetY(30)
	pdf.SetFont("Arial", "B", 18)
	setText(pdf, colorTextDark)
	pdf.CellFormat(0, 10, section, "", 1, "L", false, 0, "")

	pdf.Ln(5)
}

// overallStatus grades the farm from the analysis and pest risk.
func overallStatus(data *ReportData) (string, [3]int, string) {
	snap := data.Snapshot.WithDefaults()
	switch {
	case snap.Pest.RiskLevel == farm.RiskHigh:
		return "CRITICAL", colorDanger, "High pest risk requires immediate attention"
	case len(data.Issues) > 0:
		msg := "1 soil issue detected - review recommended"
		if len(data.Issues) > 1 {
			msg = fmt.Sprintf("%d soil issues detected - review recommended", len(data.Issues))
		}
		return "ATTENTION", colorWarning, msg
	default:
		return "HEALTHY", colorAccent, "No major issues detected"
	}
}

func (g *PDFGenerator) writeExecutiveSummary(pdf *pdfDoc) {
	pageWidth, _ := pdf.GetPageSize()
	status, color, message := overallStatus(pdf.data)

	cardX := 20.0
	cardWidth := pageWidth - 40
	setFill(pdf, color)
	pdf.RoundedRect(cardX, pdf.GetY(), cardWidth, 35, 3, "1234", "F")

	pdf.SetXY(cardX, pdf.GetY()+8)
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(cardWidth, 12, status, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(cardWidth, 8, message, "", 1, "C", false, 0, "")

	pdf.SetY(pdf.GetY() + 15)

	snap := pdf.data.Snapshot.WithDefaults()
	stats := []struct {
		label, value string
		ok           bool
	}{
		{"Moisture", formatValue(snap.Soil.Moisture) + "%", snap.Soil.Moisture >= 50 && snap.Soil.Moisture <= 80},
		{"pH", formatValue(snap.Soil.PH), snap.Soil.PH >= 6.5 && snap.Soil.PH <= 7.0},
		{"Crop Health", formatValue(snap.Crop.AvgHealthScore) + "%", snap.Crop.AvgHealthScore >= 60},
		{"Pest Alerts", fmt.Sprintf("%d", snap.Pest.ActiveAlerts), snap.Pest.RiskLevel == farm.RiskLow},
	}

	pdf.SetFont("Arial", "B", 11)
	setText(pdf, colorTextDark)
	pdf.CellFormat(0, 8, "Quick Stats", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	colWidth := 42.5
	setFill(pdf, colorBackground)
	pdf.SetFont("Arial", "B", 9)
	for i, s := range stats {
		ln := 0
		if i == len(stats)-1 {
			ln = 1
		}
		pdf.CellFormat(colWidth, 7, s.label, "0", ln, "C", true, 0, "")
	}

	pdf.SetFont("Arial", "B", 16)
	for i, s := range stats {
		ln := 0
		if i == len(stats)-1 {
			ln = 1
		}
		if s.ok {
			setText(pdf, colorAccent)
		} else {
			setText(pdf, colorWarning)
		}
		pdf.CellFormat(colWidth, 9, s.value, "0", ln, "C", false, 0, "")
	}
	pdf.Ln(8)
}

func (g *PDFGenerator) writeReadings(pdf *pdfDoc) {
	if !pdf.data.Report.Kind.includes(KindSoil) {
		return
	}
	s := pdf.data.Snapshot.Soil
	rows := [][]string{
		{"Soil Moisture", formatValue(s.Moisture) + "%"},
		{"Soil Temperature", formatValue(s.Temperature) + "°C"},
		{"pH", formatValue(s.PH)},
		{"Nitrogen", formatValue(s.Nitrogen) + " ppm"},
		{"Phosphorus", formatValue(s.Phosphorus) + " ppm"},
		{"Potassium", formatValue(s.Potassium) + " ppm"},
	}
	g.writeTable(pdf, "Current Soil Readings", []string{"Metric", "Value"}, []float64{85, 85}, rows, nil)
}

func (g *PDFGenerator) writeStatsCards(pdf *pdfDoc, stats []history.Stats) {
	cardWidth := 82.0
	cardHeight := 38.0
	cardGap := 6.0
	startX := 20.0
	rowStartY := pdf.GetY()

	for i, s := range stats {
		unit := GetMetricUnit(s.Metric)
		col := i % 2
		if col == 0 && i > 0 {
			rowStartY += cardHeight + cardGap
			_, pageHeight := pdf.GetPageSize()
			if rowStartY+cardHeight > pageHeight-25 {
				pdf.AddPage()
				g.addPageHeader(pdf, "Trends")
				rowStartY = pdf.GetY()
			}
		}
		cardX := startX + float64(col)*(cardWidth+cardGap)

		pdf.SetFillColor(255, 255, 255)
		setDraw(pdf, colorGridLine)
		pdf.RoundedRect(cardX, rowStartY, cardWidth, cardHeight, 2, "1234", "FD")
		setFill(pdf, colorPrimary)
		pdf.Rect(cardX, rowStartY, cardWidth, 3, "F")

		pdf.SetXY(cardX+5, rowStartY+6)
		pdf.SetFont("Arial", "B", 10)
		setText(pdf, colorTextDark)
		pdf.CellFormat(cardWidth-10, 6, GetMetricDisplayName(s.Metric), "", 1, "L", false, 0, "")

		pdf.SetXY(cardX+5, rowStartY+13)
		pdf.SetFont("Arial", "B", 18)
		setText(pdf, colorSecondary)
		pdf.CellFormat(cardWidth-10, 9, pdf.tr(formatStat(s.Current)+unit), "", 1, "L", false, 0, "")

		pdf.SetXY(cardX+5, rowStartY+26)
		pdf.SetFont("Arial", "", 8)
		setText(pdf, colorTextMuted)
		line := fmt.Sprintf("Min %s  Max %s  Avg %s  Samples %d",
			formatStat(s.Min), formatStat(s.Max), formatStat(s.Avg), s.Count)
		pdf.CellFormat(cardWidth-10, 5, line, "", 1, "L", false, 0, "")
	}

	numRows := (len(stats) + 1) / 2
	if numRows > 0 {
		pdf.SetY(rowStartY + cardHeight + cardGap)
	}
}

// writeTable draws a striped table. color, when set, picks a text color per row.
func (g *PDFGenerator) writeTable(pdf *pdfDoc, title string, headers []string, widths []float64, rows [][]string, color func(row int) *[3]int) {
	pdf.SetFont("Arial", "B", 12)
	setText(pdf, colorTextDark)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	setFill(pdf, colorTableHeader)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 8)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	fill := false
	for r, row := range rows {
		if fill {
			setFill(pdf, colorTableAlt)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		setText(pdf, colorTextDark)
		if color != nil {
			if c := color(r); c != nil {
				setText(pdf, *c)
			}
		}
		for i, cell := range row {
			pdf.CellFormat(widths[i], 6, pdf.tr(truncate(cell, widths[i])), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
		fill = !fill
	}
	pdf.Ln(8)
}

// truncate shortens s to roughly fit a column of width mm at 8pt.
func truncate(s string, width float64) string {
	limit := int(width / 1.6)
	r := []rune(s)
	if len(r) <= limit || limit < 4 {
		return s
	}
	return string(r[:limit-3]) + "..."
}

func statusColor(status string) *[3]int {
	switch status {
	case "excellent", "good", "optimal":
		return &colorAccent
	case "warning", "attention", string(farm.RiskMedium):
		return &colorWarning
	case "critical", string(farm.RiskHigh):
		return &colorDanger
	}
	return nil
}

func (g *PDFGenerator) writeFieldsTable(pdf *pdfDoc) {
	fields := pdf.data.Fields
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, []string{
			f.Name,
			f.Crop,
			formatValue(f.HealthScore) + "%",
			formatValue(f.NDVI),
			f.GrowthStage,
			f.Status,
		})
	}
	g.writeTable(pdf, "Field Health", []string{"Field", "Crop", "Health", "NDVI", "Stage", "Status"},
		[]float64{40, 25, 22, 18, 35, 30}, rows,
		func(r int) *[3]int { return statusColor(fields[r].Status) })
}

func (g *PDFGenerator) writeZonesTable(pdf *pdfDoc) {
	zones := pdf.data.Zones
	rows := make([][]string, 0, len(zones))
	for _, z := range zones {
		rows = append(rows, []string{
			z.Name,
			formatValue(z.Moisture) + "%",
			formatValue(z.PH),
			formatValue(z.Nitrogen) + " ppm",
			z.Status,
		})
	}
	g.writeTable(pdf, "Soil Zones", []string{"Zone", "Moisture", "pH", "Nitrogen", "Status"},
		[]float64{50, 30, 25, 35, 30}, rows,
		func(r int) *[3]int { return statusColor(zones[r].Status) })
}

func (g *PDFGenerator) writePestTable(pdf *pdfDoc) {
	alerts := pdf.data.PestAlerts
	rows := make([][]string, 0, len(alerts))
	for _, a := range alerts {
		rows = append(rows, []string{
			a.Type,
			string(a.Severity),
			a.Zone,
			fmt.Sprintf("%.0f%%", a.Confidence),
			a.Detected.Format("Jan 02 15:04"),
			a.Treatment,
		})
	}
	g.writeTable(pdf, "Pest Alerts", []string{"Pest", "Severity", "Zone", "Conf.", "Detected", "Treatment"},
		[]float64{28, 18, 30, 14, 25, 55}, rows,
		func(r int) *[3]int { return statusColor(string(alerts[r].Severity)) })
}

func (g *PDFGenerator) writeRecommendations(pdf *pdfDoc) {
	data := pdf.data

	pdf.SetFont("Arial", "B", 12)
	setText(pdf, colorTextDark)
	pdf.CellFormat(0, 8, "Issues", "", 1, "L", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont("Arial", "", 10)
	if len(data.Issues) == 0 {
		g.bullet(pdf, colorAccent, "No major issues detected")
	}
	for _, issue := range data.Issues {
		g.bullet(pdf, colorWarning, issue)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	setText(pdf, colorTextDark)
	pdf.CellFormat(0, 8, "Recommended Actions", "", 1, "L", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont("Arial", "", 10)
	if len(data.Recommendations) == 0 {
		g.bullet(pdf, colorAccent, "Continue current management practices")
	}
	for i, rec := range data.Recommendations {
		g.bullet(pdf, colorSecondary, fmt.Sprintf("%d. %s", i+1, rec))
	}
}

func (g *PDFGenerator) bullet(pdf *pdfDoc, color [3]int, text string) {
	bulletX := pdf.GetX() + 3
	bulletY := pdf.GetY() + 3
	setFill(pdf, color)
	pdf.Circle(bulletX, bulletY, 1.5, "F")
	pdf.SetX(pdf.GetX() + 8)
	setText(pdf, colorTextDark)
	pdf.CellFormat(0, 6, pdf.tr(text), "", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func (g *PDFGenerator) addPageNumbers(pdf *pdfDoc) {
	// Disable auto page break while adding footers to prevent creating new pages
	pdf.SetAutoPageBreak(false, 0)

	totalPages := pdf.PageCount()
	for i := 2; i <= totalPages; i++ {
		pdf.SetPage(i)
		pageWidth, pageHeight := pdf.GetPageSize()

		pdf.SetY(pageHeight - 15)
		pdf.SetFont("Arial", "", 8)
		setText(pdf, colorTextMuted)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d of %d", i-1, totalPages-1), "", 0, "C", false, 0, "")

		setDraw(pdf, colorGridLine)
		pdf.SetLineWidth(0.3)
		pdf.Line(20, pageHeight-20, pageWidth-20, pageHeight-20)
	}
}
