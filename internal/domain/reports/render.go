package reports

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"hrperf/internal/domain/performance"
)

const (
	dashboardSheet = "Dashboard"
	summarySheet   = "Summary"
)

// EvaluationPDF renders a printable evaluation sheet with one row per line.
func EvaluationPDF(ev *performance.Evaluation) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(ev.Name, true)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, ev.Name)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Employee: %s", ev.EmployeeName))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Level: %s", ev.LevelName))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("State: %s", performance.StatusLabel(ev.State)))
	pdf.Ln(10)

	widths := []float64{12, 90, 30, 30, 30, 30, 35}
	headers := []string{"#", "Objective", "Target %", "Achieved %", "Weightage", "Rating", "Final rating"}
	pdf.SetFont("Helvetica", "B", 10)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range ev.Lines {
		cells := []string{
			fmt.Sprintf("%d", line.Sequence),
			line.ObjectiveName,
			fmt.Sprintf("%.2f", line.TargetPercentage),
			fmt.Sprintf("%.2f", line.Achieved()),
			fmt.Sprintf("%.2f", line.Weightage),
			fmt.Sprintf("%.2f", line.Rating),
			fmt.Sprintf("%.2f", line.FinalRating),
		}
		for i, cell := range cells {
			align := "R"
			if i == 1 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 7, cell, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(widths[0]+widths[1]+widths[2]+widths[3], 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[4], 8, fmt.Sprintf("%.2f", ev.TotalWeightage), "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[5], 8, "", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[6], 8, fmt.Sprintf("%.2f", ev.OverallRating), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	if ev.Comments != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 6, "Comments: "+ev.Comments, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DashboardXLSX writes the dashboard rows and summary counters to a workbook.
func DashboardXLSX(d performance.Dashboard) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dashboardSheet); err != nil {
		return nil, err
	}
	header := []any{"Employee", "Responsible role", "Level", "Overall rating", "Status"}
	if err := f.SetSheetRow(dashboardSheet, "A1", &header); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(dashboardSheet, "A1", "E1", bold); err != nil {
		return nil, err
	}
	for i, row := range d.PerformanceDetails {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []any{row.EmployeeName, row.ResponsibleRole, row.LevelName, row.OverallRating, row.Status}
		if err := f.SetSheetRow(dashboardSheet, cell, &values); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(dashboardSheet, "A", "C", 28); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	summary := [][]any{
		{"Metric", "Value"},
		{"Company revenue", d.CompanyRevenue},
		{"Company CS", d.CompanyCS},
		{"C level", d.CLevel},
		{"Division TST", d.DivisionTST},
		{"Division PM", d.DivisionPM},
		{"TST overall rating", d.TSTOverallRating},
		{"PM overall rating", d.PMOverallRating},
		{"Total KPIs", d.Summary.TotalKPIs},
		{"Average score", d.Summary.AvgScore},
		{"Active KPIs", d.Summary.ActiveKPIs},
		{"Employees", d.Summary.Employees},
		{"Pending", d.Summary.Pending},
	}
	keys := make([]string, 0, len(d.Levels))
	for key := range d.Levels {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		summary = append(summary, []any{"Level " + key, d.Levels[key]})
	}
	for i, values := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "B1", bold); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
