// Package export renders a count session as an XLSX count sheet.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/vbonduro/stockcount/internal/count"
	"github.com/vbonduro/stockcount/internal/domain"
)

const (
	linesSheet   = "Count"
	summarySheet = "Summary"
)

var lineHeaders = []string{
	"#", "Batch", "Product", "Expected", "Counted", "Discrepancy",
	"Status", "Location Mismatch", "Counted By", "Counted At",
}

// ContentType is the media type of the workbook written by Write.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Filename is the suggested download name for the session's sheet.
func Filename(s *domain.Session) string {
	return fmt.Sprintf("count_%s.xlsx", s.SessionNumber)
}

// Workbook builds the count sheet for s. Lines keep the session's audit order.
func Workbook(s *domain.Session) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", linesSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	for i, h := range lineHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		if err := f.SetCellValue(linesSheet, cell, h); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(linesSheet, cell, cell, header); err != nil {
			return nil, err
		}
	}

	for i, line := range s.Lines {
		row := lineRow(i+1, line)
		if err := f.SetSheetRow(linesSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, fmt.Errorf("failed to write line %d: %w", line.ID, err)
		}
	}

	widths := []float64{5, 18, 28, 10, 10, 12, 12, 18, 14, 20}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(linesSheet, col, col, w); err != nil {
			return nil, err
		}
	}

	if err := writeSummary(f, s, header); err != nil {
		return nil, err
	}
	return f, nil
}

func lineRow(n int, line *domain.CountLine) []interface{} {
	row := []interface{}{
		n, line.BatchNumber, line.ProductName, line.ExpectedQuantity,
		nil, nil, string(line.Status), "", line.CountedBy, nil,
	}
	if line.CountedQuantity != nil {
		row[4] = *line.CountedQuantity
	}
	if line.Discrepancy != nil {
		row[5] = *line.Discrepancy
	}
	if line.IsLocationMismatch {
		row[7] = "yes"
	}
	if line.CountedAt != nil {
		row[9] = line.CountedAt.UTC().Format("2006-01-02 15:04")
	}
	return row
}

func writeSummary(f *excelize.File, s *domain.Session, header int) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to add summary sheet: %w", err)
	}

	sum := count.Summarize(s.Lines)
	rows := [][]interface{}{
		{"Session", s.SessionNumber},
		{"Location", s.Location},
		{"Status", string(s.Status)},
		{"Initiated By", s.InitiatedBy},
		{"Started At", s.StartedAt.UTC().Format("2006-01-02 15:04")},
		{"Total", sum.Total},
		{"Counted", sum.Counted},
		{"Pending", sum.Pending},
		{"Not Found", sum.NotFound},
		{"Skipped", sum.Skipped},
		{"Progress %", count.Progress(sum)},
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
		if err := f.SetCellStyle(summarySheet, cell, cell, header); err != nil {
			return err
		}
	}
	return f.SetColWidth(summarySheet, "A", "B", 20)
}

// Write streams the session's workbook to w.
func Write(w io.Writer, s *domain.Session) error {
	f, err := Workbook(s)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
