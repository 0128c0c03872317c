package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"feeddiff/internal/feed"
)

// Sheet names of XLSX reports
const (
	SheetReport  = "Report"
	SheetSummary = "Summary"
)

// EncodeXLSX writes doc as a workbook with a Report and a Summary sheet
func EncodeXLSX(out io.Writer, doc *Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetReport); err != nil {
		return fmt.Errorf("failed to name report sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeReportSheet(f, doc, bold); err != nil {
		return err
	}
	if err := writeSummarySheet(f, doc, bold); err != nil {
		return err
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeReportSheet(f *excelize.File, doc *Document, headerStyle int) error {
	sw, err := f.NewStreamWriter(SheetReport)
	if err != nil {
		return fmt.Errorf("failed to open report sheet: %w", err)
	}

	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, row := range Rows(doc.Result) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	return sw.Flush()
}

func writeSummarySheet(f *excelize.File, doc *Document, headerStyle int) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	rows := [][]interface{}{{"Metric", "Value"}}
	if doc.Result != nil {
		s := doc.Result.Summary
		rows = append(rows,
			[]interface{}{"Assets", s.Assets},
			[]interface{}{"Compared pairs", s.ComparedPairs},
			[]interface{}{"Equal pairs", s.EqualPairs},
			[]interface{}{"Diffs", s.Diffs},
			[]interface{}{"Missing in Feed 1", s.Unmatched1},
			[]interface{}{"Missing in Feed 2", s.Unmatched2},
		)
	}
	for _, lr := range []struct {
		label  string
		report *feed.LoadReport
	}{
		{"Feed 1", doc.Feed1},
		{"Feed 2", doc.Feed2},
	} {
		if lr.report == nil {
			continue
		}
		rows = append(rows,
			[]interface{}{lr.label + " source", lr.report.Source},
			[]interface{}{lr.label + " rows accepted", lr.report.Accepted},
			[]interface{}{lr.label + " rows skipped", lr.report.Skipped},
		)
	}
	if !doc.GeneratedAt.IsZero() {
		rows = append(rows, []interface{}{"Generated at", doc.GeneratedAt.UTC().Format("2006-01-02 15:04:05 MST")})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(SheetSummary, "A1", "B1", headerStyle); err != nil {
		return err
	}
	return f.SetColWidth(SheetSummary, "A", "A", 24)
}
