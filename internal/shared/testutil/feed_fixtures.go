package testutil

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// FeedHeader is the canonical header of a price feed
var FeedHeader = []string{"asset_id", "Date", "Open", "Close", "High", "Low", "Volume"}

// FeedRow builds a data row in FeedHeader order from the values a test
// usually cares about.
func FeedRow(asset, date, open, high, low, close, volume string) []string {
	return []string{asset, date, open, close, high, low, volume}
}

// WriteFeedCSV writes rows to dir/name as CSV and returns the path.
func WriteFeedCSV(t *testing.T, dir, name string, rows [][]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create feed fixture: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("write feed fixture: %v", err)
	}
	return path
}

// WriteFeedXLSX writes rows to the given sheet of a new workbook at dir/name.
func WriteFeedXLSX(t *testing.T, dir, name, sheet string, rows [][]string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if sheet != "" && sheet != "Sheet1" {
		if _, err := f.NewSheet(sheet); err != nil {
			t.Fatalf("create sheet: %v", err)
		}
		if err := f.DeleteSheet("Sheet1"); err != nil {
			t.Fatalf("delete default sheet: %v", err)
		}
	} else {
		sheet = "Sheet1"
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("write row %d: %v", i+1, err)
		}
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}
