package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"feeddiff/internal/config"
	"feeddiff/internal/feed"
)

func sampleDocument() *Document {
	return &Document{
		Result:      sampleResult(),
		Feed1:       &feed.LoadReport{Source: "feed1.csv", TotalRows: 4, Accepted: 3, Skipped: 1, Assets: 2},
		Feed2:       &feed.LoadReport{Source: "feed2.csv", TotalRows: 2, Accepted: 2, Assets: 2},
		GeneratedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestWriter_CSV(t *testing.T) {
	w := NewWriter(nil, config.ReportConfig{}, nil)

	out, err := w.Bytes(context.Background(), sampleDocument(), FormatCSV)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Type,Asset ID,Index,Feed1,Feed2", lines[0])
	assert.Equal(t, "Diff,AAPL,0,2024-01-01;10;12;9;11;1000,2024-01-01;10;12;9;11.5;1000", lines[1])
	assert.Equal(t, "Missing in Feed 2,TSLA,,,2024-01-01;10;12;9;7;1000", lines[4])
}

func TestWriter_CSVWithBOM(t *testing.T) {
	w := NewWriter(nil, config.ReportConfig{BOMPrefix: true}, nil)

	out, err := w.Bytes(context.Background(), sampleDocument(), FormatCSV)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, utf8BOM))
}

func TestWriter_JSON(t *testing.T) {
	w := NewWriter(nil, config.ReportConfig{}, nil)

	out, err := w.Bytes(context.Background(), sampleDocument(), FormatJSON)
	require.NoError(t, err)

	var decoded struct {
		GeneratedAt string `json:"generated_at"`
		Summary     struct {
			Diffs      int `json:"diffs"`
			Unmatched1 int `json:"unmatched_feed1"`
			Unmatched2 int `json:"unmatched_feed2"`
		} `json:"summary"`
		Rows []struct {
			Type    string `json:"type"`
			AssetID string `json:"asset_id"`
		} `json:"rows"`
		Feed1 struct {
			Source  string `json:"source"`
			Skipped int    `json:"skipped"`
		} `json:"feed1"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))

	assert.Equal(t, "2024-01-02T03:04:05Z", decoded.GeneratedAt)
	assert.Equal(t, 1, decoded.Summary.Diffs)
	assert.Equal(t, 2, decoded.Summary.Unmatched1)
	assert.Equal(t, 1, decoded.Summary.Unmatched2)
	require.Len(t, decoded.Rows, 4)
	assert.Equal(t, TypeMissingInFeed2, decoded.Rows[3].Type)
	assert.Equal(t, "feed1.csv", decoded.Feed1.Source)
	assert.Equal(t, 1, decoded.Feed1.Skipped)
}

func TestWriter_JSONWithoutResult(t *testing.T) {
	w := NewWriter(nil, config.ReportConfig{}, nil)

	out, err := w.Bytes(context.Background(), nil, FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"rows": []`)
	assert.Contains(t, string(out), `"diffs": []`)
}

func TestWriter_XLSX(t *testing.T) {
	w := NewWriter(nil, config.ReportConfig{}, nil)

	out, err := w.Bytes(context.Background(), sampleDocument(), FormatXLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetReport, SheetSummary}, f.GetSheetList())

	rows, err := f.GetRows(SheetReport)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, Headers, rows[0])
	assert.Equal(t, []string{"Diff", "AAPL", "0", "2024-01-01;10;12;9;11;1000", "2024-01-01;10;12;9;11.5;1000"}, rows[1])
	// excelize drops trailing empty cells
	assert.Equal(t, []string{"Missing in Feed 1", "AAPL", "", "2024-01-02;10;12;9;12;1000"}, rows[2])

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Metric", "Value"}, summary[0])
	assert.Contains(t, summary, []string{"Diffs", "1"})
	assert.Contains(t, summary, []string{"Missing in Feed 1", "2"})
	assert.Contains(t, summary, []string{"Missing in Feed 2", "1"})
	assert.Contains(t, summary, []string{"Feed 1 rows skipped", "1"})
}

func TestWriter_UnknownFormat(t *testing.T) {
	w := NewWriter(nil, config.ReportConfig{}, nil)

	_, err := w.Bytes(context.Background(), sampleDocument(), Format("pdf"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestWriter_WriteFile(t *testing.T) {
	reportsDir := filepath.Join(t.TempDir(), "reports")
	w := NewWriter(&config.Paths{ReportsDir: reportsDir}, config.ReportConfig{}, nil)

	for _, format := range []Format{FormatCSV, FormatXLSX, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			name := format.FileName("diff_report")
			path, err := w.WriteFile(context.Background(), name, sampleDocument(), format)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(reportsDir, name), path)

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		})
	}

	t.Run("failed write leaves no file", func(t *testing.T) {
		_, err := w.WriteFile(context.Background(), "bad.pdf", sampleDocument(), Format("pdf"))
		require.Error(t, err)
		_, statErr := os.Stat(filepath.Join(reportsDir, "bad.pdf"))
		assert.True(t, os.IsNotExist(statErr))
	})
}
