package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const utf8BOM = "\ufeff"

// LoadReport summarizes the outcome of one load
type LoadReport struct {
	Source    string     `json:"source,omitempty"`
	TotalRows int        `json:"total_rows"`
	Accepted  int        `json:"accepted"`
	Skipped   int        `json:"skipped"`
	Assets    int        `json:"assets"`
	Issues    []RowIssue `json:"issues,omitempty"`
}

// Loader turns raw tabular rows into a Table
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new feed loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger: logger.With(slog.String("component", "feed_loader")),
	}
}

// columns holds the header position of every required column
type columns struct {
	asset, date, open, high, low, close, volume int
}

// rowResult is the tagged outcome of parsing a single data row.
// Exactly one of record or issue is meaningful.
type rowResult struct {
	asset  string
	record Record
	issue  *RowIssue
}

// Load parses rows into a Table. The first row is the header.
//
// The whole load fails when the header is absent or lacks a required column.
// Data rows that cannot be parsed are skipped, logged and listed in the
// returned LoadReport; they never abort the load.
func (l *Loader) Load(ctx context.Context, rows [][]string) (Table, *LoadReport, error) {
	if len(rows) == 0 || isBlank(rows[0]) {
		return nil, nil, ErrMissingHeader
	}

	cols, err := resolveColumns(rows[0])
	if err != nil {
		l.logger.ErrorContext(ctx, "Feed header rejected",
			slog.Any("header", rows[0]),
			slog.String("error", err.Error()))
		return nil, nil, err
	}

	table := make(Table)
	report := &LoadReport{TotalRows: len(rows) - 1}

	for i, row := range rows[1:] {
		res := cols.parse(i+2, row)
		if res.issue != nil {
			l.logIssue(ctx, res.issue)
			report.Skipped++
			report.Issues = append(report.Issues, *res.issue)
			continue
		}
		table[res.asset] = append(table[res.asset], res.record)
		report.Accepted++
	}
	report.Assets = len(table)

	l.logger.InfoContext(ctx, "Feed loaded",
		slog.Int("rows", report.TotalRows),
		slog.Int("accepted", report.Accepted),
		slog.Int("skipped", report.Skipped),
		slog.Int("assets", report.Assets))

	return table, report, nil
}

func (l *Loader) logIssue(ctx context.Context, issue *RowIssue) {
	attrs := []any{
		slog.Int("row", issue.Row),
		slog.String("kind", string(issue.Kind)),
		slog.String("reason", issue.Reason),
		slog.Any("content", issue.Cells),
	}
	if issue.Kind == IssueMalformedRow {
		l.logger.WarnContext(ctx, "Skipping malformed row", attrs...)
		return
	}
	l.logger.ErrorContext(ctx, "Failed to parse row", attrs...)
}

// resolveColumns maps trimmed header names to positions and checks that
// every required column is present. Duplicate names resolve to the last one.
func resolveColumns(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		index[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return columns{}, &MissingColumnError{Columns: missing}
	}

	return columns{
		asset:  index[ColumnAssetID],
		date:   index[ColumnDate],
		open:   index[ColumnOpen],
		high:   index[ColumnHigh],
		low:    index[ColumnLow],
		close:  index[ColumnClose],
		volume: index[ColumnVolume],
	}, nil
}

// parse extracts one record from a data row
func (c columns) parse(rowNum int, row []string) rowResult {
	if len(row) < len(RequiredColumns) {
		reason := fmt.Sprintf("row has %d fields, need at least %d", len(row), len(RequiredColumns))
		if len(row) == 0 {
			reason = "row is empty"
		}
		return rowResult{issue: &RowIssue{
			Row:    rowNum,
			Kind:   IssueMalformedRow,
			Reason: reason,
			Cells:  row,
		}}
	}

	var extractErr error
	cell := func(name string, idx int) string {
		if extractErr != nil {
			return ""
		}
		if idx >= len(row) {
			extractErr = fmt.Errorf("column %q at index %d is out of range for a row of %d fields", name, idx, len(row))
			return ""
		}
		return row[idx]
	}

	asset := cell(ColumnAssetID, c.asset)
	record := Record{
		Date:   cell(ColumnDate, c.date),
		Open:   cell(ColumnOpen, c.open),
		High:   cell(ColumnHigh, c.high),
		Low:    cell(ColumnLow, c.low),
		Close:  cell(ColumnClose, c.close),
		Volume: cell(ColumnVolume, c.volume),
	}
	if extractErr == nil && asset == "" {
		extractErr = fmt.Errorf("column %q is empty", ColumnAssetID)
	}
	if extractErr != nil {
		return rowResult{issue: &RowIssue{
			Row:    rowNum,
			Kind:   IssueFieldExtraction,
			Reason: extractErr.Error(),
			Cells:  row,
		}}
	}

	return rowResult{asset: asset, record: record}
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(strings.TrimPrefix(cell, utf8BOM)) != "" {
			return false
		}
	}
	return true
}
