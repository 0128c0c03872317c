package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "feeddiff/internal/errors"
)

// Options controls how a feed file is read
type Options struct {
	// Sheet selects the worksheet of an XLSX feed; empty means the first sheet.
	Sheet string
	// RawValues reads XLSX cells as stored instead of as displayed, so a
	// number format does not change the text of a value.
	RawValues bool
}

// LoadFile reads a CSV or XLSX feed from disk and loads it.
func (l *Loader) LoadFile(ctx context.Context, path string, opts Options) (Table, *LoadReport, error) {
	rows, err := l.ReadFile(ctx, path, opts)
	if err != nil {
		return nil, nil, err
	}
	return l.loadNamed(ctx, filepath.Base(path), rows)
}

// LoadReader reads a feed from r and loads it. Names ending in .xlsx or
// .xlsm are read as workbooks, anything else as CSV.
func (l *Loader) LoadReader(ctx context.Context, name string, r io.Reader, opts Options) (Table, *LoadReport, error) {
	var rows [][]string
	var err error
	if isWorkbook(name) {
		rows, err = ReadXLSXReader(r, opts)
	} else {
		rows, err = l.ReadCSV(ctx, r)
	}
	if err != nil {
		return nil, nil, apperrors.NewParsingError(fmt.Sprintf("failed to read feed %s", name), err).
			WithContext("source", name)
	}
	return l.loadNamed(ctx, name, rows)
}

// SupportedExtension reports whether name has an extension the loader reads
func SupportedExtension(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".xlsx", ".xlsm":
		return true
	}
	return false
}

func isWorkbook(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

func (l *Loader) loadNamed(ctx context.Context, name string, rows [][]string) (Table, *LoadReport, error) {
	table, report, err := l.Load(ctx, rows)
	if err != nil {
		return nil, nil, apperrors.NewParsingError(fmt.Sprintf("failed to load feed %s", name), err).
			WithContext("source", name)
	}
	report.Source = name
	return table, report, nil
}

// ReadFile returns the raw rows of a feed file, choosing the reader by extension.
func (l *Loader) ReadFile(ctx context.Context, path string, opts Options) ([][]string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open feed %s", path), err)
		}
		defer f.Close()

		rows, err := l.ReadCSV(ctx, f)
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read feed %s", path), err)
		}
		return rows, nil
	case ".xlsx", ".xlsm":
		rows, err := ReadXLSX(path, opts)
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read feed %s", path), err)
		}
		return rows, nil
	default:
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("cannot read %s", path), ErrUnsupportedFormat).
			WithContext("extension", ext)
	}
}

// ReadCSV reads every row of a CSV stream. Rows may have differing field
// counts. A line with a CSV syntax error is kept as an empty row so the
// loader reports it as malformed instead of failing the whole feed.
func (l *Loader) ReadCSV(ctx context.Context, r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) && len(rows) > 0 {
				l.logger.WarnContext(ctx, "Skipping bad CSV line",
					slog.Int("line", parseErr.Line),
					slog.String("error", parseErr.Err.Error()))
				rows = append(rows, []string{})
				continue
			}
			return nil, err
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// ReadXLSX returns the rows of one worksheet of an Excel workbook. Cells
// are read as displayed unless opts.RawValues is set.
func ReadXLSX(path string, opts Options) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return readSheet(f, opts)
}

// ReadXLSXReader is ReadXLSX for a workbook held in a stream.
func ReadXLSXReader(r io.Reader, opts Options) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return readSheet(f, opts)
}

func readSheet(f *excelize.File, opts Options) ([][]string, error) {
	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: opts.RawValues})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	padRows(rows)
	return rows, nil
}

// padRows extends data rows to the header width. GetRows drops trailing
// empty cells, which CSV keeps as empty fields. Blank rows stay empty.
func padRows(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	width := len(rows[0])
	for i := 1; i < len(rows); i++ {
		if n := len(rows[i]); n > 0 && n < width {
			rows[i] = append(rows[i], make([]string, width-n)...)
		}
	}
}
