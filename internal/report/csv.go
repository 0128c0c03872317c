package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"feeddiff/internal/config"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes CSV files below the reports directory
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{paths: paths, logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // UTF-8 BOM for Excel
}

// WriteCSV writes data to a CSV file with the given options and returns the
// resolved path
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) (string, error) {
	sw, err := w.CreateStreamWriter(filePath, options.Headers, options.BOMPrefix)
	if err != nil {
		return "", err
	}

	w.logger.Info("Writing CSV file",
		slog.String("full_path", sw.Path),
		slog.Int("record_count", len(options.Records)))

	if err := writeRecords(sw, options.Records); err != nil {
		sw.Close()
		return "", err
	}
	if err := sw.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return sw.Path, nil
}

// EncodeCSV writes headers and records to out
func EncodeCSV(out io.Writer, headers []string, records [][]string, bom bool) error {
	sw, err := NewStreamWriter(out, headers, bom)
	if err != nil {
		return err
	}
	if err := writeRecords(sw, records); err != nil {
		return err
	}
	return sw.Close()
}

func writeRecords(sw *StreamWriter, records [][]string) error {
	for i, record := range records {
		if err := sw.WriteRecord(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return nil
}

// StreamWriter writes CSV rows one at a time
type StreamWriter struct {
	// Path is the file being written, empty for in-memory streams
	Path   string
	closer io.Closer
	writer *csv.Writer
}

// NewStreamWriter starts a CSV stream on out and writes the header.
// Closing the stream does not close out.
func NewStreamWriter(out io.Writer, headers []string, bom bool) (*StreamWriter, error) {
	if bom {
		if _, err := out.Write(utf8BOM); err != nil {
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	s := &StreamWriter{writer: csv.NewWriter(out)}
	if len(headers) > 0 {
		if err := s.writer.Write(headers); err != nil {
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}
	return s, nil
}

// CreateStreamWriter creates a streaming CSV file below the reports directory
func (w *CSVWriter) CreateStreamWriter(filePath string, headers []string, bom bool) (*StreamWriter, error) {
	fullPath := w.resolvePath(filePath)

	w.logger.Debug("Creating CSV stream writer",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	s, err := NewStreamWriter(file, headers, bom)
	if err != nil {
		file.Close()
		return nil, err
	}
	s.closer = file
	s.Path = fullPath
	return s, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Close flushes the stream and closes its file, if any
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	err := s.writer.Error()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// resolvePath places relative paths in the reports directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	return w.paths.GetReportPath(filePath)
}
