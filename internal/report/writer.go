package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"feeddiff/internal/config"
	"feeddiff/internal/infrastructure"
)

// Writer renders documents in any supported format
type Writer struct {
	csv     *CSVWriter
	paths   *config.Paths
	bom     bool
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *infrastructure.DiffMetrics
}

// NewWriter creates a report writer. paths may be nil, in which case file
// names are used as given.
func NewWriter(paths *config.Paths, cfg config.ReportConfig, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "report_writer")
	return &Writer{
		csv:    NewCSVWriter(paths, logger),
		paths:  paths,
		bom:    cfg.BOMPrefix,
		logger: logger,
		tracer: otel.Tracer(infrastructure.InstrumentationName),
	}
}

// WithTelemetry sets the tracer and metrics used for every write
func (w *Writer) WithTelemetry(tracer trace.Tracer, metrics *infrastructure.DiffMetrics) *Writer {
	if tracer != nil {
		w.tracer = tracer
	}
	w.metrics = metrics
	return w
}

// Write renders doc to out
func (w *Writer) Write(ctx context.Context, out io.Writer, doc *Document, format Format) error {
	if doc == nil {
		doc = &Document{}
	}
	return w.traced(ctx, format, func() error {
		switch format {
		case FormatCSV:
			return EncodeCSV(out, Headers, Rows(doc.Result), w.bom)
		case FormatXLSX:
			return EncodeXLSX(out, doc)
		case FormatJSON:
			return EncodeJSON(out, doc)
		default:
			return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
		}
	})
}

// Bytes renders doc into memory
func (w *Writer) Bytes(ctx context.Context, doc *Document, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Write(ctx, &buf, doc, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile renders doc to name, resolved against the reports directory,
// and returns the written path
func (w *Writer) WriteFile(ctx context.Context, name string, doc *Document, format Format) (string, error) {
	if doc == nil {
		doc = &Document{}
	}
	rows := Rows(doc.Result)

	var path string
	var err error
	if format == FormatCSV {
		err = w.traced(ctx, format, func() error {
			var werr error
			path, werr = w.csv.WriteCSV(name, WriteOptions{Headers: Headers, Records: rows, BOMPrefix: w.bom})
			return werr
		})
	} else {
		path, err = w.writeEncoded(ctx, name, doc, format)
	}
	if err != nil {
		return "", err
	}

	w.logger.InfoContext(ctx, "Report written",
		slog.String("path", path),
		slog.String("format", string(format)),
		slog.Int("rows", len(rows)))
	return path, nil
}

func (w *Writer) writeEncoded(ctx context.Context, name string, doc *Document, format Format) (string, error) {
	path := name
	if w.paths != nil {
		path = w.paths.GetReportPath(name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}

	if err := w.Write(ctx, file, doc, format); err != nil {
		file.Close()
		os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close report: %w", err)
	}
	return path, nil
}

// traced runs fn inside a report.write span and counts successful writes
func (w *Writer) traced(ctx context.Context, format Format, fn func() error) error {
	ctx, span := w.tracer.Start(ctx, "report.write",
		trace.WithAttributes(attribute.String("report.format", string(format))))
	defer span.End()

	if err := fn(); err != nil {
		infrastructure.RecordError(ctx, err)
		return err
	}
	w.metrics.RecordReport(ctx, string(format))
	return nil
}
