package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"feeddiff/internal/compare"
	"feeddiff/internal/config"
	"feeddiff/internal/feed"
	"feeddiff/internal/infrastructure"
	"feeddiff/internal/report"
)

// FeedInput names one side of a comparison. Reader takes precedence over
// Path when both are set.
type FeedInput struct {
	Name   string
	Path   string
	Reader io.Reader
	Sheet  string
	// RawValues reads XLSX cells as stored instead of as displayed
	RawValues bool
}

func (in FeedInput) source() string {
	if in.Name != "" {
		return in.Name
	}
	return in.Path
}

// DiffService loads two feeds, compares them and keeps the results
type DiffService struct {
	loader  *feed.Loader
	store   RunStore
	writer  *report.Writer
	tracer  trace.Tracer
	metrics *infrastructure.DiffMetrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewDiffService creates a diff service. store may be nil for one-shot use.
func NewDiffService(store RunStore, writer *report.Writer, logger *slog.Logger) *DiffService {
	if logger == nil {
		logger = slog.Default()
	}
	if writer == nil {
		writer = report.NewWriter(nil, config.ReportConfig{}, logger)
	}
	return &DiffService{
		loader: feed.NewLoader(logger),
		store:  store,
		writer: writer,
		tracer: otel.Tracer(infrastructure.InstrumentationName),
		logger: infrastructure.WithComponent(logger, "diff_service"),
		now:    time.Now,
	}
}

// WithTelemetry sets the tracer and metrics used by the service
func (s *DiffService) WithTelemetry(tracer trace.Tracer, metrics *infrastructure.DiffMetrics) *DiffService {
	if tracer != nil {
		s.tracer = tracer
	}
	s.metrics = metrics
	return s
}

// Run loads both feeds concurrently, compares them and stores the run.
// A feed that cannot be loaded fails the whole run.
func (s *DiffService) Run(ctx context.Context, in1, in2 FeedInput) (*Run, error) {
	start := s.now()

	var (
		table1, table2   feed.Table
		report1, report2 *feed.LoadReport
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		table1, report1, err = s.loadFeed(gctx, "feed1", in1)
		return err
	})
	g.Go(func() error {
		var err error
		table2, report2, err = s.loadFeed(gctx, "feed2", in2)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := s.compare(ctx, table1, table2)

	run := &Run{
		ID:        uuid.New().String(),
		CreatedAt: start,
		Duration:  s.now().Sub(start),
		Feed1:     report1,
		Feed2:     report2,
		Result:    result,
	}
	s.metrics.RecordComparison(ctx, result.Summary.Diffs, result.Summary.Unmatched1, result.Summary.Unmatched2, run.Duration)

	if s.store != nil {
		if err := s.store.Save(run); err != nil {
			return nil, fmt.Errorf("failed to store run: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "Diff run completed",
		slog.String("run_id", run.ID),
		slog.String("feed1", report1.Source),
		slog.String("feed2", report2.Source),
		slog.Int("diffs", result.Summary.Diffs),
		slog.Int("missing_in_feed1", result.Summary.Unmatched1),
		slog.Int("missing_in_feed2", result.Summary.Unmatched2),
		slog.Duration("duration", run.Duration))

	return run, nil
}

func (s *DiffService) loadFeed(ctx context.Context, label string, in FeedInput) (feed.Table, *feed.LoadReport, error) {
	ctx, span := s.tracer.Start(ctx, "feed.load", trace.WithAttributes(
		attribute.String("feed.label", label),
		attribute.String("feed.source", in.source()),
	))
	defer span.End()

	var (
		table feed.Table
		lr    *feed.LoadReport
		err   error
	)
	opts := feed.Options{Sheet: in.Sheet, RawValues: in.RawValues}
	switch {
	case in.Reader != nil:
		table, lr, err = s.loader.LoadReader(ctx, in.source(), in.Reader, opts)
	case in.Path != "":
		table, lr, err = s.loader.LoadFile(ctx, in.Path, opts)
	default:
		err = fmt.Errorf("%s: %w", label, ErrNoFeed)
	}
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.metrics.RecordFeedRejected(ctx, label)
		s.logger.ErrorContext(ctx, "Feed rejected",
			slog.String("feed", label),
			slog.String("source", in.source()),
			slog.String("error", err.Error()))
		return nil, nil, err
	}

	span.SetAttributes(
		attribute.Int("feed.rows_accepted", lr.Accepted),
		attribute.Int("feed.rows_skipped", lr.Skipped),
	)
	s.metrics.RecordFeedLoad(ctx, label, lr.Accepted, lr.Skipped)
	return table, lr, nil
}

func (s *DiffService) compare(ctx context.Context, table1, table2 feed.Table) *compare.Result {
	_, span := s.tracer.Start(ctx, "compare.run")
	defer span.End()

	result := compare.Compare(table1, table2)
	span.SetAttributes(
		attribute.Int("compare.assets", result.Summary.Assets),
		attribute.Int("compare.diffs", result.Summary.Diffs),
	)
	return result
}

// Get returns a stored run
func (s *DiffService) Get(ctx context.Context, id string) (*Run, error) {
	if s.store == nil {
		return nil, ErrRunNotFound
	}
	return s.store.Get(id)
}

// List returns summaries of the stored runs
func (s *DiffService) List(ctx context.Context, filter RunFilter) []RunSummary {
	if s.store == nil {
		return []RunSummary{}
	}
	return s.store.List(filter)
}

// Delete removes a stored run
func (s *DiffService) Delete(ctx context.Context, id string) error {
	if s.store == nil {
		return ErrRunNotFound
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Diff run deleted", slog.String("run_id", id))
	return nil
}

// Document returns the renderable view of a run
func (s *DiffService) Document(run *Run) *report.Document {
	return &report.Document{
		Result:      run.Result,
		Feed1:       run.Feed1,
		Feed2:       run.Feed2,
		GeneratedAt: s.now(),
	}
}

// Report renders a stored run
func (s *DiffService) Report(ctx context.Context, id string, format report.Format) ([]byte, error) {
	run, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.writer.Bytes(ctx, s.Document(run), format)
}

// WriteReport renders run to a file below the reports directory
func (s *DiffService) WriteReport(ctx context.Context, run *Run, name string, format report.Format) (string, error) {
	return s.writer.WriteFile(ctx, name, s.Document(run), format)
}

// StreamReport renders run to out
func (s *DiffService) StreamReport(ctx context.Context, run *Run, out io.Writer, format report.Format) error {
	return s.writer.Write(ctx, out, s.Document(run), format)
}
