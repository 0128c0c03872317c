package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DiffMetrics holds the application instruments
type DiffMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Feed and comparison metrics
	RowsLoaded      metric.Int64Counter
	RowsSkipped     metric.Int64Counter
	Diffs           metric.Int64Counter
	Unmatched       metric.Int64Counter
	CompareDuration metric.Float64Histogram
	FeedsRejected   metric.Int64Counter
	ReportsWritten  metric.Int64Counter
}

// CreateDiffMetrics registers the application instruments on meter
func CreateDiffMetrics(meter metric.Meter) (*DiffMetrics, error) {
	m := &DiffMetrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.RowsLoaded, err = meter.Int64Counter(
		"feeddiff_rows_loaded_total",
		metric.WithDescription("Feed rows accepted into a feed table"),
	); err != nil {
		return nil, err
	}

	if m.RowsSkipped, err = meter.Int64Counter(
		"feeddiff_rows_skipped_total",
		metric.WithDescription("Feed rows skipped as malformed or unreadable"),
	); err != nil {
		return nil, err
	}

	if m.Diffs, err = meter.Int64Counter(
		"feeddiff_diffs_total",
		metric.WithDescription("Aligned record pairs that differ"),
	); err != nil {
		return nil, err
	}

	if m.Unmatched, err = meter.Int64Counter(
		"feeddiff_unmatched_total",
		metric.WithDescription("Records present in only one feed"),
	); err != nil {
		return nil, err
	}

	if m.CompareDuration, err = meter.Float64Histogram(
		"feeddiff_compare_duration_seconds",
		metric.WithDescription("Duration of a full diff run in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.FeedsRejected, err = meter.Int64Counter(
		"feeddiff_feeds_rejected_total",
		metric.WithDescription("Feeds that failed to load"),
	); err != nil {
		return nil, err
	}

	if m.ReportsWritten, err = meter.Int64Counter(
		"feeddiff_reports_written_total",
		metric.WithDescription("Diff reports rendered"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordFeedLoad records the row counts of one loaded feed
func (m *DiffMetrics) RecordFeedLoad(ctx context.Context, feed string, accepted, skipped int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("feed", feed))
	m.RowsLoaded.Add(ctx, int64(accepted), attrs)
	m.RowsSkipped.Add(ctx, int64(skipped), attrs)
}

// RecordFeedRejected records a feed that could not be loaded
func (m *DiffMetrics) RecordFeedRejected(ctx context.Context, feed string) {
	if m == nil {
		return
	}
	m.FeedsRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("feed", feed)))
}

// RecordComparison records the outcome of one diff run
func (m *DiffMetrics) RecordComparison(ctx context.Context, diffs, unmatched1, unmatched2 int, duration time.Duration) {
	if m == nil {
		return
	}
	m.Diffs.Add(ctx, int64(diffs))
	m.Unmatched.Add(ctx, int64(unmatched1), metric.WithAttributes(attribute.String("feed", "feed1")))
	m.Unmatched.Add(ctx, int64(unmatched2), metric.WithAttributes(attribute.String("feed", "feed2")))
	m.CompareDuration.Record(ctx, duration.Seconds())
}

// RecordReport records a rendered report
func (m *DiffMetrics) RecordReport(ctx context.Context, format string) {
	if m == nil {
		return
	}
	m.ReportsWritten.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format)))
}
