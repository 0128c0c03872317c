// Command feeddiff compares two market data feeds and writes a difference
// report.
//
//	feeddiff -feed1 vendor_a.csv -feed2 vendor_b.xlsx -sheet Prices -format xlsx
//
// Exit status is 0 on success, 1 on error and 2 when -fail-on-diff is set
// and the feeds differ.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"feeddiff/internal/config"
	"feeddiff/internal/feed"
	"feeddiff/internal/infrastructure"
	"feeddiff/internal/report"
	"feeddiff/internal/services"
	"feeddiff/internal/validation"
)

// errDifferences signals a successful run that found differences
var errDifferences = errors.New("feeds differ")

type options struct {
	feed1      string
	feed2      string
	sheet      string
	out        string
	format     string
	stdout     bool
	show       bool
	failOnDiff bool
	rawValues  bool
}

func main() {
	_ = godotenv.Load()

	err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		os.Exit(0)
	case errors.Is(err, errDifferences):
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "feeddiff: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("feeddiff", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.feed1, "feed1", "", "path of the first feed (.csv, .txt, .xlsx, .xlsm)")
	fs.StringVar(&opts.feed2, "feed2", "", "path of the second feed (.csv, .txt, .xlsx, .xlsm)")
	fs.StringVar(&opts.sheet, "sheet", "", "worksheet to read from Excel feeds (default: first sheet)")
	fs.StringVar(&opts.out, "out", "", "report path (default: report file name in the reports directory)")
	fs.StringVar(&opts.format, "format", "", "report format: csv, xlsx or json (default: from -out or config)")
	fs.BoolVar(&opts.stdout, "stdout", false, "write the report to stdout instead of a file")
	fs.BoolVar(&opts.show, "show", false, "print the raw rows of both feeds before comparing")
	fs.BoolVar(&opts.failOnDiff, "fail-on-diff", false, "exit with status 2 when the feeds differ")
	fs.BoolVar(&opts.rawValues, "raw-values", false, "read Excel cells as stored instead of as displayed")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.feed1 == "" || opts.feed2 == "" {
		fs.Usage()
		return nil, errors.New("both -feed1 and -feed2 are required")
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return opts, nil
}

// resolveFormat picks the report format from -format, then the -out
// extension, then the configuration
func resolveFormat(opts *options, cfg *config.Config) (report.Format, error) {
	if opts.format != "" {
		return report.ParseFormat(opts.format)
	}
	if ext := strings.TrimPrefix(filepath.Ext(opts.out), "."); ext != "" {
		if f, err := report.ParseFormat(ext); err == nil {
			return f, nil
		}
	}
	return report.ParseFormat(cfg.Report.Format)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	// One trace ID ties together the log lines of a run
	ctx = infrastructure.EnsureTraceID(ctx)

	format, err := resolveFormat(opts, cfg)
	if err != nil {
		return err
	}

	paths, err := cfg.GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}

	otelCfg := infrastructure.NewOTelConfig(cfg.Telemetry)
	otelCfg.EnableMetrics = false
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer providers.Shutdown(context.Background())

	validator := validation.NewFileValidator(0, logger)
	if err := validator.ValidateFeeds(opts.feed1, opts.feed2); err != nil {
		return err
	}

	outPath := ""
	if !opts.stdout {
		outPath, err = reportPath(opts, cfg, paths, format)
		if err != nil {
			return err
		}
		if err := validator.ValidateOutputFile(outPath); err != nil {
			return err
		}
	}

	// Summaries go to stderr when the report itself occupies stdout
	summary := stdout
	if opts.stdout {
		summary = stderr
	}

	if opts.show {
		loader := feed.NewLoader(logger)
		for _, p := range []string{opts.feed1, opts.feed2} {
			if err := showFeed(ctx, loader, summary, p, feed.Options{Sheet: opts.sheet, RawValues: opts.rawValues}); err != nil {
				return err
			}
		}
	}

	svc := services.NewDiffService(nil, report.NewWriter(paths, cfg.Report, logger), logger).
		WithTelemetry(providers.Tracer, nil)

	result, err := svc.Run(ctx,
		services.FeedInput{Path: opts.feed1, Sheet: opts.sheet, RawValues: opts.rawValues},
		services.FeedInput{Path: opts.feed2, Sheet: opts.sheet, RawValues: opts.rawValues},
	)
	if err != nil {
		return err
	}

	if opts.stdout {
		if err := svc.StreamReport(ctx, result, stdout, format); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	} else {
		written, err := svc.WriteReport(ctx, result, outPath, format)
		if err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		outPath = written
	}

	printSummary(summary, result, outPath)

	if opts.failOnDiff && result.Result.HasDifferences() {
		logger.Warn("Feeds differ", slog.Int("diffs", result.Result.Summary.Diffs))
		return errDifferences
	}
	return nil
}

// reportPath returns the absolute report path for a file run. An -out
// without extension gets the format's; one naming another format is rejected.
func reportPath(opts *options, cfg *config.Config, paths *config.Paths, format report.Format) (string, error) {
	if opts.out != "" {
		out := opts.out
		switch ext := strings.TrimPrefix(filepath.Ext(out), "."); {
		case ext == "":
			out = format.FileName(out)
		case !strings.EqualFold(ext, string(format)):
			if other, err := report.ParseFormat(ext); err == nil {
				return "", fmt.Errorf("-out %s is a %s file but the report format is %s", opts.out, other, format)
			}
		}
		return filepath.Abs(out)
	}
	return paths.GetReportPath(format.FileName(cfg.Report.FileName)), nil
}

func showFeed(ctx context.Context, loader *feed.Loader, out io.Writer, path string, opts feed.Options) error {
	rows, err := loader.ReadFile(ctx, path, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "== %s (%d rows) ==\n", path, len(rows))
	for _, row := range rows {
		fmt.Fprintln(out, strings.Join(row, ","))
	}
	return nil
}

func printSummary(out io.Writer, run *services.Run, reportPath string) {
	for i, lr := range []*feed.LoadReport{run.Feed1, run.Feed2} {
		fmt.Fprintf(out, "feed%d: %s  rows=%d accepted=%d skipped=%d assets=%d\n",
			i+1, lr.Source, lr.TotalRows, lr.Accepted, lr.Skipped, lr.Assets)
	}

	s := run.Result.Summary
	fmt.Fprintf(out, "assets=%d compared=%d equal=%d diffs=%d missing_in_feed1=%d missing_in_feed2=%d\n",
		s.Assets, s.ComparedPairs, s.EqualPairs, s.Diffs, s.Unmatched1, s.Unmatched2)

	if reportPath != "" {
		fmt.Fprintf(out, "report: %s\n", reportPath)
	}
}
