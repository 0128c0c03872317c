// Package config loads and validates the feeddiff configuration.
//
// Values are resolved in this order, later sources overriding earlier ones:
//
//  1. Default()
//  2. a YAML file: $FEEDDIFF_CONFIG, ./feeddiff.yaml or ./configs/feeddiff.yaml
//  3. FEEDDIFF_* environment variables
//
// Environment variables follow the struct layout, for example:
//
//	FEEDDIFF_SERVER_PORT=9090
//	FEEDDIFF_LOGGING_LEVEL=debug
//	FEEDDIFF_REPORT_FORMAT=xlsx
//	FEEDDIFF_RUNS_CAPACITY=500
//
// Paths turns the configured report and log directories into absolute
// paths and creates them on demand:
//
//	paths, err := cfg.GetPaths()
//	reportPath := paths.GetReportPath("diff_report.csv")
package config
