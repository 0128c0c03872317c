package config

// Application constants
const (
	AppName    = "feeddiff"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g. FEEDDIFF_SERVER_PORT.
	EnvPrefix = "FEEDDIFF"

	// File Paths (relative to the base directory)
	DefaultReportsDir     = "reports"
	DefaultLogsDir        = "logs"
	DefaultLogFile        = "logs/feeddiff.log"
	DefaultReportFileName = "diff_report.csv"

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Rate Limiting
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40

	DefaultMaxUploadBytes = 32 << 20
	DefaultRunCapacity    = 100
)

// API paths
const (
	APIBasePath     = "/api"
	DiffsEndpoint   = "/api/diffs"
	HealthEndpoint  = "/api/health"
	VersionEndpoint = "/api/version"
	MetricsEndpoint = "/metrics"
)
