package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"feeddiff/internal/config"
	"feeddiff/internal/infrastructure"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	paths     *config.Paths
	store     RunStore
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service. paths and store may be nil.
func NewHealthService(version, buildTime string, paths *config.Paths, store RunStore, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		paths:     paths,
		store:     store,
		startTime: time.Now(),
		logger:    logger,
	}
}

// ReadinessCheck reports whether every dependency is usable
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"reports": hs.checkReportsHealth(),
			"runs":    hs.checkRunStoreHealth(),
		},
	}

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}

	hs.logger.DebugContext(ctx, "Readiness check completed", slog.String("status", status.Status))
	return status
}

// LivenessCheck returns liveness status with runtime statistics
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime:   infrastructure.CollectSystemStats(hs.startTime).FormatStats(),
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"name":       config.AppName,
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"start_time": hs.startTime.Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

func (hs *HealthService) checkReportsHealth() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: "ready", Message: "reports are not written to disk"}
	}

	info, err := os.Stat(hs.paths.ReportsDir)
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Reports directory unavailable: %v", err),
		}
	}
	if !info.IsDir() {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Reports path is not a directory: %s", hs.paths.ReportsDir),
		}
	}
	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkRunStoreHealth() ServiceHealth {
	if hs.store == nil {
		return ServiceHealth{Status: "not_ready", Message: "run store not initialized"}
	}
	return ServiceHealth{Status: "ready", Message: fmt.Sprintf("%d runs stored", hs.store.Count())}
}
