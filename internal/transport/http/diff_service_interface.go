package http

import (
	"context"

	"feeddiff/internal/report"
	"feeddiff/internal/services"
)

// DiffServiceInterface defines the diff operations used by the handlers
type DiffServiceInterface interface {
	Run(ctx context.Context, in1, in2 services.FeedInput) (*services.Run, error)
	Get(ctx context.Context, id string) (*services.Run, error)
	List(ctx context.Context, filter services.RunFilter) []services.RunSummary
	Delete(ctx context.Context, id string) error
	Report(ctx context.Context, id string, format report.Format) ([]byte, error)
}

// HealthServiceInterface defines the health operations used by the handlers
type HealthServiceInterface interface {
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}
