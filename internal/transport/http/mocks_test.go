package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"feeddiff/internal/report"
	"feeddiff/internal/services"
)

type mockDiffService struct {
	mock.Mock
}

func (m *mockDiffService) Run(ctx context.Context, in1, in2 services.FeedInput) (*services.Run, error) {
	args := m.Called(ctx, in1, in2)
	run, _ := args.Get(0).(*services.Run)
	return run, args.Error(1)
}

func (m *mockDiffService) Get(ctx context.Context, id string) (*services.Run, error) {
	args := m.Called(ctx, id)
	run, _ := args.Get(0).(*services.Run)
	return run, args.Error(1)
}

func (m *mockDiffService) List(ctx context.Context, filter services.RunFilter) []services.RunSummary {
	args := m.Called(ctx, filter)
	runs, _ := args.Get(0).([]services.RunSummary)
	return runs
}

func (m *mockDiffService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockDiffService) Report(ctx context.Context, id string, format report.Format) ([]byte, error) {
	args := m.Called(ctx, id, format)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

type mockHealthService struct {
	mock.Mock
}

func (m *mockHealthService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *mockHealthService) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *mockHealthService) Version() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}
