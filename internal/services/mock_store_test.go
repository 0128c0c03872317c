package services

import (
	"github.com/stretchr/testify/mock"
)

// MockRunStore is a mock for the RunStore interface
type MockRunStore struct {
	mock.Mock
}

func (m *MockRunStore) Save(run *Run) error {
	return m.Called(run).Error(0)
}

func (m *MockRunStore) Get(id string) (*Run, error) {
	args := m.Called(id)
	run, _ := args.Get(0).(*Run)
	return run, args.Error(1)
}

func (m *MockRunStore) List(filter RunFilter) []RunSummary {
	return m.Called(filter).Get(0).([]RunSummary)
}

func (m *MockRunStore) Delete(id string) error {
	return m.Called(id).Error(0)
}

func (m *MockRunStore) Count() int {
	return m.Called().Int(0)
}
