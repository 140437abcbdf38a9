package mocks

import (
	"context"

	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) GetActive(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockWorkflowRepository) UpdateStatus(ctx context.Context, id string, status models.WorkflowStatus) error {
	args := m.Called(ctx, id, status)

	return args.Error(0)
}

// MockExecutionLogRepository is a mock implementation of persistence.ExecutionLogRepository interface.
type MockExecutionLogRepository struct {
	mock.Mock
}

func (m *MockExecutionLogRepository) Append(ctx context.Context, entry *models.ExecutionLog) error {
	args := m.Called(ctx, entry)

	return args.Error(0)
}

func (m *MockExecutionLogRepository) Recent(ctx context.Context, workflowID string, limit int) ([]*models.ExecutionLog, error) {
	args := m.Called(ctx, workflowID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ExecutionLog), args.Error(1)
}

// MockMetricRepository is a mock implementation of persistence.MetricRepository interface.
type MockMetricRepository struct {
	mock.Mock
}

func (m *MockMetricRepository) RecordSample(ctx context.Context, sample *models.MetricSample) error {
	args := m.Called(ctx, sample)

	return args.Error(0)
}

func (m *MockMetricRepository) Recent(ctx context.Context, limit int) ([]*models.MetricSample, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.MetricSample), args.Error(1)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	workflowRepo     *MockWorkflowRepository
	executionLogRepo *MockExecutionLogRepository
	metricRepo       *MockMetricRepository
}

// NewMockPersistence creates a new MockPersistence with all mock repositories.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		workflowRepo:     &MockWorkflowRepository{},
		executionLogRepo: &MockExecutionLogRepository{},
		metricRepo:       &MockMetricRepository{},
	}
}

// GetMockWorkflowRepository returns the underlying mock workflow repository for setting up expectations.
func (m *MockPersistence) GetMockWorkflowRepository() *MockWorkflowRepository {
	return m.workflowRepo
}

// GetMockExecutionLogRepository returns the underlying mock execution log repository for setting up expectations.
func (m *MockPersistence) GetMockExecutionLogRepository() *MockExecutionLogRepository {
	return m.executionLogRepo
}

// GetMockMetricRepository returns the underlying mock metric repository for setting up expectations.
func (m *MockPersistence) GetMockMetricRepository() *MockMetricRepository {
	return m.metricRepo
}

func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository {
	return m.workflowRepo
}

func (m *MockPersistence) ExecutionLogRepository() persistence.ExecutionLogRepository {
	return m.executionLogRepo
}

func (m *MockPersistence) MetricRepository() persistence.MetricRepository {
	return m.metricRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
