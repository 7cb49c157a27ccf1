package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mednais/sop-marketplace/backend/internal/domain/entities"
	"github.com/mednais/sop-marketplace/backend/internal/domain/repositories"
)

// Mocks shared by the service tests

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *entities.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*entities.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Session), args.Error(1)
}

func (m *MockSessionRepository) ListByUser(ctx context.Context, userID string, filter repositories.SessionFilter) ([]*entities.Session, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Session), args.Error(1)
}

func (m *MockSessionRepository) UpdateStatus(ctx context.Context, id string, status entities.SessionStatus, completedAt *time.Time, totalTimeSeconds *int) error {
	args := m.Called(ctx, id, status, completedAt, totalTimeSeconds)
	return args.Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockStepExecutionRepository struct {
	mock.Mock
}

func (m *MockStepExecutionRepository) Upsert(ctx context.Context, execution *entities.StepExecution) error {
	args := m.Called(ctx, execution)
	return args.Error(0)
}

func (m *MockStepExecutionRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.StepExecution, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.StepExecution), args.Error(1)
}

func (m *MockStepExecutionRepository) ListBySessionWithSteps(ctx context.Context, sessionID string) ([]*entities.StepExecutionDetail, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.StepExecutionDetail), args.Error(1)
}

func (m *MockStepExecutionRepository) SumTimeBySession(ctx context.Context, sessionID string) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

type MockProcedureRepository struct {
	mock.Mock
}

func (m *MockProcedureRepository) GetByID(ctx context.Context, id string) (*entities.Procedure, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Procedure), args.Error(1)
}

type MockAccessProvider struct {
	mock.Mock
}

func (m *MockAccessProvider) CanExecute(ctx context.Context, userID string, procedure *entities.Procedure) (bool, error) {
	args := m.Called(ctx, userID, procedure)
	return args.Bool(0), args.Error(1)
}

// Test fixtures

func testProcedure(id string, stepCount int) *entities.Procedure {
	p := &entities.Procedure{
		ID:       id,
		AuthorID: "author-1",
		Title:    "Test Procedure",
	}
	for i := 1; i <= stepCount; i++ {
		p.Steps = append(p.Steps, entities.Step{
			ID:          stepID(id, i),
			ProcedureID: id,
			Order:       i,
			Title:       stepID(id, i),
		})
	}
	return p
}

func stepID(procedureID string, order int) string {
	return procedureID + "-step-" + string(rune('0'+order))
}

func testExecution(procedureID string, order, seconds int) *entities.StepExecutionDetail {
	return &entities.StepExecutionDetail{
		StepExecution: entities.StepExecution{
			SessionID:   "sess-1",
			StepID:      stepID(procedureID, order),
			TimeSeconds: seconds,
		},
		StepTitle: stepID(procedureID, order),
		StepOrder: order,
	}
}

func intPtr(v int) *int {
	return &v
}
