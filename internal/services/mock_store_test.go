package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"talentpipe/internal/repository"
	"talentpipe/pkg/models"
)

// MockStore is a testify mock of repository.Store. WithinTx runs the closure
// against the mock itself, so transactional code paths exercise the same
// expectations as non-transactional ones.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	return fn(m)
}

func (m *MockStore) CreateWorkflow(ctx context.Context, wf *models.Workflow) error {
	args := m.Called(ctx, wf)
	return args.Error(0)
}

func (m *MockStore) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if wf := args.Get(0); wf != nil {
		return wf.(*models.Workflow), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) GetWorkflowByKey(ctx context.Context, key string) (*models.Workflow, error) {
	args := m.Called(ctx, key)
	if wf := args.Get(0); wf != nil {
		return wf.(*models.Workflow), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if wfs := args.Get(0); wfs != nil {
		return wfs.([]*models.Workflow), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListActiveWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if wfs := args.Get(0); wfs != nil {
		return wfs.([]*models.Workflow), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) UpdateWorkflow(ctx context.Context, wf *models.Workflow) error {
	args := m.Called(ctx, wf)
	return args.Error(0)
}

func (m *MockStore) SetDefaultWorkflow(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) DeleteWorkflow(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) CreateStage(ctx context.Context, st *models.Stage) error {
	args := m.Called(ctx, st)
	return args.Error(0)
}

func (m *MockStore) GetStage(ctx context.Context, id string) (*models.Stage, error) {
	args := m.Called(ctx, id)
	if st := args.Get(0); st != nil {
		return st.(*models.Stage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListStages(ctx context.Context, workflowID string) ([]*models.Stage, error) {
	args := m.Called(ctx, workflowID)
	if sts := args.Get(0); sts != nil {
		return sts.([]*models.Stage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) UpdateStage(ctx context.Context, st *models.Stage) error {
	args := m.Called(ctx, st)
	return args.Error(0)
}

func (m *MockStore) UpdateStageOrders(ctx context.Context, orders []repository.OrderUpdate) error {
	args := m.Called(ctx, orders)
	return args.Error(0)
}

func (m *MockStore) DeleteStage(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) CreateTask(ctx context.Context, t *models.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*models.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListTasksByStage(ctx context.Context, stageID string) ([]*models.Task, error) {
	args := m.Called(ctx, stageID)
	if ts := args.Get(0); ts != nil {
		return ts.([]*models.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListTasksByWorkflow(ctx context.Context, workflowID string) ([]*models.Task, error) {
	args := m.Called(ctx, workflowID)
	if ts := args.Get(0); ts != nil {
		return ts.([]*models.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) UpdateTask(ctx context.Context, t *models.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockStore) UpdateTaskOrders(ctx context.Context, orders []repository.OrderUpdate) error {
	args := m.Called(ctx, orders)
	return args.Error(0)
}

func (m *MockStore) DeleteTask(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) UpsertScope(ctx context.Context, sc *models.Scope) error {
	args := m.Called(ctx, sc)
	return args.Error(0)
}

func (m *MockStore) ListScopes(ctx context.Context, workflowID string) ([]*models.Scope, error) {
	args := m.Called(ctx, workflowID)
	if scs := args.Get(0); scs != nil {
		return scs.([]*models.Scope), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) FindActiveScopes(ctx context.Context, scopeType models.ScopeType, value *string) ([]*models.Scope, error) {
	args := m.Called(ctx, scopeType, value)
	if scs := args.Get(0); scs != nil {
		return scs.([]*models.Scope), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) DeleteScope(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) UpsertTaskCompletion(ctx context.Context, tc *models.TaskCompletion) error {
	args := m.Called(ctx, tc)
	return args.Error(0)
}

func (m *MockStore) ListTaskCompletions(ctx context.Context, submissionID string) ([]*models.TaskCompletion, error) {
	args := m.Called(ctx, submissionID)
	if tcs := args.Get(0); tcs != nil {
		return tcs.([]*models.TaskCompletion), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	args := m.Called(ctx, id)
	if sub := args.Get(0); sub != nil {
		return sub.(*models.Submission), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) GetSubmissionForUpdate(ctx context.Context, id string) (*models.Submission, error) {
	args := m.Called(ctx, id)
	if sub := args.Get(0); sub != nil {
		return sub.(*models.Submission), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) UpdateSubmissionStage(ctx context.Context, id, stage, status string, decisionAt *time.Time) error {
	args := m.Called(ctx, id, stage, status, decisionAt)
	return args.Error(0)
}

func strptr(s string) *string { return &s }

func intptr(i int) *int { return &i }
