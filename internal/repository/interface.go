package repository

import (
	"context"
	"time"

	"talentpipe/pkg/models"
)

// OrderUpdate assigns a new order index to one stage or task.
type OrderUpdate struct {
	ID    string
	Order int
}

// Store is the persistence interface for the workflow catalog, scope
// bindings, task completions and the submission fields this service owns.
type Store interface {
	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
	// WithinTx runs fn against a transaction-scoped store. The transaction
	// commits when fn returns nil and rolls back otherwise. Nested calls on
	// a transaction-scoped store reuse the open transaction.
	WithinTx(ctx context.Context, fn func(Store) error) error

	CreateWorkflow(ctx context.Context, wf *models.Workflow) error
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	GetWorkflowByKey(ctx context.Context, key string) (*models.Workflow, error)
	ListWorkflows(ctx context.Context) ([]*models.Workflow, error)
	ListActiveWorkflows(ctx context.Context) ([]*models.Workflow, error)
	UpdateWorkflow(ctx context.Context, wf *models.Workflow) error
	// SetDefaultWorkflow atomically clears the default flag everywhere and
	// sets it on the given workflow.
	SetDefaultWorkflow(ctx context.Context, id string) error
	// DeleteWorkflow removes a workflow and its dependents; deleting the
	// current default fails with a validation error.
	DeleteWorkflow(ctx context.Context, id string) error

	CreateStage(ctx context.Context, st *models.Stage) error
	GetStage(ctx context.Context, id string) (*models.Stage, error)
	ListStages(ctx context.Context, workflowID string) ([]*models.Stage, error)
	UpdateStage(ctx context.Context, st *models.Stage) error
	UpdateStageOrders(ctx context.Context, orders []OrderUpdate) error
	DeleteStage(ctx context.Context, id string) error

	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasksByStage(ctx context.Context, stageID string) ([]*models.Task, error)
	ListTasksByWorkflow(ctx context.Context, workflowID string) ([]*models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	UpdateTaskOrders(ctx context.Context, orders []OrderUpdate) error
	DeleteTask(ctx context.Context, id string) error

	// UpsertScope inserts the binding or, when one already exists for the
	// (workflow, type, value) tuple, updates its active flag in place.
	UpsertScope(ctx context.Context, sc *models.Scope) error
	ListScopes(ctx context.Context, workflowID string) ([]*models.Scope, error)
	// FindActiveScopes returns the active bindings of one tier. A nil value
	// matches the global tier only.
	FindActiveScopes(ctx context.Context, scopeType models.ScopeType, value *string) ([]*models.Scope, error)
	DeleteScope(ctx context.Context, id string) error

	// UpsertTaskCompletion inserts or overwrites the single completion row
	// for the (submission, task) pair in one atomic statement.
	UpsertTaskCompletion(ctx context.Context, tc *models.TaskCompletion) error
	ListTaskCompletions(ctx context.Context, submissionID string) ([]*models.TaskCompletion, error)

	GetSubmission(ctx context.Context, id string) (*models.Submission, error)
	// GetSubmissionForUpdate locks the submission row for the duration of
	// the surrounding transaction so concurrent advances serialize.
	GetSubmissionForUpdate(ctx context.Context, id string) (*models.Submission, error)
	// UpdateSubmissionStage writes the new stage and status; a non-nil
	// decisionAt stamps the decision timestamp.
	UpdateSubmissionStage(ctx context.Context, id, stage, status string, decisionAt *time.Time) error
}
