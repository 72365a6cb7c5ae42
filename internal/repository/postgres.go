// Package repository implements Postgres persistence for the pipeline service.
package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"talentpipe/internal/logging"
	"talentpipe/pkg/models"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so the same query code
// runs inside and outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is a PostgreSQL implementation of the Store interface.
type PostgresStore struct {
	db     DBTX
	pool   *pgxpool.Pool // nil when transaction-scoped
	logger *logging.Logger
}

// NewPostgresStore creates a new PostgresStore backed by a connection pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *logging.Logger) *PostgresStore {
	return &PostgresStore{db: pool, pool: pool, logger: logger}
}

// ApplySchema creates the service tables if they do not exist.
func ApplySchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Ping verifies the backing store is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	_, err := s.db.Exec(ctx, "SELECT 1")
	return err
}

// WithinTx runs fn against a transaction-scoped store. When called on a
// store that is already transaction-scoped, fn joins the open transaction.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	txStore := &PostgresStore{db: tx, logger: s.logger}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// violatedConstraint names the unique constraint behind a 23505, or "".
func violatedConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName
	}
	return ""
}

// --- workflows ---

func (s *PostgresStore) CreateWorkflow(ctx context.Context, wf *models.Workflow) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO workflows (id, key, name, description, active, is_default)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		wf.ID, wf.Key, wf.Name, wf.Description, wf.Active, wf.IsDefault,
	).Scan(&wf.CreatedAt)
	if isUniqueViolation(err) {
		return models.Conflictf("workflow key %q already exists", wf.Key)
	}
	return err
}

const workflowColumns = `id, key, name, description, active, is_default, created_at`

func scanWorkflow(row pgx.Row) (*models.Workflow, error) {
	var wf models.Workflow
	err := row.Scan(&wf.ID, &wf.Key, &wf.Name, &wf.Description, &wf.Active, &wf.IsDefault, &wf.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &wf, nil
}

func (s *PostgresStore) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	wf, err := scanWorkflow(s.db.QueryRow(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundf("workflow %s not found", id)
	}
	return wf, err
}

func (s *PostgresStore) GetWorkflowByKey(ctx context.Context, key string) (*models.Workflow, error) {
	wf, err := scanWorkflow(s.db.QueryRow(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE LOWER(key) = LOWER($1)`, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundf("workflow %q not found", key)
	}
	return wf, err
}

func (s *PostgresStore) listWorkflows(ctx context.Context, query string) ([]*models.Workflow, error) {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workflows []*models.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	return workflows, rows.Err()
}

func (s *PostgresStore) ListWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	return s.listWorkflows(ctx,
		`SELECT `+workflowColumns+` FROM workflows ORDER BY created_at`)
}

func (s *PostgresStore) ListActiveWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	return s.listWorkflows(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE active ORDER BY created_at`)
}

func (s *PostgresStore) UpdateWorkflow(ctx context.Context, wf *models.Workflow) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE workflows SET name = $2, description = $3, active = $4 WHERE id = $1`,
		wf.ID, wf.Name, wf.Description, wf.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundf("workflow %s not found", wf.ID)
	}
	return nil
}

func (s *PostgresStore) SetDefaultWorkflow(ctx context.Context, id string) error {
	return s.WithinTx(ctx, func(tx Store) error {
		p := tx.(*PostgresStore)
		if _, err := p.db.Exec(ctx,
			`UPDATE workflows SET is_default = FALSE WHERE is_default AND id <> $1`, id); err != nil {
			return err
		}
		tag, err := p.db.Exec(ctx,
			`UPDATE workflows SET is_default = TRUE WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return models.NotFoundf("workflow %s not found", id)
		}
		return nil
	})
}

// DeleteWorkflow removes a non-default workflow. The default guard lives in
// the DELETE predicate so a concurrent SetDefaultWorkflow cannot slip between
// a check and the delete.
func (s *PostgresStore) DeleteWorkflow(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM workflows WHERE id = $1 AND NOT is_default`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		wf, err := s.GetWorkflow(ctx, id)
		if err != nil {
			return err
		}
		if wf.IsDefault {
			return models.Validationf("the default workflow cannot be deleted")
		}
		return models.NotFoundf("workflow %s not found", id)
	}
	return nil
}

// --- stages ---

func (s *PostgresStore) CreateStage(ctx context.Context, st *models.Stage) error {
	// Order 0 means "append": the next free index within the workflow.
	err := s.db.QueryRow(ctx,
		`INSERT INTO stages (id, workflow_id, key, name, stage_order, color, terminal, rejection)
		 VALUES ($1, $2, $3, $4,
		         COALESCE(NULLIF($5::int, 0),
		                  (SELECT COALESCE(MAX(stage_order), 0) + 1 FROM stages WHERE workflow_id = $2)),
		         $6, $7, $8)
		 RETURNING stage_order, created_at`,
		st.ID, st.WorkflowID, st.Key, st.Name, st.Order, st.Color, st.Terminal, st.Rejection,
	).Scan(&st.Order, &st.CreatedAt)
	if isUniqueViolation(err) {
		if violatedConstraint(err) == "stages_order_unique" {
			return models.Conflictf("stage order %d is already taken in workflow", st.Order)
		}
		return models.Conflictf("stage key %q already exists in workflow", st.Key)
	}
	return err
}

const stageColumns = `id, workflow_id, key, name, stage_order, color, terminal, rejection, created_at`

func scanStage(row pgx.Row) (*models.Stage, error) {
	var st models.Stage
	err := row.Scan(&st.ID, &st.WorkflowID, &st.Key, &st.Name, &st.Order, &st.Color, &st.Terminal, &st.Rejection, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *PostgresStore) GetStage(ctx context.Context, id string) (*models.Stage, error) {
	st, err := scanStage(s.db.QueryRow(ctx,
		`SELECT `+stageColumns+` FROM stages WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundf("stage %s not found", id)
	}
	return st, err
}

func (s *PostgresStore) ListStages(ctx context.Context, workflowID string) ([]*models.Stage, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+stageColumns+` FROM stages WHERE workflow_id = $1 ORDER BY stage_order`, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []*models.Stage
	for rows.Next() {
		st, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

func (s *PostgresStore) UpdateStage(ctx context.Context, st *models.Stage) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE stages SET name = $2, color = $3, terminal = $4, rejection = $5 WHERE id = $1`,
		st.ID, st.Name, st.Color, st.Terminal, st.Rejection)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundf("stage %s not found", st.ID)
	}
	return nil
}

func (s *PostgresStore) UpdateStageOrders(ctx context.Context, orders []OrderUpdate) error {
	return s.WithinTx(ctx, func(tx Store) error {
		p := tx.(*PostgresStore)
		for _, o := range orders {
			if _, err := p.db.Exec(ctx,
				`UPDATE stages SET stage_order = $2 WHERE id = $1`, o.ID, o.Order); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) DeleteStage(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM stages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundf("stage %s not found", id)
	}
	return nil
}

// --- tasks ---

func (s *PostgresStore) CreateTask(ctx context.Context, t *models.Task) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO tasks (id, workflow_id, stage_id, key, name, role, resource_id, action_id, required, help_url, task_order)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		         COALESCE(NULLIF($11::int, 0),
		                  (SELECT COALESCE(MAX(task_order), 0) + 1 FROM tasks WHERE stage_id = $3)))
		 RETURNING task_order, created_at`,
		t.ID, t.WorkflowID, t.StageID, t.Key, t.Name, t.Role, t.ResourceID, t.ActionID, t.Required, t.HelpURL, t.Order,
	).Scan(&t.Order, &t.CreatedAt)
	return err
}

const taskColumns = `id, workflow_id, stage_id, key, name, role, resource_id, action_id, required, help_url, task_order, created_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.WorkflowID, &t.StageID, &t.Key, &t.Name, &t.Role,
		&t.ResourceID, &t.ActionID, &t.Required, &t.HelpURL, &t.Order, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	t, err := scanTask(s.db.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundf("task %s not found", id)
	}
	return t, err
}

func (s *PostgresStore) listTasks(ctx context.Context, query string, arg any) ([]*models.Task, error) {
	rows, err := s.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *PostgresStore) ListTasksByStage(ctx context.Context, stageID string) ([]*models.Task, error) {
	return s.listTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE stage_id = $1 ORDER BY task_order`, stageID)
}

func (s *PostgresStore) ListTasksByWorkflow(ctx context.Context, workflowID string) ([]*models.Task, error) {
	return s.listTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE workflow_id = $1 ORDER BY stage_id, task_order`, workflowID)
}

func (s *PostgresStore) UpdateTask(ctx context.Context, t *models.Task) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE tasks SET name = $2, role = $3, resource_id = $4, action_id = $5, required = $6, help_url = $7
		 WHERE id = $1`,
		t.ID, t.Name, t.Role, t.ResourceID, t.ActionID, t.Required, t.HelpURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundf("task %s not found", t.ID)
	}
	return nil
}

func (s *PostgresStore) UpdateTaskOrders(ctx context.Context, orders []OrderUpdate) error {
	return s.WithinTx(ctx, func(tx Store) error {
		p := tx.(*PostgresStore)
		for _, o := range orders {
			if _, err := p.db.Exec(ctx,
				`UPDATE tasks SET task_order = $2 WHERE id = $1`, o.ID, o.Order); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) DeleteTask(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundf("task %s not found", id)
	}
	return nil
}

// --- scopes ---

func (s *PostgresStore) UpsertScope(ctx context.Context, sc *models.Scope) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO workflow_scopes (id, workflow_id, scope_type, scope_value, active)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (workflow_id, scope_type, scope_value)
		 DO UPDATE SET active = EXCLUDED.active
		 RETURNING id, created_at`,
		sc.ID, sc.WorkflowID, sc.Type, sc.Value, sc.Active,
	).Scan(&sc.ID, &sc.CreatedAt)
}

const scopeColumns = `id, workflow_id, scope_type, scope_value, active, created_at`

func scanScope(row pgx.Row) (*models.Scope, error) {
	var sc models.Scope
	err := row.Scan(&sc.ID, &sc.WorkflowID, &sc.Type, &sc.Value, &sc.Active, &sc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *PostgresStore) listScopes(ctx context.Context, query string, args ...any) ([]*models.Scope, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scopes []*models.Scope
	for rows.Next() {
		sc, err := scanScope(rows)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, sc)
	}
	return scopes, rows.Err()
}

func (s *PostgresStore) ListScopes(ctx context.Context, workflowID string) ([]*models.Scope, error) {
	return s.listScopes(ctx,
		`SELECT `+scopeColumns+` FROM workflow_scopes WHERE workflow_id = $1 ORDER BY created_at`, workflowID)
}

func (s *PostgresStore) FindActiveScopes(ctx context.Context, scopeType models.ScopeType, value *string) ([]*models.Scope, error) {
	if value == nil {
		return s.listScopes(ctx,
			`SELECT `+scopeColumns+` FROM workflow_scopes
			 WHERE active AND scope_type = $1 AND scope_value IS NULL ORDER BY created_at`, scopeType)
	}
	return s.listScopes(ctx,
		`SELECT `+scopeColumns+` FROM workflow_scopes
		 WHERE active AND scope_type = $1 AND scope_value = $2 ORDER BY created_at`, scopeType, *value)
}

func (s *PostgresStore) DeleteScope(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM workflow_scopes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundf("scope %s not found", id)
	}
	return nil
}

// --- task completions ---

func (s *PostgresStore) UpsertTaskCompletion(ctx context.Context, tc *models.TaskCompletion) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO task_completions (submission_id, task_id, completed_by, notes, completed_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (submission_id, task_id)
		 DO UPDATE SET completed_by = EXCLUDED.completed_by,
		               notes = EXCLUDED.notes,
		               completed_at = EXCLUDED.completed_at
		 RETURNING completed_at`,
		tc.SubmissionID, tc.TaskID, tc.CompletedBy, tc.Notes, tc.CompletedAt,
	).Scan(&tc.CompletedAt)
}

func (s *PostgresStore) ListTaskCompletions(ctx context.Context, submissionID string) ([]*models.TaskCompletion, error) {
	rows, err := s.db.Query(ctx,
		`SELECT submission_id, task_id, completed_by, notes, completed_at
		 FROM task_completions WHERE submission_id = $1`, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var completions []*models.TaskCompletion
	for rows.Next() {
		var tc models.TaskCompletion
		if err := rows.Scan(&tc.SubmissionID, &tc.TaskID, &tc.CompletedBy, &tc.Notes, &tc.CompletedAt); err != nil {
			return nil, err
		}
		completions = append(completions, &tc)
	}
	return completions, rows.Err()
}

// --- submissions ---

const submissionQuery = `
	SELECT s.id, s.candidate_id, s.job_id, s.requirement_id, j.client_id,
	       s.stage, s.status, s.decision_at, s.created_at, s.updated_at
	FROM submissions s
	LEFT JOIN jobs j ON j.id = s.job_id
	WHERE s.id = $1`

func (s *PostgresStore) getSubmission(ctx context.Context, query, id string) (*models.Submission, error) {
	var sub models.Submission
	err := s.db.QueryRow(ctx, query, id).Scan(
		&sub.ID, &sub.CandidateID, &sub.JobID, &sub.RequirementID, &sub.ClientID,
		&sub.Stage, &sub.Status, &sub.DecisionAt, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundf("submission %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *PostgresStore) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	return s.getSubmission(ctx, submissionQuery, id)
}

func (s *PostgresStore) GetSubmissionForUpdate(ctx context.Context, id string) (*models.Submission, error) {
	return s.getSubmission(ctx, submissionQuery+` FOR UPDATE OF s`, id)
}

func (s *PostgresStore) UpdateSubmissionStage(ctx context.Context, id, stage, status string, decisionAt *time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE submissions
		 SET stage = $2, status = $3, decision_at = COALESCE($4, decision_at), updated_at = now()
		 WHERE id = $1`,
		id, stage, status, decisionAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundf("submission %s not found", id)
	}
	return nil
}
