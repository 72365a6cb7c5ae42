// Package services implements the workflow catalog, scope resolution,
// checklist tracking and stage transition logic of the pipeline service.
package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"talentpipe/internal/repository"
	"talentpipe/pkg/models"
)

// Catalog manages workflow, stage, task and scope definitions.
type Catalog struct {
	store repository.Store
}

// NewCatalog creates a new Catalog.
func NewCatalog(store repository.Store) *Catalog {
	return &Catalog{store: store}
}

// CreateWorkflowInput carries the attributes for a new workflow.
type CreateWorkflowInput struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// CreateWorkflow creates a workflow. The key is unique case-insensitively
// and a new workflow is never created as the default.
func (c *Catalog) CreateWorkflow(ctx context.Context, in CreateWorkflowInput) (*models.Workflow, error) {
	key := slugify(in.Key)
	name := strings.TrimSpace(in.Name)
	if key == "" {
		return nil, models.Validationf("workflow key is required")
	}
	if name == "" {
		return nil, models.Validationf("workflow name is required")
	}

	wf := &models.Workflow{
		ID:          uuid.New().String(),
		Key:         key,
		Name:        name,
		Description: in.Description,
		Active:      true,
	}
	if in.Active != nil {
		wf.Active = *in.Active
	}
	if err := c.store.CreateWorkflow(ctx, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

// UpdateWorkflowInput carries a partial workflow update. The key is
// immutable after creation.
type UpdateWorkflowInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// UpdateWorkflow applies a partial update to a workflow.
func (c *Catalog) UpdateWorkflow(ctx context.Context, id string, in UpdateWorkflowInput) (*models.Workflow, error) {
	wf, err := c.store.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, models.Validationf("workflow name cannot be empty")
		}
		wf.Name = name
	}
	if in.Description != nil {
		wf.Description = in.Description
	}
	if in.Active != nil {
		wf.Active = *in.Active
	}
	if err := c.store.UpdateWorkflow(ctx, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

// GetWorkflow returns one workflow by id.
func (c *Catalog) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	return c.store.GetWorkflow(ctx, id)
}

// ListWorkflows returns all workflows ordered by creation time.
func (c *Catalog) ListWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	return c.store.ListWorkflows(ctx)
}

// SetDefault makes the given workflow the single default. The flag is
// cleared on every other workflow in the same transaction, so calling it
// twice with the same id is a no-op.
func (c *Catalog) SetDefault(ctx context.Context, id string) (*models.Workflow, error) {
	if err := c.store.SetDefaultWorkflow(ctx, id); err != nil {
		return nil, err
	}
	return c.store.GetWorkflow(ctx, id)
}

// DeleteWorkflow deletes a workflow and cascades to its stages, tasks and
// scopes. The current default workflow cannot be deleted.
func (c *Catalog) DeleteWorkflow(ctx context.Context, id string) error {
	wf, err := c.store.GetWorkflow(ctx, id)
	if err != nil {
		return err
	}
	if wf.IsDefault {
		return models.Validationf("the default workflow cannot be deleted")
	}
	return c.store.DeleteWorkflow(ctx, id)
}

// CreateStageInput carries the attributes for a new stage.
type CreateStageInput struct {
	Key       string  `json:"key"`
	Name      string  `json:"name"`
	Order     *int    `json:"order,omitempty"`
	Color     *string `json:"color,omitempty"`
	Terminal  bool    `json:"terminal"`
	Rejection bool    `json:"rejection"`
}

// CreateStage appends a stage to a workflow. When no order is given the
// stage lands after the current last one.
func (c *Catalog) CreateStage(ctx context.Context, workflowID string, in CreateStageInput) (*models.Stage, error) {
	if _, err := c.store.GetWorkflow(ctx, workflowID); err != nil {
		return nil, err
	}
	key := slugify(in.Key)
	name := strings.TrimSpace(in.Name)
	if key == "" {
		return nil, models.Validationf("stage key is required")
	}
	if name == "" {
		return nil, models.Validationf("stage name is required")
	}

	st := &models.Stage{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Key:        key,
		Name:       name,
		Color:      in.Color,
		Terminal:   in.Terminal,
		Rejection:  in.Rejection,
	}
	if in.Order != nil && *in.Order > 0 {
		st.Order = *in.Order
	}
	// Order indices are unique within a workflow; an explicit order must not
	// collide with an existing stage.
	err := c.store.WithinTx(ctx, func(tx repository.Store) error {
		if st.Order > 0 {
			stages, err := tx.ListStages(ctx, workflowID)
			if err != nil {
				return err
			}
			for _, other := range stages {
				if other.Order == st.Order {
					return models.Validationf("stage order %d is already used by stage %q", st.Order, other.Key)
				}
			}
		}
		return tx.CreateStage(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// UpdateStageInput carries a partial stage update.
type UpdateStageInput struct {
	Name      *string `json:"name,omitempty"`
	Color     *string `json:"color,omitempty"`
	Terminal  *bool   `json:"terminal,omitempty"`
	Rejection *bool   `json:"rejection,omitempty"`
}

// UpdateStage applies a partial update to a stage of the workflow.
func (c *Catalog) UpdateStage(ctx context.Context, workflowID, stageID string, in UpdateStageInput) (*models.Stage, error) {
	st, err := c.stageInWorkflow(ctx, workflowID, stageID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, models.Validationf("stage name cannot be empty")
		}
		st.Name = name
	}
	if in.Color != nil {
		st.Color = in.Color
	}
	if in.Terminal != nil {
		st.Terminal = *in.Terminal
	}
	if in.Rejection != nil {
		st.Rejection = *in.Rejection
	}
	if err := c.store.UpdateStage(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// ListStages returns a workflow's stages in order.
func (c *Catalog) ListStages(ctx context.Context, workflowID string) ([]*models.Stage, error) {
	if _, err := c.store.GetWorkflow(ctx, workflowID); err != nil {
		return nil, err
	}
	return c.store.ListStages(ctx, workflowID)
}

// DeleteStage deletes a stage and cascades to its tasks and their
// completion records.
func (c *Catalog) DeleteStage(ctx context.Context, workflowID, stageID string) error {
	if _, err := c.stageInWorkflow(ctx, workflowID, stageID); err != nil {
		return err
	}
	return c.store.DeleteStage(ctx, stageID)
}

// ReorderStages assigns order indices 1..N by list position. The supplied id
// set must exactly equal the workflow's current stage set; otherwise nothing
// changes.
func (c *Catalog) ReorderStages(ctx context.Context, workflowID string, orderedIDs []string) ([]*models.Stage, error) {
	var out []*models.Stage
	err := c.store.WithinTx(ctx, func(tx repository.Store) error {
		stages, err := tx.ListStages(ctx, workflowID)
		if err != nil {
			return err
		}
		if err := checkMembership(orderedIDs, stageIDs(stages)); err != nil {
			return err
		}
		orders := make([]repository.OrderUpdate, len(orderedIDs))
		for i, id := range orderedIDs {
			orders[i] = repository.OrderUpdate{ID: id, Order: i + 1}
		}
		if err := tx.UpdateStageOrders(ctx, orders); err != nil {
			return err
		}
		out, err = tx.ListStages(ctx, workflowID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTaskInput carries the attributes for a new task.
type CreateTaskInput struct {
	Key        string  `json:"key"`
	Name       string  `json:"name"`
	Role       string  `json:"role"`
	Required   *bool   `json:"required,omitempty"`
	ResourceID *string `json:"resource_id,omitempty"`
	ActionID   *string `json:"action_id,omitempty"`
	HelpURL    *string `json:"help_url,omitempty"`
	Order      *int    `json:"order,omitempty"`
}

// CreateTask attaches a task to a stage of the workflow. Tasks default to
// required; the key defaults to a slug of the name.
func (c *Catalog) CreateTask(ctx context.Context, workflowID, stageID string, in CreateTaskInput) (*models.Task, error) {
	st, err := c.store.GetStage(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if st.WorkflowID != workflowID {
		return nil, models.Validationf("stage %s does not belong to workflow %s", stageID, workflowID)
	}
	name := strings.TrimSpace(in.Name)
	role := strings.TrimSpace(in.Role)
	if name == "" {
		return nil, models.Validationf("task name is required")
	}
	if role == "" {
		return nil, models.Validationf("task role is required")
	}
	key := slugify(in.Key)
	if key == "" {
		key = slugify(name)
	}

	t := &models.Task{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		StageID:    stageID,
		Key:        key,
		Name:       name,
		Role:       role,
		ResourceID: in.ResourceID,
		ActionID:   in.ActionID,
		Required:   true,
		HelpURL:    in.HelpURL,
	}
	if in.Required != nil {
		t.Required = *in.Required
	}
	if in.Order != nil && *in.Order > 0 {
		t.Order = *in.Order
	}
	err = c.store.WithinTx(ctx, func(tx repository.Store) error {
		if t.Order > 0 {
			tasks, err := tx.ListTasksByStage(ctx, stageID)
			if err != nil {
				return err
			}
			for _, other := range tasks {
				if other.Order == t.Order {
					return models.Validationf("task order %d is already used by task %q", t.Order, other.Key)
				}
			}
		}
		return tx.CreateTask(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTaskInput carries a partial task update.
type UpdateTaskInput struct {
	Name       *string `json:"name,omitempty"`
	Role       *string `json:"role,omitempty"`
	Required   *bool   `json:"required,omitempty"`
	ResourceID *string `json:"resource_id,omitempty"`
	ActionID   *string `json:"action_id,omitempty"`
	HelpURL    *string `json:"help_url,omitempty"`
}

// UpdateTask applies a partial update to a task of the workflow.
func (c *Catalog) UpdateTask(ctx context.Context, workflowID, taskID string, in UpdateTaskInput) (*models.Task, error) {
	t, err := c.taskInWorkflow(ctx, workflowID, taskID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, models.Validationf("task name cannot be empty")
		}
		t.Name = name
	}
	if in.Role != nil {
		role := strings.TrimSpace(*in.Role)
		if role == "" {
			return nil, models.Validationf("task role cannot be empty")
		}
		t.Role = role
	}
	if in.Required != nil {
		t.Required = *in.Required
	}
	if in.ResourceID != nil {
		t.ResourceID = in.ResourceID
	}
	if in.ActionID != nil {
		t.ActionID = in.ActionID
	}
	if in.HelpURL != nil {
		t.HelpURL = in.HelpURL
	}
	if err := c.store.UpdateTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTask deletes a task and its completion records.
func (c *Catalog) DeleteTask(ctx context.Context, workflowID, taskID string) error {
	if _, err := c.taskInWorkflow(ctx, workflowID, taskID); err != nil {
		return err
	}
	return c.store.DeleteTask(ctx, taskID)
}

// ReorderTasks renumbers the workflow's tasks by list position, with order
// indices recomputed per stage: each task takes the next free index within
// its own stage. The id set must exactly match the workflow's task set.
func (c *Catalog) ReorderTasks(ctx context.Context, workflowID string, orderedIDs []string) ([]*models.Task, error) {
	var out []*models.Task
	err := c.store.WithinTx(ctx, func(tx repository.Store) error {
		tasks, err := tx.ListTasksByWorkflow(ctx, workflowID)
		if err != nil {
			return err
		}
		if err := checkMembership(orderedIDs, taskIDs(tasks)); err != nil {
			return err
		}
		stageOf := make(map[string]string, len(tasks))
		for _, t := range tasks {
			stageOf[t.ID] = t.StageID
		}
		nextInStage := make(map[string]int)
		orders := make([]repository.OrderUpdate, 0, len(orderedIDs))
		for _, id := range orderedIDs {
			stageID := stageOf[id]
			nextInStage[stageID]++
			orders = append(orders, repository.OrderUpdate{ID: id, Order: nextInStage[stageID]})
		}
		if err := tx.UpdateTaskOrders(ctx, orders); err != nil {
			return err
		}
		out, err = tx.ListTasksByWorkflow(ctx, workflowID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertScopeInput carries a scope binding.
type UpsertScopeInput struct {
	Type   models.ScopeType `json:"scope_type"`
	Value  *string          `json:"scope_value,omitempty"`
	Active *bool            `json:"active,omitempty"`
}

// UpsertScope creates or updates the binding for the (workflow, type, value)
// tuple. The value must be nil exactly when the type is global.
func (c *Catalog) UpsertScope(ctx context.Context, workflowID string, in UpsertScopeInput) (*models.Scope, error) {
	if _, err := c.store.GetWorkflow(ctx, workflowID); err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, models.Validationf("scope type %q is not one of global, client, job, requirement", in.Type)
	}
	if in.Type == models.ScopeTypeGlobal && in.Value != nil {
		return nil, models.Validationf("a global scope cannot carry a value")
	}
	if in.Type != models.ScopeTypeGlobal && (in.Value == nil || strings.TrimSpace(*in.Value) == "") {
		return nil, models.Validationf("a %s scope requires a value", in.Type)
	}

	sc := &models.Scope{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Type:       in.Type,
		Value:      in.Value,
		Active:     true,
	}
	if in.Active != nil {
		sc.Active = *in.Active
	}
	if err := c.store.UpsertScope(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// ListScopes returns a workflow's scope bindings.
func (c *Catalog) ListScopes(ctx context.Context, workflowID string) ([]*models.Scope, error) {
	if _, err := c.store.GetWorkflow(ctx, workflowID); err != nil {
		return nil, err
	}
	return c.store.ListScopes(ctx, workflowID)
}

// DeleteScope removes a scope binding.
func (c *Catalog) DeleteScope(ctx context.Context, id string) error {
	return c.store.DeleteScope(ctx, id)
}

func (c *Catalog) stageInWorkflow(ctx context.Context, workflowID, stageID string) (*models.Stage, error) {
	st, err := c.store.GetStage(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if st.WorkflowID != workflowID {
		return nil, models.Validationf("stage %s does not belong to workflow %s", stageID, workflowID)
	}
	return st, nil
}

func (c *Catalog) taskInWorkflow(ctx context.Context, workflowID, taskID string) (*models.Task, error) {
	t, err := c.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.WorkflowID != workflowID {
		return nil, models.Validationf("task %s does not belong to workflow %s", taskID, workflowID)
	}
	return t, nil
}

// checkMembership verifies the supplied ids are exactly the current set,
// with no duplicates, omissions or strangers.
func checkMembership(supplied, current []string) error {
	if len(supplied) != len(current) {
		return models.Validationf("reorder list must contain exactly the current %d ids", len(current))
	}
	seen := make(map[string]bool, len(current))
	for _, id := range current {
		seen[id] = true
	}
	for _, id := range supplied {
		if !seen[id] {
			return models.Validationf("id %s is not part of the current set, or appears twice", id)
		}
		delete(seen, id)
	}
	return nil
}

func stageIDs(stages []*models.Stage) []string {
	ids := make([]string, len(stages))
	for i, st := range stages {
		ids[i] = st.ID
	}
	return ids
}

func taskIDs(tasks []*models.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

// slugify lowercases and trims a key, replacing spaces with underscores.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "_")
}
