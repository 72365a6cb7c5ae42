package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"talentpipe/internal/auth"
	"talentpipe/internal/repository"
	"talentpipe/pkg/models"
)

// ChecklistService tracks which gating tasks have been completed for a
// submission's current stage.
type ChecklistService struct {
	store       repository.Store
	resolver    *Resolver
	completions metric.Int64Counter
}

// NewChecklistService creates a new ChecklistService.
func NewChecklistService(store repository.Store, resolver *Resolver) *ChecklistService {
	meter := otel.Meter("talentpipe/checklist")
	completions, _ := meter.Int64Counter("pipeline.task_completions",
		metric.WithDescription("Number of task completion upserts"))
	return &ChecklistService{store: store, resolver: resolver, completions: completions}
}

// CanCompleteTask reports whether an actor role may complete a task owned by
// taskRole: an exact (case-insensitive) role match, or an administrative
// override.
func CanCompleteTask(actorRole, taskRole string) bool {
	if strings.EqualFold(strings.TrimSpace(actorRole), strings.TrimSpace(taskRole)) && actorRole != "" {
		return true
	}
	return auth.IsAdministrative(actorRole)
}

// BuildChecklist resolves the submission's workflow, locates the stage
// matching its current stage key and left-joins that stage's tasks against
// the submission's completion records. A stage key not modeled in the
// resolved workflow yields an empty checklist.
func (s *ChecklistService) BuildChecklist(ctx context.Context, submissionID string) (*models.Checklist, error) {
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	wf, err := s.resolver.ResolveForSubmission(ctx, sub)
	if err != nil {
		return nil, err
	}

	cl := &models.Checklist{
		SubmissionID: sub.ID,
		WorkflowID:   wf.ID,
		WorkflowKey:  wf.Key,
		StageKey:     sub.Stage,
		Items:        []models.ChecklistItem{},
	}

	stages, err := s.store.ListStages(ctx, wf.ID)
	if err != nil {
		return nil, err
	}
	stage := findStageByKey(stages, sub.Stage)
	if stage == nil {
		return cl, nil
	}

	tasks, err := s.store.ListTasksByStage(ctx, stage.ID)
	if err != nil {
		return nil, err
	}
	completions, err := s.store.ListTaskCompletions(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	completed := make(map[string]*models.TaskCompletion, len(completions))
	for _, tc := range completions {
		completed[tc.TaskID] = tc
	}

	for _, t := range tasks {
		item := models.ChecklistItem{Task: *t, Required: t.Required}
		if tc, ok := completed[t.ID]; ok {
			item.Completed = true
			item.CompletedBy = &tc.CompletedBy
			item.CompletedAt = &tc.CompletedAt
			item.Notes = tc.Notes
		}
		cl.Items = append(cl.Items, item)
	}
	return cl, nil
}

// CompleteTask records that the actor satisfied the task for the
// submission. Completion is an idempotent upsert: at most one record exists
// per (submission, task), and a repeat call overwrites completer, notes and
// timestamp.
func (s *ChecklistService) CompleteTask(ctx context.Context, submissionID, taskID string, actor models.Identity, notes *string) (*models.TaskCompletion, error) {
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !CanCompleteTask(actor.Role, task.Role) {
		return nil, models.Authorizationf("role %q may not complete task %q owned by role %q", actor.Role, task.Name, task.Role)
	}

	tc := &models.TaskCompletion{
		SubmissionID: sub.ID,
		TaskID:       task.ID,
		CompletedBy:  actor.ID,
		Notes:        notes,
		CompletedAt:  time.Now().UTC(),
	}
	if err := s.store.UpsertTaskCompletion(ctx, tc); err != nil {
		return nil, err
	}
	s.completions.Add(ctx, 1)
	return tc, nil
}

// findStageByKey returns the stage with the given key, or nil.
func findStageByKey(stages []*models.Stage, key string) *models.Stage {
	for _, st := range stages {
		if st.Key == key {
			return st
		}
	}
	return nil
}
