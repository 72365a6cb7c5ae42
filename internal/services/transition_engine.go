package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"talentpipe/internal/repository"
	"talentpipe/pkg/models"
)

// Engine validates and performs a submission's move to a requested target
// stage. Transitions are forward-only and single-step; the whole advance
// runs in one transaction with the submission row locked, so concurrent
// advances for the same submission serialize.
type Engine struct {
	store    repository.Store
	advances metric.Int64Counter
}

// NewEngine creates a new Engine.
func NewEngine(store repository.Store) *Engine {
	meter := otel.Meter("talentpipe/engine")
	advances, _ := meter.Int64Counter("pipeline.advances",
		metric.WithDescription("Number of successful stage advances"))
	return &Engine{store: store, advances: advances}
}

// AdvanceResult confirms an applied transition.
type AdvanceResult struct {
	Submission *models.Submission `json:"submission"`
	Workflow   *models.Workflow   `json:"workflow"`
	Stage      *models.Stage      `json:"stage"`
}

// Advance moves the submission to the stage with targetStageKey in its
// resolved workflow. When the submission's current stage is modeled in that
// workflow, every required task of the current stage must be completed and
// the target's order index must strictly exceed the current one. A current
// stage key that is not modeled in the resolved workflow skips both checks
// and the move is allowed unconditionally. Reaching a terminal stage stamps
// the decision timestamp.
func (e *Engine) Advance(ctx context.Context, submissionID, targetStageKey string) (*AdvanceResult, error) {
	targetStageKey = strings.TrimSpace(targetStageKey)
	if targetStageKey == "" {
		return nil, models.Validationf("target stage key is required")
	}

	var res *AdvanceResult
	err := e.store.WithinTx(ctx, func(tx repository.Store) error {
		sub, err := tx.GetSubmissionForUpdate(ctx, submissionID)
		if err != nil {
			return err
		}

		wf, err := ResolveWorkflow(ctx, tx, sub.RequirementID, sub.JobID, sub.ClientID)
		if err != nil {
			if models.IsNotFound(err) {
				return models.Validationf("no active workflow mapped for submission %s", sub.ID)
			}
			return err
		}

		stages, err := tx.ListStages(ctx, wf.ID)
		if err != nil {
			return err
		}
		target := findStageByKey(stages, targetStageKey)
		if target == nil {
			return models.Validationf("stage %q is not part of workflow %q", targetStageKey, wf.Key)
		}

		if current := findStageByKey(stages, sub.Stage); current != nil {
			if err := e.checkRequiredTasks(ctx, tx, sub, current); err != nil {
				return err
			}
			if target.Order <= current.Order {
				return models.Validationf("stage can only move forward")
			}
		}

		now := time.Now().UTC()
		var decisionAt *time.Time
		if target.Terminal {
			decisionAt = &now
		}
		if err := tx.UpdateSubmissionStage(ctx, sub.ID, target.Key, target.Key, decisionAt); err != nil {
			return err
		}

		sub.Stage = target.Key
		sub.Status = target.Key
		sub.UpdatedAt = now
		if decisionAt != nil {
			sub.DecisionAt = decisionAt
		}
		res = &AdvanceResult{Submission: sub, Workflow: wf, Stage: target}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.advances.Add(ctx, 1, metric.WithAttributes(
		attribute.String("workflow", res.Workflow.Key),
		attribute.String("stage", res.Stage.Key),
	))
	return res, nil
}

// checkRequiredTasks fails when any required task of the stage lacks a
// completion record for the submission, naming each missing task.
func (e *Engine) checkRequiredTasks(ctx context.Context, tx repository.Store, sub *models.Submission, stage *models.Stage) error {
	tasks, err := tx.ListTasksByStage(ctx, stage.ID)
	if err != nil {
		return err
	}
	completions, err := tx.ListTaskCompletions(ctx, sub.ID)
	if err != nil {
		return err
	}
	done := make(map[string]bool, len(completions))
	for _, tc := range completions {
		done[tc.TaskID] = true
	}

	var missing []string
	for _, t := range tasks {
		if t.Required && !done[t.ID] {
			missing = append(missing, t.Name)
		}
	}
	if len(missing) > 0 {
		return models.Validationf("required tasks incomplete for stage %q: %s",
			stage.Key, strings.Join(missing, ", "))
	}
	return nil
}
