package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"talentpipe/pkg/models"
)

// standardLadder is the seeded seven-stage ladder with one required task on
// the sent_to_am stage.
func standardLadder() []*models.Stage {
	keys := []struct {
		key      string
		terminal bool
	}{
		{models.StageKeyNew, false},
		{models.StageKeyScreening, false},
		{models.StageKeySentToAM, false},
		{models.StageKeyInterview, false},
		{models.StageKeyOffer, false},
		{models.StageKeyHired, true},
		{models.StageKeyRejected, true},
	}
	stages := make([]*models.Stage, len(keys))
	for i, k := range keys {
		stages[i] = &models.Stage{
			ID:         "st-" + k.key,
			WorkflowID: "wf-1",
			Key:        k.key,
			Order:      i + 1,
			Terminal:   k.terminal,
		}
	}
	return stages
}

func newEngineFixture(sub *models.Submission) (*MockStore, *Engine) {
	store := new(MockStore)
	wf := &models.Workflow{ID: "wf-1", Key: "standard_hiring", Active: true, IsDefault: true}

	store.On("GetSubmissionForUpdate", mock.Anything, sub.ID).Return(sub, nil)
	expectResolveGlobal(store, wf)
	store.On("ListStages", mock.Anything, "wf-1").Return(standardLadder(), nil)
	return store, NewEngine(store)
}

func TestAdvance(t *testing.T) {
	sub := &models.Submission{ID: "sub-1", Stage: models.StageKeyNew, Status: models.StageKeyNew}
	store, engine := newEngineFixture(sub)

	// No tasks on the new stage, so nothing gates the move.
	store.On("ListTasksByStage", mock.Anything, "st-new").Return([]*models.Task{}, nil)
	store.On("ListTaskCompletions", mock.Anything, "sub-1").Return([]*models.TaskCompletion{}, nil)
	store.On("UpdateSubmissionStage", mock.Anything, "sub-1",
		models.StageKeySentToAM, models.StageKeySentToAM, (*time.Time)(nil)).Return(nil)

	res, err := engine.Advance(context.Background(), "sub-1", models.StageKeySentToAM)
	assert.NoError(t, err)
	assert.Equal(t, models.StageKeySentToAM, res.Submission.Stage)
	assert.Equal(t, models.StageKeySentToAM, res.Submission.Status)
	assert.Equal(t, "standard_hiring", res.Workflow.Key)
	assert.Nil(t, res.Submission.DecisionAt)
	store.AssertExpectations(t)
}

func TestAdvance_BlockedByRequiredTask(t *testing.T) {
	sub := &models.Submission{ID: "sub-1", Stage: models.StageKeySentToAM}
	store, engine := newEngineFixture(sub)

	review := &models.Task{ID: "t-review", StageID: "st-sent_to_am", Name: "AM Review", Role: "account_manager", Required: true}
	store.On("ListTasksByStage", mock.Anything, "st-sent_to_am").Return([]*models.Task{review}, nil)
	store.On("ListTaskCompletions", mock.Anything, "sub-1").Return([]*models.TaskCompletion{}, nil)

	_, err := engine.Advance(context.Background(), "sub-1", models.StageKeyInterview)
	assert.True(t, models.IsValidation(err))
	assert.Contains(t, err.Error(), "AM Review", "the error names each missing task")
	store.AssertNotCalled(t, "UpdateSubmissionStage",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdvance_AfterTaskCompleted(t *testing.T) {
	sub := &models.Submission{ID: "sub-1", Stage: models.StageKeySentToAM}
	store, engine := newEngineFixture(sub)

	review := &models.Task{ID: "t-review", StageID: "st-sent_to_am", Name: "AM Review", Role: "account_manager", Required: true}
	store.On("ListTasksByStage", mock.Anything, "st-sent_to_am").Return([]*models.Task{review}, nil)
	store.On("ListTaskCompletions", mock.Anything, "sub-1").Return([]*models.TaskCompletion{
		{SubmissionID: "sub-1", TaskID: "t-review", CompletedBy: "user-7"},
	}, nil)
	store.On("UpdateSubmissionStage", mock.Anything, "sub-1",
		models.StageKeyInterview, models.StageKeyInterview, (*time.Time)(nil)).Return(nil)

	res, err := engine.Advance(context.Background(), "sub-1", models.StageKeyInterview)
	assert.NoError(t, err)
	assert.Equal(t, models.StageKeyInterview, res.Stage.Key)
	store.AssertExpectations(t)
}

func TestAdvance_OptionalTaskDoesNotGate(t *testing.T) {
	sub := &models.Submission{ID: "sub-1", Stage: models.StageKeySentToAM}
	store, engine := newEngineFixture(sub)

	brief := &models.Task{ID: "t-brief", StageID: "st-sent_to_am", Name: "Client Brief", Role: "account_manager", Required: false}
	store.On("ListTasksByStage", mock.Anything, "st-sent_to_am").Return([]*models.Task{brief}, nil)
	store.On("ListTaskCompletions", mock.Anything, "sub-1").Return([]*models.TaskCompletion{}, nil)
	store.On("UpdateSubmissionStage", mock.Anything, "sub-1",
		models.StageKeyInterview, models.StageKeyInterview, (*time.Time)(nil)).Return(nil)

	_, err := engine.Advance(context.Background(), "sub-1", models.StageKeyInterview)
	assert.NoError(t, err)
}

func TestAdvance_BackwardRefused(t *testing.T) {
	sub := &models.Submission{ID: "sub-1", Stage: models.StageKeyInterview}
	store, engine := newEngineFixture(sub)

	store.On("ListTasksByStage", mock.Anything, "st-interview").Return([]*models.Task{}, nil)
	store.On("ListTaskCompletions", mock.Anything, "sub-1").Return([]*models.TaskCompletion{}, nil)

	_, err := engine.Advance(context.Background(), "sub-1", models.StageKeyScreening)
	assert.True(t, models.IsValidation(err))
	assert.Contains(t, err.Error(), "forward")
	store.AssertNotCalled(t, "UpdateSubmissionStage",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdvance_SameStageRefused(t *testing.T) {
	sub := &models.Submission{ID: "sub-1", Stage: models.StageKeyInterview}
	store, engine := newEngineFixture(sub)

	store.On("ListTasksByStage", mock.Anything, "st-interview").Return([]*models.Task{}, nil)
	store.On("ListTaskCompletions", mock.Anything, "sub-1").Return([]*models.TaskCompletion{}, nil)

	_, err := engine.Advance(context.Background(), "sub-1", models.StageKeyInterview)
	assert.True(t, models.IsValidation(err))
}

func TestAdvance_TerminalStampsDecision(t *testing.T) {
	sub := &models.Submission{ID: "sub-1", Stage: models.StageKeyOffer}
	store, engine := newEngineFixture(sub)

	store.On("ListTasksByStage", mock.Anything, "st-offer").Return([]*models.Task{}, nil)
	store.On("ListTaskCompletions", mock.Anything, "sub-1").Return([]*models.TaskCompletion{}, nil)
	store.On("UpdateSubmissionStage", mock.Anything, "sub-1",
		models.StageKeyHired, models.StageKeyHired,
		mock.MatchedBy(func(ts *time.Time) bool { return ts != nil })).Return(nil)

	res, err := engine.Advance(context.Background(), "sub-1", models.StageKeyHired)
	assert.NoError(t, err)
	assert.NotNil(t, res.Submission.DecisionAt)
	assert.True(t, res.Stage.Terminal)
}

func TestAdvance_UnknownTargetStage(t *testing.T) {
	sub := &models.Submission{ID: "sub-1", Stage: models.StageKeyNew}
	_, engine := newEngineFixture(sub)

	_, err := engine.Advance(context.Background(), "sub-1", "background_check")
	assert.True(t, models.IsValidation(err))
	assert.Contains(t, err.Error(), "background_check")
}

func TestAdvance_EmptyTarget(t *testing.T) {
	store := new(MockStore)
	engine := NewEngine(store)

	_, err := engine.Advance(context.Background(), "sub-1", "  ")
	assert.True(t, models.IsValidation(err))
	store.AssertNotCalled(t, "GetSubmissionForUpdate", mock.Anything, mock.Anything)
}

// A submission whose stored stage key is not modeled in the resolved workflow
// moves without gating: neither the required-task check nor the forward-only
// check applies, so a move to any modeled stage succeeds.
func TestAdvance_UnmodeledStageSkipsGating(t *testing.T) {
	sub := &models.Submission{ID: "sub-1", Stage: "phone_screen"}
	store, engine := newEngineFixture(sub)

	store.On("UpdateSubmissionStage", mock.Anything, "sub-1",
		models.StageKeyNew, models.StageKeyNew, (*time.Time)(nil)).Return(nil)

	res, err := engine.Advance(context.Background(), "sub-1", models.StageKeyNew)
	assert.NoError(t, err)
	assert.Equal(t, models.StageKeyNew, res.Submission.Stage)
	store.AssertNotCalled(t, "ListTasksByStage", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "ListTaskCompletions", mock.Anything, mock.Anything)
}

func TestAdvance_NoActiveWorkflow(t *testing.T) {
	store := new(MockStore)
	engine := NewEngine(store)

	sub := &models.Submission{ID: "sub-1", Stage: models.StageKeyNew}
	store.On("GetSubmissionForUpdate", mock.Anything, "sub-1").Return(sub, nil)
	store.On("FindActiveScopes", mock.Anything, models.ScopeTypeGlobal, (*string)(nil)).
		Return([]*models.Scope{}, nil)
	store.On("ListActiveWorkflows", mock.Anything).Return([]*models.Workflow{}, nil)

	_, err := engine.Advance(context.Background(), "sub-1", models.StageKeyScreening)
	assert.True(t, models.IsValidation(err))
	assert.Contains(t, err.Error(), "no active workflow")
}

func TestAdvance_SubmissionNotFound(t *testing.T) {
	store := new(MockStore)
	engine := NewEngine(store)

	store.On("GetSubmissionForUpdate", mock.Anything, "missing").
		Return(nil, models.NotFoundf("submission %s not found", "missing"))

	_, err := engine.Advance(context.Background(), "missing", models.StageKeyScreening)
	assert.True(t, models.IsNotFound(err))
}
