package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"

	"talentpipe/internal/auth"
	"talentpipe/internal/repository"
	"talentpipe/internal/services"
	"talentpipe/pkg/models"
)

// stubStore overrides only the calls CompleteTask reaches.
type stubStore struct {
	repository.Store
	completion *models.TaskCompletion
}

func (s *stubStore) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	return &models.Submission{ID: id, Stage: models.StageKeySentToAM}, nil
}

func (s *stubStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return &models.Task{ID: id, Name: "AM Review", Role: "account_manager", Required: true}, nil
}

func (s *stubStore) UpsertTaskCompletion(ctx context.Context, tc *models.TaskCompletion) error {
	s.completion = tc
	return nil
}

func completeTaskRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = "complete_task"
	req.Params.Arguments = args
	return req
}

func newTestServer() (*stubStore, *Server) {
	st := &stubStore{}
	checklist := services.NewChecklistService(st, services.NewResolver(st))
	return st, NewServer(checklist, nil, nil, st)
}

func TestCompleteTask_RequiresAuthenticatedCaller(t *testing.T) {
	st, srv := newTestServer()

	res, err := srv.handleCompleteTask(context.Background(), completeTaskRequest(map[string]interface{}{
		"submission_id": "sub-1",
		"task_id":       "t-review",
	}))
	assert.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Nil(t, st.completion, "no completion may be recorded without an identity")
}

func TestCompleteTask_UsesCallerIdentity(t *testing.T) {
	st, srv := newTestServer()

	ctx := auth.WithIdentity(context.Background(),
		models.Identity{ID: "user-7", Email: "am@acme.com", Role: "account_manager"})
	res, err := srv.handleCompleteTask(ctx, completeTaskRequest(map[string]interface{}{
		"submission_id": "sub-1",
		"task_id":       "t-review",
		"notes":         "done",
	}))
	assert.NoError(t, err)
	assert.False(t, res.IsError)
	assert.NotNil(t, st.completion)
	assert.Equal(t, "user-7", st.completion.CompletedBy)
	assert.Equal(t, "done", *st.completion.Notes)
}

func TestCompleteTask_RoleGateHoldsOverMCP(t *testing.T) {
	st, srv := newTestServer()

	ctx := auth.WithIdentity(context.Background(),
		models.Identity{ID: "user-3", Email: "rec@acme.com", Role: "recruiter"})
	res, err := srv.handleCompleteTask(ctx, completeTaskRequest(map[string]interface{}{
		"submission_id": "sub-1",
		"task_id":       "t-review",
	}))
	assert.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Nil(t, st.completion)
}
