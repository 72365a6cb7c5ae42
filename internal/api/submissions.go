package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetChecklist returns the submission's checklist for its current stage
// (GET /api/v1/submissions/:id/checklist)
func (s *Server) GetChecklist(c echo.Context) error {
	cl, err := s.Checklist.BuildChecklist(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

type submissionWorkflowResponse struct {
	Workflow any `json:"workflow"`
	Stages   any `json:"stages"`
}

// GetSubmissionWorkflow returns the workflow the resolver applies to the
// submission, with its stage ladder
// (GET /api/v1/submissions/:id/workflow)
func (s *Server) GetSubmissionWorkflow(c echo.Context) error {
	ctx := c.Request().Context()
	sub, err := s.Store.GetSubmission(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	wf, err := s.Resolver.ResolveForSubmission(ctx, sub)
	if err != nil {
		return respondError(c, err)
	}
	stages, err := s.Store.ListStages(ctx, wf.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, submissionWorkflowResponse{Workflow: wf, Stages: stages})
}

type completeTaskRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// CompleteTask marks a task complete for the submission on behalf of the
// authenticated actor
// (POST /api/v1/submissions/:id/tasks/:taskId/complete)
func (s *Server) CompleteTask(c echo.Context) error {
	var in completeTaskRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	ident, err := actor(c)
	if err != nil {
		return respondError(c, err)
	}
	tc, err := s.Checklist.CompleteTask(c.Request().Context(), c.Param("id"), c.Param("taskId"), ident, in.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tc)
}

type advanceRequest struct {
	TargetStageKey string `json:"target_stage_key"`
}

// AdvanceSubmission moves the submission to the requested stage
// (POST /api/v1/submissions/:id/advance)
func (s *Server) AdvanceSubmission(c echo.Context) error {
	var in advanceRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	res, err := s.Engine.Advance(c.Request().Context(), c.Param("id"), in.TargetStageKey)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
