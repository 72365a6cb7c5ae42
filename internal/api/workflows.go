package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"talentpipe/internal/services"
)

// ListWorkflows returns all workflows
// (GET /api/v1/workflows)
func (s *Server) ListWorkflows(c echo.Context) error {
	workflows, err := s.Catalog.ListWorkflows(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, workflows)
}

// CreateWorkflow creates a workflow
// (POST /api/v1/workflows)
func (s *Server) CreateWorkflow(c echo.Context) error {
	var in services.CreateWorkflowInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	wf, err := s.Catalog.CreateWorkflow(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, wf)
}

// GetWorkflow returns one workflow
// (GET /api/v1/workflows/:id)
func (s *Server) GetWorkflow(c echo.Context) error {
	wf, err := s.Catalog.GetWorkflow(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, wf)
}

// UpdateWorkflow applies a partial workflow update
// (PATCH /api/v1/workflows/:id)
func (s *Server) UpdateWorkflow(c echo.Context) error {
	var in services.UpdateWorkflowInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	wf, err := s.Catalog.UpdateWorkflow(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, wf)
}

// DeleteWorkflow deletes a workflow and its stages, tasks and scopes
// (DELETE /api/v1/workflows/:id)
func (s *Server) DeleteWorkflow(c echo.Context) error {
	if err := s.Catalog.DeleteWorkflow(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetDefaultWorkflow makes the workflow the single default
// (POST /api/v1/workflows/:id/default)
func (s *Server) SetDefaultWorkflow(c echo.Context) error {
	wf, err := s.Catalog.SetDefault(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, wf)
}

// ListStages returns a workflow's stages in order
// (GET /api/v1/workflows/:id/stages)
func (s *Server) ListStages(c echo.Context) error {
	stages, err := s.Catalog.ListStages(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, stages)
}

// CreateStage appends a stage to a workflow
// (POST /api/v1/workflows/:id/stages)
func (s *Server) CreateStage(c echo.Context) error {
	var in services.CreateStageInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	st, err := s.Catalog.CreateStage(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, st)
}

// UpdateStage applies a partial stage update
// (PATCH /api/v1/workflows/:id/stages/:stageId)
func (s *Server) UpdateStage(c echo.Context) error {
	var in services.UpdateStageInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	st, err := s.Catalog.UpdateStage(c.Request().Context(), c.Param("id"), c.Param("stageId"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// DeleteStage deletes a stage, its tasks and their completion records
// (DELETE /api/v1/workflows/:id/stages/:stageId)
func (s *Server) DeleteStage(c echo.Context) error {
	if err := s.Catalog.DeleteStage(c.Request().Context(), c.Param("id"), c.Param("stageId")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

// ReorderStages assigns order indices by list position
// (POST /api/v1/workflows/:id/stages/reorder)
func (s *Server) ReorderStages(c echo.Context) error {
	var in reorderRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	stages, err := s.Catalog.ReorderStages(c.Request().Context(), c.Param("id"), in.IDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, stages)
}

// CreateTask attaches a task to a stage
// (POST /api/v1/workflows/:id/stages/:stageId/tasks)
func (s *Server) CreateTask(c echo.Context) error {
	var in services.CreateTaskInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	t, err := s.Catalog.CreateTask(c.Request().Context(), c.Param("id"), c.Param("stageId"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// UpdateTask applies a partial task update
// (PATCH /api/v1/workflows/:id/tasks/:taskId)
func (s *Server) UpdateTask(c echo.Context) error {
	var in services.UpdateTaskInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	t, err := s.Catalog.UpdateTask(c.Request().Context(), c.Param("id"), c.Param("taskId"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// DeleteTask deletes a task and its completion records
// (DELETE /api/v1/workflows/:id/tasks/:taskId)
func (s *Server) DeleteTask(c echo.Context) error {
	if err := s.Catalog.DeleteTask(c.Request().Context(), c.Param("id"), c.Param("taskId")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ReorderTasks renumbers tasks per stage by list position
// (POST /api/v1/workflows/:id/tasks/reorder)
func (s *Server) ReorderTasks(c echo.Context) error {
	var in reorderRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	tasks, err := s.Catalog.ReorderTasks(c.Request().Context(), c.Param("id"), in.IDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// ListScopes returns a workflow's scope bindings
// (GET /api/v1/workflows/:id/scopes)
func (s *Server) ListScopes(c echo.Context) error {
	scopes, err := s.Catalog.ListScopes(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, scopes)
}

// UpsertScope creates or updates a scope binding
// (PUT /api/v1/workflows/:id/scopes)
func (s *Server) UpsertScope(c echo.Context) error {
	var in services.UpsertScopeInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	sc, err := s.Catalog.UpsertScope(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sc)
}

// DeleteScope removes a scope binding
// (DELETE /api/v1/scopes/:id)
func (s *Server) DeleteScope(c echo.Context) error {
	if err := s.Catalog.DeleteScope(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
