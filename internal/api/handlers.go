// Package api contains the HTTP handlers for the pipeline service
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"talentpipe/internal/auth"
	"talentpipe/internal/repository"
	"talentpipe/internal/services"
	"talentpipe/pkg/models"
)

// Server holds the dependencies for the API server.
type Server struct {
	Catalog   *services.Catalog
	Resolver  *services.Resolver
	Checklist *services.ChecklistService
	Engine    *services.Engine
	Store     repository.Store
}

// NewServer creates a new Server.
func NewServer(catalog *services.Catalog, resolver *services.Resolver, checklist *services.ChecklistService, engine *services.Engine, store repository.Store) *Server {
	return &Server{
		Catalog:   catalog,
		Resolver:  resolver,
		Checklist: checklist,
		Engine:    engine,
		Store:     store,
	}
}

// Register mounts all API routes on the group. Catalog mutation requires an
// administrative role on top of the group's authentication middleware.
func (s *Server) Register(g *echo.Group) {
	admin := s.requireAdmin

	g.GET("/workflows", s.ListWorkflows)
	g.POST("/workflows", s.CreateWorkflow, admin)
	g.GET("/workflows/:id", s.GetWorkflow)
	g.PATCH("/workflows/:id", s.UpdateWorkflow, admin)
	g.DELETE("/workflows/:id", s.DeleteWorkflow, admin)
	g.POST("/workflows/:id/default", s.SetDefaultWorkflow, admin)

	g.GET("/workflows/:id/stages", s.ListStages)
	g.POST("/workflows/:id/stages", s.CreateStage, admin)
	g.POST("/workflows/:id/stages/reorder", s.ReorderStages, admin)
	g.PATCH("/workflows/:id/stages/:stageId", s.UpdateStage, admin)
	g.DELETE("/workflows/:id/stages/:stageId", s.DeleteStage, admin)

	g.POST("/workflows/:id/stages/:stageId/tasks", s.CreateTask, admin)
	g.POST("/workflows/:id/tasks/reorder", s.ReorderTasks, admin)
	g.PATCH("/workflows/:id/tasks/:taskId", s.UpdateTask, admin)
	g.DELETE("/workflows/:id/tasks/:taskId", s.DeleteTask, admin)

	g.GET("/workflows/:id/scopes", s.ListScopes)
	g.PUT("/workflows/:id/scopes", s.UpsertScope, admin)
	g.DELETE("/scopes/:id", s.DeleteScope, admin)

	g.GET("/submissions/:id/checklist", s.GetChecklist)
	g.GET("/submissions/:id/workflow", s.GetSubmissionWorkflow)
	g.POST("/submissions/:id/tasks/:taskId/complete", s.CompleteTask)
	g.POST("/submissions/:id/advance", s.AdvanceSubmission)
}

// HandleHealth returns basic health status with a database check.
func (s *Server) HandleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	status := models.HealthStatus{
		Status:    "ok",
		Service:   "talentpipe",
		Version:   "1.0.0",
		Timestamp: time.Now(),
		Checks:    map[string]string{"database": "ok"},
	}
	if err := s.Store.Ping(ctx); err != nil {
		status.Status = "degraded"
		status.Checks["database"] = err.Error()
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	return c.JSON(http.StatusOK, status)
}

// requireAdmin gates catalog mutation behind the administrative roles.
func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ident, ok := auth.FromContext(c.Request().Context())
		if !ok {
			return respondError(c, models.Authorizationf("authentication required"))
		}
		if !auth.IsAdministrative(ident.Role) {
			return respondError(c, models.Authorizationf("administrative role required"))
		}
		return next(c)
	}
}

func actor(c echo.Context) (models.Identity, error) {
	ident, ok := auth.FromContext(c.Request().Context())
	if !ok {
		return models.Identity{}, models.Authorizationf("authentication required")
	}
	return ident, nil
}

// respondError writes a domain error as an RFC 7807 Problem Details response.
func respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	title := "Internal Server Error"

	var de *models.DomainError
	if errors.As(err, &de) {
		switch de.Code {
		case models.ErrCodeNotFound:
			status, title = http.StatusNotFound, "Not Found"
		case models.ErrCodeValidation:
			status, title = http.StatusBadRequest, "Validation Error"
		case models.ErrCodeAuthorization:
			status, title = http.StatusForbidden, "Forbidden"
		case models.ErrCodeConflict:
			status, title = http.StatusConflict, "Conflict"
		}
	}

	problem := models.ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   err.Error(),
		Instance: c.Request().URL.Path,
	}
	body, merr := json.Marshal(problem)
	if merr != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to encode error response")
	}
	return c.Blob(status, "application/problem+json", body)
}
