// Seeds the database schema and the standard hiring workflow.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"talentpipe/internal/config"
	"talentpipe/internal/logging"
	"talentpipe/internal/repository"
	"talentpipe/internal/services"
	"talentpipe/pkg/models"
)

func main() {
	ctx := context.Background()
	logger := logging.NewLogger()

	// Load config
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to DB
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	if err := repository.ApplySchema(ctx, pool); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	logger.Info("Schema applied")

	store := repository.NewPostgresStore(pool, logger)
	catalog := services.NewCatalog(store)

	// Skip when the standard workflow already exists
	if wf, err := store.GetWorkflowByKey(ctx, "standard_hiring"); err == nil {
		logger.Info("Workflow already seeded", "id", wf.ID)
		return
	} else if !models.IsNotFound(err) {
		log.Fatalf("Failed to check existing workflows: %v", err)
	}

	description := "Default hiring pipeline applied when no narrower scope matches"
	wf, err := catalog.CreateWorkflow(ctx, services.CreateWorkflowInput{
		Key:         "standard_hiring",
		Name:        "Standard Hiring",
		Description: &description,
	})
	if err != nil {
		log.Fatalf("Failed to create workflow: %v", err)
	}

	stages := []services.CreateStageInput{
		{Key: models.StageKeyNew, Name: "New"},
		{Key: models.StageKeyScreening, Name: "Screening"},
		{Key: models.StageKeySentToAM, Name: "Sent to Account Manager"},
		{Key: models.StageKeyInterview, Name: "Interview"},
		{Key: models.StageKeyOffer, Name: "Offer"},
		{Key: models.StageKeyHired, Name: "Hired", Terminal: true},
		{Key: models.StageKeyRejected, Name: "Rejected", Terminal: true, Rejection: true},
	}
	byKey := make(map[string]*models.Stage, len(stages))
	for _, in := range stages {
		st, err := catalog.CreateStage(ctx, wf.ID, in)
		if err != nil {
			log.Fatalf("Failed to create stage %s: %v", in.Key, err)
		}
		byKey[st.Key] = st
	}

	if _, err := catalog.CreateTask(ctx, wf.ID, byKey[models.StageKeySentToAM].ID, services.CreateTaskInput{
		Key:  "am_review",
		Name: "AM Review",
		Role: "account_manager",
	}); err != nil {
		log.Fatalf("Failed to create task: %v", err)
	}

	if _, err := catalog.UpsertScope(ctx, wf.ID, services.UpsertScopeInput{
		Type: models.ScopeTypeGlobal,
	}); err != nil {
		log.Fatalf("Failed to create global scope: %v", err)
	}

	if _, err := catalog.SetDefault(ctx, wf.ID); err != nil {
		log.Fatalf("Failed to set default workflow: %v", err)
	}

	logger.Info("Seeded standard hiring workflow", "id", wf.ID)
}
