package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"approval-orchestrator/backend/internal/config"
	"approval-orchestrator/backend/internal/logging"
	"approval-orchestrator/backend/internal/repository"
	"approval-orchestrator/backend/pkg/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	ctx := context.Background()
	logger := logging.NewLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	store := repository.NewPostgresStore(pool)
	if err := store.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	// Skip workflows that already exist so the script can be re-run.
	existingWorkflows, err := store.ListWorkflows(ctx)
	if err != nil {
		log.Fatalf("Failed to list existing workflows: %v", err)
	}

	existingMap := make(map[string]bool)
	for _, w := range existingWorkflows {
		existingMap[w.Name] = true
	}

	workflows := []struct {
		Name     string
		Context  map[string]interface{}
		StepName string
		Assignee string
		Channel  models.Channel
	}{
		{
			Name: "Production Deploy v2.3",
			Context: map[string]interface{}{
				"environment":         "production",
				"notification_emails": []interface{}{"ops@example.com"},
			},
			StepName: "Deploy sign-off",
			Assignee: "ops@example.com",
			Channel:  models.ChannelEmail,
		},
		{
			Name: "Q3 Hardware Purchase",
			Context: map[string]interface{}{
				"amount": 12500,
			},
			StepName: "Budget approval",
			Assignee: "finance-lead",
			Channel:  models.ChannelSlack,
		},
		{
			Name:     "Customer Data Export",
			Context:  map[string]interface{}{},
			StepName: "Privacy review",
			Assignee: "dpo",
			Channel:  models.ChannelWeb,
		},
	}

	for _, w := range workflows {
		if existingMap[w.Name] {
			logger.Info("Skipping existing workflow", "name", w.Name)
			continue
		}

		wf := &models.Workflow{
			ID:      uuid.New().String(),
			Name:    w.Name,
			Context: w.Context,
		}
		if err := store.CreateWorkflow(ctx, wf); err != nil {
			log.Printf("Failed to create workflow %s: %v", w.Name, err)
			continue
		}

		timeoutAt := time.Now().Add(60 * time.Minute)
		step := &models.ApprovalStep{
			ID:         uuid.New().String(),
			WorkflowID: wf.ID,
			StepName:   w.StepName,
			AssignedTo: w.Assignee,
			TimeoutAt:  &timeoutAt,
			Channel:    w.Channel,
		}
		if err := store.CreateApproval(ctx, step); err != nil {
			log.Printf("Failed to create approval for %s: %v", w.Name, err)
			continue
		}
		if err := store.PauseWorkflow(ctx, wf.ID); err != nil {
			log.Printf("Failed to pause workflow %s: %v", w.Name, err)
		}

		logger.Info("Seeded workflow", "name", w.Name, "id", wf.ID)
	}
	logger.Info("Seeding complete!")
}
