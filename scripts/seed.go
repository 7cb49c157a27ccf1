package main

import (
	"context"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/mednais/sop-marketplace/backend/internal/infrastructure/clients/postgres"
	"github.com/mednais/sop-marketplace/backend/pkg/config"
)

type seedStep struct {
	order        int
	title        string
	description  string
	timerSeconds *int
	question     *string
}

type seedProcedure struct {
	title       string
	description string
	priceCents  int
	steps       []seedStep
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	ctx := context.Background()
	db := pgClient.DB()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := db.ExecContext(ctx, `
			TRUNCATE TABLE
				step_executions,
				sessions,
				purchases,
				steps,
				procedures
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	authorID := uuid.New().String()
	demoUserID := uuid.New().String()

	procedures := []seedProcedure{
		{
			title:       "Espresso Machine Deep Clean",
			description: "Weekly backflush and descale routine for a commercial espresso machine",
			priceCents:  0,
			steps: []seedStep{
				{order: 1, title: "Remove and soak portafilters", description: "Soak baskets and portafilters in cleaning solution", timerSeconds: intPtr(300)},
				{order: 2, title: "Backflush each group head", description: "Run five 10-second backflush cycles with detergent"},
				{order: 3, title: "Rinse cycle", description: "Backflush with clean water until no residue remains", timerSeconds: intPtr(120)},
				{order: 4, title: "Wipe steam wands", description: "Purge and wipe each steam wand", question: strPtr("Did all wands purge clean steam?")},
			},
		},
		{
			title:       "Server Rack Decommission",
			description: "Safe shutdown and removal checklist for a rack-mounted server",
			priceCents:  4900,
			steps: []seedStep{
				{order: 1, title: "Verify workloads migrated", description: "Confirm no active services remain on the host", question: strPtr("Is the host drained in the scheduler?")},
				{order: 2, title: "Graceful shutdown", description: "Issue shutdown and wait for power-off", timerSeconds: intPtr(180)},
				{order: 3, title: "Unplug and label cables", description: "Label both ends of every cable before removal"},
				{order: 4, title: "Remove from rack", description: "Two-person lift, rails out first"},
				{order: 5, title: "Update inventory", description: "Mark asset as decommissioned in the CMDB", question: strPtr("Inventory record updated?")},
			},
		},
		{
			title:       "Sourdough Starter Refresh",
			description: "Daily feeding routine to keep a starter active",
			priceCents:  0,
			steps: []seedStep{
				{order: 1, title: "Discard half the starter", description: "Keep roughly 100g in the jar"},
				{order: 2, title: "Feed with flour and water", description: "Add 100g flour and 100g water, stir well"},
				{order: 3, title: "Rest at room temperature", description: "Leave loosely covered until doubled", timerSeconds: intPtr(14400)},
			},
		},
	}

	for _, p := range procedures {
		procedureID := uuid.New().String()
		_, err := db.ExecContext(
			ctx,
			`INSERT INTO procedures (id, author_id, title, description, price_cents, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`,
			procedureID, authorID, p.title, p.description, p.priceCents,
		)
		if err != nil {
			log.Printf("Failed to create procedure %s: %v", p.title, err)
			continue
		}

		for _, s := range p.steps {
			_, err := db.ExecContext(
				ctx,
				`INSERT INTO steps (id, procedure_id, "order", title, description, timer_seconds, question, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
				uuid.New().String(), procedureID, s.order, s.title, s.description, s.timerSeconds, s.question,
			)
			if err != nil {
				log.Printf("Failed to create step %q for %s: %v", s.title, p.title, err)
			}
		}

		// Give the demo user access to the paid procedures
		if p.priceCents > 0 {
			_, err := db.ExecContext(
				ctx,
				`INSERT INTO purchases (id, user_id, procedure_id, status, created_at)
				 VALUES ($1, $2, $3, 'completed', NOW())`,
				uuid.New().String(), demoUserID, procedureID,
			)
			if err != nil {
				log.Printf("Failed to create purchase for %s: %v", p.title, err)
			}
		}
	}

	log.Printf("Seeding completed: %d procedures, demo user %s", len(procedures), demoUserID)
}
