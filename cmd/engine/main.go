package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/sociophysics/hk-engine/internal/api"
	"github.com/sociophysics/hk-engine/internal/db"
	"github.com/sociophysics/hk-engine/internal/runner"
)

func main() {
	log.Println("Starting Hegselmann-Krause Opinion Dynamics Engine...")

	// ─── Environment Variables ──────────────────────────────────────────
	// DATABASE_URL is optional: without it the engine still simulates and
	// streams, it just does not persist converged runs.
	// ────────────────────────────────────────────────────────────────────

	var dbConn *db.PostgresStore
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		conn, err := db.Connect(dbURL)
		if err != nil {
			log.Printf("Warning: Failed to connect to PostgreSQL, continuing without persisting runs. Error: %v", err)
		} else {
			dbConn = conn
			defer dbConn.Close()
			if err := dbConn.InitSchema(); err != nil {
				log.Printf("Warning: DB schema init failed: %v", err)
			}
		}
	} else {
		log.Println("DATABASE_URL not set, run persistence disabled")
	}

	// Setup WebSocket Hub
	wsHub := api.NewHub()
	go wsHub.Run()

	// Sample runner with convergence alerts broadcast over the hub
	sampleRunner := runner.NewSampleRunner(dbConn, api.BroadcastConvergenceAlert(wsHub))

	// Progress monitor pushes frames to subscribed clients while a batch runs
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	monitor := runner.NewMonitor(sampleRunner, wsHub.BroadcastJSON, time.Second)
	go monitor.Run(ctx)

	// Setup the Gin Router
	r := api.SetupRouter(dbConn, wsHub, sampleRunner)

	port := getEnvOrDefault("PORT", "5340")

	log.Printf("Engine running on :%s\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnvOrDefault returns the env var value or a safe default for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
