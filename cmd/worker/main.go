/**
 * @description
 * Worker Service Entry Point.
 * Runs one ingestion run per scheduled tick: scrape the upstream source, commit the
 * extracted quotes atomically, publish the snapshot for live subscribers.
 *
 * @dependencies
 * - backend/internal/config
 * - backend/internal/db
 * - backend/internal/bonbast
 * - backend/internal/services
 *
 * @notes
 * - A failed run is only reported; the next tick is the retry.
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomanchart/backend/internal/bonbast"
	"github.com/tomanchart/backend/internal/config"
	"github.com/tomanchart/backend/internal/db"
	"github.com/tomanchart/backend/internal/logger"
	"github.com/tomanchart/backend/internal/services"
	"github.com/tomanchart/backend/internal/store"
)

func main() {
	logger.Info("🔥 Starting Tomanchart Worker...")

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	// 2. Connect DBs
	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Postgres connection failed: %v", err)
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Redis connection failed: %v", err)
	}

	// 3. Initialize Services
	st := store.NewPostgresStore(pgDB)
	sourceClient := bonbast.NewClient(cfg)
	ingestService := services.NewIngestService(st, redisClient, sourceClient)

	// 4. Context with Cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Ingestion Loop
	go func() {
		ticker := time.NewTicker(cfg.Ingest.Interval)
		defer ticker.Stop()

		// Initial run so a fresh deployment has data before the first tick
		runOnce(ctx, ingestService)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runOnce(ctx, ingestService)
			}
		}
	}()

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()

	time.Sleep(1 * time.Second) // Give an in-flight run time to finish its commit
	logger.Info("Worker exited.")
}

// runOnce executes a single bounded ingestion run.
func runOnce(ctx context.Context, svc *services.IngestService) {
	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	res := svc.Run(runCtx)
	if res.Err != nil {
		logger.Error("Ingestion run %s finished %s: %v", res.RunID, res.State, res.Err)
		return
	}
	logger.Info("Ingestion run %s finished %s (%d inserted)", res.RunID, res.State, res.Inserted)
}
