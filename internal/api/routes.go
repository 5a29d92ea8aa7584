/**
 * @description
 * API Route definitions.
 * Sets up the router groups and assigns handlers.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/api/handlers
 * - backend/internal/api/middleware
 * - backend/internal/services
 * - backend/internal/store
 * - backend/internal/bonbast
 */

package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/tomanchart/backend/internal/api/handlers"
	"github.com/tomanchart/backend/internal/api/middleware"
	"github.com/tomanchart/backend/internal/bonbast"
	"github.com/tomanchart/backend/internal/config"
	"github.com/tomanchart/backend/internal/services"
	"github.com/tomanchart/backend/internal/store"
	"gorm.io/gorm"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	// 1. Initialize Services
	st := store.NewPostgresStore(db)
	sourceClient := bonbast.NewClient(cfg)
	ingestService := services.NewIngestService(st, rdb, sourceClient)
	chartService := services.NewChartService(st, rdb)
	streamHub := services.NewPriceStreamHub(rdb, services.PriceUpdateChannel)

	// 2. Initialize Handlers
	chartHandler := handlers.NewChartHandler(chartService)
	ingestHandler := handlers.NewIngestHandler(ingestService)
	setupHandler := handlers.NewSetupHandler(st)
	streamHandler := handlers.NewStreamHandler(streamHub)

	// 3. Define Routes
	api := app.Group("/api")
	v1 := api.Group("/v1")

	// Public Routes
	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	v1.Get("/chart", chartHandler.GetChart)
	v1.Get("/prices/latest", chartHandler.GetLatestPrices)
	v1.Get("/prices/stream", streamHandler.StreamPrices)

	// Scheduler Routes (bearer shared secret, checked before any work happens)
	cronAuth := middleware.CronAuth(cfg.Ingest.CronSecret)
	v1.Get("/cron", cronAuth, ingestHandler.TriggerRun)
	v1.Post("/setup", cronAuth, setupHandler.ProvisionSchema)
}
