/**
 * @description
 * Ingestion trigger handlers for scheduler collaborators (cron) and one-shot
 * schema provisioning.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 * - backend/internal/store
 */

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tomanchart/backend/internal/services"
	"github.com/tomanchart/backend/internal/store"
)

type IngestHandler struct {
	Service *services.IngestService
}

func NewIngestHandler(service *services.IngestService) *IngestHandler {
	return &IngestHandler{Service: service}
}

// TriggerRun executes one ingestion run. Upstream-source failures map to 502 so
// operators can tell integration breakage from our own faults.
// GET /api/v1/cron (bearer-secret protected)
func (h *IngestHandler) TriggerRun(c *fiber.Ctx) error {
	res := h.Service.Run(c.Context())

	switch res.State {
	case services.RunCommitted:
		return c.JSON(fiber.Map{
			"ok":       true,
			"inserted": res.Inserted,
			"prices":   res.Prices,
		})
	case services.RunExtractFailed:
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"ok":    false,
			"error": res.Err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"ok":    false,
			"error": res.Err.Error(),
		})
	}
}

type SetupHandler struct {
	Store store.Store
}

func NewSetupHandler(st store.Store) *SetupHandler {
	return &SetupHandler{Store: st}
}

// ProvisionSchema creates the prices table and index if absent.
// POST /api/v1/setup (bearer-secret protected)
func (h *SetupHandler) ProvisionSchema(c *fiber.Ctx) error {
	if err := h.Store.EnsureSchema(c.Context()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"ok":    false,
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"ok":      true,
		"message": "DB ready: table prices + index idx_prices_currency_observed_at",
	})
}
