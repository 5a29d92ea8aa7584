/**
 * @description
 * Chart API handlers: the read side consumed by the UI.
 * Assembles the response envelope, normalizes timestamps to RFC3339 UTC, and maps
 * input errors to 400 and internal failures to 500.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tomanchart/backend/internal/currency"
	"github.com/tomanchart/backend/internal/period"
	"github.com/tomanchart/backend/internal/services"
)

type ChartHandler struct {
	Service *services.ChartService
}

func NewChartHandler(service *services.ChartService) *ChartHandler {
	return &ChartHandler{Service: service}
}

type chartPointJSON struct {
	Timestamp string `json:"timestamp"`
	Price     int64  `json:"price"`
}

type chartResponse struct {
	OK               bool              `json:"ok"`
	Currency         currency.Currency `json:"currency"`
	Period           string            `json:"period"`
	CurrentPrice     *int64            `json:"current_price"`
	CurrentTimestamp *string           `json:"current_timestamp"`
	ChartData        []chartPointJSON  `json:"chart_data"`
}

// GetChart returns the latest price and the downsampled series for one currency.
// GET /api/v1/chart?currency=usd&period=1W
func (h *ChartHandler) GetChart(c *fiber.Ctx) error {
	cur, ok := currency.Normalize(c.Query("currency"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok":    false,
			"error": "Invalid currency. Use: " + currency.AcceptedList(),
		})
	}
	p := period.Resolve(c.Query("period"))

	chart, err := h.Service.GetChart(c.Context(), cur, p)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"ok":    false,
			"error": err.Error(),
		})
	}

	resp := chartResponse{
		OK:        true,
		Currency:  chart.Currency,
		Period:    chart.Period,
		ChartData: make([]chartPointJSON, len(chart.Series)),
	}
	for i, pt := range chart.Series {
		resp.ChartData[i] = chartPointJSON{Timestamp: toUTCString(pt.Timestamp), Price: pt.Price}
	}
	if chart.Latest != nil {
		price := chart.Latest.Price
		ts := toUTCString(chart.Latest.Timestamp)
		resp.CurrentPrice = &price
		resp.CurrentTimestamp = &ts
	}

	// Data changes at ingestion-tick granularity, so brief shared caching is safe
	c.Set("Cache-Control", "public, s-maxage=30, stale-while-revalidate=60")
	return c.JSON(resp)
}

// GetLatestPrices returns the most recent observation per tracked currency.
// GET /api/v1/prices/latest
func (h *ChartHandler) GetLatestPrices(c *fiber.Ctx) error {
	latest, err := h.Service.GetLatestPrices(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"ok":    false,
			"error": err.Error(),
		})
	}

	type latestJSON struct {
		Currency  currency.Currency `json:"currency"`
		Price     *int64            `json:"price"`
		Timestamp *string           `json:"timestamp"`
	}
	out := make([]latestJSON, len(latest))
	for i, lp := range latest {
		entry := latestJSON{Currency: lp.Currency, Price: lp.Price}
		if lp.Timestamp != nil {
			ts := toUTCString(*lp.Timestamp)
			entry.Timestamp = &ts
		}
		out[i] = entry
	}

	c.Set("Cache-Control", "public, s-maxage=30, stale-while-revalidate=60")
	return c.JSON(fiber.Map{"ok": true, "prices": out})
}

// toUTCString renders one unambiguous timestamp form regardless of what the
// storage engine handed back.
func toUTCString(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
