/**
 * @description
 * SSE handler streaming post-commit price snapshots to clients.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"bufio"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/tomanchart/backend/internal/services"
)

type StreamHandler struct {
	Hub *services.PriceStreamHub
}

func NewStreamHandler(hub *services.PriceStreamHub) *StreamHandler {
	return &StreamHandler{Hub: hub}
}

// StreamPrices streams live price snapshots over SSE.
// GET /api/v1/prices/stream
func (h *StreamHandler) StreamPrices(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	requestCtx := c.Context()
	ch, unsubscribe := h.Hub.Subscribe()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		requestDone := requestCtx.Done()

		for {
			select {
			case <-requestDone:
				return
			case payload, ok := <-ch:
				if !ok {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", payload)
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})

	return nil
}
