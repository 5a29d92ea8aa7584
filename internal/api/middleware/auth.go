/**
 * @description
 * Authentication middleware for scheduler-triggered endpoints.
 * Validates a bearer shared secret before any network or database work begins.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2: HTTP Context
 * - standard "crypto/subtle": constant-time secret comparison
 */

package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CronAuth guards an endpoint with `Authorization: Bearer <secret>`. An empty
// configured secret rejects every call rather than opening the endpoint.
func CronAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"ok":    false,
				"error": "cron secret not configured",
			})
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"ok": false, "error": "Missing authorization header"})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"ok": false, "error": "Invalid token format"})
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"ok": false, "error": "Unauthorized"})
		}

		return c.Next()
	}
}
