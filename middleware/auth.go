package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware extracts the member identity and team set by the
// Gateway. Scoring actions need both: the member id becomes the verification
// marker written into the match row, and the team id resolves which side of
// the match this device is acting for.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		memberID := c.Get("X-User-ID")
		if memberID == "" {
			log.Printf("[USER_CTX] X-User-ID missing on secured route: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		var roles []string
		if rolesStr := c.Get("X-User-Roles"); rolesStr != "" {
			for _, r := range strings.Split(rolesStr, ",") {
				r = strings.TrimSpace(r)
				if r != "" {
					roles = append(roles, r)
				}
			}
		}

		c.Locals("user_id", memberID)
		c.Locals("user_roles", roles)
		c.Locals("team_id", c.Get("X-Team-ID"))

		return c.Next()
	}
}
