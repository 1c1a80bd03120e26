package middleware

import (
	"coursehub/guard"

	"github.com/gofiber/fiber/v2"
)

// Protect runs rule through g before the handler. The authenticated user id
// is the fingerprint when present, the client IP otherwise.
func Protect(g *guard.Guard, rule guard.Rule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fingerprint := c.IP()
		if userID, ok := UserID(c); ok {
			fingerprint = userID.String()
		}

		decision := g.Protect(c.UserContext(), guard.Request{
			Fingerprint: fingerprint,
			UserAgent:   c.Get(fiber.HeaderUserAgent),
		}, rule)
		if decision.Allowed {
			return c.Next()
		}

		switch decision.Reason {
		case guard.ReasonRateLimit:
			return JsonResponse(c, fiber.StatusTooManyRequests, false, "You have been blocked due to rate limiting", nil)
		case guard.ReasonBot:
			return JsonResponse(c, fiber.StatusForbidden, false, "You are a bot! If this is a mistake contact support", nil)
		default:
			return JsonResponse(c, fiber.StatusServiceUnavailable, false, "Request could not be verified, try again later", nil)
		}
	}
}
