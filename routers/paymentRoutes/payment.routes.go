package paymentRoutes

import (
	paymentController "coursehub/controllers/payment"

	"github.com/gofiber/fiber/v2"
)

// SetupPaymentRoutes registers the gateway callback. It carries no JWT; the
// request is authenticated by its signature.
func SetupPaymentRoutes(app *fiber.App, h *paymentController.WebhookHandler) {
	app.Post("/api/webhook/payment", h.PaymentWebhook)
}
