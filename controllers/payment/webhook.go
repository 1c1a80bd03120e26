package paymentController

import (
	"coursehub/apperr"
	"coursehub/logger"
	"coursehub/middleware"
	"coursehub/payment"
	"coursehub/services/webhook"

	"github.com/gofiber/fiber/v2"
)

type WebhookHandler struct {
	Service *webhook.Service
	Log     *logger.Logger
}

// PaymentWebhook receives gateway callbacks. Anything the gateway could
// never fix by retrying is a 400; storage failures are a 500 so the event
// is redelivered.
func (h *WebhookHandler) PaymentWebhook(c *fiber.Ctx) error {
	// fasthttp reuses the body buffer after the handler returns.
	payload := append([]byte(nil), c.Body()...)
	signature := c.Get(payment.SignatureHeader)

	outcome, err := h.Service.Handle(c.UserContext(), payload, signature)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindSignatureInvalid:
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Webhook error", nil)
		case apperr.KindInvalidInput, apperr.KindIdentityMismatch, apperr.KindNotFound:
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, apperr.Message(err, "Invalid webhook event"), nil)
		default:
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process webhook", nil)
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Webhook received", fiber.Map{
		"received": true,
		"outcome":  outcome,
	})
}
