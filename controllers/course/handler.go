package controllers

import (
	"context"
	"time"

	"coursehub/logger"
	"coursehub/services/catalog"
	"coursehub/services/checkout"
	"coursehub/services/content"
	"coursehub/services/enrollment"

	"github.com/gofiber/fiber/v2"
)

// Handler serves the course, content and enrollment routes.
type Handler struct {
	Catalog     *catalog.Service
	Content     *content.Service
	Enrollments *enrollment.Service
	Checkout    *checkout.Service
	Log         *logger.Logger
	Timeout     time.Duration
}

// requestContext bounds the work of one request by the configured timeout.
func (h *Handler) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.Timeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), h.Timeout)
}
