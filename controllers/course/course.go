package controllers

import (
	"coursehub/middleware"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) GetPublishedCourses(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	courses, err := h.Catalog.ListPublished(ctx)
	if err != nil {
		return middleware.ErrorResponse(c, err, "Failed to fetch courses!")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", courses)
}

func (h *Handler) GetCourseBySlug(c *fiber.Ctx) error {
	slug := c.Locals("courseSlug").(string)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	course, err := h.Catalog.GetBySlug(ctx, slug)
	if err != nil {
		return middleware.ErrorResponse(c, err, "Failed to fetch course!")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course fetched successfully!", course)
}
