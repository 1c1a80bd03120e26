package controllers

import (
	"coursehub/middleware"
	courseModels "coursehub/models/course"
	"coursehub/services/catalog"
	validators "coursehub/validators/course"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func courseInput(body *validators.CourseBody) catalog.CourseInput {
	return catalog.CourseInput{
		Title:            body.Title,
		Slug:             body.Slug,
		SmallDescription: body.SmallDescription,
		Description:      body.Description,
		FileKey:          body.FileKey,
		Price:            body.Price,
		GatewayPriceID:   body.GatewayPriceID,
		Status:           courseModels.CourseStatus(body.Status),
	}
}

func (h *Handler) AdminCreateCourse(c *fiber.Ctx) error {
	adminID, ok := middleware.UserID(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	body := c.Locals("validatedCourse").(*validators.CourseBody)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	course, err := h.Catalog.CreateCourse(ctx, adminID, courseInput(body))
	if err != nil {
		return middleware.ErrorResponse(c, err, "Failed to create course!")
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Course created successfully!", course)
}

func (h *Handler) AdminUpdateCourse(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(uuid.UUID)
	body := c.Locals("validatedCourse").(*validators.CourseBody)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	course, err := h.Catalog.UpdateCourse(ctx, courseID, courseInput(body))
	if err != nil {
		return middleware.ErrorResponse(c, err, "Failed to update course!")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course updated successfully!", course)
}

func (h *Handler) AdminDeleteCourse(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(uuid.UUID)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.Catalog.DeleteCourse(ctx, courseID); err != nil {
		return middleware.ErrorResponse(c, err, "Failed to delete course!")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course deleted successfully!", nil)
}

func (h *Handler) AdminPublishCourse(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(uuid.UUID)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.Catalog.SetStatus(ctx, courseID, courseModels.StatusPublished); err != nil {
		return middleware.ErrorResponse(c, err, "Failed to publish course!")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course published successfully!", nil)
}

func (h *Handler) AdminGetAllCourses(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	courses, err := h.Catalog.ListAll(ctx)
	if err != nil {
		return middleware.ErrorResponse(c, err, "Failed to fetch courses!")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", courses)
}

func (h *Handler) AdminGetCourseDetails(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(uuid.UUID)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	course, err := h.Catalog.Get(ctx, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err, "Failed to fetch course!")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course fetched successfully!", course)
}
