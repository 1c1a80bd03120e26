package controllers

import (
	"coursehub/middleware"
	"coursehub/services/content"
	validators "coursehub/validators/course"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func lessonInput(body *validators.LessonBody) content.LessonInput {
	return content.LessonInput{
		Title:        body.Title,
		Description:  body.Description,
		VideoKey:     body.VideoKey,
		ThumbnailKey: body.ThumbnailKey,
	}
}

func (h *Handler) AdminListChapters(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(uuid.UUID)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	chapters, err := h.Content.ListChapters(ctx, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err, "Failed to fetch chapters!")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Chapters fetched successfully!", chapters)
}

func (h *Handler) AdminCreateChapter(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(uuid.UUID)
	body := c.Locals("validatedChapter").(*validators.ChapterBody)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	chapter, err := h.Content.CreateChapter(ctx, courseID, body.Title)
	if err != nil {
		return middleware.ErrorResponse(c, err, "Failed to create chapter!")
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Chapter created successfully!", chapter)
}

func (h *Handler) AdminUpdateChapter(c *fiber.Ctx) error {
	chapterID := c.Locals("chapterID").(uuid.UUID)
	body := c.Locals("validatedChapter").(*validators.ChapterBody)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	chapter, err := h.Content.UpdateChapter(ctx, chapterID, body.Title)
	if err != nil {
		return middleware.ErrorResponse(c, err, "Failed to update chapter!")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Chapter updated successfully!", chapter)
}

func (h *Handler) AdminDeleteChapter(c *fiber.Ctx) error {
	chapterID := c.Locals("chapterID").(uuid.UUID)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.Content.DeleteChapter(ctx, chapterID); err != nil {
		return middleware.ErrorResponse(c, err, "Failed to delete chapter!")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Chapter deleted successfully!", nil)
}

func (h *Handler) AdminReorderChapters(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(uuid.UUID)
	ids := c.Locals("validatedOrder").([]uuid.UUID)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.Content.ReorderChapters(ctx, courseID, ids); err != nil {
		return middleware.ErrorResponse(c, err, "Failed to reorder chapters!")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Chapters reordered successfully!", nil)
}

func (h *Handler) AdminCreateLesson(c *fiber.Ctx) error {
	chapterID := c.Locals("chapterID").(uuid.UUID)
	body := c.Locals("validatedLesson").(*validators.LessonBody)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	lesson, err := h.Content.CreateLesson(ctx, chapterID, lessonInput(body))
	if err != nil {
		return middleware.ErrorResponse(c, err, "Failed to create lesson!")
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Lesson created successfully!", lesson)
}

func (h *Handler) AdminUpdateLesson(c *fiber.Ctx) error {
	lessonID := c.Locals("lessonID").(uuid.UUID)
	body := c.Locals("validatedLesson").(*validators.LessonBody)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	lesson, err := h.Content.UpdateLesson(ctx, lessonID, lessonInput(body))
	if err != nil {
		return middleware.ErrorResponse(c, err, "Failed to update lesson!")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson updated successfully!", lesson)
}

func (h *Handler) AdminDeleteLesson(c *fiber.Ctx) error {
	lessonID := c.Locals("lessonID").(uuid.UUID)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.Content.DeleteLesson(ctx, lessonID); err != nil {
		return middleware.ErrorResponse(c, err, "Failed to delete lesson!")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson deleted successfully!", nil)
}

func (h *Handler) AdminReorderLessons(c *fiber.Ctx) error {
	chapterID := c.Locals("chapterID").(uuid.UUID)
	ids := c.Locals("validatedOrder").([]uuid.UUID)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.Content.ReorderLessons(ctx, chapterID, ids); err != nil {
		return middleware.ErrorResponse(c, err, "Failed to reorder lessons!")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lessons reordered successfully!", nil)
}
