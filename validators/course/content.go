package courseValidator

import (
	"strings"

	"coursehub/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ChapterBody struct {
	Title string `json:"title" validate:"required,min=3,max=100,safetext"`
}

type LessonBody struct {
	Title        string `json:"title" validate:"required,min=3,max=100,safetext"`
	Description  string `json:"description" validate:"max=5000"`
	VideoKey     string `json:"videoKey" validate:"max=255"`
	ThumbnailKey string `json:"thumbnailKey" validate:"max=255"`
}

type OrderBody struct {
	IDs []string `json:"ids" validate:"required,min=1,unique,dive,uuid"`
}

func CreateChapter() fiber.Handler {
	return chapterHandler("id", "Course ID", "courseID")
}

func UpdateChapter() fiber.Handler {
	return chapterHandler("chapter_id", "Chapter ID", "chapterID")
}

func chapterHandler(param, label, local string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		parentID, msg := paramUUID(c, param, label)
		if msg != "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, msg, nil)
		}

		reqData := new(ChapterBody)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		reqData.Title = strings.TrimSpace(reqData.Title)

		if errors := checkStruct(reqData); len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals(local, parentID)
		c.Locals("validatedChapter", reqData)
		return c.Next()
	}
}

func CreateLesson() fiber.Handler {
	return lessonHandler("chapter_id", "Chapter ID", "chapterID")
}

func UpdateLesson() fiber.Handler {
	return lessonHandler("lesson_id", "Lesson ID", "lessonID")
}

func lessonHandler(param, label, local string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, msg := paramUUID(c, param, label)
		if msg != "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, msg, nil)
		}

		reqData := new(LessonBody)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		reqData.Title = strings.TrimSpace(reqData.Title)
		reqData.Description = strings.TrimSpace(reqData.Description)
		reqData.VideoKey = strings.TrimSpace(reqData.VideoKey)
		reqData.ThumbnailKey = strings.TrimSpace(reqData.ThumbnailKey)

		if errors := checkStruct(reqData); len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals(local, id)
		c.Locals("validatedLesson", reqData)
		return c.Next()
	}
}

// ReorderChapters expects every chapter id of the course in the new order.
func ReorderChapters() fiber.Handler {
	return orderHandler("id", "Course ID", "courseID")
}

// ReorderLessons expects every lesson id of the chapter in the new order.
func ReorderLessons() fiber.Handler {
	return orderHandler("chapter_id", "Chapter ID", "chapterID")
}

func orderHandler(param, label, local string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		parentID, msg := paramUUID(c, param, label)
		if msg != "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, msg, nil)
		}

		reqData := new(OrderBody)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if errors := checkStruct(reqData); len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		ids := make([]uuid.UUID, len(reqData.IDs))
		for i, raw := range reqData.IDs {
			ids[i] = uuid.MustParse(raw)
		}

		c.Locals(local, parentID)
		c.Locals("validatedOrder", ids)
		return c.Next()
	}
}

// ChapterID and LessonID validate the id parameter of delete routes.
func ChapterID() fiber.Handler {
	return idHandler("chapter_id", "Chapter ID", "chapterID")
}

func LessonID() fiber.Handler {
	return idHandler("lesson_id", "Lesson ID", "lessonID")
}

func idHandler(param, label, local string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, msg := paramUUID(c, param, label)
		if msg != "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, msg, nil)
		}
		c.Locals(local, id)
		return c.Next()
	}
}
