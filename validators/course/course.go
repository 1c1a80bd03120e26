package courseValidator

import (
	"strings"

	"coursehub/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CourseBody struct {
	Title            string          `json:"title" validate:"required,min=3,max=100,safetext"`
	Slug             string          `json:"slug" validate:"required,min=3,max=100,slug"`
	SmallDescription string          `json:"smallDescription" validate:"max=200,safetext"`
	Description      string          `json:"description" validate:"max=10000"`
	FileKey          string          `json:"fileKey" validate:"max=255"`
	Price            decimal.Decimal `json:"price"`
	GatewayPriceID   string          `json:"gatewayPriceId" validate:"max=100"`
	Status           string          `json:"status" validate:"omitempty,oneof=Draft Published Archived"`
}

func parseCourseBody(c *fiber.Ctx) (*CourseBody, map[string]string, error) {
	reqData := new(CourseBody)
	if err := c.BodyParser(reqData); err != nil {
		return nil, nil, err
	}

	reqData.Title = strings.TrimSpace(reqData.Title)
	reqData.Slug = strings.ToLower(strings.TrimSpace(reqData.Slug))
	reqData.SmallDescription = strings.TrimSpace(reqData.SmallDescription)
	reqData.FileKey = strings.TrimSpace(reqData.FileKey)
	reqData.GatewayPriceID = strings.TrimSpace(reqData.GatewayPriceID)

	errors := checkStruct(reqData)
	if reqData.Price.IsNegative() {
		errors["price"] = "Price must not be negative!"
	}
	if reqData.Status == "Published" && reqData.GatewayPriceID == "" {
		errors["gatewayPriceId"] = "A published course needs a gateway price id!"
	}
	return reqData, errors, nil
}

func CreateCourse() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData, errors, err := parseCourseBody(c)
		if err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedCourse", reqData)
		return c.Next()
	}
}

func UpdateCourse() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, msg := paramUUID(c, "id", "Course ID")
		if msg != "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, msg, nil)
		}

		reqData, errors, err := parseCourseBody(c)
		if err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("courseID", courseID)
		c.Locals("validatedCourse", reqData)
		return c.Next()
	}
}

// CourseID validates the :id parameter for handlers without a body.
func CourseID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, msg := paramUUID(c, "id", "Course ID")
		if msg != "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, msg, nil)
		}
		c.Locals("courseID", courseID)
		return c.Next()
	}
}

func CourseSlug() fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := strings.ToLower(strings.TrimSpace(c.Params("slug")))
		if slug == "" || !slugFormat.MatchString(slug) {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid course slug!", nil)
		}
		c.Locals("courseSlug", slug)
		return c.Next()
	}
}
