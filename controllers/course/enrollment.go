package controllers

import (
	"coursehub/middleware"
	courseModels "coursehub/models/course"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CheckoutCourse starts (or resumes) the purchase of a course and returns the
// payment page the client should redirect to.
func (h *Handler) CheckoutCourse(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(uuid.UUID)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.Checkout.Checkout(ctx, courseID, userID)
	if err != nil {
		return middleware.ErrorResponse(c, err, "Failed to enroll in course")
	}
	if result.AlreadyEnrolled {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "You are already enrolled in this course", fiber.Map{
			"alreadyEnrolled": true,
			"enrollmentId":    result.EnrollmentID,
		})
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Checkout session created!", fiber.Map{
		"url":          result.URL,
		"enrollmentId": result.EnrollmentID,
	})
}

func (h *Handler) EnrollmentStatus(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(uuid.UUID)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	enr, err := h.Enrollments.Status(ctx, courseID, userID)
	if err != nil {
		return middleware.ErrorResponse(c, err, "Failed to fetch enrollment!")
	}
	data := fiber.Map{"enrolled": false, "status": nil}
	if enr != nil {
		data["status"] = enr.Status
		data["enrolled"] = enr.Status == courseModels.EnrollmentCompleted
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollment status fetched successfully!", data)
}

func (h *Handler) GetUserEnrollments(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	enrollments, err := h.Enrollments.ListForUser(ctx, userID)
	if err != nil {
		return middleware.ErrorResponse(c, err, "Failed to fetch enrollments!")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully!", enrollments)
}
