package courseRoutes

import (
	controllers "coursehub/controllers/course"
	"coursehub/guard"
	"coursehub/middleware"
	validators "coursehub/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up the public catalog and the user purchase routes
func SetupCourseRoutes(app *fiber.App, h *controllers.Handler, g *guard.Guard, rules guard.Rules) {
	courseGroup := app.Group("/course")

	courseGroup.Get("/list", h.GetPublishedCourses)
	courseGroup.Get("/:id/enrollment", middleware.JWTMiddleware, validators.CourseID(), h.EnrollmentStatus)
	courseGroup.Post("/:id/checkout",
		middleware.JWTMiddleware,
		middleware.Protect(g, rules.Enrollment),
		validators.CourseID(),
		h.CheckoutCourse,
	)
	courseGroup.Get("/:slug", validators.CourseSlug(), h.GetCourseBySlug)

	userGroup := app.Group("/user")
	userGroup.Get("/enrollments", middleware.JWTMiddleware, h.GetUserEnrollments)
}
