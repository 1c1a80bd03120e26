package courseRoutes

import (
	controllers "coursehub/controllers/course"
	"coursehub/guard"
	"coursehub/middleware"
	validators "coursehub/validators/course"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupAdminCourseRoutes sets up all admin course management routes
func SetupAdminCourseRoutes(app *fiber.App, h *controllers.Handler, db *gorm.DB, g *guard.Guard, rules guard.Rules) {
	adminGroup := app.Group("/admin",
		middleware.JWTMiddleware,
		middleware.RequireAdmin(db),
		middleware.Protect(g, rules.Admin),
	)

	// Course CRUD
	adminGroup.Post("/course/create", validators.CreateCourse(), h.AdminCreateCourse)
	adminGroup.Get("/course/list", h.AdminGetAllCourses)
	adminGroup.Get("/course/:id", validators.CourseID(), h.AdminGetCourseDetails)
	adminGroup.Put("/course/:id", validators.UpdateCourse(), h.AdminUpdateCourse)
	adminGroup.Delete("/course/:id", validators.CourseID(), h.AdminDeleteCourse)
	adminGroup.Post("/course/:id/publish", validators.CourseID(), h.AdminPublishCourse)

	// Chapters
	adminGroup.Get("/course/:id/chapters", validators.CourseID(), h.AdminListChapters)
	adminGroup.Post("/course/:id/chapter", validators.CreateChapter(), h.AdminCreateChapter)
	adminGroup.Put("/course/:id/chapters/reorder", validators.ReorderChapters(), h.AdminReorderChapters)
	adminGroup.Put("/chapter/:chapter_id", validators.UpdateChapter(), h.AdminUpdateChapter)
	adminGroup.Delete("/chapter/:chapter_id", validators.ChapterID(), h.AdminDeleteChapter)

	// Lessons
	adminGroup.Post("/chapter/:chapter_id/lesson", validators.CreateLesson(), h.AdminCreateLesson)
	adminGroup.Put("/chapter/:chapter_id/lessons/reorder", validators.ReorderLessons(), h.AdminReorderLessons)
	adminGroup.Put("/lesson/:lesson_id", validators.UpdateLesson(), h.AdminUpdateLesson)
	adminGroup.Delete("/lesson/:lesson_id", validators.LessonID(), h.AdminDeleteLesson)
}
