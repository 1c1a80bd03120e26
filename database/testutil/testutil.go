package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"coursehub/database"
	"coursehub/models"
	courseModels "coursehub/models/course"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// DB returns a migrated in-memory SQLite database private to tb. A single
// connection keeps concurrent transactions serialised, the way row locks
// serialise them on Postgres.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

func SeedUser(tb testing.TB, db *gorm.DB, email string) *models.User {
	tb.Helper()
	u := &models.User{Name: "Test User", Email: email, Role: models.RoleUser}
	if err := db.WithContext(context.Background()).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedAdmin(tb testing.TB, db *gorm.DB, email string) *models.User {
	tb.Helper()
	u := &models.User{Name: "Admin", Email: email, Role: models.RoleAdmin}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed admin: %v", err)
	}
	return u
}

func SeedCourse(tb testing.TB, db *gorm.DB, ownerID uuid.UUID, status courseModels.CourseStatus, price int64) *courseModels.Course {
	tb.Helper()
	c := &courseModels.Course{
		OwnerID:        ownerID,
		Title:          "Course",
		Slug:           "course-" + uuid.NewString()[:8],
		Price:          decimal.NewFromInt(price),
		GatewayPriceID: "price_" + uuid.NewString()[:8],
		Status:         status,
	}
	if err := db.Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedChapter(tb testing.TB, db *gorm.DB, courseID uuid.UUID, position int) *courseModels.Chapter {
	tb.Helper()
	ch := &courseModels.Chapter{CourseID: courseID, Title: fmt.Sprintf("Chapter %d", position), Position: position}
	if err := db.Create(ch).Error; err != nil {
		tb.Fatalf("seed chapter: %v", err)
	}
	return ch
}

func SeedLesson(tb testing.TB, db *gorm.DB, chapterID uuid.UUID, position int) *courseModels.Lesson {
	tb.Helper()
	l := &courseModels.Lesson{ChapterID: chapterID, Title: fmt.Sprintf("Lesson %d", position), Position: position}
	if err := db.Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}
