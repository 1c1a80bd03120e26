// Package catalog serves course listings and the admin course lifecycle.
package catalog

import (
	"context"
	"strings"

	"coursehub/apperr"
	"coursehub/database"
	"coursehub/logger"
	courseModels "coursehub/models/course"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CourseInput struct {
	Title            string
	Slug             string
	SmallDescription string
	Description      string
	FileKey          string
	Price            decimal.Decimal
	GatewayPriceID   string
	Status           courseModels.CourseStatus
}

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewService(db *gorm.DB, baseLog *logger.Logger) *Service {
	return &Service{db: db, log: baseLog.With("service", "CatalogService")}
}

func orderedContent(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Chapters", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Preload("Chapters.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") })
}

// ListPublished returns published courses, newest first.
func (s *Service) ListPublished(ctx context.Context) ([]courseModels.Course, error) {
	var courses []courseModels.Course
	err := s.db.WithContext(ctx).
		Where("status = ?", courseModels.StatusPublished).
		Order("created_at desc").
		Find(&courses).Error
	if err != nil {
		return nil, apperr.Internal("Failed to fetch courses!", err)
	}
	return courses, nil
}

// GetBySlug returns a published course with its chapters and lessons in
// position order.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*courseModels.Course, error) {
	var course courseModels.Course
	err := orderedContent(s.db.WithContext(ctx)).
		Where("slug = ? AND status = ?", strings.TrimSpace(slug), courseModels.StatusPublished).
		First(&course).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, apperr.NotFound("Course not found!")
		}
		return nil, apperr.Internal("Failed to fetch course!", err)
	}
	return &course, nil
}

// ListAll returns every course regardless of status, for the admin view.
func (s *Service) ListAll(ctx context.Context) ([]courseModels.Course, error) {
	var courses []courseModels.Course
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&courses).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch courses!", err)
	}
	return courses, nil
}

// Get returns any course by id with ordered content.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*courseModels.Course, error) {
	var course courseModels.Course
	if err := orderedContent(s.db.WithContext(ctx)).Where("id = ?", id).First(&course).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperr.NotFound("Course not found!")
		}
		return nil, apperr.Internal("Failed to fetch course!", err)
	}
	return &course, nil
}

func (s *Service) CreateCourse(ctx context.Context, ownerID uuid.UUID, in CourseInput) (*courseModels.Course, error) {
	status := in.Status
	if status == "" {
		status = courseModels.StatusDraft
	}
	if !status.Valid() {
		return nil, apperr.InvalidInput("Invalid course status!")
	}

	course := &courseModels.Course{
		OwnerID:          ownerID,
		Title:            strings.TrimSpace(in.Title),
		Slug:             strings.TrimSpace(in.Slug),
		SmallDescription: in.SmallDescription,
		Description:      in.Description,
		FileKey:          in.FileKey,
		Price:            in.Price,
		GatewayPriceID:   in.GatewayPriceID,
		Status:           status,
	}
	if err := s.db.WithContext(ctx).Create(course).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return nil, apperr.Conflict("Course slug already exists!")
		}
		return nil, apperr.Internal("Failed to create course!", err)
	}

	s.log.Info("course created", "course_id", course.ID, "owner_id", ownerID)
	return course, nil
}

func (s *Service) UpdateCourse(ctx context.Context, id uuid.UUID, in CourseInput) (*courseModels.Course, error) {
	if in.Status != "" && !in.Status.Valid() {
		return nil, apperr.InvalidInput("Invalid course status!")
	}

	var course courseModels.Course
	err := database.Transact(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&course).Error; err != nil {
			if database.IsNotFound(err) {
				return apperr.NotFound("Course not found!")
			}
			return apperr.Internal("Failed to fetch course!", err)
		}

		course.Title = strings.TrimSpace(in.Title)
		course.Slug = strings.TrimSpace(in.Slug)
		course.SmallDescription = in.SmallDescription
		course.Description = in.Description
		course.FileKey = in.FileKey
		course.Price = in.Price
		course.GatewayPriceID = in.GatewayPriceID
		if in.Status != "" {
			course.Status = in.Status
		}

		err := tx.Model(&course).
			Select("title", "slug", "small_description", "description", "file_key", "price", "gateway_price_id", "status").
			Updates(&course).Error
		if database.IsDuplicateKey(err) {
			return apperr.Conflict("Course slug already exists!")
		}
		if err != nil {
			return apperr.Internal("Failed to update course!", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// SetStatus moves the course between Draft, Published and Archived.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status courseModels.CourseStatus) error {
	if !status.Valid() {
		return apperr.InvalidInput("Invalid course status!")
	}
	res := s.db.WithContext(ctx).Model(&courseModels.Course{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return apperr.Internal("Failed to update course status!", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Course not found!")
	}
	s.log.Info("course status changed", "course_id", id, "status", status)
	return nil
}

// DeleteCourse removes the course with its chapters, lessons and
// enrollments in one transaction.
func (s *Service) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	err := database.Transact(ctx, s.db, func(tx *gorm.DB) error {
		var course courseModels.Course
		if err := tx.Select("id").Where("id = ?", id).First(&course).Error; err != nil {
			if database.IsNotFound(err) {
				return apperr.NotFound("Course not found!")
			}
			return apperr.Internal("Failed to fetch course!", err)
		}

		chapterIDs := tx.Model(&courseModels.Chapter{}).Select("id").Where("course_id = ?", id)
		if err := tx.Where("chapter_id IN (?)", chapterIDs).Delete(&courseModels.Lesson{}).Error; err != nil {
			return apperr.Internal("Failed to delete lessons!", err)
		}
		if err := tx.Where("course_id = ?", id).Delete(&courseModels.Chapter{}).Error; err != nil {
			return apperr.Internal("Failed to delete chapters!", err)
		}
		if err := tx.Where("course_id = ?", id).Delete(&courseModels.Enrollment{}).Error; err != nil {
			return apperr.Internal("Failed to delete enrollments!", err)
		}
		if err := tx.Delete(&course).Error; err != nil {
			return apperr.Internal("Failed to delete course!", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("course deleted", "course_id", id)
	return nil
}
