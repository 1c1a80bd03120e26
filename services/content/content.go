// Package content applies chapter and lesson mutations so that sibling
// positions stay dense within their parent under concurrent admins.
package content

import (
	"context"
	"errors"
	"strings"

	"coursehub/apperr"
	"coursehub/database"
	"coursehub/logger"
	courseModels "coursehub/models/course"
	"coursehub/position"
	"coursehub/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const tracerName = "coursehub/services/content"

// LessonInput carries the editable fields of a lesson.
type LessonInput struct {
	Title        string
	Description  string
	VideoKey     string
	ThumbnailKey string
}

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewService(db *gorm.DB, baseLog *logger.Logger) *Service {
	return &Service{db: db, log: baseLog.With("service", "ContentService")}
}

// ListChapters returns the course's chapters with their lessons, both in
// position order.
func (s *Service) ListChapters(ctx context.Context, courseID uuid.UUID) ([]courseModels.Chapter, error) {
	var course courseModels.Course
	if err := s.db.WithContext(ctx).Select("id").Where("id = ?", courseID).First(&course).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperr.NotFound("Course not found!")
		}
		return nil, apperr.Internal("Failed to fetch course!", err)
	}

	var chapters []courseModels.Chapter
	err := s.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Order("position asc").
		Find(&chapters).Error
	if err != nil {
		return nil, apperr.Internal("Failed to fetch chapters!", err)
	}
	return chapters, nil
}

// CreateChapter appends a chapter to the end of the course.
func (s *Service) CreateChapter(ctx context.Context, courseID uuid.UUID, title string) (chapter *courseModels.Chapter, err error) {
	ctx, span := tracing.Start(ctx, tracerName, "CreateChapter", attribute.String("course.id", courseID.String()))
	defer func() { tracing.End(span, err) }()

	err = database.Transact(ctx, s.db, func(tx *gorm.DB) error {
		if err := lockCourse(tx, courseID); err != nil {
			return err
		}
		siblings, err := chapterItems(tx, courseID)
		if err != nil {
			return err
		}

		chapter = &courseModels.Chapter{
			CourseID: courseID,
			Title:    strings.TrimSpace(title),
			Position: position.Next(siblings),
		}
		if err := tx.Create(chapter).Error; err != nil {
			return apperr.Internal("Failed to create chapter!", err)
		}
		return verifyChapters(tx, courseID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("chapter created", "course_id", courseID, "chapter_id", chapter.ID, "position", chapter.Position)
	return chapter, nil
}

// CreateLesson appends a lesson to the end of the chapter.
func (s *Service) CreateLesson(ctx context.Context, chapterID uuid.UUID, in LessonInput) (lesson *courseModels.Lesson, err error) {
	ctx, span := tracing.Start(ctx, tracerName, "CreateLesson", attribute.String("chapter.id", chapterID.String()))
	defer func() { tracing.End(span, err) }()

	err = database.Transact(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := lockChapter(tx, chapterID); err != nil {
			return err
		}
		siblings, err := lessonItems(tx, chapterID)
		if err != nil {
			return err
		}

		lesson = &courseModels.Lesson{
			ChapterID:    chapterID,
			Title:        strings.TrimSpace(in.Title),
			Description:  in.Description,
			VideoKey:     in.VideoKey,
			ThumbnailKey: in.ThumbnailKey,
			Position:     position.Next(siblings),
		}
		if err := tx.Create(lesson).Error; err != nil {
			return apperr.Internal("Failed to create lesson!", err)
		}
		return verifyLessons(tx, chapterID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("lesson created", "chapter_id", chapterID, "lesson_id", lesson.ID, "position", lesson.Position)
	return lesson, nil
}

// UpdateChapter renames a chapter. Position is changed only by reordering.
func (s *Service) UpdateChapter(ctx context.Context, chapterID uuid.UUID, title string) (*courseModels.Chapter, error) {
	var chapter courseModels.Chapter
	err := database.Transact(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", chapterID).First(&chapter).Error; err != nil {
			if database.IsNotFound(err) {
				return apperr.NotFound("Chapter not found!")
			}
			return apperr.Internal("Failed to fetch chapter!", err)
		}
		chapter.Title = strings.TrimSpace(title)
		if err := tx.Model(&chapter).Update("title", chapter.Title).Error; err != nil {
			return apperr.Internal("Failed to update chapter!", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &chapter, nil
}

// UpdateLesson edits a lesson's text and media references.
func (s *Service) UpdateLesson(ctx context.Context, lessonID uuid.UUID, in LessonInput) (*courseModels.Lesson, error) {
	var lesson courseModels.Lesson
	err := database.Transact(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", lessonID).First(&lesson).Error; err != nil {
			if database.IsNotFound(err) {
				return apperr.NotFound("Lesson not found!")
			}
			return apperr.Internal("Failed to fetch lesson!", err)
		}
		lesson.Title = strings.TrimSpace(in.Title)
		lesson.Description = in.Description
		lesson.VideoKey = in.VideoKey
		lesson.ThumbnailKey = in.ThumbnailKey
		err := tx.Model(&lesson).
			Select("title", "description", "video_key", "thumbnail_key").
			Updates(&lesson).Error
		if err != nil {
			return apperr.Internal("Failed to update lesson!", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

// DeleteChapter removes the chapter and its lessons, then closes the gap in
// the course's chapter positions.
func (s *Service) DeleteChapter(ctx context.Context, chapterID uuid.UUID) (err error) {
	ctx, span := tracing.Start(ctx, tracerName, "DeleteChapter", attribute.String("chapter.id", chapterID.String()))
	defer func() { tracing.End(span, err) }()

	var courseID uuid.UUID
	err = database.Transact(ctx, s.db, func(tx *gorm.DB) error {
		chapter, err := findChapter(tx, chapterID)
		if err != nil {
			return err
		}
		courseID = chapter.CourseID

		if err := lockCourse(tx, courseID); err != nil {
			return err
		}
		siblings, err := chapterItems(tx, courseID)
		if err != nil {
			return err
		}
		writes, err := position.Remove(siblings, chapterID)
		if errors.Is(err, position.ErrNotFound) {
			// Deleted by a concurrent request between the read and the lock.
			return apperr.NotFound("Chapter not found!")
		}
		if err != nil {
			return apperr.Internal("Failed to delete chapter!", err)
		}

		if err := tx.Where("chapter_id = ?", chapterID).Delete(&courseModels.Lesson{}).Error; err != nil {
			return apperr.Internal("Failed to delete chapter lessons!", err)
		}
		if err := tx.Where("id = ? AND course_id = ?", chapterID, courseID).Delete(&courseModels.Chapter{}).Error; err != nil {
			return apperr.Internal("Failed to delete chapter!", err)
		}
		if err := applyWrites(tx, &courseModels.Chapter{}, "course_id", courseID, writes); err != nil {
			return err
		}
		return verifyChapters(tx, courseID)
	})
	if err != nil {
		return err
	}

	s.log.Info("chapter deleted", "course_id", courseID, "chapter_id", chapterID)
	return nil
}

// DeleteLesson removes the lesson and closes the gap in its chapter.
func (s *Service) DeleteLesson(ctx context.Context, lessonID uuid.UUID) (err error) {
	ctx, span := tracing.Start(ctx, tracerName, "DeleteLesson", attribute.String("lesson.id", lessonID.String()))
	defer func() { tracing.End(span, err) }()

	var chapterID uuid.UUID
	err = database.Transact(ctx, s.db, func(tx *gorm.DB) error {
		var lesson courseModels.Lesson
		if err := tx.Select("id", "chapter_id").Where("id = ?", lessonID).First(&lesson).Error; err != nil {
			if database.IsNotFound(err) {
				return apperr.NotFound("Lesson not found!")
			}
			return apperr.Internal("Failed to fetch lesson!", err)
		}
		chapterID = lesson.ChapterID

		if _, err := lockChapter(tx, chapterID); err != nil {
			return err
		}
		siblings, err := lessonItems(tx, chapterID)
		if err != nil {
			return err
		}
		writes, err := position.Remove(siblings, lessonID)
		if errors.Is(err, position.ErrNotFound) {
			return apperr.NotFound("Lesson not found!")
		}
		if err != nil {
			return apperr.Internal("Failed to delete lesson!", err)
		}

		if err := tx.Where("id = ? AND chapter_id = ?", lessonID, chapterID).Delete(&courseModels.Lesson{}).Error; err != nil {
			return apperr.Internal("Failed to delete lesson!", err)
		}
		if err := applyWrites(tx, &courseModels.Lesson{}, "chapter_id", chapterID, writes); err != nil {
			return err
		}
		return verifyLessons(tx, chapterID)
	})
	if err != nil {
		return err
	}

	s.log.Info("lesson deleted", "chapter_id", chapterID, "lesson_id", lessonID)
	return nil
}

// ReorderChapters sets the course's chapter order to orderedIDs, which must
// list every chapter of the course exactly once.
func (s *Service) ReorderChapters(ctx context.Context, courseID uuid.UUID, orderedIDs []uuid.UUID) (err error) {
	ctx, span := tracing.Start(ctx, tracerName, "ReorderChapters",
		attribute.String("course.id", courseID.String()), attribute.Int("count", len(orderedIDs)))
	defer func() { tracing.End(span, err) }()

	return database.Transact(ctx, s.db, func(tx *gorm.DB) error {
		if err := lockCourse(tx, courseID); err != nil {
			return err
		}
		siblings, err := chapterItems(tx, courseID)
		if err != nil {
			return err
		}
		writes, err := position.Reorder(siblings, orderedIDs)
		if err != nil {
			return apperr.New(apperr.KindInvalidInput, "Invalid chapter order!", err)
		}
		if err := applyWrites(tx, &courseModels.Chapter{}, "course_id", courseID, writes); err != nil {
			return err
		}
		return verifyChapters(tx, courseID)
	})
}

// ReorderLessons sets the chapter's lesson order to orderedIDs, which must
// list every lesson of the chapter exactly once.
func (s *Service) ReorderLessons(ctx context.Context, chapterID uuid.UUID, orderedIDs []uuid.UUID) (err error) {
	ctx, span := tracing.Start(ctx, tracerName, "ReorderLessons",
		attribute.String("chapter.id", chapterID.String()), attribute.Int("count", len(orderedIDs)))
	defer func() { tracing.End(span, err) }()

	return database.Transact(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := lockChapter(tx, chapterID); err != nil {
			return err
		}
		siblings, err := lessonItems(tx, chapterID)
		if err != nil {
			return err
		}
		writes, err := position.Reorder(siblings, orderedIDs)
		if err != nil {
			return apperr.New(apperr.KindInvalidInput, "Invalid lesson order!", err)
		}
		if err := applyWrites(tx, &courseModels.Lesson{}, "chapter_id", chapterID, writes); err != nil {
			return err
		}
		return verifyLessons(tx, chapterID)
	})
}

// lockCourse takes a row lock on the course so sibling mutations on its
// chapters run one at a time.
func lockCourse(tx *gorm.DB, courseID uuid.UUID) error {
	var course courseModels.Course
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", courseID).
		First(&course).Error
	if database.IsNotFound(err) {
		return apperr.NotFound("Course not found!")
	}
	if err != nil {
		return apperr.Internal("Failed to lock course!", err)
	}
	return nil
}

func lockChapter(tx *gorm.DB, chapterID uuid.UUID) (*courseModels.Chapter, error) {
	var chapter courseModels.Chapter
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", chapterID).
		First(&chapter).Error
	if database.IsNotFound(err) {
		return nil, apperr.NotFound("Chapter not found!")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to lock chapter!", err)
	}
	return &chapter, nil
}

func findChapter(tx *gorm.DB, chapterID uuid.UUID) (*courseModels.Chapter, error) {
	var chapter courseModels.Chapter
	err := tx.Select("id", "course_id").Where("id = ?", chapterID).First(&chapter).Error
	if database.IsNotFound(err) {
		return nil, apperr.NotFound("Chapter not found!")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to fetch chapter!", err)
	}
	return &chapter, nil
}

func chapterItems(tx *gorm.DB, courseID uuid.UUID) ([]position.Item, error) {
	var items []position.Item
	err := tx.Model(&courseModels.Chapter{}).
		Select("id", "position").
		Where("course_id = ?", courseID).
		Order("position asc").
		Scan(&items).Error
	if err != nil {
		return nil, apperr.Internal("Failed to fetch chapters!", err)
	}
	return items, nil
}

func lessonItems(tx *gorm.DB, chapterID uuid.UUID) ([]position.Item, error) {
	var items []position.Item
	err := tx.Model(&courseModels.Lesson{}).
		Select("id", "position").
		Where("chapter_id = ?", chapterID).
		Order("position asc").
		Scan(&items).Error
	if err != nil {
		return nil, apperr.Internal("Failed to fetch lessons!", err)
	}
	return items, nil
}

// applyWrites stores each assignment, scoped to the parent so a stale id
// from another parent can never be moved.
func applyWrites(tx *gorm.DB, model interface{}, parentColumn string, parentID uuid.UUID, writes []position.Assignment) error {
	for _, w := range writes {
		res := tx.Model(model).
			Where("id = ? AND "+parentColumn+" = ?", w.ID, parentID).
			Update("position", w.Position)
		if res.Error != nil {
			return apperr.Internal("Failed to update positions!", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperr.Internal("Failed to update positions!", position.ErrNotContiguous)
		}
	}
	return nil
}

func verifyChapters(tx *gorm.DB, courseID uuid.UUID) error {
	items, err := chapterItems(tx, courseID)
	if err != nil {
		return err
	}
	if err := position.Validate(position.Positions(items)); err != nil {
		return apperr.Internal("Chapter order is inconsistent!", err)
	}
	return nil
}

func verifyLessons(tx *gorm.DB, chapterID uuid.UUID) error {
	items, err := lessonItems(tx, chapterID)
	if err != nil {
		return err
	}
	if err := position.Validate(position.Positions(items)); err != nil {
		return apperr.Internal("Lesson order is inconsistent!", err)
	}
	return nil
}
