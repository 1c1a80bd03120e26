// Package enrollment moves a (course, user) pair through
// Absent -> Pending -> Completed. Completed is absorbing.
package enrollment

import (
	"context"
	"time"

	"coursehub/apperr"
	"coursehub/database"
	"coursehub/logger"
	courseModels "coursehub/models/course"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewService(db *gorm.DB, baseLog *logger.Logger) *Service {
	return &Service{db: db, log: baseLog.With("service", "EnrollmentService")}
}

// BeginPending makes sure a Pending enrollment exists for the pair with the
// course's current price as its amount. It reports alreadyEnrolled (and
// changes nothing) when the pair is Completed. Must run inside tx.
func (s *Service) BeginPending(tx *gorm.DB, course *courseModels.Course, userID uuid.UUID) (enr *courseModels.Enrollment, alreadyEnrolled bool, err error) {
	existing, err := lockPair(tx, course.ID, userID)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		fresh := &courseModels.Enrollment{
			CourseID: course.ID,
			UserID:   userID,
			Status:   courseModels.EnrollmentPending,
			Amount:   course.Price,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(fresh)
		if res.Error != nil {
			return nil, false, apperr.Internal("Failed to create enrollment!", res.Error)
		}
		if res.RowsAffected == 1 {
			s.log.Info("enrollment pending", "enrollment_id", fresh.ID, "course_id", course.ID, "user_id", userID)
			return fresh, false, nil
		}

		// Lost the insert race; the winner's row is now visible.
		existing, err = lockPair(tx, course.ID, userID)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, apperr.Internal("Failed to create enrollment!", nil)
		}
	}

	if existing.Status == courseModels.EnrollmentCompleted {
		return existing, true, nil
	}

	res := tx.Model(&courseModels.Enrollment{}).
		Where("id = ? AND status = ?", existing.ID, courseModels.EnrollmentPending).
		Update("amount", course.Price)
	if res.Error != nil {
		return nil, false, apperr.Internal("Failed to update enrollment!", res.Error)
	}

	current, err := lockPair(tx, course.ID, userID)
	if err != nil {
		return nil, false, err
	}
	if current == nil {
		return nil, false, apperr.Internal("Enrollment disappeared during checkout!", nil)
	}
	return current, current.Status == courseModels.EnrollmentCompleted, nil
}

// SetCheckoutSession records the gateway session opened for a Pending
// enrollment.
func (s *Service) SetCheckoutSession(tx *gorm.DB, enrollmentID uuid.UUID, sessionID string) error {
	res := tx.Model(&courseModels.Enrollment{}).
		Where("id = ? AND status = ?", enrollmentID, courseModels.EnrollmentPending).
		Update("checkout_session_id", sessionID)
	if res.Error != nil {
		return apperr.Internal("Failed to store checkout session!", res.Error)
	}
	return nil
}

// Complete marks the enrollment Completed if it is still Pending and
// belongs to courseID and userID. Completing an already Completed
// enrollment succeeds without a write; changed reports whether this call
// performed the transition. Must run inside tx.
func (s *Service) Complete(tx *gorm.DB, enrollmentID, courseID, userID uuid.UUID) (enr *courseModels.Enrollment, changed bool, err error) {
	now := time.Now().UTC()
	res := tx.Model(&courseModels.Enrollment{}).
		Where("id = ? AND course_id = ? AND user_id = ? AND status = ?",
			enrollmentID, courseID, userID, courseModels.EnrollmentPending).
		Updates(map[string]interface{}{
			"status":       courseModels.EnrollmentCompleted,
			"completed_at": now,
		})
	if res.Error != nil {
		return nil, false, apperr.Internal("Failed to complete enrollment!", res.Error)
	}

	var current courseModels.Enrollment
	if err := tx.Where("id = ?", enrollmentID).First(&current).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, false, apperr.NotFound("Enrollment not found!")
		}
		return nil, false, apperr.Internal("Failed to fetch enrollment!", err)
	}
	if current.CourseID != courseID || current.UserID != userID {
		return nil, false, apperr.New(apperr.KindIdentityMismatch, "Enrollment does not match course or user!", nil)
	}
	if current.Status != courseModels.EnrollmentCompleted {
		return nil, false, apperr.Internal("Enrollment was not completed!", nil)
	}

	if res.RowsAffected == 1 {
		s.log.Info("enrollment completed", "enrollment_id", enrollmentID, "course_id", courseID, "user_id", userID)
		return &current, true, nil
	}
	return &current, false, nil
}

// Status returns the pair's enrollment, or nil when the user never started
// a checkout for the course.
func (s *Service) Status(ctx context.Context, courseID, userID uuid.UUID) (*courseModels.Enrollment, error) {
	var enr courseModels.Enrollment
	res := s.db.WithContext(ctx).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Limit(1).
		Find(&enr)
	if res.Error != nil {
		return nil, apperr.Internal("Failed to fetch enrollment!", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &enr, nil
}

// IsEnrolled reports whether the user has paid for the course.
func (s *Service) IsEnrolled(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	enr, err := s.Status(ctx, courseID, userID)
	if err != nil {
		return false, err
	}
	return enr != nil && enr.Status == courseModels.EnrollmentCompleted, nil
}

// ListForUser returns the user's completed enrollments with their courses,
// most recent first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]courseModels.Enrollment, error) {
	var enrollments []courseModels.Enrollment
	err := s.db.WithContext(ctx).
		Preload("Course").
		Where("user_id = ? AND status = ?", userID, courseModels.EnrollmentCompleted).
		Order("completed_at desc").
		Find(&enrollments).Error
	if err != nil {
		return nil, apperr.Internal("Failed to fetch enrollments!", err)
	}
	return enrollments, nil
}

func lockPair(tx *gorm.DB, courseID, userID uuid.UUID) (*courseModels.Enrollment, error) {
	var enr courseModels.Enrollment
	res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Limit(1).
		Find(&enr)
	if res.Error != nil {
		return nil, apperr.Internal("Failed to fetch enrollment!", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &enr, nil
}
