package course

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EnrollmentStatus enum values
type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "Pending"
	EnrollmentCompleted EnrollmentStatus = "Completed"
)

// Enrollment joins a user to a course. (CourseID, UserID) is unique at the
// storage level; Amount is the course price when checkout was last opened.
type Enrollment struct {
	ID                uuid.UUID        `gorm:"type:char(36);primaryKey" json:"id"`
	CourseID          uuid.UUID        `gorm:"type:char(36);not null;uniqueIndex:idx_enrollment_course_user,priority:1" json:"courseId"`
	UserID            uuid.UUID        `gorm:"type:char(36);not null;uniqueIndex:idx_enrollment_course_user,priority:2;index" json:"userId"`
	Status            EnrollmentStatus `gorm:"type:varchar(20);not null;default:'Pending'" json:"status"`
	Amount            decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	CheckoutSessionID string           `gorm:"type:varchar(255)" json:"checkoutSessionId"`
	CompletedAt       *time.Time       `json:"completedAt"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`

	Course *Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
