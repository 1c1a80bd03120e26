package course

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CourseStatus enum values
type CourseStatus string

const (
	StatusDraft     CourseStatus = "Draft"
	StatusPublished CourseStatus = "Published"
	StatusArchived  CourseStatus = "Archived"
)

func (s CourseStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Course owns an ordered set of chapters.
type Course struct {
	ID               uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	OwnerID          uuid.UUID       `gorm:"type:char(36);index;not null" json:"ownerId"`
	Title            string          `gorm:"type:varchar(255);not null" json:"title"`
	Slug             string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	SmallDescription string          `gorm:"type:varchar(500)" json:"smallDescription"`
	Description      string          `gorm:"type:text" json:"description"`
	FileKey          string          `gorm:"type:varchar(255)" json:"fileKey"`
	Price            decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	GatewayPriceID   string          `gorm:"type:varchar(100)" json:"gatewayPriceId"`
	Status           CourseStatus    `gorm:"type:varchar(20);not null;default:'Draft';index" json:"status"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`

	Chapters []Chapter `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"chapters,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
