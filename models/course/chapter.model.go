package course

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chapter sits at a 1-based, dense Position within its course.
type Chapter struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	CourseID  uuid.UUID `gorm:"type:char(36);not null;index:idx_chapter_course_position,priority:1" json:"courseId"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Position  int       `gorm:"not null;index:idx_chapter_course_position,priority:2" json:"position"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Lessons []Lesson `gorm:"foreignKey:ChapterID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
}

func (Chapter) TableName() string {
	return "chapters"
}

func (c *Chapter) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
