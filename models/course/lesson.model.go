package course

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lesson sits at a 1-based, dense Position within its chapter. VideoKey and
// ThumbnailKey are object store keys managed by the upload service.
type Lesson struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	ChapterID    uuid.UUID `gorm:"type:char(36);not null;index:idx_lesson_chapter_position,priority:1" json:"chapterId"`
	Title        string    `gorm:"type:varchar(255);not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	VideoKey     string    `gorm:"type:varchar(255)" json:"videoKey"`
	ThumbnailKey string    `gorm:"type:varchar(255)" json:"thumbnailKey"`
	Position     int       `gorm:"not null;index:idx_lesson_chapter_position,priority:2" json:"position"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (Lesson) TableName() string {
	return "lessons"
}

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
