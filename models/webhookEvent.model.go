package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookEvent records every payment gateway event that changed state, keyed
// by the gateway's event id. A second delivery of the same id is a replay.
type WebhookEvent struct {
	ID           uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	EventID      string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"eventId"`
	Type         string         `gorm:"type:varchar(100);not null" json:"type"`
	EnrollmentID *uuid.UUID     `gorm:"type:char(36);index" json:"enrollmentId"`
	Payload      datatypes.JSON `json:"payload"`
	ProcessedAt  time.Time      `gorm:"not null;index" json:"processedAt"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}

func (e *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
