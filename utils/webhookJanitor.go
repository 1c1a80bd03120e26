package utils

import (
	"context"
	"time"

	"coursehub/logger"
	"coursehub/models"

	"github.com/jinzhu/now"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// WebhookJanitor prunes webhook ledger rows older than the retention window.
type WebhookJanitor struct {
	db            *gorm.DB
	retentionDays int
	log           *logger.Logger
	now           func() time.Time
	cron          *cron.Cron
}

func NewWebhookJanitor(db *gorm.DB, retentionDays int, baseLog *logger.Logger) *WebhookJanitor {
	return &WebhookJanitor{
		db:            db,
		retentionDays: retentionDays,
		log:           baseLog.With("component", "WebhookJanitor"),
		now:           time.Now,
	}
}

// Start schedules Sweep on a cron expression such as "@daily" or "0 3 * * *".
func (j *WebhookJanitor) Start(schedule string) error {
	if j.retentionDays <= 0 {
		j.log.Info("webhook janitor disabled", "retention_days", j.retentionDays)
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := j.Sweep(context.Background()); err != nil {
			j.log.Error("webhook sweep failed", "error", err)
		}
	}); err != nil {
		return err
	}
	c.Start()
	j.cron = c
	j.log.Info("webhook janitor started", "schedule", schedule, "retention_days", j.retentionDays)
	return nil
}

// Stop halts the schedule and waits for a running sweep.
func (j *WebhookJanitor) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
}

// Cutoff is midnight of the day retentionDays before today.
func (j *WebhookJanitor) Cutoff() time.Time {
	return now.New(j.now()).BeginningOfDay().AddDate(0, 0, -j.retentionDays).UTC()
}

func (j *WebhookJanitor) Sweep(ctx context.Context) (int64, error) {
	cutoff := j.Cutoff()
	res := j.db.WithContext(ctx).Where("processed_at < ?", cutoff).Delete(&models.WebhookEvent{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		j.log.Info("webhook events pruned", "count", res.RowsAffected, "cutoff", cutoff)
	}
	return res.RowsAffected, nil
}
