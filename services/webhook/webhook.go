// Package webhook applies payment gateway events to enrollments. Events may
// arrive late, twice, or out of order; only a verified completion for a
// matching (course, user, enrollment) triple moves an enrollment forward.
package webhook

import (
	"context"
	"strings"
	"time"

	"coursehub/apperr"
	"coursehub/database"
	"coursehub/logger"
	"coursehub/models"
	courseModels "coursehub/models/course"
	"coursehub/payment"
	"coursehub/services/checkout"
	"coursehub/services/enrollment"
	"coursehub/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const tracerName = "coursehub/services/webhook"

type Outcome string

const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeAlreadyCompleted Outcome = "already_completed"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomeIgnored          Outcome = "ignored"
)

// Notifier sends the buyer a confirmation once an enrollment completes.
// Delivery is best effort and never affects the event outcome.
type Notifier interface {
	EnrollmentCompleted(email, name, courseTitle string)
}

type Config struct {
	Secret    string
	Tolerance time.Duration
}

type Service struct {
	db          *gorm.DB
	enrollments *enrollment.Service
	notifier    Notifier
	cfg         Config
	log         *logger.Logger
}

func NewService(db *gorm.DB, enrollments *enrollment.Service, notifier Notifier, cfg Config, baseLog *logger.Logger) *Service {
	return &Service{
		db:          db,
		enrollments: enrollments,
		notifier:    notifier,
		cfg:         cfg,
		log:         baseLog.With("service", "WebhookService"),
	}
}

type correlation struct {
	courseID     uuid.UUID
	userID       uuid.UUID
	enrollmentID uuid.UUID
	customerID   string
}

// Handle verifies and applies one delivery. Errors carry the apperr kind
// that decides the HTTP status returned to the gateway.
func (s *Service) Handle(ctx context.Context, payload []byte, signature string) (outcome Outcome, err error) {
	ctx, span := tracing.Start(ctx, tracerName, "Handle")
	defer func() { tracing.End(span, err) }()

	event, err := payment.ConstructEvent(payload, signature, s.cfg.Secret, s.cfg.Tolerance)
	if err != nil {
		s.log.Warn("webhook signature rejected", "error", err)
		return "", apperr.New(apperr.KindSignatureInvalid, "Webhook signature verification failed", err)
	}
	span.SetAttributes(attribute.String("event.id", event.ID), attribute.String("event.type", event.Type))

	if event.Type != payment.EventCheckoutSessionCompleted {
		s.log.Debug("webhook event ignored", "event_id", event.ID, "type", event.Type)
		return OutcomeIgnored, nil
	}

	session, err := event.CheckoutSession()
	if err != nil {
		return "", apperr.New(apperr.KindInvalidInput, "Invalid checkout session payload", err)
	}
	corr, err := parseCorrelation(session)
	if err != nil {
		return "", err
	}

	var user models.User
	err = s.db.WithContext(ctx).Where("gateway_customer_id = ?", corr.customerID).First(&user).Error
	if err != nil {
		if database.IsNotFound(err) {
			return "", apperr.New(apperr.KindIdentityMismatch, "User not found for customer", nil)
		}
		return "", apperr.Internal("Failed to fetch user!", err)
	}
	if user.ID != corr.userID {
		s.log.Warn("webhook customer does not match metadata", "event_id", event.ID, "user_id", corr.userID)
		return "", apperr.New(apperr.KindIdentityMismatch, "Customer does not match user", nil)
	}

	err = database.Transact(ctx, s.db, func(tx *gorm.DB) error {
		entry := &models.WebhookEvent{
			EventID:      event.ID,
			Type:         event.Type,
			EnrollmentID: &corr.enrollmentID,
			Payload:      datatypes.JSON(payload),
			ProcessedAt:  time.Now().UTC(),
		}
		res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).Create(entry)
		if res.Error != nil {
			return apperr.Internal("Failed to record webhook event!", res.Error)
		}
		if res.RowsAffected == 0 {
			outcome = OutcomeDuplicate
			return nil
		}

		_, changed, err := s.enrollments.Complete(tx, corr.enrollmentID, corr.courseID, corr.userID)
		if err != nil {
			return err
		}
		if changed {
			outcome = OutcomeCompleted
		} else {
			outcome = OutcomeAlreadyCompleted
		}
		return nil
	})
	if err != nil {
		s.log.Error("webhook event failed", "event_id", event.ID, "enrollment_id", corr.enrollmentID, "error", err)
		return "", err
	}

	s.log.Info("webhook event applied", "event_id", event.ID, "enrollment_id", corr.enrollmentID, "outcome", outcome)
	if outcome == OutcomeCompleted {
		s.notify(ctx, &user, corr.courseID)
	}
	return outcome, nil
}

func (s *Service) notify(ctx context.Context, user *models.User, courseID uuid.UUID) {
	if s.notifier == nil {
		return
	}
	var course courseModels.Course
	if err := s.db.WithContext(ctx).Select("id", "title").Where("id = ?", courseID).First(&course).Error; err != nil {
		s.log.Warn("enrollment notice skipped", "course_id", courseID, "error", err)
		return
	}
	s.notifier.EnrollmentCompleted(user.Email, user.Name, course.Title)
}

func parseCorrelation(session *payment.CheckoutSession) (*correlation, error) {
	ids := make(map[string]uuid.UUID, 3)
	for _, key := range []string{checkout.MetaCourseID, checkout.MetaUserID, checkout.MetaEnrollmentID} {
		raw := strings.TrimSpace(session.Metadata[key])
		if raw == "" {
			return nil, apperr.InvalidInput("Missing metadata: " + key)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperr.New(apperr.KindInvalidInput, "Invalid metadata: "+key, err)
		}
		ids[key] = id
	}
	if strings.TrimSpace(session.Customer) == "" {
		return nil, apperr.InvalidInput("Missing customer id")
	}
	return &correlation{
		courseID:     ids[checkout.MetaCourseID],
		userID:       ids[checkout.MetaUserID],
		enrollmentID: ids[checkout.MetaEnrollmentID],
		customerID:   session.Customer,
	}, nil
}
