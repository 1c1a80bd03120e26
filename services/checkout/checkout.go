// Package checkout opens a hosted payment session for a user buying a
// published course and leaves a Pending enrollment for the webhook to
// complete.
package checkout

import (
	"context"
	"errors"
	"strings"

	"coursehub/apperr"
	"coursehub/database"
	"coursehub/logger"
	"coursehub/models"
	courseModels "coursehub/models/course"
	"coursehub/payment"
	"coursehub/services/enrollment"
	"coursehub/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const tracerName = "coursehub/services/checkout"

// Metadata keys attached to every checkout session and read back by the
// webhook handler.
const (
	MetaCourseID     = "courseId"
	MetaUserID       = "userId"
	MetaEnrollmentID = "enrollmentId"
)

type Result struct {
	URL             string
	EnrollmentID    uuid.UUID
	AlreadyEnrolled bool
}

type Service struct {
	db          *gorm.DB
	gateway     payment.Gateway
	enrollments *enrollment.Service
	log         *logger.Logger
	appURL      string

	customers singleflight.Group
}

func NewService(db *gorm.DB, gateway payment.Gateway, enrollments *enrollment.Service, appURL string, baseLog *logger.Logger) *Service {
	return &Service{
		db:          db,
		gateway:     gateway,
		enrollments: enrollments,
		log:         baseLog.With("service", "CheckoutService"),
		appURL:      strings.TrimRight(appURL, "/"),
	}
}

// Checkout returns the gateway URL the user must visit to pay for courseID,
// or AlreadyEnrolled when the purchase is already complete.
func (s *Service) Checkout(ctx context.Context, courseID, userID uuid.UUID) (result *Result, err error) {
	ctx, span := tracing.Start(ctx, tracerName, "Checkout",
		attribute.String("course.id", courseID.String()), attribute.String("user.id", userID.String()))
	defer func() { tracing.End(span, err) }()

	var course courseModels.Course
	err = s.db.WithContext(ctx).
		Where("id = ? AND status = ?", courseID, courseModels.StatusPublished).
		First(&course).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, apperr.NotFound("Course not found!")
		}
		return nil, apperr.Internal("Failed to fetch course!", err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperr.NotFound("User not found!")
		}
		return nil, apperr.Internal("Failed to fetch user!", err)
	}

	customerID, err := s.ensureCustomer(ctx, &user)
	if err != nil {
		return nil, err
	}

	result = &Result{}
	err = database.Transact(ctx, s.db, func(tx *gorm.DB) error {
		enr, already, err := s.enrollments.BeginPending(tx, &course, user.ID)
		if err != nil {
			return err
		}
		result.EnrollmentID = enr.ID
		if already {
			result.AlreadyEnrolled = true
			return nil
		}

		session, err := s.gateway.CreateCheckoutSession(ctx, payment.SessionParams{
			CustomerID: customerID,
			PriceID:    course.GatewayPriceID,
			SuccessURL: s.appURL + "/payment/success",
			CancelURL:  s.appURL + "/payment/cancel",
			Metadata: map[string]string{
				MetaCourseID:     course.ID.String(),
				MetaUserID:       user.ID.String(),
				MetaEnrollmentID: enr.ID.String(),
			},
		})
		if err != nil {
			return gatewayFailure(err)
		}
		result.URL = session.URL
		return s.enrollments.SetCheckoutSession(tx, enr.ID, session.ID)
	})
	if err != nil {
		s.log.Warn("checkout failed", "course_id", courseID, "user_id", userID, "error", err)
		return nil, err
	}

	if !result.AlreadyEnrolled {
		s.log.Info("checkout session opened", "course_id", courseID, "user_id", userID, "enrollment_id", result.EnrollmentID)
	}
	return result, nil
}

// ensureCustomer returns the user's gateway customer id, creating it on
// first purchase. Concurrent first purchases by one user share one gateway
// call in this process; across processes the gateway idempotency key and
// the conditional store keep a single mapping.
func (s *Service) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.GatewayCustomerID != nil && *user.GatewayCustomerID != "" {
		return *user.GatewayCustomerID, nil
	}

	v, err, _ := s.customers.Do(user.ID.String(), func() (interface{}, error) {
		if stored, err := storedCustomer(ctx, s.db, user.ID); err != nil || stored != "" {
			return stored, err
		}

		id, err := s.gateway.CreateCustomer(ctx, payment.CustomerParams{
			Email:  user.Email,
			Name:   user.Name,
			UserID: user.ID,
		})
		if err != nil {
			return "", gatewayFailure(err)
		}

		res := s.db.WithContext(ctx).Model(&models.User{}).
			Where("id = ? AND gateway_customer_id IS NULL", user.ID).
			Update("gateway_customer_id", id)
		if res.Error != nil {
			return "", apperr.Internal("Failed to store gateway customer!", res.Error)
		}
		if res.RowsAffected == 0 {
			// Another process stored a mapping first; theirs wins.
			return storedCustomer(ctx, s.db, user.ID)
		}
		return id, nil
	})
	if err != nil {
		return "", err
	}
	id := v.(string)
	if id == "" {
		return "", apperr.Internal("Gateway customer missing!", nil)
	}
	user.GatewayCustomerID = &id
	return id, nil
}

func storedCustomer(ctx context.Context, db *gorm.DB, userID uuid.UUID) (string, error) {
	var user models.User
	if err := db.WithContext(ctx).Select("id", "gateway_customer_id").Where("id = ?", userID).First(&user).Error; err != nil {
		return "", apperr.Internal("Failed to fetch user!", err)
	}
	if user.GatewayCustomerID == nil {
		return "", nil
	}
	return *user.GatewayCustomerID, nil
}

func gatewayFailure(err error) error {
	var gwErr *payment.GatewayError
	if errors.As(err, &gwErr) {
		return apperr.New(apperr.KindGateway, gwErr.Message, err)
	}
	return apperr.Internal("Failed to enroll in course!", err)
}
