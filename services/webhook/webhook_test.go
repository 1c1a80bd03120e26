package webhook

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"coursehub/apperr"
	"coursehub/database/testutil"
	"coursehub/logger"
	"coursehub/models"
	courseModels "coursehub/models/course"
	"coursehub/payment"
	"coursehub/services/enrollment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const secret = "whsec_test"

type recordingNotifier struct {
	mu      sync.Mutex
	notices []string
}

func (r *recordingNotifier) EnrollmentCompleted(email, _, courseTitle string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, email+":"+courseTitle)
}

type fixture struct {
	svc        *Service
	db         *gorm.DB
	notifier   *recordingNotifier
	user       *models.User
	course     *courseModels.Course
	enrollment *courseModels.Enrollment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	user := testutil.SeedUser(t, db, "buyer@example.com")
	customer := "cus_buyer"
	require.NoError(t, db.Model(user).Update("gateway_customer_id", customer).Error)
	user.GatewayCustomerID = &customer

	course := testutil.SeedCourse(t, db, user.ID, courseModels.StatusPublished, 100)
	enr := &courseModels.Enrollment{
		CourseID: course.ID,
		UserID:   user.ID,
		Status:   courseModels.EnrollmentPending,
		Amount:   decimal.NewFromInt(100),
	}
	require.NoError(t, db.Create(enr).Error)

	notifier := &recordingNotifier{}
	svc := NewService(db, enrollment.NewService(db, logger.Nop()), notifier,
		Config{Secret: secret, Tolerance: 5 * time.Minute}, logger.Nop())
	return &fixture{svc: svc, db: db, notifier: notifier, user: user, course: course, enrollment: enr}
}

func (f *fixture) event(t *testing.T, eventID, eventType, customer string, metadata map[string]string) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"id":   eventID,
		"type": eventType,
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":       "cs_1",
				"customer": customer,
				"metadata": metadata,
			},
		},
	})
	require.NoError(t, err)
	return raw
}

func (f *fixture) metadata() map[string]string {
	return map[string]string{
		"courseId":     f.course.ID.String(),
		"userId":       f.user.ID.String(),
		"enrollmentId": f.enrollment.ID.String(),
	}
}

func (f *fixture) status(t *testing.T) courseModels.EnrollmentStatus {
	t.Helper()
	var enr courseModels.Enrollment
	require.NoError(t, f.db.First(&enr, "id = ?", f.enrollment.ID).Error)
	return enr.Status
}

func sign(payload []byte) string {
	return payment.SignPayload(payload, secret, time.Now())
}

func TestCompletionEvent(t *testing.T) {
	f := newFixture(t)
	payload := f.event(t, "evt_1", payment.EventCheckoutSessionCompleted, "cus_buyer", f.metadata())

	outcome, err := f.svc.Handle(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)
	assert.Equal(t, courseModels.EnrollmentCompleted, f.status(t))
	assert.Equal(t, []string{"buyer@example.com:Course"}, f.notifier.notices)

	var ledger models.WebhookEvent
	require.NoError(t, f.db.First(&ledger, "event_id = ?", "evt_1").Error)
	require.NotNil(t, ledger.EnrollmentID)
	assert.Equal(t, f.enrollment.ID, *ledger.EnrollmentID)
}

func TestReplayedEventIsNoop(t *testing.T) {
	f := newFixture(t)
	payload := f.event(t, "evt_1", payment.EventCheckoutSessionCompleted, "cus_buyer", f.metadata())

	_, err := f.svc.Handle(context.Background(), payload, sign(payload))
	require.NoError(t, err)

	outcome, err := f.svc.Handle(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	// A different event id for the same purchase also leaves it Completed.
	second := f.event(t, "evt_2", payment.EventCheckoutSessionCompleted, "cus_buyer", f.metadata())
	outcome, err = f.svc.Handle(context.Background(), second, sign(second))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyCompleted, outcome)

	assert.Equal(t, courseModels.EnrollmentCompleted, f.status(t))
	assert.Len(t, f.notifier.notices, 1)
}

func TestForgedSignatureChangesNothing(t *testing.T) {
	f := newFixture(t)
	payload := f.event(t, "evt_1", payment.EventCheckoutSessionCompleted, "cus_buyer", f.metadata())

	_, err := f.svc.Handle(context.Background(), payload, payment.SignPayload(payload, "attacker", time.Now()))
	assert.True(t, apperr.Is(err, apperr.KindSignatureInvalid))
	assert.Equal(t, 400, apperr.Status(err))

	_, err = f.svc.Handle(context.Background(), payload, "")
	assert.True(t, apperr.Is(err, apperr.KindSignatureInvalid))

	assert.Equal(t, courseModels.EnrollmentPending, f.status(t))
	var count int64
	require.NoError(t, f.db.Model(&models.WebhookEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestIgnoredEventType(t *testing.T) {
	f := newFixture(t)
	payload := f.event(t, "evt_9", "invoice.paid", "cus_buyer", f.metadata())

	outcome, err := f.svc.Handle(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Equal(t, courseModels.EnrollmentPending, f.status(t))
}

func TestMissingMetadata(t *testing.T) {
	f := newFixture(t)
	for _, key := range []string{"courseId", "userId", "enrollmentId"} {
		t.Run(key, func(t *testing.T) {
			meta := f.metadata()
			delete(meta, key)
			payload := f.event(t, "evt_"+key, payment.EventCheckoutSessionCompleted, "cus_buyer", meta)

			_, err := f.svc.Handle(context.Background(), payload, sign(payload))
			assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
			assert.Equal(t, 400, apperr.Status(err))
		})
	}

	payload := f.event(t, "evt_nocus", payment.EventCheckoutSessionCompleted, "", f.metadata())
	_, err := f.svc.Handle(context.Background(), payload, sign(payload))
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

	assert.Equal(t, courseModels.EnrollmentPending, f.status(t))
}

func TestIdentityMismatch(t *testing.T) {
	f := newFixture(t)
	other := testutil.SeedUser(t, f.db, "other@example.com")
	otherCustomer := "cus_other"
	require.NoError(t, f.db.Model(other).Update("gateway_customer_id", otherCustomer).Error)

	// Customer belongs to a different user than the metadata claims.
	payload := f.event(t, "evt_1", payment.EventCheckoutSessionCompleted, otherCustomer, f.metadata())
	_, err := f.svc.Handle(context.Background(), payload, sign(payload))
	assert.True(t, apperr.Is(err, apperr.KindIdentityMismatch))

	// Unknown customer.
	payload = f.event(t, "evt_2", payment.EventCheckoutSessionCompleted, "cus_ghost", f.metadata())
	_, err = f.svc.Handle(context.Background(), payload, sign(payload))
	assert.True(t, apperr.Is(err, apperr.KindIdentityMismatch))

	// Metadata points at an enrollment of another course.
	meta := f.metadata()
	meta["courseId"] = uuid.NewString()
	payload = f.event(t, "evt_3", payment.EventCheckoutSessionCompleted, "cus_buyer", meta)
	_, err = f.svc.Handle(context.Background(), payload, sign(payload))
	assert.True(t, apperr.Is(err, apperr.KindIdentityMismatch))

	assert.Equal(t, courseModels.EnrollmentPending, f.status(t))
	assert.Empty(t, f.notifier.notices)

	var count int64
	require.NoError(t, f.db.Model(&models.WebhookEvent{}).Count(&count).Error)
	assert.Zero(t, count, "rejected events must not enter the ledger")
}

func TestUnknownEnrollment(t *testing.T) {
	f := newFixture(t)
	meta := f.metadata()
	meta["enrollmentId"] = uuid.NewString()
	payload := f.event(t, "evt_1", payment.EventCheckoutSessionCompleted, "cus_buyer", meta)

	_, err := f.svc.Handle(context.Background(), payload, sign(payload))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
