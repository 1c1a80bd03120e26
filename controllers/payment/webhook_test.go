package paymentController

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coursehub/database/testutil"
	"coursehub/logger"
	courseModels "coursehub/models/course"
	"coursehub/payment"
	"coursehub/services/checkout"
	"coursehub/services/enrollment"
	"coursehub/services/webhook"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "whsec_controller"

type response struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Received bool   `json:"received"`
		Outcome  string `json:"outcome"`
	} `json:"data"`
}

func TestPaymentWebhook(t *testing.T) {
	db := testutil.DB(t)
	user := testutil.SeedUser(t, db, "buyer@example.com")
	require.NoError(t, db.Model(user).Update("gateway_customer_id", "cus_ctrl").Error)
	course := testutil.SeedCourse(t, db, user.ID, courseModels.StatusPublished, 50)
	enr := &courseModels.Enrollment{
		CourseID: course.ID,
		UserID:   user.ID,
		Status:   courseModels.EnrollmentPending,
		Amount:   decimal.NewFromInt(50),
	}
	require.NoError(t, db.Create(enr).Error)

	svc := webhook.NewService(db, enrollment.NewService(db, logger.Nop()), nil,
		webhook.Config{Secret: secret, Tolerance: 5 * time.Minute}, logger.Nop())
	app := fiber.New()
	app.Post("/api/webhook/payment", (&WebhookHandler{Service: svc, Log: logger.Nop()}).PaymentWebhook)

	post := func(payload []byte, signature string) (int, response) {
		req := httptest.NewRequest(http.MethodPost, "/api/webhook/payment", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		if signature != "" {
			req.Header.Set(payment.SignatureHeader, signature)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		var out response
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return resp.StatusCode, out
	}

	event := func(id string, metadata map[string]string) []byte {
		raw, err := json.Marshal(map[string]interface{}{
			"id":   id,
			"type": payment.EventCheckoutSessionCompleted,
			"data": map[string]interface{}{
				"object": map[string]interface{}{
					"id":       "cs_ctrl",
					"customer": "cus_ctrl",
					"metadata": metadata,
				},
			},
		})
		require.NoError(t, err)
		return raw
	}
	metadata := map[string]string{
		checkout.MetaCourseID:     course.ID.String(),
		checkout.MetaUserID:       user.ID.String(),
		checkout.MetaEnrollmentID: enr.ID.String(),
	}

	t.Run("missing signature", func(t *testing.T) {
		status, out := post(event("evt_1", metadata), "")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Webhook error", out.Message)
	})

	t.Run("forged signature", func(t *testing.T) {
		payload := event("evt_1", metadata)
		status, _ := post(payload, payment.SignPayload(payload, "whsec_other", time.Now()))
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("bad metadata", func(t *testing.T) {
		payload := event("evt_bad", map[string]string{checkout.MetaCourseID: "nope"})
		status, out := post(payload, payment.SignPayload(payload, secret, time.Now()))
		assert.Equal(t, http.StatusBadRequest, status)
		assert.False(t, out.Status)
	})

	t.Run("completes then deduplicates", func(t *testing.T) {
		payload := event("evt_ok", metadata)
		status, out := post(payload, payment.SignPayload(payload, secret, time.Now()))
		require.Equal(t, http.StatusOK, status)
		assert.True(t, out.Data.Received)
		assert.Equal(t, string(webhook.OutcomeCompleted), out.Data.Outcome)

		status, out = post(payload, payment.SignPayload(payload, secret, time.Now()))
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, string(webhook.OutcomeDuplicate), out.Data.Outcome)

		var stored courseModels.Enrollment
		require.NoError(t, db.First(&stored, "id = ?", enr.ID).Error)
		assert.Equal(t, courseModels.EnrollmentCompleted, stored.Status)
	})
}
