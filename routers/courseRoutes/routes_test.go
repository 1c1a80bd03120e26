package courseRoutes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coursehub/config"
	controllers "coursehub/controllers/course"
	"coursehub/database/testutil"
	"coursehub/guard"
	"coursehub/logger"
	"coursehub/middleware"
	"coursehub/models"
	courseModels "coursehub/models/course"
	"coursehub/payment"
	"coursehub/services/catalog"
	"coursehub/services/checkout"
	"coursehub/services/content"
	"coursehub/services/enrollment"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const browserUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/126.0 Safari/537.36"

type stubGateway struct{}

func (stubGateway) CreateCustomer(_ context.Context, p payment.CustomerParams) (string, error) {
	return "cus_" + p.UserID.String()[:8], nil
}

func (stubGateway) CreateCheckoutSession(_ context.Context, p payment.SessionParams) (*payment.Session, error) {
	return &payment.Session{ID: "cs_" + p.Metadata[checkout.MetaEnrollmentID][:8], URL: "https://pay.example/session"}, nil
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	app   *fiber.App
	db    *gorm.DB
	admin *models.User
	user  *models.User
}

func newHarness(t *testing.T, rules guard.Rules) *harness {
	t.Helper()
	config.AppConfig = &config.Config{JWTKey: "test-secret"}

	db := testutil.DB(t)
	log := logger.Nop()
	enrollments := enrollment.NewService(db, log)
	h := &controllers.Handler{
		Catalog:     catalog.NewService(db, log),
		Content:     content.NewService(db, log),
		Enrollments: enrollments,
		Checkout:    checkout.NewService(db, stubGateway{}, enrollments, "https://app.example", log),
		Log:         log,
		Timeout:     5 * time.Second,
	}
	g := guard.New(guard.NewMemoryCounter(), guard.Options{Mode: guard.ModeLive, FailOpen: true}, log)

	app := fiber.New()
	SetupCourseRoutes(app, h, g, rules)
	SetupAdminCourseRoutes(app, h, db, g, rules)

	return &harness{
		app:   app,
		db:    db,
		admin: testutil.SeedAdmin(t, db, "admin@example.com"),
		user:  testutil.SeedUser(t, db, "user@example.com"),
	}
}

func relaxedRules() guard.Rules {
	rules := guard.DefaultRules()
	rules.Admin.Max = 1000
	rules.Enrollment.Max = 1000
	return rules
}

func token(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := middleware.GenerateJWT(u.ID, u.Name, u.Role, u.Email)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, method, path, tok, ua string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", ua)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	h := newHarness(t, relaxedRules())

	status, _ := h.do(t, http.MethodGet, "/admin/course/list", "", browserUA, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = h.do(t, http.MethodGet, "/admin/course/list", token(t, h.user), browserUA, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env := h.do(t, http.MethodGet, "/admin/course/list", token(t, h.admin), browserUA, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Status)
}

func TestAdminChapterLifecycle(t *testing.T) {
	h := newHarness(t, relaxedRules())
	tok := token(t, h.admin)
	course := testutil.SeedCourse(t, h.db, h.admin.ID, courseModels.StatusDraft, 100)

	var ids []uuid.UUID
	for _, title := range []string{"Intro", "Middle", "Outro"} {
		status, env := h.do(t, http.MethodPost, "/admin/course/"+course.ID.String()+"/chapter", tok, browserUA, map[string]string{"title": title})
		require.Equal(t, http.StatusCreated, status, env.Message)
		var ch courseModels.Chapter
		require.NoError(t, json.Unmarshal(env.Data, &ch))
		ids = append(ids, ch.ID)
	}

	status, _ := h.do(t, http.MethodDelete, "/admin/chapter/"+ids[1].String(), tok, browserUA, nil)
	require.Equal(t, http.StatusOK, status)

	status, env := h.do(t, http.MethodGet, "/admin/course/"+course.ID.String()+"/chapters", tok, browserUA, nil)
	require.Equal(t, http.StatusOK, status)
	var chapters []courseModels.Chapter
	require.NoError(t, json.Unmarshal(env.Data, &chapters))
	require.Len(t, chapters, 2)
	assert.Equal(t, ids[0], chapters[0].ID)
	assert.Equal(t, 1, chapters[0].Position)
	assert.Equal(t, ids[2], chapters[1].ID)
	assert.Equal(t, 2, chapters[1].Position)

	// Partial reorder set is rejected.
	status, _ = h.do(t, http.MethodPut, "/admin/course/"+course.ID.String()+"/chapters/reorder", tok, browserUA,
		map[string][]string{"ids": {ids[2].String()}})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do(t, http.MethodPut, "/admin/course/"+course.ID.String()+"/chapters/reorder", tok, browserUA,
		map[string][]string{"ids": {ids[2].String(), ids[0].String()}})
	assert.Equal(t, http.StatusOK, status)

	// Validation failures use the 422 envelope.
	status, env = h.do(t, http.MethodPost, "/admin/course/"+course.ID.String()+"/chapter", tok, browserUA, map[string]string{"title": "<b>"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, string(env.Data), "title")

	status, _ = h.do(t, http.MethodDelete, "/admin/chapter/not-a-uuid", tok, browserUA, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPublicCatalog(t *testing.T) {
	h := newHarness(t, relaxedRules())
	published := testutil.SeedCourse(t, h.db, h.admin.ID, courseModels.StatusPublished, 10)
	draft := testutil.SeedCourse(t, h.db, h.admin.ID, courseModels.StatusDraft, 10)

	status, env := h.do(t, http.MethodGet, "/course/list", "", browserUA, nil)
	require.Equal(t, http.StatusOK, status)
	var courses []courseModels.Course
	require.NoError(t, json.Unmarshal(env.Data, &courses))
	require.Len(t, courses, 1)
	assert.Equal(t, published.ID, courses[0].ID)

	status, _ = h.do(t, http.MethodGet, "/course/"+published.Slug, "", browserUA, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = h.do(t, http.MethodGet, "/course/"+draft.Slug, "", browserUA, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCheckoutRoute(t *testing.T) {
	h := newHarness(t, relaxedRules())
	tok := token(t, h.user)
	course := testutil.SeedCourse(t, h.db, h.admin.ID, courseModels.StatusPublished, 100)
	path := "/course/" + course.ID.String() + "/checkout"

	status, env := h.do(t, http.MethodPost, path, tok, browserUA, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Contains(t, string(env.Data), "https://pay.example/session")

	status, env = h.do(t, http.MethodGet, "/course/"+course.ID.String()+"/enrollment", tok, browserUA, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"enrolled":false,"status":"Pending"}`, string(env.Data))

	require.NoError(t, h.db.Model(&courseModels.Enrollment{}).
		Where("course_id = ? AND user_id = ?", course.ID, h.user.ID).
		Update("status", courseModels.EnrollmentCompleted).Error)

	status, env = h.do(t, http.MethodPost, path, tok, browserUA, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "You are already enrolled in this course", env.Message)

	status, env = h.do(t, http.MethodGet, "/user/enrollments", tok, browserUA, nil)
	require.Equal(t, http.StatusOK, status)
	var enrollments []courseModels.Enrollment
	require.NoError(t, json.Unmarshal(env.Data, &enrollments))
	assert.Len(t, enrollments, 1)

	status, _ = h.do(t, http.MethodPost, "/course/"+uuid.NewString()+"/checkout", tok, browserUA, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCheckoutIsRateLimitedAndBotChecked(t *testing.T) {
	rules := relaxedRules()
	rules.Enrollment.Max = 2
	h := newHarness(t, rules)
	tok := token(t, h.user)
	course := testutil.SeedCourse(t, h.db, h.admin.ID, courseModels.StatusPublished, 100)
	path := "/course/" + course.ID.String() + "/checkout"

	status, _ := h.do(t, http.MethodPost, path, tok, "curl/8.4.0", nil)
	assert.Equal(t, http.StatusForbidden, status)

	for i := 0; i < 2; i++ {
		status, _ = h.do(t, http.MethodPost, path, tok, browserUA, nil)
		assert.Equal(t, http.StatusOK, status)
	}
	status, env := h.do(t, http.MethodPost, path, tok, browserUA, nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.False(t, env.Status)
}
