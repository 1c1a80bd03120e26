package enrollment

import (
	"context"
	"sync"
	"testing"

	"coursehub/apperr"
	"coursehub/database"
	"coursehub/database/testutil"
	"coursehub/logger"
	courseModels "coursehub/models/course"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func begin(t *testing.T, svc *Service, db *gorm.DB, course *courseModels.Course, userID uuid.UUID) (*courseModels.Enrollment, bool) {
	t.Helper()
	var (
		enr     *courseModels.Enrollment
		already bool
	)
	err := database.Transact(context.Background(), db, func(tx *gorm.DB) error {
		var err error
		enr, already, err = svc.BeginPending(tx, course, userID)
		return err
	})
	require.NoError(t, err)
	return enr, already
}

func complete(svc *Service, db *gorm.DB, id, courseID, userID uuid.UUID) (*courseModels.Enrollment, bool, error) {
	var (
		enr     *courseModels.Enrollment
		changed bool
	)
	err := database.Transact(context.Background(), db, func(tx *gorm.DB) error {
		var err error
		enr, changed, err = svc.Complete(tx, id, courseID, userID)
		return err
	})
	return enr, changed, err
}

func TestRepeatedCheckoutRefreshesAmount(t *testing.T) {
	db := testutil.DB(t)
	svc := NewService(db, logger.Nop())
	user := testutil.SeedUser(t, db, "u1@example.com")
	course := testutil.SeedCourse(t, db, user.ID, courseModels.StatusPublished, 100)

	first, already := begin(t, svc, db, course, user.ID)
	assert.False(t, already)
	assert.Equal(t, courseModels.EnrollmentPending, first.Status)
	assert.True(t, first.Amount.Equal(decimal.NewFromInt(100)))

	require.NoError(t, db.Model(course).Update("price", decimal.NewFromInt(120)).Error)
	course.Price = decimal.NewFromInt(120)

	second, already := begin(t, svc, db, course, user.ID)
	assert.False(t, already)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, courseModels.EnrollmentPending, second.Status)
	assert.True(t, second.Amount.Equal(decimal.NewFromInt(120)), "amount %s", second.Amount)

	var count int64
	require.NoError(t, db.Model(&courseModels.Enrollment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCompletedIsAbsorbing(t *testing.T) {
	db := testutil.DB(t)
	svc := NewService(db, logger.Nop())
	user := testutil.SeedUser(t, db, "u2@example.com")
	course := testutil.SeedCourse(t, db, user.ID, courseModels.StatusPublished, 50)

	enr, _ := begin(t, svc, db, course, user.ID)

	done, changed, err := complete(svc, db, enr.ID, course.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, courseModels.EnrollmentCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	// A second delivery of the same completion is a no-op success.
	again, changed, err := complete(svc, db, enr.ID, course.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, courseModels.EnrollmentCompleted, again.Status)

	// A later checkout reports the enrollment and leaves it untouched.
	course.Price = decimal.NewFromInt(999)
	after, already := begin(t, svc, db, course, user.ID)
	assert.True(t, already)
	assert.Equal(t, courseModels.EnrollmentCompleted, after.Status)
	assert.True(t, after.Amount.Equal(decimal.NewFromInt(50)))

	enrolled, err := svc.IsEnrolled(context.Background(), course.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, enrolled)
}

func TestCompleteClassifiesFailures(t *testing.T) {
	db := testutil.DB(t)
	svc := NewService(db, logger.Nop())
	user := testutil.SeedUser(t, db, "u3@example.com")
	other := testutil.SeedUser(t, db, "u4@example.com")
	course := testutil.SeedCourse(t, db, user.ID, courseModels.StatusPublished, 10)

	enr, _ := begin(t, svc, db, course, user.ID)

	_, _, err := complete(svc, db, uuid.New(), course.ID, user.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, _, err = complete(svc, db, enr.ID, course.ID, other.ID)
	assert.True(t, apperr.Is(err, apperr.KindIdentityMismatch))

	_, _, err = complete(svc, db, enr.ID, uuid.New(), user.ID)
	assert.True(t, apperr.Is(err, apperr.KindIdentityMismatch))

	status, err := svc.Status(context.Background(), course.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, courseModels.EnrollmentPending, status.Status)
}

func TestStatusAbsent(t *testing.T) {
	db := testutil.DB(t)
	svc := NewService(db, logger.Nop())

	status, err := svc.Status(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, status)

	enrolled, err := svc.IsEnrolled(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.False(t, enrolled)
}

func TestUniquePairAtStorageLevel(t *testing.T) {
	db := testutil.DB(t)
	user := testutil.SeedUser(t, db, "u5@example.com")
	course := testutil.SeedCourse(t, db, user.ID, courseModels.StatusPublished, 10)

	require.NoError(t, db.Create(&courseModels.Enrollment{CourseID: course.ID, UserID: user.ID}).Error)
	err := db.Create(&courseModels.Enrollment{CourseID: course.ID, UserID: user.ID}).Error
	assert.True(t, database.IsDuplicateKey(err), "got %v", err)
}

func TestConcurrentBeginPendingSingleRow(t *testing.T) {
	db := testutil.DB(t)
	svc := NewService(db, logger.Nop())
	user := testutil.SeedUser(t, db, "u6@example.com")
	course := testutil.SeedCourse(t, db, user.ID, courseModels.StatusPublished, 10)

	const n = 8
	ids := make(chan uuid.UUID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := database.Transact(context.Background(), db, func(tx *gorm.DB) error {
				enr, _, err := svc.BeginPending(tx, course, user.ID)
				if err == nil {
					ids <- enr.ID
				}
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	close(ids)

	var first uuid.UUID
	for id := range ids {
		if first == uuid.Nil {
			first = id
		}
		assert.Equal(t, first, id)
	}

	var count int64
	require.NoError(t, db.Model(&courseModels.Enrollment{}).Where("course_id = ? AND user_id = ?", course.ID, user.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestListForUserOnlyCompleted(t *testing.T) {
	db := testutil.DB(t)
	svc := NewService(db, logger.Nop())
	user := testutil.SeedUser(t, db, "u7@example.com")
	paid := testutil.SeedCourse(t, db, user.ID, courseModels.StatusPublished, 10)
	pending := testutil.SeedCourse(t, db, user.ID, courseModels.StatusPublished, 20)

	enr, _ := begin(t, svc, db, paid, user.ID)
	begin(t, svc, db, pending, user.ID)
	_, _, err := complete(svc, db, enr.ID, paid.ID, user.ID)
	require.NoError(t, err)

	list, err := svc.ListForUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, paid.ID, list[0].CourseID)
	require.NotNil(t, list[0].Course)
	assert.Equal(t, paid.Slug, list[0].Course.Slug)
}
