package workers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/signin-dev/signin/internal/database"
	"github.com/signin-dev/signin/internal/models"
	"github.com/signin-dev/signin/internal/tasks"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "workers.sqlite"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "hash", Name: "Test", Status: models.StatusActive}
	require.NoError(t, db.Create(user).Error)
	return user
}

func reload(t *testing.T, db *gorm.DB, id string) models.User {
	t.Helper()
	var user models.User
	require.NoError(t, models.FindByID(db, id, &user))
	return user
}

func TestRecordLoginAttempt_LocksAfterThreshold(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db, "a@b.com")
	policy := LockoutPolicy{Threshold: 3, Duration: 15 * time.Minute}
	now := time.Now()

	for i := 0; i < 2; i++ {
		require.NoError(t, RecordLoginAttempt(context.Background(), db, tasks.LoginAttemptPayload{
			UserID: user.ID, Email: user.Email, Timestamp: now,
		}, policy, zerolog.Nop()))
	}
	got := reload(t, db, user.ID)
	assert.Equal(t, 2, got.FailedAttempts)
	assert.Equal(t, models.StatusActive, got.Status)

	require.NoError(t, RecordLoginAttempt(context.Background(), db, tasks.LoginAttemptPayload{
		UserID: user.ID, Email: user.Email, Timestamp: now,
	}, policy, zerolog.Nop()))

	got = reload(t, db, user.ID)
	assert.Equal(t, models.StatusLocked, got.Status)
	require.NotNil(t, got.LockedUntil)
	assert.True(t, got.IsLocked(now))
	assert.False(t, got.IsLocked(now.Add(time.Hour)))

	var attempts int64
	require.NoError(t, db.Model(&models.LoginAttempt{}).Count(&attempts).Error)
	assert.Equal(t, int64(3), attempts)
}

func TestRecordLoginAttempt_SuccessResetsCounter(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db, "a@b.com")
	policy := LockoutPolicy{Threshold: 5, Duration: time.Minute}

	require.NoError(t, RecordLoginAttempt(context.Background(), db, tasks.LoginAttemptPayload{
		UserID: user.ID, Email: user.Email,
	}, policy, zerolog.Nop()))
	require.NoError(t, RecordLoginAttempt(context.Background(), db, tasks.LoginAttemptPayload{
		UserID: user.ID, Email: user.Email, Success: true,
	}, policy, zerolog.Nop()))

	got := reload(t, db, user.ID)
	assert.Zero(t, got.FailedAttempts)
	assert.NotNil(t, got.LastLoginAt)
}

func TestRecordLoginAttempt_UnknownAccount(t *testing.T) {
	db := setupDB(t)

	err := RecordLoginAttempt(context.Background(), db, tasks.LoginAttemptPayload{
		Email: "Nobody@B.com",
	}, LockoutPolicy{Threshold: 1}, zerolog.Nop())
	require.NoError(t, err)

	var attempt models.LoginAttempt
	require.NoError(t, db.First(&attempt).Error)
	assert.Equal(t, "nobody@b.com", attempt.Email)
	assert.Empty(t, attempt.UserID)
}

func TestHandleRecordLoginAttempt_MalformedPayloadSkipsRetry(t *testing.T) {
	db := setupDB(t)

	err := HandleRecordLoginAttempt(context.Background(), asynq.NewTask(tasks.TypeRecordLoginAttempt, []byte("nope")),
		db, LockoutPolicy{}, zerolog.Nop())
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestUnlockExpired(t *testing.T) {
	db := setupDB(t)
	now := time.Now()
	expired := now.Add(-time.Minute)
	active := now.Add(time.Hour)

	stale := createUser(t, db, "stale@b.com")
	require.NoError(t, db.Model(stale).Updates(map[string]interface{}{
		"status": models.StatusLocked, "locked_until": expired, "failed_attempts": 5,
	}).Error)
	fresh := createUser(t, db, "fresh@b.com")
	require.NoError(t, db.Model(fresh).Updates(map[string]interface{}{
		"status": models.StatusLocked, "locked_until": active,
	}).Error)
	banned := createUser(t, db, "banned@b.com")
	require.NoError(t, db.Model(banned).Update("status", models.StatusBanned).Error)

	n, err := UnlockExpired(db, now, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got := reload(t, db, stale.ID)
	assert.Equal(t, models.StatusActive, got.Status)
	assert.Nil(t, got.LockedUntil)
	assert.Zero(t, got.FailedAttempts)
	assert.Equal(t, models.StatusLocked, reload(t, db, fresh.ID).Status)
	assert.Equal(t, models.StatusBanned, reload(t, db, banned.ID).Status)
}

func TestStartLockSweeper_InvalidSchedule(t *testing.T) {
	db := setupDB(t)

	_, err := StartLockSweeper(db, "every now and then", zerolog.Nop())
	assert.ErrorContains(t, err, "invalid lock sweep schedule")
}

func TestStartLockSweeper_RunsOnStartup(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db, "a@b.com")
	require.NoError(t, db.Model(user).Updates(map[string]interface{}{
		"status": models.StatusLocked, "locked_until": time.Now().Add(-time.Second),
	}).Error)

	c, err := StartLockSweeper(db, "*/5 * * * *", zerolog.Nop())
	require.NoError(t, err)
	<-c.Stop().Done()

	assert.Equal(t, models.StatusActive, reload(t, db, user.ID).Status)
}
