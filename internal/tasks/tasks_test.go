package tasks

import (
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordLoginAttemptTask(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	task, err := NewRecordLoginAttemptTask(LoginAttemptPayload{
		UserID:    "01J0000000000000000000000",
		Email:     "a@b.com",
		Success:   false,
		ClientIP:  "10.0.0.1",
		Timestamp: at,
	})
	require.NoError(t, err)
	assert.Equal(t, TypeRecordLoginAttempt, task.Type())

	payload, err := ParseLoginAttemptPayload(task)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", payload.Email)
	assert.False(t, payload.Success)
	assert.True(t, at.Equal(payload.Timestamp))
}

func TestParseLoginAttemptPayload_Invalid(t *testing.T) {
	_, err := ParseLoginAttemptPayload(asynq.NewTask(TypeRecordLoginAttempt, []byte("{")))
	assert.ErrorContains(t, err, "failed to unmarshal payload")
}
