package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	// Login audit tasks
	TypeRecordLoginAttempt = "auth:record_attempt"
)

// LoginAttemptPayload describes one authentication attempt against the backend
type LoginAttemptPayload struct {
	UserID    string    `json:"user_id,omitempty"` // Empty when the email matched no account
	Email     string    `json:"email"`
	Success   bool      `json:"success"`
	ClientIP  string    `json:"client_ip,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordLoginAttemptTask creates a task that persists a login attempt and applies the lockout policy
func NewRecordLoginAttemptTask(p LoginAttemptPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeRecordLoginAttempt, payload, asynq.MaxRetry(5)), nil
}

// ParseLoginAttemptPayload parses task payload from Asynq task
func ParseLoginAttemptPayload(task *asynq.Task) (LoginAttemptPayload, error) {
	var payload LoginAttemptPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
