package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/signin-dev/signin/internal/models"
	"github.com/signin-dev/signin/internal/tasks"
)

// LockoutPolicy decides when repeated failures lock an account
type LockoutPolicy struct {
	Threshold int           // Consecutive failures before locking, <= 0 disables locking
	Duration  time.Duration // How long a lock lasts
}

// HandleRecordLoginAttempt is the asynq handler for TypeRecordLoginAttempt
func HandleRecordLoginAttempt(ctx context.Context, t *asynq.Task, db *gorm.DB, policy LockoutPolicy, logger zerolog.Logger) error {
	payload, err := tasks.ParseLoginAttemptPayload(t)
	if err != nil {
		// Malformed payloads will never succeed
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return RecordLoginAttempt(ctx, db, payload, policy, logger)
}

// RecordLoginAttempt writes the audit row and updates the account's failure counter and lock state
func RecordLoginAttempt(ctx context.Context, db *gorm.DB, p tasks.LoginAttemptPayload, policy LockoutPolicy, logger zerolog.Logger) error {
	at := p.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempt := models.LoginAttempt{
			UserID:   p.UserID,
			Email:    models.NormalizeEmail(p.Email),
			Success:  p.Success,
			ClientIP: p.ClientIP,
		}
		if err := tx.Create(&attempt).Error; err != nil {
			return fmt.Errorf("failed to record login attempt: %w", err)
		}

		if p.UserID == "" {
			return nil
		}

		var user models.User
		if err := models.FindByID(tx, p.UserID, &user); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Warn().Str("user_id", p.UserID).Msg("Login attempt for deleted user")
				return nil
			}
			return fmt.Errorf("failed to load user: %w", err)
		}

		updates := map[string]interface{}{}
		if p.Success {
			updates["failed_attempts"] = 0
			updates["last_login_at"] = at
		} else {
			failures := user.FailedAttempts + 1
			updates["failed_attempts"] = failures

			if policy.Threshold > 0 && failures >= policy.Threshold && user.Status == models.StatusActive {
				lockedUntil := at.Add(policy.Duration)
				updates["status"] = models.StatusLocked
				updates["locked_until"] = lockedUntil

				logger.Warn().
					Str("user_id", user.ID).
					Int("failed_attempts", failures).
					Time("locked_until", lockedUntil).
					Msg("Account locked after repeated failures")
			}
		}

		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return nil
	})
}
