package workers

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/signin-dev/signin/internal/models"
)

// StartLockSweeper schedules UnlockExpired on a cron expression and starts the scheduler.
// The caller stops it with the returned cron's Stop method.
func StartLockSweeper(db *gorm.DB, schedule string, logger zerolog.Logger) (*cron.Cron, error) {
	// Standard 5-field format: minute hour day-of-month month day-of-week
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser))

	_, err := c.AddFunc(schedule, func() {
		if _, err := UnlockExpired(db, time.Now(), logger); err != nil {
			logger.Error().Err(err).Msg("Lock sweep failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid lock sweep schedule %q: %w", schedule, err)
	}

	// Run immediately on startup, then on schedule
	if _, err := UnlockExpired(db, time.Now(), logger); err != nil {
		logger.Error().Err(err).Msg("Initial lock sweep failed")
	}

	c.Start()
	logger.Info().Str("schedule", schedule).Msg("Lock sweeper started")
	return c, nil
}

// UnlockExpired reactivates locked accounts whose lock window has passed
func UnlockExpired(db *gorm.DB, now time.Time, logger zerolog.Logger) (int64, error) {
	result := db.Model(&models.User{}).
		Where("status = ? AND locked_until IS NOT NULL AND locked_until <= ?", models.StatusLocked, now).
		Updates(map[string]interface{}{
			"status":          models.StatusActive,
			"locked_until":    nil,
			"failed_attempts": 0,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to unlock accounts: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		logger.Info().Int64("unlocked", result.RowsAffected).Msg("Unlocked expired account locks")
	} else {
		logger.Debug().Msg("No expired account locks")
	}
	return result.RowsAffected, nil
}
