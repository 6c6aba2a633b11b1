package server

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/signin-dev/signin/internal/tasks"
	"github.com/signin-dev/signin/internal/workers"
)

// AttemptRecorder persists login attempts so the lockout policy can act on them
type AttemptRecorder interface {
	Record(ctx context.Context, attempt tasks.LoginAttemptPayload) error
	Close() error
}

// QueueRecorder hands attempts to the worker through asynq
type QueueRecorder struct {
	client *asynq.Client
}

// NewQueueRecorder creates a recorder that enqueues to Redis at addr
func NewQueueRecorder(addr string) *QueueRecorder {
	return &QueueRecorder{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: addr}),
	}
}

func (r *QueueRecorder) Record(ctx context.Context, attempt tasks.LoginAttemptPayload) error {
	task, err := tasks.NewRecordLoginAttemptTask(attempt)
	if err != nil {
		return err
	}
	if _, err := r.client.EnqueueContext(ctx, task, asynq.Queue("default")); err != nil {
		return fmt.Errorf("failed to enqueue login attempt: %w", err)
	}
	return nil
}

func (r *QueueRecorder) Close() error {
	return r.client.Close()
}

// InlineRecorder applies attempts directly when no queue is configured
type InlineRecorder struct {
	db     *gorm.DB
	policy workers.LockoutPolicy
	logger zerolog.Logger
}

func NewInlineRecorder(db *gorm.DB, policy workers.LockoutPolicy, logger zerolog.Logger) *InlineRecorder {
	return &InlineRecorder{db: db, policy: policy, logger: logger}
}

func (r *InlineRecorder) Record(ctx context.Context, attempt tasks.LoginAttemptPayload) error {
	return workers.RecordLoginAttempt(ctx, r.db, attempt, r.policy, r.logger)
}

func (r *InlineRecorder) Close() error {
	return nil
}
