package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/agrolease/agrolease-backend/pkg/logger"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultDLQRetention    = 90 * 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type publishedPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type deadLetterPruner interface {
	DeleteBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger          *logger.Logger
	DB              txRunner
	Outbox          publishedPruner
	DLQ             deadLetterPruner
	OutboxRetention time.Duration
	DLQRetention    time.Duration
}

// NewOutboxRetentionJob prunes published outbox rows and old dead letters.
// Pending rows are never touched. DLQ is optional.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Outbox == nil:
		return nil, errors.New("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:            params.Logger,
		db:              params.DB,
		outbox:          params.Outbox,
		dlq:             params.DLQ,
		outboxRetention: params.OutboxRetention,
		dlqRetention:    params.DLQRetention,
		now:             time.Now,
	}
	if job.outboxRetention <= 0 {
		job.outboxRetention = defaultOutboxRetention
	}
	if job.dlqRetention <= 0 {
		job.dlqRetention = defaultDLQRetention
	}
	return job, nil
}

type outboxRetentionJob struct {
	logg            *logger.Logger
	db              txRunner
	outbox          publishedPruner
	dlq             deadLetterPruner
	outboxRetention time.Duration
	dlqRetention    time.Duration
	now             func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	outboxCutoff := now.Add(-j.outboxRetention)
	dlqCutoff := now.Add(-j.dlqRetention)

	var published, deadLetters, backlog int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.outbox.DeletePublishedBefore(ctx, tx, outboxCutoff)
		if err != nil {
			return fmt.Errorf("published rows: %w", err)
		}
		published = n
		if j.dlq == nil {
			return nil
		}
		n, err = j.dlq.DeleteBefore(ctx, tx, dlqCutoff)
		if err != nil {
			return fmt.Errorf("dead letters: %w", err)
		}
		deadLetters = n
		backlog, err = j.dlq.Count(ctx, tx)
		if err != nil {
			return fmt.Errorf("count dead letters: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"outbox_cutoff":       outboxCutoff,
		"dlq_cutoff":          dlqCutoff,
		"published_deleted":   published,
		"dead_letter_deleted": deadLetters,
		"dead_letter_backlog": backlog,
	})
	if backlog > 0 {
		j.logg.Warn(logCtx, "outbox dead letters awaiting review")
	}
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}
