package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/civicpulse-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	outboxRetentionDays = 30
	dlqRetentionDays    = 90
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type OutboxRetentionJobParams struct {
	Logger           *logger.Logger
	DB               txRunner
	Outbox           publishedOutboxRepo
	DLQ              dlqRetentionRepo
	RetentionDays    int
	DLQRetentionDays int
}

type publishedOutboxRepo interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

type dlqRetentionRepo interface {
	DeleteBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob prunes published outbox rows and old DLQ entries.
// Unpublished rows are never touched.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if params.DLQ == nil {
		return nil, fmt.Errorf("dlq repository required")
	}
	retention := params.RetentionDays
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	dlqRetention := params.DLQRetentionDays
	if dlqRetention <= 0 {
		dlqRetention = dlqRetentionDays
	}
	return &outboxRetentionJob{
		logg:         params.Logger,
		db:           params.DB,
		outbox:       params.Outbox,
		dlq:          params.DLQ,
		retention:    retention,
		dlqRetention: dlqRetention,
		now:          time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	db           txRunner
	outbox       publishedOutboxRepo
	dlq          dlqRetentionRepo
	retention    int
	dlqRetention int
	now          func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.AddDate(0, 0, -j.retention)
	dlqCutoff := now.AddDate(0, 0, -j.dlqRetention)
	var published, dead int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if published, err = j.outbox.DeletePublishedBefore(tx, cutoff); err != nil {
			return err
		}
		dead, err = j.dlq.DeleteBefore(tx, dlqCutoff)
		return err
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":           cutoff,
		"dlq_cutoff":       dlqCutoff,
		"published_pruned": published,
		"dlq_pruned":       dead,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}
