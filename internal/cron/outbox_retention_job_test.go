package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/civicpulse-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOutboxRetentionJobUsesBothCutoffs(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	outbox := &fakeRetentionRepo{}
	dlq := &fakeRetentionRepo{}
	job := newOutboxRetentionJob(t, outbox, dlq)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.AddDate(0, 0, -outboxRetentionDays), outbox.cutoff)
	assert.Equal(t, now.AddDate(0, 0, -dlqRetentionDays), dlq.cutoff)
	assert.Equal(t, 1, outbox.called)
	assert.Equal(t, 1, dlq.called)
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	outbox := &fakeRetentionRepo{err: errors.New("boom")}
	dlq := &fakeRetentionRepo{}
	job := newOutboxRetentionJob(t, outbox, dlq)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outbox retention")
	assert.Zero(t, dlq.called)
}

func TestNewOutboxRetentionJobRequiresDependencies(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: testLogger()})
	assert.Error(t, err)
}

func newOutboxRetentionJob(t *testing.T, outbox, dlq *fakeRetentionRepo) *outboxRetentionJob {
	t.Helper()
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger: testLogger(),
		DB:     passthroughTx{},
		Outbox: outbox,
		DLQ:    dlq,
	})
	require.NoError(t, err)
	job, ok := jobIface.(*outboxRetentionJob)
	require.True(t, ok, "expected outboxRetentionJob, got %T", jobIface)
	return job
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

type fakeRetentionRepo struct {
	cutoff time.Time
	called int
	err    error
}

func (f *fakeRetentionRepo) DeletePublishedBefore(_ *gorm.DB, cutoff time.Time) (int64, error) {
	return f.record(cutoff)
}

func (f *fakeRetentionRepo) DeleteBefore(_ *gorm.DB, cutoff time.Time) (int64, error) {
	return f.record(cutoff)
}

func (f *fakeRetentionRepo) record(cutoff time.Time) (int64, error) {
	f.called++
	f.cutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
