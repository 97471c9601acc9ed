package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"github.com/angelmondragon/civicpulse-backend/pkg/db/models"
	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	"github.com/angelmondragon/civicpulse-backend/pkg/logger"
	"github.com/angelmondragon/civicpulse-backend/pkg/pubsub"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	fallbackBatchSize    = 50
	fallbackPollInterval = 500 * time.Millisecond
	fallbackMaxAttempts  = 10
	publishTimeout       = 15 * time.Second
	backoffCeiling       = 10 * time.Second
	jitterSpread         = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchPendingTx(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID, at time.Time) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
	CountPending(tx *gorm.DB, maxAttempts int) (int64, error)
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

// publisher is the slice of *pubsub.Publisher the drain loop needs.
type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type resultRecorder interface {
	Published(eventType string)
	Retried(eventType string)
	DeadLettered(eventType string)
	Pending(n int64)
}

type discardRecorder struct{}

func (discardRecorder) Published(string)    {}
func (discardRecorder) Retried(string)      {}
func (discardRecorder) DeadLettered(string) {}
func (discardRecorder) Pending(int64)       {}

// errPoison marks rows that can never be published as stored.
var errPoison = errors.New("poison event")

type ServiceParams struct {
	Config        config.OutboxConfig
	Logger        *logger.Logger
	DB            dbClient
	PubSub        interface{ Ping(context.Context) error }
	Publisher     publisher
	Repository    outboxRepository
	DLQRepository dlqRepository
	Metrics       resultRecorder
}

// Service moves committed outbox rows onto the report events topic.
type Service struct {
	logg      *logger.Logger
	db        dbClient
	checks    []dependencyCheck
	publisher publisher
	repo      outboxRepository
	dlq       dlqRepository
	metrics   resultRecorder

	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
	clock        func() time.Time
}

type dependencyCheck struct {
	name string
	ping func(context.Context) error
}

func NewService(params ServiceParams) (*Service, error) {
	required := []struct {
		name    string
		missing bool
	}{
		{"logger", params.Logger == nil},
		{"database client", params.DB == nil},
		{"publisher", params.Publisher == nil},
		{"outbox repository", params.Repository == nil},
		{"dlq repository", params.DLQRepository == nil},
	}
	for _, r := range required {
		if r.missing {
			return nil, fmt.Errorf("outbox publisher: %s is required", r.name)
		}
	}

	s := &Service{
		logg:         params.Logger,
		db:           params.DB,
		publisher:    params.Publisher,
		repo:         params.Repository,
		dlq:          params.DLQRepository,
		metrics:      params.Metrics,
		batchSize:    orDefault(params.Config.BatchSize, fallbackBatchSize),
		maxAttempts:  orDefault(params.Config.MaxAttempts, fallbackMaxAttempts),
		pollInterval: orDefault(params.Config.PollInterval, fallbackPollInterval),
		clock:        func() time.Time { return time.Now().UTC() },
	}
	if s.metrics == nil {
		s.metrics = discardRecorder{}
	}
	s.checks = []dependencyCheck{{name: "database", ping: params.DB.Ping}}
	if params.PubSub != nil {
		s.checks = append(s.checks, dependencyCheck{name: "pubsub", ping: params.PubSub.Ping})
	}
	return s, nil
}

func orDefault[T int | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}

// Run drains the outbox until ctx is canceled. A non-empty batch is followed
// straight away by the next one; batch errors back off exponentially.
func (s *Service) Run(ctx context.Context) error {
	for _, check := range s.checks {
		if err := check.ping(ctx); err != nil {
			s.logg.Error(ctx, check.name+" unreachable", err)
			return fmt.Errorf("%s ping failed: %w", check.name, err)
		}
	}

	delay := backoff{base: s.pollInterval, ceiling: backoffCeiling}
	for ctx.Err() == nil {
		busy, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			err = pause(ctx, delay.grow())
		case busy:
			delay.reset()
			continue
		default:
			delay.reset()
			s.recordBacklog(ctx)
			err = pause(ctx, delay.current())
		}
		if err != nil {
			break
		}
	}
	s.logg.Info(ctx, "outbox publisher stopping")
	return ctx.Err()
}

func (s *Service) recordBacklog(ctx context.Context) {
	n, err := s.repo.CountPending(nil, s.maxAttempts)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "outbox backlog count failed")
		return
	}
	s.metrics.Pending(n)
}

// processBatch handles one batch inside a single transaction so the row
// locks taken by FetchPendingTx cover every publish attempt. It reports
// whether any rows were claimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	claimed := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.FetchPendingTx(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		claimed = len(rows)
		for _, row := range rows {
			if err := s.dispatch(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed > 0, err
}

// dispatch publishes a single row and records the outcome. Only bookkeeping
// failures are returned; publish failures are absorbed into the row state.
func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	ctx = s.logg.WithFields(ctx, rowFields(row))
	eventType := row.EventType.String()

	sendErr := s.send(ctx, row)
	if sendErr == nil {
		if err := s.repo.MarkPublishedTx(tx, row.ID, s.clock()); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		s.metrics.Published(eventType)
		s.logg.Debug(ctx, "outbox event published")
		return nil
	}

	if errors.Is(sendErr, errPoison) {
		return s.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, sendErr)
	}
	if row.AttemptCount+1 >= s.maxAttempts {
		return s.deadLetter(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("gave up after %d attempts: %w", row.AttemptCount+1, sendErr))
	}

	s.logg.Warn(s.logg.WithField(ctx, "error", sendErr.Error()), "outbox publish failed, will retry")
	if err := s.repo.MarkFailedTx(tx, row.ID, sendErr); err != nil {
		return fmt.Errorf("mark failed %s: %w", row.ID, err)
	}
	s.metrics.Retried(eventType)
	return nil
}

func (s *Service) send(ctx context.Context, row models.OutboxEvent) error {
	env, err := envelopeOf(row)
	if err != nil {
		return err
	}
	attrs := pubsub.Attributes(env, row.AggregateID.String())
	attrs["aggregate_type"] = row.AggregateType.String()

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	result := s.publisher.Publish(ctx, &gcppubsub.Message{Data: row.Payload, Attributes: attrs})
	if result == nil {
		return fmt.Errorf("%w: publisher returned no result", errPoison)
	}
	_, err = result.Get(ctx)
	return err
}

// envelopeOf checks that the stored payload is a well formed envelope for
// the row's event type.
func envelopeOf(row models.OutboxEvent) (pubsub.Envelope, error) {
	var env pubsub.Envelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return env, fmt.Errorf("%w: decode envelope: %v", errPoison, err)
	}
	switch {
	case env.EventID == "" || env.EventType == "":
		return env, fmt.Errorf("%w: envelope missing event id or type", errPoison)
	case env.EventType != row.EventType.String():
		return env, fmt.Errorf("%w: envelope type %q does not match row type %q", errPoison, env.EventType, row.EventType)
	}
	return env, nil
}

func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	ctx = s.logg.WithFields(ctx, map[string]any{"error_reason": reason, "error": cause.Error()})
	s.logg.Warn(ctx, "outbox event dead-lettered")

	msg := cause.Error()
	if err := s.dlq.InsertTx(tx, models.OutboxDLQ{
		OutboxID:      row.ID,
		EventID:       row.EventID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount,
		FailedAt:      s.clock(),
	}); err != nil {
		return fmt.Errorf("dead-letter %s: %w", row.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, row.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("retire %s: %w", row.ID, err)
	}
	s.metrics.DeadLettered(row.EventType.String())
	return nil
}

func rowFields(row models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_id":       row.EventID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	return fields
}

// backoff doubles from base up to ceiling. Waits carry up to jitterSpread of
// random slack so several publishers do not poll in lockstep.
type backoff struct {
	base, ceiling, cur time.Duration
}

func (b *backoff) current() time.Duration {
	if b.cur <= 0 {
		b.cur = b.base
	}
	return jittered(b.cur)
}

func (b *backoff) grow() time.Duration {
	b.cur = min(max(b.cur, b.base)*2, b.ceiling)
	return jittered(b.cur)
}

func (b *backoff) reset() { b.cur = b.base }

func jittered(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterSpread)
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// topicPublisher narrows *gcppubsub.Publisher to the publisher interface.
type topicPublisher struct {
	p *gcppubsub.Publisher
}

func (t topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if t.p == nil {
		return nil
	}
	return t.p.Publish(ctx, msg)
}
