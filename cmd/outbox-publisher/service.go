package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/henriqueponts/labstore-sub002/pkg/config"
	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
	"github.com/henriqueponts/labstore-sub002/pkg/logger"
	"github.com/henriqueponts/labstore-sub002/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	defaultRetentionDays  = 30
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
	pruneInterval         = time.Hour
)

type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeParked
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
}

// Service drains the outbox table onto Pub/Sub. Rows are claimed with
// SKIP LOCKED inside one transaction per batch, so several publishers can run
// side by side.
type Service struct {
	logg             *logger.Logger
	db               dbClient
	repo             outboxRepository
	pubsub           pubSubClient
	registry         registryResolver
	publisherFactory publisherFactory

	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
	retention    time.Duration

	lastPrune time.Time
	now       func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	var err error
	if params.Config == nil {
		err = multierr.Append(err, errors.New("config is required"))
	}
	if params.Logger == nil {
		err = multierr.Append(err, errors.New("logger is required"))
	}
	if params.DB == nil {
		err = multierr.Append(err, errors.New("database client is required"))
	}
	if params.PubSub == nil {
		err = multierr.Append(err, errors.New("pubsub client is required"))
	}
	if params.Repository == nil {
		err = multierr.Append(err, errors.New("outbox repository is required"))
	}
	if params.Registry == nil {
		err = multierr.Append(err, errors.New("event registry is required"))
	}
	if err != nil {
		return nil, err
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			p := params.PubSub.Publisher(topic)
			if p == nil {
				return nil
			}
			return gcpPublisher{p}
		}
	}

	cfg := params.Config.Outbox
	return &Service{
		logg:             params.Logger,
		db:               params.DB,
		repo:             params.Repository,
		pubsub:           params.PubSub,
		registry:         params.Registry,
		publisherFactory: factory,
		batchSize:        orDefault(cfg.BatchSize, defaultBatchSize),
		maxAttempts:      orDefault(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval:     orDefaultDuration(time.Duration(cfg.PollIntervalMS)*time.Millisecond, defaultPollInterval),
		retention:        time.Duration(orDefault(cfg.RetentionDays, defaultRetentionDays)) * 24 * time.Hour,
		now:              time.Now,
	}, nil
}

// Run polls until ctx is canceled. An empty batch waits one poll interval; a
// failed batch backs off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}

	backoff := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := s.drainBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox batch failed", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			if err := sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}
		backoff = s.pollInterval
		s.maybePrune(ctx)

		if n > 0 {
			continue
		}
		if err := sleep(ctx, withJitter(s.pollInterval)); err != nil {
			return err
		}
	}
}

// drainBatch claims up to batchSize rows and dispatches each one. It returns
// the number of rows claimed.
func (s *Service) drainBatch(ctx context.Context) (int, error) {
	claimed := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
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
	return claimed, err
}

// dispatch publishes one row and records the result. Only bookkeeping errors
// are returned; publish failures are written to the row.
func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	})

	result, pubErr := s.publish(logCtx, row)
	switch result {
	case outcomePublished:
		if err := s.repo.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		s.logg.Info(logCtx, "outbox event published")
	case outcomeRetry:
		s.logg.Warn(s.logg.WithField(logCtx, "error", pubErr.Error()), "outbox publish failed, will retry")
		if err := s.repo.MarkFailedTx(tx, row.ID, pubErr); err != nil {
			return fmt.Errorf("mark failed %s: %w", row.ID, err)
		}
	case outcomeParked:
		// Parked rows keep payload and last_error for a manual replay.
		s.logg.Warn(s.logg.WithField(logCtx, "error", pubErr.Error()), "outbox event parked")
		if err := s.repo.MarkTerminalTx(tx, row.ID, pubErr, s.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", row.ID, err)
		}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, row models.OutboxEvent) (outcome, error) {
	resolved, err := s.registry.Resolve(row)
	if err != nil {
		return outcomeParked, err
	}

	pub := s.publisherFactory(resolved.Topic)
	if pub == nil {
		return outcomeParked, registry.Permanent("no publisher for topic %s", resolved.Topic)
	}
	msg := &gcppubsub.Message{
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	res := pub.Publish(publishCtx, msg)
	if res == nil {
		return outcomeParked, registry.Permanent("publisher returned no result for topic %s", resolved.Topic)
	}
	if _, err := res.Get(publishCtx); err != nil {
		if registry.IsPermanent(err) {
			return outcomeParked, err
		}
		if row.AttemptCount+1 >= s.maxAttempts {
			return outcomeParked, fmt.Errorf("max publish attempts reached: %w", err)
		}
		return outcomeRetry, err
	}
	return outcomePublished, nil
}

// maybePrune deletes published rows past the retention window at most once
// per pruneInterval. Failures are logged and retried on the next window.
func (s *Service) maybePrune(ctx context.Context) {
	now := s.now()
	if !s.lastPrune.IsZero() && now.Sub(s.lastPrune) < pruneInterval {
		return
	}
	s.lastPrune = now

	cutoff := now.UTC().Add(-s.retention)
	var deleted int64
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.DeletePublishedBefore(tx, cutoff)
		deleted = rows
		return err
	})
	logCtx := s.logg.WithFields(ctx, map[string]any{"cutoff": cutoff, "rows_deleted": deleted})
	if err != nil {
		s.logg.Error(logCtx, "outbox retention cleanup failed", err)
		return
	}
	if deleted > 0 {
		s.logg.Info(logCtx, "outbox retention cleanup complete")
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, limit time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, limit)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func orDefaultDuration(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
