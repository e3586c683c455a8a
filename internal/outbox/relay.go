package outbox

import (
	"context"
	"time"

	"github.com/postpilot/postpilot/internal/repository"
	"go.uber.org/zap"
)

// EventWriter is the Kafka-facing side of the relay; a fake stands in
// for it in tests.
type EventWriter interface {
	Write(ctx context.Context, topic, key string, value []byte) error
}

// Relay ships unpublished outbox rows to Kafka and stamps them
// published. Delivery is at-least-once: a crash between write and stamp
// re-sends the row, so consumers dedupe on aggregate id.
type Relay struct {
	repo   repository.OutboxRepository
	writer EventWriter
	log    *zap.Logger

	PollInterval time.Duration
	BatchSize    int
}

func NewRelay(repo repository.OutboxRepository, writer EventWriter, log *zap.Logger) *Relay {
	return &Relay{
		repo:         repo,
		writer:       writer,
		log:          log,
		PollInterval: time.Second,
		BatchSize:    100,
	}
}

// Run blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	if r.PollInterval <= 0 {
		r.PollInterval = time.Second
	}
	if r.BatchSize <= 0 {
		r.BatchSize = 100
	}

	ticker := time.NewTicker(r.PollInterval)
	defer ticker.Stop()

	r.log.Info("outbox relay started",
		zap.Duration("poll_interval", r.PollInterval),
		zap.Int("batch_size", r.BatchSize))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

// drain ships one batch. Rows that fail to write stay unpublished and
// are retried next poll.
func (r *Relay) drain(ctx context.Context) {
	rows, err := r.repo.ListUnpublished(ctx, r.BatchSize)
	if err != nil {
		r.log.Error("list outbox", zap.Error(err))
		return
	}
	if len(rows) == 0 {
		return
	}

	shipped := make([]int64, 0, len(rows))
	for _, row := range rows {
		if err := r.writer.Write(ctx, row.Topic, row.AggregateID, row.Payload); err != nil {
			r.log.Error("write outbox event",
				zap.Int64("id", row.ID),
				zap.String("topic", row.Topic),
				zap.Error(err))
			continue
		}
		shipped = append(shipped, row.ID)
	}

	if len(shipped) == 0 {
		return
	}
	if err := r.repo.MarkPublished(ctx, shipped, time.Now()); err != nil {
		r.log.Error("mark outbox published", zap.Error(err))
		return
	}

	r.log.Debug("outbox drained", zap.Int("shipped", len(shipped)))
}
