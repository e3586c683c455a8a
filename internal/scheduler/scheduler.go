package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/postpilot/postpilot/internal/model"
	"github.com/postpilot/postpilot/internal/provider"
	"github.com/postpilot/postpilot/internal/repository"
	"go.uber.org/zap"
)

// Config is the full retry/backoff policy of the pipeline, injected at
// construction so tests can run a deterministic policy.
type Config struct {
	TickInterval    time.Duration
	BatchSize       int
	WorkerCount     int
	MaxAttempts     int
	BackoffBase     time.Duration
	BackoffMaxShift int
	PublishTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = 5 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffMaxShift <= 0 {
		c.BackoffMaxShift = 8
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 15 * time.Second
	}
	return c
}

// EventPublisher is the slice of the bus the scheduler needs.
type EventPublisher interface {
	Publish(ctx context.Context, name string, payload any)
}

// PublisherLookup resolves a provider name to its publisher.
type PublisherLookup interface {
	Lookup(name string) (provider.Publisher, error)
}

// Scheduler polls for due jobs and drives each one to a terminal state:
// bounded retries with capped exponential backoff, post-level status
// aggregation after every state change, domain events only on final
// success or permanent failure.
type Scheduler struct {
	cfg       Config
	jobs      repository.JobsRepository
	targets   repository.TargetsRepository
	posts     repository.PostsRepository
	accounts  repository.AccountsRepository
	outbox    repository.OutboxRepository
	providers PublisherLookup
	bus       EventPublisher
	log       *zap.Logger

	locks *postLocks

	// now is swapped out by tests.
	now func() time.Time
}

func New(
	cfg Config,
	jobs repository.JobsRepository,
	targets repository.TargetsRepository,
	posts repository.PostsRepository,
	accounts repository.AccountsRepository,
	outbox repository.OutboxRepository,
	providers PublisherLookup,
	eventBus EventPublisher,
	log *zap.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:       cfg.withDefaults(),
		jobs:      jobs,
		targets:   targets,
		posts:     posts,
		accounts:  accounts,
		outbox:    outbox,
		providers: providers,
		bus:       eventBus,
		log:       log,
		locks:     newPostLocks(),
		now:       time.Now,
	}
}

// Run blocks until ctx is cancelled. The tick body runs inline in the
// loop: a tick that outlasts the interval delays the next tick instead
// of overlapping it, so a job is never double-processed.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.log.Info("scheduler started",
		zap.Duration("tick_interval", s.cfg.TickInterval),
		zap.Int("batch_size", s.cfg.BatchSize),
		zap.Int("max_attempts", s.cfg.MaxAttempts))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick selects up to BatchSize due jobs, oldest due first, and fans them
// out to the worker pool. Failures are contained per job; the tick never
// returns an error to its caller.
func (s *Scheduler) Tick(ctx context.Context) {
	due, err := s.jobs.ListDue(ctx, s.now(), s.cfg.BatchSize)
	if err != nil {
		s.log.Error("list due jobs", zap.Error(err))
		return
	}
	if len(due) == 0 {
		return
	}

	jobCh := make(chan model.Job)

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				s.execute(ctx, job)
			}
		}()
	}

	for _, job := range due {
		jobCh <- job
	}
	close(jobCh)
	wg.Wait()
}
