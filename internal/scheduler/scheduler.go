package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"no-lights-dtek/internal/checker"
)

// Batcher runs one full pass over all subscribers.
type Batcher interface {
	RunBatch(ctx context.Context) (checker.BatchStats, error)
}

// Scheduler periodically runs subscriber batches. Runs never overlap: a batch
// that outlasts the interval delays the next one instead of racing it.
type Scheduler struct {
	scheduler *gocron.Scheduler
	batcher   Batcher
	interval  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler.
func New(batcher Batcher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		batcher:   batcher,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the batch job, running it once right away.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.run)
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	log.Printf("[scheduler] started (interval=%s)", s.interval)
	return nil
}

func (s *Scheduler) run() {
	log.Println("[scheduler] running subscriber batch")
	if _, err := s.batcher.RunBatch(s.ctx); err != nil {
		log.Printf("[scheduler] batch failed: %v", err)
	}
}

// Stop interrupts a running batch and cancels future ones.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
