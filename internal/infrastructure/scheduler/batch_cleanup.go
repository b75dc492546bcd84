package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BatchCleaner removes stale batch-tracking rows older than the given age.
type BatchCleaner interface {
	Cleanup(ctx context.Context, maxAge time.Duration) (int64, error)
}

// BatchCleanupScheduler periodically removes batch-tracking rows whose batch
// never completed, typically because the final event was lost or suppressed
// as a duplicate.
type BatchCleanupScheduler struct {
	cleaner  BatchCleaner
	interval time.Duration
	maxAge   time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBatchCleanupScheduler creates a new BatchCleanupScheduler
func NewBatchCleanupScheduler(cleaner BatchCleaner, interval, maxAge time.Duration, logger *zap.Logger) *BatchCleanupScheduler {
	return &BatchCleanupScheduler{
		cleaner:  cleaner,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger.Named("batch-cleanup"),
	}
}

// Start starts the cleanup loop
func (s *BatchCleanupScheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("batch tracking cleanup started",
		zap.Duration("interval", s.interval),
		zap.Duration("max_age", s.maxAge),
	)
	return nil
}

// Stop gracefully stops the loop
func (s *BatchCleanupScheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("batch tracking cleanup stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *BatchCleanupScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// RunOnce performs one cleanup pass and returns the number of rows removed.
// Exposed for the admin trigger.
func (s *BatchCleanupScheduler) RunOnce(ctx context.Context) (int64, error) {
	return s.cleaner.Cleanup(ctx, s.maxAge)
}

func (s *BatchCleanupScheduler) runOnce(ctx context.Context) {
	removed, err := s.cleaner.Cleanup(ctx, s.maxAge)
	if err != nil {
		s.logger.Error("batch tracking cleanup failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("removed stale batch tracking rows", zap.Int64("count", removed))
	}
}
