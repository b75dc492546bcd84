package outbox

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/libhub/orders-storage/internal/domain/shared"
)

// ProcessorConfig holds configuration for the outbox processor
type ProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultProcessorConfig returns default configuration
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  1 * time.Hour,
	}
}

// Processor is the background sweep behind the per-event flush. It picks up
// rows the inline flush left behind (process crash between commit and flush,
// tenants with no recent events), retries FAILED rows whose backoff elapsed,
// and purges SENT rows past retention.
type Processor struct {
	repo      *GormOutboxRepository
	flusher   *Recorder
	publisher Publisher
	config    ProcessorConfig
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProcessor creates a new outbox processor
func NewProcessor(repo *GormOutboxRepository, flusher *Recorder, publisher Publisher, config ProcessorConfig, logger *zap.Logger) *Processor {
	return &Processor{
		repo:      repo,
		flusher:   flusher,
		publisher: publisher,
		config:    config,
		logger:    logger.Named("outbox-processor"),
	}
}

// Start starts the background processing
func (p *Processor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.processLoop(ctx)

	if p.config.CleanupEnabled {
		p.wg.Add(1)
		go p.cleanupLoop(ctx)
	}

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
	)

	return nil
}

// Stop gracefully stops the processor
func (p *Processor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// processLoop is the main processing loop
func (p *Processor) processLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

// processBatch flushes stranded pending rows per tenant and retries failed
// rows that are due
func (p *Processor) processBatch(ctx context.Context) {
	tenants, err := p.repo.TenantsWithPending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to list tenants with pending rows", zap.Error(err))
		return
	}
	for _, tenant := range tenants {
		if err := p.flusher.Flush(ctx, tenant); err != nil {
			p.logger.Error("background flush failed",
				zap.String("tenant_id", tenant),
				zap.Error(err),
			)
		}
	}

	retryable, err := p.repo.FindRetryable(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find retryable rows", zap.Error(err))
		return
	}
	for _, log := range retryable {
		p.retryRow(ctx, log)
	}
}

// retryRow republishes one failed row
func (p *Processor) retryRow(ctx context.Context, log *shared.OutboxEventLog) {
	if err := p.publisher.Publish(ctx, log); err != nil {
		log.MarkFailed(err.Error())
		if log.IsDead() {
			p.logger.Warn("audit row moved to dead letter",
				zap.String("outbox_id", log.ID.String()),
				zap.String("tenant_id", log.TenantID),
				zap.String("entity_type", string(log.EntityType)),
				zap.String("entity_id", log.EntityID.String()),
				zap.Int("retry_count", log.RetryCount),
				zap.String("last_error", log.LastError),
			)
		}
	} else {
		log.MarkSent()
	}

	if err := p.repo.Update(ctx, log); err != nil {
		p.logger.Error("failed to update outbox row",
			zap.String("outbox_id", log.ID.String()),
			zap.Error(err),
		)
	}
}

// cleanupLoop periodically purges published rows past retention
func (p *Processor) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := p.repo.DeleteSentOlderThan(ctx, time.Now().Add(-p.config.CleanupRetention))
			if err != nil {
				p.logger.Error("outbox cleanup failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				p.logger.Info("outbox cleanup removed published rows", zap.Int64("count", deleted))
			}
		}
	}
}
