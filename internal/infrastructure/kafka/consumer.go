package kafka

import (
	"context"
	"errors"
	"io"
	"sync"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/libhub/orders-storage/internal/domain/inventory"
	"github.com/libhub/orders-storage/internal/infrastructure/logger"
)

// Dispatcher routes one validated resource event. A nil return acknowledges
// the message; an error leaves it uncommitted for redelivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, evt *inventory.ResourceEvent) error
}

// TopicBinding ties one topic to the resource kind its events describe.
type TopicBinding struct {
	Topic string
	Kind  inventory.ResourceKind
}

// Consumer runs one reader loop per bound topic. Each partition is consumed
// sequentially, preserving per-key ordering; concurrency comes from partitions
// and topics, never from reordering within one.
type Consumer struct {
	brokers    []string
	groupID    string
	bindings   []TopicBinding
	dispatcher Dispatcher
	logger     *zap.Logger

	readers []*kafkago.Reader
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewConsumer creates a consumer over the given topic bindings
func NewConsumer(brokers []string, groupID string, bindings []TopicBinding, dispatcher Dispatcher, log *zap.Logger) *Consumer {
	return &Consumer{
		brokers:    brokers,
		groupID:    groupID,
		bindings:   bindings,
		dispatcher: dispatcher,
		logger:     log.Named("kafka"),
	}
}

// Start launches one reader loop per topic binding
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	for _, binding := range c.bindings {
		reader := kafkago.NewReader(kafkago.ReaderConfig{
			Brokers: c.brokers,
			GroupID: c.groupID,
			Topic:   binding.Topic,
		})
		c.readers = append(c.readers, reader)

		c.wg.Add(1)
		go c.consumeLoop(ctx, reader, binding)

		c.logger.Info("consuming topic",
			zap.String("topic", binding.Topic),
			zap.String("kind", string(binding.Kind)),
			zap.String("group_id", c.groupID),
		)
	}
	return nil
}

// Stop cancels the loops and closes the readers
func (c *Consumer) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	for _, reader := range c.readers {
		if err := reader.Close(); err != nil {
			c.logger.Error("failed to close reader", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("kafka consumer stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// consumeLoop fetches, handles and commits messages for one topic. A message
// is only committed after its handler succeeds; failures leave the offset
// uncommitted so the broker redelivers.
func (c *Consumer) consumeLoop(ctx context.Context, reader *kafkago.Reader, binding TopicBinding) {
	defer c.wg.Done()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			c.logger.Error("failed to fetch message",
				zap.String("topic", binding.Topic),
				zap.Error(err),
			)
			continue
		}

		if c.handleMessage(ctx, binding.Kind, msg) {
			if err := reader.CommitMessages(ctx, msg); err != nil {
				c.logger.Error("failed to commit message",
					zap.String("topic", binding.Topic),
					zap.Int64("offset", msg.Offset),
					zap.Error(err),
				)
			}
		}
	}
}

// handleMessage parses and dispatches one message. Returns true when the
// message may be acknowledged.
func (c *Consumer) handleMessage(ctx context.Context, kind inventory.ResourceKind, msg kafkago.Message) bool {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}

	evt, err := inventory.ParseResourceEvent(kind, msg.Value, headers)
	if err != nil {
		c.logger.Error("invalid event payload",
			zap.String("topic", msg.Topic),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return false
	}

	msgCtx, msgLogger := logger.WithTenantID(ctx, c.logger, evt.Tenant)

	if err := c.dispatcher.Dispatch(msgCtx, evt); err != nil {
		msgLogger.Error("event handling failed, message left for redelivery",
			zap.String("topic", msg.Topic),
			zap.Int64("offset", msg.Offset),
			zap.String("kind", string(kind)),
			zap.String("action", string(evt.Action)),
			zap.Error(err),
		)
		return false
	}
	return true
}
