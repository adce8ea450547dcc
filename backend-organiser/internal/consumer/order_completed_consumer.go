package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/owya490/social-sports-sub003/backend-organiser/internal/aggregation"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/metrics"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/service"
	"github.com/owya490/social-sports-sub003/pkg/kafka"
	"github.com/owya490/social-sports-sub003/pkg/logger"
	"github.com/owya490/social-sports-sub003/pkg/retry"
	"github.com/owya490/social-sports-sub003/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Worker outcomes recorded on metrics
const (
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeDLQ       = "dlq"
	OutcomeFailed    = "failed"
)

// DLQ error codes
const (
	ErrorCodeMalformed  = "MALFORMED_PAYLOAD"
	ErrorCodeValidation = "VALIDATION_FAILED"
	ErrorCodeNotFound   = "EVENT_NOT_FOUND"
	ErrorCodeProcessing = "PROCESSING_FAILED"
)

// maxRedeliveryInterval caps the wait between attempts at a record the DLQ
// could not take
const maxRedeliveryInterval = 30 * time.Second

var (
	errMalformedPayload = errors.New("malformed order completed payload")
	errCommitFailed     = errors.New("failed to commit record")
)

// RecordSource is satisfied by *kafka.Consumer
type RecordSource interface {
	Poll(ctx context.Context) ([]*kafka.Record, error)
	CommitRecords(ctx context.Context, records []*kafka.Record) error
	Close()
}

// OrderCompletedConsumerConfig contains configuration for the consumer
type OrderCompletedConsumerConfig struct {
	Source         string
	WorkerCount    int
	MaxRetries     int
	RetryInterval  time.Duration
	ProcessTimeout time.Duration
}

// DefaultOrderCompletedConsumerConfig returns default configuration
func DefaultOrderCompletedConsumerConfig() *OrderCompletedConsumerConfig {
	return &OrderCompletedConsumerConfig{
		Source:         "organiser-order-worker",
		WorkerCount:    4,
		MaxRetries:     3,
		RetryInterval:  500 * time.Millisecond,
		ProcessTimeout: 30 * time.Second,
	}
}

// OrderCompletedConsumer applies order.completed messages to event metadata.
// Records of one partition are always handled by the same worker, so
// offsets are committed in order.
type OrderCompletedConsumer struct {
	source    RecordSource
	dlq       *retry.DLQHandler
	attendees service.AttendeeService
	config    *OrderCompletedConsumerConfig
	wg        sync.WaitGroup
	stopCh    chan struct{}
	stopPoll  context.CancelFunc
	mu        sync.RWMutex
	running   bool
}

// NewOrderCompletedConsumer creates a new order completed consumer
func NewOrderCompletedConsumer(
	source RecordSource,
	publisher retry.DLQPublisher,
	attendees service.AttendeeService,
	cfg *OrderCompletedConsumerConfig,
) *OrderCompletedConsumer {
	defaults := DefaultOrderCompletedConsumerConfig()
	if cfg == nil {
		cfg = defaults
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaults.WorkerCount
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaults.RetryInterval
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = defaults.ProcessTimeout
	}
	if cfg.Source == "" {
		cfg.Source = defaults.Source
	}

	dlq := retry.NewDLQHandler(publisher, &retry.DLQHandlerConfig{
		RetryConfig: &retry.Config{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: cfg.RetryInterval,
			MaxInterval:     cfg.RetryInterval * 8,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		},
		Source:    cfg.Source,
		ErrorCode: ErrorCode,
		OnDLQ: func(msg *retry.DLQMessage) {
			logger.Get().Warn("moving order completed message to DLQ",
				zap.String("message_id", msg.ID),
				zap.String("topic", msg.OriginalTopic),
				zap.String("error_code", msg.ErrorCode),
				zap.Int("attempts", msg.Attempts),
				zap.String("error", msg.Error),
			)
			metrics.RecordDLQ(context.Background(), msg.OriginalTopic, msg.ErrorCode)
		},
	})

	return &OrderCompletedConsumer{
		source:    source,
		dlq:       dlq,
		attendees: attendees,
		config:    cfg,
		stopCh:    make(chan struct{}),
	}
}

// ErrorCode classifies a final processing error for the DLQ
func ErrorCode(err error) string {
	var verr *aggregation.ValidationError
	switch {
	case errors.Is(err, errMalformedPayload):
		return ErrorCodeMalformed
	case domain.IsValidationError(err), errors.As(err, &verr):
		return ErrorCodeValidation
	case domain.IsNotFoundError(err):
		return ErrorCodeNotFound
	}
	return ErrorCodeProcessing
}

// Start starts the poll loop and workers
func (c *OrderCompletedConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer is already running")
	}
	c.running = true
	pollCtx, cancel := context.WithCancel(ctx)
	c.stopPoll = cancel
	c.mu.Unlock()

	logger.Get().Info("Starting order completed consumer", zap.Int("workers", c.config.WorkerCount))

	queues := make([]chan *kafka.Record, c.config.WorkerCount)
	for i := range queues {
		queues[i] = make(chan *kafka.Record, 64)
		c.wg.Add(1)
		go c.worker(ctx, i, queues[i])
	}

	c.wg.Add(1)
	go c.poll(pollCtx, queues)

	return nil
}

// poll fetches records and routes each to its partition's worker
func (c *OrderCompletedConsumer) poll(ctx context.Context, queues []chan *kafka.Record) {
	defer c.wg.Done()
	defer func() {
		for _, q := range queues {
			close(q)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Get().Info("Consumer context cancelled, stopping poll")
			return
		case <-c.stopCh:
			logger.Get().Info("Consumer stop signal received, stopping poll")
			return
		default:
		}

		records, err := c.source.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, kafka.ErrClientClosed) {
				return
			}
			logger.Get().Error("Failed to poll records", zap.Error(err))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			}
			continue
		}

		for _, record := range records {
			q := queues[int(record.Partition)%len(queues)]
			select {
			case q <- record:
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			}
		}
	}
}

// worker handles its partitions' records in offset order. A partition whose
// record could not be handled is stalled: none of its later offsets are
// committed, so the group redelivers from the unhandled record.
func (c *OrderCompletedConsumer) worker(ctx context.Context, id int, records <-chan *kafka.Record) {
	defer c.wg.Done()

	stalled := make(map[string]bool)
	for record := range records {
		key := record.Topic + "/" + strconv.Itoa(int(record.Partition))
		if stalled[key] {
			continue
		}

		err := c.handleRecord(ctx, record)
		if err == nil {
			continue
		}
		fields := []zap.Field{
			zap.Int("worker", id),
			zap.String("topic", record.Topic),
			zap.Int32("partition", record.Partition),
			zap.Int64("offset", record.Offset),
			zap.Error(err),
		}
		if errors.Is(err, errCommitFailed) {
			// handled; a later commit on the partition covers it
			logger.Get().Error("Failed to commit record", fields...)
			continue
		}
		stalled[key] = true
		logger.Get().Error("Partition stalled until redelivery", fields...)
	}
}

// handleRecord retries a record until it is applied or parked on the DLQ.
// It gives up only when ctx is done or the consumer is stopping.
func (c *OrderCompletedConsumer) handleRecord(ctx context.Context, record *kafka.Record) error {
	wait := c.config.RetryInterval
	for {
		err := c.processRecord(ctx, record)
		if err == nil || errors.Is(err, errCommitFailed) {
			return err
		}

		logger.Get().Warn("Record not handled, retrying",
			zap.String("topic", record.Topic),
			zap.Int32("partition", record.Partition),
			zap.Int64("offset", record.Offset),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return err
		case <-c.stopCh:
			return err
		}
		wait = min(wait*2, maxRedeliveryInterval)
	}
}

// processRecord applies one record and commits it once it has been applied,
// recognised as a duplicate, or parked on the DLQ
func (c *OrderCompletedConsumer) processRecord(ctx context.Context, record *kafka.Record) error {
	ctx = telemetry.ExtractHeaders(ctx, record.Headers)
	ctx, span := telemetry.StartSpan(ctx, "consumer.order_completed.process")
	defer span.End()

	span.SetAttributes(
		attribute.String("topic", record.Topic),
		attribute.Int("partition", int(record.Partition)),
		attribute.Int64("offset", record.Offset),
	)

	start := time.Now()
	metrics.RecordWorkerStart(ctx)

	outcome := OutcomeDLQ
	msgCtx := &retry.MessageContext{
		ID:      record.Topic + "/" + strconv.Itoa(int(record.Partition)) + "/" + strconv.FormatInt(record.Offset, 10),
		Topic:   record.Topic,
		Key:     string(record.Key),
		Headers: record.Headers,
	}
	if json.Valid(record.Value) {
		msgCtx.Payload = json.RawMessage(record.Value)
	} else {
		raw, _ := json.Marshal(string(record.Value))
		msgCtx.Payload = raw
	}

	err := c.dlq.ProcessWithDLQ(ctx, msgCtx, func(ctx context.Context) error {
		var evt domain.OrderCompleted
		if err := json.Unmarshal(record.Value, &evt); err != nil {
			return retry.Permanent(fmt.Errorf("%w: %v", errMalformedPayload, err))
		}
		if err := evt.Validate(); err != nil {
			return retry.Permanent(err)
		}
		span.SetAttributes(
			attribute.String("event_id", evt.EventID),
			attribute.String("order_id", evt.OrderID),
		)

		pctx, cancel := context.WithTimeout(ctx, c.config.ProcessTimeout)
		defer cancel()

		applied, err := c.attendees.ApplyCompletedOrder(pctx, &evt)
		if err != nil {
			var verr *aggregation.ValidationError
			if domain.IsValidationError(err) || domain.IsNotFoundError(err) || errors.As(err, &verr) {
				return retry.Permanent(err)
			}
			return err
		}
		if applied {
			outcome = OutcomeApplied
		} else {
			outcome = OutcomeDuplicate
		}
		return nil
	})
	if err != nil {
		metrics.RecordWorkerResult(ctx, OutcomeFailed, time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	metrics.RecordWorkerResult(ctx, outcome, time.Since(start).Seconds())
	span.SetAttributes(attribute.String("outcome", outcome))

	if err := c.source.CommitRecords(ctx, []*kafka.Record{record}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %w", errCommitFailed, err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Stop stops the consumer and waits for in-flight records
func (c *OrderCompletedConsumer) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	c.mu.Unlock()

	logger.Get().Info("Stopping order completed consumer")

	close(c.stopCh)
	c.stopPoll()
	c.wg.Wait()
	c.source.Close()

	logger.Get().Info("Order completed consumer stopped")
	return nil
}

// IsRunning returns whether the consumer is running
func (c *OrderCompletedConsumer) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}
