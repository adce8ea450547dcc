package metrics

import (
	"context"
	"sync"

	"github.com/owya490/social-sports-sub003/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// Read path
	StatisticsRequests *telemetry.Counter
	OrderLookups       *telemetry.Counter

	// Write path
	OrdersCreated      *telemetry.Counter
	OrderStatusChanges *telemetry.Counter
	AttendeeUpdates    *telemetry.Counter
	CapacityRejections *telemetry.Counter

	// Order worker
	WorkerMessagesProcessed *telemetry.Counter
	WorkerMessagesDLQ       *telemetry.Counter
	WorkerProcessDuration   *telemetry.Histogram

	// Gauges
	WorkerInFlight *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all organiser metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	StatisticsRequests, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "organiser_statistics_requests_total",
		Description: "Total number of event statistics computed",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	OrderLookups, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "organiser_order_lookups_total",
		Description: "Total number of order lookups by id",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	OrdersCreated, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "organiser_orders_created_total",
		Description: "Total number of orders recorded",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	OrderStatusChanges, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "organiser_order_status_changes_total",
		Description: "Total number of order status changes",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	AttendeeUpdates, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "organiser_attendee_updates_total",
		Description: "Total number of attendee ticket count changes",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	CapacityRejections, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "organiser_capacity_rejections_total",
		Description: "Total number of updates rejected for exceeding event capacity",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	WorkerMessagesProcessed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "organiser_worker_messages_total",
		Description: "Total number of order-completed messages handled",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	WorkerMessagesDLQ, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "organiser_worker_dlq_total",
		Description: "Total number of order-completed messages moved to the DLQ",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	WorkerProcessDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "organiser_worker_process_duration_seconds",
		Description: "Time to apply one order-completed message",
		Unit:        "s",
	}, []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5})
	if err != nil {
		return err
	}

	WorkerInFlight, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "organiser_worker_in_flight",
		Description: "Order-completed messages currently being processed",
		Unit:        "1",
	})
	return err
}

// RecordStatistics records a statistics computation
func RecordStatistics(ctx context.Context, eventID string, orderCount int) {
	if StatisticsRequests != nil {
		StatisticsRequests.Inc(ctx,
			attribute.String("event_id", eventID),
			attribute.Int("order_count", orderCount),
		)
	}
}

// RecordOrderLookup records an order lookup and whether it matched
func RecordOrderLookup(ctx context.Context, eventID string, found bool) {
	if OrderLookups != nil {
		OrderLookups.Inc(ctx,
			attribute.String("event_id", eventID),
			attribute.Bool("found", found),
		)
	}
}

// RecordOrderCreated records a newly recorded order
func RecordOrderCreated(ctx context.Context, eventID string, ticketCount int) {
	if OrdersCreated != nil {
		OrdersCreated.Inc(ctx,
			attribute.String("event_id", eventID),
			attribute.Int("ticket_count", ticketCount),
		)
	}
}

// RecordOrderStatusChange records an order status transition
func RecordOrderStatusChange(ctx context.Context, status string) {
	if OrderStatusChanges != nil {
		OrderStatusChanges.Inc(ctx, attribute.String("status", status))
	}
}

// RecordAttendeeUpdate records an attendee change; op is add, set or remove
func RecordAttendeeUpdate(ctx context.Context, eventID, op string) {
	if AttendeeUpdates != nil {
		AttendeeUpdates.Inc(ctx,
			attribute.String("event_id", eventID),
			attribute.String("op", op),
		)
	}
}

// RecordCapacityRejection records an update refused for capacity
func RecordCapacityRejection(ctx context.Context, eventID string) {
	if CapacityRejections != nil {
		CapacityRejections.Inc(ctx, attribute.String("event_id", eventID))
	}
}

// RecordWorkerStart marks a message as in flight
func RecordWorkerStart(ctx context.Context) {
	if WorkerInFlight != nil {
		WorkerInFlight.Inc(ctx)
	}
}

// RecordWorkerResult records the outcome of one worker message
func RecordWorkerResult(ctx context.Context, outcome string, durationSeconds float64) {
	if WorkerInFlight != nil {
		WorkerInFlight.Dec(ctx)
	}
	if WorkerMessagesProcessed != nil {
		WorkerMessagesProcessed.Inc(ctx, attribute.String("outcome", outcome))
	}
	if WorkerProcessDuration != nil {
		WorkerProcessDuration.Record(ctx, durationSeconds, attribute.String("outcome", outcome))
	}
}

// RecordDLQ records a message parked on the DLQ
func RecordDLQ(ctx context.Context, topic, errorCode string) {
	if WorkerMessagesDLQ != nil {
		WorkerMessagesDLQ.Inc(ctx,
			attribute.String("topic", topic),
			attribute.String("error_code", errorCode),
		)
	}
}
