package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/aggregation"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/dto"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/metrics"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/repository"
	"github.com/owya490/social-sports-sub003/pkg/logger"
	"github.com/owya490/social-sports-sub003/pkg/retry"
	"github.com/owya490/social-sports-sub003/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OrderServiceConfig contains configuration for order service
type OrderServiceConfig struct {
	// TicketFetchConcurrency bounds parallel ticket reads per request
	TicketFetchConcurrency int
	// ReadRetry retries transient repository errors on reads
	ReadRetry *retry.Config
}

// orderService implements OrderService
type orderService struct {
	orderRepo   repository.OrderRepository
	ticketRepo  repository.TicketRepository
	metaRepo    repository.EventMetadataRepository
	concurrency int
	readRetry   *retry.Config
}

// NewOrderService creates a new order service
func NewOrderService(
	orderRepo repository.OrderRepository,
	ticketRepo repository.TicketRepository,
	metaRepo repository.EventMetadataRepository,
	cfg *OrderServiceConfig,
) OrderService {
	concurrency := 8
	readRetry := &retry.Config{
		MaxRetries:      2,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
	if cfg != nil {
		if cfg.TicketFetchConcurrency > 0 {
			concurrency = cfg.TicketFetchConcurrency
		}
		if cfg.ReadRetry != nil {
			rc := *cfg.ReadRetry
			readRetry = &rc
		}
	}
	readRetry.RetryIf = isTransient

	return &orderService{
		orderRepo:   orderRepo,
		ticketRepo:  ticketRepo,
		metaRepo:    metaRepo,
		concurrency: concurrency,
		readRetry:   readRetry,
	}
}

// isTransient reports whether a read error is worth retrying
func isTransient(err error) bool {
	return !errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded) &&
		!domain.IsNotFoundError(err) &&
		!domain.IsValidationError(err)
}

// read runs op with the read retry policy
func (s *orderService) read(ctx context.Context, op retry.Operation) error {
	result := retry.Do(ctx, s.readRetry, op)
	if result.Err == nil {
		return nil
	}
	if errors.Is(result.Err, retry.ErrContextCanceled) {
		return ctx.Err()
	}
	if result.LastError != nil {
		return result.LastError
	}
	return result.Err
}

// GetOrdersAndTicketsByEventID loads orders listed on the event metadata and
// their tickets. Ticket reads fan out across orders.
func (s *orderService) GetOrdersAndTicketsByEventID(ctx context.Context, eventID string, statuses []domain.OrderStatus) (*aggregation.OrderTicketsMap, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.order.get_orders_and_tickets")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	span.SetAttributes(attribute.String("event_id", eventID))

	var meta *domain.EventMetadata
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		meta, err = s.metaRepo.GetByEventID(ctx, eventID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to load event metadata: %w", err)
	}
	if meta == nil {
		if err := s.ensureEventExists(ctx, eventID); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		span.SetStatus(codes.Ok, "no metadata")
		return aggregation.NewOrderTicketsMap(0), nil
	}

	var orders []*domain.Order
	err = s.read(ctx, func(ctx context.Context) error {
		var err error
		orders, err = s.orderRepo.GetByIDs(ctx, meta.OrderIDs)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	if len(orders) != len(meta.OrderIDs) {
		logger.Get().WarnContext(ctx, "event metadata references missing orders",
			zap.String("event_id", eventID),
			zap.Int("recorded", len(meta.OrderIDs)),
			zap.Int("found", len(orders)),
		)
	}

	tickets := make([][]*domain.Ticket, len(orders))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, order := range orders {
		g.Go(func() error {
			return s.read(gctx, func(ctx context.Context) error {
				ts, err := s.ticketRepo.GetByIDs(ctx, order.TicketIDs)
				if err != nil {
					return fmt.Errorf("order %s: %w", order.ID, err)
				}
				tickets[i] = ts
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to load tickets: %w", err)
	}

	m := aggregation.NewOrderTicketsMap(len(orders))
	for i, order := range orders {
		m.Add(order, tickets[i])
	}
	if len(statuses) > 0 {
		m = m.Filter(statuses...)
	}

	span.SetAttributes(attribute.Int("order_count", m.Len()))
	span.SetStatus(codes.Ok, "")
	return m, nil
}

func (s *orderService) ensureEventExists(ctx context.Context, eventID string) error {
	var capacity *domain.EventCapacity
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		capacity, err = s.metaRepo.GetCapacity(ctx, eventID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to load event: %w", err)
	}
	if capacity == nil {
		return domain.ErrEventNotFound
	}
	return nil
}

// GetOrderByID returns the first order of the event with the given id
func (s *orderService) GetOrderByID(ctx context.Context, eventID, orderID string) (*dto.OrderResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.order.get_order_by_id")
	defer span.End()

	if orderID == "" {
		span.SetStatus(codes.Error, "invalid order_id")
		return nil, domain.ErrInvalidOrderID
	}
	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("order_id", orderID),
	)

	m, err := s.GetOrdersAndTicketsByEventID(ctx, eventID, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	entry, ok := aggregation.FindEntryByOrderID(m, orderID)
	metrics.RecordOrderLookup(ctx, eventID, ok)
	if !ok {
		span.SetStatus(codes.Error, "order not found")
		return nil, domain.ErrOrderNotFound
	}

	span.SetStatus(codes.Ok, "")
	return dto.FromOrder(entry.Order, entry.Tickets), nil
}

// ListOrders lists the event's orders in recorded order
func (s *orderService) ListOrders(ctx context.Context, eventID string, statuses []domain.OrderStatus) ([]*dto.OrderResponse, error) {
	m, err := s.GetOrdersAndTicketsByEventID(ctx, eventID, statuses)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.OrderResponse, 0, m.Len())
	for _, e := range m.Entries() {
		out = append(out, dto.FromOrder(e.Order, e.Tickets))
	}
	return out, nil
}

// CreateOrderWithTickets stores the order with its tickets, then appends the
// order id to the event metadata
func (s *orderService) CreateOrderWithTickets(ctx context.Context, eventID string, req *dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.order.create_with_tickets")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if req == nil || len(req.Tickets) == 0 {
		span.SetStatus(codes.Error, "invalid quantity")
		return nil, domain.ErrInvalidQuantity
	}

	status := domain.OrderStatusPending
	if req.Status != "" {
		status = domain.OrderStatus(req.Status)
		if !status.IsValid() {
			span.SetStatus(codes.Error, "invalid status")
			return nil, domain.ErrInvalidOrderStatus
		}
	}

	now := time.Now()
	order := &domain.Order{
		ID:                    uuid.New().String(),
		EventID:               eventID,
		Email:                 req.Email,
		FullName:              req.FullName,
		Phone:                 req.Phone,
		Discounts:             req.Discounts,
		ApplicationFees:       req.ApplicationFees,
		Status:                status,
		StripePaymentIntentID: req.StripePaymentIntentID,
		DatePurchased:         now,
	}
	tickets := make([]*domain.Ticket, len(req.Tickets))
	for i, t := range req.Tickets {
		tickets[i] = &domain.Ticket{
			ID:             uuid.New().String(),
			OrderID:        order.ID,
			EventID:        eventID,
			Price:          t.Price,
			Status:         status,
			PurchaseDate:   now,
			FormResponseID: t.FormResponseID,
		}
	}

	// Net sales must be computable for the new order before it is stored
	check := aggregation.NewOrderTicketsMap(1)
	check.Add(order, tickets)
	if _, err := aggregation.CalculateNetSales(check); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("order_id", order.ID),
		attribute.Int("ticket_count", len(tickets)),
	)

	if err := s.ensureEventExists(ctx, eventID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.orderRepo.CreateWithTickets(ctx, order, tickets); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	_, _, err := s.metaRepo.Mutate(ctx, eventID, func(meta *domain.EventMetadata, _ *domain.EventCapacity) (*domain.EventMetadata, error) {
		out := meta.Clone()
		if !out.HasOrder(order.ID) {
			out.OrderIDs = append(out.OrderIDs, order.ID)
		}
		return out, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("order %s stored but not linked to event: %w", order.ID, err)
	}

	metrics.RecordOrderCreated(ctx, eventID, len(tickets))
	logger.Get().InfoContext(ctx, "order created",
		zap.String("event_id", eventID),
		zap.String("order_id", order.ID),
		zap.Int("ticket_count", len(tickets)),
	)

	span.SetStatus(codes.Ok, "")
	return dto.FromOrder(order, tickets), nil
}

// UpdateOrderStatus sets the status of an order and all of its tickets
func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*dto.OrderResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.order.update_status")
	defer span.End()

	if orderID == "" {
		span.SetStatus(codes.Error, "invalid order_id")
		return nil, domain.ErrInvalidOrderID
	}
	if !status.IsValid() {
		span.SetStatus(codes.Error, "invalid status")
		return nil, domain.ErrInvalidOrderStatus
	}
	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.String("status", string(status)),
	)

	if err := s.orderRepo.UpdateStatus(ctx, orderID, status); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if order == nil {
		span.SetStatus(codes.Error, "order not found")
		return nil, domain.ErrOrderNotFound
	}

	tickets, err := s.ticketRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordOrderStatusChange(ctx, string(status))
	span.SetStatus(codes.Ok, "")
	return dto.FromOrder(order, tickets), nil
}
