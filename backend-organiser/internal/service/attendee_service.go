package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/owya490/social-sports-sub003/backend-organiser/internal/aggregation"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/dto"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/metrics"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/repository"
	"github.com/owya490/social-sports-sub003/pkg/logger"
	"github.com/owya490/social-sports-sub003/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// errOrderAlreadyApplied aborts a metadata mutation for a redelivered order
var errOrderAlreadyApplied = errors.New("order already applied")

// attendeeService implements AttendeeService
type attendeeService struct {
	metaRepo repository.EventMetadataRepository
}

// NewAttendeeService creates a new attendee service
func NewAttendeeService(metaRepo repository.EventMetadataRepository) AttendeeService {
	return &attendeeService{metaRepo: metaRepo}
}

// GetEventMetadata returns the purchaser breakdown with totals recomputed
// from attendee counts
func (s *attendeeService) GetEventMetadata(ctx context.Context, eventID string) (*dto.EventMetadataResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.attendee.get_event_metadata")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	span.SetAttributes(attribute.String("event_id", eventID))

	capacity, err := s.metaRepo.GetCapacity(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if capacity == nil {
		span.SetStatus(codes.Error, "event not found")
		return nil, domain.ErrEventNotFound
	}

	meta, err := s.metaRepo.GetByEventID(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if meta == nil {
		meta = domain.NewEventMetadata(eventID)
	}

	recalculated, err := aggregation.RecalculateTotalTicketCounts(meta)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return dto.FromEventMetadata(recalculated, capacity), nil
}

// AddAttendee adds tickets for an attendee. The update is rejected when it
// would take the event past capacity.
func (s *attendeeService) AddAttendee(ctx context.Context, eventID string, req *dto.AddAttendeeRequest) (*dto.EventMetadataResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.attendee.add")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if req == nil || req.Quantity <= 0 {
		span.SetStatus(codes.Error, "invalid quantity")
		return nil, domain.ErrInvalidQuantity
	}
	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.Int("quantity", req.Quantity),
	)

	meta, capacity, err := s.metaRepo.Mutate(ctx, eventID, func(meta *domain.EventMetadata, capacity *domain.EventCapacity) (*domain.EventMetadata, error) {
		out, err := aggregation.AddPurchase(meta, req.Email, req.AttendeeName, req.Phone, req.Quantity)
		if err != nil {
			return nil, err
		}
		if _, err := aggregation.CheckCapacity(out, capacity.Capacity); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		s.recordFailure(ctx, eventID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordAttendeeUpdate(ctx, eventID, "add")
	logger.Get().InfoContext(ctx, "attendee added",
		zap.String("event_id", eventID),
		zap.String("attendee", req.AttendeeName),
		zap.Int("quantity", req.Quantity),
		zap.Int("vacancy", capacity.Vacancy),
	)

	span.SetStatus(codes.Ok, "")
	return dto.FromEventMetadata(meta, capacity), nil
}

// SetAttendeeTickets sets an attendee's ticket count
func (s *attendeeService) SetAttendeeTickets(ctx context.Context, eventID string, req *dto.SetAttendeeTicketsRequest) (*dto.EventMetadataResponse, error) {
	if req == nil || req.TicketCount == nil {
		return nil, domain.ErrInvalidQuantity
	}
	return s.setTickets(ctx, eventID, &req.AttendeeRef, *req.TicketCount, "set")
}

// RemoveAttendee sets an attendee's ticket count to zero. The attendee stays
// listed under the purchaser.
func (s *attendeeService) RemoveAttendee(ctx context.Context, eventID string, ref *dto.AttendeeRef) (*dto.EventMetadataResponse, error) {
	return s.setTickets(ctx, eventID, ref, 0, "remove")
}

func (s *attendeeService) setTickets(ctx context.Context, eventID string, ref *dto.AttendeeRef, n int, op string) (*dto.EventMetadataResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.attendee."+op)
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if ref == nil || (ref.Email == "" && ref.EmailHash == "") || ref.AttendeeName == "" {
		span.SetStatus(codes.Error, "invalid purchaser")
		return nil, fmt.Errorf("%w: email or email hash and attendee name are required", domain.ErrInvalidPurchaser)
	}

	key := ref.EmailHash
	if key == "" {
		key = aggregation.PurchaserEmailHash(aggregation.NormalizeEmail(ref.Email))
	}
	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("purchaser", key),
		attribute.Int("ticket_count", n),
	)

	meta, capacity, err := s.metaRepo.Mutate(ctx, eventID, func(meta *domain.EventMetadata, capacity *domain.EventCapacity) (*domain.EventMetadata, error) {
		out, _, err := aggregation.SetAttendeeTicketCount(meta, key, ref.AttendeeName, n, capacity.Capacity)
		return out, err
	})
	if err != nil {
		s.recordFailure(ctx, eventID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordAttendeeUpdate(ctx, eventID, op)
	logger.Get().InfoContext(ctx, "attendee tickets updated",
		zap.String("event_id", eventID),
		zap.String("attendee", ref.AttendeeName),
		zap.Int("ticket_count", n),
		zap.Int("vacancy", capacity.Vacancy),
	)

	span.SetStatus(codes.Ok, "")
	return dto.FromEventMetadata(meta, capacity), nil
}

// RecalculateMetadata rewrites stored totals from attendee counts and
// resyncs the event vacancy
func (s *attendeeService) RecalculateMetadata(ctx context.Context, eventID string) (*dto.EventMetadataResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.attendee.recalculate")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	span.SetAttributes(attribute.String("event_id", eventID))

	var before int
	meta, capacity, err := s.metaRepo.Mutate(ctx, eventID, func(meta *domain.EventMetadata, _ *domain.EventCapacity) (*domain.EventMetadata, error) {
		before = meta.CompleteTicketCount
		return aggregation.RecalculateTotalTicketCounts(meta)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if before != meta.CompleteTicketCount {
		logger.Get().WarnContext(ctx, "event metadata totals were out of sync",
			zap.String("event_id", eventID),
			zap.Int("stored", before),
			zap.Int("recalculated", meta.CompleteTicketCount),
		)
	}
	metrics.RecordAttendeeUpdate(ctx, eventID, "recalculate")

	span.SetStatus(codes.Ok, "")
	return dto.FromEventMetadata(meta, capacity), nil
}

// ApplyCompletedOrder adds a paid order's tickets to the purchaser and
// records the order id. Capacity is not enforced since payment has already
// been taken; a negative vacancy is logged.
func (s *attendeeService) ApplyCompletedOrder(ctx context.Context, evt *domain.OrderCompleted) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.attendee.apply_completed_order")
	defer span.End()

	if err := evt.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	span.SetAttributes(
		attribute.String("event_id", evt.EventID),
		attribute.String("order_id", evt.OrderID),
		attribute.Int("quantity", evt.Quantity),
	)

	_, capacity, err := s.metaRepo.Mutate(ctx, evt.EventID, func(meta *domain.EventMetadata, _ *domain.EventCapacity) (*domain.EventMetadata, error) {
		if meta.HasOrder(evt.OrderID) {
			return nil, errOrderAlreadyApplied
		}
		out, err := aggregation.AddPurchase(meta, evt.Email, evt.Attendee(), evt.Phone, evt.Quantity)
		if err != nil {
			return nil, err
		}
		out.OrderIDs = append(out.OrderIDs, evt.OrderID)
		return out, nil
	})
	if errors.Is(err, errOrderAlreadyApplied) {
		span.SetAttributes(attribute.Bool("duplicate", true))
		span.SetStatus(codes.Ok, "already applied")
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	if capacity.Vacancy < 0 {
		logger.Get().WarnContext(ctx, "event oversold",
			zap.String("event_id", evt.EventID),
			zap.String("order_id", evt.OrderID),
			zap.Int("vacancy", capacity.Vacancy),
		)
	}
	metrics.RecordAttendeeUpdate(ctx, evt.EventID, "purchase")

	span.SetStatus(codes.Ok, "")
	return true, nil
}

func (s *attendeeService) recordFailure(ctx context.Context, eventID string, err error) {
	var capErr *aggregation.CapacityError
	if errors.As(err, &capErr) {
		metrics.RecordCapacityRejection(ctx, eventID)
		logger.Get().WarnContext(ctx, "attendee update rejected",
			zap.String("event_id", eventID),
			zap.Int("requested", capErr.Requested),
			zap.Int("capacity", capErr.Capacity),
		)
	}
}
