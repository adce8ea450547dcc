package service

import (
	"context"
	"fmt"

	"github.com/owya490/social-sports-sub003/backend-organiser/internal/aggregation"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/dto"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/metrics"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/repository"
	"github.com/owya490/social-sports-sub003/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// statisticsService implements StatisticsService
type statisticsService struct {
	orders   OrderService
	metaRepo repository.EventMetadataRepository
}

// NewStatisticsService creates a new statistics service
func NewStatisticsService(orders OrderService, metaRepo repository.EventMetadataRepository) StatisticsService {
	return &statisticsService{
		orders:   orders,
		metaRepo: metaRepo,
	}
}

// GetEventStatistics computes the event summary. When statuses is non-empty
// only orders in those statuses count towards net sales and ticket totals.
func (s *statisticsService) GetEventStatistics(ctx context.Context, eventID string, statuses []domain.OrderStatus) (*dto.EventStatisticsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.statistics.get_event_statistics")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	m, err := s.orders.GetOrdersAndTicketsByEventID(ctx, eventID, statuses)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	meta, err := s.metaRepo.GetByEventID(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to load event metadata: %w", err)
	}

	stats, err := aggregation.Summarise(eventID, m, meta)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp := dto.FromStatistics(stats)
	for _, st := range statuses {
		resp.StatusFilter = append(resp.StatusFilter, string(st))
	}

	capacity, err := s.metaRepo.GetCapacity(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to load event capacity: %w", err)
	}
	if capacity != nil {
		resp.Capacity = capacity.Capacity
		resp.Vacancy = capacity.Capacity - stats.CompleteTicketCount
	}

	metrics.RecordStatistics(ctx, eventID, stats.OrderCount)
	span.SetAttributes(
		attribute.Int64("net_sales", stats.NetSales),
		attribute.Int("order_count", stats.OrderCount),
	)
	span.SetStatus(codes.Ok, "")
	return resp, nil
}
