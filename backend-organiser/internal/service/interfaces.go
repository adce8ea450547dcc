package service

import (
	"context"

	"github.com/owya490/social-sports-sub003/backend-organiser/internal/aggregation"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/dto"
)

// OrderService defines the interface for order lookups and writes
type OrderService interface {
	// GetOrdersAndTicketsByEventID loads the event's orders with their
	// tickets, in the order recorded on the event metadata
	GetOrdersAndTicketsByEventID(ctx context.Context, eventID string, statuses []domain.OrderStatus) (*aggregation.OrderTicketsMap, error)
	// GetOrderByID looks up one order of an event
	GetOrderByID(ctx context.Context, eventID, orderID string) (*dto.OrderResponse, error)
	// ListOrders lists the event's orders with their tickets
	ListOrders(ctx context.Context, eventID string, statuses []domain.OrderStatus) ([]*dto.OrderResponse, error)
	// CreateOrderWithTickets records an order and links it to the event
	CreateOrderWithTickets(ctx context.Context, eventID string, req *dto.CreateOrderRequest) (*dto.OrderResponse, error)
	// UpdateOrderStatus sets the status of an order and its tickets
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*dto.OrderResponse, error)
}

// StatisticsService defines the interface for event financial summaries
type StatisticsService interface {
	// GetEventStatistics computes net sales and ticket totals for an event
	GetEventStatistics(ctx context.Context, eventID string, statuses []domain.OrderStatus) (*dto.EventStatisticsResponse, error)
}

// AttendeeService defines the interface for purchaser/attendee bookkeeping
type AttendeeService interface {
	// GetEventMetadata returns the purchaser breakdown of an event
	GetEventMetadata(ctx context.Context, eventID string) (*dto.EventMetadataResponse, error)
	// AddAttendee adds tickets for an attendee, within event capacity
	AddAttendee(ctx context.Context, eventID string, req *dto.AddAttendeeRequest) (*dto.EventMetadataResponse, error)
	// SetAttendeeTickets sets an attendee's ticket count, within event capacity
	SetAttendeeTickets(ctx context.Context, eventID string, req *dto.SetAttendeeTicketsRequest) (*dto.EventMetadataResponse, error)
	// RemoveAttendee sets an attendee's ticket count to zero
	RemoveAttendee(ctx context.Context, eventID string, ref *dto.AttendeeRef) (*dto.EventMetadataResponse, error)
	// RecalculateMetadata rebuilds purchaser and event totals from attendee counts
	RecalculateMetadata(ctx context.Context, eventID string) (*dto.EventMetadataResponse, error)
	// ApplyCompletedOrder records a paid order on the event metadata. It
	// reports false when the order was already recorded.
	ApplyCompletedOrder(ctx context.Context, evt *domain.OrderCompleted) (bool, error)
}
