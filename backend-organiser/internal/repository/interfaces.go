package repository

import (
	"context"

	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	// GetByID retrieves an order with its ticket ids
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// GetByIDs retrieves orders in the order of ids, skipping unknown ids
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Order, error)
	// ListByEventID lists an event's orders, optionally filtered by status
	ListByEventID(ctx context.Context, eventID string, statuses []domain.OrderStatus) ([]*domain.Order, error)
	// CreateWithTickets inserts an order and its tickets in one transaction
	CreateWithTickets(ctx context.Context, order *domain.Order, tickets []*domain.Ticket) error
	// UpdateStatus sets the status of an order and all of its tickets
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
}

// TicketRepository defines the interface for ticket data access
type TicketRepository interface {
	// GetByIDs retrieves tickets in the order of ids, skipping unknown ids
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Ticket, error)
	// GetByOrderID retrieves all tickets of an order
	GetByOrderID(ctx context.Context, orderID string) ([]*domain.Ticket, error)
}

// MetadataMutation computes new metadata from the locked current state. It
// must not modify meta; returning an error aborts the transaction.
type MetadataMutation func(meta *domain.EventMetadata, capacity *domain.EventCapacity) (*domain.EventMetadata, error)

// EventMetadataRepository defines the interface for event metadata access
type EventMetadataRepository interface {
	// GetByEventID retrieves the purchaser metadata of an event
	GetByEventID(ctx context.Context, eventID string) (*domain.EventMetadata, error)
	// GetCapacity retrieves the capacity and vacancy of an event
	GetCapacity(ctx context.Context, eventID string) (*domain.EventCapacity, error)
	// Save writes metadata as-is
	Save(ctx context.Context, meta *domain.EventMetadata) error
	// Mutate locks the event's metadata and capacity, applies fn and stores
	// the result together with the recomputed vacancy
	Mutate(ctx context.Context, eventID string, fn MetadataMutation) (*domain.EventMetadata, *domain.EventCapacity, error)
}
