package service

import (
	"context"
	"sync"

	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/repository"
)

// MockOrderRepository is a mock implementation of OrderRepository
type MockOrderRepository struct {
	GetByIDFunc           func(ctx context.Context, id string) (*domain.Order, error)
	GetByIDsFunc          func(ctx context.Context, ids []string) ([]*domain.Order, error)
	ListByEventIDFunc     func(ctx context.Context, eventID string, statuses []domain.OrderStatus) ([]*domain.Order, error)
	CreateWithTicketsFunc func(ctx context.Context, order *domain.Order, tickets []*domain.Ticket) error
	UpdateStatusFunc      func(ctx context.Context, id string, status domain.OrderStatus) error
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockOrderRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Order, error) {
	if m.GetByIDsFunc != nil {
		return m.GetByIDsFunc(ctx, ids)
	}
	return []*domain.Order{}, nil
}

func (m *MockOrderRepository) ListByEventID(ctx context.Context, eventID string, statuses []domain.OrderStatus) ([]*domain.Order, error) {
	if m.ListByEventIDFunc != nil {
		return m.ListByEventIDFunc(ctx, eventID, statuses)
	}
	return []*domain.Order{}, nil
}

func (m *MockOrderRepository) CreateWithTickets(ctx context.Context, order *domain.Order, tickets []*domain.Ticket) error {
	if m.CreateWithTicketsFunc != nil {
		return m.CreateWithTicketsFunc(ctx, order, tickets)
	}
	return nil
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

// MockTicketRepository is a mock implementation of TicketRepository
type MockTicketRepository struct {
	GetByIDsFunc     func(ctx context.Context, ids []string) ([]*domain.Ticket, error)
	GetByOrderIDFunc func(ctx context.Context, orderID string) ([]*domain.Ticket, error)
}

func (m *MockTicketRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Ticket, error) {
	if m.GetByIDsFunc != nil {
		return m.GetByIDsFunc(ctx, ids)
	}
	return []*domain.Ticket{}, nil
}

func (m *MockTicketRepository) GetByOrderID(ctx context.Context, orderID string) ([]*domain.Ticket, error) {
	if m.GetByOrderIDFunc != nil {
		return m.GetByOrderIDFunc(ctx, orderID)
	}
	return []*domain.Ticket{}, nil
}

// MockEventMetadataRepository keeps metadata and capacity in memory. Mutate
// runs the mutation under a lock like the row-locking repository does.
type MockEventMetadataRepository struct {
	mu         sync.Mutex
	Metadata   map[string]*domain.EventMetadata
	Capacities map[string]*domain.EventCapacity

	GetByEventIDFunc func(ctx context.Context, eventID string) (*domain.EventMetadata, error)
	GetCapacityFunc  func(ctx context.Context, eventID string) (*domain.EventCapacity, error)
	MutateErr        error
	MutateCalls      int
}

func newMockMetadataRepo() *MockEventMetadataRepository {
	return &MockEventMetadataRepository{
		Metadata:   map[string]*domain.EventMetadata{},
		Capacities: map[string]*domain.EventCapacity{},
	}
}

// withEvent registers an event with the given capacity and metadata
func (m *MockEventMetadataRepository) withEvent(eventID string, capacity int, meta *domain.EventMetadata) *MockEventMetadataRepository {
	vacancy := capacity
	if meta != nil {
		meta.EventID = eventID
		m.Metadata[eventID] = meta
		vacancy -= meta.CompleteTicketCount
	}
	m.Capacities[eventID] = &domain.EventCapacity{EventID: eventID, Capacity: capacity, Vacancy: vacancy}
	return m
}

func (m *MockEventMetadataRepository) GetByEventID(ctx context.Context, eventID string) (*domain.EventMetadata, error) {
	if m.GetByEventIDFunc != nil {
		return m.GetByEventIDFunc(ctx, eventID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Metadata[eventID].Clone(), nil
}

func (m *MockEventMetadataRepository) GetCapacity(ctx context.Context, eventID string) (*domain.EventCapacity, error) {
	if m.GetCapacityFunc != nil {
		return m.GetCapacityFunc(ctx, eventID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Capacities[eventID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *MockEventMetadataRepository) Save(ctx context.Context, meta *domain.EventMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Metadata[meta.EventID] = meta.Clone()
	return nil
}

func (m *MockEventMetadataRepository) Mutate(ctx context.Context, eventID string, fn repository.MetadataMutation) (*domain.EventMetadata, *domain.EventCapacity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MutateCalls++
	if m.MutateErr != nil {
		return nil, nil, m.MutateErr
	}

	c, ok := m.Capacities[eventID]
	if !ok {
		return nil, nil, domain.ErrEventNotFound
	}
	current := m.Metadata[eventID].Clone()
	if current == nil {
		current = domain.NewEventMetadata(eventID)
	}

	capacity := *c
	updated, err := fn(current, &capacity)
	if err != nil {
		return nil, nil, err
	}
	updated.EventID = eventID
	m.Metadata[eventID] = updated.Clone()

	c.Vacancy = c.Capacity - updated.CompleteTicketCount
	capacity.Vacancy = c.Vacancy
	return updated, &capacity, nil
}

func order(id string, discounts int64, status domain.OrderStatus, ticketIDs ...string) *domain.Order {
	return &domain.Order{ID: id, EventID: "event-1", Discounts: discounts, Status: status, TicketIDs: ticketIDs}
}

func purchaserMeta(email string, attendees map[string]int) *domain.EventMetadata {
	meta := domain.NewEventMetadata("event-1")
	p := &domain.Purchaser{Email: email, Attendees: map[string]*domain.Attendee{}}
	for name, n := range attendees {
		p.Attendees[name] = &domain.Attendee{TicketCount: n}
		p.TotalTicketCount += n
	}
	meta.PurchaserMap[aggregationKey(email)] = p
	meta.CompleteTicketCount = p.TotalTicketCount
	return meta
}
