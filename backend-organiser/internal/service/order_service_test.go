package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/owya490/social-sports-sub003/backend-organiser/internal/aggregation"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/dto"
	"github.com/owya490/social-sports-sub003/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aggregationKey(email string) string {
	return aggregation.PurchaserEmailHash(email)
}

func fastRetry() *OrderServiceConfig {
	return &OrderServiceConfig{
		TicketFetchConcurrency: 4,
		ReadRetry: &retry.Config{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     2 * time.Millisecond,
			Multiplier:      2.0,
		},
	}
}

// seededRepos returns repositories holding three orders for event-1:
// o1 (2x1000, discount 300), o2 (1x500, rejected), o3 (1x200, discount 0)
func seededRepos() (*MockOrderRepository, *MockTicketRepository, *MockEventMetadataRepository) {
	orders := map[string]*domain.Order{
		"o1": order("o1", 300, domain.OrderStatusApproved, "t1", "t2"),
		"o2": order("o2", 0, domain.OrderStatusRejected, "t3"),
		"o3": order("o3", 0, domain.OrderStatusApproved, "t4"),
	}
	tickets := map[string]*domain.Ticket{
		"t1": {ID: "t1", OrderID: "o1", Price: 1000},
		"t2": {ID: "t2", OrderID: "o1", Price: 1000},
		"t3": {ID: "t3", OrderID: "o2", Price: 500},
		"t4": {ID: "t4", OrderID: "o3", Price: 200},
	}

	orderRepo := &MockOrderRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Order, error) {
			return orders[id], nil
		},
		GetByIDsFunc: func(ctx context.Context, ids []string) ([]*domain.Order, error) {
			out := []*domain.Order{}
			for _, id := range ids {
				if o, ok := orders[id]; ok {
					out = append(out, o)
				}
			}
			return out, nil
		},
	}
	ticketRepo := &MockTicketRepository{
		GetByIDsFunc: func(ctx context.Context, ids []string) ([]*domain.Ticket, error) {
			out := []*domain.Ticket{}
			for _, id := range ids {
				if t, ok := tickets[id]; ok {
					out = append(out, t)
				}
			}
			return out, nil
		},
	}

	meta := domain.NewEventMetadata("event-1")
	meta.OrderIDs = []string{"o1", "o2", "o3"}
	metaRepo := newMockMetadataRepo().withEvent("event-1", 100, meta)
	return orderRepo, ticketRepo, metaRepo
}

func TestOrderService_GetOrdersAndTicketsByEventID(t *testing.T) {
	orderRepo, ticketRepo, metaRepo := seededRepos()
	svc := NewOrderService(orderRepo, ticketRepo, metaRepo, fastRetry())

	m, err := svc.GetOrdersAndTicketsByEventID(context.Background(), "event-1", nil)
	require.NoError(t, err)
	require.Equal(t, 3, m.Len())

	entries := m.Entries()
	assert.Equal(t, "o1", entries[0].Order.ID)
	assert.Equal(t, "o2", entries[1].Order.ID)
	assert.Equal(t, "o3", entries[2].Order.ID)
	assert.Len(t, entries[0].Tickets, 2)

	net, err := aggregation.CalculateNetSales(m)
	require.NoError(t, err)
	assert.Equal(t, int64(2400), net)
}

func TestOrderService_GetOrdersAndTicketsByEventID_StatusFilter(t *testing.T) {
	orderRepo, ticketRepo, metaRepo := seededRepos()
	svc := NewOrderService(orderRepo, ticketRepo, metaRepo, fastRetry())

	m, err := svc.GetOrdersAndTicketsByEventID(context.Background(), "event-1", []domain.OrderStatus{domain.OrderStatusApproved})
	require.NoError(t, err)
	require.Equal(t, 2, m.Len())
	assert.Equal(t, "o1", m.Entries()[0].Order.ID)
	assert.Equal(t, "o3", m.Entries()[1].Order.ID)
}

func TestOrderService_GetOrdersAndTicketsByEventID_NoMetadata(t *testing.T) {
	metaRepo := newMockMetadataRepo().withEvent("event-1", 10, nil)
	svc := NewOrderService(&MockOrderRepository{}, &MockTicketRepository{}, metaRepo, fastRetry())

	m, err := svc.GetOrdersAndTicketsByEventID(context.Background(), "event-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestOrderService_GetOrdersAndTicketsByEventID_EventNotFound(t *testing.T) {
	svc := NewOrderService(&MockOrderRepository{}, &MockTicketRepository{}, newMockMetadataRepo(), fastRetry())

	_, err := svc.GetOrdersAndTicketsByEventID(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)

	_, err = svc.GetOrdersAndTicketsByEventID(context.Background(), "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidEventID)
}

func TestOrderService_GetOrdersAndTicketsByEventID_RetriesTransientErrors(t *testing.T) {
	orderRepo, ticketRepo, metaRepo := seededRepos()
	inner := ticketRepo.GetByIDsFunc
	var calls atomic.Int32
	ticketRepo.GetByIDsFunc = func(ctx context.Context, ids []string) ([]*domain.Ticket, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("connection reset")
		}
		return inner(ctx, ids)
	}
	svc := NewOrderService(orderRepo, ticketRepo, metaRepo, fastRetry())

	m, err := svc.GetOrdersAndTicketsByEventID(context.Background(), "event-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, int32(4), calls.Load())
}

func TestOrderService_GetOrdersAndTicketsByEventID_PersistentError(t *testing.T) {
	orderRepo, ticketRepo, metaRepo := seededRepos()
	boom := errors.New("db down")
	var calls atomic.Int32
	orderRepo.GetByIDsFunc = func(ctx context.Context, ids []string) ([]*domain.Order, error) {
		calls.Add(1)
		return nil, boom
	}
	svc := NewOrderService(orderRepo, ticketRepo, metaRepo, fastRetry())

	_, err := svc.GetOrdersAndTicketsByEventID(context.Background(), "event-1", nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOrderService_GetOrderByID(t *testing.T) {
	orderRepo, ticketRepo, metaRepo := seededRepos()
	svc := NewOrderService(orderRepo, ticketRepo, metaRepo, fastRetry())

	resp, err := svc.GetOrderByID(context.Background(), "event-1", "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", resp.ID)
	assert.Equal(t, 2, resp.TicketCount)

	_, err = svc.GetOrderByID(context.Background(), "event-1", "o9")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = svc.GetOrderByID(context.Background(), "event-1", "")
	assert.ErrorIs(t, err, domain.ErrInvalidOrderID)
}

func TestOrderService_ListOrders(t *testing.T) {
	orderRepo, ticketRepo, metaRepo := seededRepos()
	svc := NewOrderService(orderRepo, ticketRepo, metaRepo, fastRetry())

	list, err := svc.ListOrders(context.Background(), "event-1", []domain.OrderStatus{domain.OrderStatusRejected})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "o2", list[0].ID)
}

func TestOrderService_CreateOrderWithTickets(t *testing.T) {
	metaRepo := newMockMetadataRepo().withEvent("event-1", 10, nil)
	var stored *domain.Order
	var storedTickets []*domain.Ticket
	orderRepo := &MockOrderRepository{
		CreateWithTicketsFunc: func(ctx context.Context, o *domain.Order, ts []*domain.Ticket) error {
			stored, storedTickets = o, ts
			return nil
		},
	}
	svc := NewOrderService(orderRepo, &MockTicketRepository{}, metaRepo, fastRetry())

	resp, err := svc.CreateOrderWithTickets(context.Background(), "event-1", &dto.CreateOrderRequest{
		Email:     "a@example.com",
		FullName:  "Alice",
		Discounts: 100,
		Tickets:   []dto.CreateTicketRequest{{Price: 1500}, {Price: 1500}},
	})
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.Equal(t, domain.OrderStatusPending, stored.Status)
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, resp.ID, stored.ID)
	require.Len(t, storedTickets, 2)
	for _, tk := range storedTickets {
		assert.Equal(t, stored.ID, tk.OrderID)
		assert.Equal(t, domain.OrderStatusPending, tk.Status)
	}
	assert.Equal(t, []string{stored.ID}, metaRepo.Metadata["event-1"].OrderIDs)
}

func TestOrderService_CreateOrderWithTickets_Errors(t *testing.T) {
	metaRepo := newMockMetadataRepo().withEvent("event-1", 10, nil)
	created := 0
	orderRepo := &MockOrderRepository{
		CreateWithTicketsFunc: func(ctx context.Context, o *domain.Order, ts []*domain.Ticket) error {
			created++
			return nil
		},
	}
	svc := NewOrderService(orderRepo, &MockTicketRepository{}, metaRepo, fastRetry())
	ctx := context.Background()

	_, err := svc.CreateOrderWithTickets(ctx, "event-1", &dto.CreateOrderRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = svc.CreateOrderWithTickets(ctx, "event-1", &dto.CreateOrderRequest{
		Status:  "SHIPPED",
		Tickets: []dto.CreateTicketRequest{{Price: 100}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOrderStatus)

	_, err = svc.CreateOrderWithTickets(ctx, "event-1", &dto.CreateOrderRequest{
		Tickets: []dto.CreateTicketRequest{{Price: -100}},
	})
	var verr *aggregation.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.CreateOrderWithTickets(ctx, "missing", &dto.CreateOrderRequest{
		Tickets: []dto.CreateTicketRequest{{Price: 100}},
	})
	assert.ErrorIs(t, err, domain.ErrEventNotFound)

	assert.Equal(t, 0, created)
}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	orderRepo, ticketRepo, metaRepo := seededRepos()
	var gotStatus domain.OrderStatus
	orderRepo.UpdateStatusFunc = func(ctx context.Context, id string, status domain.OrderStatus) error {
		if id != "o1" {
			return domain.ErrOrderNotFound
		}
		gotStatus = status
		return nil
	}
	ticketRepo.GetByOrderIDFunc = func(ctx context.Context, orderID string) ([]*domain.Ticket, error) {
		return []*domain.Ticket{{ID: "t1", OrderID: orderID, Price: 1000}}, nil
	}
	svc := NewOrderService(orderRepo, ticketRepo, metaRepo, fastRetry())

	resp, err := svc.UpdateOrderStatus(context.Background(), "o1", domain.OrderStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusRejected, gotStatus)
	assert.Equal(t, "o1", resp.ID)

	_, err = svc.UpdateOrderStatus(context.Background(), "o9", domain.OrderStatusApproved)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = svc.UpdateOrderStatus(context.Background(), "o1", "SHIPPED")
	assert.ErrorIs(t, err, domain.ErrInvalidOrderStatus)
}
