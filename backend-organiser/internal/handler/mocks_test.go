package handler

import (
	"context"
	"errors"

	"github.com/owya490/social-sports-sub003/backend-organiser/internal/aggregation"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/dto"
)

var errNotMocked = errors.New("not mocked")

// MockOrderService is a mock implementation of OrderService
type MockOrderService struct {
	GetOrdersAndTicketsFunc func(ctx context.Context, eventID string, statuses []domain.OrderStatus) (*aggregation.OrderTicketsMap, error)
	GetOrderByIDFunc        func(ctx context.Context, eventID, orderID string) (*dto.OrderResponse, error)
	ListOrdersFunc          func(ctx context.Context, eventID string, statuses []domain.OrderStatus) ([]*dto.OrderResponse, error)
	CreateFunc              func(ctx context.Context, eventID string, req *dto.CreateOrderRequest) (*dto.OrderResponse, error)
	UpdateStatusFunc        func(ctx context.Context, orderID string, status domain.OrderStatus) (*dto.OrderResponse, error)
}

func (m *MockOrderService) GetOrdersAndTicketsByEventID(ctx context.Context, eventID string, statuses []domain.OrderStatus) (*aggregation.OrderTicketsMap, error) {
	if m.GetOrdersAndTicketsFunc != nil {
		return m.GetOrdersAndTicketsFunc(ctx, eventID, statuses)
	}
	return nil, errNotMocked
}

func (m *MockOrderService) GetOrderByID(ctx context.Context, eventID, orderID string) (*dto.OrderResponse, error) {
	if m.GetOrderByIDFunc != nil {
		return m.GetOrderByIDFunc(ctx, eventID, orderID)
	}
	return nil, errNotMocked
}

func (m *MockOrderService) ListOrders(ctx context.Context, eventID string, statuses []domain.OrderStatus) ([]*dto.OrderResponse, error) {
	if m.ListOrdersFunc != nil {
		return m.ListOrdersFunc(ctx, eventID, statuses)
	}
	return nil, errNotMocked
}

func (m *MockOrderService) CreateOrderWithTickets(ctx context.Context, eventID string, req *dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, eventID, req)
	}
	return nil, errNotMocked
}

func (m *MockOrderService) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*dto.OrderResponse, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, orderID, status)
	}
	return nil, errNotMocked
}

// MockStatisticsService is a mock implementation of StatisticsService
type MockStatisticsService struct {
	GetEventStatisticsFunc func(ctx context.Context, eventID string, statuses []domain.OrderStatus) (*dto.EventStatisticsResponse, error)
}

func (m *MockStatisticsService) GetEventStatistics(ctx context.Context, eventID string, statuses []domain.OrderStatus) (*dto.EventStatisticsResponse, error) {
	if m.GetEventStatisticsFunc != nil {
		return m.GetEventStatisticsFunc(ctx, eventID, statuses)
	}
	return nil, errNotMocked
}

// MockAttendeeService is a mock implementation of AttendeeService
type MockAttendeeService struct {
	GetEventMetadataFunc    func(ctx context.Context, eventID string) (*dto.EventMetadataResponse, error)
	AddAttendeeFunc         func(ctx context.Context, eventID string, req *dto.AddAttendeeRequest) (*dto.EventMetadataResponse, error)
	SetAttendeeTicketsFunc  func(ctx context.Context, eventID string, req *dto.SetAttendeeTicketsRequest) (*dto.EventMetadataResponse, error)
	RemoveAttendeeFunc      func(ctx context.Context, eventID string, ref *dto.AttendeeRef) (*dto.EventMetadataResponse, error)
	RecalculateMetadataFunc func(ctx context.Context, eventID string) (*dto.EventMetadataResponse, error)
}

func (m *MockAttendeeService) GetEventMetadata(ctx context.Context, eventID string) (*dto.EventMetadataResponse, error) {
	if m.GetEventMetadataFunc != nil {
		return m.GetEventMetadataFunc(ctx, eventID)
	}
	return nil, errNotMocked
}

func (m *MockAttendeeService) AddAttendee(ctx context.Context, eventID string, req *dto.AddAttendeeRequest) (*dto.EventMetadataResponse, error) {
	if m.AddAttendeeFunc != nil {
		return m.AddAttendeeFunc(ctx, eventID, req)
	}
	return nil, errNotMocked
}

func (m *MockAttendeeService) SetAttendeeTickets(ctx context.Context, eventID string, req *dto.SetAttendeeTicketsRequest) (*dto.EventMetadataResponse, error) {
	if m.SetAttendeeTicketsFunc != nil {
		return m.SetAttendeeTicketsFunc(ctx, eventID, req)
	}
	return nil, errNotMocked
}

func (m *MockAttendeeService) RemoveAttendee(ctx context.Context, eventID string, ref *dto.AttendeeRef) (*dto.EventMetadataResponse, error) {
	if m.RemoveAttendeeFunc != nil {
		return m.RemoveAttendeeFunc(ctx, eventID, ref)
	}
	return nil, errNotMocked
}

func (m *MockAttendeeService) RecalculateMetadata(ctx context.Context, eventID string) (*dto.EventMetadataResponse, error) {
	if m.RecalculateMetadataFunc != nil {
		return m.RecalculateMetadataFunc(ctx, eventID)
	}
	return nil, errNotMocked
}

func (m *MockAttendeeService) ApplyCompletedOrder(ctx context.Context, evt *domain.OrderCompleted) (bool, error) {
	return false, errNotMocked
}
