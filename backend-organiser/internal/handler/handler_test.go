package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/aggregation"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/dto"
	"github.com/owya490/social-sports-sub003/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(orders *MockOrderService, stats *MockStatisticsService, attendees *MockAttendeeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	oh := NewOrderHandler(orders)
	sh := NewStatisticsHandler(stats)
	ah := NewAttendeeHandler(attendees)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/events/:id/statistics", sh.GetEventStatistics)
		v1.GET("/events/:id/orders", oh.List)
		v1.GET("/events/:id/orders/:orderId", oh.Get)
		v1.POST("/events/:id/orders", oh.Create)
		v1.PUT("/orders/:orderId/status", oh.UpdateStatus)
		v1.GET("/events/:id/attendees", ah.GetMetadata)
		v1.POST("/events/:id/attendees", ah.Add)
		v1.PUT("/events/:id/attendees/tickets", ah.SetTickets)
		v1.DELETE("/events/:id/attendees", ah.Remove)
		v1.POST("/events/:id/metadata/recalculate", ah.Recalculate)
	}
	return router
}

func doRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestStatisticsHandler_GetEventStatistics(t *testing.T) {
	var gotStatuses []domain.OrderStatus
	stats := &MockStatisticsService{
		GetEventStatisticsFunc: func(ctx context.Context, eventID string, statuses []domain.OrderStatus) (*dto.EventStatisticsResponse, error) {
			gotStatuses = statuses
			switch eventID {
			case "event-1":
				return &dto.EventStatisticsResponse{EventID: eventID, NetSales: 1700, OrderCount: 2}, nil
			case "broken":
				return nil, &aggregation.ValidationError{Field: "price", Key: "ticket t1", Value: -5}
			}
			return nil, domain.ErrEventNotFound
		},
	}
	router := setupRouter(&MockOrderService{}, stats, &MockAttendeeService{})

	rec := doRequest(router, http.MethodGet, "/api/v1/events/event-1/statistics?status=approved,PENDING", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, float64(1700), resp.Data.(map[string]interface{})["net_sales"])
	assert.Equal(t, []domain.OrderStatus{domain.OrderStatusApproved, domain.OrderStatusPending}, gotStatuses)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantErr  string
	}{
		{"unknown event", "/api/v1/events/missing/statistics", http.StatusNotFound, response.CodeNotFound},
		{"bad status filter", "/api/v1/events/event-1/statistics?status=SHIPPED", http.StatusBadRequest, response.CodeValidation},
		{"negative price", "/api/v1/events/broken/statistics", http.StatusBadRequest, response.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(router, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.wantCode, rec.Code)
			resp := decode(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantErr, resp.Error.Code)
		})
	}
}

func TestOrderHandler_Get(t *testing.T) {
	orders := &MockOrderService{
		GetOrderByIDFunc: func(ctx context.Context, eventID, orderID string) (*dto.OrderResponse, error) {
			if orderID == "o1" {
				return &dto.OrderResponse{ID: "o1", EventID: eventID, TicketCount: 2}, nil
			}
			return nil, domain.ErrOrderNotFound
		},
	}
	router := setupRouter(orders, &MockStatisticsService{}, &MockAttendeeService{})

	rec := doRequest(router, http.MethodGet, "/api/v1/events/event-1/orders/o1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/v1/events/event-1/orders/o2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderHandler_List(t *testing.T) {
	orders := &MockOrderService{
		ListOrdersFunc: func(ctx context.Context, eventID string, statuses []domain.OrderStatus) ([]*dto.OrderResponse, error) {
			return []*dto.OrderResponse{{ID: "o1"}, {ID: "o2"}}, nil
		},
	}
	router := setupRouter(orders, &MockStatisticsService{}, &MockAttendeeService{})

	rec := doRequest(router, http.MethodGet, "/api/v1/events/event-1/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 2, resp.Meta.Total)
}

func TestOrderHandler_Create(t *testing.T) {
	orders := &MockOrderService{
		CreateFunc: func(ctx context.Context, eventID string, req *dto.CreateOrderRequest) (*dto.OrderResponse, error) {
			if eventID == "missing" {
				return nil, domain.ErrEventNotFound
			}
			return &dto.OrderResponse{ID: "new", EventID: eventID, TicketCount: len(req.Tickets)}, nil
		},
	}
	router := setupRouter(orders, &MockStatisticsService{}, &MockAttendeeService{})

	valid := dto.CreateOrderRequest{
		Email:   "a@example.com",
		Tickets: []dto.CreateTicketRequest{{Price: 1000}},
	}

	tests := []struct {
		name     string
		path     string
		body     interface{}
		wantCode int
	}{
		{"created", "/api/v1/events/event-1/orders", valid, http.StatusCreated},
		{"unknown event", "/api/v1/events/missing/orders", valid, http.StatusNotFound},
		{"no tickets", "/api/v1/events/event-1/orders", dto.CreateOrderRequest{Email: "a@example.com"}, http.StatusBadRequest},
		{"negative price", "/api/v1/events/event-1/orders", dto.CreateOrderRequest{
			Email: "a@example.com", Tickets: []dto.CreateTicketRequest{{Price: -1}},
		}, http.StatusBadRequest},
		{"missing email", "/api/v1/events/event-1/orders", dto.CreateOrderRequest{
			Tickets: []dto.CreateTicketRequest{{Price: 1}},
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	orders := &MockOrderService{
		UpdateStatusFunc: func(ctx context.Context, orderID string, status domain.OrderStatus) (*dto.OrderResponse, error) {
			if orderID == "o1" {
				return &dto.OrderResponse{ID: orderID, Status: string(status)}, nil
			}
			return nil, domain.ErrOrderNotFound
		},
	}
	router := setupRouter(orders, &MockStatisticsService{}, &MockAttendeeService{})

	rec := doRequest(router, http.MethodPut, "/api/v1/orders/o1/status", dto.UpdateOrderStatusRequest{Status: "APPROVED"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodPut, "/api/v1/orders/o9/status", dto.UpdateOrderStatusRequest{Status: "APPROVED"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(router, http.MethodPut, "/api/v1/orders/o1/status", dto.UpdateOrderStatusRequest{Status: "SHIPPED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttendeeHandler_Add(t *testing.T) {
	attendees := &MockAttendeeService{
		AddAttendeeFunc: func(ctx context.Context, eventID string, req *dto.AddAttendeeRequest) (*dto.EventMetadataResponse, error) {
			if req.Quantity > 5 {
				return nil, &aggregation.CapacityError{EventID: eventID, Requested: req.Quantity, Capacity: 5}
			}
			return &dto.EventMetadataResponse{EventID: eventID, CompleteTicketCount: req.Quantity}, nil
		},
	}
	router := setupRouter(&MockOrderService{}, &MockStatisticsService{}, attendees)

	rec := doRequest(router, http.MethodPost, "/api/v1/events/event-1/attendees", dto.AddAttendeeRequest{
		Email: "a@example.com", AttendeeName: "Alice", Quantity: 2,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodPost, "/api/v1/events/event-1/attendees", dto.AddAttendeeRequest{
		Email: "a@example.com", AttendeeName: "Alice", Quantity: 6,
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, response.CodeCapacityExceeded, resp.Error.Code)

	rec = doRequest(router, http.MethodPost, "/api/v1/events/event-1/attendees", dto.AddAttendeeRequest{
		Email: "a@example.com", AttendeeName: "Alice",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttendeeHandler_SetTicketsAndRemove(t *testing.T) {
	var removed *dto.AttendeeRef
	attendees := &MockAttendeeService{
		SetAttendeeTicketsFunc: func(ctx context.Context, eventID string, req *dto.SetAttendeeTicketsRequest) (*dto.EventMetadataResponse, error) {
			if req.AttendeeName == "Nobody" {
				return nil, aggregation.ErrAttendeeNotFound
			}
			return &dto.EventMetadataResponse{EventID: eventID, CompleteTicketCount: *req.TicketCount}, nil
		},
		RemoveAttendeeFunc: func(ctx context.Context, eventID string, ref *dto.AttendeeRef) (*dto.EventMetadataResponse, error) {
			removed = ref
			return &dto.EventMetadataResponse{EventID: eventID}, nil
		},
	}
	router := setupRouter(&MockOrderService{}, &MockStatisticsService{}, attendees)

	three := 3
	rec := doRequest(router, http.MethodPut, "/api/v1/events/event-1/attendees/tickets", dto.SetAttendeeTicketsRequest{
		AttendeeRef: dto.AttendeeRef{Email: "a@example.com", AttendeeName: "Alice"},
		TicketCount: &three,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodPut, "/api/v1/events/event-1/attendees/tickets", dto.SetAttendeeTicketsRequest{
		AttendeeRef: dto.AttendeeRef{Email: "a@example.com", AttendeeName: "Nobody"},
		TicketCount: &three,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(router, http.MethodPut, "/api/v1/events/event-1/attendees/tickets", dto.SetAttendeeTicketsRequest{
		AttendeeRef: dto.AttendeeRef{Email: "a@example.com", AttendeeName: "Alice"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodDelete, "/api/v1/events/event-1/attendees", dto.AttendeeRef{
		EmailHash: "123", AttendeeName: "Alice",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, removed)
	assert.Equal(t, "123", removed.EmailHash)
}

func TestAttendeeHandler_Recalculate(t *testing.T) {
	attendees := &MockAttendeeService{
		RecalculateMetadataFunc: func(ctx context.Context, eventID string) (*dto.EventMetadataResponse, error) {
			if eventID == "event-1" {
				return &dto.EventMetadataResponse{EventID: eventID}, nil
			}
			return nil, errors.New("db down")
		},
	}
	router := setupRouter(&MockOrderService{}, &MockStatisticsService{}, attendees)

	rec := doRequest(router, http.MethodPost, "/api/v1/events/event-1/metadata/recalculate", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodPost, "/api/v1/events/event-2/metadata/recalculate", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, response.CodeInternal, resp.Error.Code)
}

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck(ctx context.Context) error { return s.err }

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		components map[string]HealthChecker
		wantCode   int
	}{
		{"all healthy", map[string]HealthChecker{"database": stubChecker{}, "redis": stubChecker{}}, http.StatusOK},
		{"redis down", map[string]HealthChecker{"database": stubChecker{}, "redis": stubChecker{err: errors.New("refused")}}, http.StatusServiceUnavailable},
		{"not configured", map[string]HealthChecker{"database": stubChecker{}, "kafka": nil}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.components)
			router := gin.New()
			router.GET("/health", h.Health)
			router.GET("/ready", h.Ready)

			rec := doRequest(router, http.MethodGet, "/health", nil)
			assert.Equal(t, http.StatusOK, rec.Code)

			rec = doRequest(router, http.MethodGet, "/ready", nil)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
