package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/dto"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/service"
	"github.com/owya490/social-sports-sub003/pkg/response"
	"github.com/owya490/social-sports-sub003/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// OrderHandler handles order lookup and order write requests
type OrderHandler struct {
	orderService service.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// List handles GET /events/:id/orders[?status=]
func (h *OrderHandler) List(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.order.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("id")
	statuses, ok := dto.ParseStatusFilter(c.Query("status"))
	if !ok {
		span.SetStatus(codes.Error, "invalid status filter")
		c.JSON(http.StatusBadRequest, response.ValidationError("Status must be one of PENDING, APPROVED, REJECTED", nil))
		return
	}
	span.SetAttributes(attribute.String("event_id", eventID))

	orders, err := h.orderService.ListOrders(ctx, eventID, statuses)
	if err != nil {
		writeError(c, span, err, "Failed to list orders")
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.List(orders, len(orders)))
}

// Get handles GET /events/:id/orders/:orderId
func (h *OrderHandler) Get(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.order.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("id")
	orderID := c.Param("orderId")
	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("order_id", orderID),
	)

	order, err := h.orderService.GetOrderByID(ctx, eventID, orderID)
	if err != nil {
		writeError(c, span, err, "Failed to get order")
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(order))
}

// Create handles POST /events/:id/orders
func (h *OrderHandler) Create(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.order.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body"))
		return
	}
	if valid, msg := req.Validate(); !valid {
		span.SetStatus(codes.Error, msg)
		c.JSON(http.StatusBadRequest, response.ValidationError(msg, nil))
		return
	}

	eventID := c.Param("id")
	span.SetAttributes(attribute.String("event_id", eventID))

	order, err := h.orderService.CreateOrderWithTickets(ctx, eventID, &req)
	if err != nil {
		writeError(c, span, err, "Failed to create order")
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, response.Success(order))
}

// UpdateStatus handles PUT /orders/:orderId/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.order.update_status")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body"))
		return
	}
	if valid, msg := req.Validate(); !valid {
		span.SetStatus(codes.Error, msg)
		c.JSON(http.StatusBadRequest, response.ValidationError(msg, nil))
		return
	}

	orderID := c.Param("orderId")
	span.SetAttributes(attribute.String("order_id", orderID))

	order, err := h.orderService.UpdateOrderStatus(ctx, orderID, domain.OrderStatus(req.Status))
	if err != nil {
		writeError(c, span, err, "Failed to update order status")
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(order))
}
