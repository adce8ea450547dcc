package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/dto"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/service"
	"github.com/owya490/social-sports-sub003/pkg/logger"
	"github.com/owya490/social-sports-sub003/pkg/middleware"
	"github.com/owya490/social-sports-sub003/pkg/response"
	"github.com/owya490/social-sports-sub003/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// AttendeeHandler handles purchaser and attendee bookkeeping requests
type AttendeeHandler struct {
	attendeeService service.AttendeeService
}

// NewAttendeeHandler creates a new AttendeeHandler
func NewAttendeeHandler(attendeeService service.AttendeeService) *AttendeeHandler {
	return &AttendeeHandler{attendeeService: attendeeService}
}

// GetMetadata handles GET /events/:id/attendees
func (h *AttendeeHandler) GetMetadata(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.attendee.get_metadata")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("id")
	span.SetAttributes(attribute.String("event_id", eventID))

	meta, err := h.attendeeService.GetEventMetadata(ctx, eventID)
	if err != nil {
		writeError(c, span, err, "Failed to get event attendees")
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(meta))
}

// Add handles POST /events/:id/attendees
func (h *AttendeeHandler) Add(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.attendee.add")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.AddAttendeeRequest
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

	meta, err := h.attendeeService.AddAttendee(ctx, eventID, &req)
	if err != nil {
		writeError(c, span, err, "Failed to add attendee")
		return
	}
	h.audit(c, "attendee added", eventID, req.AttendeeName)

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(meta))
}

// SetTickets handles PUT /events/:id/attendees/tickets
func (h *AttendeeHandler) SetTickets(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.attendee.set_tickets")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.SetAttendeeTicketsRequest
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

	meta, err := h.attendeeService.SetAttendeeTickets(ctx, eventID, &req)
	if err != nil {
		writeError(c, span, err, "Failed to update attendee tickets")
		return
	}
	h.audit(c, "attendee tickets set", eventID, req.AttendeeName)

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(meta))
}

// Remove handles DELETE /events/:id/attendees
func (h *AttendeeHandler) Remove(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.attendee.remove")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var ref dto.AttendeeRef
	if err := c.ShouldBindJSON(&ref); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body"))
		return
	}
	if valid, msg := ref.Validate(); !valid {
		span.SetStatus(codes.Error, msg)
		c.JSON(http.StatusBadRequest, response.ValidationError(msg, nil))
		return
	}

	eventID := c.Param("id")
	span.SetAttributes(attribute.String("event_id", eventID))

	meta, err := h.attendeeService.RemoveAttendee(ctx, eventID, &ref)
	if err != nil {
		writeError(c, span, err, "Failed to remove attendee")
		return
	}
	h.audit(c, "attendee removed", eventID, ref.AttendeeName)

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(meta))
}

// Recalculate handles POST /events/:id/metadata/recalculate
func (h *AttendeeHandler) Recalculate(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.attendee.recalculate")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("id")
	span.SetAttributes(attribute.String("event_id", eventID))

	meta, err := h.attendeeService.RecalculateMetadata(ctx, eventID)
	if err != nil {
		writeError(c, span, err, "Failed to recalculate event metadata")
		return
	}
	h.audit(c, "event metadata recalculated", eventID, "")

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(meta))
}

// audit logs who changed an event's attendees
func (h *AttendeeHandler) audit(c *gin.Context, msg, eventID, attendee string) {
	userID, _ := middleware.GetUserID(c)
	fields := []zap.Field{
		zap.String("event_id", eventID),
		zap.String("user_id", userID),
	}
	if attendee != "" {
		fields = append(fields, zap.String("attendee", attendee))
	}
	logger.Get().InfoContext(c.Request.Context(), msg, fields...)
}
