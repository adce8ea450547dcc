package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/dto"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/service"
	"github.com/owya490/social-sports-sub003/pkg/response"
	"github.com/owya490/social-sports-sub003/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// StatisticsHandler serves event dashboard summaries
type StatisticsHandler struct {
	statisticsService service.StatisticsService
}

// NewStatisticsHandler creates a new StatisticsHandler
func NewStatisticsHandler(statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService}
}

// GetEventStatistics handles GET /events/:id/statistics[?status=APPROVED,PENDING]
func (h *StatisticsHandler) GetEventStatistics(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.statistics.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("id")
	if eventID == "" {
		span.SetStatus(codes.Error, "missing event id")
		c.JSON(http.StatusBadRequest, response.BadRequest("Event ID is required"))
		return
	}

	statuses, ok := dto.ParseStatusFilter(c.Query("status"))
	if !ok {
		span.SetStatus(codes.Error, "invalid status filter")
		c.JSON(http.StatusBadRequest, response.ValidationError("Status must be one of PENDING, APPROVED, REJECTED", nil))
		return
	}
	span.SetAttributes(attribute.String("event_id", eventID))

	stats, err := h.statisticsService.GetEventStatistics(ctx, eventID, statuses)
	if err != nil {
		writeError(c, span, err, "Failed to compute event statistics")
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(stats))
}
