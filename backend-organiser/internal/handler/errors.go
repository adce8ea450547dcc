package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/aggregation"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
	"github.com/owya490/social-sports-sub003/pkg/logger"
	"github.com/owya490/social-sports-sub003/pkg/response"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// writeError maps service errors to HTTP responses. fallback is the message
// returned for unexpected errors.
func writeError(c *gin.Context, span trace.Span, err error, fallback string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var (
		verr   *aggregation.ValidationError
		caperr *aggregation.CapacityError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, response.ValidationError(verr.Error(), gin.H{
			"field": verr.Field,
			"key":   verr.Key,
			"value": verr.Value,
		}))
	case domain.IsValidationError(err):
		c.JSON(http.StatusBadRequest, response.ValidationError(err.Error(), nil))
	case errors.As(err, &caperr):
		c.JSON(http.StatusConflict, response.ErrorWithDetails(response.CodeCapacityExceeded, "Event capacity exceeded", gin.H{
			"requested": caperr.Requested,
			"capacity":  caperr.Capacity,
		}))
	case errors.Is(err, domain.ErrEventNotFound):
		c.JSON(http.StatusNotFound, response.NotFound("Event not found"))
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, response.NotFound("Order not found"))
	case errors.Is(err, aggregation.ErrPurchaserNotFound):
		c.JSON(http.StatusNotFound, response.NotFound("Purchaser not found"))
	case errors.Is(err, aggregation.ErrAttendeeNotFound):
		c.JSON(http.StatusNotFound, response.NotFound("Attendee not found"))
	default:
		logger.Get().ErrorContext(c.Request.Context(), fallback,
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, response.InternalError(fallback))
	}
}
