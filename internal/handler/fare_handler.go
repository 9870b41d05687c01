package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Wardenfar/parkingsystem/internal/dto"
	"github.com/Wardenfar/parkingsystem/internal/service"
	"github.com/Wardenfar/parkingsystem/pkg/response"
	"github.com/Wardenfar/parkingsystem/pkg/telemetry"
)

// FareHandler prices stays without touching parking state
type FareHandler struct {
	parkingService service.ParkingService
}

// NewFareHandler creates a new fare handler
func NewFareHandler(parkingService service.ParkingService) *FareHandler {
	return &FareHandler{parkingService: parkingService}
}

// Quote handles POST /fares/quote
func (h *FareHandler) Quote(c *gin.Context) {
	_, span := telemetry.StartSpan(c.Request.Context(), "handler.fare.quote")
	defer span.End()

	var req dto.FareQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, response.ErrorWithDetails("INVALID_REQUEST", "invalid request body", err.Error()))
		return
	}

	quote, err := req.ToFareQuote()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	price, err := h.parkingService.QuoteFare(quote)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(
		attribute.String("vehicle_type", quote.Category.String()),
		attribute.Bool("recurrent", quote.Recurrent),
		attribute.Float64("price", price),
	)
	c.JSON(http.StatusOK, response.Success(dto.FareQuoteResponse{Price: price}))
}
