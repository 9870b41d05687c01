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

// ParkingHandler handles vehicle entry and exit requests
type ParkingHandler struct {
	parkingService service.ParkingService
}

// NewParkingHandler creates a new parking handler
func NewParkingHandler(parkingService service.ParkingService) *ParkingHandler {
	return &ParkingHandler{
		parkingService: parkingService,
	}
}

// Enter handles POST /parking/entries
func (h *ParkingHandler) Enter(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.parking.enter")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, response.ErrorWithDetails("INVALID_REQUEST", "invalid request body", err.Error()))
		return
	}

	entry, err := req.ToServiceRequest()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(
		attribute.String("registration_number", req.RegistrationNumber),
		attribute.String("vehicle_type", entry.Category.String()),
	)

	result, err := h.parkingService.ProcessIncomingVehicle(ctx, entry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(
		attribute.String("ticket_id", result.Ticket.ID),
		attribute.Int("spot_number", result.Ticket.SpotID),
	)
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, response.Success(dto.FromEntryResult(result)))
}

// Exit handles POST /parking/exits
func (h *ParkingHandler) Exit(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.parking.exit")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.ExitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, response.ErrorWithDetails("INVALID_REQUEST", "invalid request body", err.Error()))
		return
	}
	span.SetAttributes(attribute.String("registration_number", req.RegistrationNumber))

	result, err := h.parkingService.ProcessExitingVehicle(ctx, service.ExitRequest{
		RegistrationNumber: req.RegistrationNumber,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(
		attribute.String("ticket_id", result.Ticket.ID),
		attribute.Float64("price", result.Price),
	)
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(dto.FromExitResult(result)))
}

// GetTicket handles GET /parking/tickets/:registration
func (h *ParkingHandler) GetTicket(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.parking.get_ticket")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	reg := c.Param("registration")
	span.SetAttributes(attribute.String("registration_number", reg))

	ticket, err := h.parkingService.GetOpenTicket(ctx, reg)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(dto.FromTicket(ticket)))
}

// ListSpots handles GET /parking/spots
func (h *ParkingHandler) ListSpots(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(dto.FromPoolStatuses(h.parkingService.Availability())))
}
