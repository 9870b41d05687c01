package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wardenfar/parkingsystem/internal/domain"
	"github.com/Wardenfar/parkingsystem/pkg/response"
)

// handleError maps service errors to HTTP responses
func handleError(c *gin.Context, err error) {
	switch {
	case domain.IsUnknownCategoryError(err):
		c.JSON(http.StatusBadRequest, response.Error("UNKNOWN_VEHICLE_TYPE", err.Error()))
	case domain.IsInvalidInputError(err):
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
	case domain.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, response.Error("TICKET_NOT_FOUND", err.Error()))
	case domain.IsNoCapacityError(err):
		c.JSON(http.StatusConflict, response.Error("PARKING_FULL", err.Error()))
	case errors.Is(err, domain.ErrVehicleAlreadyParked):
		c.JSON(http.StatusConflict, response.Error("ALREADY_PARKED", err.Error()))
	case domain.IsInvalidStateError(err):
		c.JSON(http.StatusConflict, response.Conflict(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.InternalError("internal server error"))
	}
}
