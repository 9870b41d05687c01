package domain

import "errors"

// Domain errors
var (
	// Invalid input errors
	ErrMissingEntryTime    = errors.New("entry time is required")
	ErrMissingExitTime     = errors.New("exit time is required")
	ErrExitBeforeEntry     = errors.New("exit time is before entry time")
	ErrInvalidRegistration = errors.New("vehicle registration number is required")
	ErrInvalidSelection    = errors.New("invalid vehicle type selection")

	// Category errors
	ErrUnknownCategory = errors.New("unknown vehicle category")

	// Capacity errors
	ErrParkingFull = errors.New("no parking spot available for this vehicle category")

	// Not found errors
	ErrTicketNotFound = errors.New("no open ticket for this vehicle")

	// Invalid state errors
	ErrSpotAlreadyAvailable = errors.New("parking spot is already available")
	ErrSpotAlreadyOccupied  = errors.New("parking spot is already occupied")
	ErrUnknownSpot          = errors.New("unknown parking spot")
	ErrVehicleAlreadyParked = errors.New("vehicle already holds an open ticket")
	ErrTicketAlreadyClosed  = errors.New("ticket is already closed")
)

// IsInvalidInputError checks if the error comes from bad caller input.
// An unknown category is also invalid input for fare computation.
func IsInvalidInputError(err error) bool {
	return errors.Is(err, ErrMissingEntryTime) ||
		errors.Is(err, ErrMissingExitTime) ||
		errors.Is(err, ErrExitBeforeEntry) ||
		errors.Is(err, ErrInvalidRegistration) ||
		errors.Is(err, ErrInvalidSelection) ||
		errors.Is(err, ErrUnknownCategory)
}

// IsUnknownCategoryError checks if the error is an unknown category error
func IsUnknownCategoryError(err error) bool {
	return errors.Is(err, ErrUnknownCategory)
}

// IsNoCapacityError checks if the facility is full for the requested category
func IsNoCapacityError(err error) bool {
	return errors.Is(err, ErrParkingFull)
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTicketNotFound)
}

// IsInvalidStateError checks if the error signals an inconsistent spot or ticket state
func IsInvalidStateError(err error) bool {
	return errors.Is(err, ErrSpotAlreadyAvailable) ||
		errors.Is(err, ErrSpotAlreadyOccupied) ||
		errors.Is(err, ErrUnknownSpot) ||
		errors.Is(err, ErrVehicleAlreadyParked) ||
		errors.Is(err, ErrTicketAlreadyClosed)
}

// IsOperationalError checks for expected outcomes reported to the end user,
// as opposed to programming or persistence errors
func IsOperationalError(err error) bool {
	return IsNoCapacityError(err) || IsNotFoundError(err)
}
