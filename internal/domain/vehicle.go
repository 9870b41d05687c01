package domain

import (
	"fmt"
	"strings"
)

// VehicleCategory determines the hourly rate and the spot pool a vehicle uses
type VehicleCategory string

const (
	CategoryCar  VehicleCategory = "CAR"
	CategoryBike VehicleCategory = "BIKE"
)

// Categories lists every supported category in spot-numbering order
var Categories = []VehicleCategory{CategoryCar, CategoryBike}

// String returns the string representation
func (c VehicleCategory) String() string {
	return string(c)
}

// IsValid checks if the category is known
func (c VehicleCategory) IsValid() bool {
	switch c {
	case CategoryCar, CategoryBike:
		return true
	}
	return false
}

// ParseVehicleCategory parses a category name, case-insensitively
func ParseVehicleCategory(s string) (VehicleCategory, error) {
	c := VehicleCategory(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// CategoryFromSelection maps the console menu selection (1 = CAR, 2 = BIKE)
func CategoryFromSelection(selection int) (VehicleCategory, error) {
	switch selection {
	case 1:
		return CategoryCar, nil
	case 2:
		return CategoryBike, nil
	default:
		return "", fmt.Errorf("%w: selection %d", ErrInvalidSelection, selection)
	}
}

// NormalizeRegistration trims a registration number and rejects empty input
func NormalizeRegistration(reg string) (string, error) {
	reg = strings.TrimSpace(reg)
	if reg == "" {
		return "", ErrInvalidRegistration
	}
	return reg, nil
}
