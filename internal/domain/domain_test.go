package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVehicleCategory(t *testing.T) {
	tests := []struct {
		input   string
		want    VehicleCategory
		wantErr bool
	}{
		{"CAR", CategoryCar, false},
		{"bike", CategoryBike, false},
		{" Car ", CategoryCar, false},
		{"TRUCK", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVehicleCategory(tt.input)
			if tt.wantErr {
				assert.True(t, IsUnknownCategoryError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategoryFromSelection(t *testing.T) {
	c, err := CategoryFromSelection(1)
	require.NoError(t, err)
	assert.Equal(t, CategoryCar, c)

	c, err = CategoryFromSelection(2)
	require.NoError(t, err)
	assert.Equal(t, CategoryBike, c)

	_, err = CategoryFromSelection(3)
	assert.ErrorIs(t, err, ErrInvalidSelection)
	assert.True(t, IsInvalidInputError(err))
}

func TestNormalizeRegistration(t *testing.T) {
	reg, err := NormalizeRegistration("  ABCDEF ")
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF", reg)

	_, err = NormalizeRegistration("   ")
	assert.ErrorIs(t, err, ErrInvalidRegistration)
}

func TestBuildInventory(t *testing.T) {
	spots := BuildInventory(3, 2)

	require.Len(t, spots, 5)
	for i, s := range spots {
		assert.Equal(t, i+1, s.ID)
		assert.True(t, s.Available)
	}
	assert.Equal(t, CategoryCar, spots[2].Category)
	assert.Equal(t, CategoryBike, spots[3].Category)
}

func TestTicket_Close(t *testing.T) {
	entry := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	ticket := NewTicket("ABCDEF", ParkingSpot{ID: 1, Category: CategoryCar}, entry)

	assert.True(t, ticket.IsOpen())
	assert.NotEmpty(t, ticket.ID)
	assert.Zero(t, ticket.Price)

	exit := entry.Add(2 * time.Hour)
	require.NoError(t, ticket.Close(exit, 2.25))

	assert.False(t, ticket.IsOpen())
	assert.Equal(t, exit, *ticket.ExitTime)
	assert.Equal(t, 2.25, ticket.Price)
	assert.Equal(t, 2*time.Hour, ticket.Duration(exit.Add(time.Hour)))

	err := ticket.Close(exit.Add(time.Hour), 9)
	assert.ErrorIs(t, err, ErrTicketAlreadyClosed)
	assert.Equal(t, 2.25, ticket.Price)
}

func TestTicket_CloneIsDeep(t *testing.T) {
	entry := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	ticket := NewTicket("ABCDEF", ParkingSpot{ID: 1, Category: CategoryCar}, entry)
	require.NoError(t, ticket.Close(entry.Add(time.Hour), 0.75))

	c := ticket.Clone()
	*c.ExitTime = entry.Add(5 * time.Hour)

	assert.Equal(t, entry.Add(time.Hour), *ticket.ExitTime)
}

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("failed to assign: %w", ErrParkingFull)

	assert.True(t, IsNoCapacityError(wrapped))
	assert.True(t, IsOperationalError(wrapped))
	assert.True(t, IsOperationalError(ErrTicketNotFound))
	assert.True(t, IsInvalidStateError(ErrVehicleAlreadyParked))
	assert.True(t, IsInvalidStateError(ErrSpotAlreadyAvailable))
	assert.False(t, IsOperationalError(ErrSpotAlreadyAvailable))
	assert.False(t, IsInvalidInputError(fmt.Errorf("failed to save ticket: %w", assert.AnError)))
}
