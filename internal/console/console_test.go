package console

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wardenfar/parkingsystem/internal/allocator"
	"github.com/Wardenfar/parkingsystem/internal/domain"
	"github.com/Wardenfar/parkingsystem/internal/fare"
	"github.com/Wardenfar/parkingsystem/internal/repository"
	"github.com/Wardenfar/parkingsystem/internal/service"
	"github.com/Wardenfar/parkingsystem/pkg/clock"
	"github.com/Wardenfar/parkingsystem/pkg/logger"
)

func TestInputReader_ReadCategorySelection(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected domain.VehicleCategory
		retries  int
	}{
		{name: "car", input: "1\n", expected: domain.CategoryCar},
		{name: "bike", input: "2\n", expected: domain.CategoryBike},
		{name: "re-prompts on bad input", input: "7\nabc\n 2 \n", expected: domain.CategoryBike, retries: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			r := NewInputReader(strings.NewReader(tt.input), &out)

			got, err := r.ReadCategorySelection()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.retries, strings.Count(out.String(), "Incorrect input provided"))
		})
	}
}

func TestInputReader_EOF(t *testing.T) {
	r := NewInputReader(strings.NewReader("9\n"), io.Discard)

	_, err := r.ReadCategorySelection()
	assert.ErrorIs(t, err, io.EOF)

	_, err = r.ReadRegistrationNumber()
	assert.ErrorIs(t, err, io.EOF)
}

func TestInputReader_ReadRegistrationNumber(t *testing.T) {
	var out bytes.Buffer
	r := NewInputReader(strings.NewReader("\n   \n ABCDEF \n"), &out)

	reg, err := r.ReadRegistrationNumber()
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF", reg)
	assert.Equal(t, 2, strings.Count(out.String(), "Invalid input provided"))
}

func newTestShell(t *testing.T, input string, clk clock.Clock, cars, bikes int) (*Shell, *bytes.Buffer) {
	t.Helper()

	spots, err := allocator.New(domain.BuildInventory(cars, bikes))
	require.NoError(t, err)
	svc := service.NewParkingService(repository.NewMemoryTicketRepository(), spots, fare.NewCalculator(),
		&service.ParkingServiceConfig{Clock: clk, Logger: logger.NewNop()})

	var out bytes.Buffer
	return NewShell(strings.NewReader(input), &out, svc, logger.NewNop()), &out
}

func TestShell_EntryThenExit(t *testing.T) {
	// entry and exit share a clock, so the stay is free
	clk := clock.NewFixed(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	shell, out := newTestShell(t, "1\n1\nABCDEF\n2\nABCDEF\n3\n", clk, 3, 2)

	require.NoError(t, shell.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Please park your vehicle in spot number: 1")
	assert.Contains(t, text, "Recorded in-time for vehicle number: ABCDEF is: 2024-03-01 08:00:00")
	assert.Contains(t, text, "Please pay the parking fare: 0.00")
	assert.Contains(t, text, "Exiting from the system!")
	assert.NotContains(t, text, "Welcome back!")
}

func TestShell_ReportsOperationalOutcomes(t *testing.T) {
	clk := clock.NewFixed(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	input := strings.Join([]string{
		"2", "GHOST", // exit without ticket
		"1", "2", "BIKE-1", // fills the only bike spot
		"1", "2", "BIKE-2", // lot full
		"1", "2", "BIKE-1", // already parked
		"5", // unsupported option
		"3",
	}, "\n") + "\n"
	shell, out := newTestShell(t, input, clk, 1, 1)

	require.NoError(t, shell.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "No open ticket found for vehicle number: GHOST")
	assert.Contains(t, text, "Please park your vehicle in spot number: 2")
	assert.Contains(t, text, "Parking slots are full for this vehicle type")
	assert.Contains(t, text, "Vehicle number BIKE-1 is already parked")
	assert.Contains(t, text, "Unsupported option")
	assert.Contains(t, text, "Exiting from the system!")
}

func TestShell_RecurrentCustomer(t *testing.T) {
	clk := clock.NewManual(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	shell, out := newTestShell(t, "1\n1\nABCDEF\n2\nABCDEF\n1\n1\nABCDEF\n", clk, 3, 2)

	require.NoError(t, shell.Run(context.Background()), "end of input stops the shell")
	assert.Contains(t, out.String(), "Welcome back! As a recurring user of our parking lot, you'll benefit from a 5% discount.")
}

func TestShell_RecurrentFreeStayHasNoDiscount(t *testing.T) {
	clk := clock.NewFixed(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	shell, out := newTestShell(t, "1\n1\nABCDEF\n2\nABCDEF\n1\n1\nABCDEF\n2\nABCDEF\n3\n", clk, 3, 2)

	require.NoError(t, shell.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Welcome back!")
	assert.Equal(t, 2, strings.Count(text, "Please pay the parking fare: 0.00"))
	assert.NotContains(t, text, "recurring user discount was applied")
}

// closedExitService fails every exit as if another request closed the ticket first
type closedExitService struct {
	service.ParkingService
}

func (closedExitService) ProcessExitingVehicle(ctx context.Context, req service.ExitRequest) (*service.ExitResult, error) {
	return nil, domain.ErrTicketAlreadyClosed
}

func TestShell_ReportsAlreadyExited(t *testing.T) {
	var out bytes.Buffer
	shell := NewShell(strings.NewReader("2\nABCDEF\n3\n"), &out, closedExitService{}, logger.NewNop())

	require.NoError(t, shell.Run(context.Background()))

	assert.Contains(t, out.String(), "Vehicle number ABCDEF has already exited")
	assert.NotContains(t, out.String(), "Unexpected error")
}

func TestShell_StopsWhenContextDone(t *testing.T) {
	clk := clock.NewSystem()
	shell, out := newTestShell(t, "1\n1\nABCDEF\n", clk, 3, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, shell.Run(ctx))
	assert.NotContains(t, out.String(), "Please park")
}
