package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/Wardenfar/parkingsystem/internal/domain"
	"github.com/Wardenfar/parkingsystem/internal/fare"
	"github.com/Wardenfar/parkingsystem/internal/service"
	"github.com/Wardenfar/parkingsystem/pkg/logger"
)

const (
	menuIncoming = 1
	menuExiting  = 2
	menuShutdown = 3
)

// Shell runs the interactive attendant menu
type Shell struct {
	input   *InputReader
	out     io.Writer
	parking service.ParkingService
	log     *logger.Logger
}

// NewShell creates a shell over the given streams
func NewShell(in io.Reader, out io.Writer, parking service.ParkingService, log *logger.Logger) *Shell {
	if log == nil {
		log = logger.Get()
	}
	return &Shell{
		input:   NewInputReader(in, out),
		out:     out,
		parking: parking,
		log:     log,
	}
}

// Run loops over the menu until shutdown is selected, the input ends or ctx is done.
// Workflow failures are printed and the loop continues.
func (s *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "Welcome to Parking System!")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		s.printMenu()
		selection, err := s.input.ReadSelection()
		if err != nil {
			return ignoreEOF(err)
		}

		switch selection {
		case menuIncoming:
			err = s.processIncoming(ctx)
		case menuExiting:
			err = s.processExiting(ctx)
		case menuShutdown:
			fmt.Fprintln(s.out, "Exiting from the system!")
			return nil
		default:
			fmt.Fprintln(s.out, "Unsupported option. Please enter a number corresponding to the provided menu")
			continue
		}
		if err != nil {
			return ignoreEOF(err)
		}
	}
}

func (s *Shell) printMenu() {
	fmt.Fprintln(s.out, "Please select an option. Simply enter the number to choose an action")
	fmt.Fprintln(s.out, "1 New Vehicle Entering - Allocate Parking Space")
	fmt.Fprintln(s.out, "2 Vehicle Exiting - Generate Ticket Price")
	fmt.Fprintln(s.out, "3 Shutdown System")
}

// processIncoming returns only input errors; workflow errors are reported
func (s *Shell) processIncoming(ctx context.Context) error {
	category, err := s.input.ReadCategorySelection()
	if err != nil {
		return err
	}
	reg, err := s.input.ReadRegistrationNumber()
	if err != nil {
		return err
	}

	res, err := s.parking.ProcessIncomingVehicle(ctx, service.EntryRequest{
		RegistrationNumber: reg,
		Category:           category,
	})
	if err != nil {
		s.report(reg, err)
		return nil
	}

	if res.Recurrent {
		fmt.Fprintf(s.out, "Welcome back! As a recurring user of our parking lot, you'll benefit from a %.0f%% discount.\n",
			fare.RecurrentDiscount*100)
	}
	fmt.Fprintln(s.out, "Generated Ticket and saved in DB")
	fmt.Fprintf(s.out, "Please park your vehicle in spot number: %d\n", res.Ticket.SpotID)
	fmt.Fprintf(s.out, "Recorded in-time for vehicle number: %s is: %s\n", reg, res.Ticket.EntryTime.Format(time.DateTime))
	return nil
}

func (s *Shell) processExiting(ctx context.Context) error {
	reg, err := s.input.ReadRegistrationNumber()
	if err != nil {
		return err
	}

	res, err := s.parking.ProcessExitingVehicle(ctx, service.ExitRequest{RegistrationNumber: reg})
	if err != nil {
		s.report(reg, err)
		return nil
	}

	fmt.Fprintf(s.out, "Please pay the parking fare: %.2f\n", res.Price)
	if res.DiscountApplied {
		fmt.Fprintf(s.out, "A %.0f%% recurring user discount was applied\n", fare.RecurrentDiscount*100)
	}
	fmt.Fprintf(s.out, "Recorded out-time for vehicle number: %s is: %s\n", reg, res.Ticket.ExitTime.Format(time.DateTime))
	return nil
}

func (s *Shell) report(reg string, err error) {
	switch {
	case domain.IsNoCapacityError(err):
		fmt.Fprintln(s.out, "Parking slots are full for this vehicle type, please try again later")
	case domain.IsNotFoundError(err):
		fmt.Fprintf(s.out, "No open ticket found for vehicle number: %s\n", reg)
	case errors.Is(err, domain.ErrVehicleAlreadyParked):
		fmt.Fprintf(s.out, "Vehicle number %s is already parked\n", reg)
	case errors.Is(err, domain.ErrTicketAlreadyClosed):
		fmt.Fprintf(s.out, "Vehicle number %s has already exited\n", reg)
	default:
		s.log.Error("Parking workflow failed", zap.String("registration_number", reg), zap.Error(err))
		fmt.Fprintln(s.out, "Unexpected error, please try again")
	}
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
