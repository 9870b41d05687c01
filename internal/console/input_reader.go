package console

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Wardenfar/parkingsystem/internal/domain"
)

// InputReader collects vehicle details from a line-oriented stream
type InputReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewInputReader creates a reader that prompts on out
func NewInputReader(in io.Reader, out io.Writer) *InputReader {
	return &InputReader{
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

// readLine returns the next trimmed line, io.EOF when the stream ends
func (r *InputReader) readLine() (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return "", io.EOF
	}
	return strings.TrimSpace(r.scanner.Text()), nil
}

// ReadSelection reads a menu number. Non-numeric input yields -1.
func (r *InputReader) ReadSelection() (int, error) {
	line, err := r.readLine()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return -1, nil
	}
	return n, nil
}

// ReadCategorySelection prompts until a known vehicle type is chosen
func (r *InputReader) ReadCategorySelection() (domain.VehicleCategory, error) {
	for {
		fmt.Fprintln(r.out, "Please select vehicle type from menu")
		fmt.Fprintln(r.out, "1 CAR")
		fmt.Fprintln(r.out, "2 BIKE")

		selection, err := r.ReadSelection()
		if err != nil {
			return "", err
		}
		category, err := domain.CategoryFromSelection(selection)
		if err == nil {
			return category, nil
		}
		fmt.Fprintln(r.out, "Incorrect input provided")
	}
}

// ReadRegistrationNumber prompts until a non-blank registration is entered
func (r *InputReader) ReadRegistrationNumber() (string, error) {
	for {
		fmt.Fprintln(r.out, "Please type the vehicle registration number and press enter key")

		line, err := r.readLine()
		if err != nil {
			return "", err
		}
		reg, err := domain.NormalizeRegistration(line)
		if err == nil {
			return reg, nil
		}
		fmt.Fprintln(r.out, "Invalid input provided")
	}
}
