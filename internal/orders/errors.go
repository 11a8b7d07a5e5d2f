package orders

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrNotOwner          = errors.New("order does not belong to customer")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrOrderReadOnly wraps ErrInvalidTransition: callers can tell
	// "this order is frozen" apart from "this pair is not allowed",
	// while errors.Is(err, ErrInvalidTransition) still matches both.
	ErrOrderReadOnly = fmt.Errorf("order is completed and read-only: %w", ErrInvalidTransition)
)

// StockShortageError carries the detail for the losing caller.
type StockShortageError struct {
	StoneID   int64
	Required  int64
	Available int64
}

func (e *StockShortageError) Error() string {
	return fmt.Sprintf("insufficient stock for stone %d: required %d, available %d",
		e.StoneID, e.Required, e.Available)
}

func (e *StockShortageError) Is(target error) bool { return target == ErrInsufficientStock }
