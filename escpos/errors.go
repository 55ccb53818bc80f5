package escpos

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is matched by every range failure. Nothing is written
	// to the sink when an operation returns it.
	ErrInvalidArgument = errors.New("escpos: invalid argument")

	// ErrQRContentTooLong indicates QR content that does not fit the store
	// frame length field.
	ErrQRContentTooLong = fmt.Errorf("%w: qr content too long", ErrInvalidArgument)
)

// ArgumentError describes a numeric parameter outside its accepted range.
type ArgumentError struct {
	Op    string
	Arg   string
	Value int
	Min   int
	Max   int
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("escpos: %s: %s %d out of range [%d, %d]", e.Op, e.Arg, e.Value, e.Min, e.Max)
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func checkRange(op, arg string, v, lo, hi int) error {
	if v < lo || v > hi {
		return &ArgumentError{Op: op, Arg: arg, Value: v, Min: lo, Max: hi}
	}
	return nil
}
