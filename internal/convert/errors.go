package convert

import (
	"errors"
	"fmt"
)

var (
	ErrLength        = errors.New("convert: length mismatch")
	ErrNonASCII      = errors.New("convert: input contains non-ASCII bytes")
	ErrHex           = errors.New("convert: malformed hex")
	ErrNumber        = errors.New("convert: malformed or out of range number")
	ErrTokenCount    = errors.New("convert: wrong token count")
	ErrToken         = errors.New("convert: illegal token")
	ErrInvalidParams = errors.New("convert: invalid converter parameters")
	ErrNameExists    = errors.New("convert: converter name already registered")
)

// Direction names the side a conversion produces.
type Direction string

const (
	TowardsBroker Direction = "towards_broker"
	TowardsBus    Direction = "towards_bus"
)

// Error is the typed result of a failed conversion.
type Error struct {
	Converter string
	Direction Direction
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("convert %s %s: %v", e.Converter, e.Direction, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fail(c *Converter, dir Direction, sentinel error, format string, args ...any) *Error {
	err := sentinel
	if format != "" {
		err = fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)
	}
	return &Error{Converter: c.name, Direction: dir, Err: err}
}
