package routing

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedRecord  = errors.New("routing: malformed record")
	ErrInvalidID        = errors.New("routing: invalid CAN ID")
	ErrUnknownConverter = errors.New("routing: invalid convertmode")
	ErrDuplicateID      = errors.New("routing: CAN ID already exists")
	ErrDuplicateTopic   = errors.New("routing: topic already exists")
	ErrEmptyTopic       = errors.New("routing: empty topic")
)

// LineError ties a configuration error to its line in the route file.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

func lineErr(line int, sentinel error, format string, args ...any) error {
	return &LineError{
		Line: line,
		Err:  fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...),
	}
}
