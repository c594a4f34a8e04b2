package capture

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig  = errors.New("invalid capture config")
	ErrRenderer       = errors.New("renderer error")
	ErrEmptyInput     = errors.New("no segments to stitch")
	ErrFormatMismatch = errors.New("segment format mismatch")
)

// Error is a capture failure tagged with one of the sentinel kinds above.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidConfig builds an ErrInvalidConfig error.
func InvalidConfig(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrInvalidConfig, Op: op, Err: fmt.Errorf(format, args...)}
}

// RendererError wraps a renderer failure. A nil err stays nil.
func RendererError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ErrRenderer, Op: op, Err: err}
}

// FormatMismatch builds an ErrFormatMismatch error.
func FormatMismatch(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrFormatMismatch, Op: op, Err: fmt.Errorf(format, args...)}
}

// Kind returns the sentinel kind of err, or nil when err is not a capture error.
func Kind(err error) error {
	for _, kind := range []error{ErrInvalidConfig, ErrRenderer, ErrEmptyInput, ErrFormatMismatch} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
