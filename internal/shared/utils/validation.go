package utils

import (
	"errors"
	"fmt"
)

// Payload limits (in bytes)
const (
	MaxRequestSize = 64 * 1024 // capture options body, same as the stream read limit
	MaxURLLength   = 8 * 1024
)

// ErrTooLarge marks payloads over the configured limit.
var ErrTooLarge = errors.New("payload too large")

// SizeValidator validates payload size limits
type SizeValidator struct {
	maxSize int
}

// NewSizeValidator creates a new validator with the specified max size
func NewSizeValidator(maxSize int) *SizeValidator {
	return &SizeValidator{maxSize: maxSize}
}

// DefaultRequestValidator returns a validator with the request body limit
func DefaultRequestValidator() *SizeValidator {
	return NewSizeValidator(MaxRequestSize)
}

// MaxSize returns the limit in bytes.
func (v *SizeValidator) MaxSize() int {
	return v.maxSize
}

// ValidateSize checks if the data size is within limits
func (v *SizeValidator) ValidateSize(data []byte) error {
	if size := len(data); size > v.maxSize {
		return fmt.Errorf("%w: %d bytes exceeds maximum %d bytes", ErrTooLarge, size, v.maxSize)
	}
	return nil
}

// ValidateURLLength rejects URLs longer than MaxURLLength.
func ValidateURLLength(raw string) error {
	if len(raw) > MaxURLLength {
		return fmt.Errorf("%w: url is %d bytes, maximum %d", ErrTooLarge, len(raw), MaxURLLength)
	}
	return nil
}
