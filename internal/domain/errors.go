package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrNotFound         = errors.New("not found")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrDecodeFailure    = errors.New("image decode failure")
	ErrRenderFailure    = errors.New("render failure")
	ErrRenderTimeout    = errors.New("render timeout")
	ErrStorageFailure   = errors.New("storage failure")
)

// GenerationError is returned by the generation pipeline. GenerationID is
// empty only when the request was rejected before an id was allocated.
type GenerationError struct {
	GenerationID string
	Kind         error
	Err          error
}

func (e *GenerationError) Error() string {
	if e.GenerationID == "" {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("generation %s: %v: %v", e.GenerationID, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is.
func (e *GenerationError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Invalid wraps a validation message as ErrInvalidRequest.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
