package ai

import (
	"context"
	"errors"
	"fmt"
)

// Client completes a single system+user exchange into plain text.
// Implementations classify failures via *GenerationError.
type Client interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

type ErrorKind string

const (
	// ErrTransient covers timeouts, connection resets and 5xx answers.
	ErrTransient ErrorKind = "transient"
	// ErrQuota covers rate-limit and billing rejections.
	ErrQuota ErrorKind = "quota"
	// ErrInvalid covers malformed requests and unusable responses.
	ErrInvalid ErrorKind = "invalid"
)

type GenerationError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s provider %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func newGenerationError(provider string, kind ErrorKind, err error) *GenerationError {
	return &GenerationError{Provider: provider, Kind: kind, Err: err}
}

// KindOf reports the classification of err, or empty when err is not a
// generation failure.
func KindOf(err error) ErrorKind {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return ""
}
