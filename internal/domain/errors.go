package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientData  = errors.New("insufficient reviews for analysis")
	ErrAlreadyInProgress = errors.New("analysis already in progress")
	ErrRateLimited       = errors.New("rate limited")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotConfigured     = errors.New("not configured")
)

// PreconditionError is the only error kind the analysis path hands back to
// callers; everything else degrades to a fallback value.
type PreconditionError struct {
	Property string
	Err      error
	Detail   string
}

func (e *PreconditionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Property, e.Err, e.Detail)
	}
	return fmt.Sprintf("%s: %v", e.Property, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }
