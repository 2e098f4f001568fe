package service

import (
	"errors"
	"fmt"
)

var (
	ErrModelUnavailable = errors.New("model unavailable")
	ErrEmptyEmail       = errors.New("email text is empty")
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrStorageFailure   = errors.New("storage failure")
)

// SynthesisError is returned by a TicketAgent for any failure of the LLM step.
// The triage service always recovers from it through the fallback path.
type SynthesisError struct {
	Stage string
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("llm synthesis failed at %s: %v", e.Stage, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// ValidationError reports a ticket field that violates its invariant.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid ticket: %s %s", e.Field, e.Reason)
}
