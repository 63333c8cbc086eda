package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks a missing or invalid required setting.
	ErrConfiguration = errors.New("configuration error")
	// ErrProvider marks a failed call to an embedding, completion or vector store service.
	ErrProvider = errors.New("provider error")
	// ErrArgument marks inconsistent arguments, such as mismatched batch lengths.
	ErrArgument = errors.New("argument error")
)

// ProviderError describes a failed call to an external service. Detail holds
// the response body verbatim when the service answered with a non-success status.
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Detail     string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Provider, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

func NewProviderError(provider, op string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// NewStatusError reports a non-success response together with its body.
func NewStatusError(provider, op string, status int, body string) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, StatusCode: status, Detail: body}
}
