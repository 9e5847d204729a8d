package gateway

import (
	"errors"
	"fmt"
)

// APIError is a business failure reported by the provider (Success: false).
type APIError struct {
	Code    string
	Message string
	Details string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway: provider error %s: %s: %s", e.Code, e.Message, e.Details)
}

// TransportError is a network-level failure talking to the provider. It is
// distinct from a provider-reported business failure: the request may or may
// not have reached the provider.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
