package social

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-identity"
)

// ProviderError captures normalized provider response details.
type ProviderError struct {
	Provider  string
	Operation string
	Status    int
	Err       error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}

	scope := "provider"
	if e.Provider != "" && e.Operation != "" {
		scope = fmt.Sprintf("%s %s", e.Provider, e.Operation)
	} else if e.Provider != "" {
		scope = e.Provider
	} else if e.Operation != "" {
		scope = e.Operation
	}

	if e.Status != 0 {
		return fmt.Sprintf("%s failed: status %d", scope, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	}

	return fmt.Sprintf("%s failed", scope)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Metadata never includes upstream response bodies.
func (e *ProviderError) Metadata() map[string]any {
	if e == nil {
		return nil
	}

	meta := map[string]any{}
	if e.Provider != "" {
		meta["provider"] = e.Provider
	}
	if e.Operation != "" {
		meta["operation"] = e.Operation
	}
	if e.Status != 0 {
		meta["status"] = e.Status
	}

	return meta
}

// UpstreamError wraps a failed provider call in identity.ErrUpstreamUnavailable.
func UpstreamError(provider, operation string, status int, err error) error {
	perr := &ProviderError{
		Provider:  provider,
		Operation: operation,
		Status:    status,
		Err:       err,
	}
	return identity.NewUpstreamUnavailable(perr, perr.Metadata())
}

// AsProviderError extracts the ProviderError behind an upstream failure.
func AsProviderError(err error) (*ProviderError, bool) {
	var perr *ProviderError
	if errors.As(err, &perr) && perr != nil {
		return perr, true
	}
	return nil, false
}
