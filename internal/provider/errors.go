package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel values for matching error classes with errors.Is.
var (
	ErrConfiguration         = errors.New("configuration error")
	ErrUnknownProvider       = errors.New("unknown provider")
	ErrModelNotFound         = errors.New("model not found")
	ErrValidation            = errors.New("validation error")
	ErrUnsupportedCapability = errors.New("unsupported capability")
	ErrProviderRequest       = errors.New("provider request failed")
	ErrRequestCancelled      = errors.New("request was cancelled")
	ErrRequestInProgress     = errors.New("request already in progress")
)

// ConfigurationError reports a missing provider, model or credential.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string        { return e.Message }
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// UnknownProviderError is returned for names absent from a registry.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider: %s", e.Name)
}
func (e *UnknownProviderError) Is(target error) bool { return target == ErrUnknownProvider }

// ModelNotFoundError is returned when a model id is not in the provider's listing.
type ModelNotFoundError struct {
	ModelID string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model %s not found", e.ModelID)
}
func (e *ModelNotFoundError) Is(target error) bool { return target == ErrModelNotFound }

// ValidationError reports an input outside the accepted range.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UnsupportedCapabilityError is returned when a vendor lacks a feature, e.g. speech.
type UnsupportedCapabilityError struct {
	Provider   string
	Capability string
}

func (e *UnsupportedCapabilityError) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Provider, e.Capability)
}
func (e *UnsupportedCapabilityError) Is(target error) bool { return target == ErrUnsupportedCapability }

// ErrorKind classifies a vendor failure.
type ErrorKind string

const (
	KindAPIError  ErrorKind = "api_error"
	KindRateLimit ErrorKind = "rate_limit"
	KindAuth      ErrorKind = "auth_error"
	KindNotFound  ErrorKind = "not_found"
	KindTransport ErrorKind = "transport_error"
)

// ProviderRequestError wraps a non-success vendor response or a transport failure.
type ProviderRequestError struct {
	Provider   string
	Message    string
	StatusCode int
	Kind       ErrorKind
	Retryable  bool
	Original   error
}

func (e *ProviderRequestError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderRequestError) Unwrap() error        { return e.Original }
func (e *ProviderRequestError) Is(target error) bool { return target == ErrProviderRequest }

// NewProviderRequestError classifies a failure by its HTTP status code.
func NewProviderRequestError(provider, message string, statusCode int, original error) *ProviderRequestError {
	kind, retryable := ClassifyStatus(statusCode)
	return &ProviderRequestError{
		Provider:   provider,
		Message:    message,
		StatusCode: statusCode,
		Kind:       kind,
		Retryable:  retryable,
		Original:   original,
	}
}

// ClassifyStatus maps an HTTP status code to an error kind and whether a
// retry could succeed. A zero code means the request never got a response.
func ClassifyStatus(statusCode int) (ErrorKind, bool) {
	switch {
	case statusCode == 0:
		return KindTransport, true
	case statusCode == http.StatusTooManyRequests:
		return KindRateLimit, true
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return KindAuth, false
	case statusCode == http.StatusNotFound:
		return KindNotFound, false
	case statusCode >= 500:
		return KindAPIError, true
	default:
		return KindAPIError, false
	}
}

// RequestCancelledError is returned when an in-flight request is aborted.
type RequestCancelledError struct{}

func (e *RequestCancelledError) Error() string        { return "Request was cancelled" }
func (e *RequestCancelledError) Is(target error) bool { return target == ErrRequestCancelled }

// RequestInProgressError is returned when a second request is started while
// one is still in flight on the same orchestrator.
type RequestInProgressError struct{}

func (e *RequestInProgressError) Error() string {
	return "another request is already in progress"
}
func (e *RequestInProgressError) Is(target error) bool { return target == ErrRequestInProgress }
