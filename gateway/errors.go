package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the gateway client.
var (
	// ErrInvalidConfig indicates invalid client configuration.
	ErrInvalidConfig = errors.New("invalid gateway configuration")

	// ErrNoCredential indicates no bearer credential could be obtained.
	ErrNoCredential = errors.New("no bearer credential available")
)

// Kind classifies a gateway failure into one of a small set of
// caller-facing categories. Callers are expected to branch on Kind,
// not on message text.
type Kind int

const (
	// KindUnknown is the catch-all for responses that fit no other kind.
	KindUnknown Kind = iota

	// KindAuthenticationFailed covers 401/403 responses and failed token
	// acquisition. Retrying with the same credentials cannot succeed.
	KindAuthenticationFailed

	// KindValidationFailed covers 400/404 responses. The request itself
	// is malformed or addresses a missing resource; caller-fixable.
	KindValidationFailed

	// KindTransient covers 5xx responses, timeouts and requests that
	// produced no response at all. Eligible for retry.
	KindTransient

	// KindDomainFailure covers responses the transport accepted (2xx)
	// whose body encodes a business-level rejection.
	KindDomainFailure
)

// String returns the kind name used in logs and error messages.
func (k Kind) String() string {
	switch k {
	case KindAuthenticationFailed:
		return "authentication_failed"
	case KindValidationFailed:
		return "validation_failed"
	case KindTransient:
		return "transient"
	case KindDomainFailure:
		return "domain_failure"
	default:
		return "unknown"
	}
}

// Error is the single error type surfaced by the gateway client. The
// Kind tag carries the classification; Payload holds the upstream body
// verbatim when one was observed, so callers can inspect upstream
// diagnostic codes.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Op         string
	Payload    json.RawMessage
	cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("gateway: %s: %s: %s", e.Op, e.Kind, e.Message)
	}
	return fmt.Sprintf("gateway: %s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Retryable reports whether re-attempting the same request can succeed.
// Only transient failures qualify; a malformed request or a bad
// credential fails the same way every time.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransient
}

// IsAuthenticationFailed reports whether err carries KindAuthenticationFailed.
func IsAuthenticationFailed(err error) bool { return hasKind(err, KindAuthenticationFailed) }

// IsValidationFailed reports whether err carries KindValidationFailed.
func IsValidationFailed(err error) bool { return hasKind(err, KindValidationFailed) }

// IsTransient reports whether err carries KindTransient.
func IsTransient(err error) bool { return hasKind(err, KindTransient) }

// IsDomainFailure reports whether err carries KindDomainFailure.
func IsDomainFailure(err error) bool { return hasKind(err, KindDomainFailure) }

func hasKind(err error, kind Kind) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == kind
}

// Classify converts the outcome of a single HTTP exchange into an
// *Error. err is the transport-level failure (nil if a response was
// received); resp and body describe the response when one exists.
// Body-level business failures are not classified here; the caller
// applies its own success predicate after decoding.
func Classify(resp *http.Response, body []byte, err error) *Error {
	if err != nil {
		return &Error{
			Kind:    KindTransient,
			Message: err.Error(),
			cause:   err,
		}
	}

	ge := &Error{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("unexpected status %d", resp.StatusCode),
		Payload:    json.RawMessage(body),
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		ge.Kind = KindAuthenticationFailed
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		ge.Kind = KindValidationFailed
	case resp.StatusCode >= http.StatusInternalServerError:
		ge.Kind = KindTransient
	default:
		ge.Kind = KindUnknown
	}

	return ge
}
