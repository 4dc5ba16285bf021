// Package errkind classifies pipeline errors into the small set of kinds
// that the worker and leaser layers branch on: whether to retry, back off,
// or give up and record a terminal failure.
package errkind

import (
	"errors"
	"fmt"
)

// Kind is a coarse classification of a pipeline failure.
type Kind string

const (
	// Configuration indicates a setup problem (bad credentials, missing
	// site pattern) that retrying will not fix.
	Configuration Kind = "configuration"
	// Transient indicates a provider or network error that is expected
	// to clear on retry (timeouts, 5xx, connection resets).
	Transient Kind = "transient"
	// PaymentRequired indicates the provider account is out of credit.
	PaymentRequired Kind = "payment_required"
	// ParseFailure indicates the provider responded but the payload
	// could not be interpreted as job data.
	ParseFailure Kind = "parse_failure"
	// Captcha indicates the target site challenged the request.
	Captcha Kind = "captcha"
	// Cancellation indicates the operation was abandoned deliberately
	// (context cancelled, lease lost to another worker).
	Cancellation Kind = "cancellation"
)

// Error wraps an underlying error with a Kind so callers can branch on
// classification without string-matching messages.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with the given Kind. A nil err returns nil.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Newf builds a Kind error directly from a format string.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Of extracts the Kind from err, walking the wrap chain. The zero Kind
// ("") is returned when err carries no classification.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return Of(err) == kind
}

// Retryable reports whether the pipeline should retry the operation that
// produced err: transient errors and captcha challenges (up to the
// provider's own retry budget) are retryable, everything else is not.
func Retryable(err error) bool {
	switch Of(err) {
	case Transient, Captcha:
		return true
	default:
		return false
	}
}
