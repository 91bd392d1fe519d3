// Package domainerrors provides coded errors for the trust and enforcement
// domain. Services construct these at the boundary where infrastructure or
// validation failures become caller-visible outcomes; transports map codes to
// status responses without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for callers and transports.
type Code string

const (
	// CodeInvalidInput marks malformed caller input (bad surface, bad verdict,
	// empty identifiers).
	CodeInvalidInput Code = "invalid_input"
	// CodeInvariantViolation marks a broken domain invariant detected at
	// construction time.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeNotFound marks a missing case, restriction, or user record.
	CodeNotFound Code = "not_found"
	// CodeRateLimited marks a write rejected by an active cooldown; the
	// RetryAfter on the error carries the remaining TTL in seconds.
	CodeRateLimited Code = "cooldown_active"
	// CodeCaptchaRequired marks a write that must re-attempt with a solved
	// captcha.
	CodeCaptchaRequired Code = "captcha_required"
	// CodePolicyInvalid marks a malformed policy document or rule. Fatal at
	// load time; never produced during evaluation.
	CodePolicyInvalid Code = "policy_invalid"
	// CodeUnavailable marks storage or stream infrastructure being
	// unreachable. Write paths fail closed on this code.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks unexpected failures with no better classification.
	CodeInternal Code = "internal"
)

// Error is a coded domain error with an optional wrapped cause.
type Error struct {
	ErrCode Code
	Message string
	// RetryAfter is the number of seconds until the operation may be retried.
	// Only meaningful for CodeRateLimited.
	RetryAfter int
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.ErrCode, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.ErrCode, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{ErrCode: code, Message: message}
}

// Newf constructs a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{ErrCode: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. A nil cause
// returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{ErrCode: code, Message: message, cause: err}
}

// RateLimited constructs a cooldown rejection carrying the retry-after TTL.
func RateLimited(retryAfterSeconds int) *Error {
	return &Error{
		ErrCode:    CodeRateLimited,
		Message:    "cooldown active",
		RetryAfter: retryAfterSeconds,
	}
}

// CodeOf extracts the domain code from err, walking the wrap chain.
// Returns CodeInternal for non-domain errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.ErrCode
	}
	return CodeInternal
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.ErrCode == code
	}
	return false
}
