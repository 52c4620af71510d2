package otp

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a password reset failure for callers and HTTP mapping.
type Kind string

const (
	KindInvalidInput    Kind = "InvalidInput"
	KindNotFound        Kind = "NotFound"
	KindExpired         Kind = "Expired"
	KindAlreadyConsumed Kind = "AlreadyConsumed"
	KindTooManyAttempts Kind = "TooManyAttempts"
	KindInvalidCode     Kind = "InvalidCode"
	KindInvalidToken    Kind = "InvalidToken"
	KindAlreadyUsed     Kind = "AlreadyUsed"
	KindDeliveryFailure Kind = "DeliveryFailure"
	KindCooldownActive  Kind = "CooldownActive"
	KindInternal        Kind = "Internal"
)

// Error is the structured result returned by every Service operation on failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	// RetryAfter is set on CooldownActive.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrExpired) works
// regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "no verification code was requested for this email"}
	ErrExpired         = &Error{Kind: KindExpired, Message: "the code has expired, request a new one"}
	ErrAlreadyConsumed = &Error{Kind: KindAlreadyConsumed, Message: "the code has already been used, request a new one"}
	ErrTooManyAttempts = &Error{Kind: KindTooManyAttempts, Message: "too many incorrect attempts, request a new code"}
	ErrInvalidCode     = &Error{Kind: KindInvalidCode, Message: "the code is incorrect"}
	ErrInvalidToken    = &Error{Kind: KindInvalidToken, Message: "the reset token is invalid"}
	ErrTokenExpired    = &Error{Kind: KindExpired, Message: "the reset token has expired, verify a new code"}
	ErrAlreadyUsed     = &Error{Kind: KindAlreadyUsed, Message: "the reset token has already been used"}
	ErrCooldownActive  = &Error{Kind: KindCooldownActive, Message: "a code was sent recently, wait before requesting another"}
)

func invalidInput(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}

func internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf extracts the Kind of err, or KindInternal if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
