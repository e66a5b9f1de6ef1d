// Package apperr standardizes failure semantics across the catalog domain.
//
// Every error crossing a service boundary is wrapped here; raw storage or
// driver errors never reach callers directly.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

type Code string

const (
	CodeInvalidArgument     Code = "invalid_argument"
	CodeNotFound            Code = "not_found"
	CodeTitleUnavailable    Code = "title_unavailable"
	CodeConcurrencyConflict Code = "concurrency_conflict"
	CodeCurrencyMismatch    Code = "currency_mismatch"
	CodeInternal            Code = "internal"
)

// Error is the canonical domain error wrapper.
type Error struct {
	Code    Code
	Op      string
	Message string
	Cause   error

	// Title carries the conflicting title for CodeTitleUnavailable.
	Title string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

func InvalidArgument(op, message string) error {
	return New(CodeInvalidArgument, op, message, nil)
}

func NotFound(op, message string) error {
	return New(CodeNotFound, op, message, nil)
}

func CurrencyMismatch(op, message string) error {
	return New(CodeCurrencyMismatch, op, message, nil)
}

// TitleUnavailable reports a title-uniqueness conflict, keeping the
// attempted title so callers can surface it.
func TitleUnavailable(op, title string, cause error) error {
	return &Error{
		Code:    CodeTitleUnavailable,
		Op:      strings.TrimSpace(op),
		Message: fmt.Sprintf("title %q is already taken", title),
		Cause:   cause,
		Title:   title,
	}
}

func ConcurrencyConflict(op, message string) error {
	return New(CodeConcurrencyConflict, op, message, nil)
}

func Internal(op string, cause error) error {
	return New(CodeInternal, op, "", cause)
}

// CodeOf extracts the domain code from an error chain, defaulting to
// CodeInternal for anything unwrapped.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Code
	}
	return CodeInternal
}

func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

func IsNotFound(err error) bool { return IsCode(err, CodeNotFound) }

func IsInvalidArgument(err error) bool { return IsCode(err, CodeInvalidArgument) }

func IsTitleUnavailable(err error) bool { return IsCode(err, CodeTitleUnavailable) }

func IsConcurrencyConflict(err error) bool { return IsCode(err, CodeConcurrencyConflict) }

// ConflictingTitle returns the title attached to a title_unavailable error,
// or "" when the error is something else.
func ConflictingTitle(err error) string {
	var e *Error
	if errors.As(err, &e) && e != nil && e.Code == CodeTitleUnavailable {
		return e.Title
	}
	return ""
}
