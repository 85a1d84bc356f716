package domain

import "errors"

// Error kinds. Every error returned by the tracker either wraps one of
// these or is an internal failure.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation error")
	ErrUnavailable  = errors.New("unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream failure")
)

// Error is a caller-facing error with a kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// NotFound returns an ErrNotFound error with msg.
func NotFound(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

// Conflict returns an ErrConflict error with msg.
func Conflict(msg string) error {
	return &Error{Kind: ErrConflict, Message: msg}
}

// Invalid returns an ErrValidation error with msg.
func Invalid(msg string) error {
	return &Error{Kind: ErrValidation, Message: msg}
}

// Unavailable returns an ErrUnavailable error with msg.
// The message is logged but never shown to callers.
func Unavailable(msg string) error {
	return &Error{Kind: ErrUnavailable, Message: msg}
}

// Unauthorized returns an ErrUnauthorized error with msg.
func Unauthorized(msg string) error {
	return &Error{Kind: ErrUnauthorized, Message: msg}
}

// Upstream returns an ErrUpstream error with msg. Used when a third-party
// API failed; the message is shown to callers.
func Upstream(msg string) error {
	return &Error{Kind: ErrUpstream, Message: msg}
}
