// Package apperr defines the error taxonomy surfaced by the API. Collaborator
// degradation (grading, evidence upload, email) is deliberately absent: those
// failures are absorbed with safe defaults and never reach a caller.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	// KindInternal is the catch-all for unexpected failures.
	KindInternal Kind = iota
	// KindValidation marks client-fixable bad input.
	KindValidation
	// KindDuplicate marks a submission that already exists.
	KindDuplicate
	// KindUnauthorized marks a missing or expired session.
	KindUnauthorized
	// KindForbidden marks a role-gated operation.
	KindForbidden
	// KindNotFound marks an operation on a nonexistent entity.
	KindNotFound
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a client-fixable bad-input error.
func Validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }

// Duplicate returns an already-submitted error.
func Duplicate(msg string) error { return &Error{Kind: KindDuplicate, Message: msg} }

// Unauthorized returns a missing-session error.
func Unauthorized(msg string) error { return &Error{Kind: KindUnauthorized, Message: msg} }

// Forbidden returns a role-gate error.
func Forbidden(msg string) error { return &Error{Kind: KindForbidden, Message: msg} }

// NotFound returns a missing-entity error.
func NotFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf extracts the kind of an error, KindInternal for unclassified ones.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindDuplicate:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
