// Package apperr defines the closed set of business failures and their
// HTTP status mapping. Handlers branch on Kind, never on message text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInvalidRequest Kind = iota
	KindNotFound
	KindAlreadyExists
	KindConflict
	KindInsufficientStock
	KindInvalidCredentials
	KindUnauthorized
	KindForbidden
	KindStoreUnavailable
)

var statusByKind = map[Kind]int{
	KindInvalidRequest:     http.StatusBadRequest,
	KindNotFound:           http.StatusNotFound,
	KindAlreadyExists:      http.StatusConflict,
	KindConflict:           http.StatusConflict,
	KindInsufficientStock:  http.StatusBadRequest,
	KindInvalidCredentials: http.StatusUnauthorized,
	KindUnauthorized:       http.StatusUnauthorized,
	KindForbidden:          http.StatusForbidden,
	KindStoreUnavailable:   http.StatusServiceUnavailable,
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error while keeping it
// available through errors.Unwrap.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the kind of err, or ok=false when err is not an
// *Error anywhere in its chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// HTTPStatus maps an error to its response status. Errors outside the
// taxonomy are internal failures and map to 500.
func HTTPStatus(err error) int {
	if k, ok := KindOf(err); ok {
		if status, ok := statusByKind[k]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message safe to show a client. Internal and
// infrastructure failures are replaced with a generic message so no
// store detail leaks.
func PublicMessage(err error) string {
	k, ok := KindOf(err)
	if !ok {
		return "Internal server error"
	}
	if k == KindStoreUnavailable {
		return "Service temporarily unavailable"
	}
	var e *Error
	errors.As(err, &e)
	return e.Message
}
