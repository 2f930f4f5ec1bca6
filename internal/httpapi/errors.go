package httpapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joelkehle/ssfinder/internal/store"
)

const (
	CodeValidation  = "validation"
	CodeNotFound    = "not_found"
	CodeUnavailable = "unavailable"
	CodeInternal    = "internal"
)

// Error is the JSON error envelope returned by every handler.
type Error struct {
	Code       string
	Message    string
	Transient  bool
	RetryAfter int
	Status     int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func statusForCode(code string) int {
	switch code {
	case CodeValidation:
		return 400
	case CodeNotFound:
		return 404
	case CodeUnavailable:
		return 503
	default:
		return 500
	}
}

func newError(code, message string, transient bool) *Error {
	return &Error{Code: code, Message: message, Transient: transient, Status: statusForCode(code)}
}

func validationError(message string) *Error {
	return newError(CodeValidation, message, false)
}

// validationFromJoined flattens an errors.Join result into one message.
func validationFromJoined(err error) *Error {
	return validationError(strings.ReplaceAll(err.Error(), "\n", "; "))
}

func jsonError(err error) *Error {
	return validationError("invalid JSON: " + err.Error())
}

func notFound(message string) *Error {
	return newError(CodeNotFound, message, false)
}

func unavailable(message string) *Error {
	return &Error{Code: CodeUnavailable, Message: message, Transient: true, RetryAfter: 5, Status: 503}
}

// asAPIError maps store errors onto the envelope.
func asAPIError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(err.Error())
	}
	return err
}
