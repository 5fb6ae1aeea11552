package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by every layer of the client.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeIllegalTransition = "ILLEGAL_TRANSITION"
	CodeForbidden         = "FORBIDDEN"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeNetworkFailure    = "NETWORK_FAILURE"
	CodeUnsupported       = "UNSUPPORTED_OPERATION"
	CodeConflict          = "CONFLICT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInternal          = "INTERNAL_ERROR"
)

// GenericNetworkMessage is shown when the backend gave no usable message.
const GenericNetworkMessage = "Unable to reach the helpdesk service. Please try again."

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewIllegalTransition reports a status edge the lifecycle does not define.
func NewIllegalTransition(from, to string) error {
	return NewDomainError(CodeIllegalTransition,
		fmt.Sprintf("cannot move ticket from %s to %s", from, to),
		http.StatusUnprocessableEntity,
		map[string]any{"from": from, "to": to})
}

// NewUnsupported reports an operation the client deliberately does not offer.
func NewUnsupported(operation string) error {
	return NewDomainError(CodeUnsupported,
		fmt.Sprintf("%s is not supported", operation),
		http.StatusNotImplemented,
		map[string]any{"operation": operation})
}

// NewNetworkFailure wraps a transport or backend failure. An empty message
// falls back to GenericNetworkMessage.
func NewNetworkFailure(status int, message string, err error) error {
	if message == "" {
		message = GenericNetworkMessage
	}
	return &DomainError{
		Code:       CodeNetworkFailure,
		Message:    message,
		HTTPStatus: status,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// CodeOf returns the code of err, or the empty string for nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	return ToDomainError(err).Code
}
