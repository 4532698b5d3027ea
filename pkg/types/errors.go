package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind represents the categories of errors surfaced to API clients
type ErrorKind string

const (
	KindBadRequest       ErrorKind = "bad_request"
	KindUnauthorized     ErrorKind = "unauthorized"
	KindForbidden        ErrorKind = "forbidden"
	KindNotFound         ErrorKind = "not_found"
	KindConflict         ErrorKind = "conflict"
	KindMethodNotAllowed ErrorKind = "method_not_allowed"
	KindInternal         ErrorKind = "internal"
	KindExternal         ErrorKind = "external"
	KindUnavailable      ErrorKind = "unavailable"
)

// Messages rendered to clients for the kinds whose wording is fixed.
const (
	MsgUnauthorized     = "Unauthorized"
	MsgNoOrganization   = "User not associated with an organization"
	MsgMethodNotAllowed = "Method not allowed"
	MsgInternal         = "Internal server error"
)

// APIError is a classified error. Message is safe to show to clients; Cause is not.
type APIError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause error
func (e *APIError) Unwrap() error {
	return e.Cause
}

// StatusCode maps the error kind to its HTTP status
func (e *APIError) StatusCode() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindExternal:
		return http.StatusBadGateway
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewBadRequestError creates a new validation error
func NewBadRequestError(message string) *APIError {
	return &APIError{Kind: KindBadRequest, Message: message}
}

// NewMissingFieldsError reports the required fields absent from a create payload
func NewMissingFieldsError(fields []string) *APIError {
	return &APIError{
		Kind:    KindBadRequest,
		Message: "Missing required fields: " + strings.Join(fields, ", "),
	}
}

// NewUnauthorizedError creates a new authentication error
func NewUnauthorizedError(cause error) *APIError {
	return &APIError{Kind: KindUnauthorized, Message: MsgUnauthorized, Cause: cause}
}

// NewForbiddenError creates a new authorization error
func NewForbiddenError(message string) *APIError {
	return &APIError{Kind: KindForbidden, Message: message}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *APIError {
	return &APIError{Kind: KindNotFound, Message: message}
}

// NewConflictError reports a write that lost a race with another request
func NewConflictError(message string) *APIError {
	return &APIError{Kind: KindConflict, Message: message}
}

// NewMethodNotAllowedError creates the error returned for unsupported HTTP methods
func NewMethodNotAllowedError() *APIError {
	return &APIError{Kind: KindMethodNotAllowed, Message: MsgMethodNotAllowed}
}

// NewInternalError creates a new internal error. The message is never shown to clients.
func NewInternalError(message string, cause error) *APIError {
	return &APIError{Kind: KindInternal, Message: message, Cause: cause}
}

// NewExternalError creates an error for a failed downstream service call
func NewExternalError(message string, cause error) *APIError {
	return &APIError{Kind: KindExternal, Message: message, Cause: cause}
}

// NewUnavailableError creates an error for a feature whose backing service is not configured
func NewUnavailableError(message string) *APIError {
	return &APIError{Kind: KindUnavailable, Message: message}
}

// AsAPIError classifies err. Unclassified errors become internal errors.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewInternalError(MsgInternal, err)
}

// PublicMessage is the text rendered in the error body for err
func PublicMessage(err *APIError) string {
	if err.Kind == KindInternal {
		return MsgInternal
	}
	return err.Message
}

// IsNotFound reports whether err is classified as not found
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindNotFound
}
