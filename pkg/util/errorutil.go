package util

import (
	"errors"
	"fmt"
	"net/http"
)

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
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

// NewDuplicateUser reports a register attempt on an email that already has an
// account. Returned as 400 to match the public register contract.
func NewDuplicateUser() error {
	return NewDomainError("DUPLICATE_USER", "user with this email already exists", http.StatusBadRequest, nil)
}

// NewInvalidCredentials deliberately carries the same message whether the
// email is unknown or the password is wrong, so account existence never leaks.
func NewInvalidCredentials() error {
	return NewDomainError("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, nil)
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

// NewUserNotFound covers the race where a verified token references a user
// record that no longer exists.
func NewUserNotFound() error {
	return NewDomainError("USER_NOT_FOUND", "user not found", http.StatusNotFound, nil)
}

// NewNoSuchSession reports a message dispatch to an unknown or closed SSE
// session id.
func NewNoSuchSession(sessionID string) error {
	return NewDomainError("NO_SUCH_SESSION", "no session found for id",
		http.StatusBadRequest, map[string]any{"session_id": sessionID})
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
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
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	return ToDomainError(err)
}
