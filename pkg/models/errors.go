package models

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a domain error for transport mapping.
type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "not_found"
	ErrCodeValidation    ErrorCode = "validation"
	ErrCodeAuthorization ErrorCode = "authorization"
	ErrCodeConflict      ErrorCode = "conflict"
)

// DomainError is the error type surfaced by the catalog, resolver, checklist
// and transition services. All of them fail synchronously with no partial
// commit; none are retried internally.
type DomainError struct {
	Code    ErrorCode
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NotFoundf reports a referenced entity that does not exist.
func NotFoundf(format string, args ...any) *DomainError {
	return &DomainError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validationf reports malformed input or a violated workflow rule.
func Validationf(format string, args ...any) *DomainError {
	return &DomainError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Authorizationf reports an actor lacking the role a task or operation requires.
func Authorizationf(format string, args ...any) *DomainError {
	return &DomainError{Code: ErrCodeAuthorization, Message: fmt.Sprintf(format, args...)}
}

// Conflictf reports a uniqueness collision, such as a duplicate workflow key.
func Conflictf(format string, args ...any) *DomainError {
	return &DomainError{Code: ErrCodeConflict, Message: fmt.Sprintf(format, args...)}
}

func hasCode(err error, code ErrorCode) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}

func IsNotFound(err error) bool      { return hasCode(err, ErrCodeNotFound) }
func IsValidation(err error) bool    { return hasCode(err, ErrCodeValidation) }
func IsAuthorization(err error) bool { return hasCode(err, ErrCodeAuthorization) }
func IsConflict(err error) bool      { return hasCode(err, ErrCodeConflict) }
