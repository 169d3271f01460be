// Package apperror defines the domain error taxonomy returned by services and
// translated to HTTP responses at the request boundary.
package apperror

import (
	"fmt"
	"net/http"
)

// HTTPError is implemented by every error in this package.
type HTTPError interface {
	error
	StatusCode() int
}

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StatusCode returns 422.
func (e *ValidationError) StatusCode() int {
	return http.StatusUnprocessableEntity
}

// NewValidation creates a ValidationError without field details.
func NewValidation(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NewFieldValidation creates a ValidationError for a single field.
func NewFieldValidation(field, reason string) *ValidationError {
	return &ValidationError{
		Message: "the given data was invalid",
		Fields:  map[string]string{field: reason},
	}
}

// PreconditionError reports missing prerequisite state, e.g. no stored location.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string {
	return e.Message
}

// StatusCode returns 400.
func (e *PreconditionError) StatusCode() int {
	return http.StatusBadRequest
}

// NewPrecondition creates a PreconditionError.
func NewPrecondition(message string) *PreconditionError {
	return &PreconditionError{Message: message}
}

// StateError reports an operation that the current resource state does not allow.
type StateError struct {
	Message string
}

func (e *StateError) Error() string {
	return e.Message
}

// StatusCode returns 422.
func (e *StateError) StatusCode() int {
	return http.StatusUnprocessableEntity
}

// NewState creates a StateError.
func NewState(format string, args ...any) *StateError {
	return &StateError{Message: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError reports a status change outside the allowed transition table.
// It unwraps to a StateError so callers can match either.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

// StatusCode returns 422.
func (e *InvalidTransitionError) StatusCode() int {
	return http.StatusUnprocessableEntity
}

func (e *InvalidTransitionError) Unwrap() error {
	return &StateError{Message: e.Error()}
}

// NewInvalidTransition creates an InvalidTransitionError.
func NewInvalidTransition(from, to string) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to}
}

// ConflictError reports a lost race on a concurrently modified resource.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode returns 409.
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// NewConflict creates a ConflictError.
func NewConflict(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// AuthorizationError reports a failed role or ownership check.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	return e.Message
}

// StatusCode returns 403.
func (e *AuthorizationError) StatusCode() int {
	return http.StatusForbidden
}

// NewAuthorization creates an AuthorizationError.
func NewAuthorization(message string) *AuthorizationError {
	return &AuthorizationError{Message: message}
}

// InvariantViolationError reports an operation that would break a global invariant,
// such as leaving the system without administrators.
type InvariantViolationError struct {
	Message string
}

func (e *InvariantViolationError) Error() string {
	return e.Message
}

// StatusCode returns 403.
func (e *InvariantViolationError) StatusCode() int {
	return http.StatusForbidden
}

// NewInvariantViolation creates an InvariantViolationError.
func NewInvariantViolation(message string) *InvariantViolationError {
	return &InvariantViolationError{Message: message}
}

// NotFoundError reports a missing resource.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// StatusCode returns 404.
func (e *NotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// NewNotFound creates a NotFoundError.
func NewNotFound(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// UnauthenticatedError reports a missing or invalid credential.
type UnauthenticatedError struct {
	Message string
}

func (e *UnauthenticatedError) Error() string {
	return e.Message
}

// StatusCode returns 401.
func (e *UnauthenticatedError) StatusCode() int {
	return http.StatusUnauthorized
}

// NewUnauthenticated creates an UnauthenticatedError.
func NewUnauthenticated(message string) *UnauthenticatedError {
	return &UnauthenticatedError{Message: message}
}
