package patient

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmailTaken is returned by a Store when a save would duplicate an existing email.
	ErrEmailTaken = errors.New("email already registered")
	ErrInvalidID  = errors.New("invalid patient id")
)

// ErrorKind is the stable category name surfaced to clients.
type ErrorKind string

const (
	KindValidation         ErrorKind = "Validation"
	KindEmailAlreadyExists ErrorKind = "EmailAlreadyExists"
	KindPatientNotFound    ErrorKind = "PatientNotFound"
	KindDependency         ErrorKind = "Dependency"
)

// FieldError is a single field -> message pair produced by Validate.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// ConflictError means the email uniqueness invariant would be violated.
type ConflictError struct {
	Kind  ErrorKind
	Email string
}

func (e *ConflictError) Error() string {
	return "A patient is already registered with this Email " + e.Email
}

// NotFoundError means the referenced patient id does not exist.
type NotFoundError struct {
	Kind ErrorKind
	ID   string
}

func (e *NotFoundError) Error() string {
	return "Patient is not found with ID :: " + e.ID
}

// DependencyError wraps a failure of a remote collaborator.
// Compensated reports whether the local write was rolled back.
type DependencyError struct {
	Dependency  string
	Compensated bool
	Err         error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s call failed: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

func newConflict(email string) *ConflictError {
	return &ConflictError{Kind: KindEmailAlreadyExists, Email: email}
}

func newNotFound(id string) *NotFoundError {
	return &NotFoundError{Kind: KindPatientNotFound, ID: id}
}

// ErrorKindOf classifies err, returning "" for errors outside the domain taxonomy.
func ErrorKindOf(err error) ErrorKind {
	var (
		ve *ValidationError
		ce *ConflictError
		ne *NotFoundError
		de *DependencyError
	)
	switch {
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &ce):
		return ce.Kind
	case errors.As(err, &ne):
		return ne.Kind
	case errors.As(err, &de):
		return KindDependency
	}
	return ""
}
