package patient

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationMode selects the rule set: registeredDate is only required on create.
type ValidationMode int

const (
	ModeCreate ValidationMode = iota
	ModeUpdate
)

const maxNameLength = 100

var validate = validator.New()

// Validate checks a request and returns every failing field with a message.
// An empty result means the request is valid for the given mode.
func Validate(req PatientRequest, mode ValidationMode) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(req.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "Name is Required"})
	} else if validate.Var(req.Name, fmt.Sprintf("max=%d", maxNameLength)) != nil {
		errs = append(errs, FieldError{Field: "name", Message: fmt.Sprintf("name Cannot Exceeds %d", maxNameLength)})
	}

	if strings.TrimSpace(req.Email) == "" {
		errs = append(errs, FieldError{Field: "email", Message: "Email is Required"})
	} else if validate.Var(req.Email, "email") != nil {
		errs = append(errs, FieldError{Field: "email", Message: "Email should be Valid"})
	}

	if strings.TrimSpace(req.Address) == "" {
		errs = append(errs, FieldError{Field: "address", Message: "Address is Required"})
	}

	errs = appendDateError(errs, "dateOfBirth", req.DateOfBirth, true, "Date Of Birth is Required")
	errs = appendDateError(errs, "registeredDate", req.RegisteredDate, mode == ModeCreate, "Registered date is Required")

	return errs
}

func appendDateError(errs []FieldError, field, value string, required bool, requiredMsg string) []FieldError {
	if strings.TrimSpace(value) == "" {
		if required {
			return append(errs, FieldError{Field: field, Message: requiredMsg})
		}
		return errs
	}
	if _, err := parseDate(value); err != nil {
		return append(errs, FieldError{Field: field, Message: "must be a date in YYYY-MM-DD format"})
	}
	return errs
}

func validationError(req PatientRequest, mode ValidationMode) error {
	fields := Validate(req, mode)
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
