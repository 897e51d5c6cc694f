package patient

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the ISO calendar date format used on the wire.
const DateLayout = "2006-01-02"

// Patient is the persisted patient record.
type Patient struct {
	ID             uuid.UUID
	Name           string
	Email          string
	Address        string
	DateOfBirth    time.Time
	RegisteredDate time.Time
}

// PatientRequest represents the create/update payload
type PatientRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Address        string `json:"address"`
	DateOfBirth    string `json:"dateOfBirth"`              // Format: YYYY-MM-DD
	RegisteredDate string `json:"registeredDate,omitempty"` // required on create only
}

// PatientResponse represents the patient data returned to clients
type PatientResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	DateOfBirth string `json:"dateOfBirth"`
}

// ToResponse maps a stored patient into its response shape.
// An absent date of birth is rendered as an empty string.
func ToResponse(p Patient) PatientResponse {
	dob := ""
	if !p.DateOfBirth.IsZero() {
		dob = p.DateOfBirth.Format(DateLayout)
	}
	return PatientResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Email:       p.Email,
		Address:     p.Address,
		DateOfBirth: dob,
	}
}

// ToModel maps a validated create request into a new Patient with no id.
func ToModel(req PatientRequest) (Patient, error) {
	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		return Patient{}, fmt.Errorf("date of birth: %w", err)
	}
	registered, err := parseDate(req.RegisteredDate)
	if err != nil {
		return Patient{}, fmt.Errorf("registered date: %w", err)
	}
	return Patient{
		Name:           req.Name,
		Email:          req.Email,
		Address:        req.Address,
		DateOfBirth:    dob,
		RegisteredDate: registered,
	}, nil
}

// apply overwrites the mutable fields of p from req.
// RegisteredDate is only replaced when the request carries one.
func apply(p *Patient, req PatientRequest) error {
	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		return fmt.Errorf("date of birth: %w", err)
	}
	p.Name = req.Name
	p.Email = req.Email
	p.Address = req.Address
	p.DateOfBirth = dob

	if req.RegisteredDate != "" {
		registered, err := parseDate(req.RegisteredDate)
		if err != nil {
			return fmt.Errorf("registered date: %w", err)
		}
		p.RegisteredDate = registered
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
