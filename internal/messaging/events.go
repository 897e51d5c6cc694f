package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Event routing keys as constants
const (
	EventPatientCreated = "patient.created"
)

const serviceName = "patient-service"

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// PatientCreatedEvent represents a patient creation event
type PatientCreatedEvent struct {
	BaseEvent
	Data PatientCreatedData `json:"data"`
}

type PatientCreatedData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	DateOfBirth string `json:"dateOfBirth"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: serviceName,
	}
}
