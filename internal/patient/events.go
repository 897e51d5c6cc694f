package patient

import (
	"context"

	"github.com/WailSalutem-Health-Care/patient-service/internal/messaging"
)

// RabbitEventSender publishes patient events through a messaging publisher.
type RabbitEventSender struct {
	publisher messaging.PublisherInterface
}

func NewRabbitEventSender(publisher messaging.PublisherInterface) *RabbitEventSender {
	return &RabbitEventSender{publisher: publisher}
}

// SendPatientCreated publishes the patient created event keyed by patient id.
func (s *RabbitEventSender) SendPatientCreated(ctx context.Context, p Patient) error {
	resp := ToResponse(p)
	event := messaging.PatientCreatedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventPatientCreated),
		Data: messaging.PatientCreatedData{
			ID:          resp.ID,
			Name:        resp.Name,
			Email:       resp.Email,
			Address:     resp.Address,
			DateOfBirth: resp.DateOfBirth,
		},
	}
	return s.publisher.Publish(ctx, messaging.EventPatientCreated, resp.ID, event)
}
