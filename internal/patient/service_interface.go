package patient

import "context"

// ServiceInterface defines the contract for patient business logic operations
type ServiceInterface interface {
	ListPatients(ctx context.Context) ([]PatientResponse, error)
	GetPatient(ctx context.Context, id string) (*PatientResponse, error)
	CreatePatient(ctx context.Context, req PatientRequest) (*PatientResponse, error)
	UpdatePatient(ctx context.Context, id string, req PatientRequest) (*PatientResponse, error)
	DeletePatient(ctx context.Context, id string) error
}

// BillingProvisioner creates the billing account for a newly registered patient.
type BillingProvisioner interface {
	CreateBillingAccount(ctx context.Context, patientID, name, email string) error
}

// EventSender emits the patient created domain event.
type EventSender interface {
	SendPatientCreated(ctx context.Context, p Patient) error
}

var _ ServiceInterface = (*Service)(nil)
