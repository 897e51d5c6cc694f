package patient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/patient-service/patient")

const (
	defaultEventTimeout        = 5 * time.Second
	defaultCompensationTimeout = 5 * time.Second
)

// MetricsRecorder records patient lifecycle metrics. A nil recorder is allowed.
type MetricsRecorder interface {
	RecordPatientOperation(ctx context.Context, operation string)
	RecordBillingCall(ctx context.Context, outcome string)
	RecordEventPublished(ctx context.Context, outcome string)
}

// ServiceConfig tunes the side effects of patient creation.
type ServiceConfig struct {
	// CompensateBillingFailure deletes the just-created patient when billing
	// provisioning fails. When false the record stays persisted.
	CompensateBillingFailure bool
	EventTimeout             time.Duration
	CompensationTimeout      time.Duration
}

// Service orchestrates patient persistence, billing provisioning and the
// patient created event. It holds no patient data between calls.
type Service struct {
	store   Store
	billing BillingProvisioner
	events  EventSender
	logger  *zap.Logger
	metrics MetricsRecorder
	cfg     ServiceConfig

	inflight sync.WaitGroup
}

func NewService(store Store, billing BillingProvisioner, events EventSender, logger *zap.Logger, metrics MetricsRecorder, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = defaultEventTimeout
	}
	if cfg.CompensationTimeout <= 0 {
		cfg.CompensationTimeout = defaultCompensationTimeout
	}
	return &Service{
		store:   store,
		billing: billing,
		events:  events,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
	}
}

func (s *Service) ListPatients(ctx context.Context) ([]PatientResponse, error) {
	ctx, span := tracer.Start(ctx, "patient.ListPatients")
	defer span.End()

	patients, err := s.store.FindAll(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	responses := make([]PatientResponse, 0, len(patients))
	for _, p := range patients {
		responses = append(responses, ToResponse(p))
	}
	s.recordOperation(ctx, "list")
	return responses, nil
}

func (s *Service) GetPatient(ctx context.Context, id string) (*PatientResponse, error) {
	ctx, span := tracer.Start(ctx, "patient.GetPatient")
	defer span.End()

	patientID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	p, found, err := s.store.FindByID(ctx, patientID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	if !found {
		s.logger.Warn("patient not found", zap.String("patient_id", id))
		return nil, newNotFound(id)
	}

	resp := ToResponse(p)
	return &resp, nil
}

// CreatePatient enforces email uniqueness, persists the patient, provisions
// its billing account and then emits the patient created event in the
// background. Steps run strictly in that order.
func (s *Service) CreatePatient(ctx context.Context, req PatientRequest) (*PatientResponse, error) {
	ctx, span := tracer.Start(ctx, "patient.CreatePatient")
	defer span.End()

	if err := validationError(req, ModeCreate); err != nil {
		return nil, err
	}

	exists, err := s.store.ExistsByEmail(ctx, req.Email)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		s.logger.Warn("email already registered", zap.String("email", req.Email))
		return nil, newConflict(req.Email)
	}

	p, err := ToModel(req)
	if err != nil {
		return nil, fmt.Errorf("failed to map patient: %w", err)
	}

	saved, err := s.store.Save(ctx, p)
	if errors.Is(err, ErrEmailTaken) {
		s.logger.Warn("email registered concurrently", zap.String("email", req.Email))
		return nil, newConflict(req.Email)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	span.SetAttributes(attribute.String("patient.id", saved.ID.String()))

	if err := s.billing.CreateBillingAccount(ctx, saved.ID.String(), saved.Name, saved.Email); err != nil {
		span.SetStatus(codes.Error, "billing provisioning failed")
		s.recordBilling(ctx, "failure")
		return nil, s.handleBillingFailure(ctx, saved, err)
	}
	s.recordBilling(ctx, "success")

	s.emitCreated(ctx, saved)

	s.logger.Info("patient created", zap.String("patient_id", saved.ID.String()))
	s.recordOperation(ctx, "create")

	resp := ToResponse(saved)
	return &resp, nil
}

// UpdatePatient overwrites the patient's fields from req. It does not
// re-provision billing or emit events.
func (s *Service) UpdatePatient(ctx context.Context, id string, req PatientRequest) (*PatientResponse, error) {
	ctx, span := tracer.Start(ctx, "patient.UpdatePatient")
	defer span.End()

	patientID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if err := validationError(req, ModeUpdate); err != nil {
		return nil, err
	}

	p, found, err := s.store.FindByID(ctx, patientID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	if !found {
		s.logger.Warn("patient not found", zap.String("patient_id", id))
		return nil, newNotFound(id)
	}

	taken, err := s.store.ExistsByEmailExcludingID(ctx, req.Email, patientID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		s.logger.Warn("email already registered", zap.String("email", req.Email))
		return nil, newConflict(req.Email)
	}

	if err := apply(&p, req); err != nil {
		return nil, fmt.Errorf("failed to map patient: %w", err)
	}

	updated, err := s.store.Save(ctx, p)
	if errors.Is(err, ErrEmailTaken) {
		return nil, newConflict(req.Email)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}

	s.recordOperation(ctx, "update")
	resp := ToResponse(updated)
	return &resp, nil
}

// DeletePatient removes the patient. Unknown ids succeed without effect and
// the remote billing account is left untouched.
func (s *Service) DeletePatient(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "patient.DeletePatient")
	defer span.End()

	patientID, err := parseID(id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteByID(ctx, patientID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to delete patient: %w", err)
	}

	s.recordOperation(ctx, "delete")
	return nil
}

// Wait blocks until every in-flight event emission has finished.
func (s *Service) Wait() {
	s.inflight.Wait()
}

func (s *Service) handleBillingFailure(ctx context.Context, p Patient, cause error) error {
	depErr := &DependencyError{Dependency: "billing", Err: cause}

	if !s.cfg.CompensateBillingFailure {
		s.logger.Error("billing provisioning failed, patient left without billing account",
			zap.String("patient_id", p.ID.String()),
			zap.Error(cause),
		)
		return depErr
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CompensationTimeout)
	defer cancel()

	if err := s.store.DeleteByID(cctx, p.ID); err != nil {
		s.logger.Error("billing provisioning failed and rollback failed",
			zap.String("patient_id", p.ID.String()),
			zap.Error(cause),
			zap.NamedError("rollback_error", err),
		)
		return depErr
	}

	s.logger.Error("billing provisioning failed, patient creation rolled back",
		zap.String("patient_id", p.ID.String()),
		zap.Error(cause),
	)
	depErr.Compensated = true
	return depErr
}

func (s *Service) emitCreated(ctx context.Context, p Patient) {
	if s.events == nil {
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ectx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.EventTimeout)
		defer cancel()

		if err := s.events.SendPatientCreated(ectx, p); err != nil {
			s.logger.Error("failed to publish patient created event",
				zap.String("patient_id", p.ID.String()),
				zap.Error(err),
			)
			s.recordEvent(ectx, "failure")
			return
		}
		s.recordEvent(ectx, "success")
	}()
}

func (s *Service) recordOperation(ctx context.Context, op string) {
	if s.metrics != nil {
		s.metrics.RecordPatientOperation(ctx, op)
	}
}

func (s *Service) recordBilling(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordBillingCall(ctx, outcome)
	}
}

func (s *Service) recordEvent(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordEventPublished(ctx, outcome)
	}
}

func parseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, &ValidationError{Fields: []FieldError{{Field: "id", Message: ErrInvalidID.Error()}}}
	}
	return parsed, nil
}
