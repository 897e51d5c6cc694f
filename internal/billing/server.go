package billing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const StatusActive = "ACTIVE"

// Account is a provisioned billing account.
type Account struct {
	ID        string
	PatientID string
	Name      string
	Email     string
	Status    string
	CreatedAt time.Time
}

// Server is an in-memory billing ledger. Provisioning is idempotent per patient.
type Server struct {
	mu       sync.Mutex
	accounts map[string]Account
	logger   *zap.Logger
}

func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		accounts: make(map[string]Account),
		logger:   logger,
	}
}

func (s *Server) CreateBillingAccount(ctx context.Context, req AccountRequest) (AccountResponse, error) {
	if strings.TrimSpace(req.PatientID) == "" {
		return AccountResponse{}, status.Error(codes.InvalidArgument, "patientId is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		return AccountResponse{}, status.Error(codes.InvalidArgument, "email is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.accounts[req.PatientID]; ok {
		return AccountResponse{AccountID: existing.ID, Status: existing.Status}, nil
	}

	account := Account{
		ID:        uuid.NewString(),
		PatientID: req.PatientID,
		Name:      req.Name,
		Email:     req.Email,
		Status:    StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	s.accounts[req.PatientID] = account

	s.logger.Info("billing account created",
		zap.String("account_id", account.ID),
		zap.String("patient_id", account.PatientID),
	)
	return AccountResponse{AccountID: account.ID, Status: account.Status}, nil
}

// Accounts returns a snapshot of every provisioned account.
func (s *Server) Accounts() []Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	return out
}
