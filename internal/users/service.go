package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// LookupRecorder records user lookup metrics
type LookupRecorder interface {
	RecordUserLookup(ctx context.Context, found bool)
}

type Service struct {
	repo    RepositoryInterface
	metrics LookupRecorder
}

func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// WithRecorder attaches a metrics recorder to the service.
func (s *Service) WithRecorder(r LookupRecorder) *Service {
	s.metrics = r
	return s
}

// FindByEmail reports whether a user with the email exists and returns it.
// Absence is not an error.
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, false, ErrMissingEmail
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		s.record(ctx, false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to find user: %w", err)
	}
	s.record(ctx, true)
	return user, true, nil
}

func (s *Service) record(ctx context.Context, found bool) {
	if s.metrics != nil {
		s.metrics.RecordUserLookup(ctx, found)
	}
}
