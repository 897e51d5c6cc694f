package users

import "context"

// RepositoryInterface defines the contract for user data access
type RepositoryInterface interface {
	// FindByEmail returns ErrUserNotFound when no user has the email.
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// Ensure both repositories implement RepositoryInterface
var (
	_ RepositoryInterface = (*Repository)(nil)
	_ RepositoryInterface = (*MemoryRepository)(nil)
)
