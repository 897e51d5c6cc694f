package users

import "context"

// ServiceInterface defines the contract for user lookup operations
type ServiceInterface interface {
	FindByEmail(ctx context.Context, email string) (*User, bool, error)
}

var _ ServiceInterface = (*Service)(nil)
