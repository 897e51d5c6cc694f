package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, password_hash, role, created_at
		FROM users
		WHERE email = $1
	`

	var user User
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// MemoryRepository keeps users in memory, keyed by lower-cased email.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryRepository(seed ...User) *MemoryRepository {
	m := &MemoryRepository{users: make(map[string]User)}
	for _, u := range seed {
		m.users[strings.ToLower(u.Email)] = u
	}
	return m
}

func (m *MemoryRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}
