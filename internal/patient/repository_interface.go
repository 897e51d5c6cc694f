package patient

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the contract for patient persistence.
//
// Save inserts when p.ID is uuid.Nil (assigning a new id) and overwrites
// otherwise. Implementations must reject a save that would give two records
// the same email by returning ErrEmailTaken.
type Store interface {
	FindAll(ctx context.Context) ([]Patient, error)
	FindByID(ctx context.Context, id uuid.UUID) (Patient, bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByEmailExcludingID(ctx context.Context, email string, id uuid.UUID) (bool, error)
	Save(ctx context.Context, p Patient) (Patient, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

// Ensure both stores implement Store
var (
	_ Store = (*Repository)(nil)
	_ Store = (*MemoryStore)(nil)
)
