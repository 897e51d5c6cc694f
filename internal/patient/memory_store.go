package patient

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. Records are returned in insertion order.
// Email uniqueness is checked under the same lock as the write, so concurrent
// saves with the same email cannot both succeed.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]Patient
	order   []uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uuid.UUID]Patient)}
}

func (m *MemoryStore) FindAll(ctx context.Context) ([]Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	patients := make([]Patient, 0, len(m.order))
	for _, id := range m.order {
		patients = append(patients, m.records[id])
	}
	return patients, nil
}

func (m *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (Patient, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.records[id]
	return p, ok, nil
}

func (m *MemoryStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.ExistsByEmailExcludingID(ctx, email, uuid.Nil)
}

func (m *MemoryStore) ExistsByEmailExcludingID(ctx context.Context, email string, id uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.emailTakenLocked(email, id), nil
}

func (m *MemoryStore) Save(ctx context.Context, p Patient) (Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.emailTakenLocked(p.Email, p.ID) {
		return Patient{}, ErrEmailTaken
	}

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, exists := m.records[p.ID]; !exists {
		m.order = append(m.order, p.ID)
	}
	m.records[p.ID] = p
	return p, nil
}

// DeleteByID removes the record if present. Unknown ids are a no-op.
func (m *MemoryStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return nil
	}
	delete(m.records, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) emailTakenLocked(email string, exclude uuid.UUID) bool {
	for id, p := range m.records {
		if id != exclude && p.Email == email {
			return true
		}
	}
	return false
}
