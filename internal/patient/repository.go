package patient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const emailConstraint = "patients_email_key"

// Repository is the PostgreSQL Store. Email uniqueness is backed by the
// patients_email_key unique constraint.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const patientColumns = `id, name, email, address, date_of_birth, registered_date`

func (r *Repository) FindAll(ctx context.Context) ([]Patient, error) {
	query := `
		SELECT ` + patientColumns + `
		FROM patients
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	patients := []Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patients: %w", err)
	}

	return patients, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (Patient, bool, error) {
	query := `
		SELECT ` + patientColumns + `
		FROM patients
		WHERE id = $1
	`

	p, err := scanPatient(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Patient{}, false, nil
	}
	if err != nil {
		return Patient{}, false, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, true, nil
}

func (r *Repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM patients WHERE email = $1)`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

func (r *Repository) ExistsByEmailExcludingID(ctx context.Context, email string, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM patients WHERE email = $1 AND id <> $2)`, email, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// Save inserts a new patient when p.ID is nil, otherwise upserts by id.
func (r *Repository) Save(ctx context.Context, p Patient) (Patient, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()

	query := `
		INSERT INTO patients
		(id, name, email, address, date_of_birth, registered_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			address = EXCLUDED.address,
			date_of_birth = EXCLUDED.date_of_birth,
			registered_date = EXCLUDED.registered_date,
			updated_at = $7
		RETURNING ` + patientColumns

	saved, err := scanPatient(r.db.QueryRowContext(ctx, query,
		p.ID,
		p.Name,
		p.Email,
		p.Address,
		nullDate(p.DateOfBirth),
		nullDate(p.RegisteredDate),
		now,
	))
	if err != nil {
		if isEmailViolation(err) {
			return Patient{}, ErrEmailTaken
		}
		return Patient{}, fmt.Errorf("failed to save patient: %w", err)
	}
	return saved, nil
}

// DeleteByID deletes the row with the given id. A missing row is not an error.
func (r *Repository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (Patient, error) {
	var p Patient
	var dob sql.NullTime
	var registered sql.NullTime

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Address,
		&dob,
		&registered,
	)
	if err != nil {
		return Patient{}, err
	}

	if dob.Valid {
		p.DateOfBirth = dob.Time
	}
	if registered.Valid {
		p.RegisteredDate = registered.Time
	}
	return p, nil
}

func nullDate(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func isEmailViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == emailConstraint
	}
	return false
}
