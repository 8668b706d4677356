package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgDoctorDirectory struct {
	pool *pgxpool.Pool
}

func NewPgDoctorDirectory(pool *pgxpool.Pool) *PgDoctorDirectory {
	return &PgDoctorDirectory{pool: pool}
}

func scanDoctor(row pgx.Row) (*DoctorRef, error) {
	var d DoctorRef

	err := row.Scan(
		&d.Key,
		&d.PublicID,
		&d.Name,
		&d.Specialization,
		&d.Description,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return &d, nil
}

func (d *PgDoctorDirectory) Resolve(ctx context.Context, idOrKey string) (*DoctorRef, error) {
	// The internal key is a UUID; public identifiers are not. Try the
	// key form first when it parses, fall back to the public id.
	if key, err := uuid.Parse(idOrKey); err == nil {
		ref, err := d.byKey(ctx, key)
		if err == nil || !errors.Is(err, ErrDoctorNotFound) {
			return ref, err
		}
	}

	row := d.pool.QueryRow(ctx, `
		SELECT key, public_id, name, specialization, description
		FROM doctors
		WHERE public_id = $1
	`, idOrKey)
	return scanDoctor(row)
}

func (d *PgDoctorDirectory) byKey(ctx context.Context, key uuid.UUID) (*DoctorRef, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT key, public_id, name, specialization, description
		FROM doctors
		WHERE key = $1
	`, key)
	return scanDoctor(row)
}

func (d *PgDoctorDirectory) ResolveAccount(ctx context.Context, accountID string) (*DoctorRef, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT key, public_id, name, specialization, description
		FROM doctors
		WHERE account_id = $1
	`, accountID)
	return scanDoctor(row)
}

type PgPatientDirectory struct {
	pool *pgxpool.Pool
}

func NewPgPatientDirectory(pool *pgxpool.Pool) *PgPatientDirectory {
	return &PgPatientDirectory{pool: pool}
}

func (p *PgPatientDirectory) Resolve(ctx context.Context, patientID string) (*PatientRef, error) {
	var ref PatientRef

	err := p.pool.QueryRow(ctx, `
		SELECT display_name, email, phone
		FROM patients
		WHERE id = $1
	`, patientID).Scan(&ref.DisplayName, &ref.Email, &ref.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return &ref, nil
}
