package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const apptColumns = `id, patient_id, doctor_key, slot_date, slot_time, appt_type, symptoms, status, slot_held, created_at, updated_at`

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorKey,
		&a.Date,
		&a.Time,
		&a.Type,
		&a.Symptoms,
		&a.Status,
		&a.SlotHeld,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &a, nil
}

func (st *PgStore) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := st.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_key, slot_date, slot_time, appt_type, symptoms, status, slot_held, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING `+apptColumns+`
	`, id, a.PatientID, a.DoctorKey, a.Date, a.Time, a.Type, a.Symptoms, a.Status, a.SlotHeld)

	return scanAppointment(row)
}

func (st *PgStore) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := st.pool.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (st *PgStore) FindLive(ctx context.Context, patientID string, doctorKey uuid.UUID, date, timeOfDay string) (*Appointment, error) {
	row := st.pool.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE patient_id = $1 AND doctor_key = $2 AND slot_date = $3 AND slot_time = $4
		  AND status = 'scheduled'
		LIMIT 1
	`, patientID, doctorKey, date, timeOfDay)
	return scanAppointment(row)
}

func (st *PgStore) ListByPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	rows, err := st.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY slot_date, slot_time
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (st *PgStore) ListByDoctor(ctx context.Context, doctorKey uuid.UUID) ([]Appointment, error) {
	rows, err := st.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE doctor_key = $1
		ORDER BY slot_date, slot_time
	`, doctorKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (st *PgStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := st.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+apptColumns+`
	`, id, to, from)

	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return a, nil
}

func (st *PgStore) SetSlotHeld(ctx context.Context, id uuid.UUID, expected, held bool) (bool, error) {
	tag, err := st.pool.Exec(ctx, `
		UPDATE appointments
		SET slot_held = $3,
		    updated_at = now()
		WHERE id = $1
		  AND slot_held = $2
	`, id, expected, held)
	if err != nil {
		return false, fmt.Errorf("set slot_held: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (st *PgStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := st.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (st *PgStore) CountHoldingSlot(ctx context.Context, doctorKey uuid.UUID, date, timeOfDay string) (int, error) {
	var n int
	err := st.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE doctor_key = $1 AND slot_date = $2 AND slot_time = $3
		  AND slot_held
		  AND status = 'scheduled'
	`, doctorKey, date, timeOfDay).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (st *PgStore) ClearStaleHolds(ctx context.Context) (int64, error) {
	tag, err := st.pool.Exec(ctx, `
		UPDATE appointments
		SET slot_held = false,
		    updated_at = now()
		WHERE slot_held
		  AND status <> 'scheduled'
	`)
	if err != nil {
		return 0, fmt.Errorf("clear stale holds: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
