package slot

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const slotColumns = `doctor_key, slot_date, slot_time, is_available, is_booked, patient_limit, current_bookings, created_at, updated_at`

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

	err := row.Scan(
		&s.DoctorKey,
		&s.Date,
		&s.Time,
		&s.IsAvailable,
		&s.IsBooked,
		&s.PatientLimit,
		&s.CurrentBookings,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &s, nil
}

func (st *PgStore) Get(ctx context.Context, key Key) (*Slot, error) {
	row := st.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE doctor_key = $1 AND slot_date = $2 AND slot_time = $3
	`, key.DoctorKey, key.Date, key.Time)
	return scanSlot(row)
}

func (st *PgStore) Ensure(ctx context.Context, key Key) (*Slot, error) {
	_, err := st.pool.Exec(ctx, `
		INSERT INTO slots (doctor_key, slot_date, slot_time)
		VALUES ($1, $2, $3)
		ON CONFLICT (doctor_key, slot_date, slot_time) DO NOTHING
	`, key.DoctorKey, key.Date, key.Time)
	if err != nil {
		return nil, fmt.Errorf("ensure slot: %w", err)
	}
	return st.Get(ctx, key)
}

// Reserve is a single guarded UPDATE so two concurrent reservations can
// never both take the last opening.
func (st *PgStore) Reserve(ctx context.Context, key Key) (*Slot, error) {
	row := st.pool.QueryRow(ctx, `
		UPDATE slots
		SET current_bookings = current_bookings + 1,
		    is_booked = current_bookings + 1 >= patient_limit,
		    updated_at = now()
		WHERE doctor_key = $1 AND slot_date = $2 AND slot_time = $3
		  AND is_available
		  AND current_bookings < patient_limit
		RETURNING `+slotColumns+`
	`, key.DoctorKey, key.Date, key.Time)

	s, err := scanSlot(row)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// The guard rejected the update. Re-read to classify.
	cur, getErr := st.Get(ctx, key)
	if getErr != nil {
		return nil, getErr
	}
	if !cur.IsAvailable {
		return nil, ErrNotAvailable
	}
	return nil, ErrFull
}

func (st *PgStore) Release(ctx context.Context, key Key) (*Slot, error) {
	row := st.pool.QueryRow(ctx, `
		UPDATE slots
		SET current_bookings = GREATEST(current_bookings - 1, 0),
		    is_booked = GREATEST(current_bookings - 1, 0) >= patient_limit,
		    updated_at = now()
		WHERE doctor_key = $1 AND slot_date = $2 AND slot_time = $3
		RETURNING `+slotColumns+`
	`, key.DoctorKey, key.Date, key.Time)
	return scanSlot(row)
}

func (st *PgStore) SetAvailability(ctx context.Context, key Key, isAvailable bool, patientLimit *int) (*Slot, error) {
	row := st.pool.QueryRow(ctx, `
		INSERT INTO slots (doctor_key, slot_date, slot_time, is_available, patient_limit)
		VALUES ($1, $2, $3, $4, COALESCE($5, 1))
		ON CONFLICT (doctor_key, slot_date, slot_time) DO UPDATE
		SET is_available = EXCLUDED.is_available,
		    patient_limit = COALESCE($5, slots.patient_limit),
		    is_booked = slots.current_bookings >= COALESCE($5, slots.patient_limit),
		    updated_at = now()
		RETURNING `+slotColumns+`
	`, key.DoctorKey, key.Date, key.Time, isAvailable, patientLimit)
	return scanSlot(row)
}

func (st *PgStore) SetOccupancy(ctx context.Context, key Key, n int) (*Slot, error) {
	row := st.pool.QueryRow(ctx, `
		UPDATE slots
		SET current_bookings = GREATEST($4, 0),
		    is_booked = GREATEST($4, 0) >= patient_limit,
		    updated_at = now()
		WHERE doctor_key = $1 AND slot_date = $2 AND slot_time = $3
		RETURNING `+slotColumns+`
	`, key.DoctorKey, key.Date, key.Time, n)
	return scanSlot(row)
}

func (st *PgStore) ReplaceAll(ctx context.Context, doctorKey uuid.UUID, slots []Slot) ([]Slot, error) {
	return st.replace(ctx, doctorKey, "", slots)
}

func (st *PgStore) ReplaceDate(ctx context.Context, doctorKey uuid.UUID, date string, slots []Slot) ([]Slot, error) {
	return st.replace(ctx, doctorKey, date, slots)
}

func (st *PgStore) replace(ctx context.Context, doctorKey uuid.UUID, date string, slots []Slot) ([]Slot, error) {
	tx, err := st.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if date == "" {
		_, err = tx.Exec(ctx, `DELETE FROM slots WHERE doctor_key = $1`, doctorKey)
	} else {
		_, err = tx.Exec(ctx, `DELETE FROM slots WHERE doctor_key = $1 AND slot_date = $2`, doctorKey, date)
	}
	if err != nil {
		return nil, fmt.Errorf("clear slots: %w", err)
	}

	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		row := tx.QueryRow(ctx, `
			INSERT INTO slots (doctor_key, slot_date, slot_time, is_available, is_booked, patient_limit, current_bookings)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+slotColumns+`
		`, doctorKey, s.Date, s.Time, s.IsAvailable, s.IsBooked, s.PatientLimit, s.CurrentBookings)
		stored, err := scanSlot(row)
		if err != nil {
			return nil, fmt.Errorf("insert slot %s %s: %w", s.Date, s.Time, err)
		}
		out = append(out, *stored)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit replace: %w", err)
	}

	return out, nil
}

func (st *PgStore) List(ctx context.Context, doctorKey uuid.UUID, from, to string) ([]Slot, error) {
	rows, err := st.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE doctor_key = $1
		  AND ($2::text = '' OR slot_date >= $2)
		  AND ($3::text = '' OR slot_date <= $3)
		ORDER BY slot_date, slot_time
	`, doctorKey, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSlots(rows)
}

func (st *PgStore) All(ctx context.Context) ([]Slot, error) {
	rows, err := st.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		ORDER BY doctor_key, slot_date, slot_time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSlots(rows)
}

func collectSlots(rows pgx.Rows) ([]Slot, error) {
	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
