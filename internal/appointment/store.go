package appointment

import (
	"context"

	"github.com/google/uuid"
)

// Store contains all appointment persistence needed by the booking
// engine and the projection layer. Guarded updates (UpdateStatus,
// SetSlotHeld) fail with ErrConflict when the record is not in the
// expected state, so callers can retry or skip idempotently.
type Store interface {
	Create(ctx context.Context, a *Appointment) (*Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// FindLive returns the scheduled appointment for the exact
	// (patient, doctor, date, time) tuple, or ErrNotFound.
	FindLive(ctx context.Context, patientID string, doctorKey uuid.UUID, date, timeOfDay string) (*Appointment, error)

	ListByPatient(ctx context.Context, patientID string) ([]Appointment, error)
	ListByDoctor(ctx context.Context, doctorKey uuid.UUID) ([]Appointment, error)

	// UpdateStatus transitions the record iff it is currently in `from`.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// SetSlotHeld flips the occupancy-holder flag iff it currently equals
	// expected. The bool result reports whether the flip happened.
	SetSlotHeld(ctx context.Context, id uuid.UUID, expected, held bool) (bool, error)

	// Delete removes a record. Only the booking saga's compensation path
	// uses it; appointments are never deleted by normal flow.
	Delete(ctx context.Context, id uuid.UUID) error

	// CountHoldingSlot counts scheduled appointments holding occupancy
	// for the given slot (reconciler input).
	CountHoldingSlot(ctx context.Context, doctorKey uuid.UUID, date, timeOfDay string) (int, error)

	// ClearStaleHolds drops the holder flag from records that are no
	// longer scheduled, repairing crashes between a status update and
	// its slot effect.
	ClearStaleHolds(ctx context.Context) (int64, error)
}
