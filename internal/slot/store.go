package slot

import (
	"context"

	"github.com/google/uuid"
)

// Store contains all slot persistence needed by the ledger.
//
// Reserve and Release must be atomic with respect to concurrent calls on
// the same key: implementations mutate the single slot record with a
// guarded read-modify-write, never a blind overwrite.
type Store interface {
	Get(ctx context.Context, key Key) (*Slot, error)

	// Ensure creates the slot with default fields (available, limit 1,
	// no bookings) if it does not exist, and returns the stored slot.
	Ensure(ctx context.Context, key Key) (*Slot, error)

	// Reserve increments occupancy iff the slot is available and below
	// its limit; fails with ErrNotFound / ErrNotAvailable / ErrFull.
	Reserve(ctx context.Context, key Key) (*Slot, error)

	// Release decrements occupancy with a floor of zero.
	Release(ctx context.Context, key Key) (*Slot, error)

	// SetAvailability upserts the doctor-controlled fields. A nil
	// patientLimit leaves the stored limit untouched. Occupancy is never
	// modified here.
	SetAvailability(ctx context.Context, key Key, isAvailable bool, patientLimit *int) (*Slot, error)

	// SetOccupancy overwrites occupancy (floored at zero), used only by
	// the reconciliation pass.
	SetOccupancy(ctx context.Context, key Key, n int) (*Slot, error)

	// ReplaceAll swaps the doctor's entire availability for the given
	// rows. Merge policy is the caller's concern; rows are stored as is.
	ReplaceAll(ctx context.Context, doctorKey uuid.UUID, slots []Slot) ([]Slot, error)

	// ReplaceDate swaps only the rows for one date.
	ReplaceDate(ctx context.Context, doctorKey uuid.UUID, date string, slots []Slot) ([]Slot, error)

	// List returns the doctor's slots ordered by date then time,
	// optionally bounded by an inclusive [from, to] date range; empty
	// strings mean unbounded.
	List(ctx context.Context, doctorKey uuid.UUID, from, to string) ([]Slot, error)

	// All returns every slot in the ledger (reconciler input).
	All(ctx context.Context) ([]Slot, error)
}
