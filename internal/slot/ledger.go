package slot

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Ledger is the sole authority for a doctor's slot capacity state. All
// occupancy mutations go through it; callers never write slot rows
// directly.
type Ledger struct {
	store Store
	log   zerolog.Logger
}

func NewLedger(store Store, log zerolog.Logger) *Ledger {
	return &Ledger{
		store: store,
		log:   log.With().Str("component", "slot_ledger").Logger(),
	}
}

func (l *Ledger) FindSlot(ctx context.Context, key Key) (*Slot, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return l.store.Get(ctx, key)
}

// EnsureSlot guarantees a slot exists after the call, creating it with
// defaults (available, patient limit 1, no bookings) when absent.
func (l *Ledger) EnsureSlot(ctx context.Context, key Key) (*Slot, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return l.store.Ensure(ctx, key)
}

func (l *Ledger) Reserve(ctx context.Context, key Key) (*Slot, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	s, err := l.store.Reserve(ctx, key)
	if err != nil {
		return nil, err
	}
	l.log.Debug().
		Str("slot", key.LockKey()).
		Int("current_bookings", s.CurrentBookings).
		Int("patient_limit", s.PatientLimit).
		Msg("slot reserved")
	return s, nil
}

func (l *Ledger) Release(ctx context.Context, key Key) (*Slot, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	s, err := l.store.Release(ctx, key)
	if err != nil {
		return nil, err
	}
	l.log.Debug().
		Str("slot", key.LockKey()).
		Int("current_bookings", s.CurrentBookings).
		Msg("slot released")
	return s, nil
}

func (l *Ledger) SetAvailability(ctx context.Context, key Key, isAvailable bool, patientLimit *int) (*Slot, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if patientLimit != nil && *patientLimit < 1 {
		return nil, fmt.Errorf("%w: patientLimit must be >= 1", ErrInvalidInput)
	}
	return l.store.SetAvailability(ctx, key, isAvailable, patientLimit)
}

// BulkReplace swaps the doctor's whole availability list. Occupancy is
// merged by (date, time) key: an input without an explicit
// currentBookings keeps the count the ledger already has for that key,
// so replacing the list never wipes live bookings. IsBooked is
// recomputed for every entry.
func (l *Ledger) BulkReplace(ctx context.Context, doctorKey uuid.UUID, inputs []SlotInput) ([]Slot, error) {
	existing, err := l.store.List(ctx, doctorKey, "", "")
	if err != nil {
		return nil, fmt.Errorf("list existing slots: %w", err)
	}

	merged, err := mergeInputs(doctorKey, inputs, existing, "")
	if err != nil {
		return nil, err
	}

	return l.store.ReplaceAll(ctx, doctorKey, merged)
}

// ReplaceDate swaps only one date's slots, with the same merge policy as
// BulkReplace. Input dates are overridden by the date argument.
func (l *Ledger) ReplaceDate(ctx context.Context, doctorKey uuid.UUID, date string, inputs []SlotInput) ([]Slot, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}

	existing, err := l.store.List(ctx, doctorKey, date, date)
	if err != nil {
		return nil, fmt.Errorf("list existing slots: %w", err)
	}

	merged, err := mergeInputs(doctorKey, inputs, existing, date)
	if err != nil {
		return nil, err
	}

	return l.store.ReplaceDate(ctx, doctorKey, date, merged)
}

func mergeInputs(doctorKey uuid.UUID, inputs []SlotInput, existing []Slot, forceDate string) ([]Slot, error) {
	byKey := make(map[Key]Slot, len(existing))
	for _, s := range existing {
		byKey[Key{DoctorKey: doctorKey, Date: s.Date, Time: s.Time}] = s
	}

	seen := make(map[Key]bool, len(inputs))
	out := make([]Slot, 0, len(inputs))
	for _, in := range inputs {
		date := in.Date
		if forceDate != "" {
			date = forceDate
		}
		if err := ValidateDate(date); err != nil {
			return nil, err
		}
		if err := ValidateTime(in.Time); err != nil {
			return nil, err
		}

		key := Key{DoctorKey: doctorKey, Date: date, Time: in.Time}
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate slot %s %s", ErrInvalidInput, date, in.Time)
		}
		seen[key] = true

		limit := in.PatientLimit
		if limit < 1 {
			limit = 1
		}

		current := 0
		switch {
		case in.CurrentBookings != nil:
			current = *in.CurrentBookings
		default:
			if prev, ok := byKey[key]; ok {
				current = prev.CurrentBookings
			}
		}
		if current < 0 {
			current = 0
		}

		out = append(out, Slot{
			DoctorKey:       doctorKey,
			Date:            date,
			Time:            in.Time,
			IsAvailable:     in.IsAvailable,
			IsBooked:        current >= limit,
			PatientLimit:    limit,
			CurrentBookings: current,
		})
	}

	return out, nil
}

// ListAvailable filters to bookable slots, optionally constrained to an
// inclusive date range (pass the same date twice for a single day).
func (l *Ledger) ListAvailable(ctx context.Context, doctorKey uuid.UUID, from, to string) ([]Slot, error) {
	all, err := l.store.List(ctx, doctorKey, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]Slot, 0, len(all))
	for _, s := range all {
		if s.Bookable() {
			out = append(out, s)
		}
	}
	return out, nil
}

// ListAll returns the doctor's full availability list, bookable or not.
func (l *Ledger) ListAll(ctx context.Context, doctorKey uuid.UUID, from, to string) ([]Slot, error) {
	return l.store.List(ctx, doctorKey, from, to)
}

// All exposes the complete ledger for the reconciliation worker.
func (l *Ledger) All(ctx context.Context) ([]Slot, error) {
	return l.store.All(ctx)
}

// SetOccupancy force-sets a slot's occupancy. Reconciliation only.
func (l *Ledger) SetOccupancy(ctx context.Context, key Key, n int) (*Slot, error) {
	s, err := l.store.SetOccupancy(ctx, key, n)
	if err != nil {
		return nil, err
	}
	l.log.Warn().
		Str("slot", key.LockKey()).
		Int("current_bookings", s.CurrentBookings).
		Msg("slot occupancy overwritten")
	return s, nil
}
