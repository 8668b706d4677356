package booking

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/carebridge/telehealth-booking/internal/appointment"
	"github.com/carebridge/telehealth-booking/internal/slot"
)

// Reconciler repairs occupancy drift between the slot ledger and the
// appointments that hold slot units. Drift is expected after crashes in
// the window between a status update and its slot effect; the booking
// engine logs those and leaves the repair to this pass.
type Reconciler struct {
	appts  appointment.Store
	ledger *slot.Ledger
	log    zerolog.Logger
}

func NewReconciler(appts appointment.Store, ledger *slot.Ledger, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		appts:  appts,
		ledger: ledger,
		log:    log.With().Str("component", "reconciler").Logger(),
	}
}

// Run performs one reconciliation pass and returns the number of slots
// repaired.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	cleared, err := r.appts.ClearStaleHolds(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear stale holds: %w", err)
	}
	if cleared > 0 {
		r.log.Warn().Int64("count", cleared).Msg("cleared stale slot holds")
	}

	slots, err := r.ledger.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("list slots: %w", err)
	}

	repaired := 0
	for _, s := range slots {
		key := slot.Key{DoctorKey: s.DoctorKey, Date: s.Date, Time: s.Time}

		count, err := r.appts.CountHoldingSlot(ctx, s.DoctorKey, s.Date, s.Time)
		if err != nil {
			return repaired, fmt.Errorf("count holders for %s: %w", key.LockKey(), err)
		}

		if count == s.CurrentBookings {
			continue
		}

		if _, err := r.ledger.SetOccupancy(ctx, key, count); err != nil {
			r.log.Error().Err(err).Str("slot", key.LockKey()).Msg("occupancy repair failed")
			continue
		}

		r.log.Warn().
			Str("slot", key.LockKey()).
			Int("was", s.CurrentBookings).
			Int("now", count).
			Msg("repaired occupancy drift")
		repaired++
	}

	return repaired, nil
}
