package booking_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/telehealth-booking/internal/appointment"
	"github.com/carebridge/telehealth-booking/internal/booking"
)

func TestReconciler_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("no drift, nothing repaired", func(t *testing.T) {
		f := newFixture(t, booking.Options{})
		f.addSlot(t, "2026-09-01", "10:00", 2)
		_, err := f.book("patient-1", "2026-09-01", "10:00")
		require.NoError(t, err)

		rec := booking.NewReconciler(f.appts, f.ledger, zerolog.Nop())
		repaired, err := rec.Run(ctx)
		require.NoError(t, err)
		assert.Zero(t, repaired)
	})

	t.Run("repairs occupancy that drifted upward", func(t *testing.T) {
		f := newFixture(t, booking.Options{})
		key := f.addSlot(t, "2026-09-01", "10:00", 2)
		_, err := f.book("patient-1", "2026-09-01", "10:00")
		require.NoError(t, err)

		// Simulate a crash between a release-side status update and its
		// ledger decrement: occupancy says 2, only 1 holder remains.
		_, err = f.ledger.SetOccupancy(ctx, key, 2)
		require.NoError(t, err)

		rec := booking.NewReconciler(f.appts, f.ledger, zerolog.Nop())
		repaired, err := rec.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, repaired)

		s, err := f.ledger.FindSlot(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 1, s.CurrentBookings)
		assert.False(t, s.IsBooked)
	})

	t.Run("clears stale holds before recounting", func(t *testing.T) {
		f := newFixture(t, booking.Options{})
		key := f.addSlot(t, "2026-09-01", "10:00", 1)
		appt, err := f.book("patient-1", "2026-09-01", "10:00")
		require.NoError(t, err)

		// Force the appointment cancelled behind the engine's back, leaving
		// both the hold flag and the occupancy stale.
		_, err = f.appts.UpdateStatus(ctx, appt.ID, appointment.StatusScheduled, appointment.StatusCancelled)
		require.NoError(t, err)

		rec := booking.NewReconciler(f.appts, f.ledger, zerolog.Nop())
		repaired, err := rec.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, repaired)

		s, err := f.ledger.FindSlot(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 0, s.CurrentBookings)

		got, err := f.appts.GetByID(ctx, appt.ID)
		require.NoError(t, err)
		assert.False(t, got.SlotHeld)
	})

	t.Run("a second pass is a fixpoint", func(t *testing.T) {
		f := newFixture(t, booking.Options{})
		key := f.addSlot(t, "2026-09-01", "10:00", 2)
		_, err := f.book("patient-1", "2026-09-01", "10:00")
		require.NoError(t, err)
		_, err = f.ledger.SetOccupancy(ctx, key, 0)
		require.NoError(t, err)

		rec := booking.NewReconciler(f.appts, f.ledger, zerolog.Nop())

		repaired, err := rec.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, repaired)

		repaired, err = rec.Run(ctx)
		require.NoError(t, err)
		assert.Zero(t, repaired)
	})
}
