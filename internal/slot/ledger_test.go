package slot_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/telehealth-booking/internal/slot"
)

func newLedger() (*slot.Ledger, *slot.MemoryStore) {
	store := slot.NewMemoryStore()
	return slot.NewLedger(store, zerolog.Nop()), store
}

func intPtr(n int) *int { return &n }

func TestLedger_ReserveRelease(t *testing.T) {
	ctx := context.Background()
	doctorKey := uuid.New()
	key := slot.Key{DoctorKey: doctorKey, Date: "2026-09-01", Time: "10:00"}

	t.Run("reserve increments and flips isBooked at the limit", func(t *testing.T) {
		ledger, _ := newLedger()
		_, err := ledger.SetAvailability(ctx, key, true, intPtr(2))
		require.NoError(t, err)

		s, err := ledger.Reserve(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 1, s.CurrentBookings)
		assert.False(t, s.IsBooked)

		s, err = ledger.Reserve(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 2, s.CurrentBookings)
		assert.True(t, s.IsBooked)
	})

	t.Run("reserve on a full slot fails without changing state", func(t *testing.T) {
		ledger, _ := newLedger()
		_, err := ledger.SetAvailability(ctx, key, true, intPtr(1))
		require.NoError(t, err)

		_, err = ledger.Reserve(ctx, key)
		require.NoError(t, err)

		_, err = ledger.Reserve(ctx, key)
		assert.ErrorIs(t, err, slot.ErrFull)

		s, err := ledger.FindSlot(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 1, s.CurrentBookings)
	})

	t.Run("reserve on an unavailable slot fails", func(t *testing.T) {
		ledger, _ := newLedger()
		_, err := ledger.SetAvailability(ctx, key, false, nil)
		require.NoError(t, err)

		_, err = ledger.Reserve(ctx, key)
		assert.ErrorIs(t, err, slot.ErrNotAvailable)
	})

	t.Run("reserve on a missing slot fails", func(t *testing.T) {
		ledger, _ := newLedger()
		_, err := ledger.Reserve(ctx, key)
		assert.ErrorIs(t, err, slot.ErrNotFound)
	})

	t.Run("release clears isBooked and clamps at zero", func(t *testing.T) {
		ledger, _ := newLedger()
		_, err := ledger.SetAvailability(ctx, key, true, intPtr(1))
		require.NoError(t, err)
		_, err = ledger.Reserve(ctx, key)
		require.NoError(t, err)

		s, err := ledger.Release(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 0, s.CurrentBookings)
		assert.False(t, s.IsBooked)

		s, err = ledger.Release(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 0, s.CurrentBookings)
	})

	t.Run("invalid key is rejected", func(t *testing.T) {
		ledger, _ := newLedger()
		_, err := ledger.Reserve(ctx, slot.Key{DoctorKey: doctorKey, Date: "tomorrow", Time: "10:00"})
		assert.ErrorIs(t, err, slot.ErrInvalidInput)

		_, err = ledger.Reserve(ctx, slot.Key{Date: "2026-09-01", Time: "10:00"})
		assert.ErrorIs(t, err, slot.ErrInvalidInput)
	})
}

func TestLedger_EnsureSlot(t *testing.T) {
	ctx := context.Background()
	key := slot.Key{DoctorKey: uuid.New(), Date: "2026-09-01", Time: "10:00"}

	ledger, _ := newLedger()

	s, err := ledger.EnsureSlot(ctx, key)
	require.NoError(t, err)
	assert.True(t, s.IsAvailable)
	assert.Equal(t, 1, s.PatientLimit)
	assert.Equal(t, 0, s.CurrentBookings)

	// Second ensure keeps existing state.
	_, err = ledger.Reserve(ctx, key)
	require.NoError(t, err)

	s, err = ledger.EnsureSlot(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 1, s.CurrentBookings)
}

func TestLedger_SetAvailability(t *testing.T) {
	ctx := context.Background()
	key := slot.Key{DoctorKey: uuid.New(), Date: "2026-09-01", Time: "10:00"}

	t.Run("upserts a missing slot", func(t *testing.T) {
		ledger, _ := newLedger()
		s, err := ledger.SetAvailability(ctx, key, true, intPtr(3))
		require.NoError(t, err)
		assert.True(t, s.IsAvailable)
		assert.Equal(t, 3, s.PatientLimit)
	})

	t.Run("nil limit keeps the existing limit", func(t *testing.T) {
		ledger, _ := newLedger()
		_, err := ledger.SetAvailability(ctx, key, true, intPtr(3))
		require.NoError(t, err)

		s, err := ledger.SetAvailability(ctx, key, false, nil)
		require.NoError(t, err)
		assert.False(t, s.IsAvailable)
		assert.Equal(t, 3, s.PatientLimit)
	})

	t.Run("rejects a limit below one", func(t *testing.T) {
		ledger, _ := newLedger()
		_, err := ledger.SetAvailability(ctx, key, true, intPtr(0))
		assert.ErrorIs(t, err, slot.ErrInvalidInput)
	})

	t.Run("lowering the limit below occupancy marks the slot booked", func(t *testing.T) {
		ledger, _ := newLedger()
		_, err := ledger.SetAvailability(ctx, key, true, intPtr(3))
		require.NoError(t, err)
		_, err = ledger.Reserve(ctx, key)
		require.NoError(t, err)
		_, err = ledger.Reserve(ctx, key)
		require.NoError(t, err)

		s, err := ledger.SetAvailability(ctx, key, true, intPtr(2))
		require.NoError(t, err)
		assert.True(t, s.IsBooked)
		assert.Equal(t, 2, s.CurrentBookings)
	})
}

func TestLedger_BulkReplace(t *testing.T) {
	ctx := context.Background()
	doctorKey := uuid.New()

	t.Run("replace preserves occupancy for matching keys", func(t *testing.T) {
		ledger, _ := newLedger()

		_, err := ledger.BulkReplace(ctx, doctorKey, []slot.SlotInput{
			{Date: "2026-09-01", Time: "10:00", IsAvailable: true, PatientLimit: 2},
			{Date: "2026-09-01", Time: "11:00", IsAvailable: true, PatientLimit: 1},
		})
		require.NoError(t, err)

		_, err = ledger.Reserve(ctx, slot.Key{DoctorKey: doctorKey, Date: "2026-09-01", Time: "10:00"})
		require.NoError(t, err)

		// Replace the whole list; 10:00 recurs, 11:00 is dropped, 12:00 is new.
		out, err := ledger.BulkReplace(ctx, doctorKey, []slot.SlotInput{
			{Date: "2026-09-01", Time: "10:00", IsAvailable: true, PatientLimit: 2},
			{Date: "2026-09-01", Time: "12:00", IsAvailable: true, PatientLimit: 1},
		})
		require.NoError(t, err)
		require.Len(t, out, 2)

		assert.Equal(t, "10:00", out[0].Time)
		assert.Equal(t, 1, out[0].CurrentBookings, "occupancy survives the replace")
		assert.Equal(t, "12:00", out[1].Time)
		assert.Equal(t, 0, out[1].CurrentBookings)

		_, err = ledger.FindSlot(ctx, slot.Key{DoctorKey: doctorKey, Date: "2026-09-01", Time: "11:00"})
		assert.ErrorIs(t, err, slot.ErrNotFound)
	})

	t.Run("explicit currentBookings overrides the preserved count", func(t *testing.T) {
		ledger, _ := newLedger()

		_, err := ledger.BulkReplace(ctx, doctorKey, []slot.SlotInput{
			{Date: "2026-09-01", Time: "10:00", IsAvailable: true, PatientLimit: 2},
		})
		require.NoError(t, err)
		_, err = ledger.Reserve(ctx, slot.Key{DoctorKey: doctorKey, Date: "2026-09-01", Time: "10:00"})
		require.NoError(t, err)

		out, err := ledger.BulkReplace(ctx, doctorKey, []slot.SlotInput{
			{Date: "2026-09-01", Time: "10:00", IsAvailable: true, PatientLimit: 2, CurrentBookings: intPtr(0)},
		})
		require.NoError(t, err)
		assert.Equal(t, 0, out[0].CurrentBookings)
	})

	t.Run("isBooked is recomputed, never trusted", func(t *testing.T) {
		ledger, _ := newLedger()

		out, err := ledger.BulkReplace(ctx, doctorKey, []slot.SlotInput{
			{Date: "2026-09-01", Time: "10:00", IsAvailable: true, PatientLimit: 1, CurrentBookings: intPtr(1)},
			{Date: "2026-09-01", Time: "11:00", IsAvailable: true, PatientLimit: 2, CurrentBookings: intPtr(1)},
		})
		require.NoError(t, err)
		assert.True(t, out[0].IsBooked)
		assert.False(t, out[1].IsBooked)
	})

	t.Run("limit is floored at one and negative counts at zero", func(t *testing.T) {
		ledger, _ := newLedger()

		out, err := ledger.BulkReplace(ctx, doctorKey, []slot.SlotInput{
			{Date: "2026-09-01", Time: "10:00", IsAvailable: true, PatientLimit: 0, CurrentBookings: intPtr(-2)},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, out[0].PatientLimit)
		assert.Equal(t, 0, out[0].CurrentBookings)
	})

	t.Run("duplicate input keys are rejected", func(t *testing.T) {
		ledger, _ := newLedger()

		_, err := ledger.BulkReplace(ctx, doctorKey, []slot.SlotInput{
			{Date: "2026-09-01", Time: "10:00", IsAvailable: true, PatientLimit: 1},
			{Date: "2026-09-01", Time: "10:00", IsAvailable: false, PatientLimit: 1},
		})
		assert.ErrorIs(t, err, slot.ErrInvalidInput)
	})

	t.Run("malformed date or time is rejected", func(t *testing.T) {
		ledger, _ := newLedger()

		_, err := ledger.BulkReplace(ctx, doctorKey, []slot.SlotInput{
			{Date: "09/01/2026", Time: "10:00", IsAvailable: true, PatientLimit: 1},
		})
		assert.ErrorIs(t, err, slot.ErrInvalidInput)

		_, err = ledger.BulkReplace(ctx, doctorKey, []slot.SlotInput{
			{Date: "2026-09-01", Time: "10am", IsAvailable: true, PatientLimit: 1},
		})
		assert.ErrorIs(t, err, slot.ErrInvalidInput)
	})

	t.Run("empty input clears the doctor's list", func(t *testing.T) {
		ledger, _ := newLedger()

		_, err := ledger.BulkReplace(ctx, doctorKey, []slot.SlotInput{
			{Date: "2026-09-01", Time: "10:00", IsAvailable: true, PatientLimit: 1},
		})
		require.NoError(t, err)

		out, err := ledger.BulkReplace(ctx, doctorKey, []slot.SlotInput{})
		require.NoError(t, err)
		assert.Empty(t, out)

		all, err := ledger.ListAll(ctx, doctorKey, "", "")
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestLedger_ReplaceDate(t *testing.T) {
	ctx := context.Background()
	doctorKey := uuid.New()
	ledger, _ := newLedger()

	_, err := ledger.BulkReplace(ctx, doctorKey, []slot.SlotInput{
		{Date: "2026-09-01", Time: "10:00", IsAvailable: true, PatientLimit: 2},
		{Date: "2026-09-02", Time: "10:00", IsAvailable: true, PatientLimit: 1},
	})
	require.NoError(t, err)

	_, err = ledger.Reserve(ctx, slot.Key{DoctorKey: doctorKey, Date: "2026-09-01", Time: "10:00"})
	require.NoError(t, err)

	// Input dates are overridden by the date argument.
	out, err := ledger.ReplaceDate(ctx, doctorKey, "2026-09-01", []slot.SlotInput{
		{Date: "2026-12-31", Time: "10:00", IsAvailable: true, PatientLimit: 2},
		{Time: "14:00", IsAvailable: true, PatientLimit: 1},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "2026-09-01", out[0].Date)
	assert.Equal(t, 1, out[0].CurrentBookings, "occupancy preserved within the date")
	assert.Equal(t, "2026-09-01", out[1].Date)

	// The other date is untouched.
	other, err := ledger.ListAll(ctx, doctorKey, "2026-09-02", "2026-09-02")
	require.NoError(t, err)
	require.Len(t, other, 1)

	_, err = ledger.ReplaceDate(ctx, doctorKey, "not-a-date", nil)
	assert.ErrorIs(t, err, slot.ErrInvalidInput)
}

func TestLedger_ListAvailable(t *testing.T) {
	ctx := context.Background()
	doctorKey := uuid.New()
	ledger, _ := newLedger()

	_, err := ledger.BulkReplace(ctx, doctorKey, []slot.SlotInput{
		{Date: "2026-09-01", Time: "09:00", IsAvailable: true, PatientLimit: 1},
		{Date: "2026-09-01", Time: "10:00", IsAvailable: false, PatientLimit: 1},
		{Date: "2026-09-01", Time: "11:00", IsAvailable: true, PatientLimit: 1, CurrentBookings: intPtr(1)},
		{Date: "2026-09-02", Time: "09:00", IsAvailable: true, PatientLimit: 1},
	})
	require.NoError(t, err)

	got, err := ledger.ListAvailable(ctx, doctorKey, "2026-09-01", "2026-09-01")
	require.NoError(t, err)
	require.Len(t, got, 1, "unavailable and full slots are filtered out")
	assert.Equal(t, "09:00", got[0].Time)

	all, err := ledger.ListAll(ctx, doctorKey, "2026-09-01", "2026-09-01")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Unknown doctor yields an empty list, not an error.
	got, err = ledger.ListAvailable(ctx, uuid.New(), "2026-09-01", "2026-09-01")
	require.NoError(t, err)
	assert.Empty(t, got)
}
