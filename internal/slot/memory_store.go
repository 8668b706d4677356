package slot

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store with the same semantics as the
// Postgres store. It backs tests and redis-less local runs.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[Key]*Slot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[Key]*Slot)}
}

func (st *MemoryStore) Get(_ context.Context, key Key) (*Slot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.slots[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := *s
	return &out, nil
}

func (st *MemoryStore) Ensure(_ context.Context, key Key) (*Slot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.slots[key]
	if !ok {
		now := time.Now()
		s = &Slot{
			DoctorKey:       key.DoctorKey,
			Date:            key.Date,
			Time:            key.Time,
			IsAvailable:     true,
			PatientLimit:    1,
			CurrentBookings: 0,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		st.slots[key] = s
	}
	out := *s
	return &out, nil
}

func (st *MemoryStore) Reserve(_ context.Context, key Key) (*Slot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.slots[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !s.IsAvailable {
		return nil, ErrNotAvailable
	}
	if s.CurrentBookings >= s.PatientLimit {
		return nil, ErrFull
	}

	s.CurrentBookings++
	s.IsBooked = s.CurrentBookings >= s.PatientLimit
	s.UpdatedAt = time.Now()

	out := *s
	return &out, nil
}

func (st *MemoryStore) Release(_ context.Context, key Key) (*Slot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.slots[key]
	if !ok {
		return nil, ErrNotFound
	}

	if s.CurrentBookings > 0 {
		s.CurrentBookings--
	}
	s.IsBooked = s.CurrentBookings >= s.PatientLimit
	s.UpdatedAt = time.Now()

	out := *s
	return &out, nil
}

func (st *MemoryStore) SetAvailability(_ context.Context, key Key, isAvailable bool, patientLimit *int) (*Slot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.slots[key]
	if !ok {
		s = &Slot{
			DoctorKey:    key.DoctorKey,
			Date:         key.Date,
			Time:         key.Time,
			PatientLimit: 1,
			CreatedAt:    time.Now(),
		}
		st.slots[key] = s
	}

	s.IsAvailable = isAvailable
	if patientLimit != nil {
		s.PatientLimit = *patientLimit
	}
	s.IsBooked = s.CurrentBookings >= s.PatientLimit
	s.UpdatedAt = time.Now()

	out := *s
	return &out, nil
}

func (st *MemoryStore) SetOccupancy(_ context.Context, key Key, n int) (*Slot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.slots[key]
	if !ok {
		return nil, ErrNotFound
	}

	if n < 0 {
		n = 0
	}
	s.CurrentBookings = n
	s.IsBooked = s.CurrentBookings >= s.PatientLimit
	s.UpdatedAt = time.Now()

	out := *s
	return &out, nil
}

func (st *MemoryStore) ReplaceAll(_ context.Context, doctorKey uuid.UUID, slots []Slot) ([]Slot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	for key := range st.slots {
		if key.DoctorKey == doctorKey {
			delete(st.slots, key)
		}
	}
	return st.insertLocked(doctorKey, slots), nil
}

func (st *MemoryStore) ReplaceDate(_ context.Context, doctorKey uuid.UUID, date string, slots []Slot) ([]Slot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	for key := range st.slots {
		if key.DoctorKey == doctorKey && key.Date == date {
			delete(st.slots, key)
		}
	}
	return st.insertLocked(doctorKey, slots), nil
}

func (st *MemoryStore) insertLocked(doctorKey uuid.UUID, slots []Slot) []Slot {
	now := time.Now()
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		stored := s
		stored.DoctorKey = doctorKey
		stored.CreatedAt = now
		stored.UpdatedAt = now
		st.slots[Key{DoctorKey: doctorKey, Date: s.Date, Time: s.Time}] = &stored
		out = append(out, stored)
	}
	return out
}

func (st *MemoryStore) List(_ context.Context, doctorKey uuid.UUID, from, to string) ([]Slot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	var result []Slot
	for key, s := range st.slots {
		if key.DoctorKey != doctorKey {
			continue
		}
		if from != "" && s.Date < from {
			continue
		}
		if to != "" && s.Date > to {
			continue
		}
		result = append(result, *s)
	}

	sortSlots(result)
	return result, nil
}

func (st *MemoryStore) All(_ context.Context) ([]Slot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	result := make([]Slot, 0, len(st.slots))
	for _, s := range st.slots {
		result = append(result, *s)
	}

	sortSlots(result)
	return result, nil
}

func sortSlots(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Date != slots[j].Date {
			return slots[i].Date < slots[j].Date
		}
		return slots[i].Time < slots[j].Time
	})
}
