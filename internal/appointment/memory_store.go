package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store with the same guarded-update
// semantics as the Postgres store.
type MemoryStore struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*Appointment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{appts: make(map[uuid.UUID]*Appointment)}
}

func (st *MemoryStore) Create(_ context.Context, a *Appointment) (*Appointment, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	stored := *a
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	st.appts[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (st *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	a, ok := st.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *a
	return &out, nil
}

func (st *MemoryStore) FindLive(_ context.Context, patientID string, doctorKey uuid.UUID, date, timeOfDay string) (*Appointment, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, a := range st.appts {
		if a.PatientID == patientID &&
			a.DoctorKey == doctorKey &&
			a.Date == date &&
			a.Time == timeOfDay &&
			a.Status == StatusScheduled {
			out := *a
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (st *MemoryStore) ListByPatient(_ context.Context, patientID string) ([]Appointment, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	var result []Appointment
	for _, a := range st.appts {
		if a.PatientID == patientID {
			result = append(result, *a)
		}
	}
	sortAppointments(result)
	return result, nil
}

func (st *MemoryStore) ListByDoctor(_ context.Context, doctorKey uuid.UUID) ([]Appointment, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	var result []Appointment
	for _, a := range st.appts {
		if a.DoctorKey == doctorKey {
			result = append(result, *a)
		}
	}
	sortAppointments(result)
	return result, nil
}

func (st *MemoryStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	a, ok := st.appts[id]
	if !ok || a.Status != from {
		return nil, ErrConflict
	}

	a.Status = to
	a.UpdatedAt = time.Now()
	out := *a
	return &out, nil
}

func (st *MemoryStore) SetSlotHeld(_ context.Context, id uuid.UUID, expected, held bool) (bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	a, ok := st.appts[id]
	if !ok || a.SlotHeld != expected {
		return false, nil
	}

	a.SlotHeld = held
	a.UpdatedAt = time.Now()
	return true, nil
}

func (st *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.appts[id]; !ok {
		return ErrNotFound
	}
	delete(st.appts, id)
	return nil
}

func (st *MemoryStore) CountHoldingSlot(_ context.Context, doctorKey uuid.UUID, date, timeOfDay string) (int, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	n := 0
	for _, a := range st.appts {
		if a.DoctorKey == doctorKey &&
			a.Date == date &&
			a.Time == timeOfDay &&
			a.SlotHeld &&
			a.Status == StatusScheduled {
			n++
		}
	}
	return n, nil
}

func (st *MemoryStore) ClearStaleHolds(_ context.Context) (int64, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	var n int64
	for _, a := range st.appts {
		if a.SlotHeld && a.Status != StatusScheduled {
			a.SlotHeld = false
			a.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func sortAppointments(appts []Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		if appts[i].Date != appts[j].Date {
			return appts[i].Date < appts[j].Date
		}
		return appts[i].Time < appts[j].Time
	})
}
