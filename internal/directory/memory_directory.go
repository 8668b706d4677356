package directory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryDoctor is the seedable record behind the in-memory directory.
type MemoryDoctor struct {
	Ref       DoctorRef
	AccountID string
}

// MemoryDoctorDirectory backs tests and redis-less local runs.
type MemoryDoctorDirectory struct {
	mu      sync.RWMutex
	doctors []MemoryDoctor
}

func NewMemoryDoctorDirectory() *MemoryDoctorDirectory {
	return &MemoryDoctorDirectory{}
}

func (d *MemoryDoctorDirectory) Add(doc MemoryDoctor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doctors = append(d.doctors, doc)
}

func (d *MemoryDoctorDirectory) Resolve(_ context.Context, idOrKey string) (*DoctorRef, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	key, keyErr := uuid.Parse(idOrKey)
	for _, doc := range d.doctors {
		if doc.Ref.PublicID == idOrKey || (keyErr == nil && doc.Ref.Key == key) {
			ref := doc.Ref
			return &ref, nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (d *MemoryDoctorDirectory) ResolveAccount(_ context.Context, accountID string) (*DoctorRef, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, doc := range d.doctors {
		if doc.AccountID == accountID {
			ref := doc.Ref
			return &ref, nil
		}
	}
	return nil, ErrDoctorNotFound
}

type MemoryPatientDirectory struct {
	mu       sync.RWMutex
	patients map[string]PatientRef
}

func NewMemoryPatientDirectory() *MemoryPatientDirectory {
	return &MemoryPatientDirectory{patients: make(map[string]PatientRef)}
}

func (p *MemoryPatientDirectory) Add(id string, ref PatientRef) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.patients[id] = ref
}

func (p *MemoryPatientDirectory) Resolve(_ context.Context, patientID string) (*PatientRef, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ref, ok := p.patients[patientID]
	if !ok {
		return nil, ErrPatientNotFound
	}
	out := ref
	return &out, nil
}
