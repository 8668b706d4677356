package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound  = errors.New("doctor not found")
	ErrPatientNotFound = errors.New("patient not found")
	// ErrUnavailable wraps transport failures from the backing directory,
	// as opposed to a clean miss.
	ErrUnavailable = errors.New("directory unavailable")
)

// DoctorRef is the resolved identity of a doctor. Key is the canonical
// internal id every other record references; PublicID is the identifier
// exposed to clients. Callers may present either, and resolution happens
// here, once, at the boundary.
type DoctorRef struct {
	Key            uuid.UUID `json:"id"`
	PublicID       string    `json:"publicId"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
	Description    string    `json:"description"`
}

// PatientRef carries the display fields the projection layer joins in.
type PatientRef struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

type DoctorDirectory interface {
	// Resolve accepts a public identifier or the canonical internal key.
	Resolve(ctx context.Context, idOrKey string) (*DoctorRef, error)

	// ResolveAccount maps an authenticated caller identity to the doctor
	// it belongs to, or ErrDoctorNotFound if the caller is not a doctor.
	ResolveAccount(ctx context.Context, accountID string) (*DoctorRef, error)
}

type PatientDirectory interface {
	Resolve(ctx context.Context, patientID string) (*PatientRef, error)
}
