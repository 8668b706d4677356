package appointment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/telehealth-booking/internal/slot"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("invalid status %q", s)
}

type Type string

const (
	TypeConsultation Type = "consultation"
	TypeFollowUp     Type = "follow-up"
	TypeEmergency    Type = "emergency"
)

func validType(t Type) bool {
	switch t {
	case TypeConsultation, TypeFollowUp, TypeEmergency:
		return true
	}
	return false
}

var (
	ErrNotFound = errors.New("appointment not found")
	// ErrConflict means a guarded update found the record in a different
	// state than expected, i.e. a concurrent writer got there first.
	ErrConflict = errors.New("appointment modified concurrently")
)

// Appointment references its slot explicitly through (DoctorKey, Date,
// Time); DoctorKey is the doctor's canonical internal id, resolved once
// at booking time. SlotHeld records whether this appointment currently
// owns one unit of slot occupancy, which makes reserve/release effects
// idempotent per appointment.
type Appointment struct {
	ID        uuid.UUID `json:"id"`
	PatientID string    `json:"patientId"`
	DoctorKey uuid.UUID `json:"doctorId"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Type      Type      `json:"type"`
	Symptoms  string    `json:"symptoms"`
	Status    Status    `json:"status"`
	SlotHeld  bool      `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *Appointment) SlotKey() slot.Key {
	return slot.Key{DoctorKey: a.DoctorKey, Date: a.Date, Time: a.Time}
}

// ValidationError lists the offending fields of a rejected record.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid appointment: " + strings.Join(e.Fields, ", ")
}

// ValidateNew checks the field-level rules for a record about to be
// created.
func ValidateNew(a *Appointment) error {
	var bad []string

	if a.PatientID == "" {
		bad = append(bad, "patientId")
	}
	if a.DoctorKey == uuid.Nil {
		bad = append(bad, "doctorId")
	}
	if slot.ValidateDate(a.Date) != nil {
		bad = append(bad, "date")
	}
	if slot.ValidateTime(a.Time) != nil {
		bad = append(bad, "time")
	}
	if !validType(a.Type) {
		bad = append(bad, "type")
	}
	if a.Symptoms == "" {
		bad = append(bad, "symptoms")
	}
	if _, err := ParseStatus(string(a.Status)); err != nil {
		bad = append(bad, "status")
	}

	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	return nil
}
