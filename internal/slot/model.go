package slot

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var (
	ErrNotFound     = errors.New("slot not found")
	ErrNotAvailable = errors.New("slot is not available")
	ErrFull         = errors.New("slot is fully booked")
	ErrInvalidInput = errors.New("invalid slot input")
)

// Slot is one bookable unit of a doctor's availability, identified by
// (doctor, date, time). IsBooked is derived: it always equals
// CurrentBookings >= PatientLimit and is recomputed on every occupancy
// change, never written on its own.
type Slot struct {
	DoctorKey       uuid.UUID `json:"-"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	IsAvailable     bool      `json:"isAvailable"`
	IsBooked        bool      `json:"isBooked"`
	PatientLimit    int       `json:"patientLimit"`
	CurrentBookings int       `json:"currentBookings"`
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

// Bookable reports whether a new reservation may target this slot.
func (s *Slot) Bookable() bool {
	return s.IsAvailable && s.CurrentBookings < s.PatientLimit
}

// Key is a slot's composite identity.
type Key struct {
	DoctorKey uuid.UUID
	Date      string
	Time      string
}

// LockKey is the string form used for per-slot serialization.
func (k Key) LockKey() string {
	return fmt.Sprintf("%s:%s:%s", k.DoctorKey, k.Date, k.Time)
}

func (k Key) Validate() error {
	if k.DoctorKey == uuid.Nil {
		return fmt.Errorf("%w: doctor key is required", ErrInvalidInput)
	}
	if err := ValidateDate(k.Date); err != nil {
		return err
	}
	return ValidateTime(k.Time)
}

// SlotInput is the caller-supplied shape for availability writes.
// CurrentBookings is a pointer so bulk replace can tell "explicitly zero"
// apart from "absent, preserve what the ledger has".
type SlotInput struct {
	Date            string `json:"date"`
	Time            string `json:"time"`
	IsAvailable     bool   `json:"isAvailable"`
	PatientLimit    int    `json:"patientLimit"`
	CurrentBookings *int   `json:"currentBookings,omitempty"`
}

func ValidateDate(d string) error {
	if len(d) != len(DateLayout) {
		return fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, d)
	}
	if _, err := time.Parse(DateLayout, d); err != nil {
		return fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, d)
	}
	return nil
}

func ValidateTime(t string) error {
	if len(t) != len(TimeLayout) {
		return fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidInput, t)
	}
	if _, err := time.Parse(TimeLayout, t); err != nil {
		return fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidInput, t)
	}
	return nil
}
