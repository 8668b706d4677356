package api

import (
	"github.com/carebridge/telehealth-booking/internal/appointment"
	"github.com/carebridge/telehealth-booking/internal/directory"
	"github.com/carebridge/telehealth-booking/internal/slot"
)

type BookAppointmentRequest struct {
	DoctorID string `json:"doctorId"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Type     string `json:"type"`
	Symptoms string `json:"symptoms"`
}

type BookingResponse struct {
	Appointment *appointment.Appointment `json:"appointment"`
	Doctor      *directory.DoctorRef     `json:"doctor"`
}

type ChangeStatusRequest struct {
	Status string `json:"status"`
}

type CheckDuplicateRequest struct {
	DoctorID string `json:"doctorId"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

type CheckDuplicateResponse struct {
	IsDuplicate bool `json:"isDuplicate"`
}

// SetAvailabilityRequest upserts one slot's doctor-controlled fields.
// IsAvailable is a pointer so a missing field can be rejected instead of
// silently defaulting to false.
type SetAvailabilityRequest struct {
	Date         string `json:"date"`
	Time         string `json:"time"`
	IsAvailable  *bool  `json:"isAvailable"`
	PatientLimit *int   `json:"patientLimit,omitempty"`
}

type BulkAvailabilityRequest struct {
	Slots []slot.SlotInput `json:"slots"`
}

type SlotsResponse struct {
	Slots []slot.Slot `json:"slots"`
}
