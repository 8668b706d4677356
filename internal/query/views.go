package query

import (
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/telehealth-booking/internal/appointment"
)

// DoctorAppointmentView is the doctor-facing row: the appointment joined
// with the patient's display fields.
type DoctorAppointmentView struct {
	ID                uuid.UUID          `json:"id"`
	Date              string             `json:"date"`
	Time              string             `json:"time"`
	Status            appointment.Status `json:"status"`
	Type              appointment.Type   `json:"type"`
	Symptoms          string             `json:"symptoms"`
	PatientName       string             `json:"patientName"`
	PatientEmail      string             `json:"patientEmail"`
	PatientPhone      string             `json:"patientPhone"`
	AppointmentReason string             `json:"appointmentReason"`
}

// PatientAppointmentView is the patient-facing row: the appointment
// joined with the doctor's display fields.
type PatientAppointmentView struct {
	ID             uuid.UUID          `json:"id"`
	DoctorID       string             `json:"doctorId"`
	DoctorName     string             `json:"doctorName"`
	Specialization string             `json:"specialization"`
	Description    string             `json:"description"`
	Date           string             `json:"date"`
	Time           string             `json:"time"`
	Type           appointment.Type   `json:"type"`
	Symptoms       string             `json:"symptoms"`
	Status         appointment.Status `json:"status"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// PatientAppointments splits the patient's history into what is still
// ahead of them and what is behind them.
type PatientAppointments struct {
	Upcoming []PatientAppointmentView `json:"upcoming"`
	Previous []PatientAppointmentView `json:"previous"`
}
