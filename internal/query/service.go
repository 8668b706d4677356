package query

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carebridge/telehealth-booking/internal/appointment"
	"github.com/carebridge/telehealth-booking/internal/directory"
	"github.com/carebridge/telehealth-booking/internal/slot"
)

const (
	unknownPatient = "Unknown Patient"
	unknownDoctor  = "Unknown Doctor"
)

// Service builds caller-facing appointment views. Strictly read-only: a
// missing joined entity degrades to placeholder display values, it never
// fails the request.
type Service struct {
	appts    appointment.Store
	doctors  directory.DoctorDirectory
	patients directory.PatientDirectory
	log      zerolog.Logger

	// Now is swappable for tests.
	Now func() time.Time
}

func NewService(
	appts appointment.Store,
	doctors directory.DoctorDirectory,
	patients directory.PatientDirectory,
	log zerolog.Logger,
) *Service {
	return &Service{
		appts:    appts,
		doctors:  doctors,
		patients: patients,
		log:      log.With().Str("component", "query").Logger(),
		Now:      time.Now,
	}
}

// DoctorView returns every appointment assigned to the doctor, date
// ascending, enriched with patient display fields.
func (s *Service) DoctorView(ctx context.Context, doctorKey uuid.UUID) ([]DoctorAppointmentView, error) {
	appts, err := s.appts.ListByDoctor(ctx, doctorKey)
	if err != nil {
		return nil, err
	}

	out := make([]DoctorAppointmentView, 0, len(appts))
	for _, a := range appts {
		v := DoctorAppointmentView{
			ID:                a.ID,
			Date:              a.Date,
			Time:              a.Time,
			Status:            a.Status,
			Type:              a.Type,
			Symptoms:          a.Symptoms,
			PatientName:       unknownPatient,
			AppointmentReason: a.Symptoms,
		}

		ref, err := s.patients.Resolve(ctx, a.PatientID)
		if err == nil {
			v.PatientName = ref.DisplayName
			v.PatientEmail = ref.Email
			v.PatientPhone = ref.Phone
		} else {
			s.log.Debug().Err(err).Str("patient_id", a.PatientID).Msg("patient lookup degraded to placeholder")
		}

		out = append(out, v)
	}

	return out, nil
}

// PatientView returns the patient's appointments split into upcoming
// (today or later, still scheduled) and previous (everything else),
// enriched with doctor display fields.
func (s *Service) PatientView(ctx context.Context, patientID string) (*PatientAppointments, error) {
	appts, err := s.appts.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	today := s.Now().Format(slot.DateLayout)
	result := &PatientAppointments{
		Upcoming: []PatientAppointmentView{},
		Previous: []PatientAppointmentView{},
	}

	doctorCache := make(map[uuid.UUID]*directory.DoctorRef)

	for _, a := range appts {
		v := PatientAppointmentView{
			ID:         a.ID,
			DoctorID:   a.DoctorKey.String(),
			DoctorName: unknownDoctor,
			Date:       a.Date,
			Time:       a.Time,
			Type:       a.Type,
			Symptoms:   a.Symptoms,
			Status:     a.Status,
			CreatedAt:  a.CreatedAt,
			UpdatedAt:  a.UpdatedAt,
		}

		ref, ok := doctorCache[a.DoctorKey]
		if !ok {
			ref, err = s.doctors.Resolve(ctx, a.DoctorKey.String())
			if err != nil {
				s.log.Debug().Err(err).Stringer("doctor_key", a.DoctorKey).Msg("doctor lookup degraded to placeholder")
				ref = nil
			}
			doctorCache[a.DoctorKey] = ref
		}
		if ref != nil {
			v.DoctorID = ref.PublicID
			v.DoctorName = ref.Name
			v.Specialization = ref.Specialization
			v.Description = ref.Description
		}

		// String comparison is safe: dates are stored as YYYY-MM-DD.
		if a.Status == appointment.StatusScheduled && a.Date >= today {
			result.Upcoming = append(result.Upcoming, v)
		} else {
			result.Previous = append(result.Previous, v)
		}
	}

	return result, nil
}
