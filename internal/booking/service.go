package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carebridge/telehealth-booking/internal/appointment"
	"github.com/carebridge/telehealth-booking/internal/directory"
	"github.com/carebridge/telehealth-booking/internal/events"
	redisclient "github.com/carebridge/telehealth-booking/internal/redis"
	"github.com/carebridge/telehealth-booking/internal/slot"
)

const (
	EventBookingCreated    = "BOOKING_CREATED"
	EventBookingCancelled  = "BOOKING_CANCELLED"
	EventStatusChanged     = "STATUS_CHANGED"
	EventBookingRolledBack = "BOOKING_ROLLED_BACK"
	EventSlotAutoCreated   = "SLOT_AUTO_CREATED"
)

var (
	ErrDuplicateBooking  = errors.New("patient already has a scheduled appointment for this slot")
	ErrNotAuthorized     = errors.New("caller may not modify this appointment")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyFinalized  = errors.New("appointment is not scheduled")
	// ErrConflict is surfaced after retries on concurrent-write contention
	// are exhausted; the caller may retry the whole call.
	ErrConflict = errors.New("persistence conflict")
)

type Options struct {
	RetryMax  int           // attempts per operation, minimum 1
	RetryBase time.Duration // initial backoff between attempts

	// SlotAutoCreate materializes a missing slot (available, limit 1) on
	// booking instead of rejecting. Legacy-compatible; every use is
	// logged and audited.
	SlotAutoCreate bool
}

// Service orchestrates the two-sided update a booking or status change
// requires: the appointment record and the slot ledger. Writes touching
// both sides run inside the per-slot lock, so capacity and duplicate
// checks are evaluated against a consistent snapshot.
type Service struct {
	appts   appointment.Store
	ledger  *slot.Ledger
	doctors directory.DoctorDirectory
	locker  redisclient.Locker
	sink    events.Sink
	log     zerolog.Logger
	opts    Options
}

func NewService(
	appts appointment.Store,
	ledger *slot.Ledger,
	doctors directory.DoctorDirectory,
	locker redisclient.Locker,
	sink events.Sink,
	log zerolog.Logger,
	opts Options,
) *Service {
	if opts.RetryMax < 1 {
		opts.RetryMax = 3
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 50 * time.Millisecond
	}
	return &Service{
		appts:   appts,
		ledger:  ledger,
		doctors: doctors,
		locker:  locker,
		sink:    sink,
		log:     log.With().Str("component", "booking").Logger(),
		opts:    opts,
	}
}

type BookRequest struct {
	PatientID string
	DoctorID  string // public identifier or internal key
	Date      string
	Time      string
	Type      appointment.Type
	Symptoms  string
}

// Book reserves a slot and creates the appointment, or neither. The
// appointment is created first and deleted again if the reservation
// fails, so external observers never see a booking without its slot
// unit for longer than the critical section.
func (s *Service) Book(ctx context.Context, req BookRequest) (*appointment.Appointment, *directory.DoctorRef, error) {
	doc, err := s.doctors.Resolve(ctx, req.DoctorID)
	if err != nil {
		return nil, nil, err
	}

	draft := &appointment.Appointment{
		PatientID: req.PatientID,
		DoctorKey: doc.Key,
		Date:      req.Date,
		Time:      req.Time,
		Type:      req.Type,
		Symptoms:  req.Symptoms,
		Status:    appointment.StatusScheduled,
		SlotHeld:  true,
	}
	if err := appointment.ValidateNew(draft); err != nil {
		return nil, nil, err
	}

	key := draft.SlotKey()

	var created *appointment.Appointment
	err = s.withRetry(ctx, func() error {
		created = nil
		return s.locker.WithLock(ctx, key.LockKey(), func(lockCtx context.Context) error {
			sl, err := s.ledger.FindSlot(lockCtx, key)
			switch {
			case err == nil:
			case errors.Is(err, slot.ErrNotFound) && s.opts.SlotAutoCreate:
				sl, err = s.ledger.EnsureSlot(lockCtx, key)
				if err != nil {
					return fmt.Errorf("auto-create slot: %w", err)
				}
				s.log.Warn().Str("slot", key.LockKey()).Msg("auto-created missing slot on booking")
				s.appendEvent(lockCtx, nil, EventSlotAutoCreated, map[string]any{
					"slot": key.LockKey(),
				})
			default:
				return err
			}

			if !sl.IsAvailable {
				return slot.ErrNotAvailable
			}
			if sl.CurrentBookings >= sl.PatientLimit {
				return slot.ErrFull
			}

			// Same lock as the capacity check, so the duplicate check sees
			// a consistent snapshot.
			if _, err := s.appts.FindLive(lockCtx, req.PatientID, doc.Key, req.Date, req.Time); err == nil {
				return ErrDuplicateBooking
			} else if !errors.Is(err, appointment.ErrNotFound) {
				return fmt.Errorf("check duplicate: %w", err)
			}

			appt, err := s.appts.Create(lockCtx, draft)
			if err != nil {
				return fmt.Errorf("create appointment: %w", err)
			}

			if _, err := s.ledger.Reserve(lockCtx, key); err != nil {
				if delErr := s.appts.Delete(lockCtx, appt.ID); delErr != nil {
					s.log.Error().Err(delErr).
						Stringer("appointment_id", appt.ID).
						Msg("compensating delete failed, reconciler will repair")
				} else {
					s.appendEvent(lockCtx, &appt.ID, EventBookingRolledBack, map[string]any{
						"slot":   key.LockKey(),
						"reason": err.Error(),
					})
				}
				return err
			}

			created = appt
			s.appendEvent(lockCtx, &appt.ID, EventBookingCreated, map[string]any{
				"patient_id": req.PatientID,
				"doctor_key": doc.Key.String(),
				"slot":       key.LockKey(),
			})
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}

	return created, doc, nil
}

// ChangeStatus applies the transition table:
//
//	scheduled -> completed   release one occupancy unit
//	scheduled -> cancelled   release one occupancy unit
//	cancelled -> scheduled   reserve; fails full, appointment stays cancelled
//	same -> same             no-op (except completed, which is terminal)
//
// The slot effect runs after the status is durably updated, and a failed
// slot effect is logged, never rolled back.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, target appointment.Status) (*appointment.Appointment, error) {
	var out *appointment.Appointment
	err := s.withRetry(ctx, func() error {
		appt, err := s.appts.GetByID(ctx, id)
		if err != nil {
			return err
		}

		switch {
		case appt.Status == target && target != appointment.StatusCompleted:
			// Retry-safe no-op; the slot ledger is untouched.
			out = appt
			return nil

		case appt.Status == appointment.StatusScheduled &&
			(target == appointment.StatusCompleted || target == appointment.StatusCancelled):
			updated, err := s.appts.UpdateStatus(ctx, id, appointment.StatusScheduled, target)
			if err != nil {
				return err
			}
			s.releaseSlotEffect(ctx, updated)
			s.appendEvent(ctx, &updated.ID, EventStatusChanged, map[string]any{
				"from": string(appointment.StatusScheduled),
				"to":   string(target),
			})
			out = updated
			return nil

		case appt.Status == appointment.StatusCancelled && target == appointment.StatusScheduled:
			return s.reinstate(ctx, appt, &out)

		default:
			return ErrInvalidTransition
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel is the patient-facing cancellation: scheduled appointments
// only, and only by the patient who booked.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, callerID string) (*appointment.Appointment, error) {
	var out *appointment.Appointment
	err := s.withRetry(ctx, func() error {
		appt, err := s.appts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if appt.PatientID != callerID {
			return ErrNotAuthorized
		}
		if appt.Status != appointment.StatusScheduled {
			return ErrAlreadyFinalized
		}

		updated, err := s.appts.UpdateStatus(ctx, id, appointment.StatusScheduled, appointment.StatusCancelled)
		if err != nil {
			return err
		}
		s.releaseSlotEffect(ctx, updated)
		s.appendEvent(ctx, &updated.ID, EventBookingCancelled, map[string]any{
			"patient_id": callerID,
		})
		out = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CheckDuplicate is the pure pre-validation read: true iff a scheduled
// appointment already exists for (patient, doctor, date, time).
func (s *Service) CheckDuplicate(ctx context.Context, patientID, doctorID, date, timeOfDay string) (bool, error) {
	doc, err := s.doctors.Resolve(ctx, doctorID)
	if err != nil {
		return false, err
	}

	_, err = s.appts.FindLive(ctx, patientID, doc.Key, date, timeOfDay)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, appointment.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// reinstate moves a cancelled appointment back to scheduled. Unlike the
// release path, the reservation happens first: when the slot has filled
// up since cancellation the transition fails and the appointment stays
// cancelled.
func (s *Service) reinstate(ctx context.Context, appt *appointment.Appointment, out **appointment.Appointment) error {
	key := appt.SlotKey()

	return s.locker.WithLock(ctx, key.LockKey(), func(lockCtx context.Context) error {
		if existing, err := s.appts.FindLive(lockCtx, appt.PatientID, appt.DoctorKey, appt.Date, appt.Time); err == nil && existing.ID != appt.ID {
			return ErrDuplicateBooking
		} else if err != nil && !errors.Is(err, appointment.ErrNotFound) {
			return fmt.Errorf("check duplicate: %w", err)
		}

		if s.opts.SlotAutoCreate {
			if _, err := s.ledger.EnsureSlot(lockCtx, key); err != nil {
				return fmt.Errorf("ensure slot: %w", err)
			}
		}

		if _, err := s.ledger.Reserve(lockCtx, key); err != nil {
			return err
		}

		updated, err := s.appts.UpdateStatus(lockCtx, appt.ID, appointment.StatusCancelled, appointment.StatusScheduled)
		if err != nil {
			// Concurrent change won; give the unit back.
			if _, relErr := s.ledger.Release(lockCtx, key); relErr != nil {
				s.log.Error().Err(relErr).
					Str("slot", key.LockKey()).
					Msg("release after failed reinstatement failed, occupancy drift until reconciliation")
			}
			return err
		}

		if flipped, err := s.appts.SetSlotHeld(lockCtx, updated.ID, false, true); err != nil {
			s.log.Error().Err(err).
				Stringer("appointment_id", updated.ID).
				Msg("slot-held flip failed, occupancy drift until reconciliation")
		} else if flipped {
			updated.SlotHeld = true
		}

		s.appendEvent(lockCtx, &updated.ID, EventStatusChanged, map[string]any{
			"from": string(appointment.StatusCancelled),
			"to":   string(appointment.StatusScheduled),
		})
		*out = updated
		return nil
	})
}

// releaseSlotEffect gives back the appointment's occupancy unit exactly
// once: the slot_held flag is flipped with a guarded update first, and
// the ledger decrement only runs when this call won the flip.
func (s *Service) releaseSlotEffect(ctx context.Context, appt *appointment.Appointment) {
	flipped, err := s.appts.SetSlotHeld(ctx, appt.ID, true, false)
	if err != nil {
		s.log.Error().Err(err).
			Stringer("appointment_id", appt.ID).
			Msg("slot-held flip failed, occupancy drift until reconciliation")
		return
	}
	if !flipped {
		// Effect already applied by an earlier call.
		return
	}
	appt.SlotHeld = false

	if _, err := s.ledger.Release(ctx, appt.SlotKey()); err != nil {
		s.log.Error().Err(err).
			Str("slot", appt.SlotKey().LockKey()).
			Msg("slot release failed, occupancy drift until reconciliation")
	}
}

func (s *Service) withRetry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.opts.RetryBase
	bo.MaxInterval = s.opts.RetryBase * 8

	retries := uint64(s.opts.RetryMax - 1)
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, retries), ctx)

	err := backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)

	if err != nil && retryable(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func retryable(err error) bool {
	return errors.Is(err, redisclient.ErrLockNotAcquired) ||
		errors.Is(err, appointment.ErrConflict)
}

func (s *Service) appendEvent(ctx context.Context, appointmentID *uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload failed")
		data = nil
	}

	ev := events.Event{
		EventType:     eventType,
		AppointmentID: appointmentID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.sink.Append(ctx, ev); err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("append booking event failed")
	}
}
