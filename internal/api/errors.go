package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/carebridge/telehealth-booking/internal/appointment"
	"github.com/carebridge/telehealth-booking/internal/booking"
	"github.com/carebridge/telehealth-booking/internal/directory"
	"github.com/carebridge/telehealth-booking/internal/slot"
)

// mapError translates domain errors into HTTP responses. Business-rule
// rejections keep their message; unexpected errors are logged with
// context and surfaced as a generic failure.
func mapError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var vErr *appointment.ValidationError

	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "validation_error", vErr.Error())
	case errors.Is(err, slot.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, directory.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, directory.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, slot.ErrNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, slot.ErrNotAvailable):
		writeError(w, http.StatusConflict, "slot_unavailable", "this time slot is not available")
	case errors.Is(err, slot.ErrFull):
		writeError(w, http.StatusConflict, "slot_full", "this time slot is fully booked")
	case errors.Is(err, booking.ErrDuplicateBooking):
		writeError(w, http.StatusConflict, "duplicate_booking", "you already have an appointment scheduled with this doctor at this time")
	case errors.Is(err, booking.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "not_authorized", err.Error())
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrAlreadyFinalized):
		writeError(w, http.StatusConflict, "already_finalized", "cannot cancel a completed or already cancelled appointment")
	case errors.Is(err, booking.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", "the booking is contended, please retry")
	case errors.Is(err, directory.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "directory_unavailable", "a required directory is unavailable")
	default:
		log.Error().Err(err).Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "internal_error", "an internal error occurred")
	}
}
