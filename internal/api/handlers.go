package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carebridge/telehealth-booking/internal/appointment"
	"github.com/carebridge/telehealth-booking/internal/booking"
	"github.com/carebridge/telehealth-booking/internal/directory"
	"github.com/carebridge/telehealth-booking/internal/query"
	"github.com/carebridge/telehealth-booking/internal/slot"
)

type Handlers struct {
	booking *booking.Service
	query   *query.Service
	ledger  *slot.Ledger
	doctors directory.DoctorDirectory
	log     zerolog.Logger
}

// listAppointments is role-sensitive: a caller that resolves to a doctor
// account gets the doctor view, everyone else gets the patient view.
func (h *Handlers) listAppointments(w http.ResponseWriter, r *http.Request) {
	callerID := CallerID(r.Context())

	doc, err := h.doctors.ResolveAccount(r.Context(), callerID)
	switch {
	case err == nil:
		views, err := h.query.DoctorView(r.Context(), doc.Key)
		if err != nil {
			mapError(w, h.log, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	case errors.Is(err, directory.ErrDoctorNotFound):
		views, err := h.query.PatientView(r.Context(), callerID)
		if err != nil {
			mapError(w, h.log, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	default:
		mapError(w, h.log, err)
	}
}

func (h *Handlers) bookAppointment(w http.ResponseWriter, r *http.Request) {
	var req BookAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	appt, doc, err := h.booking.Book(r.Context(), booking.BookRequest{
		PatientID: CallerID(r.Context()),
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		Time:      req.Time,
		Type:      appointment.Type(req.Type),
		Symptoms:  req.Symptoms,
	})
	if err != nil {
		mapError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, BookingResponse{Appointment: appt, Doctor: doc})
}

func (h *Handlers) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	var req ChangeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	status, err := appointment.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	appt, err := h.booking.ChangeStatus(r.Context(), id, status)
	if err != nil {
		mapError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, appt)
}

func (h *Handlers) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	appt, err := h.booking.Cancel(r.Context(), id, CallerID(r.Context()))
	if err != nil {
		mapError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, appt)
}

func (h *Handlers) checkDuplicate(w http.ResponseWriter, r *http.Request) {
	var req CheckDuplicateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	if err := slot.ValidateDate(req.Date); err != nil {
		mapError(w, h.log, err)
		return
	}
	if err := slot.ValidateTime(req.Time); err != nil {
		mapError(w, h.log, err)
		return
	}

	dup, err := h.booking.CheckDuplicate(r.Context(), CallerID(r.Context()), req.DoctorID, req.Date, req.Time)
	if err != nil {
		mapError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, CheckDuplicateResponse{IsDuplicate: dup})
}

// callerDoctor resolves the caller to a doctor account for the
// availability endpoints.
func (h *Handlers) callerDoctor(w http.ResponseWriter, r *http.Request) (*directory.DoctorRef, bool) {
	doc, err := h.doctors.ResolveAccount(r.Context(), CallerID(r.Context()))
	if err != nil {
		mapError(w, h.log, err)
		return nil, false
	}
	return doc, true
}

func (h *Handlers) getAvailability(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.callerDoctor(w, r)
	if !ok {
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if date := r.URL.Query().Get("date"); date != "" {
		from, to = date, date
	}

	slots, err := h.ledger.ListAll(r.Context(), doc.Key, from, to)
	if err != nil {
		mapError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, SlotsResponse{Slots: slots})
}

func (h *Handlers) setAvailability(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.callerDoctor(w, r)
	if !ok {
		return
	}

	var req SetAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if req.IsAvailable == nil {
		writeError(w, http.StatusBadRequest, "validation_error", "isAvailable is required")
		return
	}

	key := slot.Key{DoctorKey: doc.Key, Date: req.Date, Time: req.Time}
	s, err := h.ledger.SetAvailability(r.Context(), key, *req.IsAvailable, req.PatientLimit)
	if err != nil {
		mapError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, s)
}

func (h *Handlers) bulkReplaceAvailability(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.callerDoctor(w, r)
	if !ok {
		return
	}

	var req BulkAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if req.Slots == nil {
		writeError(w, http.StatusBadRequest, "validation_error", "slots must be an array")
		return
	}

	slots, err := h.ledger.BulkReplace(r.Context(), doc.Key, req.Slots)
	if err != nil {
		mapError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, SlotsResponse{Slots: slots})
}

func (h *Handlers) replaceDateAvailability(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.callerDoctor(w, r)
	if !ok {
		return
	}

	var req BulkAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if req.Slots == nil {
		writeError(w, http.StatusBadRequest, "validation_error", "slots must be an array")
		return
	}

	slots, err := h.ledger.ReplaceDate(r.Context(), doc.Key, chi.URLParam(r, "date"), req.Slots)
	if err != nil {
		mapError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, SlotsResponse{Slots: slots})
}

func (h *Handlers) listAvailableSlots(w http.ResponseWriter, r *http.Request) {
	doc, err := h.doctors.Resolve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, h.log, err)
		return
	}

	date := r.URL.Query().Get("date")
	if err := slot.ValidateDate(date); err != nil {
		mapError(w, h.log, err)
		return
	}

	slots, err := h.ledger.ListAvailable(r.Context(), doc.Key, date, date)
	if err != nil {
		mapError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, SlotsResponse{Slots: slots})
}
