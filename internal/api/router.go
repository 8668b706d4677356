package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/carebridge/telehealth-booking/internal/booking"
	"github.com/carebridge/telehealth-booking/internal/directory"
	"github.com/carebridge/telehealth-booking/internal/query"
	"github.com/carebridge/telehealth-booking/internal/slot"
)

type RouterConfig struct {
	Booking *booking.Service
	Query   *query.Service
	Ledger  *slot.Ledger
	Doctors directory.DoctorDirectory

	// Health is optional; tests wire the router without backing stores.
	Health *HealthHandler

	Log zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	h := &Handlers{
		booking: cfg.Booking,
		query:   cfg.Query,
		ledger:  cfg.Ledger,
		doctors: cfg.Doctors,
		log:     cfg.Log,
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}

	r.Group(func(r chi.Router) {
		r.Use(IdentityMiddleware)

		r.Get("/appointments", h.listAppointments)
		r.Post("/appointments", h.bookAppointment)
		r.Post("/appointments/check-duplicate", h.checkDuplicate)
		r.Patch("/appointments/{id}/status", h.changeStatus)
		r.Patch("/appointments/{id}/cancel", h.cancelAppointment)

		r.Get("/doctors/availability", h.getAvailability)
		r.Patch("/doctors/availability", h.setAvailability)
		r.Patch("/doctors/availability/bulk", h.bulkReplaceAvailability)
		r.Patch("/doctors/availability/date/{date}", h.replaceDateAvailability)
		r.Get("/doctors/{id}/available-slots", h.listAvailableSlots)
	})

	return r
}
