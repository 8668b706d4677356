package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/telehealth-booking/internal/api"
	"github.com/carebridge/telehealth-booking/internal/appointment"
	"github.com/carebridge/telehealth-booking/internal/booking"
	"github.com/carebridge/telehealth-booking/internal/directory"
	"github.com/carebridge/telehealth-booking/internal/events"
	"github.com/carebridge/telehealth-booking/internal/query"
	redisclient "github.com/carebridge/telehealth-booking/internal/redis"
	"github.com/carebridge/telehealth-booking/internal/slot"
)

type testServer struct {
	srv       *httptest.Server
	appts     *appointment.MemoryStore
	ledger    *slot.Ledger
	doctorKey uuid.UUID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	appts := appointment.NewMemoryStore()
	ledger := slot.NewLedger(slot.NewMemoryStore(), zerolog.Nop())
	doctors := directory.NewMemoryDoctorDirectory()
	patients := directory.NewMemoryPatientDirectory()
	doctorKey := uuid.New()

	doctors.Add(directory.MemoryDoctor{
		Ref: directory.DoctorRef{
			Key:            doctorKey,
			PublicID:       "doc-1",
			Name:           "Dr. Reyes",
			Specialization: "Cardiology",
		},
		AccountID: "account-doc-1",
	})
	patients.Add("patient-1", directory.PatientRef{DisplayName: "Ada West"})

	bookingSvc := booking.NewService(appts, ledger, doctors, redisclient.NewLocalLocker(),
		events.NewMemorySink(), zerolog.Nop(), booking.Options{})
	querySvc := query.NewService(appts, doctors, patients, zerolog.Nop())

	router := api.NewRouter(api.RouterConfig{
		Booking: bookingSvc,
		Query:   querySvc,
		Ledger:  ledger,
		Doctors: doctors,
		Log:     zerolog.Nop(),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, appts: appts, ledger: ledger, doctorKey: doctorKey}
}

func (ts *testServer) do(t *testing.T, method, path, callerID string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if callerID != "" {
		req.Header.Set("X-Caller-ID", callerID)
	}

	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (ts *testServer) addSlot(t *testing.T, date, timeOfDay string, limit int) {
	t.Helper()
	key := slot.Key{DoctorKey: ts.doctorKey, Date: date, Time: timeOfDay}
	_, err := ts.ledger.SetAvailability(context.Background(), key, true, &limit)
	require.NoError(t, err)
}

func bookBody(date, timeOfDay string) map[string]string {
	return map[string]string{
		"doctorId": "doc-1",
		"date":     date,
		"time":     timeOfDay,
		"type":     "consultation",
		"symptoms": "persistent cough",
	}
}

func TestIdentityRequired(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/appointments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body := decode[api.ErrorResponse](t, resp)
	assert.Equal(t, "missing_identity", body.Error)
}

func TestBookAppointmentEndpoint(t *testing.T) {
	t.Run("books and returns 201 with doctor details", func(t *testing.T) {
		ts := newTestServer(t)
		ts.addSlot(t, "2026-09-01", "10:00", 1)

		resp := ts.do(t, http.MethodPost, "/appointments", "patient-1", bookBody("2026-09-01", "10:00"))
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		body := decode[api.BookingResponse](t, resp)
		assert.Equal(t, "patient-1", body.Appointment.PatientID)
		assert.Equal(t, appointment.StatusScheduled, body.Appointment.Status)
		assert.Equal(t, "Dr. Reyes", body.Doctor.Name)
	})

	t.Run("duplicate booking is 409", func(t *testing.T) {
		ts := newTestServer(t)
		ts.addSlot(t, "2026-09-01", "10:00", 2)

		resp := ts.do(t, http.MethodPost, "/appointments", "patient-1", bookBody("2026-09-01", "10:00"))
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = ts.do(t, http.MethodPost, "/appointments", "patient-1", bookBody("2026-09-01", "10:00"))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "duplicate_booking", decode[api.ErrorResponse](t, resp).Error)
	})

	t.Run("full slot is 409", func(t *testing.T) {
		ts := newTestServer(t)
		ts.addSlot(t, "2026-09-01", "10:00", 1)

		resp := ts.do(t, http.MethodPost, "/appointments", "patient-1", bookBody("2026-09-01", "10:00"))
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = ts.do(t, http.MethodPost, "/appointments", "patient-2", bookBody("2026-09-01", "10:00"))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "slot_full", decode[api.ErrorResponse](t, resp).Error)
	})

	t.Run("unknown slot is 404", func(t *testing.T) {
		ts := newTestServer(t)

		resp := ts.do(t, http.MethodPost, "/appointments", "patient-1", bookBody("2026-09-01", "10:00"))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("unknown doctor is 404", func(t *testing.T) {
		ts := newTestServer(t)

		body := bookBody("2026-09-01", "10:00")
		body["doctorId"] = "doc-unknown"
		resp := ts.do(t, http.MethodPost, "/appointments", "patient-1", body)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("validation failure is 400", func(t *testing.T) {
		ts := newTestServer(t)
		ts.addSlot(t, "2026-09-01", "10:00", 1)

		body := bookBody("2026-09-01", "10:00")
		body["symptoms"] = ""
		resp := ts.do(t, http.MethodPost, "/appointments", "patient-1", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed JSON is 400", func(t *testing.T) {
		ts := newTestServer(t)

		req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/appointments", bytes.NewBufferString("{"))
		require.NoError(t, err)
		req.Header.Set("X-Caller-ID", "patient-1")

		resp, err := ts.srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestStatusAndCancelEndpoints(t *testing.T) {
	book := func(t *testing.T, ts *testServer) uuid.UUID {
		t.Helper()
		ts.addSlot(t, "2026-09-01", "10:00", 1)
		resp := ts.do(t, http.MethodPost, "/appointments", "patient-1", bookBody("2026-09-01", "10:00"))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		return decode[api.BookingResponse](t, resp).Appointment.ID
	}

	t.Run("patient cancels their booking", func(t *testing.T) {
		ts := newTestServer(t)
		id := book(t, ts)

		resp := ts.do(t, http.MethodPatch, "/appointments/"+id.String()+"/cancel", "patient-1", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		appt := decode[appointment.Appointment](t, resp)
		assert.Equal(t, appointment.StatusCancelled, appt.Status)
	})

	t.Run("cancelling someone else's booking is 403", func(t *testing.T) {
		ts := newTestServer(t)
		id := book(t, ts)

		resp := ts.do(t, http.MethodPatch, "/appointments/"+id.String()+"/cancel", "patient-2", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("status change to completed", func(t *testing.T) {
		ts := newTestServer(t)
		id := book(t, ts)

		resp := ts.do(t, http.MethodPatch, "/appointments/"+id.String()+"/status", "account-doc-1",
			map[string]string{"status": "completed"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		appt := decode[appointment.Appointment](t, resp)
		assert.Equal(t, appointment.StatusCompleted, appt.Status)

		// Terminal; a further transition is rejected.
		resp = ts.do(t, http.MethodPatch, "/appointments/"+id.String()+"/status", "account-doc-1",
			map[string]string{"status": "cancelled"})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("bad status value is 400", func(t *testing.T) {
		ts := newTestServer(t)
		id := book(t, ts)

		resp := ts.do(t, http.MethodPatch, "/appointments/"+id.String()+"/status", "account-doc-1",
			map[string]string{"status": "archived"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("bad appointment id is 400, unknown id is 404", func(t *testing.T) {
		ts := newTestServer(t)

		resp := ts.do(t, http.MethodPatch, "/appointments/not-a-uuid/cancel", "patient-1", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp = ts.do(t, http.MethodPatch, "/appointments/"+uuid.NewString()+"/cancel", "patient-1", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestCheckDuplicateEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.addSlot(t, "2026-09-01", "10:00", 1)

	payload := map[string]string{"doctorId": "doc-1", "date": "2026-09-01", "time": "10:00"}

	resp := ts.do(t, http.MethodPost, "/appointments/check-duplicate", "patient-1", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[api.CheckDuplicateResponse](t, resp).IsDuplicate)

	resp = ts.do(t, http.MethodPost, "/appointments", "patient-1", bookBody("2026-09-01", "10:00"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/appointments/check-duplicate", "patient-1", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[api.CheckDuplicateResponse](t, resp).IsDuplicate)

	resp = ts.do(t, http.MethodPost, "/appointments/check-duplicate", "patient-1",
		map[string]string{"doctorId": "doc-1", "date": "soon", "time": "10:00"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListAppointmentsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.addSlot(t, "2026-09-01", "10:00", 2)

	resp := ts.do(t, http.MethodPost, "/appointments", "patient-1", bookBody("2026-09-01", "10:00"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	t.Run("patient caller gets the split view", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/appointments", "patient-1", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		got := decode[query.PatientAppointments](t, resp)
		assert.Equal(t, 1, len(got.Upcoming)+len(got.Previous))
		assert.NotNil(t, got.Upcoming)
		assert.NotNil(t, got.Previous)
	})

	t.Run("doctor caller gets the doctor view", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/appointments", "account-doc-1", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		got := decode[[]query.DoctorAppointmentView](t, resp)
		require.Len(t, got, 1)
		assert.Equal(t, "Ada West", got[0].PatientName)
	})

	t.Run("caller with no appointments gets empty buckets", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/appointments", "patient-nobody", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		got := decode[query.PatientAppointments](t, resp)
		assert.Empty(t, got.Upcoming)
		assert.Empty(t, got.Previous)
	})
}

func TestAvailabilityEndpoints(t *testing.T) {
	boolPtr := func(b bool) *bool { return &b }
	intPtr := func(n int) *int { return &n }

	t.Run("single slot upsert requires isAvailable", func(t *testing.T) {
		ts := newTestServer(t)

		resp := ts.do(t, http.MethodPatch, "/doctors/availability", "account-doc-1",
			api.SetAvailabilityRequest{Date: "2026-09-01", Time: "10:00"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp = ts.do(t, http.MethodPatch, "/doctors/availability", "account-doc-1",
			api.SetAvailabilityRequest{Date: "2026-09-01", Time: "10:00", IsAvailable: boolPtr(true), PatientLimit: intPtr(3)})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		s := decode[slot.Slot](t, resp)
		assert.True(t, s.IsAvailable)
		assert.Equal(t, 3, s.PatientLimit)
	})

	t.Run("non-doctor caller is 404", func(t *testing.T) {
		ts := newTestServer(t)

		resp := ts.do(t, http.MethodPatch, "/doctors/availability", "patient-1",
			api.SetAvailabilityRequest{Date: "2026-09-01", Time: "10:00", IsAvailable: boolPtr(true)})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("bulk replace and list", func(t *testing.T) {
		ts := newTestServer(t)

		resp := ts.do(t, http.MethodPatch, "/doctors/availability/bulk", "account-doc-1",
			api.BulkAvailabilityRequest{Slots: []slot.SlotInput{
				{Date: "2026-09-01", Time: "09:00", IsAvailable: true, PatientLimit: 1},
				{Date: "2026-09-02", Time: "09:00", IsAvailable: true, PatientLimit: 2},
			}})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decode[api.SlotsResponse](t, resp).Slots, 2)

		resp = ts.do(t, http.MethodGet, "/doctors/availability", "account-doc-1", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decode[api.SlotsResponse](t, resp).Slots, 2)

		resp = ts.do(t, http.MethodGet, "/doctors/availability?date=2026-09-01", "account-doc-1", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decode[api.SlotsResponse](t, resp).Slots, 1)
	})

	t.Run("bulk replace without a slots array is 400", func(t *testing.T) {
		ts := newTestServer(t)

		resp := ts.do(t, http.MethodPatch, "/doctors/availability/bulk", "account-doc-1", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("replace one date leaves others alone", func(t *testing.T) {
		ts := newTestServer(t)
		ts.addSlot(t, "2026-09-01", "09:00", 1)
		ts.addSlot(t, "2026-09-02", "09:00", 1)

		resp := ts.do(t, http.MethodPatch, "/doctors/availability/date/2026-09-01", "account-doc-1",
			api.BulkAvailabilityRequest{Slots: []slot.SlotInput{
				{Time: "14:00", IsAvailable: true, PatientLimit: 1},
			}})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		slots := decode[api.SlotsResponse](t, resp).Slots
		require.Len(t, slots, 1)
		assert.Equal(t, "2026-09-01", slots[0].Date)
		assert.Equal(t, "14:00", slots[0].Time)

		resp = ts.do(t, http.MethodGet, "/doctors/availability?date=2026-09-02", "account-doc-1", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decode[api.SlotsResponse](t, resp).Slots, 1)
	})

	t.Run("patients list a doctor's bookable slots", func(t *testing.T) {
		ts := newTestServer(t)
		ts.addSlot(t, "2026-09-01", "09:00", 1)
		ts.addSlot(t, "2026-09-01", "10:00", 1)

		resp := ts.do(t, http.MethodPost, "/appointments", "patient-1", bookBody("2026-09-01", "10:00"))
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = ts.do(t, http.MethodGet, "/doctors/doc-1/available-slots?date=2026-09-01", "patient-1", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		slots := decode[api.SlotsResponse](t, resp).Slots
		require.Len(t, slots, 1, "the fully booked slot is filtered out")
		assert.Equal(t, "09:00", slots[0].Time)

		resp = ts.do(t, http.MethodGet, "/doctors/doc-1/available-slots", "patient-1", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "date is required")

		resp = ts.do(t, http.MethodGet, "/doctors/doc-unknown/available-slots?date=2026-09-01", "patient-1", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
