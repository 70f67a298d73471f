package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medbook-ai-platform/internal/booking"
	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

type fakeBookingReader struct {
	bookings  []booking.Booking
	err       error
	lastLimit int
}

func (f *fakeBookingReader) ListRecent(_ context.Context, limit int) ([]booking.Booking, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.bookings, nil
}

func (f *fakeBookingReader) GetByID(_ context.Context, id string) (booking.Booking, error) {
	if f.err != nil {
		return booking.Booking{}, f.err
	}
	for _, b := range f.bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return booking.Booking{}, booking.ErrBookingNotFound
}

func sampleBooking(id string) booking.Booking {
	return booking.Booking{
		ID:           id,
		SessionID:    "sess-1",
		Specialist:   "cardiologist",
		HospitalID:   "hosp_001",
		HospitalName: "Apollo Heart Institute",
		DoctorID:     "doc_001",
		DoctorName:   "Dr. Rajesh Kumar",
		SlotID:       "doc_001_2026-08-26_0900_AM",
		SlotDate:     "2026-08-26",
		SlotTime:     "09:00 AM",
		BookedAt:     time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}
}

func withBookingID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("bookingID", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestListBookings_Success(t *testing.T) {
	store := &fakeBookingReader{bookings: []booking.Booking{
		sampleBooking("APT-00000002"),
		sampleBooking("APT-00000001"),
	}}
	handler := NewAdminBookingsHandler(store, logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/admin/api/bookings", nil)
	rec := httptest.NewRecorder()
	handler.ListBookings(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, store.lastLimit)

	var resp ListBookingsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Bookings, 2)
	assert.Equal(t, "APT-00000002", resp.Bookings[0].ID)
	assert.Equal(t, "Dr. Rajesh Kumar", resp.Bookings[0].DoctorName)
}

func TestListBookings_CustomLimit(t *testing.T) {
	store := &fakeBookingReader{}
	handler := NewAdminBookingsHandler(store, logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/admin/api/bookings?limit=5", nil)
	rec := httptest.NewRecorder()
	handler.ListBookings(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, store.lastLimit)
}

func TestListBookings_InvalidLimit(t *testing.T) {
	handler := NewAdminBookingsHandler(&fakeBookingReader{}, logging.Default())

	for _, limit := range []string{"0", "-1", "501", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/admin/api/bookings?limit="+limit, nil)
		rec := httptest.NewRecorder()
		handler.ListBookings(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestListBookings_StoreError(t *testing.T) {
	handler := NewAdminBookingsHandler(&fakeBookingReader{err: assert.AnError}, logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/admin/api/bookings", nil)
	rec := httptest.NewRecorder()
	handler.ListBookings(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetBooking_Success(t *testing.T) {
	store := &fakeBookingReader{bookings: []booking.Booking{sampleBooking("APT-3F2A9C01")}}
	handler := NewAdminBookingsHandler(store, logging.Default())

	req := withBookingID(httptest.NewRequest(http.MethodGet, "/admin/api/bookings/APT-3F2A9C01", nil), "APT-3F2A9C01")
	rec := httptest.NewRecorder()
	handler.GetBooking(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var got booking.Booking
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "APT-3F2A9C01", got.ID)
	assert.Equal(t, "Apollo Heart Institute", got.HospitalName)
}

func TestGetBooking_NotFound(t *testing.T) {
	handler := NewAdminBookingsHandler(&fakeBookingReader{}, logging.Default())

	req := withBookingID(httptest.NewRequest(http.MethodGet, "/admin/api/bookings/APT-MISSING0", nil), "APT-MISSING0")
	rec := httptest.NewRecorder()
	handler.GetBooking(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetBooking_MissingID(t *testing.T) {
	handler := NewAdminBookingsHandler(&fakeBookingReader{}, logging.Default())

	req := withBookingID(httptest.NewRequest(http.MethodGet, "/admin/api/bookings/", nil), "")
	rec := httptest.NewRecorder()
	handler.GetBooking(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
