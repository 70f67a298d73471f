package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/medbook-ai-platform/internal/booking"
	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

// BookingReader is the slice of the booking store the staff surface reads.
type BookingReader interface {
	ListRecent(ctx context.Context, limit int) ([]booking.Booking, error)
	GetByID(ctx context.Context, id string) (booking.Booking, error)
}

// AdminBookingsHandler serves the staff view of committed bookings.
type AdminBookingsHandler struct {
	store  BookingReader
	logger *logging.Logger
}

// NewAdminBookingsHandler creates a new admin bookings handler.
func NewAdminBookingsHandler(store BookingReader, logger *logging.Logger) *AdminBookingsHandler {
	if store == nil {
		panic("handlers: booking store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminBookingsHandler{store: store, logger: logger}
}

// ListBookingsResponse contains the most recent bookings, newest first.
type ListBookingsResponse struct {
	Bookings []booking.Booking `json:"bookings"`
	Total    int               `json:"total"`
}

// ListBookings returns the most recent committed bookings.
// GET /admin/api/bookings?limit=50
func (h *AdminBookingsHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			http.Error(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	bookings, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list bookings", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := ListBookingsResponse{Bookings: bookings, Total: len(bookings)}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode bookings response", "error", err)
	}
}

// GetBooking returns one booking by its patient-facing reference.
// GET /admin/api/bookings/{bookingID}
func (h *AdminBookingsHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bookingID")
	if id == "" {
		http.Error(w, "missing bookingID", http.StatusBadRequest)
		return
	}

	b, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to fetch booking", "booking_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(b); err != nil {
		h.logger.Error("failed to encode booking response", "error", err)
	}
}
