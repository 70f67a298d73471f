package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/wolfman30/medbook-ai-platform/internal/booking"
	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

// BookingStats is the slice of the booking store the dashboard aggregates.
type BookingStats interface {
	CountSince(ctx context.Context, since time.Time) (int64, error)
	CountByDay(ctx context.Context, since time.Time) ([]booking.DayCount, error)
}

// AdminDashboardHandler combines booking volume from Postgres with
// conversation flow counters gathered live from the Prometheus registry.
type AdminDashboardHandler struct {
	stats    BookingStats
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

// NewAdminDashboardHandler creates a new admin dashboard handler.
func NewAdminDashboardHandler(stats BookingStats, gatherer prometheus.Gatherer, logger *logging.Logger) *AdminDashboardHandler {
	if stats == nil {
		panic("handlers: booking stats cannot be nil")
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminDashboardHandler{stats: stats, gatherer: gatherer, logger: logger}
}

// DashboardResponse is the staff operational overview.
type DashboardResponse struct {
	Days          int                `json:"days"`
	TotalBookings int64              `json:"total_bookings"`
	BookingsByDay []booking.DayCount `json:"bookings_by_day"`
	Flow          FlowSnapshot       `json:"flow"`
}

// FlowSnapshot summarizes the conversation pipeline since process start,
// read from the in-process metrics registry rather than a metrics backend.
type FlowSnapshot struct {
	Sessions                float64            `json:"sessions"`
	TurnsByState            map[string]float64 `json:"turns_by_state"`
	AvgTurnLatencySeconds   map[string]float64 `json:"avg_turn_latency_seconds"`
	ClassificationFallbacks float64            `json:"classification_fallbacks"`
	AvailabilityFailures    float64            `json:"availability_failures"`
	SlotConflicts           float64            `json:"slot_conflicts"`
	BookingsBySpecialist    map[string]float64 `json:"bookings_by_specialist"`
}

// GetDashboard returns the operational overview for the last N days.
// GET /admin/api/dashboard?days=7
func (h *AdminDashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 90 {
			http.Error(w, "days must be between 1 and 90", http.StatusBadRequest)
			return
		}
		days = parsed
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	resp := DashboardResponse{Days: days}

	total, err := h.stats.CountSince(r.Context(), since)
	if err != nil {
		h.logger.Error("failed to count bookings", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	resp.TotalBookings = total

	byDay, err := h.stats.CountByDay(r.Context(), since)
	if err != nil {
		h.logger.Error("failed to count bookings by day", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	resp.BookingsByDay = byDay
	resp.Flow = h.gatherFlow()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode dashboard response", "error", err)
	}
}

func (h *AdminDashboardHandler) gatherFlow() FlowSnapshot {
	snap := FlowSnapshot{
		TurnsByState:          map[string]float64{},
		AvgTurnLatencySeconds: map[string]float64{},
		BookingsBySpecialist:  map[string]float64{},
	}

	families, err := h.gatherer.Gather()
	if err != nil {
		// The dashboard still renders booking counts when gathering fails.
		h.logger.Warn("failed to gather metrics for dashboard", "error", err)
		return snap
	}

	for _, fam := range families {
		switch fam.GetName() {
		case "medbook_conversation_sessions_total":
			snap.Sessions = counterTotal(fam)
		case "medbook_conversation_turns_total":
			for _, m := range fam.GetMetric() {
				snap.TurnsByState[labelValue(m, "state")] += m.GetCounter().GetValue()
			}
		case "medbook_conversation_turn_latency_seconds":
			for _, m := range fam.GetMetric() {
				hist := m.GetHistogram()
				if hist.GetSampleCount() == 0 {
					continue
				}
				snap.AvgTurnLatencySeconds[labelValue(m, "state")] = hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		case "medbook_conversation_classification_fallbacks_total":
			snap.ClassificationFallbacks = counterTotal(fam)
		case "medbook_conversation_availability_failures_total":
			snap.AvailabilityFailures = counterTotal(fam)
		case "medbook_booking_slot_conflicts_total":
			snap.SlotConflicts = counterTotal(fam)
		case "medbook_booking_committed_total":
			for _, m := range fam.GetMetric() {
				snap.BookingsBySpecialist[labelValue(m, "specialist")] += m.GetCounter().GetValue()
			}
		}
	}
	return snap
}

func counterTotal(fam *dto.MetricFamily) float64 {
	var total float64
	for _, m := range fam.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	return total
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
