// Package booking is the authority on who holds a consultation slot.
// Availability snapshots can go stale the moment they are fetched; the
// ledger is where a slot is actually won or lost. At most one booking ever
// exists per (doctor, slot) pair, no matter how many sessions race for it.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/medbook-ai-platform/internal/triage"
)

// ErrSlotTaken is returned when another session already committed the slot.
var ErrSlotTaken = errors.New("booking: slot already booked")

// Draft carries everything needed to commit a booking. The engine fills it
// from the session's availability snapshot once the patient confirms.
type Draft struct {
	SessionID       string            `json:"session_id"`
	Specialist      triage.Specialist `json:"specialist"`
	HospitalID      string            `json:"hospital_id"`
	HospitalName    string            `json:"hospital_name"`
	HospitalAddress string            `json:"hospital_address"`
	DoctorID        string            `json:"doctor_id"`
	DoctorName      string            `json:"doctor_name"`
	Specialization  string            `json:"specialization"`
	ExperienceYears int               `json:"experience_years"`
	ConsultationFee int               `json:"consultation_fee"`
	SlotID          string            `json:"slot_id"`
	SlotDate        string            `json:"slot_date"`
	SlotTime        string            `json:"slot_time"`
	Symptoms        string            `json:"symptoms"`
}

// Booking is a committed appointment.
type Booking struct {
	ID              string            `json:"booking_id"`
	SessionID       string            `json:"session_id"`
	Specialist      triage.Specialist `json:"specialist"`
	HospitalID      string            `json:"hospital_id"`
	HospitalName    string            `json:"hospital_name"`
	HospitalAddress string            `json:"hospital_address"`
	DoctorID        string            `json:"doctor_id"`
	DoctorName      string            `json:"doctor_name"`
	Specialization  string            `json:"specialization"`
	ExperienceYears int               `json:"experience_years"`
	ConsultationFee int               `json:"consultation_fee"`
	SlotID          string            `json:"slot_id"`
	SlotDate        string            `json:"slot_date"`
	SlotTime        string            `json:"slot_time"`
	Symptoms        string            `json:"symptoms"`
	BookedAt        time.Time         `json:"booked_at"`
}

// SlotLedger commits drafts atomically. TryCommit either wins the slot and
// returns the booking, or fails with ErrSlotTaken. Re-committing the same
// slot from the session that already owns it returns the original booking,
// so a retried confirmation never double-books.
type SlotLedger interface {
	TryCommit(ctx context.Context, draft Draft) (Booking, error)
}

func (d Draft) validate() error {
	if strings.TrimSpace(d.SessionID) == "" {
		return errors.New("booking: draft session id is required")
	}
	if strings.TrimSpace(d.DoctorID) == "" || strings.TrimSpace(d.SlotID) == "" {
		return errors.New("booking: draft doctor and slot ids are required")
	}
	return nil
}

func (d Draft) booking(id string, at time.Time) Booking {
	return Booking{
		ID:              id,
		SessionID:       d.SessionID,
		Specialist:      d.Specialist,
		HospitalID:      d.HospitalID,
		HospitalName:    d.HospitalName,
		HospitalAddress: d.HospitalAddress,
		DoctorID:        d.DoctorID,
		DoctorName:      d.DoctorName,
		Specialization:  d.Specialization,
		ExperienceYears: d.ExperienceYears,
		ConsultationFee: d.ConsultationFee,
		SlotID:          d.SlotID,
		SlotDate:        d.SlotDate,
		SlotTime:        d.SlotTime,
		Symptoms:        d.Symptoms,
		BookedAt:        at,
	}
}

// NewBookingID mints a patient-facing reference like "APT-3F2A9C01".
func NewBookingID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "APT-" + strings.ToUpper(hex[:8])
}

// slotKey is the ledger key for a (doctor, slot) pair. Both ledger
// implementations use the same shape so keys stay comparable in debugging.
func slotKey(doctorID, slotID string) string {
	return fmt.Sprintf("booking:slot:%s:%s", doctorID, slotID)
}
