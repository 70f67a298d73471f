// Package directory exposes hospital, doctor, and slot availability for a
// given specialty. Fetches return point-in-time snapshots: the caller owns
// the returned value and no later fetch or booking mutates it.
package directory

import (
	"context"
	"time"

	"github.com/wolfman30/medbook-ai-platform/internal/triage"
)

// TimeSlot is a single bookable consultation window.
type TimeSlot struct {
	ID        string `json:"slot_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// Doctor is a practitioner attached to one hospital.
type Doctor struct {
	ID              string     `json:"doctor_id"`
	Name            string     `json:"name"`
	Specialization  string     `json:"specialization"`
	ExperienceYears int        `json:"experience_years"`
	Rating          float64    `json:"rating"`
	ConsultationFee int        `json:"consultation_fee"`
	HospitalID      string     `json:"hospital_id"`
	Slots           []TimeSlot `json:"available_slots"`
}

// Hospital groups doctors at one location.
type Hospital struct {
	ID         string   `json:"hospital_id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	DistanceKM float64  `json:"distance_km"`
	Rating     float64  `json:"rating"`
	Doctors    []Doctor `json:"doctors"`
}

// Availability is an immutable snapshot of what could be booked for a
// specialty at FetchedAt. Slot state may drift the moment it is taken;
// the booking ledger is the authority, not this snapshot.
type Availability struct {
	Specialist triage.Specialist `json:"specialist"`
	Hospitals  []Hospital        `json:"hospitals"`
	FetchedAt  time.Time         `json:"fetched_at"`
}

// SlotOption is one bookable choice flattened out of the snapshot.
type SlotOption struct {
	HospitalID   string `json:"hospital_id"`
	HospitalName string `json:"hospital_name"`
	DoctorID     string `json:"doctor_id"`
	DoctorName   string `json:"doctor_name"`
	Fee          int    `json:"consultation_fee"`
	SlotID       string `json:"slot_id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
}

// Options flattens the snapshot into bookable slots in catalog order.
func (a Availability) Options() []SlotOption {
	var opts []SlotOption
	for _, h := range a.Hospitals {
		for _, d := range h.Doctors {
			for _, s := range d.Slots {
				if !s.Available {
					continue
				}
				opts = append(opts, SlotOption{
					HospitalID:   h.ID,
					HospitalName: h.Name,
					DoctorID:     d.ID,
					DoctorName:   d.Name,
					Fee:          d.ConsultationFee,
					SlotID:       s.ID,
					Date:         s.Date,
					Time:         s.Time,
				})
			}
		}
	}
	return opts
}

// Find resolves a (hospital, doctor, slot) selection against the snapshot.
// All three IDs must line up; the returned values are copies.
func (a Availability) Find(hospitalID, doctorID, slotID string) (Hospital, Doctor, TimeSlot, bool) {
	for _, h := range a.Hospitals {
		if h.ID != hospitalID {
			continue
		}
		for _, d := range h.Doctors {
			if d.ID != doctorID {
				continue
			}
			for _, s := range d.Slots {
				if s.ID == slotID {
					return h, d, s, true
				}
			}
		}
	}
	return Hospital{}, Doctor{}, TimeSlot{}, false
}

// AvailabilityProvider fetches the current snapshot for a specialty.
// Implementations must respect ctx and return promptly on cancellation.
type AvailabilityProvider interface {
	FetchAvailability(ctx context.Context, specialist triage.Specialist) (Availability, error)
}
