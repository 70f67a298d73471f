package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/medbook-ai-platform/internal/triage"
)

// ErrBookingNotFound is returned when no booking exists for the given ID.
var ErrBookingNotFound = errors.New("booking: booking not found")

type pgDB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGBookingStore mirrors committed bookings into Postgres so staff tooling
// can query them. The ledger stays the commit authority; this store is
// write-behind and an insert failure never unwinds a committed slot.
type PGBookingStore struct {
	db pgDB
}

func NewPGBookingStore(db pgDB) *PGBookingStore {
	if db == nil {
		panic("booking: pgx pool cannot be nil")
	}
	return &PGBookingStore{db: db}
}

// Insert records a committed booking. Replays of the same booking ID are
// no-ops so worker retries stay safe.
func (s *PGBookingStore) Insert(ctx context.Context, b Booking) error {
	if b.ID == "" {
		return errors.New("booking: booking id is required")
	}

	if _, err := s.db.Exec(ctx, `
		INSERT INTO bookings (
			booking_id, session_id, specialist,
			hospital_id, hospital_name, hospital_address,
			doctor_id, doctor_name, specialization, experience_years,
			consultation_fee, slot_id, slot_date, slot_time,
			symptoms, booked_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (booking_id) DO NOTHING
	`, b.ID, b.SessionID, string(b.Specialist),
		b.HospitalID, b.HospitalName, b.HospitalAddress,
		b.DoctorID, b.DoctorName, b.Specialization, b.ExperienceYears,
		b.ConsultationFee, b.SlotID, b.SlotDate, b.SlotTime,
		b.Symptoms, b.BookedAt.UTC()); err != nil {
		return fmt.Errorf("booking: failed to persist booking: %w", err)
	}
	return nil
}

// GetByID loads one booking.
func (s *PGBookingStore) GetByID(ctx context.Context, id string) (Booking, error) {
	if id == "" {
		return Booking{}, errors.New("booking: booking id is required")
	}

	row := s.db.QueryRow(ctx, `
		SELECT booking_id, session_id, specialist,
		       hospital_id, hospital_name, hospital_address,
		       doctor_id, doctor_name, specialization, experience_years,
		       consultation_fee, slot_id, slot_date, slot_time,
		       symptoms, booked_at
		FROM bookings
		WHERE booking_id = $1
	`, id)

	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, ErrBookingNotFound
		}
		return Booking{}, fmt.Errorf("booking: failed to fetch booking: %w", err)
	}
	return b, nil
}

// ListRecent returns the newest bookings, most recent first.
func (s *PGBookingStore) ListRecent(ctx context.Context, limit int) ([]Booking, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(ctx, `
		SELECT booking_id, session_id, specialist,
		       hospital_id, hospital_name, hospital_address,
		       doctor_id, doctor_name, specialization, experience_years,
		       consultation_fee, slot_id, slot_date, slot_time,
		       symptoms, booked_at
		FROM bookings
		ORDER BY booked_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("booking: failed to list bookings: %w", err)
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("booking: failed to scan booking: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: failed to read bookings: %w", err)
	}
	return out, nil
}

// CountSince reports how many bookings were committed at or after the cutoff.
func (s *PGBookingStore) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	row := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE booked_at >= $1`, since.UTC())
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("booking: failed to count bookings: %w", err)
	}
	return count, nil
}

// DayCount is one day's booking volume, keyed by calendar date (UTC).
type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// CountByDay buckets bookings committed at or after the cutoff by calendar
// day, oldest day first. Days with no bookings are absent.
func (s *PGBookingStore) CountByDay(ctx context.Context, since time.Time) ([]DayCount, error) {
	rows, err := s.db.Query(ctx, `
		SELECT to_char(date_trunc('day', booked_at), 'YYYY-MM-DD') AS day, COUNT(*)
		FROM bookings
		WHERE booked_at >= $1
		GROUP BY day
		ORDER BY day ASC
	`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("booking: failed to count bookings by day: %w", err)
	}
	defer rows.Close()

	var out []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, fmt.Errorf("booking: failed to scan day count: %w", err)
		}
		out = append(out, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: failed to read day counts: %w", err)
	}
	return out, nil
}

func scanBooking(row pgx.Row) (Booking, error) {
	var (
		b          Booking
		specialist string
		bookedAt   time.Time
	)
	if err := row.Scan(&b.ID, &b.SessionID, &specialist,
		&b.HospitalID, &b.HospitalName, &b.HospitalAddress,
		&b.DoctorID, &b.DoctorName, &b.Specialization, &b.ExperienceYears,
		&b.ConsultationFee, &b.SlotID, &b.SlotDate, &b.SlotTime,
		&b.Symptoms, &bookedAt); err != nil {
		return Booking{}, err
	}
	b.Specialist = triage.Specialist(specialist)
	b.BookedAt = bookedAt
	return b, nil
}
