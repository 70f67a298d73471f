package notify

import (
	"context"
	"fmt"

	"github.com/wolfman30/medbook-ai-platform/internal/booking"
	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

// Service emails booking confirmations to the hospital operations inbox.
// Sessions are anonymous, so the patient never receives mail directly; the
// front desk does the outreach.
type Service struct {
	email      EmailSender
	recipients []string
	logger     *logging.Logger
}

// NewService creates a notification service. A nil sender or empty
// recipient list turns every notification into a no-op.
func NewService(email EmailSender, recipients []string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:      email,
		recipients: recipients,
		logger:     logger,
	}
}

// BookingConfirmed sends the booking summary to every configured recipient.
// Partial delivery is reported as an error so the caller can log it; the
// booking itself is already committed and is never rolled back here.
func (s *Service) BookingConfirmed(ctx context.Context, b booking.Booking) error {
	if s.email == nil || len(s.recipients) == 0 {
		s.logger.Debug("notify: email not configured, skipping booking notification", "booking_id", b.ID)
		return nil
	}

	subject := fmt.Sprintf("📅 New Appointment %s - %s", b.ID, b.DoctorName)
	body := s.plainBody(b)
	html := s.htmlBody(b)

	var errs []error
	for _, recipient := range s.recipients {
		msg := EmailMessage{
			To:      recipient,
			Subject: subject,
			Body:    body,
			HTML:    html,
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send booking email", "error", err, "to", recipient, "booking_id", b.ID)
			errs = append(errs, err)
		} else {
			s.logger.Info("notify: booking email sent", "to", recipient, "booking_id", b.ID)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d notification(s) failed", len(errs))
	}
	return nil
}

func (s *Service) plainBody(b booking.Booking) string {
	return fmt.Sprintf(`A new appointment has been booked!

Booking ID: %s
Specialist: %s
Doctor: %s (%s, %d yrs)
Hospital: %s
Address: %s
Slot: %s %s
Fee: Rs. %d
Reported symptoms: %s
Booked at: %s

Please add this appointment to the doctor's schedule.

— MedBook AI`,
		b.ID, b.Specialist.Display(), b.DoctorName, b.Specialization, b.ExperienceYears,
		b.HospitalName, b.HospitalAddress, b.SlotDate, b.SlotTime, b.ConsultationFee,
		b.Symptoms, b.BookedAt.Format("January 2, 2006 at 3:04 PM"))
}

func (s *Service) htmlBody(b booking.Booking) string {
	row := `<tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>%s:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>`
	return fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #2563eb;">📅 New Appointment Booked</h2>
<p><strong>%s</strong> is scheduled with <strong>%s</strong>.</p>
<table style="border-collapse: collapse; margin: 20px 0;">
  %s%s%s%s%s%s
</table>
<p style="background: #eff6ff; padding: 12px; border-radius: 8px; border-left: 4px solid #2563eb;">
  Please confirm the slot on the doctor's schedule.
</p>
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">— MedBook AI</p>
</div>`,
		b.ID, b.DoctorName,
		fmt.Sprintf(row, "Specialist", b.Specialist.Display()),
		fmt.Sprintf(row, "Doctor", fmt.Sprintf("%s (%s)", b.DoctorName, b.Specialization)),
		fmt.Sprintf(row, "Hospital", fmt.Sprintf("%s, %s", b.HospitalName, b.HospitalAddress)),
		fmt.Sprintf(row, "Slot", fmt.Sprintf("%s %s", b.SlotDate, b.SlotTime)),
		fmt.Sprintf(row, "Fee", fmt.Sprintf("Rs. %d", b.ConsultationFee)),
		fmt.Sprintf(row, "Symptoms", b.Symptoms))
}
