package conversation

import (
	"fmt"
	"strings"

	"github.com/wolfman30/medbook-ai-platform/internal/booking"
	"github.com/wolfman30/medbook-ai-platform/internal/directory"
	"github.com/wolfman30/medbook-ai-platform/internal/triage"
)

// Patient-facing copy lives here so the engine stays readable and the
// wording is easy to review in one place.

const greetingMessage = "Hello! I'm your medical appointment assistant. Please tell me about your medical concern or symptoms, and I'll help you find the right specialist and book an appointment."

const slotRepromptMessage = "Please select a doctor and time slot from the options above."

const invalidSelectionMessage = "I couldn't find the selected option. Please try selecting again."

const slotConflictMessage = "Sorry, that slot was just booked by another patient. I've refreshed the availability below. Please select a different doctor or time slot."

const availabilityFailureMessage = "Sorry - I'm having trouble fetching doctor availability right now. Please reply **Yes** to try again, or **No** to choose a different specialist."

const availabilityRetryPromptMessage = "Would you like me to try fetching availability again? Reply **Yes** to retry or **No** to choose a different specialist."

const bookingFailureMessage = "Sorry - I'm having trouble confirming your booking right now. Please reply **Yes** to try again in a moment."

// appointmentGuidelines is read out in every confirmation message.
var appointmentGuidelines = []string{
	"Please arrive 30 minutes before your appointment time for registration formalities.",
	"Carry a valid ID proof (Aadhaar/PAN/Driving License).",
	"Bring any previous medical reports or prescriptions related to your condition.",
	"If you need to cancel or reschedule, please do so at least 4 hours in advance.",
	"Wear a mask and follow COVID-19 safety protocols at the hospital.",
}

func symptomSummaryMessage(c triage.Classification) string {
	display := c.Specialist.Display()
	reason := c.Reason
	if reason == "" {
		reason = "Based on your symptoms"
	}
	return fmt.Sprintf(`I've analyzed your symptoms. Here's what I found:

**Identified Symptoms:** %s

**Recommended Specialist:** %s
**Reason:** %s

%s

Would you like me to find available %ss near you and book an appointment? Please reply with **Yes** to proceed or let me know if you'd prefer a different specialist.`,
		strings.Join(c.Symptoms, ", "), display, reason, c.Specialist.Description(), display)
}

func doctorOptionsMessage(s triage.Specialist) string {
	return fmt.Sprintf("Great! I found the following %ss near you. Please select a doctor and time slot that works for you.", s.Display())
}

func specialistRepromptMessage(current triage.Specialist) string {
	names := make([]string, 0, len(triage.AllSpecialists()))
	for _, s := range triage.AllSpecialists() {
		names = append(names, s.Display())
	}
	return fmt.Sprintf("No problem. Which type of specialist would you like to see? Available options: %s.\n\nYou can also reply **Yes** to proceed with the %s.",
		strings.Join(names, ", "), current.Display())
}

func bookingSummaryMessage(h directory.Hospital, d directory.Doctor, slot directory.TimeSlot) string {
	return fmt.Sprintf(`Please confirm your appointment booking:

**Doctor:** %s
**Specialization:** %s
**Experience:** %d years
**Rating:** ⭐ %.1f
**Consultation Fee:** ₹%d

**Hospital:** %s
**Address:** %s

**Appointment:** %s at %s

Would you like to confirm this booking? Reply **Yes** to confirm or **No** to select a different slot.`,
		d.Name, d.Specialization, d.ExperienceYears, d.Rating, d.ConsultationFee,
		h.Name, h.Address, slot.Date, slot.Time)
}

func bookingConfirmedMessage(b booking.Booking) string {
	bullets := make([]string, 0, len(appointmentGuidelines))
	for _, g := range appointmentGuidelines {
		bullets = append(bullets, "• "+g)
	}
	return fmt.Sprintf(`🎉 **Appointment Confirmed!**

**Booking ID:** %s

---

**Doctor:** %s
**Specialization:** %s
**Experience:** %d years

**Hospital:** %s
**Address:** %s

**Date & Time:** %s at %s

**Consultation Fee:** ₹%d

---

**Important Guidelines:**
%s

---

Thank you for using our service! Wishing you good health. 🏥`,
		b.ID, b.DoctorName, b.Specialization, b.ExperienceYears,
		b.HospitalName, b.HospitalAddress, b.SlotDate, b.SlotTime,
		b.ConsultationFee, strings.Join(bullets, "\n"))
}
