package conversation

import (
	"testing"

	"github.com/wolfman30/medbook-ai-platform/internal/triage"
)

func TestIsSpecialistAffirmative(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"yes", true},
		{"Yes", true},
		{"  YES  ", true},
		{"yes please", true},
		{"please go ahead", true},
		{"sure, sounds good", true},
		{"okay", true},
		{"proceed", true},
		{"", false},
		{"   ", false},
		{"what do you think?", false},
		{"I'd rather see a dermatologist", false},
	}
	for _, tt := range tests {
		if got := isSpecialistAffirmative(tt.input); got != tt.want {
			t.Errorf("isSpecialistAffirmative(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestIsBookingAffirmative(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"yes", true},
		{"Yes, confirm", true},
		{"go ahead", true},
		// "please" alone is not agreement at the booking step; it shows up
		// in change requests.
		{"please pick another slot", false},
		{"different time", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isBookingAffirmative(tt.input); got != tt.want {
			t.Errorf("isBookingAffirmative(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestIsRejection(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"no", true},
		{"No, different time", true},
		{"nope", true},
		{"cancel", true},
		{"I want to change the slot", true},
		{"yes", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isRejection(tt.input); got != tt.want {
			t.Errorf("isRejection(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestMatchAlternateSpecialist(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		current triage.Specialist
		want    triage.Specialist
		ok      bool
	}{
		{"named directly", "I'd rather see a dermatologist", triage.SpecialistCardiologist, triage.SpecialistDermatologist, true},
		{"spoken underscore form", "can I get an ENT specialist instead", triage.SpecialistCardiologist, triage.SpecialistENT, true},
		{"same as current", "cardiologist please", triage.SpecialistCardiologist, "", false},
		{"no specialist named", "yes please", triage.SpecialistCardiologist, "", false},
		{"empty", "", triage.SpecialistCardiologist, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchAlternateSpecialist(tt.input, tt.current)
			if ok != tt.ok || got != tt.want {
				t.Errorf("matchAlternateSpecialist(%q, %v) = (%v, %v), want (%v, %v)",
					tt.input, tt.current, got, ok, tt.want, tt.ok)
			}
		})
	}
}
