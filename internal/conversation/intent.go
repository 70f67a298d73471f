package conversation

import (
	"strings"

	"github.com/wolfman30/medbook-ai-platform/internal/triage"
)

// Yes/no intent matching for the two confirmation steps. Confirmation answers
// never go through the symptom classifier; a substring scan over known
// phrases decides the transition.
//
// "please" counts as agreement when confirming a specialist ("yes please",
// "please go ahead") but not when confirming a booking, where it shows up in
// change requests ("please pick another slot").

var specialistAffirmations = []string{
	"yes", "yeah", "yep", "sure", "ok", "okay", "proceed", "go ahead", "please", "confirm",
}

var bookingAffirmations = []string{
	"yes", "yeah", "yep", "sure", "ok", "okay", "proceed", "go ahead", "confirm",
}

var rejections = []string{
	"no", "nope", "cancel", "back", "change",
}

func containsAny(input string, phrases []string) bool {
	lowered := strings.ToLower(strings.TrimSpace(input))
	if lowered == "" {
		return false
	}
	for _, phrase := range phrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

func isSpecialistAffirmative(input string) bool {
	return containsAny(input, specialistAffirmations)
}

func isBookingAffirmative(input string) bool {
	return containsAny(input, bookingAffirmations)
}

func isRejection(input string) bool {
	return containsAny(input, rejections)
}

// matchAlternateSpecialist reports whether the reply names a specialist other
// than the one currently proposed.
func matchAlternateSpecialist(input string, current triage.Specialist) (triage.Specialist, bool) {
	alt, ok := triage.MatchSpecialist(input)
	if !ok || alt == current {
		return "", false
	}
	return alt, true
}
