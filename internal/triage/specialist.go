package triage

import "strings"

// Specialist identifies a medical specialty from the closed set the booking
// flow can route to. Values outside this set are never accepted from the
// classifier.
type Specialist string

const (
	SpecialistCardiologist      Specialist = "cardiologist"
	SpecialistDermatologist     Specialist = "dermatologist"
	SpecialistOrthopedic        Specialist = "orthopedic"
	SpecialistNeurologist       Specialist = "neurologist"
	SpecialistGastroenterologist Specialist = "gastroenterologist"
	SpecialistPulmonologist     Specialist = "pulmonologist"
	SpecialistOphthalmologist   Specialist = "ophthalmologist"
	SpecialistENT               Specialist = "ent_specialist"
	SpecialistPsychiatrist      Specialist = "psychiatrist"
	SpecialistGeneralPhysician  Specialist = "general_physician"
)

type specialistProfile struct {
	description string
	keywords    []string
}

// specialistProfiles is the authoritative registry: description shown to the
// user plus the symptom keywords each specialty covers.
var specialistProfiles = map[Specialist]specialistProfile{
	SpecialistCardiologist: {
		description: "Heart and cardiovascular system specialist",
		keywords:    []string{"chest pain", "heart", "palpitation", "blood pressure", "bp", "cardiac", "heartbeat"},
	},
	SpecialistDermatologist: {
		description: "Skin, hair, and nail specialist",
		keywords:    []string{"skin", "rash", "acne", "eczema", "psoriasis", "hair loss", "itching"},
	},
	SpecialistOrthopedic: {
		description: "Bone and joint specialist",
		keywords:    []string{"bone", "joint", "fracture", "back pain", "spine", "knee", "shoulder", "arthritis"},
	},
	SpecialistNeurologist: {
		description: "Brain and nervous system specialist",
		keywords:    []string{"headache", "migraine", "seizure", "numbness", "dizziness", "memory", "nerve"},
	},
	SpecialistGastroenterologist: {
		description: "Digestive system specialist",
		keywords:    []string{"stomach", "digestion", "acidity", "liver", "intestine", "constipation", "diarrhea"},
	},
	SpecialistPulmonologist: {
		description: "Lung and respiratory specialist",
		keywords:    []string{"breathing", "lungs", "asthma", "cough", "respiratory", "shortness of breath"},
	},
	SpecialistOphthalmologist: {
		description: "Eye specialist",
		keywords:    []string{"eye", "vision", "blurry", "cataract", "glaucoma"},
	},
	SpecialistENT: {
		description: "Ear, Nose, and Throat specialist",
		keywords:    []string{"ear", "nose", "throat", "hearing", "sinus", "tonsil"},
	},
	SpecialistPsychiatrist: {
		description: "Mental health specialist",
		keywords:    []string{"anxiety", "depression", "stress", "sleep disorder", "mental health", "panic"},
	},
	SpecialistGeneralPhysician: {
		description: "General health issues and primary care",
		keywords:    []string{"fever", "cold", "flu", "fatigue", "general", "weakness", "body ache"},
	},
}

// specialistOrder keeps listings deterministic (map iteration is not).
var specialistOrder = []Specialist{
	SpecialistCardiologist,
	SpecialistDermatologist,
	SpecialistOrthopedic,
	SpecialistNeurologist,
	SpecialistGastroenterologist,
	SpecialistPulmonologist,
	SpecialistOphthalmologist,
	SpecialistENT,
	SpecialistPsychiatrist,
	SpecialistGeneralPhysician,
}

// AllSpecialists returns the closed specialty set in stable order.
func AllSpecialists() []Specialist {
	out := make([]Specialist, len(specialistOrder))
	copy(out, specialistOrder)
	return out
}

// IsValid reports whether s belongs to the recognized set.
func (s Specialist) IsValid() bool {
	_, ok := specialistProfiles[s]
	return ok
}

// Display renders the specialty for user-facing messages
// ("ent_specialist" -> "Ent Specialist").
func (s Specialist) Display() string {
	parts := strings.Split(string(s), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// Description returns the short profile shown alongside a recommendation.
func (s Specialist) Description() string {
	return specialistProfiles[s].description
}

// Keywords returns the symptom keywords registered for the specialty.
func (s Specialist) Keywords() []string {
	kws := specialistProfiles[s].keywords
	out := make([]string, len(kws))
	copy(out, kws)
	return out
}

// ParseSpecialist normalizes raw classifier output ("General Physician",
// "general_physician", " ENT_Specialist ") into a Specialist, reporting
// whether it is recognized.
func ParseSpecialist(raw string) (Specialist, bool) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.ReplaceAll(norm, " ", "_")
	norm = strings.ReplaceAll(norm, "-", "_")
	s := Specialist(norm)
	return s, s.IsValid()
}

// MatchSpecialist scans free text for an explicitly named specialty
// ("no, I'd rather see a dermatologist"). Used when the user rejects a
// recommendation and names an alternative.
func MatchSpecialist(text string) (Specialist, bool) {
	lower := strings.ToLower(text)
	for _, s := range specialistOrder {
		spoken := strings.ReplaceAll(string(s), "_", " ")
		if strings.Contains(lower, spoken) || strings.Contains(lower, string(s)) {
			return s, true
		}
	}
	return "", false
}
