package directory

import (
	"context"
	"hash/fnv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/medbook-ai-platform/internal/triage"
)

var directoryTracer = otel.Tracer("medbook/directory")

const defaultDaysAhead = 3

var morningTimes = []string{"09:00 AM", "09:30 AM", "10:00 AM", "10:30 AM", "11:00 AM", "11:30 AM"}
var eveningTimes = []string{"04:00 PM", "04:30 PM", "05:00 PM", "05:30 PM", "06:00 PM", "06:30 PM", "07:00 PM"}

type doctorSeed struct {
	id         string
	name       string
	experience int
	rating     float64
	fee        int
}

type hospitalSeed struct {
	id         string
	name       string
	address    string
	distanceKM float64
	rating     float64
	doctors    []doctorSeed
}

// mockCatalog is a fixed Hyderabad hospital network. Doctor IDs are stable
// so slot IDs and ledger keys stay comparable across fetches and sessions.
var mockCatalog = map[triage.Specialist][]hospitalSeed{
	triage.SpecialistCardiologist: {
		{id: "hosp_001", name: "Apollo Heart Institute", address: "Jubilee Hills, Hyderabad", distanceKM: 2.5, rating: 4.8, doctors: []doctorSeed{
			{id: "doc_001", name: "Dr. Rajesh Kumar", experience: 15, rating: 4.9, fee: 800},
			{id: "doc_002", name: "Dr. Priya Sharma", experience: 12, rating: 4.7, fee: 700},
		}},
		{id: "hosp_002", name: "Care Hospitals", address: "Banjara Hills, Hyderabad", distanceKM: 4.2, rating: 4.6, doctors: []doctorSeed{
			{id: "doc_003", name: "Dr. Suresh Reddy", experience: 20, rating: 4.8, fee: 1000},
			{id: "doc_004", name: "Dr. Anita Desai", experience: 8, rating: 4.5, fee: 600},
		}},
		{id: "hosp_003", name: "Yashoda Hospitals", address: "Somajiguda, Hyderabad", distanceKM: 5.8, rating: 4.5, doctors: []doctorSeed{
			{id: "doc_005", name: "Dr. Venkat Rao", experience: 18, rating: 4.6, fee: 750},
		}},
	},
	triage.SpecialistDermatologist: {
		{id: "hosp_004", name: "Kaya Skin Clinic", address: "Madhapur, Hyderabad", distanceKM: 3.1, rating: 4.7, doctors: []doctorSeed{
			{id: "doc_006", name: "Dr. Meera Nair", experience: 10, rating: 4.8, fee: 500},
			{id: "doc_007", name: "Dr. Arun Patel", experience: 7, rating: 4.5, fee: 400},
		}},
		{id: "hosp_005", name: "Oliva Skin & Hair Clinic", address: "Gachibowli, Hyderabad", distanceKM: 6.0, rating: 4.4, doctors: []doctorSeed{
			{id: "doc_008", name: "Dr. Sneha Gupta", experience: 12, rating: 4.6, fee: 600},
		}},
	},
	triage.SpecialistOrthopedic: {
		{id: "hosp_006", name: "Continental Hospitals", address: "Gachibowli, Hyderabad", distanceKM: 5.5, rating: 4.7, doctors: []doctorSeed{
			{id: "doc_009", name: "Dr. Ramesh Babu", experience: 22, rating: 4.9, fee: 900},
			{id: "doc_010", name: "Dr. Kavitha Reddy", experience: 14, rating: 4.6, fee: 700},
		}},
		{id: "hosp_007", name: "KIMS Hospital", address: "Secunderabad, Hyderabad", distanceKM: 8.2, rating: 4.5, doctors: []doctorSeed{
			{id: "doc_011", name: "Dr. Srinivas Rao", experience: 16, rating: 4.7, fee: 800},
		}},
	},
	triage.SpecialistNeurologist: {
		{id: "hosp_008", name: "NIMS Hospital", address: "Punjagutta, Hyderabad", distanceKM: 4.0, rating: 4.8, doctors: []doctorSeed{
			{id: "doc_012", name: "Dr. Lakshmi Prasad", experience: 25, rating: 4.9, fee: 1200},
			{id: "doc_013", name: "Dr. Mohan Krishna", experience: 15, rating: 4.7, fee: 800},
		}},
	},
	triage.SpecialistGastroenterologist: {
		{id: "hosp_009", name: "Asian Institute of Gastroenterology", address: "Somajiguda, Hyderabad", distanceKM: 5.0, rating: 4.9, doctors: []doctorSeed{
			{id: "doc_014", name: "Dr. Nageshwar Reddy", experience: 30, rating: 5.0, fee: 1500},
			{id: "doc_015", name: "Dr. Manu Tandan", experience: 18, rating: 4.8, fee: 1000},
		}},
	},
	triage.SpecialistPulmonologist: {
		{id: "hosp_010", name: "Chest Hospital", address: "Erragadda, Hyderabad", distanceKM: 7.5, rating: 4.4, doctors: []doctorSeed{
			{id: "doc_016", name: "Dr. Ravi Shankar", experience: 20, rating: 4.6, fee: 600},
			{id: "doc_017", name: "Dr. Sunitha Rani", experience: 12, rating: 4.5, fee: 500},
		}},
	},
	triage.SpecialistOphthalmologist: {
		{id: "hosp_011", name: "LV Prasad Eye Institute", address: "Banjara Hills, Hyderabad", distanceKM: 4.5, rating: 4.9, doctors: []doctorSeed{
			{id: "doc_018", name: "Dr. Gullapalli Rao", experience: 28, rating: 4.9, fee: 800},
			{id: "doc_019", name: "Dr. Prashant Garg", experience: 20, rating: 4.8, fee: 700},
		}},
	},
	triage.SpecialistENT: {
		{id: "hosp_012", name: "Yashoda ENT Hospital", address: "Malakpet, Hyderabad", distanceKM: 6.8, rating: 4.5, doctors: []doctorSeed{
			{id: "doc_020", name: "Dr. Sanjay Kumar", experience: 15, rating: 4.6, fee: 500},
			{id: "doc_021", name: "Dr. Rekha Sharma", experience: 10, rating: 4.4, fee: 400},
		}},
	},
	triage.SpecialistPsychiatrist: {
		{id: "hosp_013", name: "Institute of Mental Health", address: "Erragadda, Hyderabad", distanceKM: 7.0, rating: 4.3, doctors: []doctorSeed{
			{id: "doc_022", name: "Dr. Vijay Kumar", experience: 18, rating: 4.5, fee: 700},
			{id: "doc_023", name: "Dr. Padma Rao", experience: 22, rating: 4.7, fee: 900},
		}},
	},
	triage.SpecialistGeneralPhysician: {
		{id: "hosp_014", name: "Apollo Clinic", address: "Kukatpally, Hyderabad", distanceKM: 3.0, rating: 4.6, doctors: []doctorSeed{
			{id: "doc_024", name: "Dr. Ramana Murthy", experience: 20, rating: 4.7, fee: 400},
			{id: "doc_025", name: "Dr. Swathi Reddy", experience: 8, rating: 4.5, fee: 300},
		}},
		{id: "hosp_015", name: "Max Healthcare", address: "Madhapur, Hyderabad", distanceKM: 2.8, rating: 4.5, doctors: []doctorSeed{
			{id: "doc_026", name: "Dr. Kiran Kumar", experience: 12, rating: 4.6, fee: 350},
		}},
	},
}

// MockDirectory serves the fixed catalog with generated slots. It stands in
// for a hospital directory integration; slot availability is derived from
// the slot ID so repeated fetches within a day agree with each other.
type MockDirectory struct {
	days int
	now  func() time.Time
}

// NewMockDirectory creates a directory generating slots for the next days
// days. Zero or negative selects the 3 day default.
func NewMockDirectory(days int) *MockDirectory {
	if days <= 0 {
		days = defaultDaysAhead
	}
	return &MockDirectory{
		days: days,
		now:  time.Now,
	}
}

var _ AvailabilityProvider = (*MockDirectory)(nil)

// FetchAvailability builds a fresh snapshot for the specialty. Unknown
// specialties fall back to the general physician catalog.
func (m *MockDirectory) FetchAvailability(ctx context.Context, specialist triage.Specialist) (Availability, error) {
	_, span := directoryTracer.Start(ctx, "directory.fetch_availability")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return Availability{}, err
	}

	seeds, ok := mockCatalog[specialist]
	if !ok {
		specialist = triage.SpecialistGeneralPhysician
		seeds = mockCatalog[specialist]
	}

	fetchedAt := m.now()
	specialization := specialist.Display()

	slotCount := 0
	hospitals := make([]Hospital, 0, len(seeds))
	for _, hs := range seeds {
		doctors := make([]Doctor, 0, len(hs.doctors))
		for _, ds := range hs.doctors {
			slots := m.generateSlots(ds.id, fetchedAt)
			slotCount += len(slots)
			doctors = append(doctors, Doctor{
				ID:              ds.id,
				Name:            ds.name,
				Specialization:  specialization,
				ExperienceYears: ds.experience,
				Rating:          ds.rating,
				ConsultationFee: ds.fee,
				HospitalID:      hs.id,
				Slots:           slots,
			})
		}
		hospitals = append(hospitals, Hospital{
			ID:         hs.id,
			Name:       hs.name,
			Address:    hs.address,
			DistanceKM: hs.distanceKM,
			Rating:     hs.rating,
			Doctors:    doctors,
		})
	}

	span.SetAttributes(
		attribute.String("directory.specialist", string(specialist)),
		attribute.Int("directory.hospitals", len(hospitals)),
		attribute.Int("directory.slots", slotCount),
	)

	return Availability{
		Specialist: specialist,
		Hospitals:  hospitals,
		FetchedAt:  fetchedAt,
	}, nil
}

// generateSlots produces morning and evening windows for the next m.days
// days, starting tomorrow. Roughly 70% come back available.
func (m *MockDirectory) generateSlots(doctorID string, from time.Time) []TimeSlot {
	times := make([]string, 0, len(morningTimes)+len(eveningTimes))
	times = append(times, morningTimes...)
	times = append(times, eveningTimes...)

	slots := make([]TimeSlot, 0, m.days*len(times))
	for day := 1; day <= m.days; day++ {
		date := from.AddDate(0, 0, day).Format("2006-01-02")
		for _, t := range times {
			id := SlotID(doctorID, date, t)
			slots = append(slots, TimeSlot{
				ID:        id,
				Date:      date,
				Time:      t,
				Available: slotAvailable(id),
			})
		}
	}
	return slots
}

// SlotID derives the canonical slot identifier
// ("doc_001_2026-08-26_0900_AM") from its parts.
func SlotID(doctorID, date, slotTime string) string {
	key := make([]byte, 0, len(slotTime))
	for i := 0; i < len(slotTime); i++ {
		switch slotTime[i] {
		case ' ':
			key = append(key, '_')
		case ':':
			// dropped
		default:
			key = append(key, slotTime[i])
		}
	}
	return doctorID + "_" + date + "_" + string(key)
}

// slotAvailable hashes the slot ID so availability is stable for a given
// date without storing any state.
func slotAvailable(slotID string) bool {
	h := fnv.New32a()
	h.Write([]byte(slotID))
	return h.Sum32()%10 < 7
}
