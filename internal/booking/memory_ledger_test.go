package booking

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/wolfman30/medbook-ai-platform/internal/triage"
)

func sampleDraft(sessionID string) Draft {
	return Draft{
		SessionID:       sessionID,
		Specialist:      triage.SpecialistCardiologist,
		HospitalID:      "hosp_001",
		HospitalName:    "Apollo Heart Institute",
		HospitalAddress: "Jubilee Hills, Hyderabad",
		DoctorID:        "doc_001",
		DoctorName:      "Dr. Rajesh Kumar",
		Specialization:  "Cardiologist",
		ExperienceYears: 15,
		ConsultationFee: 800,
		SlotID:          "doc_001_2026-08-26_0900_AM",
		SlotDate:        "2026-08-26",
		SlotTime:        "09:00 AM",
		Symptoms:        "chest pain",
	}
}

var bookingIDPattern = regexp.MustCompile(`^APT-[0-9A-F]{8}$`)

func TestMemoryLedger_TryCommit(t *testing.T) {
	ledger := NewMemoryLedger()

	booked, err := ledger.TryCommit(context.Background(), sampleDraft("sess-1"))
	if err != nil {
		t.Fatalf("TryCommit() error = %v", err)
	}
	if !bookingIDPattern.MatchString(booked.ID) {
		t.Errorf("booking id %q does not match APT-XXXXXXXX", booked.ID)
	}
	if booked.DoctorName != "Dr. Rajesh Kumar" || booked.SlotTime != "09:00 AM" {
		t.Errorf("booking dropped draft fields: %+v", booked)
	}
	if booked.BookedAt.IsZero() {
		t.Error("booking has no timestamp")
	}
	if ledger.Len() != 1 {
		t.Errorf("ledger size = %d, want 1", ledger.Len())
	}
}

func TestMemoryLedger_ConflictAcrossSessions(t *testing.T) {
	ledger := NewMemoryLedger()

	if _, err := ledger.TryCommit(context.Background(), sampleDraft("sess-1")); err != nil {
		t.Fatalf("first TryCommit() error = %v", err)
	}

	_, err := ledger.TryCommit(context.Background(), sampleDraft("sess-2"))
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("second TryCommit() error = %v, want ErrSlotTaken", err)
	}
	if ledger.Len() != 1 {
		t.Errorf("conflict must not add entries, ledger size = %d", ledger.Len())
	}
}

func TestMemoryLedger_SameSessionIdempotent(t *testing.T) {
	ledger := NewMemoryLedger()

	first, err := ledger.TryCommit(context.Background(), sampleDraft("sess-1"))
	if err != nil {
		t.Fatalf("first TryCommit() error = %v", err)
	}
	second, err := ledger.TryCommit(context.Background(), sampleDraft("sess-1"))
	if err != nil {
		t.Fatalf("repeat TryCommit() error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("repeat commit minted a new booking: %s vs %s", second.ID, first.ID)
	}
	if ledger.Len() != 1 {
		t.Errorf("ledger size = %d, want 1", ledger.Len())
	}
}

func TestMemoryLedger_DifferentSlotsIndependent(t *testing.T) {
	ledger := NewMemoryLedger()

	if _, err := ledger.TryCommit(context.Background(), sampleDraft("sess-1")); err != nil {
		t.Fatalf("TryCommit() error = %v", err)
	}

	other := sampleDraft("sess-2")
	other.SlotID = "doc_001_2026-08-26_0930_AM"
	other.SlotTime = "09:30 AM"
	if _, err := ledger.TryCommit(context.Background(), other); err != nil {
		t.Fatalf("TryCommit() for a different slot error = %v", err)
	}
	if ledger.Len() != 2 {
		t.Errorf("ledger size = %d, want 2", ledger.Len())
	}
}

func TestMemoryLedger_ConcurrentCommits(t *testing.T) {
	ledger := NewMemoryLedger()

	const contenders = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ledger.TryCommit(context.Background(), sampleDraft(fmt.Sprintf("sess-%d", i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrSlotTaken):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("winners = %d, want exactly 1", wins)
	}
	if conflicts != contenders-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, contenders-1)
	}
	if ledger.Len() != 1 {
		t.Errorf("ledger size = %d, want 1", ledger.Len())
	}
}

func TestMemoryLedger_ValidatesDraft(t *testing.T) {
	ledger := NewMemoryLedger()

	draft := sampleDraft("sess-1")
	draft.SlotID = ""
	if _, err := ledger.TryCommit(context.Background(), draft); err == nil {
		t.Error("expected error for draft without slot id")
	}

	draft = sampleDraft("")
	if _, err := ledger.TryCommit(context.Background(), draft); err == nil {
		t.Error("expected error for draft without session id")
	}
}
