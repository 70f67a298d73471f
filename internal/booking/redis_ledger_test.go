package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisLedger(t *testing.T) (*RedisLedger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisLedger(client, nil), mr
}

func TestRedisLedger_TryCommit(t *testing.T) {
	ledger, mr := newTestRedisLedger(t)

	draft := sampleDraft("sess-1")
	booked, err := ledger.TryCommit(context.Background(), draft)
	if err != nil {
		t.Fatalf("TryCommit() error = %v", err)
	}
	if !bookingIDPattern.MatchString(booked.ID) {
		t.Errorf("booking id %q does not match APT-XXXXXXXX", booked.ID)
	}

	key := slotKey(draft.DoctorID, draft.SlotID)
	raw, err := mr.Get(key)
	if err != nil {
		t.Fatalf("ledger key %q not written: %v", key, err)
	}
	var stored Booking
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatalf("stored payload is not a booking: %v", err)
	}
	if stored.ID != booked.ID || stored.SessionID != "sess-1" {
		t.Errorf("stored booking = %+v, want %+v", stored, booked)
	}
	if mr.TTL(key) <= 0 {
		t.Error("ledger entry has no expiry")
	}
}

func TestRedisLedger_ConflictAcrossSessions(t *testing.T) {
	ledger, _ := newTestRedisLedger(t)

	if _, err := ledger.TryCommit(context.Background(), sampleDraft("sess-1")); err != nil {
		t.Fatalf("first TryCommit() error = %v", err)
	}
	_, err := ledger.TryCommit(context.Background(), sampleDraft("sess-2"))
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("second TryCommit() error = %v, want ErrSlotTaken", err)
	}
}

func TestRedisLedger_SameSessionIdempotent(t *testing.T) {
	ledger, _ := newTestRedisLedger(t)

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
}

func TestRedisLedger_ConcurrentCommits(t *testing.T) {
	ledger, _ := newTestRedisLedger(t)

	const contenders = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      []string
		conflicts int
	)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			booked, err := ledger.TryCommit(context.Background(), sampleDraft(fmt.Sprintf("sess-%d", i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins = append(wins, booked.ID)
			case errors.Is(err, ErrSlotTaken):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if len(wins) != 1 {
		t.Errorf("winners = %d (%v), want exactly 1", len(wins), wins)
	}
	if conflicts != contenders-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, contenders-1)
	}
}

func TestRedisLedger_RedisDownIsNotConflict(t *testing.T) {
	ledger, mr := newTestRedisLedger(t)
	mr.Close()

	_, err := ledger.TryCommit(context.Background(), sampleDraft("sess-1"))
	if err == nil {
		t.Fatal("expected error with redis down")
	}
	if errors.Is(err, ErrSlotTaken) {
		t.Error("infrastructure failure must not read as a slot conflict")
	}
}
