package booking

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger keeps slot ownership in process memory. Suitable for a
// single-instance deployment and for tests; multi-instance deployments need
// the Redis ledger.
type MemoryLedger struct {
	mu     sync.Mutex
	booked map[string]Booking
	now    func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		booked: make(map[string]Booking),
		now:    time.Now,
	}
}

var _ SlotLedger = (*MemoryLedger)(nil)

func (l *MemoryLedger) TryCommit(ctx context.Context, draft Draft) (Booking, error) {
	if err := draft.validate(); err != nil {
		return Booking{}, err
	}
	if err := ctx.Err(); err != nil {
		return Booking{}, err
	}

	key := slotKey(draft.DoctorID, draft.SlotID)

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.booked[key]; ok {
		if existing.SessionID == draft.SessionID {
			return existing, nil
		}
		return Booking{}, ErrSlotTaken
	}

	booked := draft.booking(NewBookingID(), l.now().UTC())
	l.booked[key] = booked
	return booked, nil
}

// Len reports how many slots are committed, for tests and diagnostics.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.booked)
}
