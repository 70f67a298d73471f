package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ledgerTTL keeps ledger entries a comfortable margin past the farthest
// bookable date, then lets Redis reclaim them.
const ledgerTTL = 7 * 24 * time.Hour

// RedisLedger claims slots with SET NX, which makes the commit atomic across
// every API instance sharing the Redis.
type RedisLedger struct {
	redis  *redis.Client
	tracer trace.Tracer
	now    func() time.Time
}

func NewRedisLedger(redisClient *redis.Client, tracer trace.Tracer) *RedisLedger {
	if redisClient == nil {
		panic("booking: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("medbook.internal.booking.ledger")
	}
	return &RedisLedger{
		redis:  redisClient,
		tracer: tracer,
		now:    time.Now,
	}
}

var _ SlotLedger = (*RedisLedger)(nil)

func (l *RedisLedger) TryCommit(ctx context.Context, draft Draft) (Booking, error) {
	ctx, span := l.tracer.Start(ctx, "booking.try_commit")
	defer span.End()

	if err := draft.validate(); err != nil {
		return Booking{}, err
	}

	key := slotKey(draft.DoctorID, draft.SlotID)
	span.SetAttributes(
		attribute.String("booking.doctor_id", draft.DoctorID),
		attribute.String("booking.slot_id", draft.SlotID),
	)

	booked := draft.booking(NewBookingID(), l.now().UTC())
	payload, err := json.Marshal(booked)
	if err != nil {
		span.RecordError(err)
		return Booking{}, fmt.Errorf("booking: failed to marshal booking: %w", err)
	}

	won, err := l.redis.SetNX(ctx, key, payload, ledgerTTL).Result()
	if err != nil {
		span.RecordError(err)
		return Booking{}, fmt.Errorf("booking: failed to commit slot: %w", err)
	}
	if won {
		span.SetAttributes(attribute.String("booking.id", booked.ID))
		return booked, nil
	}

	// Lost the race. If this session already owns the slot, hand back the
	// original booking so retried confirmations stay idempotent.
	data, err := l.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			// Holder expired between SETNX and GET; treat as taken and
			// let the patient pick again from a fresh snapshot.
			return Booking{}, ErrSlotTaken
		}
		span.RecordError(err)
		return Booking{}, fmt.Errorf("booking: failed to inspect held slot: %w", err)
	}

	var existing Booking
	if err := json.Unmarshal(data, &existing); err != nil {
		span.RecordError(err)
		return Booking{}, fmt.Errorf("booking: failed to decode held slot: %w", err)
	}
	if existing.SessionID == draft.SessionID {
		span.SetAttributes(attribute.String("booking.id", existing.ID), attribute.Bool("booking.idempotent", true))
		return existing, nil
	}

	span.SetAttributes(attribute.Bool("booking.conflict", true))
	return Booking{}, ErrSlotTaken
}
