package conversation

import (
	"context"
	"fmt"

	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

// Enqueuer publishes conversation jobs for asynchronous processing.
type Enqueuer interface {
	EnqueueCreate(ctx context.Context, jobID string, req CreateSessionRequest, opts ...PublishOption) error
	EnqueueTurn(ctx context.Context, jobID string, req TurnRequest, opts ...PublishOption) error
}

// Publisher is the queue-backed Enqueuer.
type Publisher struct {
	queue  queueClient
	logger *logging.Logger
}

var _ Enqueuer = (*Publisher)(nil)

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue queueClient, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:  queue,
		logger: logger,
	}
}

// EnqueueCreate publishes a CreateSession job.
func (p *Publisher) EnqueueCreate(ctx context.Context, jobID string, req CreateSessionRequest, opts ...PublishOption) error {
	return p.enqueue(ctx, queuePayload{
		ID:          jobID,
		Kind:        jobTypeCreate,
		Create:      &req,
		TrackStatus: true,
	}, opts...)
}

// EnqueueTurn publishes a ProcessTurn job.
func (p *Publisher) EnqueueTurn(ctx context.Context, jobID string, req TurnRequest, opts ...PublishOption) error {
	return p.enqueue(ctx, queuePayload{
		ID:          jobID,
		Kind:        jobTypeTurn,
		Turn:        &req,
		TrackStatus: true,
	}, opts...)
}

func (p *Publisher) enqueue(ctx context.Context, payload queuePayload, opts ...PublishOption) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, opt := range opts {
		opt(&payload)
	}

	payload, body, err := encodePayload(payload)
	if err != nil {
		return err
	}

	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("conversation: failed to enqueue job: %w", err)
	}

	p.logger.Debug("conversation job enqueued", "job_id", payload.ID, "kind", string(payload.Kind))
	return nil
}
