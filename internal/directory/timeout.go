package directory

import (
	"context"
	"time"

	"github.com/wolfman30/medbook-ai-platform/internal/triage"
)

// timeoutProvider bounds upstream availability calls. A hospital directory
// backend that hangs must surface as an error the conversation flow can
// relay, not as a stuck turn.
type timeoutProvider struct {
	next AvailabilityProvider
	d    time.Duration
}

// WithTimeout wraps provider so every fetch is bounded by d. A zero or
// negative d returns the provider unchanged.
func WithTimeout(provider AvailabilityProvider, d time.Duration) AvailabilityProvider {
	if provider == nil {
		panic("directory: provider cannot be nil")
	}
	if d <= 0 {
		return provider
	}
	return &timeoutProvider{next: provider, d: d}
}

func (p *timeoutProvider) FetchAvailability(ctx context.Context, specialist triage.Specialist) (Availability, error) {
	ctx, cancel := context.WithTimeout(ctx, p.d)
	defer cancel()
	return p.next.FetchAvailability(ctx, specialist)
}
