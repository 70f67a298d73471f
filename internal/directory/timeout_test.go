package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wolfman30/medbook-ai-platform/internal/triage"
)

type blockingProvider struct{}

func (blockingProvider) FetchAvailability(ctx context.Context, _ triage.Specialist) (Availability, error) {
	<-ctx.Done()
	return Availability{}, ctx.Err()
}

func TestWithTimeout_CancelsSlowFetch(t *testing.T) {
	provider := WithTimeout(blockingProvider{}, 20*time.Millisecond)

	start := time.Now()
	_, err := provider.FetchAvailability(context.Background(), triage.SpecialistCardiologist)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("fetch took too long to cancel: %v", elapsed)
	}
}

func TestWithTimeout_ZeroDurationIsPassthrough(t *testing.T) {
	base := NewMockDirectory(2)
	if got := WithTimeout(base, 0); got != AvailabilityProvider(base) {
		t.Fatal("expected zero timeout to return the provider unchanged")
	}
}

func TestWithTimeout_NilProviderPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for nil provider")
		}
	}()
	WithTimeout(nil, time.Second)
}
