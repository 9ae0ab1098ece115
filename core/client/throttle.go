package client

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Throttled limits the rate of calls passed to the inner caller with a
// shared token bucket. All methods draw from the same bucket.
type Throttled struct {
	inner   Caller
	limiter *rate.Limiter
}

// Throttle wraps c with a token bucket admitting perSecond calls with the
// given burst. A non-positive perSecond disables limiting; a non-positive
// burst is raised to 1.
func Throttle(c Caller, perSecond float64, burst int) *Throttled {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{
		inner:   c,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Call blocks until the bucket admits the call or ctx is done. Calls held
// back by the limiter are never dropped, only delayed.
func (t *Throttled) Call(ctx context.Context, method string, payload any) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("client: throttle wait: %w", err)
	}
	return t.inner.Call(ctx, method, payload)
}
