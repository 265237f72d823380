package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited caps the request rate to an underlying Client. Callers block
// until a token is available or their context ends; a context ending while
// waiting is reported as a completion failure.
type RateLimited struct {
	next    Client
	limiter *rate.Limiter
}

// NewRateLimited allows perMinute calls per minute with a burst of the same size.
func NewRateLimited(next Client, perMinute int) *RateLimited {
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}
}

// Generate waits for a token and forwards to the wrapped client.
func (r *RateLimited) Generate(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %w", ErrCompletion, err)
	}
	return r.next.Generate(ctx, messages, opts)
}
