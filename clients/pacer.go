package clients

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// pacer enforces a minimum interval between outbound requests to one
// provider. Every client owns its own pacer; the burst of 1 lets the
// first request go out immediately.
type pacer struct {
	limiter *rate.Limiter
}

func newPacer(interval time.Duration) *pacer {
	return &pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p *pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
