// Package throttle implements the engine's shared backpressure gate
// (spec.md §2, §5): inbound frame reads across every connection draw from
// one rate limiter so a burst on one connection throttles reads on all of
// them, the way the teacher's protocol manager bounds per-peer message
// handling with a shared worker pool (node/cn/peer.go's broadcast/msg
// channels) rather than letting one connection starve the others.
package throttle

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Controller gates inbound frame processing. One Controller is shared by
// every Connection in the engine.
type Controller struct {
	limiter *rate.Limiter
}

// New builds a Controller allowing bytesPerSec sustained throughput with a
// burst allowance of burstBytes.
func New(bytesPerSec int, burstBytes int) *Controller {
	return &Controller{limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burstBytes)}
}

// Unlimited returns a Controller that never blocks, for tests and
// configurations that opt out of throttling.
func Unlimited() *Controller {
	return &Controller{limiter: rate.NewLimiter(rate.Inf, 0)}
}

// Wait blocks until n bytes' worth of read budget is available, or ctx is
// done. A Connection calls this once per inbound frame, before dispatch,
// so a slow client never gets unbounded buffering ahead of it.
func (c *Controller) Wait(ctx context.Context, n int) error {
	return c.limiter.WaitN(ctx, n)
}

// Allow reports whether n bytes may be consumed right now without
// blocking, consuming the budget if so. Nothing in this module calls it;
// the read path uses Wait.
func (c *Controller) Allow(n int) bool {
	return c.limiter.AllowN(time.Now(), n)
}

// SetLimit updates the sustained rate, e.g. when configuration is reloaded.
func (c *Controller) SetLimit(bytesPerSec int) {
	c.limiter.SetLimit(rate.Limit(bytesPerSec))
}
