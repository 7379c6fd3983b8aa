package middleware

import (
	"context"

	"golang.org/x/time/rate"
)

// KickerLimiter throttles the receiver's empty-batch bootstrap kicker
// using a token bucket. Unlike a request-rejecting limiter, a throttled
// kicker must still eventually fire — dropping it would stall the
// connection, since the kicker is the sole mechanism that bootstraps the
// first receive channel. So instead of rejecting, this middleware blocks
// on Wait until a token is available.
//
// CRITICAL: the limiter is created in the OUTER closure (once per
// middleware creation), not per call, so the bucket persists across
// kicks instead of starting full every time.
//
// Parameters:
//   - r: token refill rate (kicks per second)
//   - burst: maximum number of kicks allowed in a burst
func KickerLimiter(r float64, burst int) KickMiddleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next KickFunc) KickFunc {
		return func() {
			_ = limiter.Wait(context.Background())
			next()
		}
	}
}
