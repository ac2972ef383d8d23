package timeutil

import (
	"math"
	"math/rand"
	"time"
)

// ExponentialBackoffDelay computes the wait before the next attempt.
// attempt is 1-based: attempt 1 yields the initial duration.
// The result is capped at the configured max, then a uniform jitter in
// [0, jitter) is added on top.
func ExponentialBackoffDelay(
	attempt int,
	jitter time.Duration,
	rng *rand.Rand,
	param BackoffParam,
) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	multiplier := param.Multiplier()
	if multiplier < 1 {
		multiplier = 1
	}

	raw := float64(param.InitialDuration()) * math.Pow(multiplier, float64(attempt-1))
	delay := time.Duration(raw)
	if maxDelay := param.MaxDuration(); maxDelay > 0 && (raw > float64(maxDelay) || delay < 0) {
		delay = maxDelay
	}

	if jitter > 0 && rng != nil {
		delay += time.Duration(rng.Int63n(int64(jitter)))
	}
	return delay
}
