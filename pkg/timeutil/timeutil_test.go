package timeutil

import (
	"math/rand"
	"testing"
	"time"
)

func TestExponentialBackoffDelay(t *testing.T) {
	tests := []struct {
		name         string
		attempt      int
		jitter       time.Duration
		backoffParam BackoffParam
		wantMin      time.Duration
		wantMax      time.Duration
	}{
		{
			name:         "first attempt yields initial duration",
			attempt:      1,
			backoffParam: NewBackoffParam(time.Second, 2.0, 30*time.Second),
			wantMin:      time.Second,
			wantMax:      time.Second,
		},
		{
			name:         "third attempt quadruples",
			attempt:      3,
			backoffParam: NewBackoffParam(time.Second, 2.0, 30*time.Second),
			wantMin:      4 * time.Second,
			wantMax:      4 * time.Second,
		},
		{
			name:         "delay is capped at max",
			attempt:      10,
			backoffParam: NewBackoffParam(time.Second, 2.0, 10*time.Second),
			wantMin:      10 * time.Second,
			wantMax:      10 * time.Second,
		},
		{
			name:         "jitter adds positive variance",
			attempt:      2,
			jitter:       100 * time.Millisecond,
			backoffParam: NewBackoffParam(time.Second, 2.0, 30*time.Second),
			wantMin:      2 * time.Second,
			wantMax:      2*time.Second + 100*time.Millisecond,
		},
		{
			name:         "zero attempt treated as first",
			attempt:      0,
			backoffParam: NewBackoffParam(time.Second, 2.0, 30*time.Second),
			wantMin:      time.Second,
			wantMax:      time.Second,
		},
		{
			name:         "negative jitter ignored",
			attempt:      1,
			jitter:       -time.Second,
			backoffParam: NewBackoffParam(time.Second, 2.0, 30*time.Second),
			wantMin:      time.Second,
			wantMax:      time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			got := ExponentialBackoffDelay(tt.attempt, tt.jitter, rng, tt.backoffParam)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("ExponentialBackoffDelay() = %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}
