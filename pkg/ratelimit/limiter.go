package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter gates outgoing requests
type Limiter interface {
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
}

// NewPerMinute returns a limiter allowing requestsPerMinute requests with a
// burst of one. Zero or negative disables limiting.
func NewPerMinute(requestsPerMinute int) Limiter {
	if requestsPerMinute <= 0 {
		return Unlimited{}
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

// Unlimited never blocks
type Unlimited struct{}

// Wait only reports context cancellation
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }

// Sleeper abstracts blocking delays so pacing can be tested without real time
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// RealSleeper waits on a timer, returning early with ctx.Err() on cancellation
type RealSleeper struct{}

// Sleep blocks for d
func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordingSleeper records requested delays and returns immediately
type RecordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

// Sleep records d
func (r *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

// Delays returns a copy of the recorded delays
func (r *RecordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// Total returns the sum of recorded delays
func (r *RecordingSleeper) Total() time.Duration {
	var total time.Duration
	for _, d := range r.Delays() {
		total += d
	}
	return total
}

// Pacer enforces a fixed pause after each unit of work
type Pacer struct {
	Delay   time.Duration
	Sleeper Sleeper
}

// NewPacer creates a pacer; a nil sleeper uses RealSleeper
func NewPacer(delay time.Duration, sleeper Sleeper) *Pacer {
	if sleeper == nil {
		sleeper = RealSleeper{}
	}
	return &Pacer{Delay: delay, Sleeper: sleeper}
}

// Pause blocks for the configured delay
func (p *Pacer) Pause(ctx context.Context) error {
	if p == nil || p.Delay <= 0 {
		return ctx.Err()
	}
	return p.Sleeper.Sleep(ctx, p.Delay)
}

// Interval reports the spacing a per-minute limit enforces
func Interval(requestsPerMinute int) time.Duration {
	if requestsPerMinute <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(float64(time.Minute) / float64(requestsPerMinute)))
}
