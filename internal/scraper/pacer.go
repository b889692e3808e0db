package scraper

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"comment-scout/internal/config"
)

// Pacer spaces out navigations and inserts randomized pauses so the
// crawl has no fixed rhythm
type Pacer struct {
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPacer allows navigationsPerMinute page loads per minute; zero disables
// the limit
func NewPacer(navigationsPerMinute int) *Pacer {
	p := &Pacer{
		sleep: sleepContext,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if navigationsPerMinute > 0 {
		p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(navigationsPerMinute)), 1)
	}
	return p
}

// WithSleeper replaces the blocking sleep, used by tests
func (p *Pacer) WithSleeper(sleep func(ctx context.Context, d time.Duration) error) *Pacer {
	p.sleep = sleep
	return p
}

// WithSeed makes the pause sequence reproducible
func (p *Pacer) WithSeed(seed int64) *Pacer {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rng = rand.New(rand.NewSource(seed))
	return p
}

// Delay draws a duration uniformly from [r.Min, r.Max]
func (p *Pacer) Delay(r config.Range) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return r.Min + time.Duration(p.rng.Int63n(int64(r.Max-r.Min)+1))
}

// Pause sleeps for a random duration within r
func (p *Pacer) Pause(ctx context.Context, r config.Range) error {
	return p.sleep(ctx, p.Delay(r))
}

// Navigate blocks until another page load is allowed
func (p *Pacer) Navigate(ctx context.Context) error {
	if p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
