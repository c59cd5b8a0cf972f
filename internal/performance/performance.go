// Package performance provides concurrency utilities used by the market
// data layer: a bounded worker pool for batched quote fetches and a token
// bucket rate limiter for API request pacing.
package performance

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// WorkerPool runs a bounded number of goroutines over a queue of tasks.
// Used to fan out per-contract quote requests without unbounded parallelism.
type WorkerPool struct {
	workers int
}

// NewWorkerPool creates a pool sized to the given worker count.
// If workers is 0, it defaults to runtime.NumCPU().
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &WorkerPool{workers: workers}
}

// Workers returns the pool's concurrency bound.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// Run executes tasks with at most Workers goroutines and waits for all of
// them to finish. Tasks observe ctx cancellation through their own closures;
// Run itself stops dispatching once ctx is done.
func (p *WorkerPool) Run(ctx context.Context, tasks []func()) {
	queue := make(chan func())
	var wg sync.WaitGroup

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				task()
			}
		}()
	}

	for _, task := range tasks {
		select {
		case <-ctx.Done():
			close(queue)
			wg.Wait()
			return
		case queue <- task:
		}
	}
	close(queue)
	wg.Wait()
}

// RateLimiter implements a token bucket rate limiter.
type RateLimiter struct {
	rate       float64 // tokens per second
	burst      int     // max tokens
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     float64(burst),
		lastUpdate: time.Now(),
	}
}

// Allow checks if a request is allowed under the rate limit.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastUpdate).Seconds()
	r.lastUpdate = now

	r.tokens += elapsed * r.rate
	if r.tokens > float64(r.burst) {
		r.tokens = float64(r.burst)
	}

	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// Wait blocks until a request is allowed or the context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		if r.Allow() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond * 10):
			// Try again
		}
	}
}
