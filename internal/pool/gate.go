// Package pool provides admission control for outbound model requests.
package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

var (
	ErrGateClosed = errors.New("request gate is closed")
)

// GateConfig configures a Gate.
type GateConfig struct {
	// MaxConcurrent bounds the number of in-flight streaming requests.
	MaxConcurrent int `json:"max_concurrent"`
	// RequestsPerSecond optionally throttles how fast new requests start.
	// Zero disables throttling.
	RequestsPerSecond float64 `json:"requests_per_second"`
	// Burst is the limiter burst; defaults to 1 when throttling is on.
	Burst int `json:"burst"`
}

// DefaultGateConfig returns sensible defaults.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MaxConcurrent: 4,
	}
}

// GateStats is a snapshot of gate counters.
type GateStats struct {
	Capacity int64
	InFlight int64
	Waiting  int64
	Admitted int64
	Rejected int64
}

// Gate is a counting semaphore shared by every outbound request in the
// process. A slot is held from request start until the response stream ends.
type Gate struct {
	capacity int64
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	closed   atomic.Bool

	inFlight atomic.Int64
	waiting  atomic.Int64
	admitted atomic.Int64
	rejected atomic.Int64

	onWait func(time.Duration)
}

// NewGate creates a gate. MaxConcurrent below 1 is treated as 1.
func NewGate(config GateConfig) *Gate {
	capacity := int64(config.MaxConcurrent)
	if capacity < 1 {
		capacity = 1
	}
	g := &Gate{
		capacity: capacity,
		sem:      semaphore.NewWeighted(capacity),
	}
	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}
	return g
}

// OnWait registers a callback invoked with the time each admission waited.
// Must be called before the gate is shared.
func (g *Gate) OnWait(fn func(time.Duration)) {
	g.onWait = fn
}

// Acquire blocks until a slot is free or ctx is done. The returned release
// func is idempotent.
func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	if g.closed.Load() {
		g.rejected.Add(1)
		return nil, ErrGateClosed
	}

	start := time.Now()
	g.waiting.Add(1)
	err = g.sem.Acquire(ctx, 1)
	g.waiting.Add(-1)
	if err != nil {
		g.rejected.Add(1)
		return nil, err
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			g.sem.Release(1)
			g.rejected.Add(1)
			return nil, err
		}
	}

	if g.closed.Load() {
		g.sem.Release(1)
		g.rejected.Add(1)
		return nil, ErrGateClosed
	}

	g.inFlight.Add(1)
	g.admitted.Add(1)
	if g.onWait != nil {
		g.onWait(time.Since(start))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.inFlight.Add(-1)
			g.sem.Release(1)
		})
	}, nil
}

// Close rejects future acquisitions. In-flight holders still release normally.
func (g *Gate) Close() {
	g.closed.Store(true)
}

// Capacity returns the configured concurrency limit.
func (g *Gate) Capacity() int64 { return g.capacity }

// Stats returns a snapshot of the gate counters.
func (g *Gate) Stats() GateStats {
	return GateStats{
		Capacity: g.capacity,
		InFlight: g.inFlight.Load(),
		Waiting:  g.waiting.Load(),
		Admitted: g.admitted.Load(),
		Rejected: g.rejected.Load(),
	}
}
