// Package governor throttles TrainInfoService calls and enforces the per-run
// route probe ceiling.
//
// The collector is strictly sequential: the delay is inserted before each
// call, so it acts as a throttle rather than a cooldown.
package governor

import (
	"context"
	"sync"
	"time"
)

// Class groups endpoints that share an inter-call delay
type Class string

const (
	ClassList  Class = "list"  // city and station listings
	ClassMeta  Class = "meta"  // train type listing
	ClassProbe Class = "probe" // route schedule probes
)

// Governor enforces a minimum delay before each call and a hard cap on probes
type Governor struct {
	delays    map[Class]time.Duration
	maxProbes int

	mu     sync.Mutex
	probes int

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a governor with per-class delays and a probe ceiling
func New(delays map[Class]time.Duration, maxProbes int) *Governor {
	if maxProbes < 0 {
		maxProbes = 0
	}
	d := make(map[Class]time.Duration, len(delays))
	for k, v := range delays {
		d[k] = v
	}
	return &Governor{
		delays:    d,
		maxProbes: maxProbes,
		sleep:     sleepContext,
	}
}

// Wait blocks for the class delay. It returns early with the context error
// if ctx is cancelled.
func (g *Governor) Wait(ctx context.Context, class Class) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := g.delays[class]
	if d <= 0 {
		return nil
	}
	return g.sleep(ctx, d)
}

// Acquire consumes one probe unit. It returns false once the ceiling is
// reached; the caller must stop issuing probes.
func (g *Governor) Acquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.probes >= g.maxProbes {
		return false
	}
	g.probes++
	return true
}

// Calls returns the number of probes issued so far
func (g *Governor) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.probes
}

// Remaining returns the number of probes left
func (g *Governor) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.maxProbes - g.probes
}

// Exhausted reports whether the probe ceiling has been reached
func (g *Governor) Exhausted() bool {
	return g.Remaining() <= 0
}

// Max returns the configured probe ceiling
func (g *Governor) Max() int {
	return g.maxProbes
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
