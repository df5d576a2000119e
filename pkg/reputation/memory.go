package reputation

import (
	"context"
	"sync"
	"time"

	"github.com/leadfuse/leadfuse/pkg/protocol"
)

type windowCounters struct {
	sent      int64
	failed    int64
	expiresAt time.Time
}

// MemoryGate is the in-process reputation gate for development and tests. It
// applies the same scoring as the Redis gate over per-key counters that reset
// when their window elapses.
type MemoryGate struct {
	mu       sync.Mutex
	counters map[string]*windowCounters
	now      func() time.Time
}

func NewMemoryGate() *MemoryGate {
	return &MemoryGate{
		counters: make(map[string]*windowCounters),
		now:      time.Now,
	}
}

func (g *MemoryGate) CanSend(ctx context.Context, tenantID, channel string) (protocol.Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	counters := g.window(tenantID, channel)

	score := Score(counters.sent, counters.failed)
	if score >= CriticalFloor {
		return protocol.Decision{Allowed: true}, nil
	}

	retryAfter := counters.expiresAt.Sub(g.now())
	if retryAfter <= 0 {
		retryAfter = DefaultRetryAfter
	}

	return protocol.Decision{Allowed: false, RetryAfter: retryAfter}, nil
}

func (g *MemoryGate) RecordResult(ctx context.Context, tenantID, channel string, delivered bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	counters := g.window(tenantID, channel)
	counters.sent++

	if !delivered {
		counters.failed++
	}

	return nil
}

// window returns the live counters for the key, resetting them when the
// rolling window has elapsed. Caller holds the lock.
func (g *MemoryGate) window(tenantID, channel string) *windowCounters {
	key := tenantID + ":" + channel

	counters, ok := g.counters[key]
	if !ok || g.now().After(counters.expiresAt) {
		counters = &windowCounters{expiresAt: g.now().Add(Window)}
		g.counters[key] = counters
	}

	return counters
}

var _ protocol.ReputationGate = (*MemoryGate)(nil)
