// Package admission bounds concurrent calls to scarce external dependencies.
//
// A Gate hands out Tickets from a fixed-size pool. Acquire blocks without
// spinning until a permit frees up or the context ends. Waiters are served
// roughly in arrival order.
package admission

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate is a named bounded pool of permits
type Gate struct {
	name     string
	capacity int64
	sem      *semaphore.Weighted
	inUse    atomic.Int64
	waiting  atomic.Int64
}

// NewGate creates a gate with the given capacity
func NewGate(name string, capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{
		name:     name,
		capacity: int64(capacity),
		sem:      semaphore.NewWeighted(int64(capacity)),
	}
}

// Ticket is a permit held for the duration of one external call
type Ticket struct {
	gate *Gate
	once sync.Once
}

// Release returns the permit. It is safe to call more than once.
func (t *Ticket) Release() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		t.gate.inUse.Add(-1)
		t.gate.sem.Release(1)
	})
}

// Acquire blocks until a permit is available or ctx is done
func (g *Gate) Acquire(ctx context.Context) (*Ticket, error) {
	g.waiting.Add(1)
	err := g.sem.Acquire(ctx, 1)
	g.waiting.Add(-1)
	if err != nil {
		return nil, fmt.Errorf("%s gate: %w", g.name, err)
	}
	g.inUse.Add(1)
	return &Ticket{gate: g}, nil
}

// Do runs fn while holding a ticket. The ticket is released even if fn panics.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	ticket, err := g.Acquire(ctx)
	if err != nil {
		return err
	}
	defer ticket.Release()
	return fn(ctx)
}

// Name returns the gate's name
func (g *Gate) Name() string {
	return g.name
}

// Capacity returns the pool size
func (g *Gate) Capacity() int {
	return int(g.capacity)
}

// Available returns the number of free permits
func (g *Gate) Available() int {
	return int(g.capacity - g.inUse.Load())
}

// InUse returns the number of held permits
func (g *Gate) InUse() int {
	return int(g.inUse.Load())
}

// Waiting returns the number of callers blocked in Acquire
func (g *Gate) Waiting() int {
	return int(g.waiting.Load())
}

// Snapshot is a point-in-time view of a gate
type Snapshot struct {
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	Available int    `json:"available"`
	Waiting   int    `json:"waiting"`
}

// Snapshot returns the gate's current occupancy
func (g *Gate) Snapshot() Snapshot {
	return Snapshot{
		Name:      g.name,
		Capacity:  g.Capacity(),
		Available: g.Available(),
		Waiting:   g.Waiting(),
	}
}
