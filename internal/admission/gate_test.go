package admission

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_BoundsConcurrency(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		callers  int
	}{
		{name: "scoring pool", capacity: 10, callers: 40},
		{name: "ocr pool", capacity: 15, callers: 60},
		{name: "single permit", capacity: 1, callers: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(tt.name, tt.capacity)

			var current, peak atomic.Int64
			var wg sync.WaitGroup
			for i := 0; i < tt.callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := gate.Do(context.Background(), func(ctx context.Context) error {
						n := current.Add(1)
						for {
							p := peak.Load()
							if n <= p || peak.CompareAndSwap(p, n) {
								break
							}
						}
						time.Sleep(2 * time.Millisecond)
						current.Add(-1)
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			assert.LessOrEqual(t, peak.Load(), int64(tt.capacity))
			assert.Equal(t, tt.capacity, gate.Available())
			assert.Equal(t, 0, gate.InUse())
		})
	}
}

func TestGate_ReleasesOnError(t *testing.T) {
	gate := NewGate("scoring", 2)
	boom := errors.New("provider exploded")

	for i := 0; i < 5; i++ {
		err := gate.Do(context.Background(), func(ctx context.Context) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
	}

	assert.Equal(t, 2, gate.Available())
}

func TestGate_ReleasesOnPanic(t *testing.T) {
	gate := NewGate("ocr", 1)

	assert.Panics(t, func() {
		_ = gate.Do(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})

	assert.Equal(t, 1, gate.Available())
}

func TestGate_AcquireHonoursContext(t *testing.T) {
	gate := NewGate("scoring", 1)

	ticket, err := gate.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = gate.Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, gate.Waiting())

	ticket.Release()
	assert.Equal(t, 1, gate.Available())
}

func TestTicket_ReleaseIsIdempotent(t *testing.T) {
	gate := NewGate("ocr", 3)

	ticket, err := gate.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, gate.Available())

	ticket.Release()
	ticket.Release()

	assert.Equal(t, 3, gate.Available())
}

func TestGate_Snapshot(t *testing.T) {
	gate := NewGate("scoring", 10)
	ticket, err := gate.Acquire(context.Background())
	require.NoError(t, err)
	defer ticket.Release()

	snap := gate.Snapshot()
	assert.Equal(t, Snapshot{Name: "scoring", Capacity: 10, Available: 9, Waiting: 0}, snap)
}
