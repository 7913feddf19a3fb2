// Package execution provides the worker pool that steps modules in lockstep
// with the engine goroutine.
package execution

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Barrier is a reusable synchronization point for a fixed number of
// goroutines. Waiters spin on the phase counter until the last goroutine
// arrives. Once Yield is requested, spinning waiters park on a condition
// variable instead. Yield is a one-shot request: it is reset when the phase
// advances.
type Barrier struct {
	total    atomic.Int64
	count    atomic.Int64
	phase    atomic.Uint64
	yielded  atomic.Bool
	sleepers atomic.Int64

	m    sync.Mutex
	cond *sync.Cond
}

// NewBarrier returns a barrier for total goroutines.
func NewBarrier(total int) *Barrier {
	b := &Barrier{}
	b.cond = sync.NewCond(&b.m)
	b.total.Store(int64(total))
	return b
}

// SetTotal changes the number of goroutines the barrier waits for. It must
// not be called while any goroutine is waiting.
func (b *Barrier) SetTotal(total int) {
	b.total.Store(int64(total))
	b.count.Store(0)
}

// Total returns the number of goroutines the barrier waits for.
func (b *Barrier) Total() int {
	return int(b.total.Load())
}

// Yield requests spinning waiters to park until the current phase is over.
func (b *Barrier) Yield() {
	b.yielded.Store(true)
}

// Wait blocks until all goroutines have called Wait.
func (b *Barrier) Wait() {
	phase := b.phase.Load()
	if b.count.Add(1) >= b.total.Load() {
		b.count.Store(0)
		b.phase.Add(1)
		// the last goroutine clears the request and wakes up parked ones
		yielded := b.yielded.Swap(false)
		if yielded || b.sleepers.Load() > 0 {
			b.m.Lock()
			b.cond.Broadcast()
			b.m.Unlock()
		}
		return
	}

	for !b.yielded.Load() {
		if b.phase.Load() != phase {
			return
		}
		runtime.Gosched()
	}

	b.m.Lock()
	b.sleepers.Add(1)
	for b.phase.Load() == phase {
		b.cond.Wait()
	}
	b.sleepers.Add(-1)
	b.m.Unlock()
}
