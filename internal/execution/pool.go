package execution

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// JobFunc is executed by every goroutine of the pool once per step. Worker
// zero is the calling goroutine.
type JobFunc func(worker int)

// Pool is a fixed set of worker goroutines that execute a job together with
// the calling goroutine. Workers are synchronized with two barriers: the
// start barrier releases them into the step and the done barrier holds the
// caller until every worker has finished its share.
type Pool struct {
	start   *Barrier
	done    *Barrier
	job     JobFunc
	pin     bool
	threads int
	running atomic.Bool
	group   *errgroup.Group
}

// NewPool returns a pool of a single thread. Workers are started with
// Resize. If pin is true, workers are locked to OS threads and bound to
// CPUs where the platform allows it.
func NewPool(job JobFunc, pin bool) *Pool {
	return &Pool{
		start:   NewBarrier(1),
		done:    NewBarrier(1),
		job:     job,
		pin:     pin,
		threads: 1,
	}
}

// Threads returns number of goroutines that execute the job, including the
// calling one.
func (p *Pool) Threads() int {
	return p.threads
}

// pinThread binds the calling OS thread of worker to a CPU.
var pinThread = pin

// Resize stops all running workers and starts threads-1 new ones. It must
// be called between steps and returns once every new worker has setup its
// thread. Error is returned if any of new workers failed to pin its thread,
// such workers still run unpinned.
func (p *Pool) Resize(threads int) error {
	if threads < 1 {
		threads = 1
	}
	p.stop()
	p.threads = threads
	p.start.SetTotal(threads)
	p.done.SetTotal(threads)
	if threads == 1 {
		return nil
	}

	p.running.Store(true)
	ready := make(chan error, threads-1)
	g := &errgroup.Group{}
	for id := 1; id < threads; id++ {
		id := id
		g.Go(func() error {
			p.work(id, ready)
			return nil
		})
	}
	p.group = g

	var errs []error
	for id := 1; id < threads; id++ {
		if err := <-ready; err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Step executes the job on all goroutines of the pool and returns when
// every one of them is done.
func (p *Pool) Step() {
	p.start.Wait()
	p.job(0)
	p.done.Wait()
}

// Yield makes idle workers sleep instead of spinning until the next step.
func (p *Pool) Yield() {
	p.start.Yield()
	p.done.Yield()
}

// Close stops all workers.
func (p *Pool) Close() error {
	return p.Resize(1)
}

// stop signals workers to quit, releases them through the start barrier
// one last time and joins them.
func (p *Pool) stop() {
	if p.group == nil {
		return
	}
	p.running.Store(false)
	p.start.Wait()
	_ = p.group.Wait()
	p.group = nil
}

// work sets up the thread of worker, reports result to ready and executes
// the job until pool is stopped.
func (p *Pool) work(id int, ready chan<- error) {
	var pinErr error
	if p.pin {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := pinThread(id); err != nil {
			pinErr = fmt.Errorf("worker %d: %w", id, err)
		}
	}
	ready <- pinErr

	for {
		p.start.Wait()
		if !p.running.Load() {
			return
		}
		p.job(id)
		p.done.Wait()
	}
}
