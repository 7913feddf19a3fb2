package execution

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBarrierYieldResets(t *testing.T) {
	b := NewBarrier(2)
	waitParked := func() {
		for b.sleepers.Load() == 0 {
			runtime.Gosched()
		}
	}

	// yielded phase parks the waiter
	b.Yield()
	released := make(chan struct{})
	go func() {
		b.Wait()
		close(released)
	}()
	waitParked()
	b.Wait()
	<-released
	assert.False(t, b.yielded.Load())

	// next phase spins again until yield is requested
	released = make(chan struct{})
	go func() {
		b.Wait()
		close(released)
	}()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int64(0), b.sleepers.Load())
	b.Yield()
	waitParked()
	b.Wait()
	<-released
	assert.False(t, b.yielded.Load())
	assert.Equal(t, int64(0), b.sleepers.Load())
}

func TestPoolPinError(t *testing.T) {
	errPin := errors.New("pin failed")
	pinThread = func(worker int) error {
		if worker == 2 {
			return errPin
		}
		return nil
	}
	defer func() { pinThread = pin }()

	p := NewPool(func(int) {}, true)
	assert.NoError(t, p.Resize(2))

	// failure is reported by the resize that started the worker
	err := p.Resize(3)
	assert.ErrorIs(t, err, errPin)
	assert.Contains(t, err.Error(), "worker 2")

	assert.NoError(t, p.Resize(2))
	assert.NoError(t, p.Close())

	unpinned := NewPool(func(int) {}, false)
	assert.NoError(t, unpinned.Resize(3))
	assert.NoError(t, unpinned.Close())
}
