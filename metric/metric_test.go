package metric_test

import (
	"expvar"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/rack/metric"
)

func TestMeter(t *testing.T) {
	var tests = []struct {
		*metric.Metric
		routines int
		blocks   int
		frames   int64
		expected int64
	}{
		{
			Metric:   &metric.Metric{},
			routines: 2,
			blocks:   10,
			frames:   100,
			expected: 10 * 100,
		},
		{
			Metric:   &metric.Metric{},
			routines: 10,
			blocks:   5,
			frames:   100,
			expected: 5 * 100,
		},
		{
			routines: 100,
			blocks:   5,
			frames:   100,
			expected: 0,
		},
	}

	testFn := func(c *metric.Meter, wg *sync.WaitGroup, blocks int, frames int64) {
		for i := 0; i < blocks; i++ {
			c.Block(frames).CPU(0.5)
		}
		wg.Done()
	}

	for _, c := range tests {
		m := c.Metric
		wg := &sync.WaitGroup{}
		wg.Add(c.routines)
		for i := 0; i < c.routines; i++ {
			meter := m.Meter(fmt.Sprintf("module %d", i), 44100)
			go testFn(meter, wg, c.blocks, c.frames)
		}
		// check if no data race.
		_ = m.Measure()
		wg.Wait()
		measure := m.Measure()
		if m == nil {
			assert.Nil(t, measure)
			continue
		}
		assert.Equal(t, c.routines, len(measure))
		for _, meters := range measure {
			assert.Equal(t, c.expected, meters[metric.SampleCounter])
			assert.Equal(t, int64(c.blocks), meters[metric.BlockCounter])
			assert.Equal(t, 0.5, meters[metric.CPUCounter])
		}
	}
}

func TestDuration(t *testing.T) {
	m := &metric.Metric{}
	meter := m.Meter("1", 44100)
	meter.Block(22050).Block(22050)
	measure := m.Measure()
	assert.Equal(t, time.Second, measure["1"][metric.DurationCounter])

	meter.SetSampleRate(48000).Block(48000)
	measure = m.Measure()
	assert.Equal(t, 2*time.Second, measure["1"][metric.DurationCounter])

	// replacing meter resets counters
	m.Meter("1", 44100)
	measure = m.Measure()
	assert.Nil(t, measure["1"][metric.SampleCounter])

	m.Remove("1")
	assert.Empty(t, m.Measure())
}

func TestPublish(t *testing.T) {
	m := &metric.Metric{}
	m.Meter("7", 44100).Block(10)
	m.Publish("rack.metric.test")
	v := expvar.Get("rack.metric.test")
	assert.NotNil(t, v)
	assert.Contains(t, v.String(), "Samples")
}
