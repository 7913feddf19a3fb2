// Package metric provides meters for rack modules. Meters are updated once
// per engine block and can be read concurrently with Measure or published
// through expvar.
package metric

import (
	"expvar"
	"sync"
	"sync/atomic"
	"time"

	"pipelined.dev/rack/signal"
)

const (
	// BlockCounter measures number of blocks.
	BlockCounter = "Blocks"
	// SampleCounter measures number of samples.
	SampleCounter = "Samples"
	// StartCounter fixes when meter was created.
	StartCounter = "Start"
	// LatencyCounter measures wall time between blocks.
	LatencyCounter = "Latency"
	// ElapsedCounter measures wall time since meter was created.
	ElapsedCounter = "Elapsed"
	// DurationCounter counts what's the duration of processed signal.
	DurationCounter = "Duration"
	// CPUCounter is the smoothed fraction of sample time spent in process.
	CPUCounter = "CPU"
)

// counters is a structure for metrics initialization.
var moduleCounters = []string{BlockCounter, SampleCounter, StartCounter, LatencyCounter, ElapsedCounter, DurationCounter, CPUCounter}

// Metric contains meters of modules.
type Metric struct {
	m      sync.Mutex
	meters map[string]map[string]*atomic.Value
}

// Measure is a snapshot of full metric with all counters.
type Measure map[string]map[string]interface{}

// addCounters to the metric. Metric used to generate measures for all counters.
//
// If id matches with existing counters, those will be replaced with the new one.
// If no match found, new counters is added and returned.
func (m *Metric) addCounters(id string, counters ...string) map[string]*atomic.Value {
	m.m.Lock()
	defer m.m.Unlock()

	if m.meters == nil {
		m.meters = make(map[string]map[string]*atomic.Value)
	} else {
		delete(m.meters, id)
	}

	meter := make(map[string]*atomic.Value)
	for _, counter := range counters {
		meter[counter] = &atomic.Value{}
	}

	m.meters[id] = meter
	return meter
}

// Remove deletes meter of the module.
func (m *Metric) Remove(id string) {
	if m == nil {
		return
	}
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.meters, id)
}

// Measure returns Metric's measures.
func (m *Metric) Measure() Measure {
	if m == nil {
		return nil
	}
	r := make(map[string]map[string]interface{})
	m.m.Lock()
	defer m.m.Unlock()

	for meterName, meter := range m.meters {
		meterValues := make(map[string]interface{})
		for counterName, counter := range meter {
			meterValues[counterName] = counter.Load()
		}
		r[meterName] = meterValues
	}
	return r
}

// Publish exposes measures of the metric as expvar variable. Name must be
// unique within the process.
func (m *Metric) Publish(name string) {
	expvar.Publish(name, expvar.Func(func() interface{} {
		return m.Measure()
	}))
}

// Meter creates new meter with module counters.
func (m *Metric) Meter(id string, sampleRate float64) *Meter {
	if m == nil {
		return nil
	}
	now := time.Now()
	meter := Meter{
		sampleRate:  sampleRate,
		startedAt:   now,
		processedAt: now,
	}

	meter.counters = m.addCounters(id, moduleCounters...)
	store(meter.counters, StartCounter, meter.startedAt)
	return &meter
}

// Meter contains all module's counters. Meter is not safe for concurrent
// updates, but its counters can be measured at any time.
type Meter struct {
	counters    map[string]*atomic.Value
	sampleRate  float64
	startedAt   time.Time     // StartCounter
	blocks      int64         // BlockCounter
	samples     int64         // SampleCounter
	latency     time.Duration // LatencyCounter
	processedAt time.Time
	elapsed     time.Duration // ElapsedCounter
	duration    time.Duration // DurationCounter
}

// SetSampleRate changes sample rate used to compute signal duration.
func (m *Meter) SetSampleRate(sampleRate float64) *Meter {
	if m == nil {
		return nil
	}
	m.sampleRate = sampleRate
	return m
}

// Block captures metrics after block of frames is processed.
func (m *Meter) Block(frames int64) *Meter {
	if m == nil {
		return nil
	}
	m.blocks++
	m.latency = time.Since(m.processedAt)
	m.processedAt = time.Now()
	m.elapsed = time.Since(m.startedAt)
	m.samples += frames
	m.duration += signal.DurationOf(m.sampleRate, frames)

	store(m.counters, BlockCounter, m.blocks)
	store(m.counters, LatencyCounter, m.latency)
	store(m.counters, ElapsedCounter, m.elapsed)
	store(m.counters, SampleCounter, m.samples)
	store(m.counters, DurationCounter, m.duration)
	return m
}

// CPU captures smoothed CPU load of the module.
func (m *Meter) CPU(load float64) *Meter {
	if m == nil {
		return nil
	}
	store(m.counters, CPUCounter, load)
	return m
}

// Store new counter value.
func store(m map[string]*atomic.Value, c string, v interface{}) {
	if counter, ok := m[c]; ok {
		counter.Store(v)
	}
}
