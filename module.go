package rack

import (
	"encoding/json"
	"math"
	"sync/atomic"

	"pipelined.dev/rack/signal"
)

// NoID is the id of module, cable or expander target that is not set.
const NoID = -1

type (
	// Module is a processing unit of the rack. Implementations embed Base
	// and provide Process, which is called once per sample by one of the
	// engine goroutines. Process must not block, panic or call the engine.
	Module interface {
		Core() *Base
		Process(ProcessArgs)
	}

	// ProcessArgs are passed to module on every sample.
	ProcessArgs struct {
		SampleRate float64
		SampleTime float64
		Frame      int64
	}
)

// Optional hooks of modules. Engine calls them while holding its lock, so
// hooks must not call engine methods.
type (
	// Bypasser processes a sample while module is bypassed. Modules
	// without it get their outputs zeroed.
	Bypasser interface {
		ProcessBypass(ProcessArgs)
	}

	// Adder is notified when module is added to engine.
	Adder interface {
		OnAdd()
	}

	// Remover is notified when module is removed from engine.
	Remover interface {
		OnRemove()
	}

	// Resetter is notified when module params are reset.
	Resetter interface {
		OnReset()
	}

	// Randomizer is notified when module params are randomized.
	Randomizer interface {
		OnRandomize()
	}

	// SampleRateChanger is notified when engine sample rate changes.
	SampleRateChanger interface {
		OnSampleRateChange(SampleRateChangeEvent)
	}

	// PortChanger is notified when one of module ports is connected or
	// disconnected.
	PortChanger interface {
		OnPortChange(PortChangeEvent)
	}

	// BypassHandler is notified when module is bypassed or un-bypassed.
	BypassHandler interface {
		OnBypass()
		OnUnBypass()
	}

	// DataMarshaler persists module state that is not held in params.
	DataMarshaler interface {
		DataToJSON() (json.RawMessage, error)
		DataFromJSON(json.RawMessage) error
	}
)

// PortType distinguishes inputs from outputs.
type PortType int

const (
	// InputPort is the type of inputs.
	InputPort PortType = iota
	// OutputPort is the type of outputs.
	OutputPort
)

func (t PortType) String() string {
	if t == InputPort {
		return "input"
	}
	return "output"
}

type (
	// SampleRateChangeEvent carries new sample rate.
	SampleRateChangeEvent struct {
		SampleRate float64
		SampleTime float64
	}

	// PortChangeEvent describes connection change of a port.
	PortChangeEvent struct {
		Connecting bool
		Type       PortType
		PortID     int
	}
)

// Param is a module parameter. Its value is atomic: engine, UI and module
// goroutines can access it without locking.
type Param struct {
	value   atomic.Uint64
	Name    string
	Min     float64
	Max     float64
	Default float64
}

// Value returns current value of param.
func (p *Param) Value() float64 {
	return math.Float64frombits(p.value.Load())
}

// SetValue sets current value of param.
func (p *Param) SetValue(v float64) {
	p.value.Store(math.Float64bits(v))
}

// Base is the state of a module owned by the engine. It must be configured
// with Config before the module is added: ports are referenced by the
// engine and cannot be reallocated while module is registered.
type Base struct {
	ID            int64
	Model         string
	Inputs        []signal.Input
	Outputs       []signal.Output
	Params        []Param
	LeftExpander  Expander
	RightExpander Expander

	bypassed bool
	cpuTime  atomic.Uint64
}

// Core returns the base of module. It allows Base embedders to satisfy
// Module interface.
func (b *Base) Core() *Base {
	return b
}

// Config allocates params and ports and resets ids.
func (b *Base) Config(numParams, numInputs, numOutputs int) {
	b.ID = NoID
	b.Params = make([]Param, numParams)
	b.Inputs = make([]signal.Input, numInputs)
	b.Outputs = make([]signal.Output, numOutputs)
	b.LeftExpander.unlink()
	b.RightExpander.unlink()
}

// ConfigParam sets range, default value and name of param. Current value
// is set to default.
func (b *Base) ConfigParam(id int, min, max, def float64, name string) {
	p := &b.Params[id]
	p.Min = min
	p.Max = max
	p.Default = def
	p.Name = name
	p.SetValue(def)
}

// Bypassed returns true if module is bypassed.
func (b *Base) Bypassed() bool {
	return b.bypassed
}

// CPUTime returns smoothed time module spends in process per sample, in
// seconds. It's only updated when CPU meter is enabled.
func (b *Base) CPUTime() float64 {
	return math.Float64frombits(b.cpuTime.Load())
}

// measureCPU folds duration of a single process call into CPU time.
func (b *Base) measureCPU(duration, sampleTime float64) {
	cpuTime := b.CPUTime()
	cpuTime += (duration - cpuTime) * sampleTime / cpuTau
	b.cpuTime.Store(math.Float64bits(cpuTime))
}

// clearOutputs zeroes outputs and resets them to a single channel.
func (b *Base) clearOutputs() {
	for i := range b.Outputs {
		b.Outputs[i].Clear()
		b.Outputs[i].SetChannels(1)
	}
}
