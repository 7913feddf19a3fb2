// Package mock provides modules to test rack engines.
package mock

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"pipelined.dev/rack"
)

// Model slugs of mock modules.
const (
	ConstantModel  = "mock.constant"
	GainModel      = "mock.gain"
	CounterModel   = "mock.counter"
	HooksModel     = "mock.hooks"
	MessengerModel = "mock.messenger"
)

// Catalog returns catalog with all mock models.
func Catalog() *rack.Catalog {
	return rack.NewCatalog(
		rack.Model{Slug: ConstantModel, Name: "Constant", New: func() rack.Module { return NewConstant(0) }},
		rack.Model{Slug: GainModel, Name: "Gain", New: func() rack.Module { return NewGain() }},
		rack.Model{Slug: CounterModel, Name: "Counter", New: func() rack.Module { return NewCounter() }},
		rack.Model{Slug: HooksModel, Name: "Hooks", New: func() rack.Module { return NewHooks() }},
		rack.Model{Slug: MessengerModel, Name: "Messenger", New: func() rack.Module { return NewMessenger() }},
	)
}

// Constant writes value of its param to every channel of its output.
type Constant struct {
	rack.Base
	Channels int
}

// NewConstant returns constant module with a single output channel.
func NewConstant(value float64) *Constant {
	c := &Constant{Channels: 1}
	c.Config(1, 0, 1)
	c.ConfigParam(0, -10, 10, 0, "Value")
	c.Params[0].SetValue(value)
	return c
}

// Process implements rack.Module.
func (c *Constant) Process(rack.ProcessArgs) {
	out := &c.Outputs[0]
	out.SetChannels(c.Channels)
	v := c.Params[0].Value()
	for ch := 0; ch < c.Channels; ch++ {
		out.SetVoltage(v, ch)
	}
}

// Gain multiplies every channel of its input by param value.
type Gain struct {
	rack.Base
}

// NewGain returns gain module with unity gain.
func NewGain() *Gain {
	g := &Gain{}
	g.Config(1, 1, 1)
	g.ConfigParam(0, 0, 2, 1, "Gain")
	return g
}

// Process implements rack.Module.
func (g *Gain) Process(rack.ProcessArgs) {
	in, out := &g.Inputs[0], &g.Outputs[0]
	channels := in.Channels()
	if channels == 0 {
		channels = 1
	}
	out.SetChannels(channels)
	gain := g.Params[0].Value()
	for ch := 0; ch < channels; ch++ {
		out.SetVoltage(in.Voltage(ch)*gain, ch)
	}
}

// ProcessBypass passes input through unchanged.
func (g *Gain) ProcessBypass(rack.ProcessArgs) {
	in, out := &g.Inputs[0], &g.Outputs[0]
	channels := in.Channels()
	if channels == 0 {
		channels = 1
	}
	out.SetChannels(channels)
	for ch := 0; ch < channels; ch++ {
		out.SetVoltage(in.Voltage(ch), ch)
	}
}

// Counter has no ports and counts process calls.
type Counter struct {
	rack.Base
	calls     atomic.Int64
	lastFrame atomic.Int64
}

// NewCounter returns counter module.
func NewCounter() *Counter {
	c := &Counter{}
	c.Config(0, 0, 0)
	return c
}

// Process implements rack.Module.
func (c *Counter) Process(args rack.ProcessArgs) {
	c.calls.Add(1)
	c.lastFrame.Store(args.Frame)
}

// Calls returns number of process calls.
func (c *Counter) Calls() int64 {
	return c.calls.Load()
}

// LastFrame returns frame of the latest process call.
func (c *Counter) LastFrame() int64 {
	return c.lastFrame.Load()
}

// Hooks records engine notifications. It also persists its Data field in
// patches.
type Hooks struct {
	rack.Base
	Data string

	m      sync.Mutex
	events []string
}

// NewHooks returns hooks module with one param, input and output.
func NewHooks() *Hooks {
	h := &Hooks{}
	h.Config(1, 1, 1)
	h.ConfigParam(0, 0, 1, 0.5, "Level")
	return h
}

// Process copies input to output.
func (h *Hooks) Process(rack.ProcessArgs) {
	h.Outputs[0].SetVoltage(h.Inputs[0].Voltage(0), 0)
}

// Events returns recorded notifications and clears them.
func (h *Hooks) Events() []string {
	h.m.Lock()
	defer h.m.Unlock()
	events := h.events
	h.events = nil
	return events
}

func (h *Hooks) record(format string, args ...interface{}) {
	h.m.Lock()
	defer h.m.Unlock()
	h.events = append(h.events, fmt.Sprintf(format, args...))
}

// OnAdd implements rack.Adder.
func (h *Hooks) OnAdd() { h.record("add") }

// OnRemove implements rack.Remover.
func (h *Hooks) OnRemove() { h.record("remove") }

// OnReset implements rack.Resetter.
func (h *Hooks) OnReset() { h.record("reset") }

// OnRandomize implements rack.Randomizer.
func (h *Hooks) OnRandomize() { h.record("randomize") }

// OnBypass implements rack.BypassHandler.
func (h *Hooks) OnBypass() { h.record("bypass") }

// OnUnBypass implements rack.BypassHandler.
func (h *Hooks) OnUnBypass() { h.record("unbypass") }

// OnSampleRateChange implements rack.SampleRateChanger.
func (h *Hooks) OnSampleRateChange(e rack.SampleRateChangeEvent) {
	h.record("sampleRate %v", e.SampleRate)
}

// OnPortChange implements rack.PortChanger.
func (h *Hooks) OnPortChange(e rack.PortChangeEvent) {
	action := "disconnect"
	if e.Connecting {
		action = "connect"
	}
	h.record("%s %s %d", action, e.Type, e.PortID)
}

type hooksData struct {
	Data string `json:"data"`
}

// DataToJSON implements rack.DataMarshaler.
func (h *Hooks) DataToJSON() (json.RawMessage, error) {
	return json.Marshal(hooksData{Data: h.Data})
}

// DataFromJSON implements rack.DataMarshaler.
func (h *Hooks) DataFromJSON(data json.RawMessage) error {
	var d hooksData
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	h.Data = d.Data
	return nil
}

// Message is sent between adjacent messengers.
type Message struct {
	Frame int64
}

// Messenger sends current frame to its right neighbour and records frames
// received from its left neighbour.
type Messenger struct {
	rack.Base
	received atomic.Int64
}

// NewMessenger returns messenger with allocated message buffers.
func NewMessenger() *Messenger {
	m := &Messenger{}
	m.Config(0, 0, 0)
	m.LeftExpander.Producer = &Message{}
	m.LeftExpander.Consumer = &Message{}
	m.received.Store(rack.NoID)
	return m
}

// Process implements rack.Module.
func (m *Messenger) Process(args rack.ProcessArgs) {
	if right, ok := m.RightExpander.Module().(*Messenger); ok {
		right.LeftExpander.Producer.(*Message).Frame = args.Frame
		right.LeftExpander.RequestFlip()
	}
	if m.LeftExpander.Module() != nil {
		m.received.Store(m.LeftExpander.Consumer.(*Message).Frame)
	}
}

// Received returns the latest frame received from left neighbour or
// rack.NoID if nothing was received.
func (m *Messenger) Received() int64 {
	return m.received.Load()
}
