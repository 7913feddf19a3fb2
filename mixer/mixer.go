// Package mixer provides a module that averages multiple inputs.
package mixer

import (
	"pipelined.dev/rack"
	"pipelined.dev/rack/signal"
)

// Model is the slug of mixer.
const Model = "mixer"

// DefaultInputs is the number of inputs of mixer created from catalog.
const DefaultInputs = 4

// LevelParam is the id of output level param.
const LevelParam = 0

// Mixer averages its connected inputs channel by channel. Every output
// channel is the mean of inputs that carry this channel, so inputs with
// fewer channels don't lower the level of the others.
type Mixer struct {
	rack.Base
}

// New returns mixer with provided number of inputs.
func New(inputs int) *Mixer {
	m := &Mixer{}
	m.Config(1, inputs, 1)
	m.ConfigParam(LevelParam, 0, 2, 1, "Level")
	return m
}

// Process implements rack.Module.
func (m *Mixer) Process(rack.ProcessArgs) {
	var (
		sum      [signal.MaxChannels]float64
		signals  [signal.MaxChannels]int
		channels int
	)
	for i := range m.Inputs {
		in := &m.Inputs[i]
		n := in.Channels()
		for c := 0; c < n; c++ {
			sum[c] += in.Voltage(c)
			signals[c]++
		}
		if n > channels {
			channels = n
		}
	}

	out := &m.Outputs[0]
	if channels == 0 {
		out.Clear()
		out.SetChannels(1)
		return
	}
	out.SetChannels(channels)
	level := m.Params[LevelParam].Value()
	for c := 0; c < channels; c++ {
		out.SetVoltage(sum[c]/float64(signals[c])*level, c)
	}
}
