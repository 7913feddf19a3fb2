// Package osc provides oscillator modules.
package osc

import (
	"math"

	"pipelined.dev/rack"
	"pipelined.dev/rack/signal"
)

// Model is the slug of sine oscillator.
const Model = "osc.sine"

const (
	// C4 is the frequency of 0V pitch.
	C4 = 261.6256
	// Amplitude is the peak voltage of output.
	Amplitude = 5.0
)

// Param ids.
const (
	FreqParam = iota
	LevelParam
	numParams
)

// Port ids.
const (
	PitchInput = 0
	SineOutput = 0
)

// Sine is a polyphonic sine oscillator. Pitch input follows 1V/octave
// standard: every channel of the input drives its own voice.
type Sine struct {
	rack.Base
	phases [signal.MaxChannels]float64
}

// New returns sine oscillator tuned to C4.
func New() *Sine {
	s := &Sine{}
	s.Config(numParams, 1, 1)
	s.ConfigParam(FreqParam, -4, 4, 0, "Frequency")
	s.ConfigParam(LevelParam, 0, 1, 1, "Level")
	return s
}

// Process implements rack.Module.
func (s *Sine) Process(args rack.ProcessArgs) {
	in, out := &s.Inputs[PitchInput], &s.Outputs[SineOutput]
	channels := in.Channels()
	if channels == 0 {
		channels = 1
	}
	out.SetChannels(channels)

	pitch := s.Params[FreqParam].Value()
	level := s.Params[LevelParam].Value() * Amplitude
	for c := 0; c < channels; c++ {
		freq := C4 * math.Exp2(pitch+in.NormalVoltage(0, c))
		// keep below nyquist
		if limit := args.SampleRate / 2; freq > limit {
			freq = limit
		}
		phase := s.phases[c] + freq*args.SampleTime
		s.phases[c] = phase - math.Floor(phase)
		out.SetVoltage(level*math.Sin(2*math.Pi*s.phases[c]), c)
	}
}

// OnReset sets phases of all voices to zero.
func (s *Sine) OnReset() {
	s.phases = [signal.MaxChannels]float64{}
}
