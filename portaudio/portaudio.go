// Package portaudio provides audio interface module that plays the rack
// through the default output device.
package portaudio

import (
	"github.com/gordonklaus/portaudio"

	"pipelined.dev/rack"
)

// Model is the slug of audio output.
const Model = "audio.output"

const (
	// Channels is the number of inputs of audio output.
	Channels = 2
	// VoltageScale maps voltage to full scale sample.
	VoltageScale = 10.0
	// BufferFrames is the number of frames output holds between drains.
	BufferFrames = 8192
)

// Output buffers voltages of its inputs as interleaved samples until they
// are drained to the device. Frames that don't fit the buffer are dropped
// and counted as overruns.
type Output struct {
	rack.Base
	buf      []float32
	overruns int
}

// NewOutput returns output with empty buffer.
func NewOutput() *Output {
	o := &Output{
		buf: make([]float32, 0, BufferFrames*Channels),
	}
	o.Config(0, Channels, 0)
	return o
}

// Process implements rack.Module.
func (o *Output) Process(rack.ProcessArgs) {
	if len(o.buf) == cap(o.buf) {
		o.overruns++
		return
	}
	for i := range o.Inputs {
		o.buf = append(o.buf, float32(o.Inputs[i].Voltage(0)/VoltageScale))
	}
}

// Frames returns number of buffered frames.
func (o *Output) Frames() int {
	return len(o.buf) / Channels
}

// Overruns returns number of dropped frames.
func (o *Output) Overruns() int {
	return o.overruns
}

// Drain passes buffered samples to fn and empties the buffer. It must not
// be called while engine is stepping.
func (o *Output) Drain(fn func([]float32) error) error {
	if len(o.buf) == 0 {
		return nil
	}
	err := fn(o.buf)
	o.buf = o.buf[:0]
	return err
}

// OnReset drops buffered frames.
func (o *Output) OnReset() {
	o.buf = o.buf[:0]
	o.overruns = 0
}

// Device is a blocking stream of the default output device.
type Device struct {
	buf    []float32
	stream *portaudio.Stream
}

// Open initializes portaudio and starts default output stream. Every write
// to the stream blocks until device consumes framesPerBuffer frames.
func Open(sampleRate float64, framesPerBuffer int) (*Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	d := &Device{
		buf: make([]float32, framesPerBuffer*Channels),
	}
	var err error
	d.stream, err = portaudio.OpenDefaultStream(0, Channels, sampleRate, framesPerBuffer, &d.buf)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	if err = d.stream.Start(); err != nil {
		d.stream.Close()
		portaudio.Terminate()
		return nil, err
	}
	return d, nil
}

// Write sends interleaved samples to device. Last incomplete buffer is
// padded with silence.
func (d *Device) Write(samples []float32) error {
	for len(samples) > 0 {
		n := copy(d.buf, samples)
		for i := n; i < len(d.buf); i++ {
			d.buf[i] = 0
		}
		if err := d.stream.Write(); err != nil {
			return err
		}
		samples = samples[n:]
	}
	return nil
}

// Close stops the stream and terminates portaudio.
func (d *Device) Close() error {
	if err := d.stream.Stop(); err != nil {
		return err
	}
	if err := d.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}

// Models returns audio output model for catalog.
func Models() []rack.Model {
	return []rack.Model{
		{Slug: Model, Name: "Audio Output", New: func() rack.Module { return NewOutput() }},
	}
}
