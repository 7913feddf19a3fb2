package portaudio_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/rack"
	"pipelined.dev/rack/log"
	"pipelined.dev/rack/mock"
	"pipelined.dev/rack/portaudio"
	"pipelined.dev/rack/settings"
)

func TestOutput(t *testing.T) {
	catalog := mock.Catalog()
	assert.NoError(t, catalog.Add(portaudio.Models()...))
	e, err := rack.New(
		rack.WithSettings(settings.New()),
		rack.WithLogger(log.Silent()),
		rack.WithCatalog(catalog),
		rack.WithPinning(false),
	)
	assert.NoError(t, err)
	defer e.Close()

	left, right := mock.NewConstant(5), mock.NewConstant(-10)
	out := portaudio.NewOutput()
	e.AddModule(left)
	e.AddModule(right)
	e.AddModule(out)
	e.AddCable(rack.NewCable(left, 0, out, 0))
	e.AddCable(rack.NewCable(right, 0, out, 1))
	e.SetPrimaryModule(out)
	assert.Equal(t, rack.Module(out), e.PrimaryModule())

	e.Step(64)
	assert.Equal(t, 64, out.Frames())
	var drained []float32
	assert.NoError(t, out.Drain(func(samples []float32) error {
		drained = append(drained, samples...)
		return nil
	}))
	assert.Equal(t, 0, out.Frames())
	assert.Len(t, drained, 64*portaudio.Channels)
	// cable delivers values on the second frame
	assert.Equal(t, []float32{0, 0}, drained[:2])
	assert.Equal(t, []float32{0.5, -1}, drained[2:4])

	errDevice := errors.New("device error")
	e.Step(1)
	assert.ErrorIs(t, out.Drain(func([]float32) error { return errDevice }), errDevice)
	assert.Equal(t, 0, out.Frames())
}

func TestOutputOverrun(t *testing.T) {
	out := portaudio.NewOutput()
	for i := 0; i < portaudio.BufferFrames+10; i++ {
		out.Process(rack.ProcessArgs{})
	}
	assert.Equal(t, portaudio.BufferFrames, out.Frames())
	assert.Equal(t, 10, out.Overruns())

	out.OnReset()
	assert.Equal(t, 0, out.Frames())
	assert.Equal(t, 0, out.Overruns())
}
