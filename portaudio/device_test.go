//go:build portaudio

package portaudio_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/rack/portaudio"
)

func TestDevice(t *testing.T) {
	framesPerBuffer := 512
	d, err := portaudio.Open(44100, framesPerBuffer)
	assert.NoError(t, err)

	// half a second of quiet 440 Hz tone
	samples := make([]float32, 22050*portaudio.Channels)
	for i := 0; i < len(samples); i += portaudio.Channels {
		v := float32(0.1 * math.Sin(2*math.Pi*440*float64(i/portaudio.Channels)/44100))
		samples[i], samples[i+1] = v, v
	}
	assert.NoError(t, d.Write(samples))
	assert.NoError(t, d.Close())
}
