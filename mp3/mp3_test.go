package mp3_test

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/rack/mp3"
	"pipelined.dev/rack/signal"
)

func sine(numChannels, size int) signal.Float64 {
	s := make(signal.Float64, numChannels)
	for c := range s {
		s[c] = make([]float64, size)
		for i := range s[c] {
			s[c][i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/44100)
		}
	}
	return s
}

func TestEncode(t *testing.T) {
	tests := []struct {
		numChannels int
		err         error
	}{
		{numChannels: 1},
		{numChannels: 2},
		{numChannels: 0, err: mp3.ErrChannels},
		{numChannels: 3, err: mp3.ErrChannels},
	}
	for _, test := range tests {
		var buf bytes.Buffer
		err := mp3.Encode(&buf, sine(test.numChannels, 44100), 44100, mp3.DefaultBitRate, mp3.DefaultQuality)
		if test.err != nil {
			assert.ErrorIs(t, err, test.err)
			continue
		}
		assert.NoError(t, err)
		assert.Greater(t, buf.Len(), 0, "channels %d", test.numChannels)
	}
}

func TestEncodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.mp3")
	assert.NoError(t, mp3.EncodeFile(path, sine(2, 22050), 44100, 128, 5))
	info, err := os.Stat(path)
	assert.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	missing := filepath.Join(t.TempDir(), "missing", "out.mp3")
	assert.ErrorIs(t, mp3.EncodeFile(missing, sine(2, 10), 44100, 128, 5), os.ErrNotExist)
}
