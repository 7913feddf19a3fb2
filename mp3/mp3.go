// Package mp3 encodes recorded signals into mp3 files.
package mp3

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/viert/lame"

	"pipelined.dev/rack/signal"
)

// Default encoder settings.
const (
	DefaultBitRate = 192
	DefaultQuality = 2
)

// ErrChannels is returned when signal is neither mono nor stereo.
var ErrChannels = errors.New("mp3 supports only mono and stereo signals")

// Encode writes signal with samples in [-1, 1] range to w as mp3 stream.
// Samples are converted to 16 bit before encoding.
func Encode(w io.Writer, s signal.Float64, sampleRate, bitRate, quality int) error {
	numChannels := s.NumChannels()
	if numChannels < 1 || numChannels > 2 {
		return fmt.Errorf("%w: %d channels", ErrChannels, numChannels)
	}

	wr := lame.NewWriter(w)
	wr.Encoder.SetBitrate(bitRate)
	wr.Encoder.SetQuality(quality)
	wr.Encoder.SetNumChannels(numChannels)
	wr.Encoder.SetInSamplerate(sampleRate)
	if numChannels == 2 {
		wr.Encoder.SetMode(lame.JOINT_STEREO)
	}
	wr.Encoder.SetVBR(lame.VBR_RH)
	wr.Encoder.InitParams()

	ints := s.AsInterInt(signal.BitDepth16)
	pcm := make([]byte, len(ints)*2)
	for i, v := range ints {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v)))
	}
	if _, err := wr.Write(pcm); err != nil {
		wr.Close()
		return err
	}
	return wr.Close()
}

// EncodeFile writes signal to mp3 file.
func EncodeFile(path string, s signal.Float64, sampleRate, bitRate, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, s, sampleRate, bitRate, quality); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
