// Package wav provides modules that play and record wav files.
package wav

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"pipelined.dev/rack"
	"pipelined.dev/rack/signal"
)

// Model slugs.
const (
	PlayerModel   = "wav.player"
	RecorderModel = "wav.recorder"
)

const (
	// Channels is the number of ports of player and recorder.
	Channels = 2
	// VoltageScale maps full scale sample to voltage.
	VoltageScale = 10.0
	// pcmFormat is the wav audio format of integer samples.
	pcmFormat = 1
)

var (
	// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
	ErrUnsupportedBitDepth = errors.New("only 16, 24 and 32 bit depth is supported")
	// ErrInvalidFile is returned when decoded file is not a valid wav.
	ErrInvalidFile = errors.New("wav is not valid")
)

// Player plays decoded wav file once. Every channel of the file is sent to
// its own output, mono files are sent to both outputs.
type Player struct {
	rack.Base
	path     string
	samples  signal.Float64
	position int
}

// NewPlayer returns player without loaded file.
func NewPlayer() *Player {
	p := &Player{}
	p.Config(0, 0, Channels)
	return p
}

// Load decodes the whole wav stream. It must not be called while player is
// being processed. Sample rate of the file is returned.
func (p *Player) Load(r io.ReadSeeker) (int, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return 0, ErrInvalidFile
	}
	bitDepth := signal.BitDepth(decoder.BitDepth)
	if err := checkBitDepth(bitDepth); err != nil {
		return 0, err
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return 0, fmt.Errorf("decode wav: %w", err)
	}
	p.samples = signal.InterInt{
		Data:        buf.Data,
		NumChannels: buf.Format.NumChannels,
		BitDepth:    bitDepth,
	}.AsFloat64()
	p.position = 0
	return int(decoder.SampleRate), nil
}

// LoadFile loads wav file and remembers its path for patch.
func (p *Player) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	sampleRate, err := p.Load(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	p.path = path
	return sampleRate, nil
}

// Process implements rack.Module.
func (p *Player) Process(rack.ProcessArgs) {
	if p.position >= p.samples.Size() {
		for i := range p.Outputs {
			p.Outputs[i].SetVoltage(0, 0)
		}
		return
	}
	for i := range p.Outputs {
		c := i
		if c >= p.samples.NumChannels() {
			c = p.samples.NumChannels() - 1
		}
		p.Outputs[i].SetVoltage(p.samples[c][p.position]*VoltageScale, 0)
	}
	p.position++
}

// Done returns true when the whole file was played.
func (p *Player) Done() bool {
	return p.position >= p.samples.Size()
}

// OnReset rewinds player.
func (p *Player) OnReset() {
	p.position = 0
}

type playerData struct {
	Path string `json:"path,omitempty"`
}

// DataToJSON implements rack.DataMarshaler.
func (p *Player) DataToJSON() (json.RawMessage, error) {
	return json.Marshal(playerData{Path: p.path})
}

// DataFromJSON loads file referenced by the patch.
func (p *Player) DataFromJSON(data json.RawMessage) error {
	var d playerData
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	if d.Path == "" {
		return nil
	}
	_, err := p.LoadFile(d.Path)
	return err
}

// Recorder captures voltages of its inputs. Every input is recorded as a
// separate channel, only the first channel of polyphonic input is used.
type Recorder struct {
	rack.Base
	// Limit is the maximum number of recorded frames, zero means no limit.
	Limit   int
	samples signal.Float64
}

// NewRecorder returns recorder with empty buffer.
func NewRecorder() *Recorder {
	r := &Recorder{}
	r.Config(0, Channels, 0)
	r.samples = make(signal.Float64, Channels)
	return r
}

// Process implements rack.Module.
func (r *Recorder) Process(rack.ProcessArgs) {
	if r.Limit > 0 && r.samples.Size() >= r.Limit {
		return
	}
	for i := range r.Inputs {
		r.samples[i] = append(r.samples[i], r.Inputs[i].Voltage(0)/VoltageScale)
	}
}

// Frames returns number of recorded frames.
func (r *Recorder) Frames() int {
	return r.samples.Size()
}

// Samples returns recorded signal.
func (r *Recorder) Samples() signal.Float64 {
	return r.samples
}

// OnReset drops recorded frames.
func (r *Recorder) OnReset() {
	for i := range r.samples {
		r.samples[i] = r.samples[i][:0]
	}
}

// Save encodes recorded frames into wav stream. Voltages outside of
// [-VoltageScale, VoltageScale] are clipped.
func (r *Recorder) Save(w io.WriteSeeker, sampleRate int, bitDepth signal.BitDepth) error {
	if err := checkBitDepth(bitDepth); err != nil {
		return err
	}
	numChannels := r.samples.NumChannels()
	e := wav.NewEncoder(w, sampleRate, int(bitDepth), numChannels, pcmFormat)
	ib := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: numChannels,
			SampleRate:  sampleRate,
		},
		Data:           r.samples.AsInterInt(bitDepth),
		SourceBitDepth: int(bitDepth),
	}
	if err := e.Write(ib); err != nil {
		return err
	}
	return e.Close()
}

// SaveFile writes recorded frames to the wav file.
func (r *Recorder) SaveFile(path string, sampleRate int, bitDepth signal.BitDepth) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Save(f, sampleRate, bitDepth); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// Models returns player and recorder models for catalog.
func Models() []rack.Model {
	return []rack.Model{
		{Slug: PlayerModel, Name: "WAV Player", New: func() rack.Module { return NewPlayer() }},
		{Slug: RecorderModel, Name: "WAV Recorder", New: func() rack.Module { return NewRecorder() }},
	}
}

func checkBitDepth(bitDepth signal.BitDepth) error {
	switch bitDepth {
	case signal.BitDepth16, signal.BitDepth24, signal.BitDepth32:
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
}
