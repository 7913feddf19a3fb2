package signal

// MaxChannels is the maximum number of polyphonic channels of a port.
const MaxChannels = 16

// Port is a polyphonic signal endpoint. Zero channels means the port is
// disconnected. Connection state is owned by the engine: modules can change
// the number of channels of a connected output, but never connect or
// disconnect a port.
type Port struct {
	Voltages [MaxChannels]float64
	channels int
	Light    Light
}

type (
	// Input is a port that receives voltages from a cable.
	Input struct {
		Port
	}

	// Output is a port that sends voltages to cables.
	Output struct {
		Port
	}
)

// Voltage returns voltage of the channel.
func (p *Port) Voltage(channel int) float64 {
	return p.Voltages[channel]
}

// SetVoltage sets voltage of the channel.
func (p *Port) SetVoltage(v float64, channel int) {
	p.Voltages[channel] = v
}

// VoltageSum returns sum of voltages of all active channels.
func (p *Port) VoltageSum() float64 {
	var sum float64
	for c := 0; c < p.channels; c++ {
		sum += p.Voltages[c]
	}
	return sum
}

// Channels returns number of active channels.
func (p *Port) Channels() int {
	return p.channels
}

// IsConnected returns true if at least one cable is attached to the port.
func (p *Port) IsConnected() bool {
	return p.channels > 0
}

// IsMonophonic returns true if port carries a single channel.
func (p *Port) IsMonophonic() bool {
	return p.channels == 1
}

// IsPolyphonic returns true if port carries more than one channel.
func (p *Port) IsPolyphonic() bool {
	return p.channels > 1
}

// SetChannels sets the number of active channels. Disconnected port keeps
// zero channels and connected port never drops below one channel. Voltages
// of deactivated channels are zeroed.
func (p *Port) SetChannels(channels int) {
	if p.channels == 0 {
		return
	}
	if channels > MaxChannels {
		channels = MaxChannels
	}
	for c := channels; c < p.channels; c++ {
		p.Voltages[c] = 0
	}
	if channels < 1 {
		channels = 1
	}
	p.channels = channels
}

// Connect marks port as connected. Connected port keeps its channels.
func (p *Port) Connect() {
	if p.channels > 0 {
		return
	}
	p.channels = 1
}

// Disconnect marks port as disconnected and zeroes all voltages.
func (p *Port) Disconnect() {
	p.channels = 0
	p.Voltages = [MaxChannels]float64{}
}

// Clear zeroes all voltages without touching connection state.
func (p *Port) Clear() {
	p.Voltages = [MaxChannels]float64{}
}

// Receive copies active channels of the output into input. Input gets the
// same number of channels as output. Non-finite voltages are replaced with
// zero.
func (in *Input) Receive(out *Output) {
	channels := out.channels
	for c := 0; c < channels; c++ {
		v := out.Voltages[c]
		if !isFinite(v) {
			v = 0
		}
		in.Voltages[c] = v
	}
	for c := channels; c < in.channels; c++ {
		in.Voltages[c] = 0
	}
	in.channels = channels
}

// PolyVoltage returns voltage of the channel if input is polyphonic and
// voltage of the first channel otherwise.
func (in *Input) PolyVoltage(channel int) float64 {
	if in.channels == 1 {
		return in.Voltages[0]
	}
	return in.Voltages[channel]
}

// NormalVoltage returns voltage of the channel if input is connected and
// normal value otherwise.
func (in *Input) NormalVoltage(normal float64, channel int) float64 {
	if in.channels == 0 {
		return normal
	}
	return in.Voltages[channel]
}

func isFinite(v float64) bool {
	// NaN and infinities fail this comparison.
	return v-v == 0
}
