package signal

import "math"

const (
	// lightLambda is the decay rate of smoothed lights, 1/seconds.
	lightLambda = 30.0
	// lightScale maps voltage to brightness.
	lightScale = 10.0
)

// Light is the plug activity indicator of a port. Positive and Negative
// follow the voltage of a monophonic port. Poly follows RMS of polyphonic
// port.
type Light struct {
	Positive float64
	Negative float64
	Poly     float64
}

// Update steps the light of the port for deltaTime seconds.
func (p *Port) Update(deltaTime float64) {
	switch {
	case p.channels == 0:
		p.Light = Light{}
	case p.channels == 1:
		v := p.Voltages[0] / lightScale
		p.Light.Positive = smooth(p.Light.Positive, v, deltaTime)
		p.Light.Negative = smooth(p.Light.Negative, -v, deltaTime)
		p.Light.Poly = 0
	default:
		var v2 float64
		for c := 0; c < p.channels; c++ {
			v2 += p.Voltages[c] * p.Voltages[c]
		}
		p.Light.Positive = 0
		p.Light.Negative = 0
		p.Light.Poly = smooth(p.Light.Poly, math.Sqrt(v2)/lightScale, deltaTime)
	}
}

// smooth is a 1-pole peak follower: rises instantly, decays exponentially.
func smooth(current, target, deltaTime float64) float64 {
	if target < 0 {
		target = 0
	}
	if target >= current {
		return target
	}
	k := lightLambda * deltaTime
	if k > 1 {
		k = 1
	}
	return current + (target-current)*k
}
