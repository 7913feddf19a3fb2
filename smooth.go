package rack

import "fmt"

// smoothLambda is the decay rate of param smoothing, 1/seconds.
const smoothLambda = 60.0

// smoothing is the param currently moving towards its target.
type smoothing struct {
	active   bool
	moduleID int64
	paramID  int
	value    float64
}

func (s smoothing) targets(moduleID int64, paramID int) bool {
	return s.active && s.moduleID == moduleID && s.paramID == paramID
}

// SetParam sets param value immediately. Smoothing of this param is
// cancelled.
func (e *Engine) SetParam(m Module, paramID int, value float64) {
	e.m.Lock()
	defer e.m.Unlock()
	b := m.Core()
	checkParam(b, paramID)
	if e.smooth.targets(b.ID, paramID) {
		e.smooth = smoothing{}
	}
	b.Params[paramID].SetValue(value)
}

// Param returns current param value. It doesn't block.
func (e *Engine) Param(m Module, paramID int) float64 {
	b := m.Core()
	checkParam(b, paramID)
	return b.Params[paramID].Value()
}

// SetSmoothParam starts moving param towards the value. Only one param is
// smoothed at a time: if another param is being smoothed, it's set to its
// target immediately.
func (e *Engine) SetSmoothParam(m Module, paramID int, value float64) {
	e.m.Lock()
	defer e.m.Unlock()
	b := m.Core()
	checkParam(b, paramID)
	if e.smooth.active && !e.smooth.targets(b.ID, paramID) {
		if prev, ok := e.moduleIndex[e.smooth.moduleID]; ok {
			prev.Core().Params[e.smooth.paramID].SetValue(e.smooth.value)
		}
	}
	e.smooth = smoothing{
		active:   true,
		moduleID: b.ID,
		paramID:  paramID,
		value:    value,
	}
}

// SmoothParam returns target of param if it's being smoothed and current
// value otherwise.
func (e *Engine) SmoothParam(m Module, paramID int) float64 {
	e.m.Lock()
	defer e.m.Unlock()
	b := m.Core()
	checkParam(b, paramID)
	if e.smooth.targets(b.ID, paramID) {
		return e.smooth.value
	}
	return b.Params[paramID].Value()
}

// stepSmoothing moves smoothed param one sample closer to its target.
func (e *Engine) stepSmoothing() {
	if !e.smooth.active {
		return
	}
	m, ok := e.moduleIndex[e.smooth.moduleID]
	if !ok || e.smooth.paramID >= len(m.Core().Params) {
		e.smooth = smoothing{}
		return
	}
	p := &m.Core().Params[e.smooth.paramID]
	target := e.smooth.value
	value := p.Value()

	k := smoothLambda * e.sampleTime
	if k > 1 {
		k = 1
	}
	newValue := value + (target-value)*k
	// rounding must not push value past the target
	if (target-newValue)*(target-value) < 0 {
		newValue = target
	}
	if newValue == value {
		p.SetValue(target)
		e.smooth = smoothing{}
		return
	}
	p.SetValue(newValue)
}

func checkParam(b *Base, paramID int) {
	if paramID < 0 || paramID >= len(b.Params) {
		panic(fmt.Errorf("%w: module %d param %d", ErrParamRange, b.ID, paramID))
	}
}
