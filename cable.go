package rack

import (
	"fmt"

	"pipelined.dev/rack/signal"
)

// Cable connects output of one module to input of another. Cable refers to
// modules by id: engine resolves ports when cable is added and after every
// registry change.
type Cable struct {
	ID             int64
	OutputModuleID int64
	OutputID       int
	InputModuleID  int64
	InputID        int
}

// NewCable returns a cable from output port of one module to input port of
// another. Id of cable is assigned by engine.
func NewCable(output Module, outputID int, input Module, inputID int) *Cable {
	return &Cable{
		ID:             NoID,
		OutputModuleID: output.Core().ID,
		OutputID:       outputID,
		InputModuleID:  input.Core().ID,
		InputID:        inputID,
	}
}

// wire is a cable resolved to ports. Wires are rebuilt on every cable or
// module change and never outlive the registry state they were built for.
type wire struct {
	out *signal.Output
	in  *signal.Input
}

// checkCable validates that cable can be added to engine.
func (e *Engine) checkCable(c *Cable) (outputWasConnected bool, err error) {
	for _, other := range e.cables {
		if other == c {
			return false, fmt.Errorf("%w: %d", ErrCableExists, c.ID)
		}
		if other.InputModuleID == c.InputModuleID && other.InputID == c.InputID {
			return false, fmt.Errorf("%w: module %d input %d", ErrInputOccupied, c.InputModuleID, c.InputID)
		}
		if other.OutputModuleID == c.OutputModuleID && other.OutputID == c.OutputID {
			outputWasConnected = true
		}
	}
	if c.ID >= 0 {
		if _, ok := e.cableIndex[c.ID]; ok {
			return false, fmt.Errorf("%w: cable %d", ErrDuplicateID, c.ID)
		}
	}
	out, ok := e.moduleIndex[c.OutputModuleID]
	if !ok {
		return false, fmt.Errorf("%w: output module %d", ErrModuleNotFound, c.OutputModuleID)
	}
	if c.OutputID < 0 || c.OutputID >= len(out.Core().Outputs) {
		return false, fmt.Errorf("%w: module %d output %d", ErrPortRange, c.OutputModuleID, c.OutputID)
	}
	in, ok := e.moduleIndex[c.InputModuleID]
	if !ok {
		return false, fmt.Errorf("%w: input module %d", ErrModuleNotFound, c.InputModuleID)
	}
	if c.InputID < 0 || c.InputID >= len(in.Core().Inputs) {
		return false, fmt.Errorf("%w: module %d input %d", ErrPortRange, c.InputModuleID, c.InputID)
	}
	return outputWasConnected, nil
}

// updateConnected recomputes connection state of every port and rebuilds
// wires. Ports without cables are disconnected and zeroed.
func (e *Engine) updateConnected() {
	connectedInputs := make(map[*signal.Input]struct{}, len(e.cables))
	connectedOutputs := make(map[*signal.Output]struct{}, len(e.cables))
	e.wires = e.wires[:0]
	for _, c := range e.cables {
		in := &e.moduleIndex[c.InputModuleID].Core().Inputs[c.InputID]
		out := &e.moduleIndex[c.OutputModuleID].Core().Outputs[c.OutputID]
		in.Connect()
		out.Connect()
		connectedInputs[in] = struct{}{}
		connectedOutputs[out] = struct{}{}
		e.wires = append(e.wires, wire{out: out, in: in})
	}

	for _, m := range e.modules {
		b := m.Core()
		for i := range b.Inputs {
			if _, ok := connectedInputs[&b.Inputs[i]]; !ok {
				b.Inputs[i].Disconnect()
			}
		}
		for i := range b.Outputs {
			if _, ok := connectedOutputs[&b.Outputs[i]]; !ok {
				b.Outputs[i].Disconnect()
			}
		}
	}
}

// notifyPortChange sends port change event to module if it listens.
func notifyPortChange(m Module, connecting bool, t PortType, portID int) {
	if pc, ok := m.(PortChanger); ok {
		pc.OnPortChange(PortChangeEvent{
			Connecting: connecting,
			Type:       t,
			PortID:     portID,
		})
	}
}
