package rack

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// AddModule registers module. Module id is assigned if it's not set.
// Handles that were bound to the module id before it was added are linked
// to the module.
func (e *Engine) AddModule(m Module) {
	e.m.Lock()
	defer e.m.Unlock()
	if err := e.checkModule(m); err != nil {
		panic(err)
	}
	e.addModule(m)
}

// checkModule validates that module can be added to engine.
func (e *Engine) checkModule(m Module) error {
	if m == nil {
		return ErrNilModule
	}
	b := m.Core()
	if b.ID < 0 {
		return nil
	}
	if registered, ok := e.moduleIndex[b.ID]; ok {
		if registered == m {
			return fmt.Errorf("%w: %d", ErrModuleExists, b.ID)
		}
		return fmt.Errorf("%w: module %d", ErrDuplicateID, b.ID)
	}
	return nil
}

func (e *Engine) addModule(m Module) {
	b := m.Core()
	if b.ID < 0 {
		b.ID = e.nextModuleID
		e.nextModuleID++
	} else if b.ID >= e.nextModuleID {
		e.nextModuleID = b.ID + 1
	}

	if !b.LeftExpander.linked {
		b.LeftExpander.unlink()
	}
	if !b.RightExpander.linked {
		b.RightExpander.unlink()
	}

	e.modules = append(e.modules, m)
	e.moduleIndex[b.ID] = m
	e.addMeter(b)
	if a, ok := m.(Adder); ok {
		a.OnAdd()
	}
	for h := range e.handles {
		if h.ModuleID() == b.ID {
			h.setModule(m)
		}
	}
	e.log.WithFields(logrus.Fields{"module": b.ID, "model": b.Model}).Debug("module added")
}

// RemoveModule unregisters module. All cables of the module must be removed
// before.
func (e *Engine) RemoveModule(m Module) {
	e.m.Lock()
	defer e.m.Unlock()
	e.removeModule(m)
}

func (e *Engine) removeModule(m Module) {
	if m == nil {
		panic(ErrNilModule)
	}
	b := m.Core()
	idx := e.moduleIdx(m)
	if idx < 0 {
		panic(fmt.Errorf("%w: %d", ErrModuleNotFound, b.ID))
	}
	for _, c := range e.cables {
		if c.InputModuleID == b.ID || c.OutputModuleID == b.ID {
			panic(fmt.Errorf("%w: module %d cable %d", ErrDanglingCable, b.ID, c.ID))
		}
	}

	if e.smooth.active && e.smooth.moduleID == b.ID {
		e.smooth = smoothing{}
	}
	for h := range e.handles {
		if h.ModuleID() == b.ID {
			h.setModule(nil)
		}
	}
	for _, other := range e.modules {
		ob := other.Core()
		if ob.LeftExpander.linksTo(b.ID) || ob.LeftExpander.module == m {
			ob.LeftExpander.unlink()
		}
		if ob.RightExpander.linksTo(b.ID) || ob.RightExpander.module == m {
			ob.RightExpander.unlink()
		}
	}
	if r, ok := m.(Remover); ok {
		r.OnRemove()
	}
	if e.primary == m {
		e.primary = nil
	}

	e.modules = append(e.modules[:idx], e.modules[idx+1:]...)
	delete(e.moduleIndex, b.ID)
	e.removeMeter(b)
	e.log.WithFields(logrus.Fields{"module": b.ID, "model": b.Model}).Debug("module removed")
}

// moduleIdx returns position of module in the list or -1.
func (e *Engine) moduleIdx(m Module) int {
	for i := range e.modules {
		if e.modules[i] == m {
			return i
		}
	}
	return -1
}

// Module returns registered module by id or nil.
func (e *Engine) Module(id int64) Module {
	e.m.Lock()
	defer e.m.Unlock()
	return e.moduleIndex[id]
}

// Modules returns registered modules in order they were added.
func (e *Engine) Modules() []Module {
	e.m.Lock()
	defer e.m.Unlock()
	modules := make([]Module, len(e.modules))
	copy(modules, e.modules)
	return modules
}

// ModuleIDs returns ids of registered modules in order they were added.
func (e *Engine) ModuleIDs() []int64 {
	e.m.Lock()
	defer e.m.Unlock()
	ids := make([]int64, 0, len(e.modules))
	for _, m := range e.modules {
		ids = append(ids, m.Core().ID)
	}
	return ids
}

// ResetModule sets params of module to their defaults.
func (e *Engine) ResetModule(m Module) {
	e.m.Lock()
	defer e.m.Unlock()
	b := m.Core()
	if e.smooth.active && e.smooth.moduleID == b.ID {
		e.smooth = smoothing{}
	}
	for i := range b.Params {
		b.Params[i].SetValue(b.Params[i].Default)
	}
	if r, ok := m.(Resetter); ok {
		r.OnReset()
	}
}

// RandomizeModule sets params of module to random values within their
// ranges.
func (e *Engine) RandomizeModule(m Module) {
	e.m.Lock()
	defer e.m.Unlock()
	b := m.Core()
	if e.smooth.active && e.smooth.moduleID == b.ID {
		e.smooth = smoothing{}
	}
	for i := range b.Params {
		p := &b.Params[i]
		if p.Max > p.Min {
			p.SetValue(p.Min + e.rand.Float64()*(p.Max-p.Min))
		}
	}
	if r, ok := m.(Randomizer); ok {
		r.OnRandomize()
	}
}

// BypassModule enables or disables bypass of module. Outputs of bypassed
// module are zeroed.
func (e *Engine) BypassModule(m Module, bypassed bool) {
	e.m.Lock()
	defer e.m.Unlock()
	e.bypassModule(m, bypassed)
}

func (e *Engine) bypassModule(m Module, bypassed bool) {
	b := m.Core()
	if b.bypassed == bypassed {
		return
	}
	b.bypassed = bypassed
	if bypassed {
		b.clearOutputs()
	}
	if h, ok := m.(BypassHandler); ok {
		if bypassed {
			h.OnBypass()
		} else {
			h.OnUnBypass()
		}
	}
}

// AddCable registers cable and connects its ports. Cable id is assigned if
// it's not set.
func (e *Engine) AddCable(c *Cable) {
	e.m.Lock()
	defer e.m.Unlock()
	outputWasConnected, err := e.checkCable(c)
	if err != nil {
		panic(err)
	}
	e.addCable(c, outputWasConnected)
}

func (e *Engine) addCable(c *Cable, outputWasConnected bool) {
	if c.ID < 0 {
		c.ID = e.nextCableID
		e.nextCableID++
	} else if c.ID >= e.nextCableID {
		e.nextCableID = c.ID + 1
	}

	e.cables = append(e.cables, c)
	e.cableIndex[c.ID] = c
	e.updateConnected()

	notifyPortChange(e.moduleIndex[c.InputModuleID], true, InputPort, c.InputID)
	if !outputWasConnected {
		notifyPortChange(e.moduleIndex[c.OutputModuleID], true, OutputPort, c.OutputID)
	}
	e.log.WithFields(logrus.Fields{"cable": c.ID, "output": c.OutputModuleID, "input": c.InputModuleID}).Debug("cable added")
}

// RemoveCable unregisters cable and disconnects its ports. Output stays
// connected if it has other cables.
func (e *Engine) RemoveCable(c *Cable) {
	e.m.Lock()
	defer e.m.Unlock()
	e.removeCable(c)
}

func (e *Engine) removeCable(c *Cable) {
	idx := -1
	for i := range e.cables {
		if e.cables[i] == c {
			idx = i
			break
		}
	}
	if idx < 0 {
		panic(fmt.Errorf("%w: %d", ErrCableNotFound, c.ID))
	}

	e.cables = append(e.cables[:idx], e.cables[idx+1:]...)
	delete(e.cableIndex, c.ID)
	e.updateConnected()

	outputIsConnected := false
	for _, other := range e.cables {
		if other.OutputModuleID == c.OutputModuleID && other.OutputID == c.OutputID {
			outputIsConnected = true
			break
		}
	}
	notifyPortChange(e.moduleIndex[c.InputModuleID], false, InputPort, c.InputID)
	if !outputIsConnected {
		notifyPortChange(e.moduleIndex[c.OutputModuleID], false, OutputPort, c.OutputID)
	}
	e.log.WithFields(logrus.Fields{"cable": c.ID, "output": c.OutputModuleID, "input": c.InputModuleID}).Debug("cable removed")
}

// Cable returns registered cable by id or nil.
func (e *Engine) Cable(id int64) *Cable {
	e.m.Lock()
	defer e.m.Unlock()
	return e.cableIndex[id]
}

// Cables returns registered cables in order they were added.
func (e *Engine) Cables() []*Cable {
	e.m.Lock()
	defer e.m.Unlock()
	cables := make([]*Cable, len(e.cables))
	copy(cables, e.cables)
	return cables
}

// Clear removes all cables, param handles and modules.
func (e *Engine) Clear() {
	e.m.Lock()
	defer e.m.Unlock()
	e.clear()
}

func (e *Engine) clear() {
	for len(e.cables) > 0 {
		e.removeCable(e.cables[len(e.cables)-1])
	}
	for h := range e.handles {
		e.removeParamHandle(h)
	}
	for len(e.modules) > 0 {
		e.removeModule(e.modules[len(e.modules)-1])
	}
	e.smooth = smoothing{}
	e.nextModuleID = 0
	e.nextCableID = 0
}
