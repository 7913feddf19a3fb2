package rack

import (
	"fmt"
	"sync/atomic"
)

// ParamHandle lets external code refer to a module param without holding
// the module. Engine keeps the cached module reference in sync with the
// registry: it's nil while target module is not registered.
//
// Zero value is a blank handle.
type ParamHandle struct {
	Name   string
	target atomic.Pointer[handleTarget]
}

type handleTarget struct {
	moduleID int64
	paramID  int
	module   Module
}

type handleKey struct {
	moduleID int64
	paramID  int
}

// ModuleID returns id of target module or NoID if handle is blank.
func (h *ParamHandle) ModuleID() int64 {
	if t := h.target.Load(); t != nil {
		return t.moduleID
	}
	return NoID
}

// ParamID returns id of target param.
func (h *ParamHandle) ParamID() int {
	if t := h.target.Load(); t != nil {
		return t.paramID
	}
	return 0
}

// Module returns target module if it's registered.
func (h *ParamHandle) Module() Module {
	if t := h.target.Load(); t != nil {
		return t.module
	}
	return nil
}

// Param returns target param if target module is registered.
func (h *ParamHandle) Param() *Param {
	t := h.target.Load()
	if t == nil || t.module == nil {
		return nil
	}
	params := t.module.Core().Params
	if t.paramID < 0 || t.paramID >= len(params) {
		return nil
	}
	return &params[t.paramID]
}

func (h *ParamHandle) set(moduleID int64, paramID int, m Module) {
	h.target.Store(&handleTarget{moduleID: moduleID, paramID: paramID, module: m})
}

func (h *ParamHandle) setModule(m Module) {
	h.set(h.ModuleID(), h.ParamID(), m)
}

func (h *ParamHandle) reset() {
	h.set(NoID, 0, nil)
}

// AddParamHandle registers a blank handle.
func (e *Engine) AddParamHandle(h *ParamHandle) {
	e.m.Lock()
	defer e.m.Unlock()
	if h.ModuleID() >= 0 {
		panic(fmt.Errorf("%w: module %d param %d", ErrHandleNotBlank, h.ModuleID(), h.ParamID()))
	}
	if _, ok := e.handles[h]; ok {
		panic(ErrHandleExists)
	}
	e.handles[h] = struct{}{}
	e.refreshHandleCache()
}

// RemoveParamHandle unregisters handle. Module reference of the handle is
// cleared.
func (e *Engine) RemoveParamHandle(h *ParamHandle) {
	e.m.Lock()
	defer e.m.Unlock()
	e.removeParamHandle(h)
}

func (e *Engine) removeParamHandle(h *ParamHandle) {
	if _, ok := e.handles[h]; !ok {
		panic(ErrHandleNotFound)
	}
	h.setModule(nil)
	delete(e.handles, h)
	e.refreshHandleCache()
}

// ParamHandle returns handle bound to the param or nil.
func (e *Engine) ParamHandle(moduleID int64, paramID int) *ParamHandle {
	e.m.Lock()
	defer e.m.Unlock()
	return e.handleCache[handleKey{moduleID: moduleID, paramID: paramID}]
}

// UpdateParamHandle binds handle to the param. If another handle is already
// bound to it, the old handle is reset when overwrite is true, otherwise
// the new one is reset. Negative moduleID makes handle blank.
func (e *Engine) UpdateParamHandle(h *ParamHandle, moduleID int64, paramID int, overwrite bool) {
	e.m.Lock()
	defer e.m.Unlock()
	e.updateParamHandle(h, moduleID, paramID, overwrite)
}

func (e *Engine) updateParamHandle(h *ParamHandle, moduleID int64, paramID int, overwrite bool) {
	if _, ok := e.handles[h]; !ok {
		panic(ErrHandleNotFound)
	}
	if moduleID < 0 {
		h.reset()
		e.refreshHandleCache()
		return
	}

	if old, ok := e.handleCache[handleKey{moduleID: moduleID, paramID: paramID}]; ok && old != h {
		if !overwrite {
			h.reset()
			e.refreshHandleCache()
			return
		}
		old.reset()
	}
	h.set(moduleID, paramID, e.moduleIndex[moduleID])
	e.refreshHandleCache()
}

// refreshHandleCache rebuilds the (module, param) index of handles.
func (e *Engine) refreshHandleCache() {
	e.handleCache = make(map[handleKey]*ParamHandle, len(e.handles))
	for h := range e.handles {
		if id := h.ModuleID(); id >= 0 {
			e.handleCache[handleKey{moduleID: id, paramID: h.ParamID()}] = h
		}
	}
}
