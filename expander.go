package rack

// Expander is a weak link to the logically adjacent module. Adjacent
// modules exchange messages through a double buffer: the producer writes
// into Producer of its neighbour's expander and requests a flip, the engine
// swaps Producer and Consumer before the next sample, the consumer reads
// Consumer. Buffers are allocated by the consumer module. Zero value is not
// linked to any module.
type Expander struct {
	// ModuleID is the id of adjacent module. It's NoID for unlinked
	// expanders of registered modules.
	ModuleID int64
	Producer interface{}
	Consumer interface{}

	linked        bool
	module        Module
	flipRequested bool
}

// Linked returns true if expander refers to the adjacent module.
func (x *Expander) Linked() bool {
	return x.linked
}

// Module returns the adjacent module or nil. The reference is resolved by
// engine once per block and is only valid within Process.
func (x *Expander) Module() Module {
	return x.module
}

// RequestFlip asks engine to swap message buffers before next sample.
func (x *Expander) RequestFlip() {
	x.flipRequested = true
}

// flip swaps message buffers if it was requested.
func (x *Expander) flip() {
	if !x.flipRequested {
		return
	}
	x.Producer, x.Consumer = x.Consumer, x.Producer
	x.flipRequested = false
}

func (x *Expander) link(id int64) {
	x.ModuleID = id
	x.linked = id >= 0
}

func (x *Expander) unlink() {
	x.ModuleID = NoID
	x.linked = false
	x.module = nil
}

// linksTo returns true if expander refers to the module with provided id.
func (x *Expander) linksTo(id int64) bool {
	return x.linked && x.ModuleID == id
}

// resolveExpander refreshes module reference of the expander from its id.
func (e *Engine) resolveExpander(x *Expander) {
	if !x.linked || x.ModuleID < 0 {
		x.module = nil
		return
	}
	if x.module == nil || x.module.Core().ID != x.ModuleID {
		if m, ok := e.moduleIndex[x.ModuleID]; ok {
			x.module = m
		} else {
			x.module = nil
		}
	}
}

// LinkExpanders makes left and right modules adjacent. Module references
// are resolved on the next block.
func (e *Engine) LinkExpanders(left, right Module) {
	e.m.Lock()
	defer e.m.Unlock()
	l, r := left.Core(), right.Core()
	l.RightExpander.link(r.ID)
	r.LeftExpander.link(l.ID)
}

// UnlinkExpanders removes links of module to its neighbours and their links
// back to it.
func (e *Engine) UnlinkExpanders(m Module) {
	e.m.Lock()
	defer e.m.Unlock()
	b := m.Core()
	for _, other := range e.modules {
		ob := other.Core()
		if ob.LeftExpander.linksTo(b.ID) {
			ob.LeftExpander.unlink()
		}
		if ob.RightExpander.linksTo(b.ID) {
			ob.RightExpander.unlink()
		}
	}
	b.LeftExpander.unlink()
	b.RightExpander.unlink()
}
