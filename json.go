package rack

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PatchVersion is the version of patch format written by engine.
const PatchVersion = "1.0.0"

// legacyVersion is the first version that stores module ids. Older patches
// use position of module in the list as its id.
var legacyVersion = [3]int{1, 0, 0}

type (
	patchJSON struct {
		Version string            `json:"version,omitempty"`
		Modules []json.RawMessage `json:"modules"`
		Cables  []json.RawMessage `json:"cables"`
		// Wires is the legacy name of cables.
		Wires []json.RawMessage `json:"wires,omitempty"`
	}

	moduleJSON struct {
		ID            *int64          `json:"id,omitempty"`
		Model         string          `json:"model"`
		Params        []paramJSON     `json:"params,omitempty"`
		Bypass        bool            `json:"bypass,omitempty"`
		Disabled      bool            `json:"disabled,omitempty"`
		LeftModuleID  *int64          `json:"leftModuleId,omitempty"`
		RightModuleID *int64          `json:"rightModuleId,omitempty"`
		Data          json.RawMessage `json:"data,omitempty"`
	}

	paramJSON struct {
		ID      *int    `json:"id,omitempty"`
		ParamID *int    `json:"paramId,omitempty"`
		Value   float64 `json:"value"`
	}

	cableJSON struct {
		ID             *int64 `json:"id,omitempty"`
		OutputModuleID *int64 `json:"outputModuleId"`
		OutputID       *int   `json:"outputId"`
		InputModuleID  *int64 `json:"inputModuleId"`
		InputID        *int   `json:"inputId"`
	}
)

// ToJSON serializes modules and cables of engine.
func (e *Engine) ToJSON() ([]byte, error) {
	e.m.Lock()
	defer e.m.Unlock()

	p := patchJSON{
		Version: PatchVersion,
		Modules: make([]json.RawMessage, 0, len(e.modules)),
		Cables:  make([]json.RawMessage, 0, len(e.cables)),
	}
	for _, m := range e.modules {
		data, err := moduleToJSON(m)
		if err != nil {
			return nil, fmt.Errorf("module %d: %w", m.Core().ID, err)
		}
		p.Modules = append(p.Modules, data)
	}
	for _, c := range e.cables {
		c := *c
		data, err := json.Marshal(cableJSON{
			ID:             &c.ID,
			OutputModuleID: &c.OutputModuleID,
			OutputID:       &c.OutputID,
			InputModuleID:  &c.InputModuleID,
			InputID:        &c.InputID,
		})
		if err != nil {
			return nil, fmt.Errorf("cable %d: %w", c.ID, err)
		}
		p.Cables = append(p.Cables, data)
	}
	return json.Marshal(p)
}

func moduleToJSON(m Module) (json.RawMessage, error) {
	b := m.Core()
	id := b.ID
	mj := moduleJSON{
		ID:     &id,
		Model:  b.Model,
		Params: make([]paramJSON, 0, len(b.Params)),
		Bypass: b.bypassed,
	}
	for i := range b.Params {
		paramID := i
		mj.Params = append(mj.Params, paramJSON{ID: &paramID, Value: b.Params[i].Value()})
	}
	if left := b.LeftExpander.ModuleID; b.LeftExpander.linked {
		mj.LeftModuleID = &left
	}
	if right := b.RightExpander.ModuleID; b.RightExpander.linked {
		mj.RightModuleID = &right
	}
	if dm, ok := m.(DataMarshaler); ok {
		data, err := dm.DataToJSON()
		if err != nil {
			return nil, err
		}
		mj.Data = data
	}
	return json.Marshal(mj)
}

// FromJSON adds modules and cables of serialized patch to engine. Entries
// that can't be loaded are skipped and logged: the rest of patch is still
// loaded and LoadErrors describing skipped entries is returned. Missing
// modules or cables list means there is nothing to load. Error wrapping
// ErrInvalidPatch is returned if data is not a patch at all.
func (e *Engine) FromJSON(data []byte) error {
	var p patchJSON
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	e.m.Lock()
	defer e.m.Unlock()

	var errs LoadErrors
	legacy := isLegacy(p.Version)
	for i, raw := range p.Modules {
		m, err := e.moduleFromJSON(raw)
		if err != nil {
			errs = append(errs, e.skip("module", i, err))
			continue
		}
		if legacy {
			m.Core().ID = int64(i)
		}
		if err := e.checkModule(m); err != nil {
			errs = append(errs, e.skip("module", i, err))
			continue
		}
		e.addModule(m)
		if m.Core().bypassed {
			// bypass flag was set by json, apply it through engine
			m.Core().bypassed = false
			e.bypassModule(m, true)
		}
	}

	cables := p.Cables
	if cables == nil {
		cables = p.Wires
	}
	for i, raw := range cables {
		var cj cableJSON
		if err := json.Unmarshal(raw, &cj); err != nil {
			errs = append(errs, e.skip("cable", i, err))
			continue
		}
		if cj.OutputModuleID == nil || cj.OutputID == nil || cj.InputModuleID == nil || cj.InputID == nil {
			errs = append(errs, e.skip("cable", i, ErrMissingEndpoint))
			continue
		}
		c := &Cable{
			ID:             NoID,
			OutputModuleID: *cj.OutputModuleID,
			OutputID:       *cj.OutputID,
			InputModuleID:  *cj.InputModuleID,
			InputID:        *cj.InputID,
		}
		if cj.ID != nil {
			c.ID = *cj.ID
		}
		outputWasConnected, err := e.checkCable(c)
		if err != nil {
			errs = append(errs, e.skip("cable", i, err))
			continue
		}
		e.addCable(c, outputWasConnected)
	}
	return errs.ret()
}

// moduleFromJSON creates module from catalog and restores its state.
func (e *Engine) moduleFromJSON(raw json.RawMessage) (Module, error) {
	var mj moduleJSON
	if err := json.Unmarshal(raw, &mj); err != nil {
		return nil, err
	}
	m, err := e.catalog.Create(mj.Model)
	if err != nil {
		return nil, err
	}
	b := m.Core()
	if mj.ID != nil {
		b.ID = *mj.ID
	}
	for i, pj := range mj.Params {
		paramID := i
		if pj.ID != nil {
			paramID = *pj.ID
		} else if pj.ParamID != nil {
			paramID = *pj.ParamID
		}
		if paramID >= 0 && paramID < len(b.Params) {
			b.Params[paramID].SetValue(pj.Value)
		}
	}
	b.bypassed = mj.Bypass || mj.Disabled
	if mj.LeftModuleID != nil {
		b.LeftExpander.link(*mj.LeftModuleID)
	}
	if mj.RightModuleID != nil {
		b.RightExpander.link(*mj.RightModuleID)
	}
	if len(mj.Data) > 0 {
		if dm, ok := m.(DataMarshaler); ok {
			if err := dm.DataFromJSON(mj.Data); err != nil {
				return nil, fmt.Errorf("data of %q: %w", mj.Model, err)
			}
		}
	}
	return m, nil
}

// skip logs skipped patch entry and returns wrapped error.
func (e *Engine) skip(entry string, i int, err error) error {
	err = fmt.Errorf("%s %d: %w", entry, i, err)
	e.log.WithError(err).Warn("patch entry skipped")
	return err
}

// isLegacy returns true if patch version predates module ids. Empty or
// malformed versions are treated as current.
func isLegacy(version string) bool {
	if version == "" {
		return false
	}
	var v [3]int
	parts := strings.SplitN(version, ".", 3)
	for i, part := range parts {
		// trim suffixes like "1.0.0-beta"
		if j := strings.IndexFunc(part, func(r rune) bool { return r < '0' || r > '9' }); j >= 0 {
			part = part[:j]
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return false
		}
		v[i] = n
	}
	for i := range v {
		if v[i] != legacyVersion[i] {
			return v[i] < legacyVersion[i]
		}
	}
	return false
}
