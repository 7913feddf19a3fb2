package rack_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/rack"
	"pipelined.dev/rack/mock"
)

func TestJSONRoundTrip(t *testing.T) {
	e := newEngine(t, nil)
	a, g, h := mock.NewConstant(2.5), mock.NewGain(), mock.NewHooks()
	left, right := mock.NewMessenger(), mock.NewMessenger()
	h.Data = "saved"
	for _, m := range []rack.Module{a, g, h, left, right} {
		e.AddModule(m)
	}
	e.AddCable(rack.NewCable(a, 0, g, 0))
	e.AddCable(rack.NewCable(g, 0, h, 0))
	e.SetParam(g, 0, 1.75)
	e.BypassModule(h, true)
	e.LinkExpanders(left, right)

	data, err := e.ToJSON()
	assert.NoError(t, err)

	restored := newEngine(t, nil)
	assert.NoError(t, restored.FromJSON(data))
	assert.Equal(t, e.ModuleIDs(), restored.ModuleIDs())

	rg := restored.Module(g.ID).(*mock.Gain)
	assert.Equal(t, 1.75, rg.Params[0].Value())
	assert.Equal(t, mock.GainModel, rg.Model)
	assert.Equal(t, 2.5, restored.Module(a.ID).Core().Params[0].Value())

	rh := restored.Module(h.ID).(*mock.Hooks)
	assert.Equal(t, "saved", rh.Data)
	assert.True(t, rh.Bypassed())
	assert.Contains(t, rh.Events(), "bypass")

	rl := restored.Module(left.ID).Core()
	assert.Equal(t, right.ID, rl.RightExpander.ModuleID)

	cables := restored.Cables()
	assert.Len(t, cables, 2)
	for i, c := range e.Cables() {
		assert.Equal(t, *c, *cables[i])
	}
	assert.True(t, rg.Inputs[0].IsConnected())

	// serialized form is stable
	again, err := restored.ToJSON()
	assert.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestJSONFormat(t *testing.T) {
	e := newEngine(t, nil)
	a, g := mock.NewConstant(1), mock.NewGain()
	e.AddModule(a)
	e.AddModule(g)
	e.AddCable(rack.NewCable(a, 0, g, 0))

	data, err := e.ToJSON()
	assert.NoError(t, err)
	assert.JSONEq(t, `{
		"version": "1.0.0",
		"modules": [
			{"id": 0, "model": "mock.constant", "params": [{"id": 0, "value": 1}]},
			{"id": 1, "model": "mock.gain", "params": [{"id": 0, "value": 1}]}
		],
		"cables": [
			{"id": 0, "outputModuleId": 0, "outputId": 0, "inputModuleId": 1, "inputId": 0}
		]
	}`, string(data))
}

func TestJSONLegacy(t *testing.T) {
	e := newEngine(t, nil)
	err := e.FromJSON([]byte(`{
		"version": "0.6.2",
		"modules": [
			{"id": 7, "model": "mock.constant", "params": [{"paramId": 0, "value": 4}]},
			{"model": "mock.hooks", "disabled": true, "data": {"data": "old"}}
		],
		"wires": [
			{"outputModuleId": 0, "outputId": 0, "inputModuleId": 1, "inputId": 0}
		]
	}`))
	assert.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, e.ModuleIDs())
	assert.Equal(t, 4.0, e.Module(0).Core().Params[0].Value())

	h := e.Module(1).(*mock.Hooks)
	assert.True(t, h.Bypassed())
	assert.Equal(t, "old", h.Data)
	assert.Len(t, e.Cables(), 1)
	assert.True(t, h.Inputs[0].IsConnected())
}

func TestJSONPartialLoad(t *testing.T) {
	e := newEngine(t, nil)
	existing := mock.NewCounter()
	existing.ID = 3
	e.AddModule(existing)

	err := e.FromJSON([]byte(`{
		"version": "1.0.0",
		"modules": [
			{"id": 0, "model": "mock.constant"},
			{"id": 1, "model": "unknown.model"},
			{"id": 2, "model": "mock.hooks", "data": "not an object"},
			{"id": 3, "model": "mock.gain"},
			{"id": 4, "model": "mock.gain", "params": [{"id": 9, "value": 1}]},
			42
		],
		"cables": [
			{"id": 0, "outputModuleId": 0, "outputId": 0, "inputModuleId": 4, "inputId": 0},
			{"id": 1, "outputModuleId": 1, "outputId": 0, "inputModuleId": 3, "inputId": 0},
			{"id": 2, "outputModuleId": 0, "outputId": 0, "inputModuleId": 4, "inputId": 0},
			{"id": 3, "outputModuleId": 0, "outputId": 5, "inputModuleId": 3, "inputId": 0},
			{"id": 4},
			{"id": 5, "outputModuleId": 0, "outputId": 0, "inputModuleId": 3},
			"cable"
		]
	}`))
	assert.Error(t, err)
	var loadErrors rack.LoadErrors
	assert.ErrorAs(t, err, &loadErrors)
	assert.Len(t, loadErrors, 10)
	assert.ErrorIs(t, err, rack.ErrUnknownModel)
	assert.ErrorIs(t, err, rack.ErrDuplicateID)
	assert.ErrorIs(t, err, rack.ErrModuleNotFound)
	assert.ErrorIs(t, err, rack.ErrInputOccupied)
	assert.ErrorIs(t, err, rack.ErrPortRange)
	assert.ErrorIs(t, err, rack.ErrMissingEndpoint)

	assert.Equal(t, []int64{3, 0, 4}, e.ModuleIDs())
	assert.Len(t, e.Cables(), 1)
}

func TestJSONCableWithoutEndpoints(t *testing.T) {
	e := newEngine(t, nil)
	err := e.FromJSON([]byte(`{
		"modules": [{"id": 0, "model": "mock.gain"}],
		"cables": [{"id": 5}]
	}`))
	assert.ErrorIs(t, err, rack.ErrMissingEndpoint)
	assert.Empty(t, e.Cables())
	g := e.Module(0).(*mock.Gain)
	assert.False(t, g.Inputs[0].IsConnected())
	assert.False(t, g.Outputs[0].IsConnected())
}

func TestJSONInvalid(t *testing.T) {
	e := newEngine(t, nil)
	for _, data := range []string{"", "[", "[]", `"patch"`} {
		err := e.FromJSON([]byte(data))
		assert.ErrorIs(t, err, rack.ErrInvalidPatch, data)
	}
	assert.NoError(t, e.FromJSON([]byte(`{}`)))
	assert.Empty(t, e.Modules())
}

func TestJSONDataError(t *testing.T) {
	e := newEngine(t, nil)
	e.AddModule(&failingData{Hooks: mock.NewHooks()})
	_, err := e.ToJSON()
	assert.ErrorIs(t, err, errData)
}

var errData = errors.New("data error")

type failingData struct {
	*mock.Hooks
}

func (f *failingData) DataToJSON() (json.RawMessage, error) {
	return nil, errData
}
