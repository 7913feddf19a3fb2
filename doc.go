/*
Package rack allows to build and execute modular signal processing graphs.

Concept

A rack is a set of modules connected with cables. Every module has params,
inputs and outputs. Cables carry polyphonic voltages from outputs to inputs
and every input accepts at most one cable. Output can feed any number of
inputs.

Engine advances the graph sample by sample. On every sample it:

    moves smoothed param one step closer to its target;
    copies voltages of every cable from output to input;
    swaps expander message buffers if it was requested;
    processes every module exactly once;
    updates port lights every 8 samples.

Cable values are delivered before modules are processed, so the signal
reaches the input one sample after it was written to the output.

Modules

Modules embed Base and implement Process:

    type Gain struct {
        rack.Base
    }

    func NewGain() *Gain {
        g := &Gain{}
        g.Config(1, 1, 1)
        g.ConfigParam(0, 0, 2, 1, "Gain")
        return g
    }

    func (g *Gain) Process(args rack.ProcessArgs) {
        v := g.Inputs[0].Voltage(0) * g.Params[0].Value()
        g.Outputs[0].SetVoltage(v, 0)
    }

Modules can implement optional interfaces to be notified about registry
events, for example PortChanger or SampleRateChanger. Hooks are called while
engine holds its lock and must not call the engine.

Execution

Modules of a single sample are processed in parallel by a pool of goroutines
synchronized with barriers. Number of goroutines is taken from settings on
every Step:

    e, err := rack.New(rack.WithSettings(s))
    ...
    e.AddModule(osc)
    e.AddModule(gain)
    e.AddCable(rack.NewCable(osc, 0, gain, 0))
    e.Step(512)

Patches

Modules and cables are serialized with ToJSON and restored with FromJSON.
Modules are created by their model slug from the catalog provided with
WithCatalog option.
*/
package rack
