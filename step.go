package rack

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// portDivider is the number of samples between port light updates.
	portDivider = 8
	// cpuTau is the time constant of CPU meter smoothing, seconds.
	cpuTau = 2.0
)

// Step advances the engine by frames samples. Block housekeeping happens
// once: sample rate changes are applied, expanders are resolved and workers
// are relaunched if thread count changed. While engine is paused, no
// processing happens but frame counter still advances. Negative frames
// are treated as zero.
func (e *Engine) Step(frames int) {
	e.m.Lock()
	defer e.m.Unlock()
	if frames < 0 {
		frames = 0
	}

	e.blockFrame.Store(e.frame.Load())
	e.blockTime.Store(time.Now().UnixNano())

	e.updateSampleRate()
	for _, m := range e.modules {
		b := m.Core()
		e.resolveExpander(&b.LeftExpander)
		e.resolveExpander(&b.RightExpander)
	}

	paused := e.paused.Load()
	threads := e.settings.ThreadCount()
	if paused {
		threads = 1
	}
	if threads != e.pool.Threads() {
		e.relaunchWorkers(threads)
	}

	if paused {
		e.frame.Add(int64(frames))
	} else {
		e.cpuMeter = e.settings.CPUMeter()
		e.args.SampleRate = e.sampleRate
		e.args.SampleTime = e.sampleTime
		for i := 0; i < frames; i++ {
			e.stepFrame()
		}
		e.updateMeters(frames)
	}

	e.pool.Yield()
	e.block.Add(1)
}

// stepFrame advances engine by a single sample.
func (e *Engine) stepFrame() {
	frame := e.frame.Load()
	e.stepSmoothing()

	for _, w := range e.wires {
		w.in.Receive(w.out)
	}

	for _, m := range e.modules {
		b := m.Core()
		b.LeftExpander.flip()
		b.RightExpander.flip()
	}

	e.args.Frame = frame
	e.nextModule.Store(0)
	e.pool.Step()

	if frame%portDivider == 0 {
		portTime := e.sampleTime * portDivider
		for _, m := range e.modules {
			b := m.Core()
			for i := range b.Inputs {
				b.Inputs[i].Update(portTime)
			}
			for i := range b.Outputs {
				b.Outputs[i].Update(portTime)
			}
		}
	}
	e.frame.Add(1)
}

// stepModules is executed by every goroutine of the pool. Modules are
// claimed one by one from the shared counter until all are processed.
func (e *Engine) stepModules(int) {
	args := e.args
	modules := e.modules
	for {
		i := int(e.nextModule.Add(1)) - 1
		if i >= len(modules) {
			return
		}
		m := modules[i]
		if !e.cpuMeter {
			processModule(m, args)
			continue
		}
		start := time.Now()
		processModule(m, args)
		m.Core().measureCPU(time.Since(start).Seconds(), args.SampleTime)
	}
}

func processModule(m Module, args ProcessArgs) {
	b := m.Core()
	if !b.bypassed {
		m.Process(args)
		return
	}
	if bp, ok := m.(Bypasser); ok {
		bp.ProcessBypass(args)
		return
	}
	b.clearOutputs()
}

// updateSampleRate applies sample rate from settings and notifies modules
// if it changed.
func (e *Engine) updateSampleRate() {
	sampleRate := e.settings.SampleRate()
	if sampleRate == e.sampleRate {
		return
	}
	e.setSampleRate(sampleRate)
	e.log.WithField("sampleRate", sampleRate).Info("sample rate changed")
	event := SampleRateChangeEvent{
		SampleRate: e.sampleRate,
		SampleTime: e.sampleTime,
	}
	for _, m := range e.modules {
		if src, ok := m.(SampleRateChanger); ok {
			src.OnSampleRateChange(event)
		}
	}
	for _, meter := range e.meters {
		meter.SetSampleRate(sampleRate)
	}
}

// relaunchWorkers stops all workers and starts threads-1 new ones.
func (e *Engine) relaunchWorkers(threads int) {
	l := e.log.WithFields(logrus.Fields{"from": e.pool.Threads(), "to": threads})
	if err := e.pool.Resize(threads); err != nil {
		l.WithError(err).Warn("workers failed to setup threads")
	}
	l.Debug("workers relaunched")
}

// updateMeters captures block metrics of every module.
func (e *Engine) updateMeters(frames int) {
	if e.metric == nil {
		return
	}
	for _, m := range e.modules {
		b := m.Core()
		e.meters[b.ID].Block(int64(frames)).CPU(b.CPUTime() * e.sampleRate)
	}
}
