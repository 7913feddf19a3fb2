package rack

import (
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"pipelined.dev/rack/internal/execution"
	"pipelined.dev/rack/log"
	"pipelined.dev/rack/metric"
	"pipelined.dev/rack/settings"
)

// Engine owns the graph of modules and cables and advances it sample by
// sample. All registry methods and Step are serialized by a single lock,
// Step holds it for the whole block.
type Engine struct {
	uid      string
	m        sync.Mutex
	log      logrus.FieldLogger
	settings *settings.Store
	metric   *metric.Metric
	catalog  *Catalog
	rand     *rand.Rand
	pin      bool

	modules     []Module
	moduleIndex map[int64]Module
	cables      []*Cable
	cableIndex  map[int64]*Cable
	wires       []wire
	handles     map[*ParamHandle]struct{}
	handleCache map[handleKey]*ParamHandle
	meters      map[int64]*metric.Meter

	nextModuleID int64
	nextCableID  int64
	primary      Module
	smooth       smoothing

	sampleRate float64
	sampleTime float64
	cpuMeter   bool
	args       ProcessArgs
	pool       *execution.Pool
	nextModule atomic.Int64

	paused     atomic.Bool
	frame      atomic.Int64
	block      atomic.Int64
	blockFrame atomic.Int64
	blockTime  atomic.Int64
}

// Option provides a way to set functional parameters to engine.
type Option func(e *Engine) error

// New creates a new engine and applies provided options. Engine reads
// settings.Default if no settings store is provided.
func New(options ...Option) (*Engine, error) {
	e := &Engine{
		uid:         xid.New().String(),
		settings:    settings.Default(),
		pin:         true,
		moduleIndex: make(map[int64]Module),
		cableIndex:  make(map[int64]*Cable),
		handles:     make(map[*ParamHandle]struct{}),
		handleCache: make(map[handleKey]*ParamHandle),
		meters:      make(map[int64]*metric.Meter),
	}
	e.log = log.GetLogger().WithField("engine", e.uid)
	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}
	if e.rand == nil {
		e.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.catalog == nil {
		e.catalog = NewCatalog()
	}
	e.setSampleRate(e.settings.SampleRate())
	e.pool = execution.NewPool(e.stepModules, e.pin)
	return e, nil
}

// WithLogger sets logger to engine.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Engine) error {
		e.log = logger.WithField("engine", e.uid)
		return nil
	}
}

// WithSettings sets settings store that engine reads every block.
func WithSettings(s *settings.Store) Option {
	return func(e *Engine) error {
		e.settings = s
		return nil
	}
}

// WithMetric adds meters for all modules of the engine.
func WithMetric(m *metric.Metric) Option {
	return func(e *Engine) error {
		e.metric = m
		return nil
	}
}

// WithCatalog sets catalog used to create modules from JSON.
func WithCatalog(c *Catalog) Option {
	return func(e *Engine) error {
		e.catalog = c
		return nil
	}
}

// WithSeed sets seed of random source used to randomize params.
func WithSeed(seed int64) Option {
	return func(e *Engine) error {
		e.rand = rand.New(rand.NewSource(seed))
		return nil
	}
}

// WithPinning enables or disables binding of worker goroutines to OS
// threads and CPUs. Pinning is enabled by default.
func WithPinning(pin bool) Option {
	return func(e *Engine) error {
		e.pin = pin
		return nil
	}
}

// UID returns unique id of engine instance.
func (e *Engine) UID() string {
	return e.uid
}

// Close stops worker goroutines. Engine can still be stepped after close,
// workers are launched again on the next block.
func (e *Engine) Close() error {
	e.m.Lock()
	defer e.m.Unlock()
	return e.pool.Close()
}

// SetPaused pauses or resumes processing. Frame counters keep advancing
// while paused.
func (e *Engine) SetPaused(paused bool) {
	e.paused.Store(paused)
}

// Paused returns true if engine is paused.
func (e *Engine) Paused() bool {
	return e.paused.Load()
}

// SampleRate returns current sample rate.
func (e *Engine) SampleRate() float64 {
	e.m.Lock()
	defer e.m.Unlock()
	return e.sampleRate
}

// SampleTime returns duration of a single sample in seconds.
func (e *Engine) SampleTime() float64 {
	e.m.Lock()
	defer e.m.Unlock()
	return e.sampleTime
}

// Frame returns number of samples engine advanced since creation.
func (e *Engine) Frame() int64 {
	return e.frame.Load()
}

// Block returns number of completed Step calls.
func (e *Engine) Block() int64 {
	return e.block.Load()
}

// BlockFrame returns frame at the start of the latest block.
func (e *Engine) BlockFrame() int64 {
	return e.blockFrame.Load()
}

// BlockTime returns wall time at the start of the latest block.
func (e *Engine) BlockTime() time.Time {
	return time.Unix(0, e.blockTime.Load())
}

// SetPrimaryModule sets module that drives the engine, for example an audio
// interface module. Nil unsets it.
func (e *Engine) SetPrimaryModule(m Module) {
	e.m.Lock()
	defer e.m.Unlock()
	e.primary = m
}

// PrimaryModule returns module that drives the engine.
func (e *Engine) PrimaryModule() Module {
	e.m.Lock()
	defer e.m.Unlock()
	return e.primary
}

func (e *Engine) setSampleRate(sampleRate float64) {
	e.sampleRate = sampleRate
	e.sampleTime = 1 / sampleRate
}

func (e *Engine) addMeter(b *Base) {
	if e.metric == nil {
		return
	}
	e.meters[b.ID] = e.metric.Meter(strconv.FormatInt(b.ID, 10), e.sampleRate)
}

func (e *Engine) removeMeter(b *Base) {
	if e.metric == nil {
		return
	}
	delete(e.meters, b.ID)
	e.metric.Remove(strconv.FormatInt(b.ID, 10))
}
