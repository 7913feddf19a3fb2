// Package settings provides the process-wide configuration store consumed
// by rack engines. Values are kept in atomics: the audio goroutine reads them
// once per block without locking while UI code changes them at any time.
package settings

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"sync/atomic"

	"gopkg.in/yaml.v2"
)

const (
	// DefaultSampleRate is used when no sample rate is configured.
	DefaultSampleRate = 44100.0
	// DefaultThreadCount is used when no thread count is configured.
	DefaultThreadCount = 1
)

// Environment variables that override stored settings.
const (
	EnvSampleRate = "RACK_SAMPLE_RATE"
	EnvThreads    = "RACK_THREADS"
	EnvCPUMeter   = "RACK_CPU_METER"
)

// Store holds engine settings.
type Store struct {
	sampleRate  atomic.Uint64
	threadCount atomic.Int32
	cpuMeter    atomic.Bool
}

// File is the YAML representation of settings.
type File struct {
	SampleRate  float64 `yaml:"sampleRate"`
	ThreadCount int     `yaml:"threadCount"`
	CPUMeter    bool    `yaml:"cpuMeter"`
}

var defaultStore = New()

// Default returns the process-wide store.
func Default() *Store {
	return defaultStore
}

// New returns a store with default values.
func New() *Store {
	s := &Store{}
	s.SetSampleRate(DefaultSampleRate)
	s.SetThreadCount(DefaultThreadCount)
	return s
}

// SampleRate returns configured sample rate.
func (s *Store) SampleRate() float64 {
	return math.Float64frombits(s.sampleRate.Load())
}

// SetSampleRate sets sample rate. Non-positive values are ignored.
func (s *Store) SetSampleRate(sampleRate float64) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return
	}
	s.sampleRate.Store(math.Float64bits(sampleRate))
}

// ThreadCount returns configured number of engine threads.
func (s *Store) ThreadCount() int {
	return int(s.threadCount.Load())
}

// SetThreadCount sets number of engine threads. Values below one are
// treated as one.
func (s *Store) SetThreadCount(threads int) {
	if threads < 1 {
		threads = 1
	}
	s.threadCount.Store(int32(threads))
}

// CPUMeter returns true if modules' CPU time should be measured.
func (s *Store) CPUMeter() bool {
	return s.cpuMeter.Load()
}

// SetCPUMeter enables or disables CPU metering.
func (s *Store) SetCPUMeter(enabled bool) {
	s.cpuMeter.Store(enabled)
}

// Apply copies values of settings file into the store. Zero values of the
// file are ignored.
func (s *Store) Apply(f File) {
	if f.SampleRate > 0 {
		s.SetSampleRate(f.SampleRate)
	}
	if f.ThreadCount > 0 {
		s.SetThreadCount(f.ThreadCount)
	}
	s.SetCPUMeter(f.CPUMeter)
}

// File returns current values of the store.
func (s *Store) File() File {
	return File{
		SampleRate:  s.SampleRate(),
		ThreadCount: s.ThreadCount(),
		CPUMeter:    s.CPUMeter(),
	}
}

// FromEnv applies overrides from environment variables.
func (s *Store) FromEnv() error {
	if v, ok := os.LookupEnv(EnvSampleRate); ok {
		sampleRate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSampleRate, err)
		}
		s.SetSampleRate(sampleRate)
	}
	if v, ok := os.LookupEnv(EnvThreads); ok {
		threads, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvThreads, err)
		}
		s.SetThreadCount(threads)
	}
	if v, ok := os.LookupEnv(EnvCPUMeter); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCPUMeter, err)
		}
		s.SetCPUMeter(enabled)
	}
	return nil
}

// Load reads YAML settings file into the store.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("settings %s: %w", path, err)
	}
	s.Apply(f)
	return nil
}

// Save writes current settings to YAML file.
func (s *Store) Save(path string) error {
	data, err := yaml.Marshal(s.File())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
