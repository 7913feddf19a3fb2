package main

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"

	"pipelined.dev/rack"
	"pipelined.dev/rack/log"
	"pipelined.dev/rack/metric"
	"pipelined.dev/rack/settings"
)

// loadEngine creates engine with settings from file and environment and
// loads the patch into it. Partially loaded patch is not an error.
func loadEngine(patchPath, settingsPath string, threads int) (*rack.Engine, *metric.Metric, error) {
	l := log.GetLogger()
	s := settings.New()
	if settingsPath != "" {
		if err := s.Load(settingsPath); err != nil {
			return nil, nil, err
		}
	}
	if err := s.FromEnv(); err != nil {
		return nil, nil, err
	}
	if threads > 0 {
		s.SetThreadCount(threads)
	}

	data, err := os.ReadFile(patchPath)
	if err != nil {
		return nil, nil, err
	}

	m := &metric.Metric{}
	e, err := rack.New(
		rack.WithSettings(s),
		rack.WithLogger(l),
		rack.WithCatalog(newCatalog()),
		rack.WithMetric(m),
	)
	if err != nil {
		return nil, nil, err
	}
	if err := e.FromJSON(data); err != nil {
		var loadErrors rack.LoadErrors
		if !errors.As(err, &loadErrors) {
			e.Close()
			return nil, nil, err
		}
		l.WithField("skipped", len(loadErrors)).Warn("patch loaded partially")
	}
	return e, m, nil
}

// logMetrics prints collected module metrics at debug level.
func logMetrics(m *metric.Metric) {
	l := log.GetLogger()
	for id, counters := range m.Measure() {
		l.WithField("module", id).WithFields(logrus.Fields(counters)).Debug("module metrics")
	}
}
