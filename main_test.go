package rack_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"pipelined.dev/rack"
	"pipelined.dev/rack/log"
	"pipelined.dev/rack/mock"
	"pipelined.dev/rack/settings"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newEngine returns engine with isolated settings and mock catalog. Engine
// is closed when test is done.
func newEngine(t *testing.T, s *settings.Store, options ...rack.Option) *rack.Engine {
	t.Helper()
	if s == nil {
		s = settings.New()
	}
	options = append([]rack.Option{
		rack.WithSettings(s),
		rack.WithLogger(log.Silent()),
		rack.WithCatalog(mock.Catalog()),
		rack.WithPinning(false),
		rack.WithSeed(1),
	}, options...)
	e, err := rack.New(options...)
	assert.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, e.Close())
	})
	return e
}

// assertPanicsWith checks that fn panics with error wrapping target.
func assertPanicsWith(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if !assert.NotNil(t, r, "expected panic with %v", target) {
			return
		}
		err, ok := r.(error)
		if assert.True(t, ok, "panic value is not an error: %v", r) {
			assert.ErrorIs(t, err, target)
		}
	}()
	fn()
}
