package observability

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/riskibarqy/odds-ledger/internal/config"
	"github.com/riskibarqy/odds-ledger/internal/platform/logging"
)

// Telemetry owns the process-wide tracing and profiling exporters.
type Telemetry struct {
	logger          *logging.Logger
	shutdownTracing func(context.Context) error
	stopProfiler    func() error
	pprofServer     *http.Server
}

// Start brings up tracing, continuous profiling and the pprof listener in
// that order. A failure stops whatever already started.
func Start(cfg config.Config, logger *logging.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = logging.Default()
	}
	t := &Telemetry{
		logger:          logger,
		shutdownTracing: func(context.Context) error { return nil },
		stopProfiler:    func() error { return nil },
	}

	shutdownTracing, err := InitUptrace(cfg, logger)
	if err != nil {
		return nil, errors.Wrap(err, "init tracing")
	}
	t.shutdownTracing = shutdownTracing

	stopProfiler, err := InitPyroscope(cfg, logger)
	if err != nil {
		_ = t.Shutdown(context.Background())
		return nil, errors.Wrap(err, "init profiling")
	}
	t.stopProfiler = stopProfiler

	pprofServer, err := StartPprofServer(cfg, logger)
	if err != nil {
		_ = t.Shutdown(context.Background())
		return nil, errors.Wrap(err, "start pprof")
	}
	t.pprofServer = pprofServer

	return t, nil
}

// Shutdown stops everything in reverse start order and flushes pending
// spans last so shutdown work is still traced.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	var combined error
	if err := StopPprofServer(ctx, t.pprofServer, t.logger); err != nil {
		combined = errors.CombineErrors(combined, err)
	}
	if err := t.stopProfiler(); err != nil {
		combined = errors.CombineErrors(combined, errors.Wrap(err, "stop profiler"))
	}
	if err := t.shutdownTracing(ctx); err != nil {
		combined = errors.CombineErrors(combined, errors.Wrap(err, "flush traces"))
	}
	return combined
}
