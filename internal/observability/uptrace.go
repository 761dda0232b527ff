package observability

import (
	"context"
	"strings"

	"github.com/riskibarqy/odds-ledger/internal/config"
	"github.com/riskibarqy/odds-ledger/internal/platform/logging"
	"github.com/uptrace/uptrace-go/uptrace"
	"go.opentelemetry.io/otel/attribute"
)

// InitUptrace exports ingestion, normalization and scoring spans to Uptrace.
// The returned func flushes pending spans.
func InitUptrace(cfg config.Config, logger *logging.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = logging.Default()
	}

	if reason := tracingDisabledReason(cfg); reason != "" {
		logger.Info("tracing disabled", "reason", reason)
		return func(context.Context) error { return nil }, nil
	}

	uptrace.ConfigureOpentelemetry(uptraceOptions(cfg)...)

	logger.Info("tracing enabled",
		"exporter", "uptrace",
		"service_name", cfg.ServiceName,
		"service_version", cfg.ServiceVersion,
		"environment", cfg.AppEnv,
		"storage", cfg.StorageDriver,
	)
	return uptrace.Shutdown, nil
}

func tracingDisabledReason(cfg config.Config) string {
	switch {
	case !cfg.UptraceEnabled:
		return "UPTRACE_ENABLED=false"
	case strings.TrimSpace(cfg.UptraceDSN) == "":
		return "UPTRACE_DSN empty"
	default:
		return ""
	}
}

// ledgerAttributes tag every span with the settings that change how odds
// are matched and stored, so traces from differently tuned deployments
// can be told apart.
func ledgerAttributes(cfg config.Config) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("ledger.storage_driver", cfg.StorageDriver),
		attribute.Bool("ledger.cache_enabled", cfg.CacheEnabled),
		attribute.Int("ledger.ingest_workers", cfg.IngestWorkers),
		attribute.Int64("ledger.game_match_tolerance_seconds", int64(cfg.GameMatchTolerance.Seconds())),
	}
}

func uptraceOptions(cfg config.Config) []uptrace.Option {
	return []uptrace.Option{
		uptrace.WithDSN(cfg.UptraceDSN),
		uptrace.WithServiceName(cfg.ServiceName),
		uptrace.WithServiceVersion(cfg.ServiceVersion),
		uptrace.WithDeploymentEnvironment(cfg.AppEnv),
		uptrace.WithResourceAttributes(ledgerAttributes(cfg)...),
	}
}
