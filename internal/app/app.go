package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/odds-ledger/internal/config"
	"github.com/riskibarqy/odds-ledger/internal/domain/accuracy"
	"github.com/riskibarqy/odds-ledger/internal/domain/game"
	"github.com/riskibarqy/odds-ledger/internal/domain/market"
	"github.com/riskibarqy/odds-ledger/internal/domain/platform"
	"github.com/riskibarqy/odds-ledger/internal/domain/team"
	cacherepo "github.com/riskibarqy/odds-ledger/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/odds-ledger/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/odds-ledger/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/odds-ledger/internal/interfaces/httpapi"
	basecache "github.com/riskibarqy/odds-ledger/internal/platform/cache"
	idgen "github.com/riskibarqy/odds-ledger/internal/platform/id"
	"github.com/riskibarqy/odds-ledger/internal/platform/logging"
	"github.com/riskibarqy/odds-ledger/internal/platform/resilience"
	"github.com/riskibarqy/odds-ledger/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

const (
	dependencyPingTimeout = 5 * time.Second
	cacheNamespace        = "odds-ledger"
)

type repositories struct {
	teams     team.Repository
	games     game.Repository
	platforms platform.Repository
	markets   market.Repository
	accuracy  accuracy.Repository
}

type closer func(context.Context) error

// NewHTTPServer wires storage, caches and services behind the HTTP router.
// The returned cleanup releases database and cache connections.
func NewHTTPServer(ctx context.Context, cfg config.Config, logger *logging.Logger) (*http.Server, func(context.Context) error, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	directory, err := team.NewReferenceDirectory()
	if err != nil {
		return nil, nil, fmt.Errorf("load reference teams: %w", err)
	}
	matcher := team.NewMatcher(directory)

	var closers []closer
	cleanup := func(ctx context.Context) error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	repos, closeStorage, err := openStorage(ctx, cfg, directory, logger)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, closeStorage)

	jsonStore, closeCache := openJSONStore(ctx, cfg, logger)
	closers = append(closers, closeCache)

	teamRepo, platformRepo := repos.teams, repos.platforms
	if cfg.CacheEnabled {
		local := basecache.NewStore(cfg.CacheTTL)
		teamRepo = cacherepo.NewTeamRepository(teamRepo, local)
		platformRepo = cacherepo.NewPlatformRepository(platformRepo, local)
	}

	ids := idgen.NewUUIDGenerator()
	window := game.MatchWindow{Tolerance: cfg.GameMatchTolerance, Ceiling: cfg.GameMatchCeiling}

	accuracySvc := usecase.NewAccuracyService(platformRepo, repos.accuracy, jsonStore, cfg.ScoringMinSamples)
	resolver := usecase.NewGameResolver(matcher, repos.games, window, logger.Named("resolver"))
	ingestionSvc := usecase.NewIngestionService(
		resolver,
		platformRepo,
		repos.markets,
		ids,
		accuracySvc,
		usecase.IngestionConfig{Workers: cfg.IngestWorkers, MaxBatch: cfg.IngestMaxBatch},
		logger.Named("ingestion"),
	)
	resultSvc := usecase.NewResultService(repos.games, accuracySvc, logger.Named("results"))
	normalizationSvc := usecase.NewNormalizationService(repos.markets, accuracySvc, cfg.IngestWorkers, logger.Named("normalization"))
	gameSvc := usecase.NewGameService(repos.games, repos.markets)
	teamSvc := usecase.NewTeamService(matcher, teamRepo)

	if cfg.StorageDriver == config.StorageDriverPostgres {
		syncCtx, cancel := context.WithTimeout(ctx, dependencyPingTimeout)
		count, err := teamSvc.SyncReference(syncCtx)
		cancel()
		if err != nil {
			_ = cleanup(context.Background())
			return nil, nil, fmt.Errorf("sync reference teams: %w", err)
		}
		logger.Info("reference teams synced", "teams", count)
	}

	handler := httpapi.NewHandler(
		ingestionSvc,
		resultSvc,
		normalizationSvc,
		accuracySvc,
		gameSvc,
		teamSvc,
		logger.Named("http"),
	)
	router := httpapi.NewRouter(handler, logger.Named("http"), httpapi.RouterConfig{
		SwaggerEnabled:     cfg.SwaggerEnabled,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		InternalToken:      cfg.InternalAPIToken,
		RequestIDs:         ids,
	})
	if cfg.InternalAPIToken == "" {
		logger.Warn("internal api token not configured; ingestion routes will answer 503")
	}

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server, cleanup, nil
}

func openStorage(ctx context.Context, cfg config.Config, directory *team.Directory, logger *logging.Logger) (repositories, closer, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		store := memory.NewStore()
		logger.Info("storage driver selected", "driver", config.StorageDriverMemory)
		return repositories{
			teams:     memory.NewTeamRepository(directory.All()),
			games:     memory.NewGameRepository(store),
			platforms: memory.NewPlatformRepository(store),
			markets:   memory.NewMarketRepository(store),
			accuracy:  memory.NewAccuracyRepository(store),
		}, func(context.Context) error { return nil }, nil
	}

	db, err := openPostgres(ctx, cfg)
	if err != nil {
		return repositories{}, nil, err
	}
	logger.Info("storage driver selected",
		"driver", config.StorageDriverPostgres,
		"database", dbNameFromURL(cfg.DBURL),
		"max_open_conns", cfg.DBMaxOpenConns,
	)

	return repositories{
		teams:     postgres.NewTeamRepository(db),
		games:     postgres.NewGameRepository(db),
		platforms: postgres.NewPlatformRepository(db),
		markets:   postgres.NewMarketRepository(db),
		accuracy:  postgres.NewAccuracyRepository(db),
	}, func(context.Context) error { return db.Close() }, nil
}

func openPostgres(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	db, err := otelsqlx.Open("postgres", normalizeDBURL(cfg.DBURL, cfg.ServiceName),
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, dependencyPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// openJSONStore picks the shared document cache: Redis when configured and
// reachable, a process-local store otherwise, and none when caching is off.
func openJSONStore(ctx context.Context, cfg config.Config, logger *logging.Logger) (basecache.JSONStore, closer) {
	noop := func(context.Context) error { return nil }
	if !cfg.CacheEnabled {
		logger.Info("cache disabled", "reason", "CACHE_ENABLED=false")
		return nil, noop
	}
	if cfg.RedisAddr == "" {
		return basecache.NewMemoryJSONStore(cfg.CacheTTL), noop
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, dependencyPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, using local cache", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return basecache.NewMemoryJSONStore(cfg.CacheTTL), noop
	}

	breaker := resilience.NewCircuitBreaker(
		resilience.CacheBreakerConfig(cfg.CacheBreakerThreshold, cfg.CacheBreakerOpenTimeout),
	)
	store := resilience.NewGuardedJSONStore(
		basecache.NewRedisJSONStore(client, cacheNamespace, cfg.CacheTTL),
		breaker,
		logger.Named("cache"),
	)
	logger.Info("redis cache enabled", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return store, func(context.Context) error { return client.Close() }
}
