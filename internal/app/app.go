// Package app wires the bolão service together from its configuration.
// cmd/api and cmd/worker share it so both binaries see the same stores,
// handlers and bus.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/config"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/command"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/eventhandler"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/query"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/leaderboard"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/infrastructure/messaging"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/infrastructure/metrics"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/infrastructure/persistence/postgres"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/infrastructure/persistence/redis"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/infrastructure/scheduler"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/interface/http"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/interface/http/handlers"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/circuitbreaker"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/logger"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/retry"
)

// App holds every long-lived component.
type App struct {
	Config  *config.Config
	Log     *slog.Logger
	Metrics *metrics.Registry

	DB    *postgres.Connection
	Cache *redis.Cache // nil when Redis is disabled or unreachable
	Bus   *messaging.Bus

	Standings *query.StandingsService
	Queries   Queries
	Commands  Commands

	Rebuild   *jobs.RebuildRankingJob
	Scheduler *scheduler.Scheduler
}

// Queries groups the read-side handlers.
type Queries struct {
	Ranking *query.GetRankingHandler
	Profile *query.GetProfileHandler
	Scout   *query.GetScoutHandler
	Ledger  *query.GetLedgerHandler
	Compare *query.CompareHandler
	Matches *query.ListMatchesHandler
	Voters  *query.GetMatchVotersHandler
}

// Commands groups the write-side handlers.
type Commands struct {
	SubmitGuess  *command.SubmitGuessHandler
	CreateMatch  *command.CreateMatchHandler
	UpdateMatch  *command.UpdateMatchHandler
	RecordResult *command.RecordResultHandler
	Rebuild      *command.RebuildRankingHandler
}

// New connects to the stores and builds the handlers. The caller owns the
// returned App and must Close it.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{
		Config:  cfg,
		Log:     log,
		Metrics: metrics.NewRegistry(),
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Stores
	// ─────────────────────────────────────────────────────────────────────────
	dbCfg := postgres.DefaultConfig()
	dbCfg.URL = cfg.Database.URL
	dbCfg.MaxConns = int32(cfg.Database.MaxConns)
	dbCfg.MinConns = int32(cfg.Database.MinConns)
	dbCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	dbCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	dbCfg.QueryTimeout = cfg.Database.QueryTimeout

	db, err := postgres.NewConnection(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.DB = db

	var cache leaderboard.Cache
	if cfg.Features.IsEnabled(config.FeatureRankingCache) && !cfg.Redis.Disabled {
		rc, err := redis.NewCache(redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   redis.DefaultConfig().MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			log.Warn("redis unavailable, standings cache disabled", "error", err)
		} else {
			a.Cache = rc
			cache = redis.NewStandingsCache(rc).WithBreaker(circuitbreaker.CacheBreaker(
				func(name string, from, to circuitbreaker.State) {
					log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
				},
			))
		}
	}

	users := postgres.NewUserRepository(db)
	matches := postgres.NewMatchRepository(db)
	guesses := postgres.NewGuessRepository(db)
	state := postgres.NewAppStateRepository(db)

	var snapshots leaderboard.SnapshotRepository
	if cfg.Features.IsEnabled(config.FeatureSnapshotPersistence) {
		snapshots = postgres.NewRankingSnapshotRepository(db)
	}

	seeds, err := config.LoadMedalSeeds(cfg.Pool.MedalSeedsPath)
	if err != nil {
		a.Close()
		return nil, err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Event bus
	// ─────────────────────────────────────────────────────────────────────────
	a.Bus = messaging.NewBus(messaging.Config{
		Middlewares: messaging.DefaultMiddlewares(log),
		Metrics:     a.Metrics,
		Logger:      log,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// Application layer
	// ─────────────────────────────────────────────────────────────────────────
	tel := query.Telemetry{
		Metrics: a.Metrics,
		Logger:  logger.FromSlog(log).With(logger.Component("query")),
	}
	loader := query.NewDatasetLoader(users, matches, guesses, state, cfg.App.Location,
		query.WithRetrier(retry.DatabaseRetrier(postgres.IsTransient)),
	)
	a.Standings = query.NewStandingsService(loader, cache, snapshots, seeds, cfg.Redis.RankingTTL, tel)

	a.Queries = Queries{
		Ranking: query.NewGetRankingHandler(a.Standings, tel),
		Profile: query.NewGetProfileHandler(a.Standings, tel),
		Scout:   query.NewGetScoutHandler(loader, cfg.Pool.ChartWindow, tel),
		Ledger:  query.NewGetLedgerHandler(loader, tel),
		Compare: query.NewCompareHandler(loader, tel),
		Matches: query.NewListMatchesHandler(loader, tel),
		Voters:  query.NewGetMatchVotersHandler(loader, tel),
	}

	notifier := command.NewNotifier(state, a.Bus, a.Metrics, logger.FromSlog(log).With(logger.Component("command")))
	rebuildCfg := command.DefaultRebuildRankingConfig()
	rebuildCfg.PersistSnapshots = snapshots != nil

	a.Commands = Commands{
		SubmitGuess:  command.NewSubmitGuessHandler(matches, users, guesses, notifier),
		CreateMatch:  command.NewCreateMatchHandler(matches, notifier),
		UpdateMatch:  command.NewUpdateMatchHandler(matches, guesses, notifier),
		RecordResult: command.NewRecordResultHandler(matches, notifier),
		Rebuild:      command.NewRebuildRankingHandler(a.Standings, snapshots, a.Bus, notifier, rebuildCfg),
	}

	onChanged := eventhandler.NewOnDatasetChangedHandler(a.Commands.Rebuild, log, eventhandler.DefaultDatasetChangedConfig())
	if err := a.Bus.Subscribe(shared.EventDatasetChanged, onChanged.Handle); err != nil {
		a.Close()
		return nil, fmt.Errorf("subscribe %s: %w", shared.EventDatasetChanged, err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Scheduler
	// ─────────────────────────────────────────────────────────────────────────
	a.Rebuild = jobs.NewRebuildRankingJob(a.Commands.Rebuild, snapshots, log)

	sched, err := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:     log,
		Timezone:   cfg.App.Location,
		JobTimeout: cfg.Scheduler.JobTimeout,
		Metrics:    a.Metrics,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Scheduler = sched
	if cfg.Scheduler.Enabled && cfg.Features.IsEnabled(config.FeatureSchedulerRebuild) {
		if err := sched.Every(a.Rebuild, cfg.Scheduler.RebuildInterval); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

// HTTPServer builds the API server over the application handlers.
func (a *App) HTTPServer() *httpserver.Server {
	cfg := a.Config

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("database", handlers.NewPingCheck(a.DB))
	if a.Cache != nil {
		health.AddOptionalCheck("cache", handlers.NewPingCheck(a.Cache))
	}

	srvCfg := httpserver.DefaultConfig()
	srvCfg.Host = cfg.HTTP.Host
	srvCfg.Port = cfg.HTTP.Port
	srvCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	srvCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	srvCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	srvCfg.AllowedOrigins = cfg.HTTP.CORSOrigins
	srvCfg.RateLimit = cfg.HTTP.RateLimit
	srvCfg.RateBurst = cfg.HTTP.RateLimitBurst
	srvCfg.TrustedProxies = cfg.HTTP.TrustedProxies
	srvCfg.Version = cfg.App.Version
	if cfg.Features.IsEnabled(config.FeatureAdminAPI) {
		srvCfg.AdminKeyHashes = cfg.HTTP.AdminKeyHashes
	}

	deps := httpserver.Dependencies{
		Ranking:       a.Queries.Ranking,
		Profile:       a.Queries.Profile,
		Scout:         a.Queries.Scout,
		Ledger:        a.Queries.Ledger,
		Compare:       a.Queries.Compare,
		Matches:       a.Queries.Matches,
		Voters:        a.Queries.Voters,
		SubmitGuess:   a.Commands.SubmitGuess,
		CreateMatch:   a.Commands.CreateMatch,
		UpdateMatch:   a.Commands.UpdateMatch,
		RecordResult:  a.Commands.RecordResult,
		HealthChecker: health,
		Metrics:       a.Metrics,
		Logger:        logger.FromSlog(a.Log),
	}
	if cfg.Observability.MetricsEnabled {
		deps.MetricsHandler = a.Metrics.Handler()
	}
	return httpserver.NewServer(srvCfg, deps)
}

// Close releases every component in reverse order of creation.
func (a *App) Close() {
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(); err != nil {
			a.Log.Warn("scheduler stop failed", "error", err)
		}
	}
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			a.Log.Warn("event bus close failed", "error", err)
		}
	}
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
