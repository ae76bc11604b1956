package app

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/upb/gancio-sync/config"
	"github.com/upb/gancio-sync/internal/observability"
	"github.com/upb/gancio-sync/middleware"
	"github.com/upb/gancio-sync/repositories"
	"github.com/upb/gancio-sync/repositories/postgres"
	"github.com/upb/gancio-sync/services/dispatch"
	"github.com/upb/gancio-sync/services/gancio"
	"github.com/upb/gancio-sync/services/lifecycle"
	"github.com/upb/gancio-sync/services/notices"
	"github.com/upb/gancio-sync/services/outcomes"
	"github.com/upb/gancio-sync/services/settings"
	"github.com/upb/gancio-sync/services/sources"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Posts     repositories.PostRepository
	Terms     repositories.TermRepository
	Bindings  repositories.BindingRepository
	SyncLogs  repositories.SyncLogRepository
	TxManager repositories.TransactionManager

	// Services
	Settings   *settings.Resolver
	Gancio     *gancio.Client
	Outcomes   *outcomes.Store
	Sources    *sources.Registry
	Dispatcher *dispatch.Dispatcher
	Lifecycle  *lifecycle.Service
	Notices    *notices.Reporter

	// Auth
	AuthMiddleware *middleware.AuthMiddleware

	stopCleanup chan struct{}
	closeOnce   sync.Once
}

// NewDependencies opens the host database, prepares the sync log schema and
// wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := factory.InitSchema(ctx); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := newDependencies(cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesFromDB wires the application over an existing pool
func NewDependenciesFromDB(cfg *config.Config, db *postgres.DB, logger *zap.Logger) (*Dependencies, error) {
	return newDependencies(cfg, postgres.NewRepositoryFactoryFromDB(db, cfg.Host, logger), logger)
}

func newDependencies(cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	if err := deps.initMetrics(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	repos := deps.initRepositories()

	if err := deps.initServices(cfg, repos); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.Strings("sources", deps.Sources.Names()))
	return deps, nil
}

func (d *Dependencies) initMetrics(cfg *config.Config) error {
	if !cfg.Observability.MetricsEnabled {
		d.Logger.Info("metrics disabled")
		return nil
	}
	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}
	d.Metrics = m
	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() *repositories.Repositories {
	repos := d.RepoFactory.NewRepositories()

	d.Posts = repos.Posts
	d.Terms = repos.Terms
	d.Bindings = repos.Bindings
	d.SyncLogs = repos.SyncLogs
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized",
		zap.String("posts_table", d.RepoFactory.Tables().Posts))
	return repos
}

func (d *Dependencies) initServices(cfg *config.Config, repos *repositories.Repositories) error {
	// Site options win over network options, env values are the fallback.
	d.Settings = settings.NewResolver(d.Logger,
		repos.Options,
		repos.SiteOptions,
		settings.StaticScope{
			settings.OptionInstanceURL: cfg.Gancio.InstanceURL,
			settings.OptionToken:       cfg.Gancio.Token,
		},
	)

	d.Gancio = gancio.NewClient(d.Settings, cfg.Gancio.Timeout, d.Logger, gancio.WithMetrics(d.Metrics))

	d.Outcomes = outcomes.NewStore(cfg.Outcomes.MaxEntries)
	d.stopCleanup = make(chan struct{})
	if cfg.Outcomes.CleanupInterval > 0 {
		go d.Outcomes.StartCleanupWorker(cfg.Outcomes.CleanupInterval, d.stopCleanup)
	}

	registry, err := sources.BuildRegistry(cfg.Sources, sources.Deps{
		Posts:    d.Posts,
		Terms:    d.Terms,
		Location: cfg.Host.Timezone,
		Logger:   d.Logger,
	})
	if err != nil {
		return err
	}
	if len(registry.Names()) == 0 {
		d.Logger.Warn("no event sources enabled")
	}
	d.Sources = registry

	d.Dispatcher = dispatch.NewDispatcher(d.Bindings, d.SyncLogs, d.TxManager, d.Gancio, d.Outcomes, d.Metrics,
		dispatch.Config{ErrorTTL: cfg.Outcomes.ErrorTTL, SuccessTTL: cfg.Outcomes.SuccessTTL}, d.Logger)
	d.Lifecycle = lifecycle.NewService(d.Sources, d.Posts, d.Bindings, d.Dispatcher, d.Metrics, d.Logger)
	d.Notices = notices.NewReporter(d.Outcomes, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	if cfg.Hooks.SigningSecret == "" {
		// The validator rejects every token without a secret
		d.Logger.Warn("hook signing secret not configured, protected routes will return 401")
	}
	validator := middleware.NewJWTValidator(cfg.Hooks.SigningSecret, cfg.Hooks.Issuer)
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
}

// SQLDB returns the underlying pool, nil when no database is wired
func (d *Dependencies) SQLDB() *sql.DB {
	if d.DB == nil {
		return nil
	}
	return d.DB.DB
}

// SourceNames lists the enabled sources
func (d *Dependencies) SourceNames() []string {
	if d.Sources == nil {
		return []string{}
	}
	return d.Sources.Names()
}

// Close gracefully shuts down all dependencies. Safe to call more than once.
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error

	d.closeOnce.Do(func() {
		if d.Logger != nil {
			d.Logger.Info("shutting down dependencies")
		}

		if d.stopCleanup != nil {
			close(d.stopCleanup)
		}

		if d.RepoFactory != nil {
			if err := d.RepoFactory.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close database: %w", err))
			}
		}

		if d.Logger != nil {
			_ = d.Logger.Sync()
		}
	})

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
