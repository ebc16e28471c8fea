package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/upb/jobtracker/config"
	"github.com/upb/jobtracker/handlers"
	"github.com/upb/jobtracker/internal/observability"
	"github.com/upb/jobtracker/middleware"
	"github.com/upb/jobtracker/repositories"
	"github.com/upb/jobtracker/repositories/memory"
	"github.com/upb/jobtracker/repositories/postgres"
	rediscache "github.com/upb/jobtracker/repositories/redis"
	"github.com/upb/jobtracker/services"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB // nil with the memory storage driver
	Redis  *goredis.Client
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Profiles    repositories.ProfileRepository
	AuditEvents repositories.AuditRepository
	TxManager   repositories.TransactionManager

	// Metrics
	Registry *prometheus.Registry
	Metrics  *observability.AuthMetrics

	// Auth
	AuthService     *services.AuthService
	IdentityService *services.IdentityService
	AuthMiddleware  *middleware.AuthMiddleware

	// Handlers
	HealthHandler *handlers.HealthHandler
	MeHandler     *handlers.MeHandler
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if cfg.Auth == nil {
		return nil, errors.New("auth configuration is required")
	}

	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initStorage(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := deps.initCache(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize profile cache: %w", err)
	}

	if err := deps.initMetrics(); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	deps.initAuth(cfg)
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initStorage opens the configured backing store for profiles and audit events
func (d *Dependencies) initStorage(ctx context.Context, cfg *config.Config) error {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		store := memory.NewStore()
		repos := store.Repositories()
		d.Profiles = repos.Profiles
		d.AuditEvents = repos.AuditEvents
		d.TxManager = store.TransactionManager()
		d.Logger.Warn("using in-memory storage; profiles are lost on restart")
		return nil

	case config.StorageDriverPostgres:
		factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}
		d.RepoFactory = factory
		d.DB = factory.GetDB()

		if err := d.DB.PingContext(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}

		if cfg.Database.InitSchema {
			if err := factory.InitSchema(ctx); err != nil {
				return fmt.Errorf("failed to initialize schema: %w", err)
			}
		}

		repos := factory.NewRepositories()
		d.Profiles = repos.Profiles
		d.AuditEvents = repos.AuditEvents
		d.TxManager = factory.GetTransactionManager()

		d.Logger.Info("database connection established",
			zap.String("connection", cfg.Database.LogString()))
		return nil

	default:
		return fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// initCache wraps the profile repository with the Redis read-through cache when configured
func (d *Dependencies) initCache(ctx context.Context, cfg *config.Config) error {
	if !cfg.Redis.Enabled() {
		return nil
	}

	client, err := rediscache.NewClient(ctx, cfg.Redis.URL)
	if err != nil {
		return err
	}
	d.Redis = client
	d.Profiles = rediscache.NewProfileCache(d.Profiles, client, cfg.Redis.ProfileCacheTTL, d.Logger)

	d.Logger.Info("profile cache enabled", zap.Duration("ttl", cfg.Redis.ProfileCacheTTL))
	return nil
}

func (d *Dependencies) initMetrics() error {
	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := observability.NewAuthMetrics(d.Registry)
	if err != nil {
		return err
	}
	d.Metrics = metrics
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	d.AuthService = services.NewAuthService(
		services.WithConfig(cfg.Auth),
		services.WithLogger(d.Logger),
		services.WithMetrics(d.Metrics),
	)

	repos := &repositories.Repositories{Profiles: d.Profiles, AuditEvents: d.AuditEvents}
	d.IdentityService = services.NewIdentityService(repos, d.TxManager, d.Logger, d.Metrics)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.AuthService, d.IdentityService, d.Logger)

	if cfg.Auth.DevBypass {
		d.Logger.Warn("dev bypass enabled; bearer tokens are not verified",
			zap.String("app_env", cfg.Auth.AppEnv))
	}
	d.Logger.Info("auth initialized", zap.String("provider", cfg.Auth.Provider))
}

func (d *Dependencies) initHandlers() {
	var db *sql.DB
	if d.DB != nil {
		db = d.DB.DB
	}
	d.HealthHandler = handlers.NewHealthHandler(db, d.Logger)
	if d.Redis != nil {
		client := d.Redis
		d.HealthHandler.AddCheck("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
	d.MeHandler = handlers.NewMeHandler(d.Logger)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.AuthService != nil {
		d.AuthService.Close()
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
		d.Redis = nil
	}

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.RepoFactory = nil
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return errors.Join(errs...)
}
