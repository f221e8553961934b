package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/johnrirwin/journalfeed/internal/aggregator"
	"github.com/johnrirwin/journalfeed/internal/cache"
	"github.com/johnrirwin/journalfeed/internal/config"
	"github.com/johnrirwin/journalfeed/internal/database"
	"github.com/johnrirwin/journalfeed/internal/fetch"
	"github.com/johnrirwin/journalfeed/internal/httpapi"
	"github.com/johnrirwin/journalfeed/internal/journal"
	"github.com/johnrirwin/journalfeed/internal/logging"
	"github.com/johnrirwin/journalfeed/internal/pages"
)

// App holds all application dependencies
type App struct {
	Config       *config.Config
	Logger       *logging.Logger
	Cache        *cache.Cache
	Client       *fetch.Client
	API          *journal.API
	Orchestrator *aggregator.Orchestrator
	Deps         pages.Deps
	HTTPServer   *httpapi.Server

	closers []io.Closer
	stop    []func()
}

// New creates and initializes a new App instance
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	app.Logger = logging.New(logging.ParseLevel(cfg.Logging.Level))
	app.Cache = cache.New(app.initCacheBackend(), app.Logger)

	app.Client = fetch.New(fetch.Config{
		BaseURL:   cfg.API.BaseURL,
		UserAgent: cfg.API.UserAgent,
		Signer:    app.initSigner(),
	}, app.Logger)

	policy := fetch.Policy{
		Timeout:    cfg.API.Timeout,
		MaxRetries: cfg.API.MaxRetries,
		RetryDelay: cfg.API.RetryDelay,
	}
	app.API = journal.NewAPI(app.Client, app.loadEndpoints(), policy)
	app.Orchestrator = aggregator.New(app.Client, app.Logger, cfg.API.MaxConcurrent)

	app.Deps = pages.Deps{
		API:          app.API,
		Orchestrator: app.Orchestrator,
		Cache:        app.Cache,
		Logger:       app.Logger,
		Settings: pages.Settings{
			ArticlesPerSection: cfg.Pages.ArticlesPerSection,
			SimilarLimit:       cfg.Pages.SimilarLimit,
			HybridLimit:        cfg.Pages.HybridLimit,
			VolumesTTL:         cfg.Cache.TTL,
			FeedTTL:            cfg.Cache.TTL,
			DetailTTL:          cfg.Cache.TTL,
		},
	}

	app.HTTPServer = httpapi.New(app.Deps, httpapi.Options{
		EnableManualRefresh: cfg.Server.EnableManualRefresh,
		AllowedOrigins:      cfg.Server.AllowedOrigins,
		RequestTimeout:      cfg.Server.RequestTimeout,
	}, app.Logger)

	app.Logger.Info("Application initialized", logging.WithFields(map[string]interface{}{
		"api":   cfg.API.BaseURL,
		"cache": app.Cache.Backend(),
	}))

	return app, nil
}

// Run starts the background refresher and serves HTTP until the server is
// shut down or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.Logger.Info("Starting HTTP server", logging.WithField("addr", a.Config.Server.HTTPAddr))

	go a.refreshLoop(ctx)

	err := a.HTTPServer.Start(a.Config.Server.HTTPAddr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}
	a.Close()
	return nil
}

// Close releases cache backends and database connections.
func (a *App) Close() {
	for _, stop := range a.stop {
		stop()
	}
	a.stop = nil
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.Logger.Error("Close error", logging.WithField("error", err.Error()))
		}
	}
	a.closers = nil
}

// Refresh warms the homepage feeds and the volumes list, then prunes the
// cache.
func (a *App) Refresh(ctx context.Context, homepage *pages.Homepage, volumes *pages.VolumesList) {
	home := homepage.LoadAggregatedFeeds(ctx, nil)
	vols := volumes.Load(ctx, false)
	pruned := a.Cache.Prune(ctx)

	a.Logger.Info("Background refresh complete", logging.WithFields(map[string]interface{}{
		"homepage": string(home.Status),
		"volumes":  string(vols.Status),
		"pruned":   pruned,
	}))
}

func (a *App) refreshLoop(ctx context.Context) {
	interval := a.Config.Server.RefreshInterval
	if interval <= 0 {
		return
	}

	homepage := pages.NewHomepage(a.Deps)
	volumes := pages.NewVolumesList(a.Deps)

	a.Logger.Info("Pre-fetching homepage in background...")
	a.Refresh(ctx, homepage, volumes)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Refresh(ctx, homepage, volumes)
		}
	}
}

func (a *App) initSigner() fetch.Signer {
	auth := a.Config.Auth
	if auth.AdminSecret == "" {
		return nil
	}
	a.Logger.Info("Signing admin API requests", logging.WithField("issuer", auth.AdminIssuer))
	return fetch.NewAdminSigner(fetch.AdminSignerConfig{
		Secret:   auth.AdminSecret,
		Issuer:   auth.AdminIssuer,
		Audience: auth.AdminAudience,
		Subject:  auth.AdminSubject,
		TTL:      auth.TokenTTL,
	})
}

func (a *App) loadEndpoints() journal.Endpoints {
	configPath := a.Config.API.EndpointsPath
	if configPath == "" {
		configPath = journal.FindEndpointsConfig()
	}
	if configPath == "" {
		a.Logger.Info("No endpoints.yaml found, using default routes")
		return journal.DefaultEndpoints()
	}

	endpoints, err := journal.LoadEndpoints(configPath)
	if err != nil {
		a.Logger.Warn("Failed to load endpoints config, using defaults", logging.WithFields(map[string]interface{}{
			"path":  configPath,
			"error": err.Error(),
		}))
		return journal.DefaultEndpoints()
	}

	a.Logger.Info("Loaded endpoints configuration", logging.WithField("path", configPath))
	return endpoints
}

// initCacheBackend picks the configured backend. A backend that cannot be
// reached falls back to memory so the cache never blocks startup.
func (a *App) initCacheBackend() cache.Backend {
	cfg := a.Config.Cache
	retention := cfg.StaleRetention

	switch cfg.Backend {
	case "none":
		a.Logger.Info("Caching disabled")
		return cache.Nop{}

	case "redis":
		a.Logger.Info("Using Redis cache backend", logging.WithField("addr", cfg.RedisAddr))
		backend, err := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, retention)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			return a.memoryBackend(retention)
		}
		a.closers = append(a.closers, backend)
		return backend

	case "sqlite":
		a.Logger.Info("Using SQLite cache backend", logging.WithField("path", cfg.SQLitePath))
		backend, err := cache.OpenSQLite(cfg.SQLitePath, retention)
		if err != nil {
			a.Logger.Error("Failed to open SQLite cache, falling back to memory cache", logging.WithField("error", err.Error()))
			return a.memoryBackend(retention)
		}
		a.closers = append(a.closers, backend)
		return backend

	case "postgres":
		db, err := a.openDatabase()
		if err != nil {
			a.Logger.Error("Failed to open PostgreSQL cache, falling back to memory cache", logging.WithField("error", err.Error()))
			return a.memoryBackend(retention)
		}
		a.Logger.Info("Using PostgreSQL cache backend")
		a.closers = append(a.closers, db)
		return database.NewCacheStore(db, retention)

	default:
		a.Logger.Info("Using in-memory cache backend")
		return a.memoryBackend(retention)
	}
}

func (a *App) memoryBackend(retention time.Duration) cache.Backend {
	backend := cache.NewMemory(retention)
	a.stop = append(a.stop, backend.Stop)
	return backend
}

func (a *App) openDatabase() (*database.DB, error) {
	dbConfig := database.DefaultConfig()
	dbConfig.Host = a.Config.Database.Host
	dbConfig.Port = a.Config.Database.Port
	dbConfig.User = a.Config.Database.User
	dbConfig.Password = a.Config.Database.Password
	dbConfig.Database = a.Config.Database.Database
	dbConfig.SSLMode = a.Config.Database.SSLMode

	db, err := database.New(dbConfig)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
