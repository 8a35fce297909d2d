// Package app wires configuration into a running dashboard: logger, cache,
// LMS client, orchestrator and HTTP surface.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"course-dashboard/internal/aggregate"
	"course-dashboard/internal/api"
	"course-dashboard/internal/cache"
	"course-dashboard/internal/config"
	"course-dashboard/internal/content"
	"course-dashboard/internal/domain"
	"course-dashboard/internal/logger"
	"course-dashboard/internal/monitoring"
	"course-dashboard/internal/providers/moodle"
	"course-dashboard/internal/tracing"
)

type App struct {
	Config       *config.Config
	Log          *zap.Logger
	LMS          *moodle.Client
	Store        cache.Store
	Orchestrator *aggregate.Orchestrator
	Content      *content.Loader

	closers []func(context.Context) error
}

// New validates cfg and builds every component. Close releases what New
// opened, including on partial failure.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("app: invalid config: %w", err)
	}

	a := &App{Config: cfg}
	a.Log = logger.Init(logger.Options{
		File:    cfg.Log.File,
		Level:   cfg.Log.Level,
		Console: cfg.Log.Console,
	})
	a.closers = append(a.closers, func(context.Context) error {
		_ = a.Log.Sync()
		return nil
	})

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		if tp != nil {
			a.closers = append(a.closers, tp.Shutdown)
		}
	}

	store, err := cache.Open(ctx, cache.Config{
		Driver:     cfg.Cache.Driver,
		TTL:        cfg.Cache.TTL,
		SQLitePath: cfg.Cache.SQLitePath,
		Redis: cache.RedisOptions{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		},
	})
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("app: open cache: %w", err)
	}
	if store != nil {
		a.Store = store
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	}

	seed, err := LoadSeed(cfg.Dashboard.SeedFile)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.LMS = moodle.New(cfg.LMS.BaseURL, cfg.LMS.Token, cfg.LMS.CallTimeout, cfg.LMS.RatePerSecond, cfg.LMS.RateBurst)
	a.Orchestrator = aggregate.New(a.LMS, a.Store, a.Log, aggregate.Options{
		UserID:      cfg.Dashboard.UserID,
		Policy:      aggregate.ParsePolicy(cfg.Dashboard.FailurePolicy),
		Workers:     cfg.Dashboard.CourseConcurrency,
		Retries:     cfg.Dashboard.CategoryRetries,
		RetryDelay:  cfg.Dashboard.RetryDelay,
		CacheMaxAge: cfg.Dashboard.CacheMaxAge,
		Seed:        seed,
	})
	a.closers = append(a.closers, func(context.Context) error {
		a.Orchestrator.Stop()
		return nil
	})
	a.Content = content.NewLoader(a.LMS, content.NewRegistry(), a.Log)

	a.Log.Info("dashboard configured",
		zap.String("lms", cfg.LMS.BaseURL),
		zap.String("cache", cfg.Cache.Driver),
		zap.String("policy", cfg.Dashboard.FailurePolicy),
		zap.Int("course_concurrency", cfg.Dashboard.CourseConcurrency),
		zap.Bool("seed", seed != nil),
	)
	return a, nil
}

// LoadSeed reads a JSON snapshot. An empty path yields nil.
func LoadSeed(path string) (*domain.Snapshot, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("app: read seed: %w", err)
	}
	var s domain.Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("app: decode seed %s: %w", path, err)
	}
	return &s, nil
}

// Router builds the HTTP surface over the app's orchestrator and loader.
func (a *App) Router() *gin.Engine {
	gin.SetMode(a.Config.Server.Mode)
	monitoring.Init()
	return api.NewRouter(&api.Handler{
		Dashboard: a.Orchestrator,
		Content:   a.Content,
		Logger:    a.Log,
	}, api.RouterOptions{RefreshEvery: 5 * time.Second, RefreshBurst: 2})
}

// Start shows cached data straight away and, when configured, kicks off a
// live refresh in the background.
func (a *App) Start(ctx context.Context) {
	if a.Orchestrator.Warm(ctx) {
		a.Log.Info("showing cached dashboard until the first refresh completes")
	}
	if a.Config.Dashboard.RefreshOnStart {
		a.Orchestrator.Trigger()
	}
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts down gracefully.
func (a *App) Run() error {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.Start(context.Background())

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("app: listen: %w", err)
		}
		return nil
	case <-quit:
	}
	a.Log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("app: forced shutdown: %w", err)
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
