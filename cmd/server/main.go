package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gdlist/list-api/internal/cache"
	"github.com/gdlist/list-api/internal/config"
	"github.com/gdlist/list-api/internal/content"
	"github.com/gdlist/list-api/internal/handlers"
	"github.com/gdlist/list-api/internal/logic"
	"github.com/gdlist/list-api/internal/ratelimit"
	"github.com/gdlist/list-api/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "list-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newStore(ctx, cfg, sugar)
	if err != nil {
		return err
	}
	defer closeStore()

	source, err := newSource(cfg)
	if err != nil {
		return err
	}

	loader := content.NewLoader(content.LoaderConfig{
		Source:      source,
		Concurrency: cfg.FetchConcurrency,
		Logger:      logger,
	})
	service := logic.NewListService(logic.ServiceConfig{
		Loader: loader,
		Cache:  store,
		TTL:    cfg.CacheTTL,
		Logger: logger,
	})

	refresher := worker.NewRefresher(worker.RefresherConfig{
		Service:  service,
		Interval: cfg.RefreshInterval,
		WatchDir: cfg.WatchDir(),
		Timeout:  2 * cfg.HTTPTimeout,
		Logger:   logger,
	})
	if err := refresher.Start(ctx); err != nil {
		return fmt.Errorf("start refresher: %w", err)
	}
	defer refresher.Stop()

	// SIGHUP reloads the list data without restarting
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-hup:
				if !refresher.Trigger() {
					sugar.Infow("Reload already pending")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	limiter := ratelimit.New(cfg.RateLimitPerSecond, cfg.RateLimitBurst, 10*time.Minute)
	defer limiter.Stop()

	h := handlers.New(handlers.Config{
		Service: service,
		Cache:   store,
		Logger:  logger,
	})

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: h.Routes(handlers.RouterConfig{
			AllowedOrigins: cfg.AllowedOrigins,
			Limiter:        limiter,
			RequestTimeout: 3 * cfg.HTTPTimeout,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      4 * cfg.HTTPTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("Server listening", "addr", srv.Addr, "env", cfg.Env, "data_dir", cfg.DataDir, "data_url", cfg.DataURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		sugar.Infow("Shutting down server gracefully")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("Shutdown error", "error", err)
	}
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// newStore returns Redis when REDIS_URL is set, otherwise an in-process cache.
func newStore(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (cache.Store, func(), error) {
	if cfg.RedisURL == "" {
		logger.Infow("Using in-process cache")
		return cache.NewMemoryStore(cfg.CacheTTL), func() {}, nil
	}

	store, err := cache.NewRedisStore(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		// The service still works without the shared cache; /ready reports it.
		logger.Warnw("Redis unreachable at startup", "error", err)
	}

	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warnw("Failed to close redis", "error", err)
		}
	}, nil
}

func newSource(cfg *config.Config) (content.Source, error) {
	if cfg.DataURL != "" {
		src, err := content.NewHTTPSource(cfg.DataURL, nil, cfg.HTTPTimeout)
		if err != nil {
			return nil, fmt.Errorf("data source: %w", err)
		}
		return src, nil
	}

	info, err := os.Stat(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data dir %s is not a directory", cfg.DataDir)
	}
	return content.NewFileSource(cfg.DataDir), nil
}
