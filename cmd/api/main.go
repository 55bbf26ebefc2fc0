// Package main is the entry point for the session API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/mesa-rpg/mesa/internal/api"
	"github.com/mesa-rpg/mesa/internal/assets"
	"github.com/mesa-rpg/mesa/internal/auth"
	"github.com/mesa-rpg/mesa/internal/config"
	"github.com/mesa-rpg/mesa/internal/docstore"
	"github.com/mesa-rpg/mesa/internal/health"
	"github.com/mesa-rpg/mesa/internal/middleware"
	"github.com/mesa-rpg/mesa/internal/netinfo"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "summary", cfg.LogSummary())

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	store, redisClient, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("document store: %w", err)
	}
	defer cleanup()

	doc, err := store.Seed(ctx)
	if err != nil {
		return fmt.Errorf("seed document: %w", err)
	}
	logger.Info("document loaded", "revision", doc.Revision, "scenes", len(doc.Scenes))

	baseURL := serverBaseURL(cfg, logger)

	assetSvc, err := buildAssets(cfg, baseURL)
	if err != nil {
		return fmt.Errorf("asset storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics()
	if err := metrics.Register(registry); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	healthCfg := api.HealthHandlersConfig{StoreChecker: health.NewDocstoreChecker(store)}
	if redisClient != nil {
		healthCfg.RedisChecker = health.NewRedisChecker(redisClient)
	}

	mux := api.NewRouter(api.RouterConfig{
		Store:          store,
		Tokens:         auth.NewPlayerTokensWithRotation(cfg.TokenSecret, cfg.TokenSecretPrevious),
		Assets:         assetSvc,
		AssetsDir:      localAssetsDir(cfg),
		BaseURL:        baseURL,
		PollIntervalMS: cfg.PollIntervalMS,
		MaxUploadBytes: int64(cfg.MaxUploadSizeMB) << 20,
		Registry:       registry,
		Health:         healthCfg,
	})

	var handler http.Handler = mux
	if cfg.RateLimitPerMinute > 0 {
		limitStore := middleware.NewInMemoryRateLimitStore()
		limit := middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimitPerMinute,
			WindowDuration:    time.Minute,
		}
		handler = middleware.RateLimiter(limitStore, limit, middleware.IPKeyFunc())(handler)
	}
	handler = middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins))(handler)
	handler = middleware.HTTPMetrics(metrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"port", cfg.Port,
			"gm_url", baseURL,
			"player_url", baseURL+"/player",
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// buildStore wires the configured persistence backend. The returned Redis
// client is non-nil only for the redis backend, so readiness can ping it.
func buildStore(ctx context.Context, cfg *config.Config) (*docstore.Store, *redis.Client, func(), error) {
	noop := func() {}
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return docstore.New(docstore.NewMemoryBackend()), nil, noop, nil
	case config.StoreFile:
		backend, err := docstore.NewFileBackend(cfg.DataFile)
		if err != nil {
			return nil, nil, noop, err
		}
		return docstore.New(backend), nil, noop, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, noop, fmt.Errorf("redis ping: %w", err)
		}
		backend := docstore.NewRedisBackend(client, cfg.RedisKey)
		return docstore.New(backend), client, func() { client.Close() }, nil
	case config.StorePostgres:
		backend, err := docstore.NewPostgresBackend(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, noop, err
		}
		return docstore.New(backend), nil, func() { backend.Close() }, nil
	default:
		return nil, nil, noop, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func buildAssets(cfg *config.Config, baseURL string) (assets.Service, error) {
	switch cfg.AssetBackend {
	case config.AssetsLocal:
		return assets.NewLocalService(cfg.AssetsDir, baseURL)
	case config.AssetsS3:
		return assets.NewS3Service(assets.S3Config{
			BucketName:      cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
			Endpoint:        cfg.S3Endpoint,
		})
	default:
		return nil, fmt.Errorf("unknown asset backend %q", cfg.AssetBackend)
	}
}

// localAssetsDir returns the directory the static file server serves, empty
// when assets live in S3 and are fetched by presigned URL instead.
func localAssetsDir(cfg *config.Config) string {
	if cfg.AssetBackend == config.AssetsLocal {
		return cfg.AssetsDir
	}
	return ""
}

// serverBaseURL builds the address printed at startup and baked into player
// access links. Player devices are on the same network, so the LAN address
// matters more than localhost.
func serverBaseURL(cfg *config.Config, logger *slog.Logger) string {
	host := "localhost"
	if ip, err := netinfo.LANAddr(); err == nil {
		host = ip.String()
	} else {
		logger.Warn("no LAN address found, player links will use localhost", "error", err)
	}
	return fmt.Sprintf("http://%s:%d", host, cfg.Port)
}
