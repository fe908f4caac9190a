// Package main is the entry point for the autoblog server.
// It loads configuration, validates the license, connects to the optional
// backing services, sets up routing, and starts the HTTP server with
// graceful shutdown support.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"autoblog/internal/ai"
	"autoblog/internal/cache"
	"autoblog/internal/catalog"
	"autoblog/internal/config"
	"autoblog/internal/database"
	"autoblog/internal/handlers"
	"autoblog/internal/license"
	"autoblog/internal/metrics"
	"autoblog/internal/middleware"
	"autoblog/internal/pipeline"
	"autoblog/internal/render"
	"autoblog/internal/router"
	"autoblog/internal/scheduler"
	"autoblog/internal/storage"
	"autoblog/internal/store"
	"autoblog/internal/wordpress"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load configuration from the environment and .env.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr(), "config_path", cfg.ConfigPath)

	// The user configuration and the license gate everything else.
	file, err := config.LoadFile(cfg.ConfigPath)
	if err != nil {
		slog.Error("invalid user configuration", "error", err)
		os.Exit(1)
	}
	status, err := license.Parse(file.License.Key, file.License.Email)
	if err != nil {
		slog.Error("license rejected", "key", license.Mask(file.License.Key), "error", err)
		os.Exit(1)
	}
	slog.Info("license validated", "type", status.Type, "key", license.Mask(file.License.Key))

	// ctx ends on SIGINT or SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Valkey backs the article counter and the catalog cache. Without it
	// both fall back to process memory.
	var (
		valkeyClient  *redis.Client
		memoryCounter *license.MemoryCounter
		counter       license.Counter
		productCache  *cache.Results
	)
	if cfg.ValkeyEnabled() {
		valkeyClient, err = cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			slog.Error("failed to connect to valkey", "error", err)
			os.Exit(1)
		}
		defer valkeyClient.Close()
		counter = cache.NewArticleCounter(valkeyClient)
		productCache = cache.NewResults(valkeyClient, "catalog", cfg.CatalogCacheTTL)
	} else {
		memoryCounter = license.NewMemoryCounter()
		counter = memoryCounter
		slog.Warn("valkey not configured, counters kept in memory")
	}
	manager := license.NewManager(status, counter)

	// PostgreSQL keeps the generation history.
	var history store.History = store.NewMemoryHistory()
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := database.Migrate(db); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		history = store.NewHistoryStore(db)

		// Without Valkey the counters restart from the published history.
		if memoryCounter != nil {
			published := func(ctx context.Context, since time.Time) (int, error) {
				return history.CountSince(ctx, since, store.StatusPublished)
			}
			if err := memoryCounter.Seed(ctx, time.Now(), published); err != nil {
				slog.Warn("failed to seed article counters", "error", err)
			}
		}
	} else {
		slog.Warn("database not configured, history kept in memory")
	}

	// S3-compatible archive (optional).
	archive, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}
	if archive != nil {
		slog.Info("s3 archive connected", "endpoint", cfg.S3Endpoint, "bucket", archive.Bucket())
	}

	// AI providers.
	registry := ai.NewRegistry(cfg.AIProvider, map[string]ai.ProviderConfig{
		"openai": {APIKey: file.APIKeys.OpenAI.Key, Model: file.OpenAIModel(), BaseURL: cfg.OpenAIBaseURL, Timeout: cfg.AITimeout},
		"claude": {APIKey: file.APIKeys.Claude.Key, Model: file.ClaudeModel(), BaseURL: cfg.ClaudeBaseURL, Timeout: cfg.AITimeout},
	})
	slog.Info("ai providers initialized", "active", registry.ActiveName(), "available", registry.Available())

	// Affiliate catalog; disabled unless both the license and the config
	// allow it.
	dmm := file.DMM(status)
	catalogCfg := catalog.Config{BaseURL: cfg.DMMBaseURL, Timeout: cfg.CatalogTimeout}
	if dmm.Enabled {
		catalogCfg.APIID, catalogCfg.AffiliateID = dmm.APIID, dmm.AffiliateID
	}
	var catalogCache catalog.Cache
	if productCache != nil {
		catalogCache = productCache
	}
	products := catalog.NewClient(catalogCfg, catalogCache)
	if !products.Configured() {
		slog.Warn("product catalog not configured, placeholder products will be served")
	}

	renderer, err := render.New()
	if err != nil {
		slog.Error("failed to initialize product renderer", "error", err)
		os.Exit(1)
	}

	publishers := func(site config.Site) wordpress.Publisher {
		return wordpress.New(site, cfg.WordPressTimeout)
	}

	deps := pipeline.Deps{
		Generator:  registry,
		Catalog:    products,
		Limiter:    manager,
		Sites:      file,
		History:    history,
		Renderer:   renderer,
		Publishers: publishers,
		CTA: render.CTA{
			Heading:  file.CTA.Heading,
			Text:     file.CTA.Text,
			URL:      file.CTA.URL,
			Label:    file.CTA.Label,
			Position: render.ParsePosition(file.CTA.Position),
		},
	}
	if archive != nil {
		deps.Archive = archive
	}
	svc := pipeline.New(deps, pipeline.Options{BatchDelay: cfg.BatchDelay})

	sched, err := scheduler.New(svc, manager, cfg.ScheduleSpec, "")
	if err != nil {
		slog.Error("failed to initialize scheduler", "error", err)
		os.Exit(1)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	apiDeps := handlers.Deps{
		Pipeline:    svc,
		Catalog:     products,
		License:     manager,
		Config:      file,
		Providers:   registry,
		Scheduler:   sched,
		Publishers:  publishers,
		Version:     version,
		BaseContext: ctx,
	}
	if archive != nil {
		apiDeps.Archive = archive
	}
	if productCache != nil {
		apiDeps.ProductCache = productCache
	}
	api := handlers.NewAPI(apiDeps)

	limiter := middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
	defer limiter.Stop()

	r := router.New(api, router.Options{
		APIToken:    cfg.APIToken,
		CORSOrigin:  cfg.CORSOrigin,
		RateLimiter: limiter,
	})

	// WriteTimeout must cover a generation plus a publish, and a
	// synchronous batch with its inter-item delay.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr(), "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: once ctx ends, drain connections, the scheduler
	// and detached batches. Batches see the same cancellation and stop
	// between steps.
	<-ctx.Done()
	stop()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	sched.Stop(shutdownCtx)
	api.Wait(shutdownCtx)

	slog.Info("server stopped gracefully")
}
