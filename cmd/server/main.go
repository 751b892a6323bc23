package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maeum-ai/maeum-api/cmd"
	"github.com/maeum-ai/maeum-api/internal/chat"
	"github.com/maeum-ai/maeum-api/internal/config"
	"github.com/maeum-ai/maeum-api/internal/llm"
	"github.com/maeum-ai/maeum-api/internal/platform/logger"
	"github.com/maeum-ai/maeum-api/internal/platform/otel"
	"github.com/maeum-ai/maeum-api/internal/pricing"
	"github.com/maeum-ai/maeum-api/internal/prompt"
	"github.com/maeum-ai/maeum-api/internal/server"
	"github.com/maeum-ai/maeum-api/internal/store/cache"
	"github.com/maeum-ai/maeum-api/internal/store/sqlite"
	"go.uber.org/zap"

	// Import adapters to trigger init() registration
	_ "github.com/maeum-ai/maeum-api/internal/llm/anthropic"
	_ "github.com/maeum-ai/maeum-api/internal/llm/google"
	_ "github.com/maeum-ai/maeum-api/internal/llm/openai"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Initialize(logger.DefaultConfig())
		logger.Fatal("failed to load config", zap.Error(err))
	}

	logger.Initialize(logger.DefaultConfig())
	log := logger.Get()
	defer logger.Sync()

	go cmd.CheckForUpdates()

	shutdownTracer, err := otel.InitTracer("maeum-api", log, os.Stdout)
	if err != nil {
		log.Fatal("failed to init tracer", zap.Error(err))
	}

	repo, err := sqlite.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}

	var cacheService cache.CacheService
	if cfg.Redis.Enabled {
		cacheService, err = cache.NewRedisCache(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("redis unavailable, caching disabled", zap.Error(err))
			cacheService = cache.NewNoopCache()
		}
	} else {
		cacheService = cache.NewNoopCache()
	}

	providers := buildProviders(cfg, log)
	if len(providers) == 0 {
		log.Warn("no vendor providers configured; every turn will fail in-band")
	}

	resolver := prompt.NewResolver(repo.Prompts(), cacheService, log)
	registry := pricing.NewRegistry()
	chatService := chat.NewService(repo, providers, resolver, registry, cfg.Chat, log)

	srv := server.New(cfg, log, chatService, repo, cmd.AppVersion)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.Handler(),
	}

	go func() {
		log.Info("starting server", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	if err := shutdownTracer(ctx); err != nil {
		log.Error("tracer shutdown failed", zap.Error(err))
	}
	if err := repo.Close(); err != nil {
		log.Error("store close failed", zap.Error(err))
	}
}

// buildProviders instantiates one adapter per enabled vendor config, keyed by
// family. A failing health check is logged but does not block startup; the
// vendor may recover before the first turn arrives.
func buildProviders(cfg *config.Config, log *zap.Logger) map[llm.Family]llm.Provider {
	providers := make(map[llm.Family]llm.Provider)

	for _, pCfg := range cfg.Providers {
		if !pCfg.Enabled {
			continue
		}
		if pCfg.APIKey == "" {
			log.Warn("provider has no api key, skipping", zap.String("id", pCfg.ID))
			continue
		}

		factory, err := llm.Get(pCfg.Type)
		if err != nil {
			log.Error("unknown provider type", zap.String("type", pCfg.Type), zap.Error(err))
			continue
		}

		provider, err := factory(pCfg)
		if err != nil {
			log.Error("provider init failed", zap.String("id", pCfg.ID), zap.Error(err))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := provider.Health(ctx); err != nil {
			log.Warn("provider health check failed", zap.String("id", pCfg.ID), zap.Error(err))
		}
		cancel()

		providers[provider.Family()] = provider
		log.Info("registered provider", zap.String("id", pCfg.ID), zap.String("family", string(provider.Family())))
	}

	return providers
}
