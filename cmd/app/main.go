// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blueprint-chat/internal/config"
	"blueprint-chat/internal/infra/adapters/fetch"
	"blueprint-chat/internal/infra/adapters/provider"
	pg "blueprint-chat/internal/infra/db/postgres"
	"blueprint-chat/internal/infra/logging"
	"blueprint-chat/internal/infra/metrics"
	red "blueprint-chat/internal/infra/redis"
	"blueprint-chat/internal/infra/web"
	"blueprint-chat/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	sessionRepo := pg.NewChatSessionRepo(pool)
	docRepo := pg.NewDocumentRepo(pool)

	// ---- Provider adapter (constructed once, injected everywhere) ----
	openai, err := provider.NewOpenAIProvider(cfg.Provider.APIKey, cfg.Provider.BaseURL, cfg.Provider.Model)
	if err != nil {
		logger.Fatal().Err(err).Msg("openai provider")
	}
	fetcher := fetch.NewHTTPFetcher(cfg.Ingest.FetchTimeout, 0)
	tokens := provider.NewTiktokenCounter(cfg.Provider.Model)

	// ---- Use cases ----
	ingestUC := usecase.NewIngestUseCase(fetcher, openai, openai, logger)
	poller := usecase.NewIndexingPoller(openai, cfg.Ingest, logger)
	convUC := usecase.NewConversationUseCase(openai)
	sessionUC := usecase.NewSessionUseCase(
		sessionRepo, docRepo,
		ingestUC, poller, convUC,
		openai, openai, openai, tokens,
		locker, logger,
	)

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Server.JWTSecret, cfg.Server.JWTTTL)
	srv := web.NewServer(sessionUC, docRepo, auth, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
