package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/adapter/repo"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/domain"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/http/handlers"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/http/httpapi"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/infra"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/jobs"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/providers/fal"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/providers/image"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/storage"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Job store
	var jobRepo domain.JobRepository
	switch cfg.JobStore {
	case infra.JobStoreMemory:
		logger.Warn().Msg("using in-memory job store; jobs are lost on restart")
		jobRepo = repo.NewMemoryJobRepository()
	default:
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()
		pgRepo := repo.NewJobRepository(infra.NewSQLRunner(dbpool, logger))
		if err := pgRepo.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate jobs table")
		}
		jobRepo = pgRepo
	}

	// Source image storage
	var assets storage.AssetStore
	switch cfg.StorageBackend {
	case infra.StorageMinio:
		assets, err = storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		assets, err = storage.NewFileStore(cfg.UploadDir)
	}
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("failed to initialise storage")
	}

	// Provider
	falClient, err := fal.NewClient(fal.Options{
		APIKey:       cfg.FalAPIKey,
		BaseURL:      cfg.FalQueueURL,
		PollInterval: cfg.FalPollInterval,
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create provider client")
	}
	registry, err := image.NewRegistry(falClient, cfg.DefaultModel, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build model registry")
	}

	manager := jobs.NewManager(jobRepo, assets, logger)
	dispatcher := jobs.NewDispatcher(context.Background(), manager, assets, registry, logger, jobs.DispatcherOptions{
		Concurrency: cfg.DispatchWorkers,
		Timeout:     cfg.DispatchTimeout,
	})

	app := handlers.NewApp(cfg, manager, dispatcher, assets, registry, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("job_store", cfg.JobStore).
			Str("storage", cfg.StorageBackend).
			Str("default_model", registry.DefaultName()).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelDrain()
	if err := dispatcher.Shutdown(drainCtx); err != nil {
		logger.Warn().Err(err).Msg("dispatcher did not drain in time; running jobs recorded as failed, queued jobs left pending")
	}
	logger.Info().Msg("server stopped")
}
