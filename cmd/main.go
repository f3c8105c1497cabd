package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/rating-board/clients"
	"github.com/Dosada05/rating-board/config"
	"github.com/Dosada05/rating-board/db"
	"github.com/Dosada05/rating-board/handlers"
	"github.com/Dosada05/rating-board/metrics"
	"github.com/Dosada05/rating-board/repositories"
	api "github.com/Dosada05/rating-board/routes"
	"github.com/Dosada05/rating-board/services"
	"github.com/Dosada05/rating-board/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.InitSchema(schemaCtx, dbConn); err != nil {
		cancelSchema()
		logger.Error("failed to initialize database schema", slog.Any("error", err))
		os.Exit(1)
	}
	cancelSchema()
	logger.Info("database schema initialized")

	// Метрики
	registry := prometheus.NewRegistry()
	syncMetrics := &metrics.SyncMetrics{}
	syncMetrics.Register(registry)

	// Клиенты внешних источников
	rosterClient := clients.NewTraqRosterClient(clients.TraqClientConfig{
		BaseURL:        cfg.TraqBaseURL,
		BotAccessToken: cfg.TraqBotToken,
	})
	linkageClient := clients.NewPortfolioLinkageClient(clients.PortfolioClientConfig{
		BaseURL: cfg.PortfolioBaseURL,
	})
	ratingClient := clients.NewAtCoderRatingClient(clients.AtCoderClientConfig{
		BaseURL: cfg.AtCoderBaseURL,
	}, logger, syncMetrics)
	logger.Info("source clients initialized")

	// Инициализация репозиториев и сервисов
	userRepo := repositories.NewPostgresUserRepository(dbConn)

	var exporter storage.SnapshotExporter
	if cfg.R2.Enabled() {
		exporter, err = storage.NewCloudflareR2Exporter(storage.CloudflareR2ExporterConfig{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			BucketName:      cfg.R2.BucketName,
			SnapshotKey:     cfg.R2.SnapshotKey,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 exporter", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 snapshot exporter initialized")
	}

	syncService := services.NewSyncService(
		rosterClient,
		linkageClient,
		ratingClient,
		userRepo,
		exporter,
		syncMetrics,
		logger,
	)
	userService := services.NewUserService(userRepo)
	logger.Info("services initialized")

	loc, err := time.LoadLocation(cfg.SyncTimezone)
	if err != nil {
		logger.Error("invalid SYNC_TIMEZONE", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler := services.NewSyncScheduler(syncService, logger, loc)

	// Первый запуск гейтит готовность процесса: при ошибке выходим.
	// Ошибки последующих запланированных запусков только логируются.
	if cfg.UpdateOnStart {
		logger.Info("running initial sync before serving")
		if err := scheduler.RunStartup(context.Background()); err != nil {
			logger.Error("initial sync failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go scheduler.Start(schedulerCtx)

	// Инициализация обработчиков HTTP
	userHandler := handlers.NewUserHandler(userService)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		userHandler,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	)
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		stopScheduler()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
