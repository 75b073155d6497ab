package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/filedepot/filedepot/internal/api/handlers"
	"github.com/filedepot/filedepot/internal/api/routes"
	"github.com/filedepot/filedepot/internal/config"
	"github.com/filedepot/filedepot/internal/database"
	"github.com/filedepot/filedepot/internal/logger"
	custommiddleware "github.com/filedepot/filedepot/internal/middleware"
	"github.com/filedepot/filedepot/internal/pagination"
	"github.com/filedepot/filedepot/internal/repository"
	"github.com/filedepot/filedepot/internal/scanner"
	"github.com/filedepot/filedepot/internal/scheduler"
	"github.com/filedepot/filedepot/internal/service"
	"github.com/filedepot/filedepot/internal/storage"
	"github.com/filedepot/filedepot/internal/upload"
)

func main() {
	_ = godotenv.Load()
	slog.SetDefault(logger.Init())

	ctx := context.Background()

	slog.Info("starting filedepot upload service",
		slog.String("version", "1.0.0"),
	)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	db, err := database.NewDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to initialize database",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.MigrateUp(ctx, cfg.DatabaseSchema); err != nil {
		slog.Error("failed to migrate database",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	repo, err := database.NewRepository(db.Pool, cfg.DatabaseSchema)
	if err != nil {
		slog.Error("invalid database schema",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	slog.Info("database initialized successfully",
		slog.String("schema", cfg.DatabaseSchema),
	)

	blobs, err := storage.NewMinIOStore(ctx, storage.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		UseSSL:    cfg.MinioUseSSL,
		Bucket:    cfg.MinioBucket,
	})
	if err != nil {
		slog.Error("failed to initialize MinIO",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	slog.Info("minio client initialized successfully",
		slog.String("bucket", cfg.MinioBucket),
	)

	var scan scanner.Scanner = scanner.Noop{}
	if cfg.ScanEnabled {
		scan = scanner.NewHTTPScanner(cfg.ScannerURL, blobs)
	}

	countCache := pagination.NewMemoryCountCache(cfg.CountCacheSize)
	paginationConfig := pagination.Config{
		LazyCountEnabled:        cfg.LazyCountEnabled,
		LazyCountThresholdPages: cfg.LazyCountThresholdPages,
		MaxCountTime:            cfg.MaxCountTime,
		CountCacheTTL:           cfg.CountCacheTTL,
	}

	sessions := repository.NewSessionRepository(repo)
	files := repository.NewFileRepository(repo, countCache, paginationConfig)

	coordinator := upload.NewCoordinator(sessions, files, blobs, scan, upload.Config{
		DefaultChunkSize:  cfg.UploadChunkSize,
		SessionTTL:        cfg.UploadSessionTTL,
		MaxRetries:        cfg.UploadMaxRetries,
		ChecksumAlgorithm: cfg.ChecksumAlgorithm,
		ScanEnabled:       cfg.ScanEnabled,
		StorageProvider:   "minio",
	})

	sweeper := service.NewSweepService(sessions, blobs, cfg.SweepBatchSize)
	sched := scheduler.New(sweeper, cfg.SweepInterval)
	sched.Start(ctx)

	r := chi.NewRouter()

	r.Use(custommiddleware.CORS)
	r.Use(logger.RequestLogger)
	r.Use(logger.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	uploadHandler := handlers.NewUploadHandler(coordinator)
	fileHandler := handlers.NewFileHandler(files, blobs)

	r.Mount("/api/v1/uploads", routes.UploadRoutes(uploadHandler))
	r.Mount("/api/v1/files", routes.FileRoutes(fileHandler))

	slog.Info("server starting",
		slog.String("port", cfg.ServerPort),
		slog.String("address", fmt.Sprintf("http://localhost:%s", cfg.ServerPort)),
	)

	if err := http.ListenAndServe(":"+cfg.ServerPort, r); err != nil {
		slog.Error("server failed",
			slog.String("error", err.Error()),
			slog.String("port", cfg.ServerPort),
		)
		os.Exit(1)
	}
}
