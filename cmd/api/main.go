package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/kiwipeso/kiwipeso/internal/advisory"
	"github.com/kiwipeso/kiwipeso/internal/camera"
	"github.com/kiwipeso/kiwipeso/internal/config"
	"github.com/kiwipeso/kiwipeso/internal/database"
	"github.com/kiwipeso/kiwipeso/internal/history"
	kiwipesoHttp "github.com/kiwipeso/kiwipeso/internal/http"
	advisoriesHandler "github.com/kiwipeso/kiwipeso/internal/http/advisories"
	captureHandler "github.com/kiwipeso/kiwipeso/internal/http/capture"
	historyHandler "github.com/kiwipeso/kiwipeso/internal/http/history"
	rateHandler "github.com/kiwipeso/kiwipeso/internal/http/rate"
	"github.com/kiwipeso/kiwipeso/internal/rate"
	"github.com/kiwipeso/kiwipeso/internal/recognize"
	fileStore "github.com/kiwipeso/kiwipeso/internal/storage/file"
	memoryStore "github.com/kiwipeso/kiwipeso/internal/storage/memory"
	postgresStore "github.com/kiwipeso/kiwipeso/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	board := advisory.NewBoard()

	store, err := newStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}

	historyService := history.NewService(store, board)
	historyService.Load(ctx)

	rateProvider := rate.NewProvider(cfg.Rate.BaseURL, board)
	rateProvider.Refresh(ctx)

	scheduler, err := rate.NewScheduler(rateProvider, cfg.Rate.RefreshSpec)
	if err != nil {
		slog.Error("failed to schedule rate refresh", "spec", cfg.Rate.RefreshSpec, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	engine, err := recognize.NewGeminiEngine(ctx, cfg.Recognize.APIKey, cfg.Recognize.Model)
	if err != nil {
		slog.Error("failed to create recognition engine", "error", err)
		os.Exit(1)
	}

	var (
		pipeline = recognize.NewPipeline(engine, board, cfg.Recognize.Lang)
		session  = camera.NewSession(newFrameSource(cfg), board)
	)

	var (
		historyH    = historyHandler.NewHandler(historyService, rateProvider)
		rateH       = rateHandler.NewHandler(rateProvider)
		captureH    = captureHandler.NewHandler(session, pipeline, historyService, rateProvider)
		advisoriesH = advisoriesHandler.NewHandler(board)
	)

	router := kiwipesoHttp.New(historyH, rateH, captureH, advisoriesH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "app", cfg.App.Name, "port", port)

	server := &http.Server{
		Addr:         port,
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	if err := server.ListenAndServe(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newStore(ctx context.Context, cfg *config.Config) (history.Store, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := database.New(cfg.ConnectionString())
		if err != nil {
			return nil, err
		}

		return postgresStore.New(ctx, db)
	case "memory":
		return memoryStore.New(), nil
	default:
		return fileStore.New(cfg.Storage.Dir, cfg.Storage.QuotaBytes)
	}
}

func newFrameSource(cfg *config.Config) camera.FrameSource {
	if cfg.Camera.SnapshotURL == "" {
		return nil
	}

	return camera.NewHTTPSource(cfg.Camera.SnapshotURL)
}
