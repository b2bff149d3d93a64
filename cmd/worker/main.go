package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/paperlane/docpipe/internal/config"
	"github.com/paperlane/docpipe/internal/database"
	"github.com/paperlane/docpipe/internal/extract"
	"github.com/paperlane/docpipe/internal/indexer"
	"github.com/paperlane/docpipe/internal/ocr"
	"github.com/paperlane/docpipe/internal/pdf"
	"github.com/paperlane/docpipe/internal/queue"
	"github.com/paperlane/docpipe/internal/queue/workers"
	"github.com/paperlane/docpipe/internal/searchindex"
	"github.com/paperlane/docpipe/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store, err := storage.NewS3Storage(ctx, cfg.Storage)
	if err != nil {
		slog.Error("object storage unavailable", "error", err)
		os.Exit(1)
	}

	searchClient := searchindex.NewClient(cfg.Search)
	modelURI := fmt.Sprintf("gpt://%s/%s", cfg.LLM.FolderID, cfg.LLM.Model)
	indexSvc := indexer.NewService(db, store, searchClient, modelURI)

	detector := ocr.NewTesseractDetector(
		ocr.WithLanguage(cfg.OCR.Language),
		ocr.WithPageSegMode(cfg.OCR.PageSegMode),
	)
	extractSvc := extract.NewService(detector, pdf.NewRasterizer(cfg.OCR.DPI), cfg.Table)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	extractWorker := workers.NewExtractWorker(db, indexSvc, store, extractSvc)
	indexWorker := workers.NewIndexWorker(indexSvc)

	registry.Register(queue.TypeExtractTable, asynq.HandlerFunc(extractWorker.ProcessTask))
	registry.Register(queue.TypeExtractText, asynq.HandlerFunc(extractWorker.ProcessTask))
	registry.Register(queue.TypeIndexBuild, asynq.HandlerFunc(indexWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
