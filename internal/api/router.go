package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/paperlane/docpipe/internal/api/handlers"
	"github.com/paperlane/docpipe/internal/api/middleware"
	"github.com/paperlane/docpipe/internal/cache"
	"github.com/paperlane/docpipe/internal/config"
	"github.com/paperlane/docpipe/internal/extract"
	"github.com/paperlane/docpipe/internal/finance"
	"github.com/paperlane/docpipe/internal/indexer"
	"github.com/paperlane/docpipe/internal/llm"
	"github.com/paperlane/docpipe/internal/ocr"
	"github.com/paperlane/docpipe/internal/pdf"
	"github.com/paperlane/docpipe/internal/queue"
	"github.com/paperlane/docpipe/internal/review"
	"github.com/paperlane/docpipe/internal/searchindex"
	"github.com/paperlane/docpipe/internal/storage"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
	store storage.Storage
	llmGW llm.Gateway
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, store storage.Storage, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
		store: store,
		llmGW: llm.NewGateway(cfg.LLM),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Services
	searchClient := searchindex.NewClient(rt.cfg.Search)
	modelURI := fmt.Sprintf("gpt://%s/%s", rt.cfg.LLM.FolderID, rt.cfg.LLM.Model)
	indexSvc := indexer.NewService(rt.db, rt.store, searchClient, modelURI)
	queueClient := queue.NewClient(rt.cfg.Redis)

	detector := ocr.NewTesseractDetector(
		ocr.WithLanguage(rt.cfg.OCR.Language),
		ocr.WithPageSegMode(rt.cfg.OCR.PageSegMode),
	)
	extractSvc := extract.NewService(detector, pdf.NewRasterizer(rt.cfg.OCR.DPI), rt.cfg.Table)

	reviewSvc := review.NewService(rt.llmGW, cache.NewCache(rt.redis), rt.cfg.LLM.Temperature, rt.cfg.LLM.MaxTokens)
	verifier := finance.NewVerifier(rt.llmGW)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKey(rt.cfg.Auth.APIKeyHeader, rt.cfg.Auth.APIKey))

		docH := handlers.NewDocumentHandler(indexSvc, rt.db, queueClient)
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", docH.Upload)
			r.Get("/", docH.List)
			r.Get("/{id}", docH.Get)
			r.Delete("/{id}", docH.Delete)
			r.Post("/{id}/extract", docH.Extract)
		})
		r.Get("/extractions/{extractionID}", docH.ExtractionStatus)

		idxH := handlers.NewIndexHandler(indexSvc, queueClient)
		r.Route("/indexes", func(r chi.Router) {
			r.Post("/", idxH.Create)
			r.Get("/", idxH.List)
			r.Get("/{id}", idxH.Get)
			r.Delete("/{id}", idxH.Delete)
			r.Post("/{id}/search", idxH.Search)
		})

		extH := handlers.NewExtractHandler(extractSvc)
		r.Post("/extract/table", extH.TableFromImage)

		revH := handlers.NewReviewHandler(reviewSvc)
		r.Post("/review", revH.Review)

		finH := handlers.NewFinanceHandler(verifier)
		r.Post("/finance/verify", finH.Verify)
	})

	return r
}
