package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"knowhub/features/document"
	"knowhub/features/query"
	"knowhub/internal/adapter/pgstore"
	"knowhub/internal/cache"
	"knowhub/internal/config"
	"knowhub/internal/extract"
	"knowhub/internal/middleware"
	"knowhub/internal/retrieval"
	"knowhub/internal/worker"
)

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces an answer from a rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type App struct {
	Handler http.Handler
	Pool    *worker.Pool

	cfg *config.Config
}

// New wires every service and route. The embedder and generator are passed
// in so tests can swap the model provider for fakes.
func New(cfg *config.Config, db *sql.DB, embedder Embedder, generator Generator) (*App, error) {
	chunkStore := pgstore.New(db, cfg.EmbeddingDim)

	// Feature: Document
	docRepo := document.NewPostgresRepo(db)
	converter := extract.NewHTTPConverter(cfg.ExtractorURL)
	extractor := extract.NewService(converter)

	pool := worker.NewPool(cfg.IngestionWorkers)
	ingestor := worker.NewIngestor(embedder, chunkStore, docRepo, cfg.ChunkSize, cfg.ChunkOverlap)

	listCache := cache.New[[]document.Document](
		time.Duration(cfg.DocumentCacheTTLSeconds)*time.Second, cfg.DocumentCacheMaxEntries)
	docService := document.NewService(docRepo, chunkStore, extractor, ingestor, pool, cfg.UploadDir, listCache)
	docHandler := document.NewHandler(docService, cfg.MaxUploadSizeMB)

	// Feature: Query
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(embedder, chunkStore, queryLogger)

	historyRepo := query.NewPostgresRepo(db)
	queryService := query.NewService(retrievalService, generator, historyRepo,
		cfg.PromptTemplate, cfg.RetrievalTopK, cfg.HistoryLimit)
	queryHandler := query.NewHandler(queryService)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /documents", middleware.CorrelationID(enableCORS(docHandler.Upload)))
	mux.Handle("GET /documents", middleware.CorrelationID(enableCORS(docHandler.List)))
	mux.Handle("GET /documents/{id}", middleware.CorrelationID(enableCORS(docHandler.Get)))
	mux.Handle("DELETE /documents/{id}", middleware.CorrelationID(enableCORS(docHandler.Delete)))
	mux.Handle("POST /documents/{id}/reingest", middleware.CorrelationID(enableCORS(docHandler.Reingest)))

	mux.Handle("POST /query", middleware.CorrelationID(enableCORS(queryHandler.Ask)))
	mux.Handle("GET /query/history", middleware.CorrelationID(enableCORS(queryHandler.History)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{Handler: mux, Pool: pool, cfg: cfg}, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests and
// background ingestion before returning.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.ServerPort),
		Handler: a.Handler,
	}

	drained := make(chan struct{})
	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
		close(drained)
	}()

	slog.Info("server starting", "port", a.cfg.ServerPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	// ListenAndServe returns as soon as Shutdown starts; wait for the drain
	// so a handler mid-request can still submit its ingestion task, then
	// let those tasks finish.
	<-drained
	a.Pool.Close()
	return nil
}
