package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"tome/features/document"
	"tome/features/ingest"
	"tome/features/query"
	"tome/features/stats"
	"tome/internal/agent"
	"tome/internal/config"
	"tome/internal/memory"
	"tome/internal/middleware"
	"tome/internal/vector"
)

// Embedder turns text into an embedding vector. Satisfied by the gemini
// adapter and by fakes in tests.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type App struct {
	Handler http.Handler
	Agent   *agent.Agent

	port int
}

func New(
	cfg *config.Config,
	store vector.Store,
	embedder Embedder,
	llm agent.LLM,
) (*App, error) {

	// Query log falls back to stdout when the file cannot be opened.
	queryLogger, err := agent.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = agent.NewQueryLogger(os.Stdout)
	}

	// Agent: retrieval tool + conversation memory
	conversations := memory.NewStore(cfg.MaxHistoryMessages)
	searchTool := agent.NewSearchTool(embedder, store, cfg.TopK)
	ragAgent := agent.New(llm, searchTool, conversations, queryLogger)

	// Feature: Query
	queryHandler := query.NewHandler(ragAgent)

	// Feature: Ingest
	ingestService := ingest.NewService(embedder, store, cfg.ChunkSize, cfg.ChunkOverlap)
	ingestHandler := ingest.NewHandler(ingestService, cfg.UploadDir, int(cfg.MaxUploadSizeMB))

	// Feature: Document
	documentService := document.NewService(embedder, store, cfg.TopK)
	documentHandler := document.NewHandler(documentService)

	// Feature: Stats
	statsHandler := stats.NewHandler(store, ragAgent, cfg)

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

	mux.Handle("POST /api/v1/query", middleware.CorrelationID(enableCORS(queryHandler.Ask)))
	mux.Handle("GET /api/v1/conversation/{id}", middleware.CorrelationID(enableCORS(queryHandler.GetConversation)))
	mux.Handle("DELETE /api/v1/conversation/{id}", middleware.CorrelationID(enableCORS(queryHandler.ClearConversation)))

	mux.Handle("POST /api/v1/ingest", middleware.CorrelationID(enableCORS(ingestHandler.Upload)))

	mux.Handle("GET /api/v1/documents", middleware.CorrelationID(enableCORS(documentHandler.List)))
	mux.Handle("DELETE /api/v1/documents/{source}", middleware.CorrelationID(enableCORS(documentHandler.Delete)))
	mux.Handle("POST /api/v1/reset", middleware.CorrelationID(enableCORS(documentHandler.Reset)))
	mux.Handle("GET /api/v1/search", middleware.CorrelationID(enableCORS(documentHandler.Search)))

	mux.Handle("GET /api/v1/stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))
	mux.Handle("GET /health", middleware.CorrelationID(enableCORS(statsHandler.Health)))
	mux.Handle("GET /{$}", middleware.CorrelationID(enableCORS(statsHandler.Index))) // exact match, not a catch-all

	return &App{
		Handler: mux,
		Agent:   ragAgent,
		port:    cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
