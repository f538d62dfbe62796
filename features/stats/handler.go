package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"tome/internal/config"
	"tome/internal/middleware"
	"tome/internal/vector"
)

// StatsStore is the vector store view this feature needs.
type StatsStore interface {
	Stats(ctx context.Context) (vector.Stats, error)
}

// AgentInfo describes the orchestrator for the stats payload.
type AgentInfo interface {
	Tools() []string
	Model() string
	MemoryEnabled() bool
}

type Handler struct {
	store StatsStore
	agent AgentInfo
	cfg   *config.Config
}

func NewHandler(store StatsStore, agent AgentInfo, cfg *config.Config) *Handler {
	return &Handler{store: store, agent: agent, cfg: cfg}
}

type vectorStoreStats struct {
	Type             string `json:"type"`
	Collection       string `json:"collection"`
	DocumentCount    int    `json:"document_count"`
	PersistDirectory string `json:"persist_directory"`
	EmbeddingModel   string `json:"embedding_model"`
}

type agentStats struct {
	Tools         []string `json:"tools"`
	Model         string   `json:"model"`
	MemoryEnabled bool     `json:"memory_enabled"`
	Temperature   float32  `json:"temperature"`
	MaxTokens     int      `json:"max_tokens"`
	TopK          int      `json:"top_k"`
}

type statsResponse struct {
	VectorStore vectorStoreStats `json:"vector_store"`
	Agent       agentStats       `json:"agent"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	st, err := h.store.Stats(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read store stats", "error", err)
		h.writeError(ctx, w, "UPSTREAM_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	// The embedded backend reports a directory, the remote one a host.
	location := st.PersistDirectory
	if location == "" {
		location = st.Host
	}

	resp := statsResponse{
		VectorStore: vectorStoreStats{
			Type:             strings.ToUpper(st.Type),
			Collection:       st.Collection,
			DocumentCount:    st.DocumentCount,
			PersistDirectory: location,
			EmbeddingModel:   h.cfg.EmbeddingModel,
		},
		Agent: agentStats{
			Tools:         h.agent.Tools(),
			Model:         h.agent.Model(),
			MemoryEnabled: h.agent.MemoryEnabled(),
			Temperature:   h.cfg.Temperature,
			MaxTokens:     h.cfg.MaxTokens,
			TopK:          h.cfg.TopK,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// Health reports liveness. It never fails the request: a broken store
// turns the payload unhealthy but the endpoint still answers 200.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	st, err := h.store.Stats(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "health check failed", "error", err)
		resp := map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		}
		if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
			slog.Error("failed to encode response", "error", encErr)
		}
		return
	}

	resp := map[string]interface{}{
		"status":       "healthy",
		"model":        h.agent.Model(),
		"vector_store": st.Type,
		"documents":    st.DocumentCount,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Index lists the main endpoints at the root path.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"message": "Document chat API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"query":  "/api/v1/query",
			"ingest": "/api/v1/ingest",
			"stats":  "/api/v1/stats",
			"search": "/api/v1/search",
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
