package document

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"tome/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list documents", "error", err)
		h.writeError(r.Context(), w, "UPSTREAM_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	// Ensure we return [] instead of null for an empty store
	if listing.Documents == nil {
		listing.Documents = []Document{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(listing); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	source := r.PathValue("source")

	deleted, err := h.service.Delete(r.Context(), source)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to delete document", "error", err, "source", source)
		h.writeError(r.Context(), w, "UPSTREAM_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	if deleted == 0 {
		h.writeError(r.Context(), w, "NOT_FOUND", fmt.Sprintf("No documents found with source: %s", source), http.StatusNotFound)
		return
	}

	slog.InfoContext(r.Context(), "document deleted", "source", source, "chunks", deleted)

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Deleted document '%s' (%d chunks)", source, deleted),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reset(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "failed to reset vector store", "error", err)
		h.writeError(r.Context(), w, "UPSTREAM_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	slog.InfoContext(r.Context(), "vector store reset")

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]string{
		"status":  "success",
		"message": "Vector store reset successfully",
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type searchResult struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if strings.TrimSpace(query) == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Query is required", http.StatusBadRequest)
		return
	}

	k := 0
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeError(r.Context(), w, "VALIDATION_ERROR", "k must be a positive integer", http.StatusBadRequest)
			return
		}
		k = parsed
	}

	matches, err := h.service.Search(r.Context(), query, k)
	if err != nil {
		slog.ErrorContext(r.Context(), "search failed", "error", err, "query", query)
		h.writeError(r.Context(), w, "UPSTREAM_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	results := make([]searchResult, len(matches))
	for i, m := range matches {
		results[i] = searchResult{Content: m.Content, Metadata: m.Metadata, Score: m.Score}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"query":   query,
		"results": results,
		"count":   len(results),
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
