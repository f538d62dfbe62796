package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"tome/internal/agent"
	"tome/internal/memory"
	"tome/internal/middleware"
)

// Agent is the orchestrator view this feature needs.
type Agent interface {
	Query(ctx context.Context, question, conversationID string) (agent.Result, error)
	History(conversationID string) []memory.Turn
	ClearMemory(conversationID string) bool
}

type Handler struct {
	agent Agent
}

func NewHandler(a Agent) *Handler {
	return &Handler{agent: a}
}

type queryMetadata struct {
	Model     string `json:"model"`
	ToolsUsed int    `json:"tools_used"`
}

type queryResponse struct {
	Answer         string        `json:"answer"`
	Question       string        `json:"question"`
	ConversationID string        `json:"conversation_id"`
	Metadata       queryMetadata `json:"metadata"`
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question       string `json:"question"`
		ConversationID string `json:"conversation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Question is required", http.StatusBadRequest)
		return
	}

	// Callers without a conversation id get a fresh one so the exchange is
	// still recorded and the id can be reused on the next turn.
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	result, err := h.agent.Query(r.Context(), req.Question, conversationID)
	if err != nil {
		slog.ErrorContext(r.Context(), "query failed", "error", err)
		h.writeError(r.Context(), w, "UPSTREAM_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := queryResponse{
		Answer:         result.Answer,
		Question:       req.Question,
		ConversationID: conversationID,
		Metadata:       queryMetadata{Model: result.Model, ToolsUsed: result.ToolsUsed},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	turns := h.agent.History(id)
	// Ensure we return [] instead of null for unknown conversations
	if turns == nil {
		turns = []memory.Turn{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"conversation_id": id,
		"messages":        turns,
		"count":           len(turns),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) ClearConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// Clearing an unknown conversation is a no-op, not an error.
	h.agent.ClearMemory(id)
	slog.InfoContext(r.Context(), "conversation cleared", "conversation_id", id)

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Cleared conversation %s", id),
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
