package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"tome/internal/loader"
	"tome/internal/middleware"
)

type Handler struct {
	service   *Service
	uploadDir string
	maxBytes  int64
}

func NewHandler(service *Service, uploadDir string, maxUploadMB int) *Handler {
	return &Handler{
		service:   service,
		uploadDir: uploadDir,
		maxBytes:  int64(maxUploadMB) << 20,
	}
}

type ingestMetadata struct {
	Filename     string `json:"filename"`
	NumChunks    int    `json:"num_chunks"`
	NumDocuments int    `json:"num_documents"`
	TotalInDB    int    `json:"total_in_db"`
}

type ingestResponse struct {
	Status   string         `json:"status"`
	Message  string         `json:"message"`
	Metadata ingestMetadata `json:"metadata"`
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "File too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "Unable to retrieve file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !loader.Supported(header.Filename) {
		msg := fmt.Sprintf("Unsupported file type: %s. Allowed: %s",
			strings.ToLower(filepath.Ext(header.Filename)), strings.Join(loader.Extensions(), ", "))
		h.writeError(r.Context(), w, "VALIDATION_ERROR", msg, http.StatusBadRequest)
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil { // #nosec G703 -- uploadDir from config, not user-controlled
		slog.Error("failed to create upload directory", "error", err, "path", filepath.Clean(h.uploadDir))
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Failed to create upload directory", http.StatusInternalServerError)
		return
	}

	// Scratch copy for the extractors; removed once ingestion finishes.
	filename := fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(header.Filename))
	path := filepath.Clean(filepath.Join(h.uploadDir, filename))

	dst, err := os.Create(path) // #nosec G304 G703 -- path is constructed from UUID + sanitized basename, not user-controlled
	if err != nil {
		slog.Error("failed to create file", "error", err, "path", path) // #nosec G706 -- path is UUID-based, not raw user input
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Failed to save file", http.StatusInternalServerError)
		return
	}
	defer func() {
		if removeErr := os.Remove(path); removeErr != nil { // #nosec G703 -- path is UUID-based, not raw user input
			slog.Warn("failed to clean up uploaded file", "error", removeErr, "path", filepath.Clean(path))
		}
	}()

	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Failed to write file", http.StatusInternalServerError)
		return
	}
	if err := dst.Close(); err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Failed to write file", http.StatusInternalServerError)
		return
	}

	result, err := h.service.Ingest(r.Context(), path, header.Filename)
	if err != nil {
		if errors.Is(err, ErrEmptyDocument) || errors.Is(err, loader.ErrUnsupportedType) {
			h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(r.Context(), "ingest failed", "error", err, "filename", header.Filename)
		h.writeError(r.Context(), w, "UPSTREAM_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := ingestResponse{
		Status:  "success",
		Message: fmt.Sprintf("Successfully ingested %s", result.Filename),
		Metadata: ingestMetadata{
			Filename:     result.Filename,
			NumChunks:    result.NumChunks,
			NumDocuments: result.NumDocuments,
			TotalInDB:    result.TotalInDB,
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
