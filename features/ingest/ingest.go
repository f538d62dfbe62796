package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"tome/internal/loader"
	"tome/internal/text"
	"tome/internal/vector"
)

var ErrEmptyDocument = errors.New("document contains no extractable text")

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type ChunkStore interface {
	Add(ctx context.Context, chunks []vector.Chunk) error
	Count(ctx context.Context) (int, error)
}

type Result struct {
	Filename     string
	NumChunks    int
	NumDocuments int
	TotalInDB    int
}

type Service struct {
	embedder  Embedder
	store     ChunkStore
	chunkSize int
	overlap   int
}

func NewService(embedder Embedder, store ChunkStore, chunkSize, overlap int) *Service {
	return &Service{embedder: embedder, store: store, chunkSize: chunkSize, overlap: overlap}
}

// Ingest extracts, chunks, embeds and stores one uploaded document. Every
// chunk is embedded before anything is written, so an embedding failure
// leaves the store untouched; a failed Add fails the whole ingest.
func (s *Service) Ingest(ctx context.Context, path, filename string) (*Result, error) {
	content, err := loader.Extract(path)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyDocument
	}

	pieces, err := text.Split(content, s.chunkSize, s.overlap)
	if err != nil {
		return nil, fmt.Errorf("chunk document: %w", err)
	}
	slog.InfoContext(ctx, "document chunked", "filename", filename, "num_chunks", len(pieces))

	chunks := make([]vector.Chunk, len(pieces))
	for i, piece := range pieces {
		vec, err := s.embedder.Embed(ctx, piece)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		chunks[i] = vector.Chunk{
			ID:         uuid.New().String(),
			Content:    piece,
			Source:     filename,
			ChunkIndex: i,
			Vector:     vec,
			Metadata: map[string]string{
				"source":     filename,
				"file_type":  strings.ToLower(filepath.Ext(filename)),
				"chunk_size": strconv.Itoa(len(piece)),
			},
		}
	}

	if err := s.store.Add(ctx, chunks); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}

	total, err := s.store.Count(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to count chunks after ingest", "error", err)
		total = 0
	}

	slog.InfoContext(ctx, "document ingested", "filename", filename, "num_chunks", len(chunks), "total_in_db", total)

	return &Result{
		Filename:     filename,
		NumChunks:    len(chunks),
		NumDocuments: 1,
		TotalInDB:    total,
	}, nil
}
