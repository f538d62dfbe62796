package document

import (
	"context"
	"fmt"
	"sort"

	"tome/internal/vector"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the vector store view this feature needs.
type Store interface {
	ListAll(ctx context.Context) ([]vector.Chunk, error)
	DeleteBySource(ctx context.Context, source string) (int, error)
	Reset(ctx context.Context) error
	Query(ctx context.Context, vec []float32, k int) ([]vector.Match, error)
}

type ChunkInfo struct {
	ID            string            `json:"id"`
	Content       string            `json:"content"`
	ChunkIndex    int               `json:"chunk_index"`
	Metadata      map[string]string `json:"metadata"`
	EmbeddingDim  int               `json:"embedding_dim"`
	ContentLength int               `json:"content_length"`
}

type Document struct {
	Source      string      `json:"source"`
	Chunks      []ChunkInfo `json:"chunks"`
	TotalChunks int         `json:"total_chunks"`
}

type Listing struct {
	Documents      []Document `json:"documents"`
	TotalDocuments int        `json:"total_documents"`
	TotalChunks    int        `json:"total_chunks"`
}

type Service struct {
	embedder Embedder
	store    Store
	topK     int
}

func NewService(embedder Embedder, store Store, topK int) *Service {
	return &Service{embedder: embedder, store: store, topK: topK}
}

// List groups every stored chunk by source document. Documents are sorted
// by source and chunks by index so repeated calls render identically.
func (s *Service) List(ctx context.Context) (*Listing, error) {
	chunks, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	bySource := make(map[string]*Document)
	for _, c := range chunks {
		doc, ok := bySource[c.Source]
		if !ok {
			doc = &Document{Source: c.Source}
			bySource[c.Source] = doc
		}
		doc.Chunks = append(doc.Chunks, ChunkInfo{
			ID:            c.ID,
			Content:       c.Content,
			ChunkIndex:    c.ChunkIndex,
			Metadata:      c.Metadata,
			EmbeddingDim:  len(c.Vector),
			ContentLength: len(c.Content),
		})
		doc.TotalChunks++
	}

	documents := make([]Document, 0, len(bySource))
	for _, doc := range bySource {
		sort.Slice(doc.Chunks, func(i, j int) bool { return doc.Chunks[i].ChunkIndex < doc.Chunks[j].ChunkIndex })
		documents = append(documents, *doc)
	}
	sort.Slice(documents, func(i, j int) bool { return documents[i].Source < documents[j].Source })

	return &Listing{
		Documents:      documents,
		TotalDocuments: len(documents),
		TotalChunks:    len(chunks),
	}, nil
}

// Delete removes every chunk of one source and reports how many went away.
func (s *Service) Delete(ctx context.Context, source string) (int, error) {
	return s.store.DeleteBySource(ctx, source)
}

// Reset drops the whole collection.
func (s *Service) Reset(ctx context.Context) error {
	return s.store.Reset(ctx)
}

// Search embeds the query and returns the k nearest chunks without
// involving the chat model. k <= 0 falls back to the configured top-k.
func (s *Service) Search(ctx context.Context, query string, k int) ([]vector.Match, error) {
	if k <= 0 {
		k = s.topK
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.store.Query(ctx, vec, k)
}
