// Package vector defines the chunk model and the storage contract shared by
// every vector store backend.
package vector

import (
	"context"
	"errors"
)

var (
	// ErrDimensionMismatch is returned when a chunk's embedding does not have
	// the dimension the store was configured with.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Chunk is the unit of storage and retrieval. Chunks from the same document
// share a Source and carry contiguous ChunkIndex values starting at 0.
type Chunk struct {
	ID         string            `json:"id"`
	Content    string            `json:"content"`
	Source     string            `json:"source"`
	ChunkIndex int               `json:"chunk_index"`
	Vector     []float32         `json:"embedding,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Match is a chunk returned from a similarity query together with its cosine
// similarity to the query vector.
type Match struct {
	Chunk
	Score float64
}

// Stats describes a backend for the stats endpoint. PersistDirectory is set
// by the embedded backend, Host by the remote one.
type Stats struct {
	Type             string
	Collection       string
	DocumentCount    int
	PersistDirectory string
	Host             string
}

// Store is the full contract a backend must satisfy. Features depend on
// narrower views of it; the app wires one concrete backend at startup.
type Store interface {
	// Add persists chunks with their embeddings. Every chunk must carry a
	// vector of the configured dimension.
	Add(ctx context.Context, chunks []Chunk) error

	// Query returns up to k chunks closest to the given vector, ordered by
	// descending similarity.
	Query(ctx context.Context, vector []float32, k int) ([]Match, error)

	// DeleteBySource removes every chunk of one document and reports how many
	// were removed. Deleting an absent source is not an error.
	DeleteBySource(ctx context.Context, source string) (int, error)

	// ListAll returns every stored chunk.
	ListAll(ctx context.Context) ([]Chunk, error)

	// Reset removes all chunks from the collection.
	Reset(ctx context.Context) error

	// Count reports the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Stats reports backend identity and size.
	Stats(ctx context.Context) (Stats, error)
}
