package agent

import (
	"context"
	"fmt"

	"tome/internal/vector"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Searcher interface {
	Query(ctx context.Context, vector []float32, k int) ([]vector.Match, error)
}

// Tool is a named capability the agent can invoke while answering.
type Tool struct {
	Name        string
	Description string
	Run         func(ctx context.Context, query string) ([]vector.Match, error)
}

// NewSearchTool wraps embed-then-query against the vector store. k is the
// fixed number of chunks requested per invocation.
func NewSearchTool(embedder Embedder, store Searcher, k int) *Tool {
	return &Tool{
		Name:        "semantic_search",
		Description: "Search the knowledge base using semantic similarity.",
		Run: func(ctx context.Context, query string) ([]vector.Match, error) {
			vec, err := embedder.Embed(ctx, query)
			if err != nil {
				return nil, fmt.Errorf("embed query: %w", err)
			}
			return store.Query(ctx, vec, k)
		},
	}
}
