package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode"
	"unicode/utf8"

	"tome/internal/adapter/bolt"
	"tome/internal/adapter/gemini"
	"tome/internal/adapter/groq"
	wstore "tome/internal/adapter/weaviate"
	"tome/internal/config"
	"tome/internal/vector"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
)

type Dependencies struct {
	Store    vector.Store
	Embedder *gemini.Embedder
	LLM      *groq.Client

	// Only the embedded backend holds a file handle that needs closing.
	boltStore *bolt.Store
}

func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	// Embeddings
	embedder, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("gemini embedder error: %w", err)
	}

	// Chat completions
	llm := groq.NewClient(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.Model, cfg.Temperature, cfg.MaxTokens)

	deps := &Dependencies{Embedder: embedder, LLM: llm}

	// Vector store
	switch cfg.VectorStoreType {
	case config.StoreBolt:
		store, err := bolt.Open(cfg.PersistDirectory, cfg.CollectionName, cfg.EmbeddingDimension)
		if err != nil {
			return nil, fmt.Errorf("bolt store error: %w", err)
		}
		deps.Store = store
		deps.boltStore = store

	case config.StoreWeaviate:
		wCfg := weaviate.Config{Host: cfg.WeaviateHost, Scheme: cfg.WeaviateScheme}
		if cfg.WeaviateAPIKey != "" {
			wCfg.AuthConfig = auth.ApiKey{Value: cfg.WeaviateAPIKey}
		}
		wClient, err := weaviate.NewClient(wCfg)
		if err != nil {
			return nil, fmt.Errorf("weaviate client error: %w", err)
		}

		class := className(cfg.CollectionName)
		retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
		if err := EnsureSchemaWithRetry(ctx, wstore.NewSchemaAdapter(wClient), class, cfg.BootstrapRetryAttempts, retryDelay); err != nil {
			return nil, fmt.Errorf("weaviate schema error: %w", err)
		}
		deps.Store = wstore.NewStore(wClient, class, cfg.EmbeddingDimension, cfg.WeaviateHost)

	default:
		return nil, fmt.Errorf("unknown vector store type %q", cfg.VectorStoreType)
	}

	return deps, nil
}

// Close releases whatever the chosen backend keeps open.
func (d *Dependencies) Close() {
	if d.boltStore != nil {
		if err := d.boltStore.Close(); err != nil {
			slog.Error("failed to close vector store", "error", err)
		}
	}
	if d.Embedder != nil {
		if err := d.Embedder.Close(); err != nil {
			slog.Error("failed to close embedder", "error", err)
		}
	}
}

// EnsureSchemaWithRetry keeps trying the schema check; weaviate may still
// be starting when the process comes up.
func EnsureSchemaWithRetry(ctx context.Context, client wstore.SchemaClient, class string, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = wstore.EnsureSchema(ctx, client, class); err == nil {
			return nil
		}
		if i < attempts-1 {
			slog.Warn("failed to ensure weaviate schema, retrying...", "attempt", i+1, "error", err)
			time.Sleep(delay)
		}
	}
	return err
}

// className derives the weaviate class from the collection name.
// Weaviate requires class names to start with an upper-case letter.
func className(collection string) string {
	r, size := utf8.DecodeRuneInString(collection)
	if r == utf8.RuneError {
		return "Documents"
	}
	return string(unicode.ToUpper(r)) + collection[size:]
}
