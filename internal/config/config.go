package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

const (
	StoreBolt     = "bolt"
	StoreWeaviate = "weaviate"
)

type Config struct {
	// LLM
	GroqAPIKey  string  `envconfig:"GROQ_API_KEY"`
	GroqBaseURL string  `envconfig:"GROQ_BASE_URL" default:"https://api.groq.com/openai/v1"`
	Model       string  `envconfig:"DEFAULT_MODEL" default:"llama-3.3-70b-versatile"`
	Temperature float32 `envconfig:"TEMPERATURE" default:"0.0"`
	MaxTokens   int     `envconfig:"MAX_TOKENS" default:"1024"`

	// Embeddings
	GeminiAPIKey       string `envconfig:"GEMINI_API_KEY"`
	EmbeddingModel     string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004"`
	EmbeddingDimension int    `envconfig:"EMBEDDING_DIMENSION" default:"768"`

	// Vector store
	VectorStoreType  string `envconfig:"VECTOR_STORE_TYPE" default:"bolt"`
	PersistDirectory string `envconfig:"PERSIST_DIRECTORY" default:"./data/vectorstore"`
	CollectionName   string `envconfig:"COLLECTION_NAME" default:"documents"`
	WeaviateHost     string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme   string `envconfig:"WEAVIATE_SCHEME" default:"http"`
	WeaviateAPIKey   string `envconfig:"WEAVIATE_API_KEY"`

	// Retrieval
	TopK         int `envconfig:"TOP_K" default:"5"`
	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"200"`

	// Conversation
	MaxHistoryMessages int `envconfig:"MAX_HISTORY_MESSAGES" default:"20"`

	// Server
	ServerPort      int    `envconfig:"SERVER_PORT" default:"8000"`
	QueryLogPath    string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
	MaxUploadSizeMB int64  `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`
	UploadDir       string `envconfig:"UPLOAD_DIR" default:"./uploads"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.GroqAPIKey == "" {
		return fmt.Errorf("%w: GROQ_API_KEY", ErrMissingRequired)
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingRequired)
	}
	switch c.VectorStoreType {
	case StoreBolt, StoreWeaviate:
	default:
		return fmt.Errorf("unknown VECTOR_STORE_TYPE %q (want %q or %q)", c.VectorStoreType, StoreBolt, StoreWeaviate)
	}
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", c.EmbeddingDimension)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	if c.MaxHistoryMessages <= 0 {
		return fmt.Errorf("MAX_HISTORY_MESSAGES must be positive, got %d", c.MaxHistoryMessages)
	}
	return nil
}
