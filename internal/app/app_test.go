package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tome/internal/adapter/bolt"
	"tome/internal/agent"
	"tome/internal/config"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

type stubLLM struct{}

func (stubLLM) Model() string { return "test-model" }

func (stubLLM) Complete(ctx context.Context, messages []agent.Message) (string, error) {
	return "stub answer", nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Model:              "test-model",
		EmbeddingModel:     "text-embedding-004",
		EmbeddingDimension: 3,
		VectorStoreType:    config.StoreBolt,
		CollectionName:     "documents",
		TopK:               5,
		ChunkSize:          1000,
		ChunkOverlap:       200,
		MaxHistoryMessages: 20,
		ServerPort:         8000,
		QueryLogPath:       filepath.Join(t.TempDir(), "query.log"),
		MaxUploadSizeMB:    50,
		UploadDir:          t.TempDir(),
	}
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)

	store, err := bolt.Open(t.TempDir(), cfg.CollectionName, cfg.EmbeddingDimension)
	require.NoError(t, err)
	defer store.Close()

	application, err := New(cfg, store, stubEmbedder{}, stubLLM{})
	assert.NoError(t, err)
	assert.NotNil(t, application)
	assert.NotNil(t, application.Handler)
	assert.NotNil(t, application.Agent)

	// Verify Route (Integration-ish)
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	application.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNew_IndexDoesNotSwallowUnknownPaths(t *testing.T) {
	cfg := testConfig(t)

	store, err := bolt.Open(t.TempDir(), cfg.CollectionName, cfg.EmbeddingDimension)
	require.NoError(t, err)
	defer store.Close()

	application, err := New(cfg, store, stubEmbedder{}, stubLLM{})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	application.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest("GET", "/nope", nil)
	w = httptest.NewRecorder()
	application.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNew_CORSHeaders(t *testing.T) {
	cfg := testConfig(t)

	store, err := bolt.Open(t.TempDir(), cfg.CollectionName, cfg.EmbeddingDimension)
	require.NoError(t, err)
	defer store.Close()

	application, err := New(cfg, store, stubEmbedder{}, stubLLM{})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	application.Handler.ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
