package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"tome/internal/adapter/gemini"
)

func TestEmbedder_Embed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": map[string]interface{}{
				"values": []float32{0.1, 0.2, 0.3},
			},
		})
	}))
	defer ts.Close()

	embedder, err := gemini.NewEmbedder(context.Background(), "test-key", "text-embedding-004",
		option.WithEndpoint(ts.URL))
	require.NoError(t, err)
	defer embedder.Close()

	vec, err := embedder.Embed(context.Background(), "hello world")
	assert.NoError(t, err)
	if assert.Len(t, vec, 3) {
		assert.Equal(t, float32(0.1), vec[0])
	}
	assert.Equal(t, "text-embedding-004", embedder.Model())
}

func TestEmbedder_EmptyResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	defer ts.Close()

	embedder, err := gemini.NewEmbedder(context.Background(), "test-key", "text-embedding-004",
		option.WithEndpoint(ts.URL))
	require.NoError(t, err)
	defer embedder.Close()

	vec, err := embedder.Embed(context.Background(), "hello")
	assert.Error(t, err)
	assert.Nil(t, vec)
}
