package weaviate_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	adapter "tome/internal/adapter/weaviate"
	"tome/internal/vector"
)

func mockWeaviate(t *testing.T, handler http.HandlerFunc) (*weaviate.Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	cfg := weaviate.Config{Host: ts.Listener.Addr().String(), Scheme: "http"}
	client, err := weaviate.NewClient(cfg)
	assert.NoError(t, err)
	return client, ts
}

func meta(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Path == "/v1/meta" {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"version": "1.33.0"}`))
		return true
	}
	return false
}

func TestStore_Add(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if meta(w, r) {
			return
		}
		assert.Equal(t, "/v1/objects", r.URL.Path)
		assert.Equal(t, "POST", r.Method)

		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "DocumentChunk", body["class"])
		props := body["properties"].(map[string]interface{})
		assert.Equal(t, "test content", props["content"])
		assert.Equal(t, "notes.txt", props["source"])
		assert.Equal(t, 0.0, props["chunkIndex"])

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{"id": body["id"]})
	})
	defer ts.Close()

	store := adapter.NewStore(client, "DocumentChunk", 2, ts.Listener.Addr().String())
	err := store.Add(context.Background(), []vector.Chunk{{
		ID:         "7d0c3e2f-15ab-4b1e-9c50-0cf8f70c9a20",
		Content:    "test content",
		Source:     "notes.txt",
		ChunkIndex: 0,
		Vector:     []float32{0.1, 0.2},
	}})
	assert.NoError(t, err)
}

func TestStore_Add_DimensionMismatch(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if meta(w, r) {
			return
		}
		t.Errorf("unexpected request to %s", r.URL.Path)
	})
	defer ts.Close()

	store := adapter.NewStore(client, "DocumentChunk", 4, ts.Listener.Addr().String())
	err := store.Add(context.Background(), []vector.Chunk{{
		Content: "short vector",
		Vector:  []float32{0.1, 0.2},
	}})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, vector.ErrDimensionMismatch))
}

func TestStore_Query(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if meta(w, r) {
			return
		}
		assert.Equal(t, "/v1/graphql", r.URL.Path)

		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		query := body["query"].(string)
		assert.Contains(t, query, "nearVector")
		assert.Contains(t, query, "limit: 5")
		assert.Contains(t, query, "certainty")

		w.WriteHeader(http.StatusOK)
		resp := map[string]interface{}{
			"data": map[string]interface{}{
				"Get": map[string]interface{}{
					"DocumentChunk": []interface{}{
						map[string]interface{}{
							"content":    "found content",
							"source":     "notes.txt",
							"chunkIndex": 2.0,
							"_additional": map[string]interface{}{
								"id":        "chunk-id-1",
								"certainty": 0.9,
							},
						},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})
	defer ts.Close()

	store := adapter.NewStore(client, "DocumentChunk", 2, ts.Listener.Addr().String())
	matches, err := store.Query(context.Background(), []float32{0.1, 0.2}, 5)
	assert.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Equal(t, "found content", matches[0].Content)
	assert.Equal(t, "notes.txt", matches[0].Source)
	assert.Equal(t, 2, matches[0].ChunkIndex)
	assert.Equal(t, "chunk-id-1", matches[0].ID)
	assert.InDelta(t, 0.8, matches[0].Score, 1e-9)
}

func TestStore_Query_DimensionMismatch(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if meta(w, r) {
			return
		}
		t.Errorf("unexpected request to %s", r.URL.Path)
	})
	defer ts.Close()

	store := adapter.NewStore(client, "DocumentChunk", 4, ts.Listener.Addr().String())
	_, err := store.Query(context.Background(), []float32{0.1}, 5)
	assert.True(t, errors.Is(err, vector.ErrDimensionMismatch))
}

func TestStore_DeleteBySource(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if meta(w, r) {
			return
		}
		assert.Equal(t, "/v1/batch/objects", r.URL.Path)
		assert.Equal(t, "DELETE", r.Method)

		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		match := body["match"].(map[string]interface{})
		assert.Equal(t, "DocumentChunk", match["class"])

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": map[string]interface{}{
				"matches":    3,
				"successful": 3,
				"failed":     0,
			},
		})
	})
	defer ts.Close()

	store := adapter.NewStore(client, "DocumentChunk", 2, ts.Listener.Addr().String())
	deleted, err := store.DeleteBySource(context.Background(), "notes.txt")
	assert.NoError(t, err)
	assert.Equal(t, 3, deleted)
}

func TestStore_ListAll_Pagination(t *testing.T) {
	pages := 0
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if meta(w, r) {
			return
		}
		assert.Equal(t, "/v1/graphql", r.URL.Path)

		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		query := body["query"].(string)

		var rows []interface{}
		if pages == 0 {
			assert.Contains(t, query, "offset: 0")
			for i := 0; i < 100; i++ {
				rows = append(rows, map[string]interface{}{
					"content":    fmt.Sprintf("chunk %d", i),
					"source":     "big.pdf",
					"chunkIndex": float64(i),
					"_additional": map[string]interface{}{
						"id":     fmt.Sprintf("id-%d", i),
						"vector": []interface{}{0.1, 0.2},
					},
				})
			}
		} else {
			assert.Contains(t, query, "offset: 100")
			rows = append(rows, map[string]interface{}{
				"content":    "chunk 100",
				"source":     "big.pdf",
				"chunkIndex": 100.0,
				"_additional": map[string]interface{}{
					"id":     "id-100",
					"vector": []interface{}{0.3, 0.4},
				},
			})
		}
		pages++

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"Get": map[string]interface{}{"DocumentChunk": rows},
			},
		})
	})
	defer ts.Close()

	store := adapter.NewStore(client, "DocumentChunk", 2, ts.Listener.Addr().String())
	chunks, err := store.ListAll(context.Background())
	assert.NoError(t, err)
	assert.Len(t, chunks, 101)
	assert.Equal(t, 2, pages)
	assert.Equal(t, "chunk 100", chunks[100].Content)
	assert.Equal(t, []float32{0.3, 0.4}, chunks[100].Vector)
}

func TestStore_Reset(t *testing.T) {
	var calls []string
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if meta(w, r) {
			return
		}
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == "DELETE" && r.URL.Path == "/v1/schema/DocumentChunk":
			w.WriteHeader(http.StatusOK)
		case r.Method == "GET" && r.URL.Path == "/v1/schema/DocumentChunk":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == "POST" && r.URL.Path == "/v1/schema":
			var body map[string]interface{}
			json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "DocumentChunk", body["class"])
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
	defer ts.Close()

	store := adapter.NewStore(client, "DocumentChunk", 2, ts.Listener.Addr().String())
	err := store.Reset(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{
		"DELETE /v1/schema/DocumentChunk",
		"GET /v1/schema/DocumentChunk",
		"POST /v1/schema",
	}, calls)
}

func TestStore_Count(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if meta(w, r) {
			return
		}
		assert.Equal(t, "/v1/graphql", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		resp := map[string]interface{}{
			"data": map[string]interface{}{
				"Aggregate": map[string]interface{}{
					"DocumentChunk": []interface{}{
						map[string]interface{}{
							"meta": map[string]interface{}{
								"count": 42.0,
							},
						},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})
	defer ts.Close()

	store := adapter.NewStore(client, "DocumentChunk", 2, ts.Listener.Addr().String())
	count, err := store.Count(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestStore_Stats(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if meta(w, r) {
			return
		}
		w.WriteHeader(http.StatusOK)
		resp := map[string]interface{}{
			"data": map[string]interface{}{
				"Aggregate": map[string]interface{}{
					"DocumentChunk": []interface{}{
						map[string]interface{}{
							"meta": map[string]interface{}{"count": 7.0},
						},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})
	defer ts.Close()

	store := adapter.NewStore(client, "DocumentChunk", 2, "vectors.example.com:443")
	stats, err := store.Stats(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "weaviate", stats.Type)
	assert.Equal(t, "DocumentChunk", stats.Collection)
	assert.Equal(t, 7, stats.DocumentCount)
	assert.Equal(t, "vectors.example.com:443", stats.Host)
}
