package weaviate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"tome/internal/vector"
)

const listPageSize = 100

// Store persists chunks in a Weaviate class with externally supplied vectors.
type Store struct {
	client    *weaviate.Client
	class     string
	dimension int
	host      string
}

func NewStore(client *weaviate.Client, class string, dimension int, host string) *Store {
	return &Store{client: client, class: class, dimension: dimension, host: host}
}

func (s *Store) Add(ctx context.Context, chunks []vector.Chunk) error {
	for _, chunk := range chunks {
		if len(chunk.Vector) != s.dimension {
			return fmt.Errorf("chunk %d: %w: got %d, want %d",
				chunk.ChunkIndex, vector.ErrDimensionMismatch, len(chunk.Vector), s.dimension)
		}
	}

	for _, chunk := range chunks {
		metadata, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for chunk %d: %w", chunk.ChunkIndex, err)
		}

		_, err = s.client.Data().Creator().
			WithClassName(s.class).
			WithID(chunk.ID).
			WithProperties(map[string]interface{}{
				"content":    chunk.Content,
				"source":     chunk.Source,
				"chunkIndex": chunk.ChunkIndex,
				"metadata":   string(metadata),
			}).
			WithVector(chunk.Vector).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("store chunk %d of %s: %w", chunk.ChunkIndex, chunk.Source, err)
		}
	}
	return nil
}

func (s *Store) Query(ctx context.Context, queryVector []float32, k int) ([]vector.Match, error) {
	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("query: %w: got %d, want %d",
			vector.ErrDimensionMismatch, len(queryVector), s.dimension)
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(queryVector)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "source"},
		{Name: "chunkIndex"},
		{Name: "metadata"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "certainty"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithNearVector(nearVector).
		WithLimit(k).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var matches []vector.Match
	for _, props := range s.classObjects(res.Data) {
		match := vector.Match{Chunk: chunkFromProps(props)}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if id, ok := additional["id"].(string); ok {
				match.ID = id
			}
			if certainty, ok := additional["certainty"].(float64); ok {
				// Weaviate reports certainty = (1 + cosine) / 2.
				match.Score = 2*certainty - 1
			}
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func (s *Store) DeleteBySource(ctx context.Context, source string) (int, error) {
	res, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(s.class).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"source"}).
			WithOperator(filters.Equal).
			WithValueString(source)).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if res == nil || res.Results == nil {
		return 0, nil
	}
	return int(res.Results.Successful), nil
}

func (s *Store) ListAll(ctx context.Context) ([]vector.Chunk, error) {
	fields := []graphql.Field{
		{Name: "content"},
		{Name: "source"},
		{Name: "chunkIndex"},
		{Name: "metadata"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "vector"}}},
	}

	var chunks []vector.Chunk
	for offset := 0; ; offset += listPageSize {
		res, err := s.client.GraphQL().Get().
			WithClassName(s.class).
			WithLimit(listPageSize).
			WithOffset(offset).
			WithFields(fields...).
			Do(ctx)
		if err != nil {
			return nil, err
		}
		if len(res.Errors) > 0 {
			return nil, fmt.Errorf("graphql error: %v", res.Errors)
		}

		page := s.classObjects(res.Data)
		for _, props := range page {
			chunk := chunkFromProps(props)
			if additional, ok := props["_additional"].(map[string]interface{}); ok {
				if id, ok := additional["id"].(string); ok {
					chunk.ID = id
				}
				if raw, ok := additional["vector"].([]interface{}); ok {
					chunk.Vector = make([]float32, 0, len(raw))
					for _, v := range raw {
						if f, ok := v.(float64); ok {
							chunk.Vector = append(chunk.Vector, float32(f))
						}
					}
				}
			}
			chunks = append(chunks, chunk)
		}

		if len(page) < listPageSize {
			return chunks, nil
		}
	}
}

// Reset drops the class and recreates it empty.
func (s *Store) Reset(ctx context.Context) error {
	err := s.client.Schema().ClassDeleter().WithClassName(s.class).Do(ctx)
	if err != nil {
		return fmt.Errorf("drop class %s: %w", s.class, err)
	}
	return EnsureSchema(ctx, NewSchemaAdapter(s.client), s.class)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(s.class).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors)
	}

	if data, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if rows, ok := data[s.class].([]interface{}); ok && len(rows) > 0 {
			if row, ok := rows[0].(map[string]interface{}); ok {
				if meta, ok := row["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}
	return 0, nil
}

func (s *Store) Stats(ctx context.Context) (vector.Stats, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return vector.Stats{}, err
	}
	return vector.Stats{
		Type:          "weaviate",
		Collection:    s.class,
		DocumentCount: count,
		Host:          s.host,
	}, nil
}

func (s *Store) classObjects(data map[string]models.JSONObject) []map[string]interface{} {
	var objects []map[string]interface{}
	if get, ok := data["Get"].(map[string]interface{}); ok {
		if rows, ok := get[s.class].([]interface{}); ok {
			for _, row := range rows {
				if props, ok := row.(map[string]interface{}); ok {
					objects = append(objects, props)
				}
			}
		}
	}
	return objects
}

func chunkFromProps(props map[string]interface{}) vector.Chunk {
	chunk := vector.Chunk{}
	if content, ok := props["content"].(string); ok {
		chunk.Content = content
	}
	if source, ok := props["source"].(string); ok {
		chunk.Source = source
	}
	if idx, ok := props["chunkIndex"].(float64); ok {
		chunk.ChunkIndex = int(idx)
	}
	if raw, ok := props["metadata"].(string); ok && raw != "" {
		_ = json.Unmarshal([]byte(raw), &chunk.Metadata)
	}
	return chunk
}
