// Package bolt implements the vector store on a local bbolt file. Queries
// scan every stored chunk and rank by cosine similarity, which is fine for
// the single-node corpus sizes this backend is meant for.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"tome/internal/vector"
)

type Store struct {
	db        *bbolt.DB
	bucket    []byte
	dimension int
	directory string
}

// Open creates or opens <dir>/<collection>.db with a single bucket named
// after the collection.
func Open(dir, collection string, dimension int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create persist directory: %w", err)
	}

	path := filepath.Join(dir, collection+".db")
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	bucket := []byte(collection)
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, bucket: bucket, dimension: dimension, directory: dir}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Add(ctx context.Context, chunks []vector.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, chunk := range chunks {
		if len(chunk.Vector) != s.dimension {
			return fmt.Errorf("chunk %d: %w: got %d, want %d",
				chunk.ChunkIndex, vector.ErrDimensionMismatch, len(chunk.Vector), s.dimension)
		}
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for _, chunk := range chunks {
			data, err := json.Marshal(chunk)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(chunk.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Query(ctx context.Context, queryVector []float32, k int) ([]vector.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("query: %w: got %d, want %d",
			vector.ErrDimensionMismatch, len(queryVector), s.dimension)
	}

	var matches []vector.Match
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(_, data []byte) error {
			var chunk vector.Chunk
			if err := json.Unmarshal(data, &chunk); err != nil {
				return err
			}
			matches = append(matches, vector.Match{
				Chunk: chunk,
				Score: cosineSimilarity(queryVector, chunk.Vector),
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *Store) DeleteBySource(ctx context.Context, source string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	deleted := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)

		var keys [][]byte
		err := b.ForEach(func(key, data []byte) error {
			var chunk vector.Chunk
			if err := json.Unmarshal(data, &chunk); err != nil {
				return err
			}
			if chunk.Source == source {
				keys = append(keys, append([]byte(nil), key...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, key := range keys {
			if err := b.Delete(key); err != nil {
				return err
			}
		}
		deleted = len(keys)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *Store) ListAll(ctx context.Context) ([]vector.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var chunks []vector.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(_, data []byte) error {
			var chunk vector.Chunk
			if err := json.Unmarshal(data, &chunk); err != nil {
				return err
			}
			chunks = append(chunks, chunk)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

func (s *Store) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(s.bucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(s.bucket)
		return err
	})
}

func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return count, err
}

func (s *Store) Stats(ctx context.Context) (vector.Stats, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return vector.Stats{}, err
	}
	return vector.Stats{
		Type:             "bolt",
		Collection:       string(s.bucket),
		DocumentCount:    count,
		PersistDirectory: s.directory,
	}, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
