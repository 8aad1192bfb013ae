// Package vectorstore defines the similarity-index contract used by the memory store.
package vectorstore

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by callers holding a nil store.
var ErrUnavailable = errors.New("vector store unavailable")

type VectorStore interface {
	Upsert(ctx context.Context, namespace string, vectors []Vector) error
	// Query returns matches ordered by score, highest first.
	Query(ctx context.Context, namespace string, q Query) ([]VectorMatch, error)
	DeleteIDs(ctx context.Context, namespace string, ids []string) error
}

type Vector struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// Query filters use a small operator language: {"field": value}, {"field": {"$in": [...]}},
// {"field": {"$nin": [...]}}, {"field": {"$ne": v}}, plus "$and", "$or", "$not".
type Query struct {
	Vector   []float32
	TopK     int
	MinScore float64
	Filter   map[string]any
}

type VectorMatch struct {
	ID       string
	Score    float64
	Metadata map[string]any
}
