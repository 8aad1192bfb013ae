// Package coachtest holds in-memory fakes of the model and vector clients for package tests.
package coachtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/neurobridge-coach/internal/platform/vectorstore"
)

// FakeAI answers GenerateJSON by schema name. Missing responses return an error.
type FakeAI struct {
	mu sync.Mutex

	JSON     map[string]map[string]any
	JSONErr  map[string]error
	Text     string
	Vector   []float32
	EmbedErr error
	// EmbedFn overrides Vector when set.
	EmbedFn func(text string) []float32

	Calls  map[string]int
	Embeds []string
}

func NewFakeAI() *FakeAI {
	return &FakeAI{
		JSON:    map[string]map[string]any{},
		JSONErr: map[string]error{},
		Calls:   map[string]int{},
		Vector:  []float32{1, 0, 0},
	}
}

func (f *FakeAI) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["embed"]++
	f.Embeds = append(f.Embeds, inputs...)
	if f.EmbedErr != nil {
		return nil, f.EmbedErr
	}
	out := make([][]float32, 0, len(inputs))
	for _, in := range inputs {
		if f.EmbedFn != nil {
			out = append(out, f.EmbedFn(in))
			continue
		}
		out = append(out, append([]float32(nil), f.Vector...))
	}
	return out, nil
}

func (f *FakeAI) GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[schemaName]++
	if err := f.JSONErr[schemaName]; err != nil {
		return nil, err
	}
	obj, ok := f.JSON[schemaName]
	if !ok {
		return nil, fmt.Errorf("no fake response for %s", schemaName)
	}
	return obj, nil
}

func (f *FakeAI) GenerateText(ctx context.Context, system string, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["text"]++
	return f.Text, nil
}

func (f *FakeAI) CallCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[name]
}

// FakeVectors records upserts and serves Query from Matches or fails with Err.
type FakeVectors struct {
	mu       sync.Mutex
	Upserted []vectorstore.Vector
	Queries  []vectorstore.Query
	Matches  []vectorstore.VectorMatch
	Err      error
}

func (f *FakeVectors) Upsert(ctx context.Context, namespace string, vectors []vectorstore.Vector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Upserted = append(f.Upserted, vectors...)
	return nil
}

func (f *FakeVectors) Query(ctx context.Context, namespace string, q vectorstore.Query) ([]vectorstore.VectorMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries = append(f.Queries, q)
	if f.Err != nil {
		return nil, f.Err
	}
	return append([]vectorstore.VectorMatch(nil), f.Matches...), nil
}

func (f *FakeVectors) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	return f.Err
}
