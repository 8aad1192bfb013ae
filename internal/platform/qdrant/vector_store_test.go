package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
	"github.com/yungbote/neurobridge-coach/internal/platform/vectorstore"
)

func TestVectorStoreUpsertRequestShape(t *testing.T) {
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPut {
			t.Fatalf("method: want=%s got=%s", http.MethodPut, r.Method)
		}
		if r.URL.Path != "/collections/memories/points" || r.URL.RawQuery != "wait=true" {
			t.Fatalf("url: got=%s?%s", r.URL.Path, r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	meta := map[string]any{"learner_id": "l-1", "tags": []string{"algebra"}}
	err := s.Upsert(context.Background(), "memories", []vectorstore.Vector{
		{ID: "mem-1", Values: []float32{1, 2, 3}, Metadata: meta},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	points, _ := captured["points"].([]any)
	if len(points) != 1 {
		t.Fatalf("points length: want=1 got=%d", len(points))
	}
	first, _ := points[0].(map[string]any)
	if first["id"] != s.pointID("coach:memories", "mem-1") {
		t.Fatalf("point id mismatch: got=%v", first["id"])
	}
	payload, _ := first["payload"].(map[string]any)
	if payload[payloadNamespaceKey] != "coach:memories" || payload[payloadVectorIDKey] != "mem-1" {
		t.Fatalf("payload bookkeeping keys missing: %v", payload)
	}
	if payload["learner_id"] != "l-1" {
		t.Fatalf("metadata not forwarded: %v", payload)
	}
	if _, exists := meta[payloadNamespaceKey]; exists {
		t.Fatalf("input metadata mutated")
	}
}

func TestVectorStoreUpsertValidatesDimension(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	err := s.Upsert(context.Background(), "memories", []vectorstore.Vector{{ID: "m", Values: []float32{1}}})
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Code != OperationErrorValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVectorStoreQueryAppliesMinScoreAndOrdering(t *testing.T) {
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/memories/points/search" {
			t.Fatalf("path: got=%q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, []map[string]any{
			{"id": "p-low", "score": 0.2, "payload": map[string]any{payloadVectorIDKey: "mem-low"}},
			{"id": "p-mid", "score": 0.55, "payload": map[string]any{payloadVectorIDKey: "mem-mid", "tags": []any{"x"}}},
			{"id": "p-high", "score": 0.91, "payload": map[string]any{payloadVectorIDKey: "mem-high"}},
		}), nil
	})

	matches, err := s.Query(context.Background(), "memories", vectorstore.Query{
		Vector:   []float32{1, 2, 3},
		TopK:     5,
		MinScore: 0.3,
		Filter:   map[string]any{"learner_id": "l-1"},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 2 || matches[0].ID != "mem-high" || matches[1].ID != "mem-mid" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
	if _, leaked := matches[1].Metadata[payloadVectorIDKey]; leaked {
		t.Fatalf("bookkeeping keys must be stripped from metadata")
	}
	if matches[1].Metadata["tags"] == nil {
		t.Fatalf("payload metadata missing")
	}

	filter, _ := captured["filter"].(map[string]any)
	must, _ := filter["must"].([]any)
	if findConditionByKey(must, payloadNamespaceKey) == nil || findConditionByKey(must, "learner_id") == nil {
		t.Fatalf("filter missing namespace or learner: %v", filter)
	}
}

func TestVectorStoreQueryNormalizesEuclid(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		return okResponse(t, []map[string]any{
			{"id": "a", "score": 3.0, "payload": map[string]any{payloadVectorIDKey: "far"}},
			{"id": "b", "score": 0.1, "payload": map[string]any{payloadVectorIDKey: "near"}},
		}), nil
	})
	s.distance = "Euclid"
	matches, err := s.Query(context.Background(), "memories", vectorstore.Query{Vector: []float32{1, 2, 3}})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if matches[0].ID != "near" || !(matches[0].Score > matches[1].Score) {
		t.Fatalf("expected near first with higher normalized score: %+v", matches)
	}
}

func TestVectorStoreDeleteIDsDedupes(t *testing.T) {
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/memories/points/delete" {
			t.Fatalf("path: got=%q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})
	if err := s.DeleteIDs(context.Background(), "memories", []string{"m1", "m1", " ", "m2"}); err != nil {
		t.Fatalf("DeleteIDs: %v", err)
	}
	points, _ := captured["points"].([]any)
	if len(points) != 2 {
		t.Fatalf("points length: want=2 got=%d", len(points))
	}
}

func TestVectorStoreNilIsUnavailable(t *testing.T) {
	var s *vectorStore
	if _, err := s.Query(context.Background(), "x", vectorstore.Query{Vector: []float32{1}}); !errors.Is(err, vectorstore.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestBootstrapCreatesMissingCollection(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		switch {
		case r.URL.Path == "/readyz":
			return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: io.NopCloser(strings.NewReader(""))}, nil
		case r.Method == http.MethodGet && r.URL.Path == "/collections/memories":
			return &http.Response{StatusCode: http.StatusNotFound, Header: http.Header{}, Body: io.NopCloser(strings.NewReader(`{"status":{"error":"not found"}}`))}, nil
		default:
			return okResponse(t, true), nil
		}
	})
	s.cfg.CreateCollection = true
	if err := s.bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	// readyz, get, create, one index per indexed field
	if want := 3 + len(indexedPayloadFields); len(calls) != want {
		t.Fatalf("calls: want=%d got=%d (%v)", want, len(calls), calls)
	}
	if calls[2] != "PUT /collections/memories" {
		t.Fatalf("expected collection create, got %q", calls[2])
	}
	if s.distance != "Cosine" {
		t.Fatalf("distance not set after create: %q", s.distance)
	}
}

func TestBootstrapRejectsDimensionMismatch(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == "/readyz" {
			return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: io.NopCloser(strings.NewReader(""))}, nil
		}
		return okResponse(t, map[string]any{
			"config": map[string]any{"params": map[string]any{"vectors": map[string]any{"size": 8, "distance": "Cosine"}}},
		}), nil
	})
	err := s.bootstrap(context.Background())
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Code != OperationErrorValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIsUnavailable(t *testing.T) {
	if !IsUnavailable(classifyHTTPCallError("query", "boom", fmt.Errorf("connection refused"))) {
		t.Fatalf("transport failure should be unavailable")
	}
	if !IsUnavailable(classifyHTTPCallError("query", "slow", context.DeadlineExceeded)) {
		t.Fatalf("timeout should be unavailable")
	}
	if IsUnavailable(opErr("query", OperationErrorValidation, "bad", nil)) {
		t.Fatalf("validation failure is not an outage")
	}
	if !IsUnavailable(&OperationError{Code: OperationErrorQueryFailed, StatusCode: 503}) {
		t.Fatalf("5xx should be unavailable")
	}
}

func newTestVectorStore(t *testing.T, roundTrip func(*http.Request) (*http.Response, error)) *vectorStore {
	t.Helper()
	return &vectorStore{
		log:      logger.Nop(),
		cfg:      Config{Collection: "memories", VectorDim: 3},
		baseURL:  "http://qdrant.local",
		nsPrefix: "coach",
		http:     &http.Client{Transport: roundTripFunc(roundTrip)},
		distance: "Cosine",
	}
}

func okResponse(t *testing.T, result any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"result": result, "status": "ok", "time": 0.001})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
