package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"strings"
	"time"

	"github.com/yungbote/neurobridge-coach/internal/observability"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
	"github.com/yungbote/neurobridge-coach/internal/platform/qdrant"
	"github.com/yungbote/neurobridge-coach/internal/platform/vectorstore"
)

var (
	qdrantConfigured     = qdrant.Configured
	resolveQdrantConfig  = qdrant.ResolveConfigFromEnv
	newQdrantVectorStore = qdrant.NewVectorStore
)

type VectorBootstrapErrorCode string

const (
	VectorBootstrapMissingURL       VectorBootstrapErrorCode = "missing_qdrant_url"
	VectorBootstrapInvalidURL       VectorBootstrapErrorCode = "invalid_qdrant_url"
	VectorBootstrapMissingColl      VectorBootstrapErrorCode = "missing_qdrant_collection"
	VectorBootstrapMissingVectorDim VectorBootstrapErrorCode = "missing_qdrant_vector_dim"
	VectorBootstrapInvalidVectorDim VectorBootstrapErrorCode = "invalid_qdrant_vector_dim"
	VectorBootstrapConfigFailed     VectorBootstrapErrorCode = "qdrant_config_failed"
	VectorBootstrapConnectFailed    VectorBootstrapErrorCode = "connect_failed"
	VectorBootstrapInitFailed       VectorBootstrapErrorCode = "provider_init_failed"
)

type VectorBootstrapError struct {
	Code  VectorBootstrapErrorCode
	Cause error
}

func (e *VectorBootstrapError) Error() string {
	if e == nil {
		return "vector index bootstrap failed"
	}
	return fmt.Sprintf("vector index bootstrap failed (code=%s): %v", e.Code, e.Cause)
}

func (e *VectorBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveVectorStore returns (nil, nil) when QDRANT_URL is unset; the memory store then scans
// stored embeddings and falls back to lexical search. A configured but unreachable index is a
// startup error unless VECTOR_OPTIONAL is set, in which case it is logged and skipped.
func resolveVectorStore(ctx context.Context, log *logger.Logger, optional bool) (vectorstore.VectorStore, error) {
	metrics := observability.Current()
	if !qdrantConfigured() {
		log.Info("QDRANT_URL unset; memory retrieval runs without a vector index")
		metrics.ObserveVectorStoreBootstrap("disabled", "")
		return nil, nil
	}

	cfg, err := resolveQdrantConfig()
	if err == nil {
		log.Info("Connecting vector index",
			"qdrant_url", cfg.URL,
			"qdrant_collection", cfg.Collection,
			"qdrant_namespace_prefix", cfg.NamespacePrefix,
			"qdrant_vector_dim", cfg.VectorDim,
		)
		var vs vectorstore.VectorStore
		vs, err = newQdrantVectorStore(ctx, log, cfg)
		if err == nil {
			metrics.ObserveVectorStoreBootstrap("success", "")
			return instrumentVectorStore(vs), nil
		}
	}

	classified := classifyVectorBootstrapError(err)
	code := vectorBootstrapErrorCode(classified)
	if optional {
		log.Warn("Vector index unavailable; continuing without it", "error_code", code, "error", classified)
		metrics.ObserveVectorStoreBootstrap("degraded", string(code))
		return nil, nil
	}
	log.Error("Vector index bootstrap failed", "error_code", code, "error", classified)
	metrics.ObserveVectorStoreBootstrap("error", string(code))
	return nil, classified
}

func classifyVectorBootstrapError(err error) error {
	var urlErr *neturl.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return &VectorBootstrapError{Code: VectorBootstrapConnectFailed, Cause: err}
	}
	errLower := strings.ToLower(err.Error())
	if strings.Contains(errLower, "ready check failed") || strings.Contains(errLower, "connection refused") {
		return &VectorBootstrapError{Code: VectorBootstrapConnectFailed, Cause: err}
	}

	var cfgErr *qdrant.ConfigError
	if errors.As(err, &cfgErr) {
		code := VectorBootstrapConfigFailed
		switch cfgErr.Code {
		case qdrant.ConfigErrorMissingURL:
			code = VectorBootstrapMissingURL
		case qdrant.ConfigErrorInvalidURL:
			code = VectorBootstrapInvalidURL
		case qdrant.ConfigErrorMissingCollection:
			code = VectorBootstrapMissingColl
		case qdrant.ConfigErrorMissingVectorDim:
			code = VectorBootstrapMissingVectorDim
		case qdrant.ConfigErrorInvalidVectorDim:
			code = VectorBootstrapInvalidVectorDim
		}
		return &VectorBootstrapError{Code: code, Cause: err}
	}
	return &VectorBootstrapError{Code: VectorBootstrapInitFailed, Cause: err}
}

func vectorBootstrapErrorCode(err error) VectorBootstrapErrorCode {
	var bootstrapErr *VectorBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return VectorBootstrapConnectFailed
}

type instrumentedVectorStore struct {
	inner vectorstore.VectorStore
}

func instrumentVectorStore(inner vectorstore.VectorStore) vectorstore.VectorStore {
	if inner == nil {
		return nil
	}
	return &instrumentedVectorStore{inner: inner}
}

func (s *instrumentedVectorStore) Upsert(ctx context.Context, namespace string, vectors []vectorstore.Vector) error {
	start := time.Now()
	err := s.inner.Upsert(ctx, namespace, vectors)
	observeVectorOp("upsert", err, start)
	return err
}

func (s *instrumentedVectorStore) Query(ctx context.Context, namespace string, q vectorstore.Query) ([]vectorstore.VectorMatch, error) {
	start := time.Now()
	out, err := s.inner.Query(ctx, namespace, q)
	observeVectorOp("query", err, start)
	return out, err
}

func (s *instrumentedVectorStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	start := time.Now()
	err := s.inner.DeleteIDs(ctx, namespace, ids)
	observeVectorOp("delete_ids", err, start)
	return err
}

func observeVectorOp(operation string, err error, start time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.Current().ObserveVectorStoreOperation(operation, status, time.Since(start))
}
