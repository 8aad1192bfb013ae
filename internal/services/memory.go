package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/memory"
	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

// MemoryStore is the subset of the memory module the API exposes.
type MemoryStore interface {
	Add(ctx context.Context, in memory.AddInput) (*types.Memory, error)
	FindSimilar(ctx context.Context, learnerID uuid.UUID, query string, opts memory.SearchOptions) (memory.SearchResult, error)
}

type MemoryService interface {
	Search(ctx context.Context, learnerID uuid.UUID, query string, opts memory.SearchOptions) (memory.SearchResult, error)
	Add(ctx context.Context, in memory.AddInput) (*types.Memory, error)
}

type memoryService struct {
	log   *logger.Logger
	store MemoryStore
}

func NewMemoryService(log *logger.Logger, store MemoryStore) MemoryService {
	return &memoryService{log: log.With("service", "MemoryService"), store: store}
}

func (ms *memoryService) Search(ctx context.Context, learnerID uuid.UUID, query string, opts memory.SearchOptions) (memory.SearchResult, error) {
	if err := authorize(ctx, learnerID); err != nil {
		return memory.SearchResult{}, err
	}
	if strings.TrimSpace(query) == "" {
		return memory.SearchResult{}, fmt.Errorf("query required: %w", coacherrors.ErrInvalidArgument)
	}
	return ms.store.FindSimilar(ctx, learnerID, query, opts)
}

func (ms *memoryService) Add(ctx context.Context, in memory.AddInput) (*types.Memory, error) {
	if err := authorize(ctx, in.LearnerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.RawText) == "" {
		return nil, fmt.Errorf("text required: %w", coacherrors.ErrInvalidArgument)
	}
	for _, c := range in.ContextTypes {
		if c != types.ContextAcademic && c != types.ContextPersonal {
			return nil, fmt.Errorf("context type %q: %w", c, coacherrors.ErrInvalidArgument)
		}
	}
	return ms.store.Add(ctx, in)
}
