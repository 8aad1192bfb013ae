package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
	"github.com/yungbote/neurobridge-coach/internal/platform/ctxutil"
)

// SystemContext marks ctx as an internal caller with admin rights. The CLI and background tasks
// use it; HTTP requests always carry the authenticated learner instead.
func SystemContext(ctx context.Context) context.Context {
	return ctxutil.WithRequestData(ctxutil.Default(ctx), &ctxutil.RequestData{Roles: []string{"admin"}})
}

// authorize allows the owner of a resource and any admin.
func authorize(ctx context.Context, ownerID uuid.UUID) error {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil {
		return fmt.Errorf("no request data: %w", coacherrors.ErrUnauthorized)
	}
	if rd.IsAdmin() {
		return nil
	}
	if rd.LearnerID == uuid.Nil || rd.LearnerID != ownerID {
		return fmt.Errorf("learner %s: %w", rd.LearnerID, coacherrors.ErrUnauthorized)
	}
	return nil
}

// requester returns the calling learner id or ErrUnauthorized.
func requester(ctx context.Context) (uuid.UUID, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.LearnerID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("no learner in request: %w", coacherrors.ErrUnauthorized)
	}
	return rd.LearnerID, nil
}
