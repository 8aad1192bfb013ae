package analysisrun

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"

	types "github.com/yungbote/neurobridge-coach/internal/domain"
	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

type Analyzer interface {
	Analyze(ctx context.Context, sessionID uuid.UUID) (*types.SessionAnalysisReport, error)
}

type Activities struct {
	Log      *logger.Logger
	Analyzer Analyzer
}

func (a *Activities) Analyze(ctx context.Context, in Input) error {
	if a == nil || a.Analyzer == nil {
		return fmt.Errorf("analysisrun: activity not configured")
	}
	sessionID, err := uuid.Parse(strings.TrimSpace(in.SessionID))
	if err != nil || sessionID == uuid.Nil {
		return temporal.NewNonRetryableApplicationError("invalid session id", ErrTypeNotAnalyzable, err)
	}

	report, err := a.Analyzer.Analyze(ctx, sessionID)
	switch {
	case err == nil:
		if a.Log != nil && report != nil {
			a.Log.Info("Session analysis stored", "session_id", sessionID, "report_id", report.ID)
		}
		return nil
	case errors.Is(err, coacherrors.ErrAlreadyAnalyzed):
		return nil
	case errors.Is(err, coacherrors.ErrNotFound),
		errors.Is(err, coacherrors.ErrInvalidTransition),
		errors.Is(err, coacherrors.ErrInvalidArgument):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNotAnalyzable, err)
	default:
		if a.Log != nil {
			a.Log.Warn("Session analysis attempt failed", "session_id", sessionID, "error", err)
		}
		return err
	}
}
