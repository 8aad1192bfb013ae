package coaching

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	coachdb "github.com/yungbote/neurobridge-coach/internal/data/db"
	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

type ReportRepo interface {
	// Create fails with ErrAlreadyAnalyzed when the session already has a report.
	Create(dbc dbctx.Context, report *types.SessionAnalysisReport) error
	GetBySessionID(dbc dbctx.Context, sessionID uuid.UUID) (*types.SessionAnalysisReport, error)
	ExistsForSession(dbc dbctx.Context, sessionID uuid.UUID) (bool, error)
	ListByLearner(dbc dbctx.Context, learnerID uuid.UUID, limit int) ([]*types.SessionAnalysisReport, error)
}

type reportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
	repoLog := baseLog.With("repo", "ReportRepo")
	return &reportRepo{db: db, log: repoLog}
}

func (r *reportRepo) Create(dbc dbctx.Context, report *types.SessionAnalysisReport) error {
	if report == nil {
		return fmt.Errorf("report: %w", coacherrors.ErrInvalidArgument)
	}
	if err := dbc.DB(r.db).Create(report).Error; err != nil {
		if coachdb.IsUniqueViolation(err) {
			return fmt.Errorf("session %s: %w", report.SessionID, coacherrors.ErrAlreadyAnalyzed)
		}
		return err
	}
	return nil
}

func (r *reportRepo) GetBySessionID(dbc dbctx.Context, sessionID uuid.UUID) (*types.SessionAnalysisReport, error) {
	var rep types.SessionAnalysisReport
	err := dbc.DB(r.db).Where("session_id = ?", sessionID).Take(&rep).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("report for session %s: %w", sessionID, coacherrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *reportRepo) ExistsForSession(dbc dbctx.Context, sessionID uuid.UUID) (bool, error) {
	var n int64
	if err := dbc.DB(r.db).Model(&types.SessionAnalysisReport{}).Where("session_id = ?", sessionID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *reportRepo) ListByLearner(dbc dbctx.Context, learnerID uuid.UUID, limit int) ([]*types.SessionAnalysisReport, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []*types.SessionAnalysisReport
	if err := dbc.DB(r.db).
		Where("learner_id = ?", learnerID).
		Order("analysis_date DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
