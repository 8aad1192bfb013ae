package coaching

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

type FeedbackRepo interface {
	Create(dbc dbctx.Context, rows []*types.FeedbackTracking) ([]*types.FeedbackTracking, error)
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.FeedbackTracking, error)
	ListByLearner(dbc dbctx.Context, learnerID uuid.UUID, limit int) ([]*types.FeedbackTracking, error)
}

type feedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	repoLog := baseLog.With("repo", "FeedbackRepo")
	return &feedbackRepo{db: db, log: repoLog}
}

func (r *feedbackRepo) Create(dbc dbctx.Context, rows []*types.FeedbackTracking) ([]*types.FeedbackTracking, error) {
	if len(rows) == 0 {
		return []*types.FeedbackTracking{}, nil
	}
	for _, f := range rows {
		if f == nil {
			return nil, fmt.Errorf("nil feedback row: %w", coacherrors.ErrInvalidArgument)
		}
		switch f.FeedbackType {
		case types.FeedbackExplicit, types.FeedbackImplicit:
		default:
			return nil, fmt.Errorf("feedback type %q: %w", f.FeedbackType, coacherrors.ErrInvalidArgument)
		}
		switch f.Sentiment {
		case types.SentimentPositive, types.SentimentNeutral, types.SentimentNegative:
		default:
			return nil, fmt.Errorf("sentiment %q: %w", f.Sentiment, coacherrors.ErrInvalidArgument)
		}
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *feedbackRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.FeedbackTracking, error) {
	var rows []*types.FeedbackTracking
	if err := dbc.DB(r.db).
		Where("session_id = ?", sessionID).
		Order("recorded_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *feedbackRepo) ListByLearner(dbc dbctx.Context, learnerID uuid.UUID, limit int) ([]*types.FeedbackTracking, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []*types.FeedbackTracking
	if err := dbc.DB(r.db).
		Where("learner_id = ?", learnerID).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
