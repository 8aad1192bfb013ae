package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-coach/internal/data/repos"
	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

type FeedbackInput struct {
	SessionID uuid.UUID
	// Rating is optional; when set it must be in [1,5].
	Rating     *int
	Sentiment  string
	Text       string
	Indicators map[string]any
}

type FeedbackService interface {
	// Submit records explicit feedback from the learner who owns the session.
	Submit(ctx context.Context, in FeedbackInput) (*types.FeedbackTracking, error)
	// RecordImplicit records feedback inferred during the conversation.
	RecordImplicit(ctx context.Context, in FeedbackInput) (*types.FeedbackTracking, error)
	ListForSession(ctx context.Context, sessionID uuid.UUID) ([]*types.FeedbackTracking, error)
	ListForLearner(ctx context.Context, learnerID uuid.UUID, limit int) ([]*types.FeedbackTracking, error)
}

type feedbackService struct {
	db       *gorm.DB
	log      *logger.Logger
	sessions repos.SessionRepo
	feedback repos.FeedbackRepo
	now      func() time.Time
}

func NewFeedbackService(db *gorm.DB, log *logger.Logger, sessions repos.SessionRepo, feedback repos.FeedbackRepo) FeedbackService {
	return &feedbackService{
		db:       db,
		log:      log.With("service", "FeedbackService"),
		sessions: sessions,
		feedback: feedback,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (fs *feedbackService) Submit(ctx context.Context, in FeedbackInput) (*types.FeedbackTracking, error) {
	return fs.record(ctx, types.FeedbackExplicit, in)
}

func (fs *feedbackService) RecordImplicit(ctx context.Context, in FeedbackInput) (*types.FeedbackTracking, error) {
	return fs.record(ctx, types.FeedbackImplicit, in)
}

func (fs *feedbackService) record(ctx context.Context, kind string, in FeedbackInput) (*types.FeedbackTracking, error) {
	dbc := dbctx.Context{Ctx: ctx}
	s, err := fs.sessions.GetByID(dbc, in.SessionID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.LearnerID); err != nil {
		return nil, err
	}
	sentiment, err := normalizeSentiment(in.Sentiment)
	if err != nil {
		return nil, err
	}
	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return nil, fmt.Errorf("rating %d outside [1,5]: %w", *in.Rating, coacherrors.ErrInvalidArgument)
	}

	row := &types.FeedbackTracking{
		ID:           uuid.New(),
		LearnerID:    s.LearnerID,
		SessionID:    s.ID,
		FeedbackType: kind,
		Rating:       in.Rating,
		Sentiment:    sentiment,
		Timestamp:    fs.now(),
	}
	if text := strings.TrimSpace(in.Text); text != "" {
		row.FeedbackText = &text
	}
	if len(in.Indicators) > 0 {
		row.ImplicitIndicators = types.JSON(in.Indicators)
	}
	created, err := fs.feedback.Create(dbc, []*types.FeedbackTracking{row})
	if err != nil {
		return nil, err
	}
	fs.log.Debug("feedback recorded", "session_id", s.ID, "type", kind, "sentiment", sentiment)
	return created[0], nil
}

func normalizeSentiment(v string) (string, error) {
	switch s := strings.ToLower(strings.TrimSpace(v)); s {
	case "":
		return types.SentimentNeutral, nil
	case types.SentimentPositive, types.SentimentNeutral, types.SentimentNegative:
		return s, nil
	default:
		return "", fmt.Errorf("sentiment %q: %w", v, coacherrors.ErrInvalidArgument)
	}
}

func (fs *feedbackService) ListForSession(ctx context.Context, sessionID uuid.UUID) ([]*types.FeedbackTracking, error) {
	dbc := dbctx.Context{Ctx: ctx}
	s, err := fs.sessions.GetByID(dbc, sessionID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.LearnerID); err != nil {
		return nil, err
	}
	return fs.feedback.ListBySession(dbc, sessionID)
}

func (fs *feedbackService) ListForLearner(ctx context.Context, learnerID uuid.UUID, limit int) ([]*types.FeedbackTracking, error) {
	if err := authorize(ctx, learnerID); err != nil {
		return nil, err
	}
	return fs.feedback.ListByLearner(dbctx.Context{Ctx: ctx}, learnerID, limit)
}
