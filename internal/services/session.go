package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-coach/internal/data/repos"
	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/jobs/worker"
	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

// SessionAnalyzer is the post-session analyzer as seen by the session service.
type SessionAnalyzer interface {
	Analyze(ctx context.Context, sessionID uuid.UUID) (*types.SessionAnalysisReport, error)
}

// AnalysisScheduler hands a completed session to a durable runner. When it is nil or fails,
// analysis runs on the in-process task pool.
type AnalysisScheduler interface {
	ScheduleAnalysis(ctx context.Context, sessionID uuid.UUID) error
}

type SessionService interface {
	// GetOrCreateActive returns the learner's active session for the chapter, creating it when
	// none exists. created reports whether this call inserted the row.
	GetOrCreateActive(ctx context.Context, courseID, chapterID uuid.UUID) (s *types.CoachingSession, created bool, err error)
	Get(ctx context.Context, sessionID uuid.UUID) (*types.CoachingSession, error)
	List(ctx context.Context, learnerID uuid.UUID, limit int) ([]*types.CoachingSession, error)
	Transcript(ctx context.Context, sessionID uuid.UUID, lastN int) ([]*types.SessionMessage, error)
	Insights(ctx context.Context, sessionID uuid.UUID) ([]*types.SessionInsight, error)
	PreviousSession(ctx context.Context, learnerID uuid.UUID) (*types.CoachingSession, error)

	AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string, latencyMS *int64) (*types.SessionMessage, int, error)

	// Complete closes the session, publishes session.completed and schedules analysis.
	Complete(ctx context.Context, sessionID uuid.UUID) (*types.CoachingSession, error)
	Report(ctx context.Context, sessionID uuid.UUID) (*types.SessionAnalysisReport, error)
	// Analyze runs the analyzer synchronously. It is the retry path for a failed analysis.
	Analyze(ctx context.Context, sessionID uuid.UUID) (*types.SessionAnalysisReport, error)
}

type sessionService struct {
	db       *gorm.DB
	log      *logger.Logger
	sessions repos.SessionRepo
	reports  repos.ReportRepo
	courses  repos.CourseRepo
	analyzer SessionAnalyzer
	tasks    worker.Submitter
	durable  AnalysisScheduler
	notifier SessionNotifier
	now      func() time.Time
}

func NewSessionService(
	db *gorm.DB,
	log *logger.Logger,
	sessions repos.SessionRepo,
	reports repos.ReportRepo,
	courses repos.CourseRepo,
	analyzer SessionAnalyzer,
	tasks worker.Submitter,
	durable AnalysisScheduler,
	notifier SessionNotifier,
) SessionService {
	return &sessionService{
		db:       db,
		log:      log.With("service", "SessionService"),
		sessions: sessions,
		reports:  reports,
		courses:  courses,
		analyzer: analyzer,
		tasks:    tasks,
		durable:  durable,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (ss *sessionService) GetOrCreateActive(ctx context.Context, courseID, chapterID uuid.UUID) (*types.CoachingSession, bool, error) {
	learnerID, err := requester(ctx)
	if err != nil {
		return nil, false, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := ss.courses.GetChapter(dbc, courseID, chapterID); err != nil {
		return nil, false, err
	}

	if s, err := ss.sessions.GetActive(dbc, learnerID, courseID, chapterID); err != nil || s != nil {
		return s, false, err
	}
	s, err := ss.sessions.CreateActive(dbc, learnerID, courseID, chapterID, ss.now())
	if errors.Is(err, repos.ErrActiveExists) {
		// Lost the race; the winner's row is the session.
		s, err = ss.sessions.GetActive(dbc, learnerID, courseID, chapterID)
		if err == nil && s == nil {
			err = fmt.Errorf("active session vanished after conflict: %w", coacherrors.ErrNotFound)
		}
		return s, false, err
	}
	if err != nil {
		return nil, false, err
	}
	ss.log.Info("coaching session started", "session_id", s.ID, "learner_id", learnerID, "chapter_id", chapterID)
	ss.notifier.SessionStarted(ctx, s)
	return s, true, nil
}

func (ss *sessionService) Get(ctx context.Context, sessionID uuid.UUID) (*types.CoachingSession, error) {
	s, err := ss.sessions.GetByID(dbctx.Context{Ctx: ctx}, sessionID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.LearnerID); err != nil {
		return nil, err
	}
	return s, nil
}

func (ss *sessionService) List(ctx context.Context, learnerID uuid.UUID, limit int) ([]*types.CoachingSession, error) {
	if err := authorize(ctx, learnerID); err != nil {
		return nil, err
	}
	return ss.sessions.ListByLearner(dbctx.Context{Ctx: ctx}, learnerID, limit)
}

func (ss *sessionService) Transcript(ctx context.Context, sessionID uuid.UUID, lastN int) ([]*types.SessionMessage, error) {
	if _, err := ss.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return ss.sessions.ListMessages(dbctx.Context{Ctx: ctx}, sessionID, lastN)
}

func (ss *sessionService) Insights(ctx context.Context, sessionID uuid.UUID) ([]*types.SessionInsight, error) {
	if _, err := ss.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return ss.sessions.ListInsights(dbctx.Context{Ctx: ctx}, sessionID)
}

// PreviousSession returns nil, nil for a learner with no completed sessions.
func (ss *sessionService) PreviousSession(ctx context.Context, learnerID uuid.UUID) (*types.CoachingSession, error) {
	if err := authorize(ctx, learnerID); err != nil {
		return nil, err
	}
	return ss.sessions.GetLatestCompleted(dbctx.Context{Ctx: ctx}, learnerID)
}

func (ss *sessionService) AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string, latencyMS *int64) (*types.SessionMessage, int, error) {
	if _, err := ss.Get(ctx, sessionID); err != nil {
		return nil, 0, err
	}
	return ss.sessions.AppendMessage(dbctx.Context{Ctx: ctx}, sessionID, role, content, latencyMS, ss.now())
}

func (ss *sessionService) Complete(ctx context.Context, sessionID uuid.UUID) (*types.CoachingSession, error) {
	if _, err := ss.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	s, err := ss.sessions.Complete(dbctx.Context{Ctx: ctx}, sessionID, ss.now())
	if err != nil {
		return nil, err
	}
	ss.log.Info("coaching session completed", "session_id", s.ID, "learner_id", s.LearnerID)
	ss.notifier.SessionCompleted(ctx, s)
	ss.scheduleAnalysis(ctx, s.ID)
	return s, nil
}

func (ss *sessionService) scheduleAnalysis(ctx context.Context, sessionID uuid.UUID) {
	if ss.durable != nil {
		err := ss.durable.ScheduleAnalysis(context.WithoutCancel(ctx), sessionID)
		if err == nil {
			return
		}
		ss.log.Warn("durable analysis unavailable; using task pool", "session_id", sessionID, "error", err)
	}
	if ss.analyzer == nil || ss.tasks == nil {
		return
	}
	err := ss.tasks.Submit("session_analysis", func(ctx context.Context) error {
		_, err := ss.analyzer.Analyze(ctx, sessionID)
		if errors.Is(err, coacherrors.ErrAlreadyAnalyzed) {
			return nil
		}
		return err
	})
	if err != nil {
		ss.log.Warn("schedule analysis failed", "session_id", sessionID, "error", err)
	}
}

func (ss *sessionService) Report(ctx context.Context, sessionID uuid.UUID) (*types.SessionAnalysisReport, error) {
	if _, err := ss.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return ss.reports.GetBySessionID(dbctx.Context{Ctx: ctx}, sessionID)
}

func (ss *sessionService) Analyze(ctx context.Context, sessionID uuid.UUID) (*types.SessionAnalysisReport, error) {
	if _, err := ss.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	if ss.analyzer == nil {
		return nil, fmt.Errorf("analyzer not configured")
	}
	return ss.analyzer.Analyze(ctx, sessionID)
}
