package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-coach/internal/data/graph"
	"github.com/yungbote/neurobridge-coach/internal/data/repos"
	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/prompts"
	"github.com/yungbote/neurobridge-coach/internal/observability"
	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
	"github.com/yungbote/neurobridge-coach/internal/platform/neo4jdb"
	"github.com/yungbote/neurobridge-coach/internal/platform/openai"
	"github.com/yungbote/neurobridge-coach/internal/realtime/bus"
)

type Deps struct {
	DB  *gorm.DB
	Log *logger.Logger
	AI  openai.Client

	Sessions        repos.SessionRepo
	Reports         repos.ReportRepo
	LearnerProfiles repos.LearningProfileRepo
	CourseProfiles  repos.CourseProfileRepo
	Courses         repos.CourseRepo

	// Graph and Events are optional.
	Graph  *neo4jdb.Client
	Events bus.Bus

	SmoothingWeight float64
}

type Analyzer struct {
	deps Deps
	log  *logger.Logger
	w    float64
	now  func() time.Time
}

func NewAnalyzer(deps Deps) *Analyzer {
	w := deps.SmoothingWeight
	if w <= 0 || w > 1 {
		w = DefaultSmoothingWeight
	}
	return &Analyzer{
		deps: deps,
		log:  deps.Log.With("module", "SessionAnalyzer"),
		w:    w,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

type sessionContext struct {
	course         *types.Course
	chapter        *types.CourseChapter
	messages       []*types.SessionMessage
	learnerProfile *types.UserLearningProfile
	courseProfile  *types.CourseUserProfile
}

// Analyze produces and stores the report for a completed session, marks it analyzed and then
// updates the learner's profiles. Profile update failures are logged only.
func (a *Analyzer) Analyze(ctx context.Context, sessionID uuid.UUID) (*types.SessionAnalysisReport, error) {
	report, err := a.analyze(ctx, sessionID)
	switch {
	case err == nil:
		observability.Current().IncAnalysis("success")
	case errors.Is(err, coacherrors.ErrAlreadyAnalyzed):
		observability.Current().IncAnalysis("already_analyzed")
	case errors.Is(err, coacherrors.ErrAnalysisParse):
		observability.Current().IncAnalysis("parse_error")
	case errors.Is(err, coacherrors.ErrUpstreamModel):
		observability.Current().IncAnalysis("upstream_error")
	default:
		observability.Current().IncAnalysis("error")
	}
	return report, err
}

func (a *Analyzer) analyze(ctx context.Context, sessionID uuid.UUID) (*types.SessionAnalysisReport, error) {
	dbc := dbctx.Context{Ctx: ctx}
	s, err := a.deps.Sessions.GetByID(dbc, sessionID)
	if err != nil {
		return nil, err
	}
	switch s.Status {
	case types.SessionStatusAnalyzed:
		return nil, fmt.Errorf("session %s: %w", sessionID, coacherrors.ErrAlreadyAnalyzed)
	case types.SessionStatusCompleted:
	default:
		return nil, coacherrors.InvalidTransition("not_completed", s.Status, types.SessionStatusAnalyzed)
	}
	exists, err := a.deps.Reports.ExistsForSession(dbc, sessionID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("session %s: %w", sessionID, coacherrors.ErrAlreadyAnalyzed)
	}

	sc, err := a.loadContext(ctx, s)
	if err != nil {
		return nil, err
	}

	p, err := prompts.Build(prompts.PromptSessionAnalysis, a.promptInput(s, sc))
	if err != nil {
		return nil, fmt.Errorf("session %s: %w: %v", sessionID, coacherrors.ErrAnalysisParse, err)
	}
	obj, err := a.deps.AI.GenerateJSON(ctx, p.System, p.User, p.SchemaName, p.Schema)
	if err != nil {
		return nil, fmt.Errorf("session analysis: %w: %v", coacherrors.ErrUpstreamModel, err)
	}
	report, err := ParseReport(obj)
	if err != nil {
		return nil, err
	}
	report.ID = uuid.New()
	report.SessionID = s.ID
	report.LearnerID = s.LearnerID
	report.CourseID = s.CourseID
	report.AnalysisDate = a.now()
	report.CreatedAt = report.AnalysisDate

	err = a.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := a.deps.Reports.Create(txc, report); err != nil {
			return err
		}
		return a.deps.Sessions.MarkAnalyzed(txc, s.ID, report.AnalysisDate)
	})
	if err != nil {
		return nil, err
	}

	a.log.Info("session analyzed",
		"session_id", s.ID,
		"learner_id", s.LearnerID,
		"overall_understanding", report.OverallUnderstanding,
	)
	a.updateProfiles(ctx, report)
	a.publish(ctx, s, report)
	return report, nil
}

func (a *Analyzer) loadContext(ctx context.Context, s *types.CoachingSession) (*sessionContext, error) {
	sc := &sessionContext{}
	g, gctx := errgroup.WithContext(ctx)
	dbc := dbctx.Context{Ctx: gctx}
	g.Go(func() (err error) {
		sc.course, err = a.deps.Courses.GetCourse(dbc, s.CourseID)
		return err
	})
	g.Go(func() (err error) {
		sc.chapter, err = a.deps.Courses.GetChapter(dbc, s.CourseID, s.ChapterID)
		return err
	})
	g.Go(func() (err error) {
		sc.messages, err = a.deps.Sessions.ListMessages(dbc, s.ID, 0)
		return err
	})
	g.Go(func() (err error) {
		sc.learnerProfile, err = a.deps.LearnerProfiles.GetOrCreate(dbc, s.LearnerID)
		return err
	})
	g.Go(func() (err error) {
		sc.courseProfile, err = a.deps.CourseProfiles.GetOrCreate(dbc, s.LearnerID, s.CourseID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load analysis context: %w", err)
	}
	return sc, nil
}

func (a *Analyzer) promptInput(s *types.CoachingSession, sc *sessionContext) prompts.Input {
	in := prompts.Input{
		CourseTitle:        sc.course.Title,
		CourseLevel:        sc.course.Level,
		ChapterTitle:       sc.chapter.Title,
		ChapterExcerpt:     excerpt(sc.chapter.Content, 4000),
		Transcript:         RenderTranscript(sc.messages),
		LearnerProfileJSON: snapshot(sc.learnerProfile),
		CourseProfileJSON:  snapshot(sc.courseProfile),
	}
	if s.DurationMinutes != nil {
		in.DurationMinutes = *s.DurationMinutes
	}
	return in
}

func (a *Analyzer) updateProfiles(ctx context.Context, r *types.SessionAnalysisReport) {
	dbc := dbctx.Context{Ctx: ctx}
	now := a.now()

	if lp, err := a.deps.LearnerProfiles.GetOrCreate(dbc, r.LearnerID); err != nil {
		a.log.Error("load learner profile failed", "learner_id", r.LearnerID, "error", err)
	} else {
		UpdateLearnerProfile(lp, r, a.w, now)
		if err := a.deps.LearnerProfiles.Save(dbc, lp); err != nil {
			a.log.Error("save learner profile failed", "learner_id", r.LearnerID, "error", err)
		}
	}

	cp, err := a.deps.CourseProfiles.GetOrCreate(dbc, r.LearnerID, r.CourseID)
	if err != nil {
		a.log.Error("load course profile failed", "learner_id", r.LearnerID, "course_id", r.CourseID, "error", err)
		return
	}
	UpdateCourseProfile(cp, r, a.w, now)
	if err := a.deps.CourseProfiles.Save(dbc, cp); err != nil {
		a.log.Error("save course profile failed", "learner_id", r.LearnerID, "course_id", r.CourseID, "error", err)
		return
	}
	if err := graph.UpsertCourseConceptMastery(ctx, a.deps.Graph, a.log, cp); err != nil {
		a.log.Warn("concept mastery graph sync failed", "learner_id", r.LearnerID, "error", err)
	}
}

func (a *Analyzer) publish(ctx context.Context, s *types.CoachingSession, r *types.SessionAnalysisReport) {
	if a.deps.Events == nil {
		return
	}
	err := a.deps.Events.Publish(ctx, bus.Event{
		Type:      bus.EventSessionAnalyzed,
		SessionID: s.ID,
		LearnerID: s.LearnerID,
		CourseID:  s.CourseID,
		Data:      map[string]any{"report_id": r.ID.String(), "overall_understanding": r.OverallUnderstanding},
	})
	if err != nil {
		a.log.Warn("publish session.analyzed failed", "session_id", s.ID, "error", err)
	}
}

// RenderTranscript formats messages one per line as "role: content".
func RenderTranscript(msgs []*types.SessionMessage) string {
	if len(msgs) == 0 {
		return ""
	}
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(m.Content))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func snapshot(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
