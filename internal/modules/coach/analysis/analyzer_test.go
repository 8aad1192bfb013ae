package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-coach/internal/data/repos"
	"github.com/yungbote/neurobridge-coach/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/coachtest"
	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
	"github.com/yungbote/neurobridge-coach/internal/realtime/bus"
)

type analyzerFixture struct {
	db       *gorm.DB
	ai       *coachtest.FakeAI
	an       *Analyzer
	sessions repos.SessionRepo
	reports  repos.ReportRepo
	learners repos.LearningProfileRepo
	courses  repos.CourseProfileRepo
	events   bus.Bus
	session  *types.CoachingSession
}

func newAnalyzerFixture(t *testing.T) *analyzerFixture {
	t.Helper()
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	f := &analyzerFixture{
		db:       db,
		ai:       coachtest.NewFakeAI(),
		sessions: repos.NewSessionRepo(db, log),
		reports:  repos.NewReportRepo(db, log),
		learners: repos.NewLearningProfileRepo(db, log),
		courses:  repos.NewCourseProfileRepo(db, log),
		events:   bus.NewMemoryBus(log),
	}
	f.an = NewAnalyzer(Deps{
		DB: db, Log: log, AI: f.ai,
		Sessions: f.sessions, Reports: f.reports,
		LearnerProfiles: f.learners, CourseProfiles: f.courses,
		Courses: repos.NewCourseRepo(db, log),
		Events:  f.events,
	})

	learner := testutil.SeedUser(t, ctx, db, "learner@example.com")
	course := testutil.SeedCourse(t, ctx, db, "Algorithms")
	chapter := testutil.SeedChapter(t, ctx, db, course.ID, "Recursion", "A function that calls itself until a base case.")
	dbc := dbctx.Context{Ctx: ctx}
	start := time.Now().UTC().Add(-20 * time.Minute)
	s, err := f.sessions.CreateActive(dbc, learner.ID, course.ID, chapter.ID, start)
	if err != nil {
		t.Fatalf("CreateActive: %v", err)
	}
	_, _, _ = f.sessions.AppendMessage(dbc, s.ID, types.RoleAssistant, "What stops a recursive call?", nil, start.Add(time.Minute))
	_, _, _ = f.sessions.AppendMessage(dbc, s.ID, types.RoleUser, "The base case returns without calling again.", nil, start.Add(2*time.Minute))
	f.session = s
	return f
}

func (f *analyzerFixture) complete(t *testing.T) {
	t.Helper()
	if _, err := f.sessions.Complete(dbctx.Context{Ctx: context.Background()}, f.session.ID, time.Now().UTC()); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}

func validReport() map[string]any {
	return map[string]any{
		"overallUnderstanding": 9,
		"keyObservations": []any{
			map[string]any{"category": "strength", "observation": "Explains base cases clearly", "importance": 8},
			map[string]any{"category": "problem_solving", "observation": "Found a solution by tracing", "importance": 7},
		},
		"conceptsUnderstood": []any{
			map[string]any{"conceptName": "recursion", "level": 8, "evidence": "explained the base case"},
		},
		"conceptsStruggling":         []any{},
		"recommendedActions":         []any{map[string]any{"action": "try tree recursion", "priority": "medium", "reasoning": "ready"}},
		"learningStyleInsights":      "prefers worked examples",
		"communicationStyleInsights": "concise",
		"engagementLevelInsights":    "high engagement",
	}
}

func TestAnalyzeWritesReportAndUpdatesProfiles(t *testing.T) {
	f := newAnalyzerFixture(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	cp, _ := f.courses.GetOrCreate(dbc, f.session.LearnerID, f.session.CourseID)
	cp.MisunderstoodConcepts = types.JSON([]types.ConceptMastery{{ConceptName: "recursion", Level: 3}})
	if err := f.courses.Save(dbc, cp); err != nil {
		t.Fatalf("seed course profile: %v", err)
	}

	analyzed := make(chan bus.Event, 1)
	fctx, cancel := context.WithCancel(ctx)
	defer cancel()
	_ = f.events.StartForwarder(fctx, func(ev bus.Event) { analyzed <- ev })

	f.complete(t)
	f.ai.JSON["session_analysis"] = validReport()
	r, err := f.an.Analyze(ctx, f.session.ID)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.OverallUnderstanding != 9 || r.SessionID != f.session.ID {
		t.Fatalf("report: %+v", r)
	}

	s, _ := f.sessions.GetByID(dbc, f.session.ID)
	if s.Status != types.SessionStatusAnalyzed {
		t.Fatalf("status: %s", s.Status)
	}
	lp, _ := f.learners.Get(dbc, f.session.LearnerID)
	if lp.AnalyticalAbility != 6 || lp.ProblemSolving != 6 {
		t.Fatalf("learner profile: analytical=%d problem=%d", lp.AnalyticalAbility, lp.ProblemSolving)
	}
	cp, _ = f.courses.Get(dbc, f.session.LearnerID, f.session.CourseID)
	if cp.ComprehensionLevel != 6 || cp.EngagementLevel != 8 {
		t.Fatalf("course profile: comprehension=%d engagement=%d", cp.ComprehensionLevel, cp.EngagementLevel)
	}
	if mis := types.DecodeJSON[[]types.ConceptMastery](cp.MisunderstoodConcepts); len(mis) != 0 {
		t.Fatalf("recursion still misunderstood: %+v", mis)
	}
	if m := types.DecodeJSON[[]types.ConceptMastery](cp.MasteredConcepts); len(m) != 1 || m[0].ConceptName != "recursion" {
		t.Fatalf("mastered: %+v", m)
	}

	select {
	case ev := <-analyzed:
		if ev.Type != bus.EventSessionAnalyzed || ev.SessionID != f.session.ID {
			t.Fatalf("event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("no session.analyzed event")
	}
}

func TestAnalyzeTwiceIsRejected(t *testing.T) {
	f := newAnalyzerFixture(t)
	ctx := context.Background()
	f.complete(t)
	f.ai.JSON["session_analysis"] = validReport()

	if _, err := f.an.Analyze(ctx, f.session.ID); err != nil {
		t.Fatalf("first Analyze: %v", err)
	}
	if _, err := f.an.Analyze(ctx, f.session.ID); !errors.Is(err, coacherrors.ErrAlreadyAnalyzed) {
		t.Fatalf("second Analyze: expected ErrAlreadyAnalyzed, got %v", err)
	}
	var n int64
	f.db.Model(&types.SessionAnalysisReport{}).Where("session_id = ?", f.session.ID).Count(&n)
	if n != 1 {
		t.Fatalf("reports for session: want=1 got=%d", n)
	}
	if got := f.ai.CallCount("session_analysis"); got != 1 {
		t.Fatalf("model calls: want=1 got=%d", got)
	}
}

func TestAnalyzeActiveSessionIsInvalid(t *testing.T) {
	f := newAnalyzerFixture(t)
	if _, err := f.an.Analyze(context.Background(), f.session.ID); !errors.Is(err, coacherrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestMalformedReportLeavesSessionCompleted(t *testing.T) {
	f := newAnalyzerFixture(t)
	ctx := context.Background()
	f.complete(t)

	bad := validReport()
	delete(bad, "conceptsStruggling")
	f.ai.JSON["session_analysis"] = bad
	if _, err := f.an.Analyze(ctx, f.session.ID); !errors.Is(err, coacherrors.ErrAnalysisParse) {
		t.Fatalf("expected ErrAnalysisParse, got %v", err)
	}
	s, _ := f.sessions.GetByID(dbctx.Context{Ctx: ctx}, f.session.ID)
	if s.Status != types.SessionStatusCompleted {
		t.Fatalf("status after parse failure: %s", s.Status)
	}

	// Retry succeeds once the model behaves.
	f.ai.JSON["session_analysis"] = validReport()
	if _, err := f.an.Analyze(ctx, f.session.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestUpstreamFailureIsSurfaced(t *testing.T) {
	f := newAnalyzerFixture(t)
	f.complete(t)
	f.ai.JSONErr["session_analysis"] = errors.New("503")
	if _, err := f.an.Analyze(context.Background(), f.session.ID); !errors.Is(err, coacherrors.ErrUpstreamModel) {
		t.Fatalf("expected ErrUpstreamModel, got %v", err)
	}
}

func TestParseReportRanges(t *testing.T) {
	r := validReport()
	r["overallUnderstanding"] = 11
	if _, err := ParseReport(r); !errors.Is(err, coacherrors.ErrAnalysisParse) {
		t.Fatalf("overall 11: expected ErrAnalysisParse, got %v", err)
	}
	r = validReport()
	r["conceptsUnderstood"] = []any{map[string]any{"conceptName": "", "level": 5, "evidence": ""}}
	if _, err := ParseReport(r); !errors.Is(err, coacherrors.ErrAnalysisParse) {
		t.Fatalf("empty concept: expected ErrAnalysisParse, got %v", err)
	}
	r = validReport()
	r["keyObservations"] = "not a list"
	if _, err := ParseReport(r); !errors.Is(err, coacherrors.ErrAnalysisParse) {
		t.Fatalf("mistyped field: expected ErrAnalysisParse, got %v", err)
	}
}
