package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/behavior"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/extraction"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/memory"
	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
	"github.com/yungbote/neurobridge-coach/internal/services"
)

type fakeCourses struct {
	course  *types.Course
	chapter *types.CourseChapter
}

func (f *fakeCourses) GetCourse(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error) {
	if f.course == nil || f.course.ID != courseID {
		return nil, fmt.Errorf("course %s: %w", courseID, coacherrors.ErrNotFound)
	}
	return f.course, nil
}

func (f *fakeCourses) GetChapter(dbc dbctx.Context, courseID, chapterID uuid.UUID) (*types.CourseChapter, error) {
	if f.chapter == nil || f.chapter.ID != chapterID || f.chapter.CourseID != courseID {
		return nil, fmt.Errorf("chapter %s: %w", chapterID, coacherrors.ErrNotFound)
	}
	return f.chapter, nil
}

type fakeSessions struct {
	mu        sync.Mutex
	session   *types.CoachingSession
	prev      *types.CoachingSession
	messages  []*types.SessionMessage
	userCount int
	completed chan uuid.UUID
}

func newFakeSessions(learnerID, courseID, chapterID uuid.UUID) *fakeSessions {
	return &fakeSessions{
		session: &types.CoachingSession{
			ID: uuid.New(), LearnerID: learnerID, CourseID: courseID, ChapterID: chapterID,
			Status: types.SessionStatusActive, StartTime: time.Now().UTC(),
		},
		completed: make(chan uuid.UUID, 1),
	}
}

func (f *fakeSessions) GetOrCreateActive(ctx context.Context, courseID, chapterID uuid.UUID) (*types.CoachingSession, bool, error) {
	return f.session, true, nil
}

func (f *fakeSessions) AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string, latencyMS *int64) (*types.SessionMessage, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := &types.SessionMessage{ID: uuid.New(), SessionID: sessionID, Seq: len(f.messages) + 1, Role: role, Content: content, LatencyMS: latencyMS}
	f.messages = append(f.messages, m)
	if role == types.RoleUser {
		f.userCount++
	}
	return m, f.userCount, nil
}

func (f *fakeSessions) Transcript(ctx context.Context, sessionID uuid.UUID, lastN int) ([]*types.SessionMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.messages
	if lastN > 0 && len(out) > lastN {
		out = out[len(out)-lastN:]
	}
	return append([]*types.SessionMessage(nil), out...), nil
}

func (f *fakeSessions) PreviousSession(ctx context.Context, learnerID uuid.UUID) (*types.CoachingSession, error) {
	return f.prev, nil
}

func (f *fakeSessions) Complete(ctx context.Context, sessionID uuid.UUID) (*types.CoachingSession, error) {
	f.completed <- sessionID
	return f.session, nil
}

func (f *fakeSessions) snapshot() []*types.SessionMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.SessionMessage(nil), f.messages...)
}

type fakeMemories struct {
	mu      sync.Mutex
	matches []memory.Match
	added   []memory.AddInput
}

func (f *fakeMemories) Add(ctx context.Context, in memory.AddInput) (*types.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, in)
	return &types.Memory{ID: uuid.New(), LearnerID: in.LearnerID, RawText: in.RawText}, nil
}

func (f *fakeMemories) FindSimilar(ctx context.Context, learnerID uuid.UUID, query string, opts memory.SearchOptions) (memory.SearchResult, error) {
	return memory.SearchResult{Matches: f.matches, Mode: memory.ModeVector}, nil
}

func (f *fakeMemories) Summary(ctx context.Context, learnerID uuid.UUID, n int) (string, error) {
	return "- plays chess on weekends [personal]", nil
}

type fakeProfiles struct{}

func (fakeProfiles) Snapshot(ctx context.Context, learnerID, courseID uuid.UUID) (*services.ProfileSnapshot, error) {
	now := time.Now().UTC()
	return &services.ProfileSnapshot{
		Learner: types.NewUserLearningProfile(learnerID, now),
		Course:  types.NewCourseUserProfile(learnerID, courseID, now),
	}, nil
}

type fakeFeedback struct {
	mu       sync.Mutex
	recorded []services.FeedbackInput
}

func (f *fakeFeedback) RecordImplicit(ctx context.Context, in services.FeedbackInput) (*types.FeedbackTracking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, in)
	return &types.FeedbackTracking{ID: uuid.New(), SessionID: in.SessionID, FeedbackType: types.FeedbackImplicit}, nil
}

type fakeExtractor struct {
	mu       sync.Mutex
	requests []extraction.Request
	forgot   []uuid.UUID
}

func (f *fakeExtractor) Process(ctx context.Context, req extraction.Request) (extraction.Insight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return nil, nil
}

func (f *fakeExtractor) Forget(sessionID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgot = append(f.forgot, sessionID)
}

func (f *fakeExtractor) seen() []extraction.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]extraction.Request(nil), f.requests...)
}

type fakeGuide struct {
	mu     sync.Mutex
	inputs []behavior.Input
	out    behavior.Guidance
}

func (f *fakeGuide) Guide(ctx context.Context, in behavior.Input) behavior.Guidance {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	return f.out
}
