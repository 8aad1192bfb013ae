package realtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-coach/internal/data/repos"
	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/jobs/worker"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/behavior"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/extraction"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/memory"
	"github.com/yungbote/neurobridge-coach/internal/observability"
	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
	"github.com/yungbote/neurobridge-coach/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
	"github.com/yungbote/neurobridge-coach/internal/services"
)

// Conn is the relay socket. *websocket.Conn satisfies it.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

type SessionStore interface {
	GetOrCreateActive(ctx context.Context, courseID, chapterID uuid.UUID) (*types.CoachingSession, bool, error)
	AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string, latencyMS *int64) (*types.SessionMessage, int, error)
	Transcript(ctx context.Context, sessionID uuid.UUID, lastN int) ([]*types.SessionMessage, error)
	PreviousSession(ctx context.Context, learnerID uuid.UUID) (*types.CoachingSession, error)
	Complete(ctx context.Context, sessionID uuid.UUID) (*types.CoachingSession, error)
}

type MemoryStore interface {
	Add(ctx context.Context, in memory.AddInput) (*types.Memory, error)
	FindSimilar(ctx context.Context, learnerID uuid.UUID, query string, opts memory.SearchOptions) (memory.SearchResult, error)
	Summary(ctx context.Context, learnerID uuid.UUID, n int) (string, error)
}

type ProfileReader interface {
	Snapshot(ctx context.Context, learnerID, courseID uuid.UUID) (*services.ProfileSnapshot, error)
}

type FeedbackRecorder interface {
	RecordImplicit(ctx context.Context, in services.FeedbackInput) (*types.FeedbackTracking, error)
}

type InsightExtractor interface {
	Process(ctx context.Context, req extraction.Request) (extraction.Insight, error)
	Forget(sessionID uuid.UUID)
}

type GuidanceSource interface {
	Guide(ctx context.Context, in behavior.Input) behavior.Guidance
}

type Deps struct {
	Log       *logger.Logger
	Sessions  SessionStore
	Courses   repos.CourseRepo
	Memories  MemoryStore
	Profiles  ProfileReader
	Feedback  FeedbackRecorder
	Extractor InsightExtractor
	Behavior  GuidanceSource
	Tasks     worker.Submitter
	Policy    Policy
}

// Binding scopes a connection to one chapter. The learner comes from the request context.
type Binding struct {
	CourseID  uuid.UUID
	ChapterID uuid.UUID
}

// Engine serves realtime control-channel connections. It is stateless; each Serve call owns one
// connection's state.
type Engine struct {
	deps   Deps
	log    *logger.Logger
	policy Policy
	tools  map[string]Tool
	now    func() time.Time
}

func NewEngine(deps Deps) *Engine {
	e := &Engine{
		deps:   deps,
		log:    deps.Log.With("component", "RealtimeEngine"),
		policy: deps.Policy.withDefaults(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	e.tools = defaultTools()
	return e
}

const (
	recentTurnWindow  = 8
	behaviorWindow    = 10
	chapterExcerptLen = 3000
)

// connection is the per-socket state. Only the reader goroutine mutates it; background tasks
// receive copies and touch the socket through send.
type connection struct {
	e    *Engine
	conn Conn
	log  *logger.Logger
	ctx  context.Context

	learnerID uuid.UUID
	session   *types.CoachingSession
	course    *types.Course
	chapter   *types.CourseChapter

	turns         []extraction.Turn
	lastAssistant string
	lastUserEvent time.Time

	writeMu sync.Mutex
	closed  bool
}

// Serve binds the connection to a session and processes events in arrival order until the
// socket closes. On return the session has been completed (best effort) and the socket closed.
func (e *Engine) Serve(ctx context.Context, conn Conn, b Binding) error {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.LearnerID == uuid.Nil {
		_ = conn.Close()
		return fmt.Errorf("realtime: unauthenticated connection")
	}
	c := &connection{
		e:         e,
		conn:      conn,
		ctx:       ctx,
		learnerID: rd.LearnerID,
		log:       e.log.With(append([]interface{}{"learner_id", rd.LearnerID}, ctxutil.LogFields(ctx)...)...),
	}
	observability.Current().RealtimeConnOpened()
	defer observability.Current().RealtimeConnClosed()
	defer c.disconnect()

	if err := c.start(b); err != nil {
		c.log.Warn("realtime connect failed", "error", err)
		return err
	}
	for {
		var ev InboundEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if isDecodeError(err) {
				c.log.Warn("dropping malformed event", "error", err)
				continue
			}
			if !isNormalClose(err) {
				c.log.Debug("realtime read ended", "error", err)
			}
			return nil
		}
		c.handle(ev)
	}
}

func (c *connection) start(b Binding) error {
	e := c.e
	dbc := dbctx.Context{Ctx: c.ctx}
	course, err := e.deps.Courses.GetCourse(dbc, b.CourseID)
	if err != nil {
		return err
	}
	chapter, err := e.deps.Courses.GetChapter(dbc, b.CourseID, b.ChapterID)
	if err != nil {
		return err
	}
	s, created, err := e.deps.Sessions.GetOrCreateActive(c.ctx, b.CourseID, b.ChapterID)
	if err != nil {
		return err
	}
	c.course, c.chapter, c.session = course, chapter, s
	c.log = c.log.With("session_id", s.ID)
	c.restoreTurns()

	if err := c.send(OutboundEvent{Type: EventCoachBound, SessionID: s.ID.String(), Created: &created}); err != nil {
		return err
	}
	if err := c.send(OutboundEvent{Type: EventSessionUpdate, Session: c.sessionConfig()}); err != nil {
		return err
	}
	if err := c.send(responseCreate(c.icebreakerInstructions())); err != nil {
		return err
	}
	c.log.Info("realtime session bound", "created", created)
	return nil
}

// restoreTurns seeds the extraction window when a learner reconnects to an active session.
func (c *connection) restoreTurns() {
	msgs, err := c.e.deps.Sessions.Transcript(c.ctx, c.session.ID, recentTurnWindow)
	if err != nil {
		c.log.Warn("load recent turns failed", "error", err)
		return
	}
	for _, m := range msgs {
		c.remember(m.Role, m.Content)
	}
}

func (c *connection) handle(ev InboundEvent) {
	observability.Current().IncRealtimeEvent(eventLabel(ev.Type))
	switch ev.Type {
	case EventSpeechStarted, EventSpeechStopped:
		c.lastUserEvent = c.e.now()
	case EventTranscriptionCompleted:
		c.onTranscription(ev)
	case EventResponseDone:
		c.onResponseDone(ev)
	case EventError:
		if ev.Error != nil {
			c.log.Warn("provider error event", "code", ev.Error.Code, "message", ev.Error.Message)
		}
	}
}

func (c *connection) onTranscription(ev InboundEvent) {
	text := strings.TrimSpace(ev.Transcript)
	now := c.e.now()
	var latency *int64
	if !c.lastUserEvent.IsZero() {
		ms := now.Sub(c.lastUserEvent).Milliseconds()
		latency = &ms
	}
	c.lastUserEvent = now
	if text == "" {
		return
	}

	_, userCount, err := c.e.deps.Sessions.AppendMessage(c.ctx, c.session.ID, types.RoleUser, text, latency)
	if err != nil {
		c.log.Warn("append learner message failed", "error", err)
		return
	}
	prior := append([]extraction.Turn(nil), c.turns...)
	lastAssistant := c.lastAssistant
	c.remember(types.RoleUser, text)

	if userCount > 0 && userCount%c.e.policy.BehaviorInterval == 0 {
		c.submitBehavior(text)
	}
	if extraction.Substantive(text) {
		c.submitExtraction(prior, lastAssistant, text)
	}
}

func (c *connection) onResponseDone(ev InboundEvent) {
	if ev.Response == nil {
		return
	}
	var parts []string
	var calls []OutputItem
	for _, item := range ev.Response.Output {
		switch item.Type {
		case "message":
			for _, p := range item.Content {
				if s := strings.TrimSpace(p.Text + p.Transcript); s != "" {
					parts = append(parts, s)
				}
			}
		case "function_call":
			calls = append(calls, item)
		}
	}

	if len(parts) > 0 {
		text := strings.Join(parts, " ")
		if _, _, err := c.e.deps.Sessions.AppendMessage(c.ctx, c.session.ID, types.RoleAssistant, text, nil); err != nil {
			c.log.Warn("append coach message failed", "error", err)
		} else {
			c.lastAssistant = text
			c.remember(types.RoleAssistant, text)
		}
	}

	for _, call := range calls {
		out := c.dispatch(call)
		if err := c.send(functionCallOutput(call.CallID, out)); err != nil {
			c.log.Warn("send tool output failed", "tool", call.Name, "error", err)
			return
		}
		if err := c.send(responseCreate("")); err != nil {
			c.log.Warn("request continuation failed", "tool", call.Name, "error", err)
			return
		}
	}
}

func (c *connection) remember(role, content string) {
	c.turns = append(c.turns, extraction.Turn{Role: role, Content: content})
	if len(c.turns) > recentTurnWindow {
		c.turns = c.turns[len(c.turns)-recentTurnWindow:]
	}
}

func (c *connection) submitBehavior(message string) {
	sessionID := c.session.ID
	topic := c.chapter.Title
	err := c.e.deps.Tasks.Submit("behavior_analysis", func(ctx context.Context) error {
		msgs, err := c.e.deps.Sessions.Transcript(c.taskContext(ctx), sessionID, behaviorWindow)
		if err != nil {
			return err
		}
		g := c.e.deps.Behavior.Guide(ctx, behavior.Input{
			Message: message,
			Window:  renderWindow(msgs),
			Topic:   topic,
		})
		if g.Empty() {
			return nil
		}
		return c.injectGuidance(g)
	})
	if err != nil {
		c.log.Warn("submit behavior analysis failed", "error", err)
	}
}

func (c *connection) submitExtraction(prior []extraction.Turn, lastAssistant, message string) {
	req := extraction.Request{
		LearnerID:      c.learnerID,
		SessionID:      c.session.ID,
		CourseTitle:    c.course.Title,
		ChapterTitle:   c.chapter.Title,
		ChapterExcerpt: excerpt(c.chapter.Content, chapterExcerptLen),
		RecentTurns:    prior,
		LastAssistant:  lastAssistant,
		Message:        message,
	}
	err := c.e.deps.Tasks.Submit("memory_extraction", func(ctx context.Context) error {
		_, err := c.e.deps.Extractor.Process(ctx, req)
		return err
	})
	if err != nil {
		c.log.Warn("submit memory extraction failed", "error", err)
	}
}

// injectGuidance adds the bundle to the conversation as a system item. It does not request a
// response; the model uses it on its next turn.
func (c *connection) injectGuidance(g behavior.Guidance) error {
	if err := c.send(systemMessage(g.Render())); err != nil {
		return fmt.Errorf("inject guidance: %w", err)
	}
	observability.Current().IncGuidanceInjected(g.PrimaryConcept)
	c.log.Debug("guidance injected", "concept", g.PrimaryConcept, "band", g.PrimaryBand)
	return nil
}

// taskContext carries the caller's identity into a background task's context.
func (c *connection) taskContext(ctx context.Context) context.Context {
	if rd := ctxutil.GetRequestData(c.ctx); rd != nil {
		return ctxutil.WithRequestData(ctx, rd)
	}
	return ctx
}

// send serializes writes; background guidance injection races with the reader's replies.
func (c *connection) send(ev OutboundEvent) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return errConnClosed
	}
	return c.conn.WriteJSON(ev)
}

var errConnClosed = errors.New("realtime connection closed")

func (c *connection) disconnect() {
	c.writeMu.Lock()
	c.closed = true
	_ = c.conn.Close()
	c.writeMu.Unlock()

	if c.session == nil {
		return
	}
	c.e.deps.Extractor.Forget(c.session.ID)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), c.e.policy.CompleteTimeout)
	defer cancel()
	if _, err := c.e.deps.Sessions.Complete(ctx, c.session.ID); err != nil {
		c.log.Warn("complete on disconnect failed", "error", err)
		return
	}
	c.log.Info("realtime session closed")
}

// eventLabel bounds metric cardinality to the event types the engine acts on.
func eventLabel(t string) string {
	switch t {
	case EventTranscriptionCompleted, EventResponseDone, EventSpeechStarted, EventSpeechStopped, EventError:
		return t
	default:
		return "other"
	}
}

func renderWindow(msgs []*types.SessionMessage) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(m.Content))
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
