package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/goleak"

	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/jobs/worker"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/behavior"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/memory"
	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
	"github.com/yungbote/neurobridge-coach/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type harness struct {
	learnerID uuid.UUID
	binding   Binding
	sessions  *fakeSessions
	memories  *fakeMemories
	feedback  *fakeFeedback
	extractor *fakeExtractor
	guide     *fakeGuide
	deps      Deps
}

func newHarness() *harness {
	learnerID := uuid.New()
	course := &types.Course{ID: uuid.New(), Title: "Algorithms", Level: "beginner"}
	chapter := &types.CourseChapter{ID: uuid.New(), CourseID: course.ID, Title: "Recursion", Content: "A function that calls itself."}
	h := &harness{
		learnerID: learnerID,
		binding:   Binding{CourseID: course.ID, ChapterID: chapter.ID},
		sessions:  newFakeSessions(learnerID, course.ID, chapter.ID),
		memories: &fakeMemories{matches: []memory.Match{{
			Memory: &types.Memory{ID: uuid.New(), EnrichedText: "Learner plays chess on weekends", Tags: types.JSON([]string{"hobby"}), ContextType: types.JSON([]string{"personal"})},
			Score:  0.91,
		}}},
		feedback:  &fakeFeedback{},
		extractor: &fakeExtractor{},
		guide: &fakeGuide{out: behavior.Guidance{
			PrimaryConcept: "empathy", PrimaryBand: behavior.BandPositive, PrimaryStrategy: "mirror feelings",
		}},
	}
	h.deps = Deps{
		Log:       logger.Nop(),
		Sessions:  h.sessions,
		Courses:   &fakeCourses{course: course, chapter: chapter},
		Memories:  h.memories,
		Profiles:  fakeProfiles{},
		Feedback:  h.feedback,
		Extractor: h.extractor,
		Behavior:  h.guide,
		Tasks:     worker.Inline{Log: logger.Nop()},
		Policy:    Policy{BehaviorInterval: 2},
	}
	return h
}

// dial starts an engine behind a websocket endpoint and connects a client. served receives
// Serve's result once the server side is done.
func (h *harness) dial(t *testing.T) (*websocket.Conn, <-chan error) {
	t.Helper()
	e := NewEngine(h.deps)
	up := NewUpgrader(nil)
	served := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			served <- err
			return
		}
		ctx := ctxutil.WithRequestData(r.Context(), &ctxutil.RequestData{LearnerID: h.learnerID})
		served <- e.Serve(ctx, WrapConn(ws), h.binding)
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, served
}

func read(t *testing.T, c *websocket.Conn) map[string]any {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev map[string]any
	if err := c.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func send(t *testing.T, c *websocket.Conn, ev any) {
	t.Helper()
	if err := c.WriteJSON(ev); err != nil {
		t.Fatalf("write event: %v", err)
	}
}

func readSetup(t *testing.T, c *websocket.Conn) (bound, update, icebreaker map[string]any) {
	t.Helper()
	return read(t, c), read(t, c), read(t, c)
}

func hangUp(t *testing.T, c *websocket.Conn, served <-chan error) error {
	t.Helper()
	_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	select {
	case err := <-served:
		return err
	case <-time.After(3 * time.Second):
		t.Fatalf("server did not finish after close")
		return nil
	}
}

func transcription(text string) map[string]any {
	return map[string]any{"type": EventTranscriptionCompleted, "item_id": uuid.NewString(), "transcript": text}
}

func functionCall(name, callID, args string) map[string]any {
	return map[string]any{"type": EventResponseDone, "response": map[string]any{
		"output": []any{map[string]any{"type": "function_call", "name": name, "call_id": callID, "arguments": args}},
	}}
}

func TestConnectConfiguresSessionAndOpensWithContext(t *testing.T) {
	h := newHarness()
	ended := time.Now().UTC().Add(-3 * 24 * time.Hour)
	h.sessions.prev = &types.CoachingSession{ID: uuid.New(), EndTime: &ended}

	c, served := h.dial(t)
	bound, update, ice := readSetup(t, c)

	if bound["type"] != EventCoachBound || bound["session_id"] != h.sessions.session.ID.String() || bound["created"] != true {
		t.Fatalf("bound event: %v", bound)
	}

	if update["type"] != EventSessionUpdate {
		t.Fatalf("expected session.update, got %v", update["type"])
	}
	sess := update["session"].(map[string]any)
	td := sess["audio"].(map[string]any)["input"].(map[string]any)["turn_detection"].(map[string]any)
	if td["type"] != "server_vad" || td["threshold"] != 0.5 || td["silence_duration_ms"] != 700.0 {
		t.Fatalf("turn detection: %v", td)
	}
	if tools := sess["tools"].([]any); len(tools) != 4 {
		t.Fatalf("tools: want=4 got=%d", len(tools))
	}
	instr := sess["instructions"].(string)
	if !strings.Contains(instr, "Algorithms") || !strings.Contains(instr, "Recursion") || !strings.Contains(instr, "plays chess") {
		t.Fatalf("instructions missing context: %q", instr)
	}

	if ice["type"] != EventResponseCreate {
		t.Fatalf("expected response.create, got %v", ice["type"])
	}
	opening := ice["response"].(map[string]any)["instructions"].(string)
	if !strings.Contains(opening, "3 days") || !strings.Contains(opening, "chess") {
		t.Fatalf("icebreaker not contextual: %q", opening)
	}

	if err := hangUp(t, c, served); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	select {
	case id := <-h.sessions.completed:
		if id != h.sessions.session.ID {
			t.Fatalf("completed wrong session: %s", id)
		}
	default:
		t.Fatalf("session not completed on disconnect")
	}
}

func TestTranscriptsResponsesAndGuidance(t *testing.T) {
	h := newHarness()
	c, served := h.dial(t)
	readSetup(t, c)

	send(t, c, map[string]any{"type": EventSpeechStarted})
	send(t, c, transcription("I think recursion needs a base case to stop"))
	send(t, c, map[string]any{"type": EventResponseDone, "response": map[string]any{
		"output": []any{map[string]any{"type": "message", "role": "assistant", "content": []any{
			map[string]any{"type": "output_audio", "transcript": "Right, and"},
			map[string]any{"type": "output_text", "text": "what happens without one?"},
		}}},
	}})
	// Second learner message hits the behavior interval.
	send(t, c, transcription("ok"))

	guidance := read(t, c)
	item := guidance["item"].(map[string]any)
	if guidance["type"] != EventItemCreate || item["role"] != "system" {
		t.Fatalf("guidance event: %v", guidance)
	}
	text := item["content"].([]any)[0].(map[string]any)["text"].(string)
	if !strings.Contains(text, "mirror feelings") {
		t.Fatalf("guidance text: %q", text)
	}

	if err := hangUp(t, c, served); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	msgs := h.sessions.snapshot()
	if len(msgs) != 3 {
		t.Fatalf("messages: want=3 got=%d", len(msgs))
	}
	if msgs[0].Role != types.RoleUser || msgs[0].LatencyMS == nil {
		t.Fatalf("first learner message should carry latency: %+v", msgs[0])
	}
	if msgs[1].Role != types.RoleAssistant || msgs[1].Content != "Right, and what happens without one?" {
		t.Fatalf("assistant message: %+v", msgs[1])
	}

	reqs := h.extractor.seen()
	if len(reqs) != 1 || reqs[0].Message != "I think recursion needs a base case to stop" || reqs[0].ChapterTitle != "Recursion" {
		t.Fatalf("extraction requests: %+v", reqs)
	}
	if len(h.guide.inputs) != 1 || h.guide.inputs[0].Topic != "Recursion" || h.guide.inputs[0].Message != "ok" {
		t.Fatalf("behavior inputs: %+v", h.guide.inputs)
	}
	if len(h.extractor.forgot) != 1 {
		t.Fatalf("extraction limiter not released")
	}
}

func TestToolCallsReturnOutputAndContinue(t *testing.T) {
	h := newHarness()
	c, served := h.dial(t)
	readSetup(t, c)

	expectOutput := func(callID string) map[string]any {
		t.Helper()
		ev := read(t, c)
		item := ev["item"].(map[string]any)
		if ev["type"] != EventItemCreate || item["type"] != "function_call_output" || item["call_id"] != callID {
			t.Fatalf("tool output event: %v", ev)
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(item["output"].(string)), &out); err != nil {
			t.Fatalf("tool output not JSON: %v", err)
		}
		if next := read(t, c); next["type"] != EventResponseCreate || next["response"] != nil {
			t.Fatalf("expected bare response.create, got %v", next)
		}
		return out
	}

	send(t, c, functionCall(ToolSaveMemory, "call_1", `{"text":"Prefers diagrams","context_type":"academic","tags":["visual"]}`))
	if out := expectOutput("call_1"); out["saved"] != true {
		t.Fatalf("save_memory output: %v", out)
	}

	send(t, c, functionCall(ToolSearchMemories, "call_2", `{"query":"hobbies"}`))
	out := expectOutput("call_2")
	if out["mode"] != memory.ModeVector || !strings.Contains(toJSON(out["memories"]), "chess") {
		t.Fatalf("search_memories output: %v", out)
	}

	send(t, c, functionCall(ToolRecordFeedback, "call_3", `{"sentiment":"positive","indicators":["laughed"]}`))
	if out := expectOutput("call_3"); out["recorded"] != true {
		t.Fatalf("record_feedback output: %v", out)
	}

	send(t, c, functionCall(ToolGetLearnerProfile, "call_4", ""))
	if out := expectOutput("call_4"); !strings.Contains(out["summary"].(string), "Analytical ability 5/10") {
		t.Fatalf("profile output: %v", out)
	}

	send(t, c, functionCall("launch_rockets", "call_5", `{}`))
	if out := expectOutput("call_5"); !strings.Contains(out["error"].(string), "unknown tool") {
		t.Fatalf("unknown tool output: %v", out)
	}

	send(t, c, functionCall(ToolSaveMemory, "call_6", `{"text":"x","context_type":"diary"}`))
	if out := expectOutput("call_6"); out["error"] == nil {
		t.Fatalf("invalid context type should fail: %v", out)
	}

	if err := hangUp(t, c, served); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	if len(h.memories.added) != 1 || h.memories.added[0].ContextTypes[0] != types.ContextAcademic || *h.memories.added[0].SessionID != h.sessions.session.ID {
		t.Fatalf("memory add: %+v", h.memories.added)
	}
	if len(h.feedback.recorded) != 1 || h.feedback.recorded[0].Sentiment != "positive" {
		t.Fatalf("feedback: %+v", h.feedback.recorded)
	}
}

func TestMalformedEventsAreSkipped(t *testing.T) {
	h := newHarness()
	c, served := h.dial(t)
	readSetup(t, c)

	if err := c.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	send(t, c, map[string]any{"type": "rate_limits.updated"})
	send(t, c, transcription("Still here and still learning about recursion"))
	if err := hangUp(t, c, served); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if msgs := h.sessions.snapshot(); len(msgs) != 1 {
		t.Fatalf("expected the valid transcript to be stored, got %d messages", len(msgs))
	}
}

func TestUnknownChapterRejectsConnection(t *testing.T) {
	h := newHarness()
	h.binding.ChapterID = uuid.New()
	c, served := h.dial(t)

	select {
	case err := <-served:
		if !errors.Is(err, coacherrors.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve did not return")
	}
	_ = c.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := c.ReadMessage(); err == nil {
		t.Fatalf("expected closed socket")
	}
	if len(h.sessions.completed) != 0 {
		t.Fatalf("unbound connection must not complete a session")
	}
}

func TestGuidanceFromPooledTask(t *testing.T) {
	h := newHarness()
	pool := worker.NewPool(logger.Nop(), worker.Config{Concurrency: 2, TaskTimeout: time.Second})
	h.deps.Tasks = pool
	h.deps.Policy.BehaviorInterval = 1

	c, served := h.dial(t)
	readSetup(t, c)
	send(t, c, transcription("yes"))

	if ev := read(t, c); ev["type"] != EventItemCreate {
		t.Fatalf("expected injected guidance, got %v", ev)
	}
	if err := hangUp(t, c, served); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.Close(ctx); err != nil {
		t.Fatalf("pool close: %v", err)
	}
}

func TestDescribeElapsed(t *testing.T) {
	cases := map[time.Duration]string{
		10 * time.Minute:    "less than an hour",
		5 * time.Hour:       "about 5 hours",
		30 * time.Hour:      "a day",
		72 * time.Hour:      "3 days",
		21 * 24 * time.Hour: "3 weeks",
		90 * 24 * time.Hour: "3 months",
	}
	for d, want := range cases {
		if got := describeElapsed(d); got != want {
			t.Fatalf("describeElapsed(%s): want=%q got=%q", d, want, got)
		}
	}
}

func TestPolicyDefaults(t *testing.T) {
	p := Policy{VADThreshold: 1.5}.withDefaults()
	if p.VADThreshold != 0.5 || p.SilenceDurationMS != 700 || p.BehaviorInterval != 10 {
		t.Fatalf("defaults: %+v", p)
	}
	p = Policy{VADThreshold: 0.8, SilenceDurationMS: 400}.withDefaults()
	if p.VADThreshold != 0.8 || p.SilenceDurationMS != 400 {
		t.Fatalf("explicit values overridden: %+v", p)
	}
}

func toJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
