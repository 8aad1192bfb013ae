package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-coach/internal/data/repos"
	"github.com/yungbote/neurobridge-coach/internal/data/repos/testutil"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/coachtest"
	"github.com/yungbote/neurobridge-coach/internal/platform/vectorstore"
)

func newTestStore(t *testing.T, ai *coachtest.FakeAI, vec vectorstore.VectorStore) (*Store, repos.MemoryRepo) {
	t.Helper()
	db := testutil.DB(t)
	memRepo := repos.NewMemoryRepo(db, testutil.Logger(t))
	return NewStore(testutil.Logger(t), ai, vec, memRepo), memRepo
}

func TestEnrichFallsBackToRawText(t *testing.T) {
	ai := coachtest.NewFakeAI()
	ai.JSONErr["memory_enrich"] = errors.New("model down")
	s, _ := newTestStore(t, ai, nil)

	got := s.Enrich(context.Background(), "Likes chess", "I like chess")
	if got.EnrichedText != "Likes chess" || len(got.Categories) != 0 {
		t.Fatalf("fallback: %+v", got)
	}

	ai.JSONErr = map[string]error{}
	ai.JSON["memory_enrich"] = map[string]any{"enriched_text": "Likes chess, board games, strategy", "categories": []any{"Hobby", "hobby"}}
	got = s.Enrich(context.Background(), "Likes chess", "I like chess")
	if !strings.Contains(got.EnrichedText, "board games") || len(got.Categories) != 1 || got.Categories[0] != "hobby" {
		t.Fatalf("enriched: %+v", got)
	}
}

func TestAddClampsImportanceAndIndexes(t *testing.T) {
	ai := coachtest.NewFakeAI()
	ai.JSON["memory_enrich"] = map[string]any{"enriched_text": "Plays guitar; music; instrument", "categories": []any{"hobby"}}
	vec := &coachtest.FakeVectors{}
	s, _ := newTestStore(t, ai, vec)
	learner := uuid.New()

	m, err := s.Add(context.Background(), AddInput{LearnerID: learner, RawText: "Plays guitar", Tags: []string{"Music"}, ContextTypes: []string{"personal"}, Importance: 42})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if m.Importance != 10 {
		t.Fatalf("importance: want=10 got=%d", m.Importance)
	}
	if len(vec.Upserted) != 1 || vec.Upserted[0].ID != m.ID.String() {
		t.Fatalf("upserted: %+v", vec.Upserted)
	}
	if vec.Upserted[0].Metadata["learner_id"] != learner.String() {
		t.Fatalf("metadata: %+v", vec.Upserted[0].Metadata)
	}
	if len(ai.Embeds) != 1 || !strings.Contains(ai.Embeds[0], "Plays guitar; music") || !strings.Contains(ai.Embeds[0], "tags: music") || !strings.Contains(ai.Embeds[0], "context: personal") {
		t.Fatalf("embedding text: %q", ai.Embeds)
	}

	if m, err := s.Add(context.Background(), AddInput{LearnerID: learner, RawText: "Default importance"}); err != nil || m.Importance != 5 {
		t.Fatalf("default importance: err=%v m=%+v", err, m)
	}
}

func TestAddEmbedFailureBlocksPersist(t *testing.T) {
	ai := coachtest.NewFakeAI()
	ai.EmbedErr = errors.New("embedding service down")
	s, memRepo := newTestStore(t, ai, nil)
	learner := uuid.New()

	if _, err := s.Add(context.Background(), AddInput{LearnerID: learner, RawText: "Plays guitar"}); err == nil {
		t.Fatalf("expected embed error")
	}
	if n, _ := memRepo.CountByLearner(testDBC(), learner); n != 0 {
		t.Fatalf("memory persisted despite embed failure")
	}
}

func TestAddIndexFailureStillPersists(t *testing.T) {
	ai := coachtest.NewFakeAI()
	vec := &coachtest.FakeVectors{Err: errors.New("qdrant down")}
	s, memRepo := newTestStore(t, ai, vec)
	learner := uuid.New()

	if _, err := s.Add(context.Background(), AddInput{LearnerID: learner, RawText: "Prefers diagrams"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if n, _ := memRepo.CountByLearner(testDBC(), learner); n != 1 {
		t.Fatalf("expected row persisted, got %d", n)
	}
}

func TestFindSimilarVectorPath(t *testing.T) {
	ai := coachtest.NewFakeAI()
	vec := &coachtest.FakeVectors{}
	s, _ := newTestStore(t, ai, vec)
	ctx := context.Background()
	learner := uuid.New()

	a, _ := s.Add(ctx, AddInput{LearnerID: learner, RawText: "Confused by recursion", ContextTypes: []string{"academic"}, Tags: []string{"recursion"}})
	b, _ := s.Add(ctx, AddInput{LearnerID: learner, RawText: "Enjoys hiking", ContextTypes: []string{"personal"}})
	vec.Matches = []vectorstore.VectorMatch{
		{ID: b.ID.String(), Score: 0.9},
		{ID: a.ID.String(), Score: 0.8},
		{ID: uuid.NewString(), Score: 0.95},
		{ID: "not-a-uuid", Score: 0.99},
	}

	res, err := s.FindSimilar(ctx, learner, "recursion trouble", SearchOptions{ContextType: "academic"})
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if res.Mode != ModeVector || len(res.Matches) != 1 || res.Matches[0].Memory.ID != a.ID {
		t.Fatalf("vector result: %+v", res)
	}
	q := vec.Queries[0]
	if q.Filter["learner_id"] != learner.String() || q.Filter["context_type"] == nil || q.MinScore != DefaultMinScore {
		t.Fatalf("query: %+v", q)
	}
}

func TestFindSimilarFallsBackToLexical(t *testing.T) {
	ai := coachtest.NewFakeAI()
	vec := &coachtest.FakeVectors{}
	s, _ := newTestStore(t, ai, vec)
	ctx := context.Background()
	learner := uuid.New()

	if _, err := s.Add(ctx, AddInput{LearnerID: learner, RawText: "Struggles with recursion base cases"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add(ctx, AddInput{LearnerID: learner, RawText: "Enjoys hiking"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	vec.Err = errors.New("connection refused")
	res, err := s.FindSimilar(ctx, learner, "recursion", SearchOptions{})
	if err != nil {
		t.Fatalf("FindSimilar must not surface index errors: %v", err)
	}
	if res.Mode != ModeLexical || len(res.Matches) != 1 || !strings.Contains(res.Matches[0].Memory.RawText, "recursion") {
		t.Fatalf("lexical result: %+v", res)
	}

	vec.Err = nil
	ai.EmbedErr = errors.New("embedding down")
	res, err = s.FindSimilar(ctx, learner, "nothing matches zebra", SearchOptions{})
	if err != nil || res.Mode != ModeLexical || len(res.Matches) != 0 {
		t.Fatalf("empty lexical result: err=%v res=%+v", err, res)
	}
}

func TestFindSimilarWithoutIndexUsesLexical(t *testing.T) {
	ai := coachtest.NewFakeAI()
	s, _ := newTestStore(t, ai, nil)
	ctx := context.Background()
	learner := uuid.New()

	_, _ = s.Add(ctx, AddInput{LearnerID: learner, RawText: "Plays guitar"})
	_, _ = s.Add(ctx, AddInput{LearnerID: learner, RawText: "Struggles with loops"})
	embeds := len(ai.Embeds)

	res, err := s.FindSimilar(ctx, learner, "guitar", SearchOptions{Limit: 5})
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if res.Mode != ModeLexical || len(res.Matches) != 1 || res.Matches[0].Memory.RawText != "Plays guitar" {
		t.Fatalf("lexical result: %+v", res)
	}
	if len(ai.Embeds) != embeds {
		t.Fatalf("query embedded without an index")
	}
}

func TestFindSimilarMinScore(t *testing.T) {
	ai := coachtest.NewFakeAI()
	vec := &coachtest.FakeVectors{}
	s, _ := newTestStore(t, ai, vec)
	ctx := context.Background()
	learner := uuid.New()

	weak, _ := s.Add(ctx, AddInput{LearnerID: learner, RawText: "Mentioned a cat once"})
	vec.Matches = []vectorstore.VectorMatch{{ID: weak.ID.String(), Score: 0.1}}

	res, err := s.FindSimilar(ctx, learner, "pets", SearchOptions{})
	if err != nil || len(res.Matches) != 0 {
		t.Fatalf("default floor: err=%v res=%+v", err, res)
	}

	zero := 0.0
	res, err = s.FindSimilar(ctx, learner, "pets", SearchOptions{MinScore: &zero})
	if err != nil || len(res.Matches) != 1 || res.Matches[0].Score != 0.1 {
		t.Fatalf("zero floor: err=%v res=%+v", err, res)
	}
	if q := vec.Queries[len(vec.Queries)-1]; q.MinScore != 0 {
		t.Fatalf("index query floor: %v", q.MinScore)
	}
}

func TestSummaryListsMemories(t *testing.T) {
	ai := coachtest.NewFakeAI()
	s, _ := newTestStore(t, ai, nil)
	ctx := context.Background()
	learner := uuid.New()

	if got, err := s.Summary(ctx, learner, 5); err != nil || got != "(no stored memories)" {
		t.Fatalf("empty summary: %q err=%v", got, err)
	}
	_, _ = s.Add(ctx, AddInput{LearnerID: learner, RawText: "Prefers worked examples", ContextTypes: []string{"academic"}, Importance: 9})
	got, err := s.Summary(ctx, learner, 5)
	if err != nil || got != "- Prefers worked examples [academic]" {
		t.Fatalf("summary: %q err=%v", got, err)
	}
}

func TestClampImportance(t *testing.T) {
	for in, want := range map[int]int{0: 5, -3: 1, 11: 10, 7: 7} {
		if got := ClampImportance(in); got != want {
			t.Fatalf("ClampImportance(%d): want=%d got=%d", in, want, got)
		}
	}
}
