package coaching

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-coach/internal/data/repos/testutil"
	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
)

func TestMemoryRepoLexicalSearch(t *testing.T) {
	db := testutil.DB(t)
	repo := NewMemoryRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	learner, other := uuid.New(), uuid.New()

	testutil.SeedMemory(t, ctx, db, learner, "Plays guitar in a jazz band on weekends", []string{"hobby"}, []string{"personal"}, nil)
	testutil.SeedMemory(t, ctx, db, learner, "Struggles with recursion base cases", []string{"recursion"}, []string{"academic"}, nil)
	testutil.SeedMemory(t, ctx, db, learner, "Prefers visual diagrams of recursion trees", nil, []string{"academic"}, nil)
	testutil.SeedMemory(t, ctx, db, other, "Also struggles with recursion", nil, nil, nil)

	got, err := repo.LexicalSearch(dbc, learner, "recursion base cases", 5)
	if err != nil {
		t.Fatalf("LexicalSearch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches for learner, got %d", len(got))
	}
	if got[0].Memory.RawText != "Struggles with recursion base cases" {
		t.Fatalf("best match first: got %q", got[0].Memory.RawText)
	}
	if !(got[0].Score > got[1].Score) || got[0].Score > 1 {
		t.Fatalf("scores not ranked in (0,1]: %v %v", got[0].Score, got[1].Score)
	}
	for _, m := range got {
		if m.Memory.LearnerID != learner {
			t.Fatalf("leaked another learner's memory")
		}
	}

	if got, err := repo.LexicalSearch(dbc, learner, "ok", 5); err != nil || len(got) != 0 {
		t.Fatalf("stopword-only query: err=%v len=%d", err, len(got))
	}

	recent, err := repo.ListRecent(dbc, learner, 2)
	if err != nil || len(recent) != 2 {
		t.Fatalf("ListRecent: err=%v len=%d", err, len(recent))
	}
	if n, err := repo.CountByLearner(dbc, learner); err != nil || n != 3 {
		t.Fatalf("CountByLearner: err=%v n=%d", err, n)
	}
}
