package normalization

import (
	"reflect"
	"testing"
)

func TestKey(t *testing.T) {
	if got := Key("  Recursion   Basics "); got != "recursion basics" {
		t.Fatalf("Key: got=%q", got)
	}
}

func TestTerms(t *testing.T) {
	got := Terms("What is the Recursion? recursion, base-case and stack!")
	want := []string{"recursion", "base", "case", "stack"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Terms: want=%v got=%v", want, got)
	}
}

func TestKeywordScore(t *testing.T) {
	q := Terms("guitar practice schedule")
	if s := KeywordScore(q, "Learner practices guitar every evening"); s <= 0.3 || s >= 0.7 {
		t.Fatalf("partial match score out of range: %v", s)
	}
	if s := KeywordScore(q, "unrelated text"); s != 0 {
		t.Fatalf("expected 0, got %v", s)
	}
	if s := KeywordScore(nil, "anything"); s != 0 {
		t.Fatalf("expected 0 for empty query, got %v", s)
	}
}
