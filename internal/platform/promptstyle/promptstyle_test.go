package promptstyle

import (
	"strings"
	"testing"
)

func TestApplySystemIdempotent(t *testing.T) {
	once := ApplySystem("Analyze the session.", "json")
	if !strings.HasPrefix(once, marker) || !strings.HasSuffix(once, "Analyze the session.") {
		t.Fatalf("unexpected prompt: %q", once)
	}
	if !strings.Contains(once, "no extra keys") {
		t.Fatalf("json mode instruction missing")
	}
	if twice := ApplySystem(once, "json"); twice != once {
		t.Fatalf("ApplySystem must not double-wrap")
	}
	if ApplySystem("   ", "text") != "" {
		t.Fatalf("blank prompt should stay blank")
	}
}
