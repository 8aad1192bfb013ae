package envutil

import (
	"testing"
	"time"
)

func TestParsersFallBackToDefault(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "nope")
	t.Setenv("ENVUTIL_FLOAT", "0.25")
	t.Setenv("ENVUTIL_BOOL", "off")
	t.Setenv("ENVUTIL_DUR", "45")

	if got := Int("ENVUTIL_INT", 7); got != 7 {
		t.Fatalf("Int fallback: got %d", got)
	}
	if got := Float("ENVUTIL_FLOAT", 1); got != 0.25 {
		t.Fatalf("Float: got %v", got)
	}
	if got := Bool("ENVUTIL_BOOL", true); got {
		t.Fatalf("Bool: expected false")
	}
	if got := Duration("ENVUTIL_DUR", time.Second); got != 45*time.Second {
		t.Fatalf("Duration seconds: got %v", got)
	}
	if got := String("ENVUTIL_MISSING", "x"); got != "x" {
		t.Fatalf("String default: got %q", got)
	}
}
