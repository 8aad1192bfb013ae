package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	return path
}

func TestLoadPolicyDefaults(t *testing.T) {
	p, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if p.VADThreshold != 0.5 || p.BehaviorInterval != 10 || p.SmoothingWeight != 0.3 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadPolicyOverridesAndKeepsDefaults(t *testing.T) {
	path := writePolicy(t, "vad_threshold: 0.65\nbehavior_interval: 6\nextraction_interval: 30s\nvoice: verse\n")
	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if p.VADThreshold != 0.65 || p.BehaviorInterval != 6 || p.Voice != "verse" {
		t.Fatalf("overrides not applied: %+v", p)
	}
	if p.SilenceDurationMS != 700 || p.SmoothingWeight != 0.3 {
		t.Fatalf("defaults lost: %+v", p)
	}
	rt := p.Realtime()
	if rt.BehaviorInterval != 6 || rt.Voice != "verse" {
		t.Fatalf("realtime policy: %+v", rt)
	}
	if got := p.Extraction().Rate; got != rate.Every(30*time.Second) {
		t.Fatalf("extraction rate: %v", got)
	}
}

func TestLoadPolicyRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"unknown key": "vad_treshold: 0.4\n",
		"threshold":   "vad_threshold: 1.5\n",
		"smoothing":   "smoothing_weight: 0\n",
		"interval":    "behavior_interval: -1\n",
		"not yaml":    "vad_threshold: [\n",
		"confidence":  "confidence_floor: 2\n",
		"extraction":  "extraction_burst: 0\n",
	}
	for name, body := range cases {
		if _, err := LoadPolicy(writePolicy(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("missing file: expected error")
	}
}
