package behavior

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/neurobridge-coach/internal/modules/coach/coachtest"
	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

func pattern(concept, category string, weight, confidence float64) map[string]any {
	return map[string]any{
		"category": category, "concept": concept, "behavior": "behavior for " + concept,
		"confidence": confidence, "evidence": "quote", "context_factors": []any{},
		"recommended_response_pattern": "respond to " + concept, "weight": weight,
		"tone_adjustments": []any{"slow down"}, "content_priorities": []any{"base case"},
		"example_phrasing": "Let's pause on that.",
	}
}

func analysisJSON(patterns ...map[string]any) map[string]any {
	ps := make([]any, 0, len(patterns))
	for _, p := range patterns {
		ps = append(ps, p)
	}
	return map[string]any{
		"patterns": ps,
		"overall_assessment": map[string]any{
			"engagement_level": "moderate", "emotional_state": "frustrated",
			"learning_readiness": "ready", "relationship_opportunity": "acknowledge effort",
		},
		"recommended_actions": []any{
			map[string]any{"action": "offer a smaller example", "priority": 2, "rationale": "r"},
			map[string]any{"action": "acknowledge frustration", "priority": 1, "rationale": "r"},
		},
	}
}

func TestGuidancePrimaryIsHighestWeight(t *testing.T) {
	patterns := []Pattern{
		{Concept: "trust", Category: CategoryRelationship, Weight: 0.2, Confidence: 0.8, RecommendedResponsePattern: "rebuild trust"},
		{Concept: "empathy", Category: CategoryRelationship, Weight: 0.85, Confidence: 0.8, RecommendedResponsePattern: "mirror feelings"},
	}
	g := GenerateGuidance(patterns, nil, DefaultConfidenceFloor)
	if g.PrimaryConcept != "empathy" || g.PrimaryStrategy != "mirror feelings" || g.PrimaryBand != BandPositive {
		t.Fatalf("primary: %+v", g)
	}
}

func TestGuidanceTieBreaksOnConfidence(t *testing.T) {
	patterns := []Pattern{
		{Concept: "attention", Weight: 0.6, Confidence: 0.55, RecommendedResponsePattern: "a"},
		{Concept: "metacognition", Weight: 0.6, Confidence: 0.9, RecommendedResponsePattern: "b"},
	}
	if g := GenerateGuidance(patterns, nil, DefaultConfidenceFloor); g.PrimaryConcept != "metacognition" {
		t.Fatalf("tie-break: %+v", g)
	}
}

func TestGuidanceAggregatesAboveFloor(t *testing.T) {
	patterns := []Pattern{
		{Concept: "attention", Weight: 0.6, Confidence: 0.9, ToneAdjustments: []string{"Be brief", "be brief"}, ContentPriorities: []string{"loops"}},
		{Concept: "trust", Weight: 0.4, Confidence: 0.3, ToneAdjustments: []string{"ignored"}, ContentPriorities: []string{"ignored"}},
		{Concept: "empathy", Weight: 0.7, Confidence: 0.5, ToneAdjustments: []string{"warm"}, RecommendedResponsePattern: "validate"},
	}
	actions := []RecommendedAction{{Action: "ask a check question", Priority: 1}, {Action: "recap", Priority: 2}}
	g := GenerateGuidance(patterns, actions, DefaultConfidenceFloor)
	if strings.Join(g.ToneAdjustments, "|") != "Be brief|warm" {
		t.Fatalf("tone: %v", g.ToneAdjustments)
	}
	if strings.Join(g.ContentPriorities, "|") != "loops" {
		t.Fatalf("content: %v", g.ContentPriorities)
	}
	if strings.Join(g.ImmediateActions, "|") != "validate|ask a check question" || strings.Join(g.FollowUpActions, "|") != "recap" {
		t.Fatalf("actions: now=%v later=%v", g.ImmediateActions, g.FollowUpActions)
	}
	if !strings.Contains(g.Render(), "Strategy (empathy, positive): validate") {
		t.Fatalf("render: %q", g.Render())
	}
}

func TestGuidanceEmpty(t *testing.T) {
	g := GenerateGuidance(nil, []RecommendedAction{{Action: "x"}}, DefaultConfidenceFloor)
	if !g.Empty() || g.Render() != "" {
		t.Fatalf("expected empty bundle, got %+v", g)
	}
}

func TestBand(t *testing.T) {
	cases := map[float64]string{
		0: BandStronglyNegative, 0.29: BandStronglyNegative, 0.3: BandMildlyNegative,
		0.5: BandNeutral, 0.7: BandPositive, 0.9: BandStronglyPositive, 1: BandStronglyPositive,
	}
	for w, want := range cases {
		if got := Band(w); got != want {
			t.Fatalf("Band(%v): want=%s got=%s", w, want, got)
		}
	}
}

func TestAnalyzeValidatesTaxonomy(t *testing.T) {
	ai := coachtest.NewFakeAI()
	a := NewAnalyzer(logger.Nop(), ai, 0)
	in := Input{Message: "I still don't get it and this is pointless", Topic: "recursion"}

	ai.JSON["behavior_analyze"] = analysisJSON(pattern("empathy", CategoryRelationship, 0.85, 0.8))
	an, err := a.Analyze(context.Background(), in)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if an.RecommendedActions[0].Priority != 1 || an.Overall.EmotionalState != "frustrated" {
		t.Fatalf("analysis: %+v", an)
	}

	bad := map[string]map[string]any{
		"unknown concept":   pattern("charisma", CategoryRelationship, 0.5, 0.5),
		"category mismatch": pattern("attention", CategoryRelationship, 0.5, 0.5),
		"weight range":      pattern("trust", CategoryRelationship, 1.5, 0.5),
		"confidence range":  pattern("trust", CategoryRelationship, 0.5, -0.1),
	}
	for name, p := range bad {
		ai.JSON["behavior_analyze"] = analysisJSON(p)
		if _, err := a.Analyze(context.Background(), in); !errors.Is(err, coacherrors.ErrUpstreamModel) {
			t.Fatalf("%s: expected ErrUpstreamModel, got %v", name, err)
		}
	}
}

func TestGuideSwallowsFailures(t *testing.T) {
	ai := coachtest.NewFakeAI()
	ai.JSONErr["behavior_analyze"] = errors.New("timeout")
	a := NewAnalyzer(logger.Nop(), ai, 0)
	if g := a.Guide(context.Background(), Input{Message: "hello there"}); !g.Empty() {
		t.Fatalf("expected empty guidance on failure, got %+v", g)
	}

	ai.JSONErr = map[string]error{}
	ai.JSON["behavior_analyze"] = analysisJSON(
		pattern("trust", CategoryRelationship, 0.2, 0.7),
		pattern("cognitive_load", CategoryLearning, 0.85, 0.7),
	)
	g := a.Guide(context.Background(), Input{Message: "hello there"})
	if g.PrimaryConcept != "cognitive_load" || g.ImmediateActions[1] != "acknowledge frustration" {
		t.Fatalf("guide: %+v", g)
	}
}

func TestTaxonomyText(t *testing.T) {
	got := TaxonomyText()
	if !strings.Contains(got, "relationship: effective_communication, empathy, honesty, reciprocity, respect, trust") ||
		!strings.Contains(got, "learning: attention, cognitive_load, metacognition") {
		t.Fatalf("taxonomy text: %q", got)
	}
}

func TestUniqueLabelsKeepsFirstSeen(t *testing.T) {
	got := uniqueLabels([]string{"  Slow down ", "", "slow   DOWN", "   ", "Use an analogy", "use an analogy"})
	if strings.Join(got, "|") != "Slow down|Use an analogy" {
		t.Fatalf("labels: %q", got)
	}
	if uniqueLabels([]string{" ", ""}) != nil {
		t.Fatalf("blank input should yield nil")
	}
}
