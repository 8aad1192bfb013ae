package analysis

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/normalization"
)

func TestSmoothScenario(t *testing.T) {
	if got := Smooth(5, 9, 0.3); got != 6 {
		t.Fatalf("Smooth(5,9,0.3): want=6 got=%d", got)
	}
	if got := Smooth(10, 10, 0.3); got != 10 {
		t.Fatalf("Smooth(10,10): got=%d", got)
	}
	if got := Smooth(1, -40, 0.3); got != 1 {
		t.Fatalf("Smooth clamps low: got=%d", got)
	}
	if got := Smooth(10, 80, 0.3); got != 10 {
		t.Fatalf("Smooth clamps high: got=%d", got)
	}
}

func TestScoresStayInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	lp := types.NewUserLearningProfile(uuid.New(), time.Now())
	cp := types.NewCourseUserProfile(lp.LearnerID, uuid.New(), time.Now())
	for i := 0; i < 500; i++ {
		r := &types.SessionAnalysisReport{
			OverallUnderstanding: rng.Intn(30) - 10,
			KeyObservations: types.JSON([]types.KeyObservation{
				{Category: "critical_thinking", Observation: "critical analysis", Importance: rng.Intn(30) - 10},
				{Category: "problem_solving", Observation: "found a solution", Importance: rng.Intn(30) - 10},
			}),
			EngagementLevelInsights: []string{"high", "low", "steady"}[rng.Intn(3)],
		}
		UpdateLearnerProfile(lp, r, DefaultSmoothingWeight, time.Now())
		UpdateCourseProfile(cp, r, DefaultSmoothingWeight, time.Now())
		for name, v := range map[string]int{
			"analytical": lp.AnalyticalAbility, "critical": lp.CriticalThinking, "problem": lp.ProblemSolving,
			"comprehension": cp.ComprehensionLevel, "engagement": cp.EngagementLevel,
		} {
			if v < 1 || v > 10 {
				t.Fatalf("iteration %d: %s=%d out of range", i, name, v)
			}
		}
	}
}

func TestLearnerProfileUpdate(t *testing.T) {
	lp := types.NewUserLearningProfile(uuid.New(), time.Now())
	lp.GeneralStrengths = types.JSON([]string{"Asks precise questions"})
	r := &types.SessionAnalysisReport{
		OverallUnderstanding: 9,
		KeyObservations: types.JSON([]types.KeyObservation{
			{Category: "strength", Observation: "Asks precise questions", Importance: 6},
			{Category: "strength", Observation: "Persists through errors", Importance: 7},
			{Category: "weakness", Observation: "Skips edge cases", Importance: 5},
			{Category: "other", Observation: "Strong CRITICAL reading of the prompt", Importance: 10},
		}),
	}
	UpdateLearnerProfile(lp, r, DefaultSmoothingWeight, time.Now())

	if lp.AnalyticalAbility != 6 {
		t.Fatalf("analytical: want=6 got=%d", lp.AnalyticalAbility)
	}
	// round(5*0.7 + 10*0.3) = round(6.5) = 7
	if lp.CriticalThinking != 7 {
		t.Fatalf("critical: want=7 got=%d", lp.CriticalThinking)
	}
	if lp.ProblemSolving != 5 {
		t.Fatalf("problem solving must not move without matching observations: got=%d", lp.ProblemSolving)
	}
	strengths := types.DecodeJSON[[]string](lp.GeneralStrengths)
	if strings.Join(strengths, "|") != "Asks precise questions|Persists through errors" {
		t.Fatalf("strengths: %v", strengths)
	}
	if w := types.DecodeJSON[[]string](lp.GeneralWeaknesses); len(w) != 1 || w[0] != "Skips edge cases" {
		t.Fatalf("weaknesses: %v", w)
	}
}

func TestEngagementFromInsights(t *testing.T) {
	cases := map[string]int{
		"Engagement was HIGH throughout": 8,
		"low energy near the end":        3,
		"moderate":                       5,
		"":                               5,
	}
	for in, want := range cases {
		if got := EngagementFromInsights(in); got != want {
			t.Fatalf("EngagementFromInsights(%q): want=%d got=%d", in, want, got)
		}
	}
}

func TestRecursionMovesToMastered(t *testing.T) {
	mastered := []types.ConceptMastery{}
	misunderstood := []types.ConceptMastery{{ConceptName: "recursion", Level: 3, Notes: "lost in the call stack"}}
	mastered, misunderstood = ApplyConcepts(mastered, misunderstood,
		[]types.ConceptAssessment{{ConceptName: "Recursion", Level: 8, Evidence: "traced factorial correctly"}}, nil)

	if len(misunderstood) != 0 {
		t.Fatalf("recursion still misunderstood: %+v", misunderstood)
	}
	if len(mastered) != 1 || mastered[0].Level != 8 || mastered[0].Notes != "traced factorial correctly" {
		t.Fatalf("mastered: %+v", mastered)
	}
}

func TestSameListUpdateAppendsEvidence(t *testing.T) {
	mastered := []types.ConceptMastery{{ConceptName: "loops", Level: 6, Notes: "first"}}
	mastered, _ = ApplyConcepts(mastered, nil, []types.ConceptAssessment{{ConceptName: "loops", Level: 9, Evidence: "second"}}, nil)
	if len(mastered) != 1 || mastered[0].Level != 9 || mastered[0].Notes != "first\nsecond" {
		t.Fatalf("mastered: %+v", mastered)
	}
}

func TestConceptListsStayDisjoint(t *testing.T) {
	names := []string{"recursion", "Recursion ", "loops", "big o", "pointers"}
	rng := rand.New(rand.NewSource(42))
	var mastered, misunderstood []types.ConceptMastery
	for i := 0; i < 300; i++ {
		var understood, struggling []types.ConceptAssessment
		for j := rng.Intn(4); j > 0; j-- {
			c := types.ConceptAssessment{ConceptName: names[rng.Intn(len(names))], Level: 1 + rng.Intn(10), Evidence: "e"}
			if rng.Intn(2) == 0 {
				understood = append(understood, c)
			} else {
				struggling = append(struggling, c)
			}
		}
		mastered, misunderstood = ApplyConcepts(mastered, misunderstood, understood, struggling)

		seen := map[string]string{}
		for _, m := range mastered {
			k := normalization.Key(m.ConceptName)
			if seen[k] != "" {
				t.Fatalf("iteration %d: %q duplicated in mastered", i, k)
			}
			seen[k] = "mastered"
		}
		for _, m := range misunderstood {
			k := normalization.Key(m.ConceptName)
			if seen[k] != "" {
				t.Fatalf("iteration %d: %q also in %s", i, k, seen[k])
			}
			seen[k] = "misunderstood"
		}
	}
}
