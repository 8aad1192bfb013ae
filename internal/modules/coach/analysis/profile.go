package analysis

import (
	"math"
	"strings"
	"time"

	"github.com/samber/lo"

	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/normalization"
)

const DefaultSmoothingWeight = 0.3

// Smooth blends signal into current: clamp(round(current*(1-w) + signal*w), 1, 10).
func Smooth(current int, signal float64, w float64) int {
	v := math.Round(float64(current)*(1-w) + signal*w)
	return clampScore(int(v))
}

func clampScore(v int) int {
	if v < types.ScoreMin {
		return types.ScoreMin
	}
	if v > types.ScoreMax {
		return types.ScoreMax
	}
	return v
}

// meanImportance averages the importance of observations whose category or text mentions any
// keyword. ok is false when nothing matched.
func meanImportance(obs []types.KeyObservation, keywords ...string) (mean float64, ok bool) {
	matched := lo.Filter(obs, func(o types.KeyObservation, _ int) bool {
		hay := strings.ToLower(o.Category + " " + o.Observation)
		return lo.SomeBy(keywords, func(k string) bool { return strings.Contains(hay, k) })
	})
	if len(matched) == 0 {
		return 0, false
	}
	sum := lo.SumBy(matched, func(o types.KeyObservation) int { return o.Importance })
	return float64(sum) / float64(len(matched)), true
}

func observationsOf(obs []types.KeyObservation, category string) []string {
	return lo.FilterMap(obs, func(o types.KeyObservation, _ int) (string, bool) {
		text := strings.TrimSpace(o.Observation)
		return text, text != "" && strings.EqualFold(strings.TrimSpace(o.Category), category)
	})
}

// appendDistinct appends values not already present (exact string equality).
func appendDistinct(list []string, values ...string) []string {
	for _, v := range values {
		if !lo.Contains(list, v) {
			list = append(list, v)
		}
	}
	return list
}

// EngagementFromInsights maps the free-text engagement assessment to a score.
func EngagementFromInsights(text string) int {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "high"):
		return 8
	case strings.Contains(t, "low"):
		return 3
	default:
		return 5
	}
}

// UpdateLearnerProfile folds a report into the cross-course ability scores.
func UpdateLearnerProfile(p *types.UserLearningProfile, r *types.SessionAnalysisReport, w float64, now time.Time) {
	obs := r.Observations()
	p.AnalyticalAbility = Smooth(p.AnalyticalAbility, float64(r.OverallUnderstanding), w)
	if mean, ok := meanImportance(obs, "critical", "analysis"); ok {
		p.CriticalThinking = Smooth(p.CriticalThinking, mean, w)
	}
	if mean, ok := meanImportance(obs, "problem", "solution"); ok {
		p.ProblemSolving = Smooth(p.ProblemSolving, mean, w)
	}
	strengths := types.DecodeJSON[[]string](p.GeneralStrengths)
	weaknesses := types.DecodeJSON[[]string](p.GeneralWeaknesses)
	p.GeneralStrengths = types.JSON(appendDistinct(strengths, observationsOf(obs, "strength")...))
	p.GeneralWeaknesses = types.JSON(appendDistinct(weaknesses, observationsOf(obs, "weakness")...))
	p.LastUpdated = now
}

// UpdateCourseProfile folds a report into the per-course profile.
func UpdateCourseProfile(p *types.CourseUserProfile, r *types.SessionAnalysisReport, w float64, now time.Time) {
	obs := r.Observations()
	p.ComprehensionLevel = Smooth(p.ComprehensionLevel, float64(r.OverallUnderstanding), w)
	p.EngagementLevel = EngagementFromInsights(r.EngagementLevelInsights)

	strengths := types.DecodeJSON[[]string](p.Strengths)
	weaknesses := types.DecodeJSON[[]string](p.Weaknesses)
	p.Strengths = types.JSON(appendDistinct(strengths, observationsOf(obs, "strength")...))
	p.Weaknesses = types.JSON(appendDistinct(weaknesses, observationsOf(obs, "weakness")...))

	mastered, misunderstood := ApplyConcepts(
		types.DecodeJSON[[]types.ConceptMastery](p.MasteredConcepts),
		types.DecodeJSON[[]types.ConceptMastery](p.MisunderstoodConcepts),
		r.Understood(), r.Struggling(),
	)
	p.MasteredConcepts = types.JSON(mastered)
	p.MisunderstoodConcepts = types.JSON(misunderstood)
	p.LastUpdated = now
}

// ApplyConcepts moves understood concepts into mastered and struggling ones into misunderstood.
// A concept is removed from the opposite list, updated in place if already in its list, and
// inserted otherwise. Understood is applied first, so a concept reported in both ends up
// misunderstood.
func ApplyConcepts(mastered, misunderstood []types.ConceptMastery, understood, struggling []types.ConceptAssessment) ([]types.ConceptMastery, []types.ConceptMastery) {
	for _, c := range understood {
		mastered, misunderstood = moveConcept(mastered, misunderstood, c)
	}
	for _, c := range struggling {
		misunderstood, mastered = moveConcept(misunderstood, mastered, c)
	}
	if mastered == nil {
		mastered = []types.ConceptMastery{}
	}
	if misunderstood == nil {
		misunderstood = []types.ConceptMastery{}
	}
	return mastered, misunderstood
}

func moveConcept(into, from []types.ConceptMastery, c types.ConceptAssessment) ([]types.ConceptMastery, []types.ConceptMastery) {
	key := normalization.Key(c.ConceptName)
	if key == "" {
		return into, from
	}
	from = lo.Reject(from, func(m types.ConceptMastery, _ int) bool { return normalization.Key(m.ConceptName) == key })

	evidence := strings.TrimSpace(c.Evidence)
	for i := range into {
		if normalization.Key(into[i].ConceptName) != key {
			continue
		}
		into[i].Level = c.Level
		switch {
		case evidence == "":
		case into[i].Notes == "":
			into[i].Notes = evidence
		default:
			into[i].Notes += "\n" + evidence
		}
		return into, from
	}
	into = append(into, types.ConceptMastery{
		ConceptName: strings.TrimSpace(c.ConceptName),
		Level:       c.Level,
		Notes:       evidence,
	})
	return into, from
}
