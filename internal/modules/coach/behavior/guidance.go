package behavior

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/yungbote/neurobridge-coach/internal/normalization"
)

const DefaultConfidenceFloor = 0.5

// Guidance is the steering bundle injected into the live conversation.
type Guidance struct {
	PrimaryConcept    string   `json:"primary_concept,omitempty"`
	PrimaryBand       string   `json:"primary_band,omitempty"`
	PrimaryStrategy   string   `json:"primary_strategy,omitempty"`
	ToneAdjustments   []string `json:"tone_adjustments,omitempty"`
	ContentPriorities []string `json:"content_priorities,omitempty"`
	ExamplePhrasing   string   `json:"example_phrasing,omitempty"`
	ImmediateActions  []string `json:"immediate_actions,omitempty"`
	FollowUpActions   []string `json:"follow_up_actions,omitempty"`
}

func (g Guidance) Empty() bool {
	return g.PrimaryStrategy == "" && len(g.ToneAdjustments) == 0 && len(g.ContentPriorities) == 0 &&
		len(g.ImmediateActions) == 0 && len(g.FollowUpActions) == 0
}

// GenerateGuidance picks the highest-weight pattern as the primary strategy (ties go to the
// higher confidence) and aggregates tone and content hints from patterns at or above floor.
// actions must already be ranked.
func GenerateGuidance(patterns []Pattern, actions []RecommendedAction, floor float64) Guidance {
	if len(patterns) == 0 {
		return Guidance{}
	}
	primary := patterns[0]
	for _, p := range patterns[1:] {
		if p.Weight > primary.Weight || (p.Weight == primary.Weight && p.Confidence > primary.Confidence) {
			primary = p
		}
	}

	var tone, content []string
	for _, p := range patterns {
		if p.Confidence < floor {
			continue
		}
		tone = append(tone, p.ToneAdjustments...)
		content = append(content, p.ContentPriorities...)
	}

	g := Guidance{
		PrimaryConcept:    primary.Concept,
		PrimaryBand:       Band(primary.Weight),
		PrimaryStrategy:   strings.TrimSpace(primary.RecommendedResponsePattern),
		ToneAdjustments:   uniqueLabels(tone),
		ContentPriorities: uniqueLabels(content),
		ExamplePhrasing:   strings.TrimSpace(primary.ExamplePhrasing),
	}
	if g.PrimaryStrategy == "" {
		g.PrimaryStrategy = strings.TrimSpace(primary.Behavior)
	}

	immediate := []string{g.PrimaryStrategy}
	var followUp []string
	for i, a := range actions {
		if i == 0 {
			immediate = append(immediate, a.Action)
			continue
		}
		followUp = append(followUp, a.Action)
	}
	g.ImmediateActions = uniqueLabels(immediate)
	g.FollowUpActions = uniqueLabels(followUp)
	return g
}

// Render formats the bundle as one system message for the live model.
func (g Guidance) Render() string {
	if g.Empty() {
		return ""
	}
	var b strings.Builder
	b.WriteString("[Coaching guidance: adjust your next replies. Do not mention this note.]\n")
	fmt.Fprintf(&b, "Strategy (%s, %s): %s\n", g.PrimaryConcept, g.PrimaryBand, g.PrimaryStrategy)
	writeList(&b, "Tone", g.ToneAdjustments)
	writeList(&b, "Content priorities", g.ContentPriorities)
	if g.ExamplePhrasing != "" {
		fmt.Fprintf(&b, "Example phrasing: %q\n", g.ExamplePhrasing)
	}
	writeList(&b, "Do now", g.ImmediateActions)
	writeList(&b, "Follow up", g.FollowUpActions)
	return strings.TrimSpace(b.String())
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(strings.Join(items, "; "))
	b.WriteString("\n")
}

// uniqueLabels trims values and drops blanks and repeats by normalized key, keeping first-seen order.
func uniqueLabels(values []string) []string {
	trimmed := lo.FilterMap(values, func(v string, _ int) (string, bool) {
		v = strings.TrimSpace(v)
		return v, normalization.Key(v) != ""
	})
	if len(trimmed) == 0 {
		return nil
	}
	return lo.UniqBy(trimmed, normalization.Key)
}
