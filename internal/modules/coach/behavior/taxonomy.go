package behavior

import (
	"sort"
	"strings"
)

const (
	CategoryRelationship = "relationship"
	CategoryLearning     = "learning"
)

// taxonomy maps each concept to the category it belongs to.
var taxonomy = map[string]string{
	"trust":                   CategoryRelationship,
	"respect":                 CategoryRelationship,
	"effective_communication": CategoryRelationship,
	"empathy":                 CategoryRelationship,
	"reciprocity":             CategoryRelationship,
	"honesty":                 CategoryRelationship,
	"attention":               CategoryLearning,
	"cognitive_load":          CategoryLearning,
	"metacognition":           CategoryLearning,
}

const (
	BandStronglyNegative = "strongly_negative"
	BandMildlyNegative   = "mildly_negative"
	BandNeutral          = "neutral"
	BandPositive         = "positive"
	BandStronglyPositive = "strongly_positive"
)

// Band names the relationship-impact band a weight falls in.
func Band(weight float64) string {
	switch {
	case weight < 0.3:
		return BandStronglyNegative
	case weight < 0.5:
		return BandMildlyNegative
	case weight < 0.7:
		return BandNeutral
	case weight < 0.9:
		return BandPositive
	default:
		return BandStronglyPositive
	}
}

// TaxonomyText renders the taxonomy for the analysis prompt.
func TaxonomyText() string {
	byCat := map[string][]string{}
	for concept, cat := range taxonomy {
		byCat[cat] = append(byCat[cat], concept)
	}
	var b strings.Builder
	for _, cat := range []string{CategoryRelationship, CategoryLearning} {
		concepts := byCat[cat]
		sort.Strings(concepts)
		b.WriteString("- ")
		b.WriteString(cat)
		b.WriteString(": ")
		b.WriteString(strings.Join(concepts, ", "))
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
