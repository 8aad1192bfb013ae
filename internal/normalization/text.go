package normalization

import (
	"strings"
	"unicode"

	"github.com/samber/lo"
)

// Key folds a label (concept name, tag, strength) for equality checks.
func Key(input string) string {
	return strings.ToLower(strings.Join(strings.Fields(input), " "))
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {}, "your": {},
	"with": {}, "this": {}, "that": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"who": {}, "how": {}, "why": {}, "was": {}, "were": {}, "has": {}, "have": {}, "had": {},
	"can": {}, "does": {}, "did": {}, "about": {}, "from": {}, "into": {}, "they": {},
	"them": {}, "their": {}, "there": {}, "then": {}, "than": {}, "its": {}, "our": {},
	"any": {}, "all": {}, "some": {}, "just": {}, "like": {}, "also": {}, "very": {},
}

// Terms splits text into distinct lowercase alphanumeric search terms of three or more runes,
// dropping common stopwords. Order of first appearance is kept.
func Terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := lo.Filter(fields, func(f string, _ int) bool {
		if len([]rune(f)) < 3 {
			return false
		}
		_, stop := stopwords[f]
		return !stop
	})
	return lo.Uniq(out)
}

// KeywordScore is the fraction of query terms found in doc, in [0,1].
func KeywordScore(queryTerms []string, doc string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	docTerms := lo.SliceToMap(Terms(doc), func(t string) (string, struct{}) { return t, struct{}{} })
	hits := lo.CountBy(queryTerms, func(t string) bool {
		_, ok := docTerms[t]
		return ok
	})
	return float64(hits) / float64(len(queryTerms))
}
