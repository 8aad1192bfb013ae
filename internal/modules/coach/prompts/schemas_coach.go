package prompts

var (
	InsightKinds        = []string{"none", "learning", "personal_data"}
	LearningInsightType = []string{"understanding", "confusion", "question", "learning_style", "challenge"}
	ConfidenceLevels    = []string{"low", "medium", "high"}

	BehaviorCategories = []string{"relationship", "learning"}
	BehaviorConcepts   = []string{
		"trust", "respect", "effective_communication", "empathy", "reciprocity", "honesty",
		"attention", "cognitive_load", "metacognition",
	}

	ObservationCategories = []string{"strength", "weakness", "learning_style", "engagement", "critical_thinking", "problem_solving", "other"}
	ActionPriorities      = []string{"high", "medium", "low"}
)

func MemoryEnrichSchema() map[string]any {
	return object(map[string]any{
		"enriched_text": StringSchema(),
		"categories":    StringArraySchema(),
	})
}

func MemoryQueryExpandSchema() map[string]any {
	return object(map[string]any{
		"expanded_query": StringSchema(),
	})
}

// InsightExtractSchema is a flat union: fields that do not apply to kind are empty strings.
func InsightExtractSchema() map[string]any {
	return object(map[string]any{
		"kind":         EnumSchema(InsightKinds...),
		"insight_type": EnumSchema(append([]string{""}, LearningInsightType...)...),
		"data_type":    StringSchema(),
		"text":         StringSchema(),
		"confidence":   EnumSchema(ConfidenceLevels...),
		"importance":   IntSchema(),
		"tags":         StringArraySchema(),
	})
}

func BehaviorAnalyzeSchema() map[string]any {
	pattern := object(map[string]any{
		"category":                     EnumSchema(BehaviorCategories...),
		"concept":                      EnumSchema(BehaviorConcepts...),
		"behavior":                     StringSchema(),
		"confidence":                   NumberSchema(),
		"evidence":                     StringSchema(),
		"context_factors":              StringArraySchema(),
		"recommended_response_pattern": StringSchema(),
		"weight":                       NumberSchema(),
		"tone_adjustments":             StringArraySchema(),
		"content_priorities":           StringArraySchema(),
		"example_phrasing":             StringSchema(),
	})
	return object(map[string]any{
		"patterns": arrayOf(pattern),
		"overall_assessment": object(map[string]any{
			"engagement_level":         StringSchema(),
			"emotional_state":          StringSchema(),
			"learning_readiness":       StringSchema(),
			"relationship_opportunity": StringSchema(),
		}),
		"recommended_actions": arrayOf(object(map[string]any{
			"action":    StringSchema(),
			"priority":  IntSchema(),
			"rationale": StringSchema(),
		})),
	})
}

func SessionAnalysisSchema() map[string]any {
	concept := object(map[string]any{
		"conceptName": StringSchema(),
		"level":       IntSchema(),
		"evidence":    StringSchema(),
	})
	return object(map[string]any{
		"overallUnderstanding": IntSchema(),
		"keyObservations": arrayOf(object(map[string]any{
			"category":    EnumSchema(ObservationCategories...),
			"observation": StringSchema(),
			"importance":  IntSchema(),
		})),
		"conceptsUnderstood": arrayOf(concept),
		"conceptsStruggling": arrayOf(concept),
		"recommendedActions": arrayOf(object(map[string]any{
			"action":    StringSchema(),
			"priority":  EnumSchema(ActionPriorities...),
			"reasoning": StringSchema(),
		})),
		"learningStyleInsights":      StringSchema(),
		"communicationStyleInsights": StringSchema(),
		"engagementLevelInsights":    StringSchema(),
	})
}
