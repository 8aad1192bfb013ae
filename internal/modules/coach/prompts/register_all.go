package prompts

func RegisterAll() {
	// ---------- Memory ----------

	RegisterSpec(Spec{
		Name:       PromptMemoryEnrich,
		Version:    1,
		SchemaName: "memory_enrich",
		Schema:     MemoryEnrichSchema,
		System: `
You index short facts about a learner so they can be found again later.
Expand the fact with synonyms, broader categories and phrasings a tutor might search with.
Keep the original meaning. Do not add new facts.`,
		User: `
FACT:
{{.RawText}}

SOURCE MESSAGE (what the learner actually said):
{{.SourceMessage}}

Output rules:
- enriched_text: the fact followed by synonyms and likely search phrasings, one paragraph.
- categories: 1-5 short lowercase category labels (e.g. hobby, study_habit, misconception).`,
		Validators: []Validator{
			RequireNonEmpty("RawText", func(in Input) string { return in.RawText }),
		},
	})

	RegisterSpec(Spec{
		Name:       PromptMemoryQueryExpand,
		Version:    1,
		SchemaName: "memory_query_expand",
		Schema:     MemoryQueryExpandSchema,
		System: `
You rewrite a tutor's lookup into a search query over stored learner facts.
Add synonyms and related terms. Keep it under 60 words.`,
		User: `
LOOKUP:
{{.Query}}`,
		Validators: []Validator{
			RequireNonEmpty("Query", func(in Input) string { return in.Query }),
		},
	})

	// ---------- Live conversation ----------

	RegisterSpec(Spec{
		Name:       PromptInsightExtract,
		Version:    1,
		SchemaName: "insight_extract",
		Schema:     InsightExtractSchema,
		System: `
You watch a live tutoring conversation and decide whether the latest exchange reveals something
worth remembering about the learner.
Return exactly one result:
- kind=none when nothing new was revealed.
- kind=learning for a learning insight (insight_type: understanding, confusion, question, learning_style, challenge).
- kind=personal_data for a durable personal fact (data_type names it, e.g. hobby, goal, schedule).
Suppress anything already covered by the existing memory summary. Prefer none when unsure.`,
		User: `
COURSE: {{.CourseTitle}} / {{.ChapterTitle}}
COURSE EXCERPT:
{{.ChapterExcerpt}}

WHAT WE ALREADY KNOW:
{{.MemorySummary}}

RECENT TURNS:
{{.RecentTurns}}

CURRENT EXCHANGE:
{{.CurrentExchange}}

Output rules:
- text: one sentence in third person ("The learner ..."). Empty when kind=none.
- confidence: low|medium|high.
- importance: 1-10.
- insight_type is empty unless kind=learning. data_type is empty unless kind=personal_data.
- tags: 0-5 short lowercase tags.`,
		Validators: []Validator{
			RequireNonEmpty("CurrentExchange", func(in Input) string { return in.CurrentExchange }),
		},
	})

	RegisterSpec(Spec{
		Name:       PromptBehaviorAnalyze,
		Version:    1,
		SchemaName: "behavior_analyze",
		Schema:     BehaviorAnalyzeSchema,
		System: `
You analyze a learner's latest message for relationship and learning behaviors.
Use only this taxonomy:
{{.Taxonomy}}
weight encodes relationship impact:
[0,0.3) strongly negative, [0.3,0.5) mildly negative, [0.5,0.7) neutral or learning-only,
[0.7,0.9) positive, [0.9,1.0] strongly positive.
confidence and weight are numbers in [0,1]. evidence must be a literal quote from the message.`,
		User: `
TOPIC: {{.Topic}}

CONVERSATION WINDOW:
{{.Window}}

LATEST LEARNER MESSAGE:
{{.Message}}

Output rules:
- patterns: 0-5 detected behaviors, most salient first.
- tone_adjustments / content_priorities: short imperative phrases for the tutor.
- example_phrasing: one sentence the tutor could say next.
- recommended_actions: ranked, priority 1 is most urgent.`,
		Validators: []Validator{
			RequireNonEmpty("Message", func(in Input) string { return in.Message }),
			RequireNonEmpty("Taxonomy", func(in Input) string { return in.Taxonomy }),
		},
	})

	// ---------- Post-session ----------

	RegisterSpec(Spec{
		Name:       PromptSessionAnalysis,
		Version:    1,
		SchemaName: "session_analysis",
		Schema:     SessionAnalysisSchema,
		System: `
You are an experienced instructor reviewing a finished one-on-one tutoring session.
Assess the learner holistically from the transcript. Ground every observation in what was said.
All levels and importances are integers from 1 to 10.`,
		User: `
COURSE: {{.CourseTitle}} (level: {{.CourseLevel}})
CHAPTER: {{.ChapterTitle}}
CHAPTER EXCERPT:
{{.ChapterExcerpt}}

SESSION LENGTH: {{.DurationMinutes}} minutes

LEARNER PROFILE:
{{.LearnerProfileJSON}}

COURSE PROFILE:
{{.CourseProfileJSON}}

TRANSCRIPT:
{{.Transcript}}

Output rules:
- keyObservations: use category strength or weakness for traits worth tracking; mention
  "critical" or "analysis" for critical-thinking evidence and "problem" or "solution" for problem solving.
- conceptsUnderstood / conceptsStruggling: short concept names, never the same concept in both.
- engagementLevelInsights: say plainly whether engagement was high, moderate or low.`,
		Validators: []Validator{
			RequireNonEmpty("Transcript", func(in Input) string { return in.Transcript }),
		},
	})
}
