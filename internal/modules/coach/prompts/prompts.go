package prompts

type Prompt struct {
	Name       string
	Version    int
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
}

type PromptName string

const (
	PromptMemoryEnrich      PromptName = "memory_enrich"
	PromptMemoryQueryExpand PromptName = "memory_query_expand"
	PromptInsightExtract    PromptName = "insight_extract"
	PromptBehaviorAnalyze   PromptName = "behavior_analyze"
	PromptSessionAnalysis   PromptName = "session_analysis"
)
