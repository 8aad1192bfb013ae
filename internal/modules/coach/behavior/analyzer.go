package behavior

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/yungbote/neurobridge-coach/internal/modules/coach/prompts"
	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
	"github.com/yungbote/neurobridge-coach/internal/platform/openai"
)

type Pattern struct {
	Category                   string   `json:"category"`
	Concept                    string   `json:"concept"`
	Behavior                   string   `json:"behavior"`
	Confidence                 float64  `json:"confidence"`
	Evidence                   string   `json:"evidence"`
	ContextFactors             []string `json:"context_factors"`
	RecommendedResponsePattern string   `json:"recommended_response_pattern"`
	Weight                     float64  `json:"weight"`
	ToneAdjustments            []string `json:"tone_adjustments"`
	ContentPriorities          []string `json:"content_priorities"`
	ExamplePhrasing            string   `json:"example_phrasing"`
}

type OverallAssessment struct {
	EngagementLevel         string `json:"engagement_level"`
	EmotionalState          string `json:"emotional_state"`
	LearningReadiness       string `json:"learning_readiness"`
	RelationshipOpportunity string `json:"relationship_opportunity"`
}

type RecommendedAction struct {
	Action    string `json:"action"`
	Priority  int    `json:"priority"`
	Rationale string `json:"rationale"`
}

type Analysis struct {
	Patterns           []Pattern           `json:"patterns"`
	Overall            OverallAssessment   `json:"overall_assessment"`
	RecommendedActions []RecommendedAction `json:"recommended_actions"`
}

type Input struct {
	Message string
	// Window is the rendered short-term conversation before Message.
	Window string
	Topic  string
}

type Analyzer struct {
	log   *logger.Logger
	ai    openai.Client
	floor float64
}

// NewAnalyzer builds the pipeline. confidenceFloor <= 0 uses DefaultConfidenceFloor.
func NewAnalyzer(log *logger.Logger, ai openai.Client, confidenceFloor float64) *Analyzer {
	if confidenceFloor <= 0 {
		confidenceFloor = DefaultConfidenceFloor
	}
	return &Analyzer{log: log.With("module", "BehaviorAnalyzer"), ai: ai, floor: confidenceFloor}
}

// Analyze calls the model and strictly validates its output against the taxonomy.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*Analysis, error) {
	p, err := prompts.Build(prompts.PromptBehaviorAnalyze, prompts.Input{
		Message:  in.Message,
		Window:   in.Window,
		Topic:    in.Topic,
		Taxonomy: TaxonomyText(),
	})
	if err != nil {
		return nil, err
	}
	obj, err := a.ai.GenerateJSON(ctx, p.System, p.User, p.SchemaName, p.Schema)
	if err != nil {
		return nil, fmt.Errorf("behavior analysis: %w: %v", coacherrors.ErrUpstreamModel, err)
	}
	var out Analysis
	if err := prompts.Decode(obj, &out); err != nil {
		return nil, fmt.Errorf("behavior analysis: %w: %v", coacherrors.ErrUpstreamModel, err)
	}
	if err := validate(&out); err != nil {
		return nil, fmt.Errorf("behavior analysis: %w: %v", coacherrors.ErrUpstreamModel, err)
	}
	sort.SliceStable(out.RecommendedActions, func(i, j int) bool {
		return out.RecommendedActions[i].Priority < out.RecommendedActions[j].Priority
	})
	return &out, nil
}

// Guide runs Analyze and GenerateGuidance. Any failure yields an empty bundle.
func (a *Analyzer) Guide(ctx context.Context, in Input) Guidance {
	an, err := a.Analyze(ctx, in)
	if err != nil {
		a.log.Warn("behavior analysis failed; no guidance", "error", err)
		return Guidance{}
	}
	return GenerateGuidance(an.Patterns, an.RecommendedActions, a.floor)
}

func validate(an *Analysis) error {
	for i, p := range an.Patterns {
		want, ok := taxonomy[p.Concept]
		if !ok {
			return fmt.Errorf("pattern %d: unknown concept %q", i, p.Concept)
		}
		if p.Category != want {
			return fmt.Errorf("pattern %d: concept %q belongs to %q, got %q", i, p.Concept, want, p.Category)
		}
		if !unit(p.Confidence) {
			return fmt.Errorf("pattern %d: confidence %v outside [0,1]", i, p.Confidence)
		}
		if !unit(p.Weight) {
			return fmt.Errorf("pattern %d: weight %v outside [0,1]", i, p.Weight)
		}
		if strings.TrimSpace(p.Behavior) == "" {
			return fmt.Errorf("pattern %d: behavior required", i)
		}
	}
	return nil
}

func unit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
