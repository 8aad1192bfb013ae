package analysis

import (
	"fmt"
	"strings"

	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/prompts"
	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
)

// reportOutput uses pointers so a missing field can be told apart from a zero value.
type reportOutput struct {
	OverallUnderstanding       *int                       `json:"overallUnderstanding"`
	KeyObservations            *[]types.KeyObservation    `json:"keyObservations"`
	ConceptsUnderstood         *[]types.ConceptAssessment `json:"conceptsUnderstood"`
	ConceptsStruggling         *[]types.ConceptAssessment `json:"conceptsStruggling"`
	RecommendedActions         *[]types.RecommendedAction `json:"recommendedActions"`
	LearningStyleInsights      *string                    `json:"learningStyleInsights"`
	CommunicationStyleInsights *string                    `json:"communicationStyleInsights"`
	EngagementLevelInsights    *string                    `json:"engagementLevelInsights"`
}

// ParseReport validates model output and returns an unsaved report. Any missing field,
// wrong type or out-of-range score is an ErrAnalysisParse.
func ParseReport(obj map[string]any) (*types.SessionAnalysisReport, error) {
	var out reportOutput
	if err := prompts.Decode(obj, &out); err != nil {
		return nil, parseErr("%v", err)
	}
	switch {
	case out.OverallUnderstanding == nil:
		return nil, parseErr("overallUnderstanding missing")
	case out.KeyObservations == nil:
		return nil, parseErr("keyObservations missing")
	case out.ConceptsUnderstood == nil:
		return nil, parseErr("conceptsUnderstood missing")
	case out.ConceptsStruggling == nil:
		return nil, parseErr("conceptsStruggling missing")
	case out.RecommendedActions == nil:
		return nil, parseErr("recommendedActions missing")
	case out.LearningStyleInsights == nil, out.CommunicationStyleInsights == nil, out.EngagementLevelInsights == nil:
		return nil, parseErr("style insights missing")
	}
	if !inScoreRange(*out.OverallUnderstanding) {
		return nil, parseErr("overallUnderstanding %d outside [1,10]", *out.OverallUnderstanding)
	}
	for i, o := range *out.KeyObservations {
		if strings.TrimSpace(o.Observation) == "" || !inScoreRange(o.Importance) {
			return nil, parseErr("keyObservations[%d] invalid", i)
		}
	}
	for name, list := range map[string][]types.ConceptAssessment{
		"conceptsUnderstood": *out.ConceptsUnderstood,
		"conceptsStruggling": *out.ConceptsStruggling,
	} {
		for i, c := range list {
			if strings.TrimSpace(c.ConceptName) == "" || !inScoreRange(c.Level) {
				return nil, parseErr("%s[%d] invalid", name, i)
			}
		}
	}
	for i, act := range *out.RecommendedActions {
		if strings.TrimSpace(act.Action) == "" {
			return nil, parseErr("recommendedActions[%d] missing action", i)
		}
	}

	return &types.SessionAnalysisReport{
		OverallUnderstanding:       *out.OverallUnderstanding,
		KeyObservations:            types.JSON(*out.KeyObservations),
		ConceptsUnderstood:         types.JSON(*out.ConceptsUnderstood),
		ConceptsStruggling:         types.JSON(*out.ConceptsStruggling),
		RecommendedActions:         types.JSON(*out.RecommendedActions),
		LearningStyleInsights:      strings.TrimSpace(*out.LearningStyleInsights),
		CommunicationStyleInsights: strings.TrimSpace(*out.CommunicationStyleInsights),
		EngagementLevelInsights:    strings.TrimSpace(*out.EngagementLevelInsights),
	}, nil
}

func inScoreRange(v int) bool { return v >= types.ScoreMin && v <= types.ScoreMax }

func parseErr(format string, args ...any) error {
	return fmt.Errorf("session analysis: %w: %s", coacherrors.ErrAnalysisParse, fmt.Sprintf(format, args...))
}
