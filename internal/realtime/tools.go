package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/memory"
	"github.com/yungbote/neurobridge-coach/internal/services"
)

// Tool is a function the model may call during a session.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     func(ctx context.Context, c *connection, args json.RawMessage) (any, error)
}

func (t Tool) definition() map[string]any {
	return map[string]any{
		"type":        "function",
		"name":        t.Name,
		"description": t.Description,
		"parameters":  t.Parameters,
	}
}

const (
	ToolSearchMemories    = "search_memories"
	ToolSaveMemory        = "save_memory"
	ToolGetLearnerProfile = "get_learner_profile"
	ToolRecordFeedback    = "record_feedback"
)

func defaultTools() map[string]Tool {
	tools := []Tool{
		{
			Name:        ToolSearchMemories,
			Description: "Search what you remember about this learner. Use before referencing past sessions or personal details.",
			Parameters: params(map[string]any{
				"query":        map[string]any{"type": "string", "description": "What to look for."},
				"context_type": map[string]any{"type": "string", "enum": []string{types.ContextAcademic, types.ContextPersonal}},
				"limit":        map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
			}, "query"),
			Handler: searchMemories,
		},
		{
			Name:        ToolSaveMemory,
			Description: "Remember a durable fact about the learner's learning or life that will matter in future sessions.",
			Parameters: params(map[string]any{
				"text":         map[string]any{"type": "string"},
				"context_type": map[string]any{"type": "string", "enum": []string{types.ContextAcademic, types.ContextPersonal}},
				"tags":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"importance":   map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
			}, "text", "context_type"),
			Handler: saveMemory,
		},
		{
			Name:        ToolGetLearnerProfile,
			Description: "Get the learner's ability scores, strengths, weaknesses and concept mastery for this course.",
			Parameters:  params(map[string]any{}),
			Handler:     getLearnerProfile,
		},
		{
			Name:        ToolRecordFeedback,
			Description: "Record how the learner seems to feel about the session so far, inferred from what they said.",
			Parameters: params(map[string]any{
				"sentiment":  map[string]any{"type": "string", "enum": []string{types.SentimentPositive, types.SentimentNeutral, types.SentimentNegative}},
				"indicators": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"note":       map[string]any{"type": "string"},
			}, "sentiment"),
			Handler: recordFeedback,
		},
	}
	return lo.KeyBy(tools, func(t Tool) string { return t.Name })
}

func params(props map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{"type": "object", "properties": props, "required": required}
}

func (e *Engine) toolDefinitions() []map[string]any {
	names := lo.Keys(e.tools)
	sort.Strings(names)
	return lo.Map(names, func(n string, _ int) map[string]any { return e.tools[n].definition() })
}

// dispatch runs one tool call and returns the JSON sent back to the model. Failures are reported
// to the model as {"error": ...} so the conversation continues.
func (c *connection) dispatch(call OutputItem) json.RawMessage {
	var out any
	tool, ok := c.e.tools[call.Name]
	if !ok {
		out = map[string]string{"error": fmt.Sprintf("unknown tool %q", call.Name)}
	} else {
		args := json.RawMessage(strings.TrimSpace(call.Arguments))
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}
		res, err := tool.Handler(c.ctx, c, args)
		if err != nil {
			c.log.Warn("tool call failed", "tool", call.Name, "error", err)
			out = map[string]string{"error": err.Error()}
		} else {
			out = res
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return json.RawMessage(`{"error":"unserializable tool result"}`)
	}
	return b
}

type memoryHit struct {
	Text        string   `json:"text"`
	Score       float64  `json:"score"`
	Tags        []string `json:"tags"`
	ContextType []string `json:"context_type"`
	Importance  int      `json:"importance"`
}

func searchMemories(ctx context.Context, c *connection, raw json.RawMessage) (any, error) {
	var args struct {
		Query       string `json:"query"`
		ContextType string `json:"context_type"`
		Limit       int    `json:"limit"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(args.Query) == "" {
		return nil, fmt.Errorf("query required")
	}
	res, err := c.e.deps.Memories.FindSimilar(ctx, c.learnerID, args.Query, memory.SearchOptions{
		Limit:       args.Limit,
		ContextType: args.ContextType,
	})
	if err != nil {
		return nil, err
	}
	hits := lo.Map(res.Matches, func(m memory.Match, _ int) memoryHit {
		return memoryHit{
			Text:        m.Memory.EnrichedText,
			Score:       m.Score,
			Tags:        m.Memory.TagList(),
			ContextType: m.Memory.ContextTypeList(),
			Importance:  m.Memory.Importance,
		}
	})
	return map[string]any{"memories": hits, "mode": res.Mode}, nil
}

func saveMemory(ctx context.Context, c *connection, raw json.RawMessage) (any, error) {
	var args struct {
		Text        string   `json:"text"`
		ContextType string   `json:"context_type"`
		Tags        []string `json:"tags"`
		Importance  int      `json:"importance"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.ContextType != types.ContextAcademic && args.ContextType != types.ContextPersonal {
		return nil, fmt.Errorf("context_type must be %q or %q", types.ContextAcademic, types.ContextPersonal)
	}
	sessionID := c.session.ID
	m, err := c.e.deps.Memories.Add(ctx, memory.AddInput{
		LearnerID:    c.learnerID,
		SessionID:    &sessionID,
		RawText:      args.Text,
		Tags:         args.Tags,
		ContextTypes: []string{args.ContextType},
		Importance:   args.Importance,
		Source:       "realtime_tool",
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"saved": true, "memory_id": m.ID.String()}, nil
}

func getLearnerProfile(ctx context.Context, c *connection, _ json.RawMessage) (any, error) {
	snap, err := c.e.deps.Profiles.Snapshot(ctx, c.learnerID, c.session.CourseID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"summary": snap.PromptText(), "profile": snap}, nil
}

func recordFeedback(ctx context.Context, c *connection, raw json.RawMessage) (any, error) {
	var args struct {
		Sentiment  string   `json:"sentiment"`
		Indicators []string `json:"indicators"`
		Note       string   `json:"note"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	indicators := map[string]any{"source": "realtime_tool"}
	if len(args.Indicators) > 0 {
		indicators["signals"] = args.Indicators
	}
	fb, err := c.e.deps.Feedback.RecordImplicit(ctx, services.FeedbackInput{
		SessionID:  c.session.ID,
		Sentiment:  args.Sentiment,
		Text:       args.Note,
		Indicators: indicators,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"recorded": true, "feedback_id": fb.ID.String()}, nil
}
