package extraction

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"github.com/yungbote/neurobridge-coach/internal/data/repos"
	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/memory"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/prompts"
	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
	"github.com/yungbote/neurobridge-coach/internal/platform/openai"
)

const (
	MinMessageLength = 15
	recentTurnWindow = 4
)

var ackPattern = regexp.MustCompile(`(?i)^(?:\s*(?:yes|yeah|yep|nope|no|ok|okay|k|thanks|thank you|sure|got it|cool|right|alright|great)[\s,.!?]*)+$`)

// Substantive reports whether a learner message is worth an extraction call.
func Substantive(message string) bool {
	m := strings.TrimSpace(message)
	if len([]rune(m)) < MinMessageLength {
		return false
	}
	return !ackPattern.MatchString(m)
}

type Turn struct {
	Role    string
	Content string
}

type Request struct {
	LearnerID      uuid.UUID
	SessionID      uuid.UUID
	CourseTitle    string
	ChapterTitle   string
	ChapterExcerpt string
	// RecentTurns precede the current exchange; only the last four are used.
	RecentTurns []Turn
	// LastAssistant is the coach turn the learner is answering, if any.
	LastAssistant string
	Message       string
}

// MemoryWriter is the part of the memory store extraction writes through.
type MemoryWriter interface {
	Add(ctx context.Context, in memory.AddInput) (*types.Memory, error)
	Summary(ctx context.Context, learnerID uuid.UUID, n int) (string, error)
}

type Config struct {
	// Rate and Burst pace model calls per session. Calls over the rate wait for a token;
	// no substantive message is skipped.
	Rate  rate.Limit
	Burst int
}

func DefaultConfig() Config {
	return Config{Rate: rate.Every(2 * time.Second), Burst: 5}
}

type Extractor struct {
	log      *logger.Logger
	ai       openai.Client
	memories MemoryWriter
	sessions repos.SessionRepo
	cfg      Config
	now      func() time.Time

	mu       sync.Mutex
	limiters map[uuid.UUID]*rate.Limiter
}

func NewExtractor(log *logger.Logger, ai openai.Client, memories MemoryWriter, sessions repos.SessionRepo, cfg Config) *Extractor {
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultConfig().Rate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultConfig().Burst
	}
	return &Extractor{
		log:      log.With("module", "InsightExtractor"),
		ai:       ai,
		memories: memories,
		sessions: sessions,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		limiters: map[uuid.UUID]*rate.Limiter{},
	}
}

// Process runs extraction for one learner message and persists an accepted insight.
// It returns (nil, nil) when the message is skipped or nothing new was found.
func (e *Extractor) Process(ctx context.Context, req Request) (Insight, error) {
	if !Substantive(req.Message) {
		return nil, nil
	}
	if err := e.pace(ctx, req.SessionID); err != nil {
		return nil, err
	}

	summary, err := e.memories.Summary(ctx, req.LearnerID, 15)
	if err != nil {
		e.log.Warn("memory summary unavailable", "learner_id", req.LearnerID, "error", err)
		summary = "(unavailable)"
	}
	ins, err := e.Extract(ctx, req, summary)
	if err != nil || ins == nil {
		return nil, err
	}
	if err := e.persist(ctx, req, ins); err != nil {
		return nil, err
	}
	return ins, nil
}

// Extract asks the model for at most one new insight. Low-confidence and empty results yield nil.
func (e *Extractor) Extract(ctx context.Context, req Request, memorySummary string) (Insight, error) {
	p, err := prompts.Build(prompts.PromptInsightExtract, prompts.Input{
		CourseTitle:     req.CourseTitle,
		ChapterTitle:    req.ChapterTitle,
		ChapterExcerpt:  req.ChapterExcerpt,
		MemorySummary:   memorySummary,
		RecentTurns:     renderTurns(lastTurns(req.RecentTurns, recentTurnWindow)),
		CurrentExchange: renderExchange(req.LastAssistant, req.Message),
	})
	if err != nil {
		return nil, err
	}
	obj, err := e.ai.GenerateJSON(ctx, p.System, p.User, p.SchemaName, p.Schema)
	if err != nil {
		return nil, fmt.Errorf("insight extraction: %w: %v", coacherrors.ErrUpstreamModel, err)
	}
	return parseInsight(obj)
}

type extractOutput struct {
	Kind        string   `json:"kind"`
	InsightType string   `json:"insight_type"`
	DataType    string   `json:"data_type"`
	Text        string   `json:"text"`
	Confidence  string   `json:"confidence"`
	Importance  int      `json:"importance"`
	Tags        []string `json:"tags"`
}

func parseInsight(obj map[string]any) (Insight, error) {
	var out extractOutput
	if err := prompts.Decode(obj, &out); err != nil {
		return nil, fmt.Errorf("insight extraction: %w: %v", coacherrors.ErrUpstreamModel, err)
	}
	if !lo.Contains(prompts.InsightKinds, out.Kind) {
		return nil, fmt.Errorf("insight extraction: %w: kind %q", coacherrors.ErrUpstreamModel, out.Kind)
	}
	if !lo.Contains(prompts.ConfidenceLevels, out.Confidence) {
		return nil, fmt.Errorf("insight extraction: %w: confidence %q", coacherrors.ErrUpstreamModel, out.Confidence)
	}
	text := strings.TrimSpace(out.Text)
	if out.Kind == "none" || out.Confidence == "low" || text == "" {
		return nil, nil
	}
	switch out.Kind {
	case "learning":
		if !lo.Contains(prompts.LearningInsightType, out.InsightType) {
			return nil, fmt.Errorf("insight extraction: %w: insight_type %q", coacherrors.ErrUpstreamModel, out.InsightType)
		}
		return NewLearningInsight(out.InsightType, text, out.Importance, out.Tags), nil
	default:
		dataType := strings.TrimSpace(out.DataType)
		if dataType == "" {
			dataType = "general"
		}
		return NewPersonalDataInsight(dataType, text, out.Importance, out.Tags), nil
	}
}

func (e *Extractor) persist(ctx context.Context, req Request, ins Insight) error {
	sessionID := req.SessionID
	switch v := ins.(type) {
	case LearningInsight:
		if _, err := e.sessions.AppendInsight(dbctx.Context{Ctx: ctx}, req.SessionID, v.Type, v.Text(), e.now()); err != nil {
			if !errors.Is(err, coacherrors.ErrInvalidTransition) {
				return fmt.Errorf("append insight: %w", err)
			}
			// The session closed while extraction ran. The log is frozen but the memory still counts.
			e.log.Info("insight log closed; keeping memory only", "session_id", req.SessionID, "insight_type", v.Type)
		}
		_, err := e.memories.Add(ctx, memory.AddInput{
			LearnerID:    req.LearnerID,
			SessionID:    &sessionID,
			RawText:      v.Text(),
			Tags:         append([]string{v.Type}, v.Tags()...),
			ContextTypes: []string{types.ContextAcademic},
			Importance:   v.Importance(),
			Source:       req.Message,
		})
		return err
	case PersonalDataInsight:
		_, err := e.memories.Add(ctx, memory.AddInput{
			LearnerID:    req.LearnerID,
			SessionID:    &sessionID,
			RawText:      v.Text(),
			Tags:         append([]string{v.DataType}, v.Tags()...),
			ContextTypes: []string{types.ContextPersonal},
			Importance:   v.Importance(),
			Source:       req.Message,
		})
		return err
	default:
		return fmt.Errorf("unknown insight %T", ins)
	}
}

// Forget drops the per-session limiter once a session ends.
func (e *Extractor) Forget(sessionID uuid.UUID) {
	e.mu.Lock()
	delete(e.limiters, sessionID)
	e.mu.Unlock()
}

// pace blocks until the session's limiter admits a call. When the wait cannot finish before the
// task deadline the call goes ahead anyway; only cancellation stops it.
func (e *Extractor) pace(ctx context.Context, sessionID uuid.UUID) error {
	if err := e.limiter(sessionID).Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("extraction wait: %w", ctx.Err())
		}
		e.log.Debug("extraction pacing skipped near deadline", "session_id", sessionID)
	}
	return nil
}

func (e *Extractor) limiter(sessionID uuid.UUID) *rate.Limiter {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.limiters[sessionID]
	if !ok {
		l = rate.NewLimiter(e.cfg.Rate, e.cfg.Burst)
		e.limiters[sessionID] = l
	}
	return l
}

func lastTurns(turns []Turn, n int) []Turn {
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

func renderTurns(turns []Turn) string {
	if len(turns) == 0 {
		return "(none)"
	}
	lines := lo.Map(turns, func(t Turn, _ int) string {
		return t.Role + ": " + strings.TrimSpace(t.Content)
	})
	return strings.Join(lines, "\n")
}

func renderExchange(assistant, learner string) string {
	var b strings.Builder
	if a := strings.TrimSpace(assistant); a != "" {
		b.WriteString("coach: ")
		b.WriteString(a)
		b.WriteString("\n")
	}
	b.WriteString("learner: ")
	b.WriteString(strings.TrimSpace(learner))
	return b.String()
}
