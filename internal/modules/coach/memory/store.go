package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/yungbote/neurobridge-coach/internal/data/repos"
	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/prompts"
	"github.com/yungbote/neurobridge-coach/internal/normalization"
	"github.com/yungbote/neurobridge-coach/internal/observability"
	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
	"github.com/yungbote/neurobridge-coach/internal/platform/openai"
	"github.com/yungbote/neurobridge-coach/internal/platform/vectorstore"
)

const (
	Namespace = "memories"

	ModeVector  = "vector"
	ModeLexical = "lexical"

	DefaultLimit    = 5
	DefaultMinScore = 0.3
)

type Enrichment struct {
	EnrichedText string
	Categories   []string
}

type AddInput struct {
	LearnerID    uuid.UUID
	SessionID    *uuid.UUID
	RawText      string
	Tags         []string
	ContextTypes []string
	// Importance outside [1,10] is clamped; zero means the default of 5.
	Importance int
	Source     string
}

type SearchOptions struct {
	Limit       int
	// MinScore is the cosine floor for vector matches. Nil means DefaultMinScore; zero keeps every match.
	MinScore    *float64
	ContextType string
	IncludeTags []string
	ExcludeTags []string

	minScore float64
}

type Match struct {
	Memory *types.Memory `json:"memory"`
	Score  float64       `json:"score"`
}

type SearchResult struct {
	Matches []Match `json:"matches"`
	Mode    string  `json:"mode"`
}

type Store struct {
	log      *logger.Logger
	ai       openai.Client
	vec      vectorstore.VectorStore
	memories repos.MemoryRepo
	now      func() time.Time
}

// NewStore wires the memory store. vec may be nil, in which case searches scan stored
// embeddings directly.
func NewStore(log *logger.Logger, ai openai.Client, vec vectorstore.VectorStore, memories repos.MemoryRepo) *Store {
	return &Store{
		log:      log.With("module", "MemoryStore"),
		ai:       ai,
		vec:      vec,
		memories: memories,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Enrich never fails: on any model error it returns the raw text with no categories.
func (s *Store) Enrich(ctx context.Context, rawText, source string) Enrichment {
	fallback := Enrichment{EnrichedText: rawText, Categories: []string{}}
	if s.ai == nil || strings.TrimSpace(rawText) == "" {
		return fallback
	}
	p, err := prompts.Build(prompts.PromptMemoryEnrich, prompts.Input{RawText: rawText, SourceMessage: source})
	if err != nil {
		return fallback
	}
	obj, err := s.ai.GenerateJSON(ctx, p.System, p.User, p.SchemaName, p.Schema)
	if err != nil {
		s.log.Warn("memory enrichment failed; storing raw text", "error", err)
		return fallback
	}
	var out struct {
		EnrichedText string   `json:"enriched_text"`
		Categories   []string `json:"categories"`
	}
	if err := prompts.Decode(obj, &out); err != nil || strings.TrimSpace(out.EnrichedText) == "" {
		s.log.Warn("memory enrichment malformed; storing raw text", "error", err)
		return fallback
	}
	return Enrichment{
		EnrichedText: strings.TrimSpace(out.EnrichedText),
		Categories:   cleanLabels(out.Categories),
	}
}

func (s *Store) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.ai == nil {
		return nil, fmt.Errorf("embed: %w", coacherrors.ErrUpstreamModel)
	}
	vecs, err := s.ai.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed: %w: %v", coacherrors.ErrUpstreamModel, err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("embed: %w: empty embedding", coacherrors.ErrUpstreamModel)
	}
	return vecs[0], nil
}

// Add enriches, embeds and persists a memory, then indexes it. Index failures are logged only.
func (s *Store) Add(ctx context.Context, in AddInput) (*types.Memory, error) {
	raw := strings.TrimSpace(in.RawText)
	if in.LearnerID == uuid.Nil || raw == "" {
		return nil, fmt.Errorf("add memory: learner and text required: %w", coacherrors.ErrInvalidArgument)
	}
	tags := cleanLabels(in.Tags)
	contextTypes := cleanLabels(in.ContextTypes)

	enr := s.Enrich(ctx, raw, in.Source)
	vector, err := s.Embed(ctx, embeddingText(enr.EnrichedText, tags, contextTypes))
	if err != nil {
		return nil, err
	}

	m := &types.Memory{
		ID:           uuid.New(),
		LearnerID:    in.LearnerID,
		SessionID:    in.SessionID,
		RawText:      raw,
		EnrichedText: enr.EnrichedText,
		Source:       in.Source,
		Embedding:    types.JSON(vector),
		Categories:   types.JSON(enr.Categories),
		Tags:         types.JSON(tags),
		ContextType:  types.JSON(contextTypes),
		Importance:   ClampImportance(in.Importance),
		CreatedAt:    s.now(),
	}
	if err := s.memories.Create(dbctx.Context{Ctx: ctx}, m); err != nil {
		return nil, fmt.Errorf("persist memory: %w", err)
	}

	if s.vec != nil {
		err := s.vec.Upsert(ctx, Namespace, []vectorstore.Vector{{
			ID:     m.ID.String(),
			Values: vector,
			Metadata: map[string]any{
				"learner_id":   m.LearnerID.String(),
				"tags":         tags,
				"context_type": contextTypes,
				"importance":   m.Importance,
				"created_at":   m.CreatedAt.Format(time.RFC3339),
			},
		}})
		if err != nil {
			s.log.Warn("memory index upsert failed; row stays searchable via fallback", "memory_id", m.ID, "error", err)
		}
	}
	return m, nil
}

// FindSimilar ranks a learner's memories against queryText. Without a vector index, or when the
// index or embedding call fails, it answers from lexical search; those failures are never returned.
func (s *Store) FindSimilar(ctx context.Context, learnerID uuid.UUID, queryText string, opts SearchOptions) (SearchResult, error) {
	opts = normalizeOptions(opts)
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return SearchResult{Matches: []Match{}, Mode: ModeLexical}, nil
	}

	if s.vec != nil {
		res, err := s.semanticSearch(ctx, learnerID, queryText, opts)
		if err == nil {
			observability.Current().IncRetrieval(res.Mode)
			return res, nil
		}
		s.log.Warn("semantic memory search unavailable; using lexical fallback",
			"learner_id", learnerID, "error", errors.Join(coacherrors.ErrRetrievalDegraded, err))
	}
	res, err := s.lexicalSearch(ctx, learnerID, queryText, opts)
	if err != nil {
		return SearchResult{}, err
	}
	observability.Current().IncRetrieval(res.Mode)
	return res, nil
}

func (s *Store) semanticSearch(ctx context.Context, learnerID uuid.UUID, queryText string, opts SearchOptions) (SearchResult, error) {
	vector, err := s.Embed(ctx, s.expandQuery(ctx, queryText))
	if err != nil {
		return SearchResult{}, err
	}
	return s.vectorSearch(ctx, learnerID, vector, opts)
}

// Summary renders the learner's most important recent memories as prompt-ready bullet lines.
func (s *Store) Summary(ctx context.Context, learnerID uuid.UUID, n int) (string, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := s.memories.ListRecent(dbctx.Context{Ctx: ctx}, learnerID, n)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "(no stored memories)", nil
	}
	var b strings.Builder
	for _, m := range rows {
		b.WriteString("- ")
		b.WriteString(m.RawText)
		if ctxTypes := m.ContextTypeList(); len(ctxTypes) > 0 {
			b.WriteString(" [")
			b.WriteString(strings.Join(ctxTypes, ","))
			b.WriteString("]")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *Store) expandQuery(ctx context.Context, queryText string) string {
	if s.ai == nil {
		return queryText
	}
	p, err := prompts.Build(prompts.PromptMemoryQueryExpand, prompts.Input{Query: queryText})
	if err != nil {
		return queryText
	}
	obj, err := s.ai.GenerateJSON(ctx, p.System, p.User, p.SchemaName, p.Schema)
	if err != nil {
		s.log.Debug("query expansion failed; using raw query", "error", err)
		return queryText
	}
	var out struct {
		ExpandedQuery string `json:"expanded_query"`
	}
	if err := prompts.Decode(obj, &out); err != nil || strings.TrimSpace(out.ExpandedQuery) == "" {
		return queryText
	}
	return strings.TrimSpace(out.ExpandedQuery)
}

func (s *Store) vectorSearch(ctx context.Context, learnerID uuid.UUID, vector []float32, opts SearchOptions) (SearchResult, error) {
	matches, err := s.vec.Query(ctx, Namespace, vectorstore.Query{
		Vector:   vector,
		TopK:     opts.Limit * 2,
		MinScore: opts.minScore,
		Filter:   vectorFilter(learnerID, opts),
	})
	if err != nil {
		return SearchResult{}, err
	}
	scores := map[uuid.UUID]float64{}
	ids := make([]uuid.UUID, 0, len(matches))
	for _, vm := range matches {
		id, perr := uuid.Parse(vm.ID)
		if perr != nil || vm.Score < opts.minScore {
			continue
		}
		if _, dup := scores[id]; !dup {
			ids = append(ids, id)
		}
		scores[id] = math.Max(scores[id], vm.Score)
	}
	rows, err := s.memories.GetByIDs(dbctx.Context{Ctx: ctx}, learnerID, ids)
	if err != nil {
		return SearchResult{}, err
	}
	out := make([]Match, 0, len(rows))
	for _, m := range rows {
		// The index can lag the table; re-check filters against the row.
		if !matchesFilters(m, opts) {
			continue
		}
		out = append(out, Match{Memory: m, Score: scores[m.ID]})
	}
	return SearchResult{Matches: rank(out, opts.Limit, opts.minScore), Mode: ModeVector}, nil
}

func (s *Store) lexicalSearch(ctx context.Context, learnerID uuid.UUID, query string, opts SearchOptions) (SearchResult, error) {
	// Over-fetch so the Go-side filters still leave enough rows.
	rows, err := s.memories.LexicalSearch(dbctx.Context{Ctx: ctx}, learnerID, query, opts.Limit*10)
	if err != nil {
		return SearchResult{}, fmt.Errorf("lexical memory search: %w", err)
	}
	out := make([]Match, 0, len(rows))
	for _, r := range rows {
		if !matchesFilters(r.Memory, opts) {
			continue
		}
		out = append(out, Match{Memory: r.Memory, Score: r.Score})
	}
	// Keyword overlap is not on the cosine scale, so minScore does not apply here.
	return SearchResult{Matches: rank(out, opts.Limit, 0), Mode: ModeLexical}, nil
}

func vectorFilter(learnerID uuid.UUID, opts SearchOptions) map[string]any {
	filter := map[string]any{"learner_id": learnerID.String()}
	if opts.ContextType != "" {
		filter["context_type"] = map[string]any{"$in": []string{opts.ContextType}}
	}
	tags := map[string]any{}
	if len(opts.IncludeTags) > 0 {
		tags["$in"] = opts.IncludeTags
	}
	if len(opts.ExcludeTags) > 0 {
		tags["$nin"] = opts.ExcludeTags
	}
	if len(tags) > 0 {
		filter["tags"] = tags
	}
	return filter
}

func matchesFilters(m *types.Memory, opts SearchOptions) bool {
	if m == nil {
		return false
	}
	if opts.ContextType != "" && !lo.Contains(m.ContextTypeList(), opts.ContextType) {
		return false
	}
	tags := m.TagList()
	if len(opts.IncludeTags) > 0 && !lo.Some(tags, opts.IncludeTags) {
		return false
	}
	if len(opts.ExcludeTags) > 0 && lo.Some(tags, opts.ExcludeTags) {
		return false
	}
	return true
}

func rank(in []Match, limit int, minScore float64) []Match {
	out := lo.Filter(in, func(m Match, _ int) bool { return m.Score >= minScore })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func normalizeOptions(opts SearchOptions) SearchOptions {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	opts.minScore = DefaultMinScore
	if opts.MinScore != nil {
		opts.minScore = math.Min(math.Max(*opts.MinScore, 0), 1)
	}
	opts.ContextType = normalization.Key(opts.ContextType)
	opts.IncludeTags = cleanLabels(opts.IncludeTags)
	opts.ExcludeTags = cleanLabels(opts.ExcludeTags)
	return opts
}

func embeddingText(enriched string, tags, contextTypes []string) string {
	var b strings.Builder
	b.WriteString(enriched)
	if len(tags) > 0 {
		b.WriteString("\ntags: ")
		b.WriteString(strings.Join(tags, ", "))
	}
	if len(contextTypes) > 0 {
		b.WriteString("\ncontext: ")
		b.WriteString(strings.Join(contextTypes, ", "))
	}
	return b.String()
}

func cleanLabels(in []string) []string {
	out := lo.Uniq(lo.FilterMap(in, func(s string, _ int) (string, bool) {
		k := normalization.Key(s)
		return k, k != ""
	}))
	if out == nil {
		return []string{}
	}
	return out
}

func ClampImportance(v int) int {
	switch {
	case v == 0:
		return 5
	case v < 1:
		return 1
	case v > 10:
		return 10
	default:
		return v
	}
}
