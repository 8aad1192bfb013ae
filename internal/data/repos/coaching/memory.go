package coaching

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	coachdb "github.com/yungbote/neurobridge-coach/internal/data/db"
	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/normalization"
	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

type ScoredMemory struct {
	Memory *types.Memory
	Score  float64
}

type MemoryRepo interface {
	Create(dbc dbctx.Context, m *types.Memory) error
	GetByIDs(dbc dbctx.Context, learnerID uuid.UUID, ids []uuid.UUID) ([]*types.Memory, error)
	// ListRecent orders by importance then recency.
	ListRecent(dbc dbctx.Context, learnerID uuid.UUID, limit int) ([]*types.Memory, error)
	// LexicalSearch ranks a learner's memories by keyword overlap with query. Scores are in (0,1].
	LexicalSearch(dbc dbctx.Context, learnerID uuid.UUID, query string, limit int) ([]ScoredMemory, error)
	CountByLearner(dbc dbctx.Context, learnerID uuid.UUID) (int64, error)
}

type memoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMemoryRepo(db *gorm.DB, baseLog *logger.Logger) MemoryRepo {
	repoLog := baseLog.With("repo", "MemoryRepo")
	return &memoryRepo{db: db, log: repoLog}
}

func (r *memoryRepo) Create(dbc dbctx.Context, m *types.Memory) error {
	return dbc.DB(r.db).Create(m).Error
}

func (r *memoryRepo) GetByIDs(dbc dbctx.Context, learnerID uuid.UUID, ids []uuid.UUID) ([]*types.Memory, error) {
	var rows []*types.Memory
	if len(ids) == 0 {
		return rows, nil
	}
	if err := dbc.DB(r.db).
		Where("learner_id = ? AND id IN ?", learnerID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *memoryRepo) ListRecent(dbc dbctx.Context, learnerID uuid.UUID, limit int) ([]*types.Memory, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []*types.Memory
	if err := dbc.DB(r.db).
		Omit("embedding").
		Where("learner_id = ?", learnerID).
		Order("importance DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *memoryRepo) CountByLearner(dbc dbctx.Context, learnerID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.Memory{}).Where("learner_id = ?", learnerID).Count(&n).Error
	return n, err
}

func (r *memoryRepo) LexicalSearch(dbc dbctx.Context, learnerID uuid.UUID, query string, limit int) ([]ScoredMemory, error) {
	if limit <= 0 {
		limit = 20
	}
	terms := normalization.Terms(query)
	if len(terms) == 0 {
		return []ScoredMemory{}, nil
	}
	db := dbc.DB(r.db)
	if coachdb.IsPostgres(db) {
		return r.lexicalPostgres(db, learnerID, terms, limit)
	}
	return r.lexicalScan(db, learnerID, terms, limit)
}

type memoryRankRow struct {
	types.Memory
	Rank float64 `gorm:"column:rank"`
}

// Terms are alphanumeric only, so joining them with | is a safe tsquery.
func (r *memoryRepo) lexicalPostgres(db *gorm.DB, learnerID uuid.UUID, terms []string, limit int) ([]ScoredMemory, error) {
	tsq := strings.Join(terms, " | ")
	var rows []memoryRankRow
	if err := db.Raw(`
		SELECT m.*, ts_rank(to_tsvector('english', m.enriched_text || ' ' || m.raw_text), to_tsquery('english', ?)) AS rank
		FROM learner_memory m
		WHERE m.learner_id = ?
		  AND to_tsvector('english', m.enriched_text || ' ' || m.raw_text) @@ to_tsquery('english', ?)
		ORDER BY rank DESC, m.created_at DESC
		LIMIT ?`, tsq, learnerID, tsq, limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ScoredMemory, 0, len(rows))
	for i := range rows {
		m := rows[i].Memory
		// ts_rank is unbounded; squash into (0,1) so callers can compare against a floor.
		score := rows[i].Rank / (rows[i].Rank + 0.1)
		out = append(out, ScoredMemory{Memory: &m, Score: score})
	}
	return out, nil
}

func (r *memoryRepo) lexicalScan(db *gorm.DB, learnerID uuid.UUID, terms []string, limit int) ([]ScoredMemory, error) {
	var rows []*types.Memory
	if err := db.
		Omit("embedding").
		Where("learner_id = ?", learnerID).
		Order("created_at DESC").
		Limit(1000).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ScoredMemory, 0, len(rows))
	for _, m := range rows {
		doc := m.EnrichedText + " " + m.RawText + " " + strings.Join(m.TagList(), " ")
		if score := normalization.KeywordScore(terms, doc); score > 0 {
			out = append(out, ScoredMemory{Memory: m, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
