package coaching

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	coachdb "github.com/yungbote/neurobridge-coach/internal/data/db"
	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

type SessionRepo interface {
	// CreateActive inserts a new active session. A concurrent insert for the same scope fails
	// the partial unique index; the caller sees ErrActiveExists and re-reads the winner.
	CreateActive(dbc dbctx.Context, learnerID, courseID, chapterID uuid.UUID, now time.Time) (*types.CoachingSession, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CoachingSession, error)
	GetActive(dbc dbctx.Context, learnerID, courseID, chapterID uuid.UUID) (*types.CoachingSession, error)
	GetLatestCompleted(dbc dbctx.Context, learnerID uuid.UUID) (*types.CoachingSession, error)
	ListByLearner(dbc dbctx.Context, learnerID uuid.UUID, limit int) ([]*types.CoachingSession, error)

	AppendMessage(dbc dbctx.Context, sessionID uuid.UUID, role, content string, latencyMS *int64, at time.Time) (*types.SessionMessage, int, error)
	AppendInsight(dbc dbctx.Context, sessionID uuid.UUID, insightType, content string, at time.Time) (*types.SessionInsight, error)
	ListMessages(dbc dbctx.Context, sessionID uuid.UUID, lastN int) ([]*types.SessionMessage, error)
	ListInsights(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.SessionInsight, error)

	Complete(dbc dbctx.Context, sessionID uuid.UUID, now time.Time) (*types.CoachingSession, error)
	MarkAnalyzed(dbc dbctx.Context, sessionID uuid.UUID, now time.Time) error
}

var ErrActiveExists = errors.New("active session already exists for scope")

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	repoLog := baseLog.With("repo", "SessionRepo")
	return &sessionRepo{db: db, log: repoLog}
}

func (r *sessionRepo) CreateActive(dbc dbctx.Context, learnerID, courseID, chapterID uuid.UUID, now time.Time) (*types.CoachingSession, error) {
	s := &types.CoachingSession{
		ID:        uuid.New(),
		LearnerID: learnerID,
		CourseID:  courseID,
		ChapterID: chapterID,
		Status:    types.SessionStatusActive,
		StartTime: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := dbc.DB(r.db).Create(s).Error; err != nil {
		if coachdb.IsUniqueViolation(err) {
			return nil, ErrActiveExists
		}
		return nil, err
	}
	return s, nil
}

func (r *sessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CoachingSession, error) {
	var s types.CoachingSession
	err := dbc.DB(r.db).Where("id = ?", id).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("session %s: %w", id, coacherrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetActive returns nil, nil when the scope has no active session.
func (r *sessionRepo) GetActive(dbc dbctx.Context, learnerID, courseID, chapterID uuid.UUID) (*types.CoachingSession, error) {
	var rows []*types.CoachingSession
	if err := dbc.DB(r.db).
		Where("learner_id = ? AND course_id = ? AND chapter_id = ? AND status = ?", learnerID, courseID, chapterID, types.SessionStatusActive).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// GetLatestCompleted returns the most recently ended session, or nil, nil.
func (r *sessionRepo) GetLatestCompleted(dbc dbctx.Context, learnerID uuid.UUID) (*types.CoachingSession, error) {
	var rows []*types.CoachingSession
	if err := dbc.DB(r.db).
		Where("learner_id = ? AND end_time IS NOT NULL", learnerID).
		Order("end_time DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *sessionRepo) ListByLearner(dbc dbctx.Context, learnerID uuid.UUID, limit int) ([]*types.CoachingSession, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []*types.CoachingSession
	if err := dbc.DB(r.db).
		Where("learner_id = ?", learnerID).
		Order("start_time DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// AppendMessage bumps the session counters with a conditional update and inserts the message in
// the same transaction. It returns the stored message and the session's user-message count.
func (r *sessionRepo) AppendMessage(dbc dbctx.Context, sessionID uuid.UUID, role, content string, latencyMS *int64, at time.Time) (*types.SessionMessage, int, error) {
	switch role {
	case types.RoleUser, types.RoleAssistant, types.RoleSystem:
	default:
		return nil, 0, fmt.Errorf("message role %q: %w", role, coacherrors.ErrInvalidArgument)
	}

	var (
		msg       *types.SessionMessage
		userCount int
	)
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		userInc := 0
		if role == types.RoleUser {
			userInc = 1
		}
		res := tx.Model(&types.CoachingSession{}).
			Where("id = ? AND status = ?", sessionID, types.SessionStatusActive).
			Updates(map[string]any{
				"message_count":      gorm.Expr("message_count + 1"),
				"user_message_count": gorm.Expr("user_message_count + ?", userInc),
				"updated_at":         at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return r.closedOrMissing(tx, sessionID)
		}

		var counts struct {
			MessageCount     int
			UserMessageCount int
		}
		if err := tx.Model(&types.CoachingSession{}).
			Select("message_count", "user_message_count").
			Where("id = ?", sessionID).
			Scan(&counts).Error; err != nil {
			return err
		}

		msg = &types.SessionMessage{
			ID:        uuid.New(),
			SessionID: sessionID,
			Seq:       counts.MessageCount,
			Role:      role,
			Content:   content,
			LatencyMS: latencyMS,
			Timestamp: at,
		}
		userCount = counts.UserMessageCount
		return tx.Create(msg).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return msg, userCount, nil
}

func (r *sessionRepo) AppendInsight(dbc dbctx.Context, sessionID uuid.UUID, insightType, content string, at time.Time) (*types.SessionInsight, error) {
	var ins *types.SessionInsight
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&types.CoachingSession{}).
			Where("id = ? AND status = ?", sessionID, types.SessionStatusActive).
			Updates(map[string]any{
				"insight_count": gorm.Expr("insight_count + 1"),
				"updated_at":    at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return r.closedOrMissing(tx, sessionID)
		}

		var seq int
		if err := tx.Model(&types.CoachingSession{}).
			Select("insight_count").
			Where("id = ?", sessionID).
			Scan(&seq).Error; err != nil {
			return err
		}
		ins = &types.SessionInsight{
			ID:        uuid.New(),
			SessionID: sessionID,
			Seq:       seq,
			Type:      insightType,
			Content:   content,
			Timestamp: at,
		}
		return tx.Create(ins).Error
	})
	if err != nil {
		return nil, err
	}
	return ins, nil
}

// ListMessages returns messages in order. lastN > 0 keeps only the most recent lastN.
func (r *sessionRepo) ListMessages(dbc dbctx.Context, sessionID uuid.UUID, lastN int) ([]*types.SessionMessage, error) {
	var rows []*types.SessionMessage
	q := dbc.DB(r.db).Where("session_id = ?", sessionID)
	if lastN > 0 {
		if err := q.Order("seq DESC").Limit(lastN).Find(&rows).Error; err != nil {
			return nil, err
		}
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
		return rows, nil
	}
	if err := q.Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *sessionRepo) ListInsights(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.SessionInsight, error) {
	var rows []*types.SessionInsight
	if err := dbc.DB(r.db).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Complete moves active -> completed. durationMinutes is whole elapsed minutes, floored.
func (r *sessionRepo) Complete(dbc dbctx.Context, sessionID uuid.UUID, now time.Time) (*types.CoachingSession, error) {
	var out *types.CoachingSession
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		var s types.CoachingSession
		if err := tx.Where("id = ?", sessionID).Take(&s).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("session %s: %w", sessionID, coacherrors.ErrNotFound)
			}
			return err
		}
		if s.Status != types.SessionStatusActive {
			return coacherrors.InvalidTransition("not_active", s.Status, types.SessionStatusCompleted)
		}

		elapsed := now.Sub(s.StartTime)
		if elapsed < 0 {
			elapsed = 0
		}
		duration := int(elapsed / time.Minute)
		end := now

		res := tx.Model(&types.CoachingSession{}).
			Where("id = ? AND status = ?", sessionID, types.SessionStatusActive).
			Updates(map[string]any{
				"status":           types.SessionStatusCompleted,
				"end_time":         end,
				"duration_minutes": duration,
				"updated_at":       now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return coacherrors.InvalidTransition("not_active", types.SessionStatusCompleted, types.SessionStatusCompleted)
		}
		s.Status = types.SessionStatusCompleted
		s.EndTime = &end
		s.DurationMinutes = &duration
		s.UpdatedAt = now
		out = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkAnalyzed moves completed -> analyzed exactly once.
func (r *sessionRepo) MarkAnalyzed(dbc dbctx.Context, sessionID uuid.UUID, now time.Time) error {
	db := dbc.DB(r.db)
	res := db.Model(&types.CoachingSession{}).
		Where("id = ? AND status = ?", sessionID, types.SessionStatusCompleted).
		Updates(map[string]any{
			"status":     types.SessionStatusAnalyzed,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	s, err := r.GetByID(dbc, sessionID)
	if err != nil {
		return err
	}
	if s.Status == types.SessionStatusAnalyzed {
		return fmt.Errorf("session %s: %w", sessionID, coacherrors.ErrAlreadyAnalyzed)
	}
	return coacherrors.InvalidTransition("not_completed", s.Status, types.SessionStatusAnalyzed)
}

func (r *sessionRepo) closedOrMissing(tx *gorm.DB, sessionID uuid.UUID) error {
	var statuses []string
	if err := tx.Model(&types.CoachingSession{}).Where("id = ?", sessionID).Pluck("status", &statuses).Error; err != nil {
		return err
	}
	if len(statuses) == 0 {
		return fmt.Errorf("session %s: %w", sessionID, coacherrors.ErrNotFound)
	}
	return coacherrors.InvalidTransition("session_closed", statuses[0], "")
}
