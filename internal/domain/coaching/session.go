package coaching

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusAnalyzed  = "analyzed"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// CoachingSession is one bounded conversation scoped to (learner, course, chapter).
// At most one row per scope may be active; a partial unique index enforces it.
type CoachingSession struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID uuid.UUID `gorm:"type:uuid;not null;index" json:"learner_id"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	ChapterID uuid.UUID `gorm:"type:uuid;not null;index" json:"chapter_id"`

	Status          string     `gorm:"type:text;not null;index" json:"status"`
	StartTime       time.Time  `gorm:"not null" json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`

	// Counters double as the per-session sequence for messages and insights.
	MessageCount     int `gorm:"not null;default:0" json:"message_count"`
	UserMessageCount int `gorm:"not null;default:0" json:"user_message_count"`
	InsightCount     int `gorm:"not null;default:0" json:"insight_count"`

	Messages []SessionMessage `gorm:"foreignKey:SessionID" json:"messages,omitempty"`
	Insights []SessionInsight `gorm:"foreignKey:SessionID" json:"insights,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CoachingSession) TableName() string { return "coaching_session" }

func (s *CoachingSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *CoachingSession) IsActive() bool { return s != nil && s.Status == SessionStatusActive }

type SessionMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_session_message_seq,priority:1" json:"session_id"`
	Seq       int       `gorm:"not null;uniqueIndex:idx_session_message_seq,priority:2" json:"seq"`
	Role      string    `gorm:"type:text;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	// LatencyMS is the learner's response latency for user messages.
	LatencyMS *int64    `json:"latency_ms,omitempty"`
	Timestamp time.Time `gorm:"column:sent_at;not null" json:"timestamp"`
}

func (SessionMessage) TableName() string { return "coaching_session_message" }

func (m *SessionMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type SessionInsight struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_session_insight_seq,priority:1" json:"session_id"`
	Seq       int       `gorm:"not null;uniqueIndex:idx_session_insight_seq,priority:2" json:"seq"`
	Type      string    `gorm:"type:text;not null" json:"type"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Timestamp time.Time `gorm:"column:recorded_at;not null" json:"timestamp"`
}

func (SessionInsight) TableName() string { return "coaching_session_insight" }

func (i *SessionInsight) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
