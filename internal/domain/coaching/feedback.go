package coaching

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	FeedbackExplicit = "explicit"
	FeedbackImplicit = "implicit"

	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

type FeedbackTracking struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID    uuid.UUID `gorm:"type:uuid;not null;index" json:"learner_id"`
	SessionID    uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`
	FeedbackType string    `gorm:"type:text;not null" json:"feedback_type"`
	Rating       *int      `json:"rating,omitempty"`
	Sentiment    string    `gorm:"type:text;not null" json:"sentiment"`

	FeedbackText       *string        `gorm:"type:text" json:"feedback_text,omitempty"`
	ImplicitIndicators datatypes.JSON `gorm:"type:jsonb" json:"implicit_indicators,omitempty"`

	Timestamp time.Time `gorm:"column:recorded_at;not null;index" json:"timestamp"`
}

func (FeedbackTracking) TableName() string { return "coaching_feedback" }

func (f *FeedbackTracking) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
