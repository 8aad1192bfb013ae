package coaching

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type KeyObservation struct {
	Category    string `json:"category"`
	Observation string `json:"observation"`
	Importance  int    `json:"importance"`
}

type ConceptAssessment struct {
	ConceptName string `json:"conceptName"`
	Level       int    `json:"level"`
	Evidence    string `json:"evidence"`
}

type RecommendedAction struct {
	Action    string `json:"action"`
	Priority  string `json:"priority"`
	Reasoning string `json:"reasoning"`
}

// SessionAnalysisReport is written once per session and never updated.
type SessionAnalysisReport struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"session_id"`
	LearnerID    uuid.UUID `gorm:"type:uuid;not null;index" json:"learner_id"`
	CourseID     uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	AnalysisDate time.Time `gorm:"not null" json:"analysis_date"`

	OverallUnderstanding int `gorm:"not null" json:"overall_understanding"`

	KeyObservations    datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"key_observations"`
	ConceptsUnderstood datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"concepts_understood"`
	ConceptsStruggling datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"concepts_struggling"`
	RecommendedActions datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"recommended_actions"`

	LearningStyleInsights      string `gorm:"type:text" json:"learning_style_insights"`
	CommunicationStyleInsights string `gorm:"type:text" json:"communication_style_insights"`
	EngagementLevelInsights    string `gorm:"type:text" json:"engagement_level_insights"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (SessionAnalysisReport) TableName() string { return "coaching_session_report" }

func (r *SessionAnalysisReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r *SessionAnalysisReport) Observations() []KeyObservation {
	return DecodeJSON[[]KeyObservation](r.KeyObservations)
}

func (r *SessionAnalysisReport) Understood() []ConceptAssessment {
	return DecodeJSON[[]ConceptAssessment](r.ConceptsUnderstood)
}

func (r *SessionAnalysisReport) Struggling() []ConceptAssessment {
	return DecodeJSON[[]ConceptAssessment](r.ConceptsStruggling)
}

func (r *SessionAnalysisReport) Actions() []RecommendedAction {
	return DecodeJSON[[]RecommendedAction](r.RecommendedActions)
}
