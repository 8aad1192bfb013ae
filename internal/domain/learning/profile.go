package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ScoreMin     = 1
	ScoreMax     = 10
	ScoreDefault = 5
)

type LearningPatterns struct {
	PreferredTime   string         `json:"preferredTime,omitempty"`
	EngagementLevel string         `json:"engagementLevel,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"`
}

// UserLearningProfile holds cross-course ability scores for one learner.
type UserLearningProfile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"learner_id"`

	AnalyticalAbility int `gorm:"not null;default:5" json:"analytical_ability"`
	CriticalThinking  int `gorm:"not null;default:5" json:"critical_thinking"`
	ProblemSolving    int `gorm:"not null;default:5" json:"problem_solving"`

	GeneralStrengths  datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"general_strengths"`
	GeneralWeaknesses datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"general_weaknesses"`
	PreferredTopics   datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"preferred_topics"`
	AvoidedTopics     datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"avoided_topics"`
	LearningPatterns  datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"learning_patterns"`

	LastUpdated time.Time `gorm:"not null" json:"last_updated"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (UserLearningProfile) TableName() string { return "user_learning_profile" }

func (p *UserLearningProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func NewUserLearningProfile(learnerID uuid.UUID, now time.Time) *UserLearningProfile {
	return &UserLearningProfile{
		ID:                uuid.New(),
		LearnerID:         learnerID,
		AnalyticalAbility: ScoreDefault,
		CriticalThinking:  ScoreDefault,
		ProblemSolving:    ScoreDefault,
		GeneralStrengths:  datatypes.JSON([]byte("[]")),
		GeneralWeaknesses: datatypes.JSON([]byte("[]")),
		PreferredTopics:   datatypes.JSON([]byte("[]")),
		AvoidedTopics:     datatypes.JSON([]byte("[]")),
		LearningPatterns:  datatypes.JSON([]byte("{}")),
		LastUpdated:       now,
		CreatedAt:         now,
	}
}

type ConceptMastery struct {
	ConceptName string `json:"conceptName"`
	Level       int    `json:"level"`
	Notes       string `json:"notes"`
}

// CourseUserProfile is the per-course view of a learner. A concept name appears in at most one
// of MasteredConcepts and MisunderstoodConcepts.
type CourseUserProfile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_course_user_profile,priority:1" json:"learner_id"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_course_user_profile,priority:2" json:"course_id"`

	ComprehensionLevel int `gorm:"not null;default:5" json:"comprehension_level"`
	EngagementLevel    int `gorm:"not null;default:5" json:"engagement_level"`

	Strengths             datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"strengths"`
	Weaknesses            datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"weaknesses"`
	MasteredConcepts      datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"mastered_concepts"`
	MisunderstoodConcepts datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"misunderstood_concepts"`

	LastUpdated time.Time `gorm:"not null" json:"last_updated"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (CourseUserProfile) TableName() string { return "course_user_profile" }

func (p *CourseUserProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func NewCourseUserProfile(learnerID, courseID uuid.UUID, now time.Time) *CourseUserProfile {
	return &CourseUserProfile{
		ID:                    uuid.New(),
		LearnerID:             learnerID,
		CourseID:              courseID,
		ComprehensionLevel:    ScoreDefault,
		EngagementLevel:       ScoreDefault,
		Strengths:             datatypes.JSON([]byte("[]")),
		Weaknesses:            datatypes.JSON([]byte("[]")),
		MasteredConcepts:      datatypes.JSON([]byte("[]")),
		MisunderstoodConcepts: datatypes.JSON([]byte("[]")),
		LastUpdated:           now,
		CreatedAt:             now,
	}
}
