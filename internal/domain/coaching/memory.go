package coaching

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ContextAcademic = "academic"
	ContextPersonal = "personal"
)

// Memory is a durable fact about a learner. Rows are append-only.
type Memory struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID uuid.UUID  `gorm:"type:uuid;not null;index" json:"learner_id"`
	SessionID *uuid.UUID `gorm:"type:uuid;index" json:"session_id,omitempty"`

	RawText      string `gorm:"type:text;not null" json:"raw_text"`
	EnrichedText string `gorm:"type:text;not null" json:"enriched_text"`
	Source       string `gorm:"type:text" json:"source,omitempty"`

	Embedding   datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"-"`
	Categories  datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"categories"`
	Tags        datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"tags"`
	ContextType datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"context_type"`
	Importance  int            `gorm:"not null;default:5" json:"importance"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (Memory) TableName() string { return "learner_memory" }

func (m *Memory) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *Memory) TagList() []string         { return DecodeJSON[[]string](m.Tags) }
func (m *Memory) CategoryList() []string    { return DecodeJSON[[]string](m.Categories) }
func (m *Memory) ContextTypeList() []string { return DecodeJSON[[]string](m.ContextType) }
