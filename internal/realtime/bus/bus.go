package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSessionStarted   = "session.started"
	EventSessionCompleted = "session.completed"
	EventSessionAnalyzed  = "session.analyzed"
)

// Event is a session lifecycle notification fanned out to every API replica.
type Event struct {
	Type      string         `json:"type"`
	SessionID uuid.UUID      `json:"session_id"`
	LearnerID uuid.UUID      `json:"learner_id"`
	CourseID  uuid.UUID      `json:"course_id"`
	At        time.Time      `json:"at"`
	Data      map[string]any `json:"data,omitempty"`
}

type Bus interface {
	Publish(ctx context.Context, ev Event) error
	StartForwarder(ctx context.Context, onEvent func(ev Event)) error
	Close() error
}
