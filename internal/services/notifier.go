package services

import (
	"context"

	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
	"github.com/yungbote/neurobridge-coach/internal/realtime/bus"
)

// =========================
// Session notifier
// =========================

type SessionNotifier interface {
	SessionStarted(ctx context.Context, s *types.CoachingSession)
	SessionCompleted(ctx context.Context, s *types.CoachingSession)
}

type sessionNotifier struct {
	log    *logger.Logger
	events bus.Bus
}

func NewSessionNotifier(log *logger.Logger, events bus.Bus) SessionNotifier {
	return &sessionNotifier{log: log.With("service", "SessionNotifier"), events: events}
}

func (n *sessionNotifier) SessionStarted(ctx context.Context, s *types.CoachingSession) {
	if n == nil || n.events == nil || s == nil {
		return
	}
	n.publish(ctx, bus.Event{
		Type:      bus.EventSessionStarted,
		SessionID: s.ID,
		LearnerID: s.LearnerID,
		CourseID:  s.CourseID,
		Data:      map[string]any{"chapter_id": s.ChapterID.String()},
	})
}

func (n *sessionNotifier) SessionCompleted(ctx context.Context, s *types.CoachingSession) {
	if n == nil || n.events == nil || s == nil {
		return
	}
	data := map[string]any{"chapter_id": s.ChapterID.String()}
	if s.DurationMinutes != nil {
		data["duration_minutes"] = *s.DurationMinutes
	}
	n.publish(ctx, bus.Event{
		Type:      bus.EventSessionCompleted,
		SessionID: s.ID,
		LearnerID: s.LearnerID,
		CourseID:  s.CourseID,
		Data:      data,
	})
}

func (n *sessionNotifier) publish(ctx context.Context, ev bus.Event) {
	if err := n.events.Publish(ctx, ev); err != nil {
		n.log.Warn("publish failed", "event", ev.Type, "session_id", ev.SessionID, "error", err)
	}
}
