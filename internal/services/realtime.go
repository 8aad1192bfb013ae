package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-coach/internal/data/repos"
	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
	"github.com/yungbote/neurobridge-coach/internal/platform/openai"
)

// RealtimeService negotiates the audio channel. Session instructions are not sent here; the
// control channel configures the session once it binds.
type RealtimeService interface {
	CreateCredential(ctx context.Context, courseID, chapterID uuid.UUID) (openai.RealtimeCredential, error)
	ExchangeSDP(ctx context.Context, credential, offerSDP string) (string, error)
}

type realtimeService struct {
	db       *gorm.DB
	log      *logger.Logger
	provider openai.Realtime
	courses  repos.CourseRepo
	voice    string
}

func NewRealtimeService(db *gorm.DB, log *logger.Logger, provider openai.Realtime, courses repos.CourseRepo, voice string) RealtimeService {
	return &realtimeService{
		db:       db,
		log:      log.With("service", "RealtimeService"),
		provider: provider,
		courses:  courses,
		voice:    voice,
	}
}

func (rs *realtimeService) CreateCredential(ctx context.Context, courseID, chapterID uuid.UUID) (openai.RealtimeCredential, error) {
	learnerID, err := requester(ctx)
	if err != nil {
		return openai.RealtimeCredential{}, err
	}
	if rs.provider == nil {
		return openai.RealtimeCredential{}, fmt.Errorf("realtime provider not configured: %w", coacherrors.ErrUpstreamModel)
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := rs.courses.GetChapter(dbc, courseID, chapterID); err != nil {
		return openai.RealtimeCredential{}, err
	}
	cred, err := rs.provider.CreateRealtimeSession(ctx, openai.RealtimeSessionRequest{Voice: rs.voice})
	if err != nil {
		rs.log.Warn("Realtime credential failed", "learner_id", learnerID, "error", err)
		return openai.RealtimeCredential{}, fmt.Errorf("create realtime credential: %v: %w", err, coacherrors.ErrUpstreamModel)
	}
	return cred, nil
}

func (rs *realtimeService) ExchangeSDP(ctx context.Context, credential, offerSDP string) (string, error) {
	if _, err := requester(ctx); err != nil {
		return "", err
	}
	if strings.TrimSpace(credential) == "" || strings.TrimSpace(offerSDP) == "" {
		return "", fmt.Errorf("credential and sdp offer required: %w", coacherrors.ErrInvalidArgument)
	}
	if rs.provider == nil {
		return "", fmt.Errorf("realtime provider not configured: %w", coacherrors.ErrUpstreamModel)
	}
	answer, err := rs.provider.ExchangeSDP(ctx, credential, offerSDP)
	if err != nil {
		return "", fmt.Errorf("sdp exchange: %v: %w", err, coacherrors.ErrUpstreamModel)
	}
	return answer, nil
}
