package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-coach/internal/data/repos"
	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

// ProfileSnapshot is what the coach knows about a learner going into a session.
type ProfileSnapshot struct {
	Learner *types.UserLearningProfile `json:"learner"`
	Course  *types.CourseUserProfile   `json:"course,omitempty"`
}

// PromptText renders the snapshot as a few compact lines for model instructions.
func (p *ProfileSnapshot) PromptText() string {
	if p == nil || p.Learner == nil {
		return "(no profile yet)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Analytical ability %d/10, critical thinking %d/10, problem solving %d/10.\n",
		p.Learner.AnalyticalAbility, p.Learner.CriticalThinking, p.Learner.ProblemSolving)
	writeJoined(&b, "General strengths", types.DecodeJSON[[]string](p.Learner.GeneralStrengths))
	writeJoined(&b, "General weaknesses", types.DecodeJSON[[]string](p.Learner.GeneralWeaknesses))
	if p.Course != nil {
		fmt.Fprintf(&b, "Course comprehension %d/10, engagement %d/10.\n", p.Course.ComprehensionLevel, p.Course.EngagementLevel)
		writeJoined(&b, "Mastered concepts", conceptNames(p.Course.MasteredConcepts))
		writeJoined(&b, "Misunderstood concepts", conceptNames(p.Course.MisunderstoodConcepts))
	}
	return strings.TrimSpace(b.String())
}

func writeJoined(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(strings.Join(items, "; "))
	b.WriteString("\n")
}

func conceptNames(raw []byte) []string {
	var out []string
	for _, c := range types.DecodeJSON[[]types.ConceptMastery](raw) {
		out = append(out, c.ConceptName)
	}
	return out
}

type ProfileService interface {
	LearnerProfile(ctx context.Context, learnerID uuid.UUID) (*types.UserLearningProfile, error)
	CourseProfile(ctx context.Context, learnerID, courseID uuid.UUID) (*types.CourseUserProfile, error)
	CourseProfiles(ctx context.Context, learnerID uuid.UUID) ([]*types.CourseUserProfile, error)
	// Snapshot loads both profiles, creating defaults for a first-time learner.
	Snapshot(ctx context.Context, learnerID, courseID uuid.UUID) (*ProfileSnapshot, error)
}

type profileService struct {
	db             *gorm.DB
	log            *logger.Logger
	learnerProfile repos.LearningProfileRepo
	courseProfile  repos.CourseProfileRepo
}

func NewProfileService(db *gorm.DB, log *logger.Logger, learnerProfile repos.LearningProfileRepo, courseProfile repos.CourseProfileRepo) ProfileService {
	return &profileService{
		db:             db,
		log:            log.With("service", "ProfileService"),
		learnerProfile: learnerProfile,
		courseProfile:  courseProfile,
	}
}

func (ps *profileService) LearnerProfile(ctx context.Context, learnerID uuid.UUID) (*types.UserLearningProfile, error) {
	if err := authorize(ctx, learnerID); err != nil {
		return nil, err
	}
	return ps.learnerProfile.GetOrCreate(dbctx.Context{Ctx: ctx}, learnerID)
}

func (ps *profileService) CourseProfile(ctx context.Context, learnerID, courseID uuid.UUID) (*types.CourseUserProfile, error) {
	if err := authorize(ctx, learnerID); err != nil {
		return nil, err
	}
	return ps.courseProfile.GetOrCreate(dbctx.Context{Ctx: ctx}, learnerID, courseID)
}

func (ps *profileService) CourseProfiles(ctx context.Context, learnerID uuid.UUID) ([]*types.CourseUserProfile, error) {
	if err := authorize(ctx, learnerID); err != nil {
		return nil, err
	}
	return ps.courseProfile.ListByLearner(dbctx.Context{Ctx: ctx}, learnerID)
}

func (ps *profileService) Snapshot(ctx context.Context, learnerID, courseID uuid.UUID) (*ProfileSnapshot, error) {
	lp, err := ps.LearnerProfile(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	snap := &ProfileSnapshot{Learner: lp}
	if courseID == uuid.Nil {
		return snap, nil
	}
	cp, err := ps.courseProfile.GetOrCreate(dbctx.Context{Ctx: ctx}, learnerID, courseID)
	if err != nil {
		return nil, err
	}
	snap.Course = cp
	return snap, nil
}
