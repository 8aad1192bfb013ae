package learning

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

type LearningProfileRepo interface {
	Get(dbc dbctx.Context, learnerID uuid.UUID) (*types.UserLearningProfile, error)
	// GetOrCreate returns the learner's profile, inserting defaults on first access.
	GetOrCreate(dbc dbctx.Context, learnerID uuid.UUID) (*types.UserLearningProfile, error)
	Save(dbc dbctx.Context, p *types.UserLearningProfile) error
}

type CourseProfileRepo interface {
	Get(dbc dbctx.Context, learnerID, courseID uuid.UUID) (*types.CourseUserProfile, error)
	GetOrCreate(dbc dbctx.Context, learnerID, courseID uuid.UUID) (*types.CourseUserProfile, error)
	ListByLearner(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.CourseUserProfile, error)
	Save(dbc dbctx.Context, p *types.CourseUserProfile) error
}

type learningProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearningProfileRepo(db *gorm.DB, baseLog *logger.Logger) LearningProfileRepo {
	repoLog := baseLog.With("repo", "LearningProfileRepo")
	return &learningProfileRepo{db: db, log: repoLog}
}

func (r *learningProfileRepo) Get(dbc dbctx.Context, learnerID uuid.UUID) (*types.UserLearningProfile, error) {
	var p types.UserLearningProfile
	err := dbc.DB(r.db).Where("learner_id = ?", learnerID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("learning profile for %s: %w", learnerID, coacherrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *learningProfileRepo) GetOrCreate(dbc dbctx.Context, learnerID uuid.UUID) (*types.UserLearningProfile, error) {
	fresh := types.NewUserLearningProfile(learnerID, time.Now().UTC())
	if err := dbc.DB(r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "learner_id"}}, DoNothing: true}).
		Create(fresh).Error; err != nil {
		return nil, err
	}
	return r.Get(dbc, learnerID)
}

func (r *learningProfileRepo) Save(dbc dbctx.Context, p *types.UserLearningProfile) error {
	if p == nil || p.ID == uuid.Nil {
		return fmt.Errorf("learning profile: %w", coacherrors.ErrInvalidArgument)
	}
	return dbc.DB(r.db).Save(p).Error
}

type courseProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseProfileRepo(db *gorm.DB, baseLog *logger.Logger) CourseProfileRepo {
	repoLog := baseLog.With("repo", "CourseProfileRepo")
	return &courseProfileRepo{db: db, log: repoLog}
}

func (r *courseProfileRepo) Get(dbc dbctx.Context, learnerID, courseID uuid.UUID) (*types.CourseUserProfile, error) {
	var p types.CourseUserProfile
	err := dbc.DB(r.db).Where("learner_id = ? AND course_id = ?", learnerID, courseID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("course profile for %s/%s: %w", learnerID, courseID, coacherrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *courseProfileRepo) GetOrCreate(dbc dbctx.Context, learnerID, courseID uuid.UUID) (*types.CourseUserProfile, error) {
	fresh := types.NewCourseUserProfile(learnerID, courseID, time.Now().UTC())
	if err := dbc.DB(r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "learner_id"}, {Name: "course_id"}}, DoNothing: true}).
		Create(fresh).Error; err != nil {
		return nil, err
	}
	return r.Get(dbc, learnerID, courseID)
}

func (r *courseProfileRepo) ListByLearner(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.CourseUserProfile, error) {
	var rows []*types.CourseUserProfile
	if err := dbc.DB(r.db).Where("learner_id = ?", learnerID).Order("last_updated DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *courseProfileRepo) Save(dbc dbctx.Context, p *types.CourseUserProfile) error {
	if p == nil || p.ID == uuid.Nil {
		return fmt.Errorf("course profile: %w", coacherrors.ErrInvalidArgument)
	}
	return dbc.DB(r.db).Save(p).Error
}
