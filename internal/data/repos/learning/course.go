package learning

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
	coacherrors "github.com/yungbote/neurobridge-coach/internal/pkg/errors"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

// CourseRepo reads catalog rows owned by another service.
type CourseRepo interface {
	GetCourse(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error)
	// GetChapter fails with ErrNotFound unless the chapter belongs to courseID.
	GetChapter(dbc dbctx.Context, courseID, chapterID uuid.UUID) (*types.CourseChapter, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "CourseRepo")
	return &courseRepo{db: db, log: repoLog}
}

func (r *courseRepo) GetCourse(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error) {
	var c types.Course
	err := dbc.DB(r.db).Where("id = ?", courseID).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("course %s: %w", courseID, coacherrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *courseRepo) GetChapter(dbc dbctx.Context, courseID, chapterID uuid.UUID) (*types.CourseChapter, error) {
	var ch types.CourseChapter
	err := dbc.DB(r.db).Where("id = ? AND course_id = ?", chapterID, courseID).Take(&ch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("chapter %s: %w", chapterID, coacherrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}
