package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-coach/internal/data/repos/coaching"
	"github.com/yungbote/neurobridge-coach/internal/data/repos/learning"
	"github.com/yungbote/neurobridge-coach/internal/data/repos/user"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

type UserRepo = user.UserRepo

type SessionRepo = coaching.SessionRepo
type ReportRepo = coaching.ReportRepo
type FeedbackRepo = coaching.FeedbackRepo
type MemoryRepo = coaching.MemoryRepo
type ScoredMemory = coaching.ScoredMemory

type LearningProfileRepo = learning.LearningProfileRepo
type CourseProfileRepo = learning.CourseProfileRepo
type CourseRepo = learning.CourseRepo

var ErrActiveExists = coaching.ErrActiveExists

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return coaching.NewSessionRepo(db, baseLog)
}
func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
	return coaching.NewReportRepo(db, baseLog)
}
func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	return coaching.NewFeedbackRepo(db, baseLog)
}
func NewMemoryRepo(db *gorm.DB, baseLog *logger.Logger) MemoryRepo {
	return coaching.NewMemoryRepo(db, baseLog)
}

func NewLearningProfileRepo(db *gorm.DB, baseLog *logger.Logger) LearningProfileRepo {
	return learning.NewLearningProfileRepo(db, baseLog)
}
func NewCourseProfileRepo(db *gorm.DB, baseLog *logger.Logger) CourseProfileRepo {
	return learning.NewCourseProfileRepo(db, baseLog)
}
func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return learning.NewCourseRepo(db, baseLog)
}
