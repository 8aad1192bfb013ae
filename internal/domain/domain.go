package domain

import (
	"gorm.io/datatypes"

	"github.com/yungbote/neurobridge-coach/internal/domain/coaching"
	"github.com/yungbote/neurobridge-coach/internal/domain/learning"
	"github.com/yungbote/neurobridge-coach/internal/domain/user"
)

const (
	SessionStatusActive    = coaching.SessionStatusActive
	SessionStatusCompleted = coaching.SessionStatusCompleted
	SessionStatusAnalyzed  = coaching.SessionStatusAnalyzed

	RoleUser      = coaching.RoleUser
	RoleAssistant = coaching.RoleAssistant
	RoleSystem    = coaching.RoleSystem

	ContextAcademic = coaching.ContextAcademic
	ContextPersonal = coaching.ContextPersonal

	FeedbackExplicit  = coaching.FeedbackExplicit
	FeedbackImplicit  = coaching.FeedbackImplicit
	SentimentPositive = coaching.SentimentPositive
	SentimentNeutral  = coaching.SentimentNeutral
	SentimentNegative = coaching.SentimentNegative

	RoleAdmin = user.RoleAdmin

	ScoreMin     = learning.ScoreMin
	ScoreMax     = learning.ScoreMax
	ScoreDefault = learning.ScoreDefault
)

type CoachingSession = coaching.CoachingSession
type SessionMessage = coaching.SessionMessage
type SessionInsight = coaching.SessionInsight
type SessionAnalysisReport = coaching.SessionAnalysisReport
type KeyObservation = coaching.KeyObservation
type ConceptAssessment = coaching.ConceptAssessment
type RecommendedAction = coaching.RecommendedAction
type Memory = coaching.Memory
type FeedbackTracking = coaching.FeedbackTracking

type UserLearningProfile = learning.UserLearningProfile
type CourseUserProfile = learning.CourseUserProfile
type ConceptMastery = learning.ConceptMastery
type LearningPatterns = learning.LearningPatterns
type Course = learning.Course
type CourseChapter = learning.CourseChapter

type User = user.User

var (
	NewUserLearningProfile = learning.NewUserLearningProfile
	NewCourseUserProfile   = learning.NewCourseUserProfile
	JSON                   = coaching.JSON
)

func DecodeJSON[T any](raw datatypes.JSON) T { return coaching.DecodeJSON[T](raw) }

// AllModels lists every table the coach owns or reads, in migration order.
func AllModels() []any {
	return []any{
		&User{},
		&Course{},
		&CourseChapter{},
		&CoachingSession{},
		&SessionMessage{},
		&SessionInsight{},
		&SessionAnalysisReport{},
		&UserLearningProfile{},
		&CourseUserProfile{},
		&Memory{},
		&FeedbackTracking{},
	}
}
