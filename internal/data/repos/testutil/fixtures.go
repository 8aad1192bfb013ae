package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-coach/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string, roles ...string) *types.User {
	tb.Helper()
	now := time.Now().UTC()
	if roles == nil {
		roles = []string{}
	}
	u := &types.User{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: "Learner",
		Roles:       types.JSON(roles),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, title string) *types.Course {
	tb.Helper()
	now := time.Now().UTC()
	c := &types.Course{
		ID:          uuid.New(),
		Title:       title,
		Level:       "beginner",
		Description: "course description",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedChapter(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, title, content string) *types.CourseChapter {
	tb.Helper()
	now := time.Now().UTC()
	ch := &types.CourseChapter{
		ID:        uuid.New(),
		CourseID:  courseID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(ch).Error; err != nil {
		tb.Fatalf("seed chapter: %v", err)
	}
	return ch
}

// SeedSession inserts a session row directly, bypassing lifecycle checks.
func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, learnerID, courseID, chapterID uuid.UUID, status string, start time.Time) *types.CoachingSession {
	tb.Helper()
	s := &types.CoachingSession{
		ID:        uuid.New(),
		LearnerID: learnerID,
		CourseID:  courseID,
		ChapterID: chapterID,
		Status:    status,
		StartTime: start,
		CreatedAt: start,
		UpdatedAt: start,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

func SeedMemory(tb testing.TB, ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, text string, tags, contextTypes []string, vector []float32) *types.Memory {
	tb.Helper()
	if tags == nil {
		tags = []string{}
	}
	if contextTypes == nil {
		contextTypes = []string{}
	}
	if vector == nil {
		vector = []float32{}
	}
	m := &types.Memory{
		ID:           uuid.New(),
		LearnerID:    learnerID,
		RawText:      text,
		EnrichedText: text,
		Embedding:    types.JSON(vector),
		Categories:   datatypes.JSON([]byte("[]")),
		Tags:         types.JSON(tags),
		ContextType:  types.JSON(contextTypes),
		Importance:   5,
		CreatedAt:    time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed memory: %v", err)
	}
	return m
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
