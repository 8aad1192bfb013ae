package db

import (
	"fmt"

	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.AllModels()...)
}

// EnsureCoachingIndexes creates indexes gorm tags cannot express.
func EnsureCoachingIndexes(db *gorm.DB) error {
	// At most one active session per scope. Partial indexes work on postgres and sqlite.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_coaching_session_active_scope
		ON coaching_session (learner_id, course_id, chapter_id)
		WHERE status = 'active';
	`).Error; err != nil {
		return fmt.Errorf("create idx_coaching_session_active_scope: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_coaching_session_learner_start
		ON coaching_session (learner_id, start_time DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_coaching_session_learner_start: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_learner_memory_learner_created
		ON learner_memory (learner_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_learner_memory_learner_created: %w", err)
	}

	if !IsPostgres(db) {
		return nil
	}

	// Lexical fallback retrieval.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_learner_memory_fts
		ON learner_memory
		USING GIN (to_tsvector('english', enriched_text || ' ' || raw_text));
	`).Error; err != nil {
		return fmt.Errorf("create idx_learner_memory_fts: %w", err)
	}
	return nil
}
