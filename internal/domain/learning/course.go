package learning

import (
	"time"

	"github.com/google/uuid"
)

// Course and CourseChapter are owned by the catalog service. The coach only reads them.
type Course struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"type:text;not null" json:"title"`
	Level       string    `gorm:"type:text" json:"level"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Course) TableName() string { return "course" }

type CourseChapter struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	Title     string    `gorm:"type:text;not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CourseChapter) TableName() string { return "course_chapter" }
