package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SessionRecord is the archived outcome of one finished tutoring session.
type SessionRecord struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Branch        string         `gorm:"index" json:"branch"`
	Topic         string         `gorm:"index" json:"topic"`
	Lesson        string         `json:"lesson"`
	Summary       string         `json:"summary"`
	Steps         datatypes.JSON `json:"steps"` // []string
	QuizRating    float64        `json:"quiz_rating"`
	SessionPassed bool           `json:"session_passed"`
	Feedback      string         `json:"feedback"`
	Encouragement string         `json:"encouragement"`
	ReportPath    string         `json:"report_path"`
	CreatedAt     time.Time      `json:"created_at"`
}

// QuizAttempt is one graded question inside an archived session.
type QuizAttempt struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"session_id"`
	Question  string         `json:"question"`
	Type      string         `json:"type"`
	Options   datatypes.JSON `json:"options,omitempty"` // []string
	Child     string         `json:"child"`
	Correct   string         `json:"correct"`
	IsCorrect bool           `json:"is_correct"`
	CreatedAt time.Time      `json:"created_at"`
}
