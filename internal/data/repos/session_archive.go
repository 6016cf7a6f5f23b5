package repos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	dbx "github.com/mouaalim/mouaalim-backend/internal/data/db"
	"github.com/mouaalim/mouaalim-backend/internal/domain"
	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
)

// SessionArchive persists finished sessions and their graded questions.
type SessionArchive struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionArchive(db *gorm.DB, log *logger.Logger) *SessionArchive {
	return &SessionArchive{db: db, log: log.With("service", "SessionArchive")}
}

// Archive writes the session record plus one QuizAttempt row per graded
// question, in one transaction.
func (r *SessionArchive) Archive(ctx context.Context, sessionID uuid.UUID, report domain.SessionReport, quizLog []domain.QuizRecord, reportPath string) error {
	steps, err := json.Marshal(report.Steps)
	if err != nil {
		return fmt.Errorf("marshal report steps: %w", err)
	}

	record := dbx.SessionRecord{
		ID:            sessionID,
		Branch:        report.Branch,
		Topic:         report.Topic,
		Lesson:        report.Lesson,
		Summary:       report.Summary,
		Steps:         datatypes.JSON(steps),
		QuizRating:    report.QuizRating,
		SessionPassed: report.SessionPassed,
		Feedback:      report.Feedback,
		Encouragement: report.Encouragement,
		ReportPath:    reportPath,
	}

	attempts := make([]dbx.QuizAttempt, 0, len(quizLog))
	for _, q := range quizLog {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("marshal question options: %w", err)
		}
		attempts = append(attempts, dbx.QuizAttempt{
			ID:        uuid.New(),
			SessionID: sessionID,
			Question:  q.Q,
			Type:      q.Type,
			Options:   datatypes.JSON(options),
			Child:     q.Child,
			Correct:   q.Correct,
			IsCorrect: q.IsCorrect,
		})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("archive session record: %w", err)
		}
		if len(attempts) > 0 {
			if err := tx.Create(&attempts).Error; err != nil {
				return fmt.Errorf("archive quiz attempts: %w", err)
			}
		}
		return nil
	})
}

// Recent returns the latest archived sessions, newest first.
func (r *SessionArchive) Recent(ctx context.Context, limit int) ([]dbx.SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []dbx.SessionRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list archived sessions: %w", err)
	}
	return records, nil
}
