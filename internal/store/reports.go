package store

import (
	"context"
	"fmt"
	"time"

	"github.com/scrumkit/scrumkit/internal/models"
	"gorm.io/gorm/clause"
)

// GetReport returns the current report of a session.
func (s *Store) GetReport(ctx context.Context, sessionID string) (*models.Report, error) {
	var r models.Report
	if err := s.conn(ctx).Where("session_id = ?", sessionID).First(&r).Error; err != nil {
		return nil, notFound(err, "report of session %s", sessionID)
	}
	return &r, nil
}

// UpsertReport stores content as the session's report, replacing any
// previous one.
func (s *Store) UpsertReport(ctx context.Context, sessionID, content string, generatedBy *string) (*models.Report, error) {
	r := models.Report{
		ID:          newID(),
		SessionID:   sessionID,
		Content:     content,
		GeneratedAt: time.Now(),
		GeneratedBy: generatedBy,
	}
	result := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "generated_at", "generated_by"}),
	}).Create(&r)
	if result.Error != nil {
		return nil, fmt.Errorf("store: upsert report of session %s: %w", sessionID, result.Error)
	}
	return s.GetReport(ctx, sessionID)
}
