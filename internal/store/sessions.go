package store

import (
	"context"
	"fmt"
	"time"

	"github.com/scrumkit/scrumkit/internal/models"
	"gorm.io/gorm"
)

// GetSession returns the session with the given id.
func (s *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var sess models.Session
	if err := s.conn(ctx).Where("id = ?", id).First(&sess).Error; err != nil {
		return nil, notFound(err, "session %s", id)
	}
	return &sess, nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	if err := s.conn(ctx).Order("created_at DESC, id ASC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	return sessions, nil
}

// CreateSession inserts sess, assigning its ID.
func (s *Store) CreateSession(ctx context.Context, sess *models.Session) error {
	sess.ID = newID()
	if err := s.conn(ctx).Create(sess).Error; err != nil {
		return fmt.Errorf("store: create session: %w", err)
	}
	return nil
}

// UpdateSession applies column updates to a session and returns the result.
func (s *Store) UpdateSession(ctx context.Context, id string, updates map[string]any) (*models.Session, error) {
	if _, err := s.GetSession(ctx, id); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.conn(ctx).Model(&models.Session{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("store: update session %s: %w", id, err)
		}
	}
	return s.GetSession(ctx, id)
}

// DeleteSession removes a session together with its items, votes, action
// items and report.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var sess models.Session
		if err := tx.Where("id = ?", id).First(&sess).Error; err != nil {
			return notFound(err, "session %s", id)
		}
		itemIDs := tx.Model(&models.Item{}).Select("id").Where("session_id = ?", id)
		if err := tx.Where("item_id IN (?)", itemIDs).Delete(&models.Vote{}).Error; err != nil {
			return fmt.Errorf("store: delete votes of session %s: %w", id, err)
		}
		if err := tx.Where("session_id = ?", id).Delete(&models.ActionItem{}).Error; err != nil {
			return fmt.Errorf("store: delete action items of session %s: %w", id, err)
		}
		if err := tx.Where("session_id = ?", id).Delete(&models.Item{}).Error; err != nil {
			return fmt.Errorf("store: delete items of session %s: %w", id, err)
		}
		if err := tx.Where("session_id = ?", id).Delete(&models.Report{}).Error; err != nil {
			return fmt.Errorf("store: delete report of session %s: %w", id, err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.Session{}).Error; err != nil {
			return fmt.Errorf("store: delete session %s: %w", id, err)
		}
		return nil
	})
}

// ListCompletedBefore returns completed sessions whose completion time is
// older than cutoff.
func (s *Store) ListCompletedBefore(ctx context.Context, cutoff time.Time) ([]models.Session, error) {
	var sessions []models.Session
	if err := s.conn(ctx).
		Where("status = ? AND completed_at IS NOT NULL AND completed_at < ?", models.PhaseCompleted, cutoff).
		Order("completed_at ASC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("store: list completed sessions: %w", err)
	}
	return sessions, nil
}
