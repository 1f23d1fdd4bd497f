package store

import (
	"context"
	"fmt"

	"github.com/scrumkit/scrumkit/internal/models"
)

// ListActionItems returns a session's action items in creation order.
func (s *Store) ListActionItems(ctx context.Context, sessionID string) ([]models.ActionItem, error) {
	var items []models.ActionItem
	if err := s.conn(ctx).Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("store: list action items of session %s: %w", sessionID, err)
	}
	return items, nil
}

// GetActionItem returns an action item that belongs to the given session.
func (s *Store) GetActionItem(ctx context.Context, sessionID, actionID string) (*models.ActionItem, error) {
	var a models.ActionItem
	if err := s.conn(ctx).Where("id = ? AND session_id = ?", actionID, sessionID).First(&a).Error; err != nil {
		return nil, notFound(err, "action item %s in session %s", actionID, sessionID)
	}
	return &a, nil
}

// CreateActionItem inserts a, assigning its ID.
func (s *Store) CreateActionItem(ctx context.Context, a *models.ActionItem) error {
	a.ID = newID()
	if err := s.conn(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("store: create action item: %w", err)
	}
	return nil
}

// UpdateActionItem applies column updates to an action item of a session.
func (s *Store) UpdateActionItem(ctx context.Context, sessionID, actionID string, updates map[string]any) (*models.ActionItem, error) {
	if _, err := s.GetActionItem(ctx, sessionID, actionID); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.conn(ctx).Model(&models.ActionItem{}).
			Where("id = ? AND session_id = ?", actionID, sessionID).
			Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("store: update action item %s: %w", actionID, err)
		}
	}
	return s.GetActionItem(ctx, sessionID, actionID)
}

// DeleteActionItem removes an action item of a session.
func (s *Store) DeleteActionItem(ctx context.Context, sessionID, actionID string) error {
	res := s.conn(ctx).Where("id = ? AND session_id = ?", actionID, sessionID).Delete(&models.ActionItem{})
	if res.Error != nil {
		return fmt.Errorf("store: delete action item %s: %w", actionID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("store: action item %s in session %s: %w", actionID, sessionID, ErrNotFound)
	}
	return nil
}
