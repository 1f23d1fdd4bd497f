package store

import (
	"context"
	"fmt"

	"github.com/scrumkit/scrumkit/internal/models"
	"gorm.io/gorm"
)

// ListItems returns a session's items in creation order, each with its vote
// count. Author names of anonymous items are cleared.
func (s *Store) ListItems(ctx context.Context, sessionID string) ([]models.ItemWithVotes, error) {
	var items []models.Item
	if err := s.conn(ctx).Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("store: list items of session %s: %w", sessionID, err)
	}

	counts, err := s.voteCounts(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out := make([]models.ItemWithVotes, len(items))
	for i, it := range items {
		it.Redact()
		out[i] = models.ItemWithVotes{Item: it, VoteCount: counts[it.ID]}
	}
	return out, nil
}

// voteCounts returns vote counts keyed by item id for one session.
func (s *Store) voteCounts(ctx context.Context, sessionID string) (map[string]int, error) {
	type row struct {
		ItemID    string
		VoteCount int
	}
	var rows []row
	if err := s.conn(ctx).Model(&models.Vote{}).
		Select("votes.item_id AS item_id, count(*) AS vote_count").
		Joins("JOIN items ON items.id = votes.item_id").
		Where("items.session_id = ?", sessionID).
		Group("votes.item_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: count votes of session %s: %w", sessionID, err)
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.ItemID] = r.VoteCount
	}
	return counts, nil
}

// GetItem returns an item that belongs to the given session.
func (s *Store) GetItem(ctx context.Context, sessionID, itemID string) (*models.Item, error) {
	var it models.Item
	if err := s.conn(ctx).Where("id = ? AND session_id = ?", itemID, sessionID).First(&it).Error; err != nil {
		return nil, notFound(err, "item %s in session %s", itemID, sessionID)
	}
	it.Redact()
	return &it, nil
}

// CreateItem inserts it, assigning its ID.
func (s *Store) CreateItem(ctx context.Context, it *models.Item) error {
	it.ID = newID()
	if err := s.conn(ctx).Create(it).Error; err != nil {
		return fmt.Errorf("store: create item: %w", err)
	}
	return nil
}

// UpdateItem applies column updates to an item of a session.
func (s *Store) UpdateItem(ctx context.Context, sessionID, itemID string, updates map[string]any) (*models.Item, error) {
	if _, err := s.GetItem(ctx, sessionID, itemID); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.conn(ctx).Model(&models.Item{}).
			Where("id = ? AND session_id = ?", itemID, sessionID).
			Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("store: update item %s: %w", itemID, err)
		}
	}
	return s.GetItem(ctx, sessionID, itemID)
}

// DeleteItem removes an item and its votes. Action items that referenced it
// keep existing with their source cleared.
func (s *Store) DeleteItem(ctx context.Context, sessionID, itemID string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var it models.Item
		if err := tx.Where("id = ? AND session_id = ?", itemID, sessionID).First(&it).Error; err != nil {
			return notFound(err, "item %s in session %s", itemID, sessionID)
		}
		if err := tx.Where("item_id = ?", itemID).Delete(&models.Vote{}).Error; err != nil {
			return fmt.Errorf("store: delete votes of item %s: %w", itemID, err)
		}
		if err := tx.Model(&models.ActionItem{}).Where("source_item_id = ?", itemID).
			Update("source_item_id", nil).Error; err != nil {
			return fmt.Errorf("store: unlink action items of item %s: %w", itemID, err)
		}
		if err := tx.Where("id = ?", itemID).Delete(&models.Item{}).Error; err != nil {
			return fmt.Errorf("store: delete item %s: %w", itemID, err)
		}
		return nil
	})
}
