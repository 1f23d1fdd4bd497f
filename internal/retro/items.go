package retro

import (
	"context"
	"strings"

	"github.com/scrumkit/scrumkit/internal/events"
	"github.com/scrumkit/scrumkit/internal/models"
)

// NewItem holds the fields for submitting a card.
type NewItem struct {
	Category    string
	Content     string
	AuthorID    *string
	AuthorName  *string
	IsAnonymous bool
}

// ItemPatch is a partial item update. Nil fields are left unchanged.
type ItemPatch struct {
	Content         *string
	DiscussionNotes *string
	IsDiscussed     *bool
}

func validContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", invalid("content is required")
	}
	if len([]rune(content)) > models.MaxItemContent {
		return "", invalid("content must be %d characters or less", models.MaxItemContent)
	}
	return content, nil
}

// ListItems returns a session's items with vote counts.
func (s *Service) ListItems(ctx context.Context, sessionID string) ([]models.ItemWithVotes, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListItems(ctx, sessionID)
}

// CreateItem validates and stores a card, then publishes item:added. The
// author name of an anonymous card is discarded before it is stored.
func (s *Service) CreateItem(ctx context.Context, sessionID string, in NewItem) (*models.ItemWithVotes, error) {
	if !models.ValidCategory(in.Category) {
		return nil, invalid("category must be one of %s", strings.Join(models.Categories, ", "))
	}
	content, err := validContent(in.Content)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	it := &models.Item{
		SessionID:   sessionID,
		Category:    in.Category,
		Content:     content,
		AuthorID:    trimPtr(in.AuthorID),
		AuthorName:  trimPtr(in.AuthorName),
		IsAnonymous: in.IsAnonymous,
	}
	it.Redact()
	if err := s.store.CreateItem(ctx, it); err != nil {
		return nil, err
	}

	out := &models.ItemWithVotes{Item: *it}
	s.publish(sessionID, events.TypeItemAdded, out)
	return out, nil
}

// UpdateItem applies p and publishes item:updated.
func (s *Service) UpdateItem(ctx context.Context, sessionID, itemID string, p ItemPatch) (*models.Item, error) {
	updates := map[string]any{}
	if p.Content != nil {
		content, err := validContent(*p.Content)
		if err != nil {
			return nil, err
		}
		updates["content"] = content
	}
	if p.DiscussionNotes != nil {
		updates["discussion_notes"] = trimPtr(p.DiscussionNotes)
	}
	if p.IsDiscussed != nil {
		updates["is_discussed"] = *p.IsDiscussed
	}

	it, err := s.store.UpdateItem(ctx, sessionID, itemID, updates)
	if err != nil {
		return nil, classify(err, "item")
	}
	if len(updates) > 0 {
		s.publish(sessionID, events.TypeItemUpdated, it)
	}
	return it, nil
}

// DeleteItem removes a card with its votes and publishes item:deleted.
func (s *Service) DeleteItem(ctx context.Context, sessionID, itemID string) error {
	if err := s.store.DeleteItem(ctx, sessionID, itemID); err != nil {
		return classify(err, "item")
	}
	s.publish(sessionID, events.TypeItemDeleted, events.DeletedPayload{ID: itemID, SessionID: sessionID})
	return nil
}
