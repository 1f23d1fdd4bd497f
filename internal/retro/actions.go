package retro

import (
	"context"
	"strings"
	"time"

	"github.com/scrumkit/scrumkit/internal/events"
	"github.com/scrumkit/scrumkit/internal/models"
)

// NewAction holds the fields for committing to an action item. DueDate is
// RFC 3339 or YYYY-MM-DD.
type NewAction struct {
	Description  string
	SourceItemID *string
	AssigneeID   *string
	AssigneeName *string
	Priority     string
	Status       string
	DueDate      *string
}

// ActionPatch is a partial action item update. Nil fields are left
// unchanged; an empty DueDate clears it.
type ActionPatch struct {
	Description  *string
	AssigneeID   *string
	AssigneeName *string
	Priority     *string
	Status       *string
	DueDate      *string
}

// ParseDueDate accepts RFC 3339 timestamps and plain dates. Blank input
// yields nil.
func ParseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, invalid("dueDate %q must be RFC 3339 or YYYY-MM-DD", raw)
}

func validPriority(p string) error {
	if !models.ValidPriority(p) {
		return invalid("priority must be one of %s", strings.Join(models.Priorities, ", "))
	}
	return nil
}

func validActionStatus(st string) error {
	if !models.ValidActionStatus(st) {
		return invalid("status must be one of %s", strings.Join(models.ActionStatuses, ", "))
	}
	return nil
}

// ListActionItems returns a session's action items.
func (s *Service) ListActionItems(ctx context.Context, sessionID string) ([]models.ActionItem, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListActionItems(ctx, sessionID)
}

// CreateActionItem validates and stores an action item, then publishes
// action:added. A source item, when given, must belong to the session.
func (s *Service) CreateActionItem(ctx context.Context, sessionID string, in NewAction) (*models.ActionItem, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, invalid("description is required")
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if err := validPriority(in.Priority); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = models.ActionOpen
	}
	if err := validActionStatus(in.Status); err != nil {
		return nil, err
	}
	var due *time.Time
	if in.DueDate != nil {
		var err error
		if due, err = ParseDueDate(*in.DueDate); err != nil {
			return nil, err
		}
	}
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	source := trimPtr(in.SourceItemID)
	if source != nil {
		if _, err := s.store.GetItem(ctx, sessionID, *source); err != nil {
			return nil, classify(err, "source item")
		}
	}

	a := &models.ActionItem{
		SessionID:    sessionID,
		SourceItemID: source,
		Description:  desc,
		AssigneeID:   trimPtr(in.AssigneeID),
		AssigneeName: trimPtr(in.AssigneeName),
		Priority:     in.Priority,
		Status:       in.Status,
		DueDate:      due,
	}
	if err := s.store.CreateActionItem(ctx, a); err != nil {
		return nil, err
	}
	s.publish(sessionID, events.TypeActionAdded, a)
	return a, nil
}

// UpdateActionItem applies p and publishes action:updated.
func (s *Service) UpdateActionItem(ctx context.Context, sessionID, actionID string, p ActionPatch) (*models.ActionItem, error) {
	updates := map[string]any{}
	if p.Description != nil {
		desc := strings.TrimSpace(*p.Description)
		if desc == "" {
			return nil, invalid("description cannot be empty")
		}
		updates["description"] = desc
	}
	if p.AssigneeID != nil {
		updates["assignee_id"] = trimPtr(p.AssigneeID)
	}
	if p.AssigneeName != nil {
		updates["assignee_name"] = trimPtr(p.AssigneeName)
	}
	if p.Priority != nil {
		if err := validPriority(*p.Priority); err != nil {
			return nil, err
		}
		updates["priority"] = *p.Priority
	}
	if p.Status != nil {
		if err := validActionStatus(*p.Status); err != nil {
			return nil, err
		}
		updates["status"] = *p.Status
	}
	if p.DueDate != nil {
		due, err := ParseDueDate(*p.DueDate)
		if err != nil {
			return nil, err
		}
		updates["due_date"] = due
	}

	a, err := s.store.UpdateActionItem(ctx, sessionID, actionID, updates)
	if err != nil {
		return nil, classify(err, "action item")
	}
	if len(updates) > 0 {
		s.publish(sessionID, events.TypeActionUpdated, a)
	}
	return a, nil
}

// DeleteActionItem removes an action item and publishes action:deleted.
func (s *Service) DeleteActionItem(ctx context.Context, sessionID, actionID string) error {
	if err := s.store.DeleteActionItem(ctx, sessionID, actionID); err != nil {
		return classify(err, "action item")
	}
	s.publish(sessionID, events.TypeActionDeleted, events.DeletedPayload{ID: actionID, SessionID: sessionID})
	return nil
}
