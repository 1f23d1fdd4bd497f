package models

import "time"

// Action item priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Action item statuses.
const (
	ActionOpen       = "open"
	ActionInProgress = "in_progress"
	ActionDone       = "done"
)

var (
	Priorities     = []string{PriorityLow, PriorityMedium, PriorityHigh}
	ActionStatuses = []string{ActionOpen, ActionInProgress, ActionDone}
)

// ActionItem is a follow-up committed to during a session.
type ActionItem struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	SessionID    string     `gorm:"size:36;not null;index" json:"sessionId"`
	SourceItemID *string    `gorm:"size:36;index" json:"sourceItemId"`
	Description  string     `gorm:"type:text;not null" json:"description"`
	AssigneeID   *string    `gorm:"size:255" json:"assigneeId"`
	AssigneeName *string    `gorm:"size:255" json:"assigneeName"`
	Priority     string     `gorm:"size:8;default:medium" json:"priority"`
	Status       string     `gorm:"size:16;default:open;index" json:"status"`
	DueDate      *time.Time `json:"dueDate"`
	CreatedAt    time.Time  `json:"createdAt"`
}
