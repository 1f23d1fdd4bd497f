package models

import "time"

// Session phases, in nominal order.
const (
	PhaseInput      = "input"
	PhaseVoting     = "voting"
	PhaseDiscussion = "discussion"
	PhaseCompleted  = "completed"
)

// Phases lists the valid session phases in nominal order.
var Phases = []string{PhaseInput, PhaseVoting, PhaseDiscussion, PhaseCompleted}

// DefaultVotesPerUser is the vote budget given to each participant when a
// session is created without one.
const DefaultVotesPerUser = 5

// Session is one retrospective instance.
type Session struct {
	ID                     string     `gorm:"primaryKey;size:36" json:"id"`
	Name                   string     `gorm:"size:255;not null" json:"name"`
	SprintName             *string    `gorm:"size:255" json:"sprintName"`
	TeamID                 *string    `gorm:"size:255" json:"teamId"`
	Status                 string     `gorm:"size:16;default:input;index" json:"status"`
	VotesPerUser           int        `gorm:"default:5" json:"votesPerUser"`
	HideVotesUntilComplete bool       `gorm:"default:false" json:"hideVotesUntilComplete"`
	CreatedAt              time.Time  `json:"createdAt"`
	CompletedAt            *time.Time `gorm:"index" json:"completedAt"`
}

// Report is the generated summary of a session. At most one per session.
type Report struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID   string    `gorm:"size:36;not null;uniqueIndex" json:"sessionId"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	GeneratedAt time.Time `json:"generatedAt"`
	GeneratedBy *string   `gorm:"size:255" json:"generatedBy"`
}
