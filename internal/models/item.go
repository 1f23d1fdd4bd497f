package models

import "time"

// Item categories.
const (
	CategoryWentWell   = "went_well"
	CategoryToImprove  = "to_improve"
	CategoryActionItem = "action_item"
)

// Categories lists the item categories in board order.
var Categories = []string{CategoryWentWell, CategoryToImprove, CategoryActionItem}

// MaxItemContent is the upper bound on item content length, in characters.
const MaxItemContent = 500

// Item is a single card submitted to a session.
type Item struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID       string    `gorm:"size:36;not null;index" json:"sessionId"`
	Category        string    `gorm:"size:16;not null" json:"category"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	AuthorID        *string   `gorm:"size:255" json:"authorId"`
	AuthorName      *string   `gorm:"size:255" json:"authorName"`
	IsAnonymous     bool      `gorm:"default:false" json:"isAnonymous"`
	DiscussionNotes *string   `gorm:"type:text" json:"discussionNotes"`
	IsDiscussed     bool      `gorm:"default:false" json:"isDiscussed"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Redact clears the author name of anonymous items.
func (i *Item) Redact() {
	if i.IsAnonymous {
		i.AuthorName = nil
	}
}

// ItemWithVotes is an item together with its computed vote count.
type ItemWithVotes struct {
	Item
	VoteCount int `json:"voteCount"`
}

// Vote is one vote cast by a participant on an item. The same participant
// may hold several votes on the same item.
type Vote struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	ItemID        string    `gorm:"size:36;not null;index" json:"itemId"`
	ParticipantID string    `gorm:"size:255;not null;index" json:"participantId"`
	CreatedAt     time.Time `json:"createdAt"`
}
