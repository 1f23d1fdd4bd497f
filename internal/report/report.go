// Package report shapes retrospective data into a prompt for the text
// generation service and renders the resulting markdown.
package report

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/scrumkit/scrumkit/internal/models"
)

// Tones.
const (
	ToneFormal   = "formal"
	ToneInformal = "informal"
)

// Default configuration used when a request omits it.
const (
	DefaultTone     = ToneInformal
	DefaultLanguage = "nl"
)

// ErrInvalidConfig is returned for a report configuration that cannot be used.
var ErrInvalidConfig = errors.New("invalid report config")

// Config controls the style of a generated report.
type Config struct {
	Tone               string   `json:"tone"`
	Language           string   `json:"language"`
	FocusAreas         []string `json:"focusAreas,omitempty"`
	CustomInstructions string   `json:"customInstructions,omitempty"`
}

// Normalize fills in defaults and validates c.
func (c *Config) Normalize() error {
	c.Tone = strings.ToLower(strings.TrimSpace(c.Tone))
	c.Language = strings.ToLower(strings.TrimSpace(c.Language))
	if c.Tone == "" {
		c.Tone = DefaultTone
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.Tone != ToneFormal && c.Tone != ToneInformal {
		return fmt.Errorf("%w: tone %q must be formal or informal", ErrInvalidConfig, c.Tone)
	}
	focus := c.FocusAreas[:0:0]
	for _, f := range c.FocusAreas {
		if f = strings.TrimSpace(f); f != "" {
			focus = append(focus, f)
		}
	}
	c.FocusAreas = focus
	c.CustomInstructions = strings.TrimSpace(c.CustomInstructions)
	return nil
}

// Item is one card as seen by the report.
type Item struct {
	Category        string
	Content         string
	VoteCount       int
	DiscussionNotes string
	AuthorName      string
}

// Action is one committed action item as seen by the report.
type Action struct {
	Description  string
	AssigneeName string
	Priority     string
	Status       string
	DueDate      *time.Time
}

// Data is everything a report is generated from.
type Data struct {
	SessionName string
	SprintName  string
	Items       []Item
	ActionItems []Action
}

// Group is the items of one category, most voted first.
type Group struct {
	Category string
	Items    []Item
}

// FromModels builds report data from stored rows. Items are expected to be
// redacted already.
func FromModels(sess *models.Session, items []models.ItemWithVotes, actions []models.ActionItem) Data {
	d := Data{SessionName: sess.Name}
	if sess.SprintName != nil {
		d.SprintName = *sess.SprintName
	}
	for _, it := range items {
		d.Items = append(d.Items, Item{
			Category:        it.Category,
			Content:         it.Content,
			VoteCount:       it.VoteCount,
			DiscussionNotes: deref(it.DiscussionNotes),
			AuthorName:      deref(it.AuthorName),
		})
	}
	for _, a := range actions {
		d.ActionItems = append(d.ActionItems, Action{
			Description:  a.Description,
			AssigneeName: deref(a.AssigneeName),
			Priority:     a.Priority,
			Status:       a.Status,
			DueDate:      a.DueDate,
		})
	}
	return d
}

// GroupItems splits items by category in board order and sorts each group by
// vote count, descending. Ties keep their input order. Every category is
// present in the result, possibly empty.
func GroupItems(items []Item) []Group {
	groups := make([]Group, len(models.Categories))
	for i, cat := range models.Categories {
		groups[i].Category = cat
	}
	for _, it := range items {
		i := slices.Index(models.Categories, it.Category)
		if i < 0 {
			continue
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	for i := range groups {
		g := groups[i].Items
		sort.SliceStable(g, func(a, b int) bool {
			return g[a].VoteCount > g[b].VoteCount
		})
	}
	return groups
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
