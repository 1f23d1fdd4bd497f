package notify

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// Slack posts to an incoming webhook.
type Slack struct {
	url  string
	post func(ctx context.Context, url string, msg *slackapi.WebhookMessage) error
}

// NewSlack returns a sender for the given incoming webhook URL.
func NewSlack(webhookURL string) *Slack {
	return &Slack{url: webhookURL, post: slackapi.PostWebhookContext}
}

func (s *Slack) Name() string { return "slack" }

// Send posts msg as a single mrkdwn text block.
func (s *Slack) Send(ctx context.Context, msg Message) error {
	text := fmt.Sprintf("*%s*", msg.Title)
	if msg.Link != "" {
		text += fmt.Sprintf("\n<%s|Open retrospective>", msg.Link)
	}
	text += "\n\n" + msg.Body

	if err := s.post(ctx, s.url, &slackapi.WebhookMessage{Text: text}); err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	return nil
}
