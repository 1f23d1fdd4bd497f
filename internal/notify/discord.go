package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Discord limits.
const (
	maxContent          = 2000
	maxEmbedDescription = 4096
	maxEmbedTitle       = 256
)

// webhookExecutor abstracts the discordgo.Session method we use, enabling
// test mocks.
type webhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts to a channel webhook.
type Discord struct {
	id    string
	token string
	sess  webhookExecutor
}

// NewDiscord returns a sender for a webhook URL of the form
// https://discord.com/api/webhooks/{id}/{token}.
func NewDiscord(webhookURL string) (*Discord, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	// Webhook execution needs no bot token.
	dg, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	return &Discord{id: id, token: token, sess: dg}, nil
}

func parseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("discord: parse webhook url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("discord: webhook url %q must end in /webhooks/{id}/{token}", raw)
}

func (d *Discord) Name() string { return "discord" }

// Send posts msg as one embed.
func (d *Discord) Send(ctx context.Context, msg Message) error {
	params := &discordgo.WebhookParams{
		Content: truncate(msg.Title, maxContent),
		Embeds: []*discordgo.MessageEmbed{{
			Title:       truncate(msg.Title, maxEmbedTitle),
			URL:         msg.Link,
			Description: truncate(msg.Body, maxEmbedDescription),
		}},
	}
	if _, err := d.sess.WebhookExecute(d.id, d.token, true, params, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: execute webhook: %w", err)
	}
	return nil
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
