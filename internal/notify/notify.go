// Package notify posts generated reports to chat webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/scrumkit/scrumkit/internal/config"
	"golang.org/x/sync/errgroup"
)

// ErrNoTargets is returned when no webhook is configured.
var ErrNoTargets = errors.New("notify: no webhook targets configured")

// Message is a report announcement.
type Message struct {
	Title string
	Body  string // markdown
	Link  string
}

// Sender delivers a message to one chat target.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Result is the outcome of one delivery.
type Result struct {
	Target string `json:"target"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// Dispatcher fans a message out to every configured sender.
type Dispatcher struct {
	senders []Sender
	log     *slog.Logger
}

// NewDispatcher returns a dispatcher over senders.
func NewDispatcher(logger *slog.Logger, senders ...Sender) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{senders: senders, log: logger}
}

// FromConfig builds a dispatcher for the webhooks set in cfg.
func FromConfig(cfg config.NotifyConfig, logger *slog.Logger) (*Dispatcher, error) {
	var senders []Sender
	if cfg.SlackWebhookURL != "" {
		senders = append(senders, NewSlack(cfg.SlackWebhookURL))
	}
	if cfg.DiscordWebhookURL != "" {
		d, err := NewDiscord(cfg.DiscordWebhookURL)
		if err != nil {
			return nil, err
		}
		senders = append(senders, d)
	}
	return NewDispatcher(logger, senders...), nil
}

// Targets returns the names of the configured senders.
func (d *Dispatcher) Targets() []string {
	names := make([]string, len(d.senders))
	for i, s := range d.senders {
		names[i] = s.Name()
	}
	return names
}

// Share sends msg to all targets concurrently. It fails only when no
// target is configured or every target failed; partial failures are
// reported in the results.
func (d *Dispatcher) Share(ctx context.Context, msg Message) ([]Result, error) {
	if len(d.senders) == 0 {
		return nil, ErrNoTargets
	}

	results := make([]Result, len(d.senders))
	var g errgroup.Group
	for i, s := range d.senders {
		g.Go(func() error {
			results[i] = Result{Target: s.Name(), OK: true}
			if err := s.Send(ctx, msg); err != nil {
				d.log.Warn("share report failed", "target", s.Name(), "error", err)
				results[i] = Result{Target: s.Name(), Error: err.Error()}
			}
			return nil
		})
	}
	g.Wait()

	for _, r := range results {
		if r.OK {
			return results, nil
		}
	}
	return results, fmt.Errorf("notify: all %d targets failed", len(results))
}
