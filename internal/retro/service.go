// Package retro implements the retrospective rules on top of the store:
// input validation, the per-participant vote budget, report generation and
// change notification. Every mutation publishes its event only after the
// store write succeeded.
package retro

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/scrumkit/scrumkit/internal/events"
	"github.com/scrumkit/scrumkit/internal/export"
	"github.com/scrumkit/scrumkit/internal/llm"
	"github.com/scrumkit/scrumkit/internal/notify"
	"github.com/scrumkit/scrumkit/internal/store"
)

// DefaultGenerateTimeout bounds a report generation call when Options
// leaves it unset.
const DefaultGenerateTimeout = 60 * time.Second

// Sharer posts a report announcement to chat targets.
type Sharer interface {
	Share(ctx context.Context, msg notify.Message) ([]notify.Result, error)
}

// Exporter files action items in an issue tracker.
type Exporter interface {
	Export(ctx context.Context, b export.Batch) ([]export.Result, error)
}

// Options configures a Service. Store and Bus are required.
type Options struct {
	Store           *store.Store
	Bus             events.Publisher
	Generator       llm.Generator
	GenerateTimeout time.Duration
	Sharer          Sharer
	Exporter        Exporter
	AppURL          string
	Logger          *slog.Logger
}

// Service is the retrospective domain service.
type Service struct {
	store      *store.Store
	bus        events.Publisher
	gen        llm.Generator
	genTimeout time.Duration
	sharer     Sharer
	exporter   Exporter
	appURL     string
	log        *slog.Logger
	now        func() time.Time
}

// New returns a Service.
func New(opts Options) *Service {
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = DefaultGenerateTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:      opts.Store,
		bus:        opts.Bus,
		gen:        opts.Generator,
		genTimeout: opts.GenerateTimeout,
		sharer:     opts.Sharer,
		exporter:   opts.Exporter,
		appURL:     strings.TrimRight(opts.AppURL, "/"),
		log:        opts.Logger,
		now:        time.Now,
	}
}

// ShareableLink returns the client URL participants use to join a session.
func (s *Service) ShareableLink(sessionID string) string {
	return s.appURL + "/retrospective/" + sessionID
}

func (s *Service) publish(sessionID, typ string, data any) {
	s.bus.Publish(sessionID, events.New(typ, data))
}

// trimPtr returns a trimmed copy of *p, or nil for nil and blank values.
func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}
