package retro

import (
	"context"
	"errors"

	"github.com/scrumkit/scrumkit/internal/export"
	"github.com/scrumkit/scrumkit/internal/models"
	"github.com/scrumkit/scrumkit/internal/notify"
	"github.com/scrumkit/scrumkit/internal/report"
)

// GetReport returns the session's current report.
func (s *Service) GetReport(ctx context.Context, sessionID string) (*models.Report, error) {
	r, err := s.store.GetReport(ctx, sessionID)
	if err != nil {
		return nil, classify(err, "report")
	}
	return r, nil
}

// GenerateReport writes a new report for the session and stores it in
// place of any previous one. Generation is bounded by the configured
// timeout and never retried; on failure nothing is stored.
func (s *Service) GenerateReport(ctx context.Context, sessionID string, cfg report.Config, generatedBy *string) (*models.Report, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, &Error{Kind: ErrInvalidArgument, Msg: err.Error()}
	}
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.gen == nil {
		return nil, &Error{Kind: ErrNotConfigured, Msg: "report generation is not configured"}
	}

	items, err := s.store.ListItems(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	actions, err := s.store.ListActionItems(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	prompt, err := report.BuildPrompt(report.FromModels(sess, items, actions), cfg)
	if err != nil {
		return nil, err
	}

	genCtx, cancel := context.WithTimeout(ctx, s.genTimeout)
	defer cancel()
	content, err := s.gen.Generate(genCtx, prompt.System, prompt.User)
	if err == nil && content == "" {
		err = errors.New("empty output")
	}
	if err != nil {
		s.log.Error("report generation failed", "session", sessionID, "error", err)
		return nil, &Error{Kind: ErrGenerationFailed, Msg: "failed to generate report"}
	}

	r, err := s.store.UpsertReport(ctx, sessionID, content, trimPtr(generatedBy))
	if err != nil {
		return nil, err
	}
	s.log.Info("report generated", "session", sessionID, "language", cfg.Language, "tone", cfg.Tone, "bytes", len(content))
	return r, nil
}

// ShareReport posts the stored report to the configured chat targets.
func (s *Service) ShareReport(ctx context.Context, sessionID string) ([]notify.Result, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	r, err := s.GetReport(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.sharer == nil {
		return nil, &Error{Kind: ErrNotConfigured, Msg: "no chat webhook is configured"}
	}

	title := "Retrospective report: " + sess.Name
	if sess.SprintName != nil {
		title += " (" + *sess.SprintName + ")"
	}
	results, err := s.sharer.Share(ctx, notify.Message{Title: title, Body: r.Content, Link: s.ShareableLink(sessionID)})
	if errors.Is(err, notify.ErrNoTargets) {
		return nil, &Error{Kind: ErrNotConfigured, Msg: "no chat webhook is configured"}
	}
	return results, err
}

// ExportActionItems files the session's unfinished action items as issues.
func (s *Service) ExportActionItems(ctx context.Context, sessionID string) ([]export.Result, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.exporter == nil {
		return nil, &Error{Kind: ErrNotConfigured, Msg: "no issue tracker is configured"}
	}
	actions, err := s.store.ListActionItems(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	b := export.Batch{SessionName: sess.Name, Link: s.ShareableLink(sessionID), Actions: actions}
	if sess.SprintName != nil {
		b.SprintName = *sess.SprintName
	}
	results, err := s.exporter.Export(ctx, b)
	if err != nil {
		return nil, err
	}
	s.log.Info("action items exported", "session", sessionID, "count", len(results))
	return results, nil
}
