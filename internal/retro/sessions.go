package retro

import (
	"context"
	"strings"

	"github.com/scrumkit/scrumkit/internal/events"
	"github.com/scrumkit/scrumkit/internal/models"
)

const maxNameLength = 255

// NewSession holds the fields for creating a session.
type NewSession struct {
	Name                   string
	SprintName             *string
	TeamID                 *string
	VotesPerUser           *int
	HideVotesUntilComplete bool
}

// SessionPatch is a partial session update. Nil fields are left unchanged.
type SessionPatch struct {
	Name                   *string
	SprintName             *string
	Status                 *string
	VotesPerUser           *int
	HideVotesUntilComplete *bool
}

// CreateSession validates and stores a new session in the input phase.
func (s *Service) CreateSession(ctx context.Context, in NewSession) (*models.Session, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("session name is required")
	}
	if len([]rune(name)) > maxNameLength {
		return nil, invalid("session name must be %d characters or less", maxNameLength)
	}
	budget := models.DefaultVotesPerUser
	if in.VotesPerUser != nil {
		budget = *in.VotesPerUser
	}
	if budget < 1 {
		return nil, invalid("votesPerUser must be at least 1")
	}

	sess := &models.Session{
		Name:                   name,
		SprintName:             trimPtr(in.SprintName),
		TeamID:                 trimPtr(in.TeamID),
		Status:                 models.PhaseInput,
		VotesPerUser:           budget,
		HideVotesUntilComplete: in.HideVotesUntilComplete,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	s.log.Info("session created", "session", sess.ID, "name", sess.Name)
	return sess, nil
}

// GetSession returns one session.
func (s *Service) GetSession(ctx context.Context, id string) (*models.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, classify(err, "session")
	}
	return sess, nil
}

// ListSessions returns every session, newest first.
func (s *Service) ListSessions(ctx context.Context) ([]models.Session, error) {
	return s.store.ListSessions(ctx)
}

// UpdateSession applies p and publishes session:updated. Moving to the
// completed phase stamps the completion time; leaving it clears the stamp.
// Phases may be set in any order.
func (s *Service) UpdateSession(ctx context.Context, id string, p SessionPatch) (*models.Session, error) {
	updates := map[string]any{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, invalid("session name cannot be empty")
		}
		if len([]rune(name)) > maxNameLength {
			return nil, invalid("session name must be %d characters or less", maxNameLength)
		}
		updates["name"] = name
	}
	if p.SprintName != nil {
		updates["sprint_name"] = trimPtr(p.SprintName)
	}
	if p.Status != nil {
		if !models.ValidPhase(*p.Status) {
			return nil, invalid("status must be one of %s", strings.Join(models.Phases, ", "))
		}
		updates["status"] = *p.Status
		if *p.Status == models.PhaseCompleted {
			updates["completed_at"] = s.now()
		} else {
			updates["completed_at"] = nil
		}
	}
	if p.VotesPerUser != nil {
		if *p.VotesPerUser < 1 {
			return nil, invalid("votesPerUser must be at least 1")
		}
		updates["votes_per_user"] = *p.VotesPerUser
	}
	if p.HideVotesUntilComplete != nil {
		updates["hide_votes_until_complete"] = *p.HideVotesUntilComplete
	}

	sess, err := s.store.UpdateSession(ctx, id, updates)
	if err != nil {
		return nil, classify(err, "session")
	}
	if len(updates) > 0 {
		s.publish(id, events.TypeSessionUpdated, sess)
	}
	return sess, nil
}

// DeleteSession removes a session and everything it owns.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if err := s.store.DeleteSession(ctx, id); err != nil {
		return classify(err, "session")
	}
	s.log.Info("session deleted", "session", id)
	return nil
}
