package retro

import (
	"context"
	"fmt"
	"strings"

	"github.com/scrumkit/scrumkit/internal/events"
	"github.com/scrumkit/scrumkit/internal/models"
)

const maxParticipantID = 255

// ParticipantVotes is a participant's votes in one session and what is left
// of their budget.
type ParticipantVotes struct {
	Votes     []models.Vote `json:"votes"`
	Budget    int           `json:"votesPerUser"`
	Remaining int           `json:"remaining"`
}

func voteArgs(itemID, participantID string) (string, string, error) {
	itemID = strings.TrimSpace(itemID)
	participantID = strings.TrimSpace(participantID)
	if itemID == "" {
		return "", "", invalid("itemId is required")
	}
	if participantID == "" {
		return "", "", invalid("participantId is required")
	}
	if len(participantID) > maxParticipantID {
		return "", "", invalid("participantId must be %d characters or less", maxParticipantID)
	}
	return itemID, participantID, nil
}

// CastVote records one vote by participantID on an item of the session.
//
// The budget is session-wide: the vote is refused with ErrBudgetExceeded
// once the participant holds VotesPerUser votes across all items. The count
// and the insert are separate statements, so two concurrent casts near the
// limit can both succeed and overshoot it by one.
func (s *Service) CastVote(ctx context.Context, sessionID, itemID, participantID string) (*models.Vote, error) {
	itemID, participantID, err := voteArgs(itemID, participantID)
	if err != nil {
		return nil, err
	}
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetItem(ctx, sessionID, itemID); err != nil {
		return nil, classify(err, "item")
	}

	used, err := s.store.CountVotesForParticipant(ctx, sessionID, participantID)
	if err != nil {
		return nil, err
	}
	if used >= int64(sess.VotesPerUser) {
		return nil, &Error{
			Kind: ErrBudgetExceeded,
			Msg:  fmt.Sprintf("you have reached the maximum of %d votes", sess.VotesPerUser),
		}
	}

	v, err := s.store.InsertVote(ctx, itemID, participantID)
	if err != nil {
		return nil, err
	}
	s.publish(sessionID, events.TypeVoteAdded, events.VotePayload{
		ItemID: itemID, ParticipantID: participantID, SessionID: sessionID,
	})
	return v, nil
}

// RemoveVote deletes one of participantID's votes on the item, even when
// the participant holds several, and publishes vote:removed.
func (s *Service) RemoveVote(ctx context.Context, sessionID, itemID, participantID string) error {
	itemID, participantID, err := voteArgs(itemID, participantID)
	if err != nil {
		return err
	}
	if _, err := s.store.GetItem(ctx, sessionID, itemID); err != nil {
		return classify(err, "item")
	}
	if _, err := s.store.DeleteOneVote(ctx, itemID, participantID); err != nil {
		return classify(err, "vote")
	}
	s.publish(sessionID, events.TypeVoteRemoved, events.VotePayload{
		ItemID: itemID, ParticipantID: participantID, SessionID: sessionID,
	})
	return nil
}

// ParticipantVotes lists participantID's votes in the session.
func (s *Service) ParticipantVotes(ctx context.Context, sessionID, participantID string) (*ParticipantVotes, error) {
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return nil, invalid("userId is required")
	}
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	votes, err := s.store.ListVotesForParticipant(ctx, sessionID, participantID)
	if err != nil {
		return nil, err
	}
	return &ParticipantVotes{
		Votes:     votes,
		Budget:    sess.VotesPerUser,
		Remaining: max(sess.VotesPerUser-len(votes), 0),
	}, nil
}
