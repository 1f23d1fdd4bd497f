package store

import (
	"context"
	"fmt"

	"github.com/scrumkit/scrumkit/internal/models"
)

// InsertVote records one vote by participantID on itemID.
func (s *Store) InsertVote(ctx context.Context, itemID, participantID string) (*models.Vote, error) {
	v := models.Vote{
		ID:            newID(),
		ItemID:        itemID,
		ParticipantID: participantID,
	}
	if err := s.conn(ctx).Create(&v).Error; err != nil {
		return nil, fmt.Errorf("store: insert vote on item %s: %w", itemID, err)
	}
	return &v, nil
}

// DeleteOneVote removes the oldest vote by participantID on itemID. Only
// one row is removed even if the participant holds several votes.
func (s *Store) DeleteOneVote(ctx context.Context, itemID, participantID string) (*models.Vote, error) {
	var v models.Vote
	if err := s.conn(ctx).Where("item_id = ? AND participant_id = ?", itemID, participantID).
		Order("created_at ASC, id ASC").First(&v).Error; err != nil {
		return nil, notFound(err, "vote by %s on item %s", participantID, itemID)
	}
	res := s.conn(ctx).Where("id = ?", v.ID).Delete(&models.Vote{})
	if res.Error != nil {
		return nil, fmt.Errorf("store: delete vote %s: %w", v.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		// Removed concurrently by another request.
		return nil, fmt.Errorf("store: vote %s: %w", v.ID, ErrNotFound)
	}
	return &v, nil
}

// CountVotesForParticipant counts votes cast by participantID across every
// item of the session.
func (s *Store) CountVotesForParticipant(ctx context.Context, sessionID, participantID string) (int64, error) {
	var n int64
	if err := s.conn(ctx).Model(&models.Vote{}).
		Joins("JOIN items ON items.id = votes.item_id").
		Where("votes.participant_id = ? AND items.session_id = ?", participantID, sessionID).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("store: count votes of %s in session %s: %w", participantID, sessionID, err)
	}
	return n, nil
}

// ListVotesForParticipant returns the participant's votes in a session.
func (s *Store) ListVotesForParticipant(ctx context.Context, sessionID, participantID string) ([]models.Vote, error) {
	var votes []models.Vote
	if err := s.conn(ctx).Model(&models.Vote{}).
		Select("votes.*").
		Joins("JOIN items ON items.id = votes.item_id").
		Where("votes.participant_id = ? AND items.session_id = ?", participantID, sessionID).
		Order("votes.created_at ASC, votes.id ASC").
		Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("store: list votes of %s in session %s: %w", participantID, sessionID, err)
	}
	return votes, nil
}

// CountVotesForItem counts all votes on one item.
func (s *Store) CountVotesForItem(ctx context.Context, itemID string) (int64, error) {
	var n int64
	if err := s.conn(ctx).Model(&models.Vote{}).Where("item_id = ?", itemID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("store: count votes on item %s: %w", itemID, err)
	}
	return n, nil
}
