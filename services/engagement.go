package services

import (
	"context"

	"go.uber.org/zap"
)

// EngagementService owns the toggle logic for bookmarks and likes and the
// ban-aware participation state transitions.
type EngagementService struct {
	store DiscussionStore
	log   *zap.SugaredLogger
}

// NewEngagementService creates the engagement engine.
func NewEngagementService(store DiscussionStore, log *zap.SugaredLogger) *EngagementService {
	return &EngagementService{store: store, log: log}
}

// ToggleBookmark flips the bookmark row for (user, discussion) and returns the
// resulting state.
func (s *EngagementService) ToggleBookmark(ctx context.Context, userID, discussionID uint) (bool, error) {
	d, err := s.store.GetDiscussion(ctx, discussionID)
	if err != nil {
		return false, persistence("load discussion", err)
	}
	if d == nil {
		return false, ErrNotFound
	}

	bookmarked, err := s.store.ToggleBookmark(ctx, userID, discussionID)
	if err != nil {
		s.log.Errorw("toggle bookmark failed", "user_id", userID, "discussion_id", discussionID, "err", err)
		return false, persistence("toggle bookmark", err)
	}
	return bookmarked, nil
}

// ToggleLike flips the like row and the denormalized counter in one atomic
// unit, returning the post-toggle state and counter value.
func (s *EngagementService) ToggleLike(ctx context.Context, userID, discussionID uint) (bool, int64, error) {
	d, err := s.store.GetDiscussion(ctx, discussionID)
	if err != nil {
		return false, 0, persistence("load discussion", err)
	}
	if d == nil {
		return false, 0, ErrNotFound
	}

	liked, count, err := s.store.ToggleLike(ctx, userID, discussionID)
	if err != nil {
		s.log.Errorw("toggle like failed", "user_id", userID, "discussion_id", discussionID, "err", err)
		return false, 0, persistence("toggle like", err)
	}
	return liked, count, nil
}

// Join adds the user as a participant. The ban check precedes the
// participation check; a banned user is told so even when not participating.
func (s *EngagementService) Join(ctx context.Context, userID, discussionID uint) error {
	banned, err := s.store.IsBanned(ctx, userID, discussionID)
	if err != nil {
		return persistence("check ban", err)
	}
	if banned {
		return ErrBanned
	}

	participating, err := s.store.HasParticipant(ctx, userID, discussionID)
	if err != nil {
		return persistence("check participation", err)
	}
	if participating {
		return ErrAlreadyParticipating
	}

	created, err := s.store.AddParticipant(ctx, userID, discussionID)
	if err != nil {
		s.log.Errorw("join failed", "user_id", userID, "discussion_id", discussionID, "err", err)
		return persistence("add participant", err)
	}
	if !created {
		// a concurrent join won the race; the constraint rejected this one
		return ErrAlreadyParticipating
	}
	return nil
}

// Leave removes the user's participation row. Ban precedence mirrors Join.
func (s *EngagementService) Leave(ctx context.Context, userID, discussionID uint) error {
	banned, err := s.store.IsBanned(ctx, userID, discussionID)
	if err != nil {
		return persistence("check ban", err)
	}
	if banned {
		return ErrBanned
	}

	removed, err := s.store.RemoveParticipant(ctx, userID, discussionID)
	if err != nil {
		s.log.Errorw("leave failed", "user_id", userID, "discussion_id", discussionID, "err", err)
		return persistence("remove participant", err)
	}
	if !removed {
		return ErrNotParticipating
	}
	return nil
}
