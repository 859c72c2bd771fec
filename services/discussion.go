package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agora-board/agora/models"
)

// MaxCategories limits the category fan-out per discussion.
const MaxCategories = 3

// startTimeSkew tolerates client/server clock drift on the start-time check.
const startTimeSkew = time.Minute

// DiscussionInput carries the full field set for create and update. Category
// and image sets are always replaced wholesale; partial update is not
// supported.
type DiscussionInput struct {
	Title      string
	Content    string
	Thumbnail  string
	Categories []string
	Images     []string
	StartTime  time.Time
	EndTime    time.Time
}

// DiscussionService is the lifecycle engine: it enforces create/update/delete
// rules, ownership, and orchestrates the multi-table transactional writes.
type DiscussionService struct {
	store DiscussionStore
	log   *zap.SugaredLogger
}

// NewDiscussionService creates the lifecycle engine.
func NewDiscussionService(store DiscussionStore, log *zap.SugaredLogger) *DiscussionService {
	return &DiscussionService{store: store, log: log}
}

// Validate re-asserts the input contract. The handler validates request shape
// first; the engine still rejects out-of-policy values with ErrInvalidInput.
func (in DiscussionInput) Validate(now time.Time) error {
	if strings.TrimSpace(in.Title) == "" ||
		strings.TrimSpace(in.Content) == "" ||
		strings.TrimSpace(in.Thumbnail) == "" {
		return ErrInvalidInput
	}
	if len(in.Categories) > MaxCategories {
		return ErrInvalidInput
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return ErrInvalidInput
	}
	if in.StartTime.Before(now.Add(-startTimeSkew)) {
		return ErrInvalidInput
	}
	if !in.EndTime.After(in.StartTime) {
		return ErrInvalidInput
	}
	return nil
}

// Create opens one transaction inserting the discussion row with zeroed
// counters plus its category and image rows; on any failure nothing persists.
func (s *DiscussionService) Create(ctx context.Context, ownerID uint, in DiscussionInput) (*models.Discussion, error) {
	if err := in.Validate(time.Now()); err != nil {
		return nil, err
	}

	d := &models.Discussion{
		UserID:    ownerID,
		Title:     in.Title,
		Content:   in.Content,
		Thumbnail: in.Thumbnail,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		ViewCount: 0,
		LikeCount: 0,
	}
	if err := s.store.CreateDiscussion(ctx, d, in.Categories, in.Images); err != nil {
		s.log.Errorw("create discussion failed", "owner_id", ownerID, "err", err)
		return nil, persistence("create discussion", err)
	}
	return d, nil
}

// Update loads the discussion, checks ownership, then replaces the row and
// both child sets in one transaction.
func (s *DiscussionService) Update(ctx context.Context, discussionID, requesterID uint, in DiscussionInput) error {
	if err := in.Validate(time.Now()); err != nil {
		return err
	}

	existing, err := s.store.GetDiscussion(ctx, discussionID)
	if err != nil {
		return persistence("load discussion", err)
	}
	if existing == nil {
		return ErrNotFound
	}
	if err := requireOwner(existing.UserID, requesterID); err != nil {
		return err
	}

	existing.Title = in.Title
	existing.Content = in.Content
	existing.Thumbnail = in.Thumbnail
	existing.StartTime = in.StartTime
	existing.EndTime = in.EndTime
	if err := s.store.UpdateDiscussion(ctx, existing, in.Categories, in.Images); err != nil {
		s.log.Errorw("update discussion failed", "discussion_id", discussionID, "err", err)
		return persistence("update discussion", err)
	}
	return nil
}

// Delete removes the discussion and cascades all child and engagement rows.
func (s *DiscussionService) Delete(ctx context.Context, discussionID, requesterID uint) error {
	existing, err := s.store.GetDiscussion(ctx, discussionID)
	if err != nil {
		return persistence("load discussion", err)
	}
	if existing == nil {
		return ErrNotFound
	}
	if err := requireOwner(existing.UserID, requesterID); err != nil {
		return err
	}

	if err := s.store.DeleteDiscussion(ctx, discussionID); err != nil {
		s.log.Errorw("delete discussion failed", "discussion_id", discussionID, "err", err)
		return persistence("delete discussion", err)
	}
	return nil
}
