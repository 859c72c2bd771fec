package services

import (
	"context"

	"github.com/agora-board/agora/models"
)

// ListOrder selects the listing sort order.
type ListOrder int

const (
	OrderByCreatedAt ListOrder = iota
	OrderByViews
)

// DiscussionStore is the persistence boundary consumed by the engines.
// Operations are named by intent; the gorm implementation lives in the
// repository package. Methods that flip existence rows are atomic per
// (user, discussion) at the storage layer: concurrent duplicate inserts are
// rejected by unique constraints, not by application-level checks.
type DiscussionStore interface {
	// CreateDiscussion inserts the discussion row plus its category and image
	// fan-out rows in one transaction; nothing is visible on failure.
	CreateDiscussion(ctx context.Context, d *models.Discussion, categories, images []string) error
	// GetDiscussion returns (nil, nil) when the id does not exist.
	GetDiscussion(ctx context.Context, id uint) (*models.Discussion, error)
	// UpdateDiscussion updates the row and replaces both child sets wholesale
	// in one transaction.
	UpdateDiscussion(ctx context.Context, d *models.Discussion, categories, images []string) error
	// DeleteDiscussion removes the row and cascades all child and engagement
	// rows in one transaction.
	DeleteDiscussion(ctx context.Context, id uint) error

	// ListDiscussions returns one page plus the total count.
	ListDiscussions(ctx context.Context, offset, limit int, order ListOrder) ([]models.Discussion, int64, error)
	// GetNicknames batch-resolves display nicknames for a page of owners.
	GetNicknames(ctx context.Context, userIDs []uint) (map[uint]string, error)
	// GetBookmarkedSet returns which of the given discussions the user bookmarked.
	GetBookmarkedSet(ctx context.Context, userID uint, discussionIDs []uint) (map[uint]bool, error)
	// GetLikedSet returns which of the given discussions the user liked.
	GetLikedSet(ctx context.Context, userID uint, discussionIDs []uint) (map[uint]bool, error)

	// ToggleBookmark flips bookmark existence and reports the resulting state.
	ToggleBookmark(ctx context.Context, userID, discussionID uint) (bookmarked bool, err error)
	// ToggleLike flips like existence, adjusts the denormalized counter in the
	// same transaction, and returns the post-toggle state and counter.
	ToggleLike(ctx context.Context, userID, discussionID uint) (liked bool, likeCount int64, err error)

	IsBanned(ctx context.Context, userID, discussionID uint) (bool, error)
	HasParticipant(ctx context.Context, userID, discussionID uint) (bool, error)
	// AddParticipant reports created=false when the row already existed.
	AddParticipant(ctx context.Context, userID, discussionID uint) (created bool, err error)
	// RemoveParticipant reports removed=false when no row existed.
	RemoveParticipant(ctx context.Context, userID, discussionID uint) (removed bool, err error)

	// IncrementViewCount atomically bumps the persisted counter and returns
	// the new value.
	IncrementViewCount(ctx context.Context, discussionID uint) (int64, error)
}

// ViewMarker is the dedup window for view counting, keyed by
// (visitor address, discussion). Entries are advisory and expire.
type ViewMarker interface {
	// MarkSeen records the pair and reports whether this was the first
	// sighting within the dedup window. The check and the record are one
	// atomic step so racing viewers serialize per key.
	MarkSeen(ctx context.Context, visitorIP string, discussionID uint) (bool, error)
}
