package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/agora-board/agora/models"
	"github.com/agora-board/agora/utils"
)

// DefaultPageSize is the listing page size when config does not override it.
const DefaultPageSize = 10

// DiscussionSummary is one listing row enriched with the viewer's state.
type DiscussionSummary struct {
	DiscussionID uint      `json:"discussion_id"`
	Thumbnail    string    `json:"thumbnail"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	Categories   []string  `json:"categories"`
	Bookmarked   bool      `json:"bookmarked"`
	Liked        bool      `json:"liked"`
	Like         int64     `json:"like"`
	View         int64     `json:"view"`
	Nickname     string    `json:"nickname"`
}

// DiscussionPage is the listing response.
type DiscussionPage struct {
	HasMore     bool                `json:"has_more"`
	Discussions []DiscussionSummary `json:"discussions"`
}

// DiscussionDetail is the full single-discussion view.
type DiscussionDetail struct {
	DiscussionID uint      `json:"discussion_id"`
	UserID       uint      `json:"user_id"`
	Nickname     string    `json:"nickname"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Thumbnail    string    `json:"thumbnail"`
	Categories   []string  `json:"categories"`
	Images       []string  `json:"images"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	CreatedAt    time.Time `json:"created_at"`
	Bookmarked   bool      `json:"bookmarked"`
	Liked        bool      `json:"liked"`
	Like         int64     `json:"like"`
	View         int64     `json:"view"`
}

// ListingService assembles paginated summaries and detail views and accounts
// views once per (visitor, discussion) within the dedup window.
type ListingService struct {
	store    DiscussionStore
	views    ViewMarker
	pageSize int
	log      *zap.SugaredLogger
}

// NewListingService creates the assembler. pageSize <= 0 falls back to
// DefaultPageSize.
func NewListingService(store DiscussionStore, views ViewMarker, pageSize int, log *zap.SugaredLogger) *ListingService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ListingService{store: store, views: views, pageSize: pageSize, log: log}
}

// ListByPage returns one page of summaries. sortKey "views" orders by view
// count descending; anything else orders by creation time descending.
// viewerID 0 means anonymous: bookmark/like flags stay false.
func (s *ListingService) ListByPage(ctx context.Context, page int, sortKey string, viewerID uint) (*DiscussionPage, error) {
	if page < 1 {
		page = 1
	}
	order := OrderByCreatedAt
	if sortKey == "views" {
		order = OrderByViews
	}
	offset := (page - 1) * s.pageSize

	rows, total, err := s.store.ListDiscussions(ctx, offset, s.pageSize, order)
	if err != nil {
		s.log.Errorw("list discussions failed", "page", page, "err", err)
		return nil, persistence("list discussions", err)
	}

	totalPages := int((total + int64(s.pageSize) - 1) / int64(s.pageSize))

	ids := make([]uint, 0, len(rows))
	owners := make([]uint, 0, len(rows))
	for _, d := range rows {
		ids = append(ids, d.ID)
		owners = append(owners, d.UserID)
	}

	nicknames, err := s.store.GetNicknames(ctx, utils.UniqueUint(owners))
	if err != nil {
		return nil, persistence("load nicknames", err)
	}

	var bookmarked, liked map[uint]bool
	if viewerID != 0 {
		if bookmarked, err = s.store.GetBookmarkedSet(ctx, viewerID, ids); err != nil {
			return nil, persistence("load bookmarks", err)
		}
		if liked, err = s.store.GetLikedSet(ctx, viewerID, ids); err != nil {
			return nil, persistence("load likes", err)
		}
	}

	summaries := make([]DiscussionSummary, 0, len(rows))
	for _, d := range rows {
		summaries = append(summaries, DiscussionSummary{
			DiscussionID: d.ID,
			Thumbnail:    d.Thumbnail,
			Title:        d.Title,
			CreatedAt:    d.CreatedAt,
			Categories:   categoryNames(d.Categories),
			Bookmarked:   bookmarked[d.ID],
			Liked:        liked[d.ID],
			Like:         d.LikeCount,
			View:         d.ViewCount,
			Nickname:     nicknames[d.UserID],
		})
	}

	return &DiscussionPage{
		HasMore:     totalPages > page,
		Discussions: summaries,
	}, nil
}

// GetDetail loads the full discussion with viewer flags. View accounting is a
// separate step: callers pass the returned model to IncreaseViewCount and
// merge the result, so the load itself never mutates the counter.
func (s *ListingService) GetDetail(ctx context.Context, discussionID, viewerID uint) (*DiscussionDetail, *models.Discussion, error) {
	d, err := s.store.GetDiscussion(ctx, discussionID)
	if err != nil {
		return nil, nil, persistence("load discussion", err)
	}
	if d == nil {
		return nil, nil, ErrNotFound
	}

	nicknames, err := s.store.GetNicknames(ctx, []uint{d.UserID})
	if err != nil {
		return nil, nil, persistence("load nickname", err)
	}

	detail := &DiscussionDetail{
		DiscussionID: d.ID,
		UserID:       d.UserID,
		Nickname:     nicknames[d.UserID],
		Title:        d.Title,
		Content:      d.Content,
		Thumbnail:    d.Thumbnail,
		Categories:   categoryNames(d.Categories),
		Images:       imageURLs(d.Images),
		StartTime:    d.StartTime,
		EndTime:      d.EndTime,
		CreatedAt:    d.CreatedAt,
		Like:         d.LikeCount,
		View:         d.ViewCount,
	}

	if viewerID != 0 {
		bm, err := s.store.GetBookmarkedSet(ctx, viewerID, []uint{d.ID})
		if err != nil {
			return nil, nil, persistence("load bookmark", err)
		}
		lk, err := s.store.GetLikedSet(ctx, viewerID, []uint{d.ID})
		if err != nil {
			return nil, nil, persistence("load like", err)
		}
		detail.Bookmarked = bm[d.ID]
		detail.Liked = lk[d.ID]
	}

	return detail, d, nil
}

// IncreaseViewCount bumps the persisted counter once per (visitor, discussion)
// within the dedup TTL and returns the count to render. A marker cache error
// is treated as already-seen: the detail view must not fail, and not counting
// is the safe side against abuse.
func (s *ListingService) IncreaseViewCount(ctx context.Context, visitorIP string, d *models.Discussion) (int64, error) {
	first, err := s.views.MarkSeen(ctx, visitorIP, d.ID)
	if err != nil {
		s.log.Warnw("view marker unavailable", "discussion_id", d.ID, "err", err)
		return d.ViewCount, nil
	}
	if !first {
		return d.ViewCount, nil
	}

	count, err := s.store.IncrementViewCount(ctx, d.ID)
	if err != nil {
		s.log.Errorw("increment view failed", "discussion_id", d.ID, "err", err)
		return 0, persistence("increment view count", err)
	}
	return count, nil
}

func categoryNames(cats []models.DiscussionCategory) []string {
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names
}

func imageURLs(imgs []models.DiscussionImage) []string {
	urls := make([]string, 0, len(imgs))
	for _, img := range imgs {
		urls = append(urls, img.URL)
	}
	return urls
}
