package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agora-board/agora/models"
)

func seedListing(store *fakeStore, n int) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		id := uint(i)
		store.discussions[id] = &models.Discussion{
			ID:        id,
			UserID:    uint(100 + i%3),
			Title:     fmt.Sprintf("discussion %d", i),
			Content:   "content",
			Thumbnail: "thumb",
			ViewCount: int64(i * 10),
			LikeCount: int64(i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		store.categories[id] = []string{"general"}
	}
	store.nextID = uint(n + 1)
	store.nicknames[100] = "alpha"
	store.nicknames[101] = "beta"
	store.nicknames[102] = "gamma"
}

func TestListByPagePagination(t *testing.T) {
	store := newFakeStore()
	seedListing(store, 15)
	svc := NewListingService(store, newFakeViewMarker(), DefaultPageSize, zap.NewNop().Sugar())

	page1, err := svc.ListByPage(context.Background(), 1, "", 0)
	require.NoError(t, err)
	assert.Len(t, page1.Discussions, 10)
	assert.True(t, page1.HasMore)

	page2, err := svc.ListByPage(context.Background(), 2, "", 0)
	require.NoError(t, err)
	assert.Len(t, page2.Discussions, 5)
	assert.False(t, page2.HasMore)

	// newest first
	assert.Equal(t, uint(15), page1.Discussions[0].DiscussionID)
	assert.Equal(t, uint(6), page1.Discussions[9].DiscussionID)
	assert.Equal(t, uint(5), page2.Discussions[0].DiscussionID)
}

func TestListByPageExactBoundaryHasNoMore(t *testing.T) {
	store := newFakeStore()
	seedListing(store, 10)
	svc := NewListingService(store, newFakeViewMarker(), DefaultPageSize, zap.NewNop().Sugar())

	page, err := svc.ListByPage(context.Background(), 1, "", 0)
	require.NoError(t, err)
	assert.Len(t, page.Discussions, 10)
	assert.False(t, page.HasMore)
}

func TestListByPageSortByViews(t *testing.T) {
	store := newFakeStore()
	seedListing(store, 5)
	store.discussions[2].ViewCount = 999
	svc := NewListingService(store, newFakeViewMarker(), DefaultPageSize, zap.NewNop().Sugar())

	page, err := svc.ListByPage(context.Background(), 1, "views", 0)
	require.NoError(t, err)
	require.NotEmpty(t, page.Discussions)
	assert.Equal(t, uint(2), page.Discussions[0].DiscussionID)
	assert.EqualValues(t, 999, page.Discussions[0].View)
}

func TestListByPageUnknownSortFallsBackToCreatedAt(t *testing.T) {
	store := newFakeStore()
	seedListing(store, 3)
	svc := NewListingService(store, newFakeViewMarker(), DefaultPageSize, zap.NewNop().Sugar())

	page, err := svc.ListByPage(context.Background(), 1, "banana", 0)
	require.NoError(t, err)
	assert.Equal(t, uint(3), page.Discussions[0].DiscussionID)
}

func TestListByPageViewerFlags(t *testing.T) {
	store := newFakeStore()
	seedListing(store, 3)
	store.bookmarks[pairKey{userID: 9, discussionID: 1}] = true
	store.likes[pairKey{userID: 9, discussionID: 2}] = true
	svc := NewListingService(store, newFakeViewMarker(), DefaultPageSize, zap.NewNop().Sugar())

	page, err := svc.ListByPage(context.Background(), 1, "", 9)
	require.NoError(t, err)

	byID := map[uint]DiscussionSummary{}
	for _, s := range page.Discussions {
		byID[s.DiscussionID] = s
	}
	assert.True(t, byID[1].Bookmarked)
	assert.False(t, byID[1].Liked)
	assert.True(t, byID[2].Liked)
	assert.False(t, byID[2].Bookmarked)
	assert.False(t, byID[3].Bookmarked)
	assert.False(t, byID[3].Liked)
}

func TestListByPageAnonymousFlagsStayFalse(t *testing.T) {
	store := newFakeStore()
	seedListing(store, 2)
	store.bookmarks[pairKey{userID: 9, discussionID: 1}] = true
	store.likes[pairKey{userID: 9, discussionID: 1}] = true
	svc := NewListingService(store, newFakeViewMarker(), DefaultPageSize, zap.NewNop().Sugar())

	page, err := svc.ListByPage(context.Background(), 1, "", 0)
	require.NoError(t, err)
	for _, s := range page.Discussions {
		assert.False(t, s.Bookmarked)
		assert.False(t, s.Liked)
	}
}

func TestListByPageResolvesNicknames(t *testing.T) {
	store := newFakeStore()
	seedListing(store, 3)
	svc := NewListingService(store, newFakeViewMarker(), DefaultPageSize, zap.NewNop().Sugar())

	page, err := svc.ListByPage(context.Background(), 1, "", 0)
	require.NoError(t, err)
	for _, s := range page.Discussions {
		assert.NotEmpty(t, s.Nickname)
	}
}

func TestGetDetailUnknownDiscussion(t *testing.T) {
	store := newFakeStore()
	svc := NewListingService(store, newFakeViewMarker(), DefaultPageSize, zap.NewNop().Sugar())

	_, _, err := svc.GetDetail(context.Background(), 404, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetDetailIncludesChildSetsAndViewerFlags(t *testing.T) {
	store := newFakeStore()
	seedListing(store, 1)
	store.images[1] = []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"}
	store.bookmarks[pairKey{userID: 9, discussionID: 1}] = true
	svc := NewListingService(store, newFakeViewMarker(), DefaultPageSize, zap.NewNop().Sugar())

	detail, d, err := svc.GetDetail(context.Background(), 1, 9)
	require.NoError(t, err)
	require.NotNil(t, d)

	assert.Equal(t, uint(1), detail.DiscussionID)
	assert.Equal(t, []string{"general"}, detail.Categories)
	assert.Len(t, detail.Images, 2)
	assert.True(t, detail.Bookmarked)
	assert.False(t, detail.Liked)
	assert.EqualValues(t, 10, detail.View)
}

func TestIncreaseViewCountOncePerVisitor(t *testing.T) {
	store := newFakeStore()
	seedListing(store, 1)
	marker := newFakeViewMarker()
	svc := NewListingService(store, marker, DefaultPageSize, zap.NewNop().Sugar())

	d := store.discussions[1]

	count, err := svc.IncreaseViewCount(context.Background(), "203.0.113.7", d)
	require.NoError(t, err)
	assert.EqualValues(t, 11, count)

	// same visitor again: no increment, current count returned
	again, err := svc.IncreaseViewCount(context.Background(), "203.0.113.7", store.discussions[1])
	require.NoError(t, err)
	assert.EqualValues(t, 11, again)
	assert.EqualValues(t, 11, store.discussions[1].ViewCount)

	// different visitor counts
	other, err := svc.IncreaseViewCount(context.Background(), "198.51.100.4", store.discussions[1])
	require.NoError(t, err)
	assert.EqualValues(t, 12, other)
}

func TestIncreaseViewCountMarkerFailureDoesNotFail(t *testing.T) {
	store := newFakeStore()
	seedListing(store, 1)
	marker := newFakeViewMarker()
	marker.err = errors.New("cache down")
	svc := NewListingService(store, marker, DefaultPageSize, zap.NewNop().Sugar())

	count, err := svc.IncreaseViewCount(context.Background(), "203.0.113.7", store.discussions[1])
	require.NoError(t, err)
	assert.EqualValues(t, 10, count)
	assert.EqualValues(t, 10, store.discussions[1].ViewCount)
}

func TestNewListingServiceDefaultsPageSize(t *testing.T) {
	store := newFakeStore()
	seedListing(store, 12)
	svc := NewListingService(store, newFakeViewMarker(), 0, zap.NewNop().Sugar())

	page, err := svc.ListByPage(context.Background(), 1, "", 0)
	require.NoError(t, err)
	assert.Len(t, page.Discussions, DefaultPageSize)
	assert.True(t, page.HasMore)
}
