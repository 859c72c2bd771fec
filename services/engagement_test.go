package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedDiscussion(t *testing.T, store *fakeStore, ownerID uint) uint {
	t.Helper()
	svc := NewDiscussionService(store, zap.NewNop().Sugar())
	created, err := svc.Create(context.Background(), ownerID, validInput(time.Now()))
	require.NoError(t, err)
	return created.ID
}

func TestToggleBookmarkPairNetsToAbsent(t *testing.T) {
	store := newFakeStore()
	svc := NewEngagementService(store, zap.NewNop().Sugar())
	id := seedDiscussion(t, store, 1)

	added, err := svc.ToggleBookmark(context.Background(), 2, id)
	require.NoError(t, err)
	assert.True(t, added)

	removed, err := svc.ToggleBookmark(context.Background(), 2, id)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Empty(t, store.bookmarks)
}

func TestToggleBookmarkUnknownDiscussion(t *testing.T) {
	store := newFakeStore()
	svc := NewEngagementService(store, zap.NewNop().Sugar())

	_, err := svc.ToggleBookmark(context.Background(), 2, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleLikeMovesCounterWithRow(t *testing.T) {
	store := newFakeStore()
	svc := NewEngagementService(store, zap.NewNop().Sugar())
	id := seedDiscussion(t, store, 1)

	liked, count, err := svc.ToggleLike(context.Background(), 2, id)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.EqualValues(t, 1, count)

	liked, count, err = svc.ToggleLike(context.Background(), 3, id)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.EqualValues(t, 2, count)

	liked, count, err = svc.ToggleLike(context.Background(), 2, id)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.EqualValues(t, 1, count)

	// counter equals surviving like rows
	assert.EqualValues(t, len(store.likes), count)
}

func TestToggleLikeUnknownDiscussion(t *testing.T) {
	store := newFakeStore()
	svc := NewEngagementService(store, zap.NewNop().Sugar())

	_, _, err := svc.ToggleLike(context.Background(), 2, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJoinThenLeave(t *testing.T) {
	store := newFakeStore()
	svc := NewEngagementService(store, zap.NewNop().Sugar())
	id := seedDiscussion(t, store, 1)

	require.NoError(t, svc.Join(context.Background(), 2, id))
	assert.ErrorIs(t, svc.Join(context.Background(), 2, id), ErrAlreadyParticipating)

	require.NoError(t, svc.Leave(context.Background(), 2, id))
	assert.ErrorIs(t, svc.Leave(context.Background(), 2, id), ErrNotParticipating)
}

// racingStore simulates a concurrent join landing between the participation
// check and the insert: the check sees no row, the constraint rejects anyway.
type racingStore struct {
	*fakeStore
}

func (r *racingStore) HasParticipant(context.Context, uint, uint) (bool, error) {
	return false, nil
}

func TestJoinLostRaceReportsAlreadyParticipating(t *testing.T) {
	store := newFakeStore()
	svc := NewEngagementService(&racingStore{store}, zap.NewNop().Sugar())
	id := seedDiscussion(t, store, 1)

	_, err := store.AddParticipant(context.Background(), 2, id)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Join(context.Background(), 2, id), ErrAlreadyParticipating)
	assert.Len(t, store.participants, 1)
}

func TestJoinBannedTakesPrecedence(t *testing.T) {
	store := newFakeStore()
	svc := NewEngagementService(store, zap.NewNop().Sugar())
	id := seedDiscussion(t, store, 1)

	// already participating AND banned: the ban wins
	_, err := store.AddParticipant(context.Background(), 2, id)
	require.NoError(t, err)
	store.bans = append(store.bans, fakeBan{userID: 2, discussionID: &id})

	assert.ErrorIs(t, svc.Join(context.Background(), 2, id), ErrBanned)
}

func TestLeaveBannedTakesPrecedence(t *testing.T) {
	store := newFakeStore()
	svc := NewEngagementService(store, zap.NewNop().Sugar())
	id := seedDiscussion(t, store, 1)

	// not participating AND banned: the ban still wins
	store.bans = append(store.bans, fakeBan{userID: 2, discussionID: &id})

	assert.ErrorIs(t, svc.Leave(context.Background(), 2, id), ErrBanned)
}

func TestGlobalBanAppliesToEveryDiscussion(t *testing.T) {
	store := newFakeStore()
	svc := NewEngagementService(store, zap.NewNop().Sugar())
	first := seedDiscussion(t, store, 1)
	second := seedDiscussion(t, store, 1)

	store.bans = append(store.bans, fakeBan{userID: 2})

	assert.ErrorIs(t, svc.Join(context.Background(), 2, first), ErrBanned)
	assert.ErrorIs(t, svc.Join(context.Background(), 2, second), ErrBanned)
}

func TestScopedBanLeavesOtherDiscussionsOpen(t *testing.T) {
	store := newFakeStore()
	svc := NewEngagementService(store, zap.NewNop().Sugar())
	banned := seedDiscussion(t, store, 1)
	open := seedDiscussion(t, store, 1)

	store.bans = append(store.bans, fakeBan{userID: 2, discussionID: &banned})

	assert.ErrorIs(t, svc.Join(context.Background(), 2, banned), ErrBanned)
	assert.NoError(t, svc.Join(context.Background(), 2, open))
}
