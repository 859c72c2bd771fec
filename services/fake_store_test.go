package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agora-board/agora/models"
)

type pairKey struct {
	userID       uint
	discussionID uint
}

type fakeBan struct {
	userID       uint
	discussionID *uint
}

// fakeStore is an in-memory DiscussionStore with the same contract as the
// gorm repository: existence-row flips are atomic per key and the like
// counter moves with the like row.
type fakeStore struct {
	mu           sync.Mutex
	nextID       uint
	discussions  map[uint]*models.Discussion
	categories   map[uint][]string
	images       map[uint][]string
	bookmarks    map[pairKey]bool
	likes        map[pairKey]bool
	participants map[pairKey]bool
	bans         []fakeBan
	nicknames    map[uint]string
	failNext     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:       1,
		discussions:  map[uint]*models.Discussion{},
		categories:   map[uint][]string{},
		images:       map[uint][]string{},
		bookmarks:    map[pairKey]bool{},
		likes:        map[pairKey]bool{},
		participants: map[pairKey]bool{},
		nicknames:    map[uint]string{},
	}
}

func (f *fakeStore) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeStore) CreateDiscussion(_ context.Context, d *models.Discussion, categories, images []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}

	d.ID = f.nextID
	f.nextID++
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	stored := *d
	f.discussions[d.ID] = &stored
	f.categories[d.ID] = append([]string(nil), categories...)
	f.images[d.ID] = append([]string(nil), images...)
	return nil
}

func (f *fakeStore) GetDiscussion(_ context.Context, id uint) (*models.Discussion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}

	d, ok := f.discussions[id]
	if !ok {
		return nil, nil
	}
	return f.snapshotLocked(d), nil
}

func (f *fakeStore) UpdateDiscussion(_ context.Context, d *models.Discussion, categories, images []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}

	stored, ok := f.discussions[d.ID]
	if !ok {
		return nil
	}
	stored.Title = d.Title
	stored.Content = d.Content
	stored.Thumbnail = d.Thumbnail
	stored.StartTime = d.StartTime
	stored.EndTime = d.EndTime
	f.categories[d.ID] = append([]string(nil), categories...)
	f.images[d.ID] = append([]string(nil), images...)
	return nil
}

func (f *fakeStore) DeleteDiscussion(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}

	delete(f.discussions, id)
	delete(f.categories, id)
	delete(f.images, id)
	for key := range f.bookmarks {
		if key.discussionID == id {
			delete(f.bookmarks, key)
		}
	}
	for key := range f.likes {
		if key.discussionID == id {
			delete(f.likes, key)
		}
	}
	for key := range f.participants {
		if key.discussionID == id {
			delete(f.participants, key)
		}
	}
	return nil
}

func (f *fakeStore) ListDiscussions(_ context.Context, offset, limit int, order ListOrder) ([]models.Discussion, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, 0, err
	}

	all := make([]*models.Discussion, 0, len(f.discussions))
	for _, d := range f.discussions {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool {
		if order == OrderByViews {
			if all[i].ViewCount != all[j].ViewCount {
				return all[i].ViewCount > all[j].ViewCount
			}
		} else if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	page := make([]models.Discussion, 0, end-offset)
	for _, d := range all[offset:end] {
		page = append(page, *f.snapshotLocked(d))
	}
	return page, total, nil
}

func (f *fakeStore) GetNicknames(_ context.Context, userIDs []uint) (map[uint]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}

	out := map[uint]string{}
	for _, id := range userIDs {
		if name, ok := f.nicknames[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

func (f *fakeStore) GetBookmarkedSet(_ context.Context, userID uint, discussionIDs []uint) (map[uint]bool, error) {
	return f.filterPairs(f.bookmarks, userID, discussionIDs)
}

func (f *fakeStore) GetLikedSet(_ context.Context, userID uint, discussionIDs []uint) (map[uint]bool, error) {
	return f.filterPairs(f.likes, userID, discussionIDs)
}

func (f *fakeStore) filterPairs(set map[pairKey]bool, userID uint, discussionIDs []uint) (map[uint]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}

	out := map[uint]bool{}
	for _, id := range discussionIDs {
		if set[pairKey{userID, id}] {
			out[id] = true
		}
	}
	return out, nil
}

func (f *fakeStore) ToggleBookmark(_ context.Context, userID, discussionID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return false, err
	}

	key := pairKey{userID, discussionID}
	if f.bookmarks[key] {
		delete(f.bookmarks, key)
		return false, nil
	}
	f.bookmarks[key] = true
	return true, nil
}

func (f *fakeStore) ToggleLike(_ context.Context, userID, discussionID uint) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return false, 0, err
	}

	d, ok := f.discussions[discussionID]
	if !ok {
		return false, 0, nil
	}
	key := pairKey{userID, discussionID}
	if f.likes[key] {
		delete(f.likes, key)
		d.LikeCount--
		return false, d.LikeCount, nil
	}
	f.likes[key] = true
	d.LikeCount++
	return true, d.LikeCount, nil
}

func (f *fakeStore) IsBanned(_ context.Context, userID, discussionID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return false, err
	}

	for _, ban := range f.bans {
		if ban.userID != userID {
			continue
		}
		if ban.discussionID == nil || *ban.discussionID == discussionID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) HasParticipant(_ context.Context, userID, discussionID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return false, err
	}
	return f.participants[pairKey{userID, discussionID}], nil
}

func (f *fakeStore) AddParticipant(_ context.Context, userID, discussionID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return false, err
	}

	key := pairKey{userID, discussionID}
	if f.participants[key] {
		return false, nil
	}
	f.participants[key] = true
	return true, nil
}

func (f *fakeStore) RemoveParticipant(_ context.Context, userID, discussionID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return false, err
	}

	key := pairKey{userID, discussionID}
	if !f.participants[key] {
		return false, nil
	}
	delete(f.participants, key)
	return true, nil
}

func (f *fakeStore) IncrementViewCount(_ context.Context, discussionID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return 0, err
	}

	d, ok := f.discussions[discussionID]
	if !ok {
		return 0, nil
	}
	d.ViewCount++
	return d.ViewCount, nil
}

// snapshotLocked returns a copy with child rows materialized, matching the
// preloads done by the gorm repository.
func (f *fakeStore) snapshotLocked(d *models.Discussion) *models.Discussion {
	copied := *d
	copied.Categories = nil
	for _, name := range f.categories[d.ID] {
		copied.Categories = append(copied.Categories, models.DiscussionCategory{DiscussionID: d.ID, Name: name})
	}
	copied.Images = nil
	for _, url := range f.images[d.ID] {
		copied.Images = append(copied.Images, models.DiscussionImage{DiscussionID: d.ID, URL: url})
	}
	return &copied
}

// fakeViewMarker mimics the redis SETNX dedup window.
type fakeViewMarker struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newFakeViewMarker() *fakeViewMarker {
	return &fakeViewMarker{seen: map[string]bool{}}
}

func (f *fakeViewMarker) MarkSeen(_ context.Context, visitorIP string, discussionID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}

	key := visitorIP + "/" + itoa(discussionID)
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func itoa(v uint) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
