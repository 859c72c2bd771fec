package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/agora-board/agora/models"
	"github.com/agora-board/agora/services"
)

// DiscussionRepository is the gorm-backed implementation of
// services.DiscussionStore. All multi-row writes run inside one transaction;
// existence toggles lean on the composite unique indexes so races resolve at
// the storage layer.
type DiscussionRepository struct {
	db *gorm.DB
}

// NewDiscussionRepository wraps a gorm handle.
func NewDiscussionRepository(db *gorm.DB) *DiscussionRepository {
	return &DiscussionRepository{db: db}
}

// CreateDiscussion inserts the row plus its category/image fan-out in one
// transaction.
func (r *DiscussionRepository) CreateDiscussion(ctx context.Context, d *models.Discussion, categories, images []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(d).Error; err != nil {
			return err
		}
		if len(categories) > 0 {
			if err := tx.Create(categoryRows(d.ID, categories)).Error; err != nil {
				return err
			}
		}
		if len(images) > 0 {
			if err := tx.Create(imageRows(d.ID, images)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetDiscussion loads a discussion with both child sets; (nil, nil) when absent.
func (r *DiscussionRepository) GetDiscussion(ctx context.Context, id uint) (*models.Discussion, error) {
	var d models.Discussion
	err := r.db.WithContext(ctx).
		Preload("Categories").
		Preload("Images").
		First(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateDiscussion updates the row and replaces both child sets wholesale.
func (r *DiscussionRepository) UpdateDiscussion(ctx context.Context, d *models.Discussion, categories, images []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"title":      d.Title,
			"content":    d.Content,
			"thumbnail":  d.Thumbnail,
			"start_time": d.StartTime,
			"end_time":   d.EndTime,
		}
		if err := tx.Model(&models.Discussion{}).Where("id = ?", d.ID).Updates(updates).Error; err != nil {
			return err
		}

		// delete-then-recreate: the sets are never diffed
		if err := tx.Where("discussion_id = ?", d.ID).Delete(&models.DiscussionCategory{}).Error; err != nil {
			return err
		}
		if len(categories) > 0 {
			if err := tx.Create(categoryRows(d.ID, categories)).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("discussion_id = ?", d.ID).Delete(&models.DiscussionImage{}).Error; err != nil {
			return err
		}
		if len(images) > 0 {
			if err := tx.Create(imageRows(d.ID, images)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteDiscussion removes the discussion and every dependent row atomically.
func (r *DiscussionRepository) DeleteDiscussion(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{
			&models.DiscussionCategory{},
			&models.DiscussionImage{},
			&models.Bookmark{},
			&models.Like{},
			&models.Participant{},
		} {
			if err := tx.Where("discussion_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Discussion{}, id).Error
	})
}

// ListDiscussions returns one page plus the total count.
func (r *DiscussionRepository) ListDiscussions(ctx context.Context, offset, limit int, order services.ListOrder) ([]models.Discussion, int64, error) {
	orderExpr := "created_at DESC"
	if order == services.OrderByViews {
		orderExpr = "view_count DESC"
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Discussion{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Discussion
	err := r.db.WithContext(ctx).
		Preload("Categories").
		Order(orderExpr).
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// GetNicknames batch-resolves nicknames for the given user ids.
func (r *DiscussionRepository) GetNicknames(ctx context.Context, userIDs []uint) (map[uint]string, error) {
	result := make(map[uint]string, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Select("id", "nickname").Find(&users, userIDs).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		result[u.ID] = u.Nickname
	}
	return result, nil
}

// GetBookmarkedSet returns the subset of discussionIDs the user bookmarked.
func (r *DiscussionRepository) GetBookmarkedSet(ctx context.Context, userID uint, discussionIDs []uint) (map[uint]bool, error) {
	result := make(map[uint]bool, len(discussionIDs))
	if len(discussionIDs) == 0 {
		return result, nil
	}
	var rows []models.Bookmark
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND discussion_id IN ?", userID, discussionIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, b := range rows {
		result[b.DiscussionID] = true
	}
	return result, nil
}

// GetLikedSet returns the subset of discussionIDs the user liked.
func (r *DiscussionRepository) GetLikedSet(ctx context.Context, userID uint, discussionIDs []uint) (map[uint]bool, error) {
	result := make(map[uint]bool, len(discussionIDs))
	if len(discussionIDs) == 0 {
		return result, nil
	}
	var rows []models.Like
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND discussion_id IN ?", userID, discussionIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, l := range rows {
		result[l.DiscussionID] = true
	}
	return result, nil
}

// ToggleBookmark deletes the row if present, otherwise inserts it. The delete
// takes the row lock, so concurrent toggles for the same pair serialize; a
// racing duplicate insert loses to the unique index and observes the
// post-toggle state.
func (r *DiscussionRepository) ToggleBookmark(ctx context.Context, userID, discussionID uint) (bool, error) {
	var bookmarked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND discussion_id = ?", userID, discussionID).Delete(&models.Bookmark{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			bookmarked = false
			return nil
		}
		if err := tx.Create(&models.Bookmark{UserID: userID, DiscussionID: discussionID}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				bookmarked = true
				return nil
			}
			return err
		}
		bookmarked = true
		return nil
	})
	return bookmarked, err
}

// ToggleLike flips the like row and moves the denormalized counter in the same
// transaction. A duplicate-key rejection on the insert means a concurrent add
// already won: no second increment, the loser just reports the liked state.
func (r *DiscussionRepository) ToggleLike(ctx context.Context, userID, discussionID uint) (bool, int64, error) {
	var (
		liked bool
		count int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND discussion_id = ?", userID, discussionID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			liked = false
			if err := adjustLikeCount(tx, discussionID, -1); err != nil {
				return err
			}
			return readLikeCount(tx, discussionID, &count)
		}

		if err := tx.Create(&models.Like{UserID: userID, DiscussionID: discussionID}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				liked = true
				return readLikeCount(tx, discussionID, &count)
			}
			return err
		}
		liked = true
		if err := adjustLikeCount(tx, discussionID, +1); err != nil {
			return err
		}
		return readLikeCount(tx, discussionID, &count)
	})
	return liked, count, err
}

// IsBanned checks discussion-scoped and global bans in one query.
func (r *DiscussionRepository) IsBanned(ctx context.Context, userID, discussionID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Ban{}).
		Where("user_id = ? AND (discussion_id IS NULL OR discussion_id = ?)", userID, discussionID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasParticipant reports whether the participation row exists.
func (r *DiscussionRepository) HasParticipant(ctx context.Context, userID, discussionID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Participant{}).
		Where("user_id = ? AND discussion_id = ?", userID, discussionID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddParticipant inserts the row; created=false when the unique index rejects
// a concurrent duplicate.
func (r *DiscussionRepository) AddParticipant(ctx context.Context, userID, discussionID uint) (bool, error) {
	err := r.db.WithContext(ctx).Create(&models.Participant{UserID: userID, DiscussionID: discussionID}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RemoveParticipant deletes the row; removed=false when none existed.
func (r *DiscussionRepository) RemoveParticipant(ctx context.Context, userID, discussionID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND discussion_id = ?", userID, discussionID).
		Delete(&models.Participant{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IncrementViewCount bumps the counter with a storage-side expression and
// returns the new value.
func (r *DiscussionRepository) IncrementViewCount(ctx context.Context, discussionID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Discussion{}).
			Where("id = ?", discussionID).
			UpdateColumn("view_count", gorm.Expr("view_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		var d models.Discussion
		if err := tx.Select("view_count").First(&d, discussionID).Error; err != nil {
			return err
		}
		count = d.ViewCount
		return nil
	})
	return count, err
}

func adjustLikeCount(tx *gorm.DB, discussionID uint, delta int) error {
	expr := gorm.Expr("like_count + ?", delta)
	res := tx.Model(&models.Discussion{}).Where("id = ?", discussionID).UpdateColumn("like_count", expr)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func readLikeCount(tx *gorm.DB, discussionID uint, out *int64) error {
	var d models.Discussion
	if err := tx.Select("like_count").First(&d, discussionID).Error; err != nil {
		return err
	}
	*out = d.LikeCount
	return nil
}

func categoryRows(discussionID uint, names []string) []models.DiscussionCategory {
	rows := make([]models.DiscussionCategory, 0, len(names))
	for _, name := range names {
		rows = append(rows, models.DiscussionCategory{DiscussionID: discussionID, Name: name})
	}
	return rows
}

func imageRows(discussionID uint, urls []string) []models.DiscussionImage {
	rows := make([]models.DiscussionImage, 0, len(urls))
	for _, url := range urls {
		rows = append(rows, models.DiscussionImage{DiscussionID: discussionID, URL: url})
	}
	return rows
}
