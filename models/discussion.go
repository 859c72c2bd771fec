package models

import "time"

// Discussion is a debate thread created by a user. ViewCount and LikeCount are
// denormalized counters; LikeCount must equal the number of Like rows for the
// discussion at all times.
type Discussion struct {
	ID         uint                 `gorm:"primaryKey" json:"discussion_id"`
	UserID     uint                 `gorm:"index;not null" json:"user_id"`
	Title      string               `gorm:"size:255;not null" json:"title"`
	Content    string               `gorm:"type:text;not null" json:"content"`
	Thumbnail  string               `gorm:"size:512;not null" json:"thumbnail"`
	StartTime  time.Time            `gorm:"not null" json:"start_time"`
	EndTime    time.Time            `gorm:"not null" json:"end_time"`
	ViewCount  int64                `gorm:"not null;default:0" json:"view"`
	LikeCount  int64                `gorm:"not null;default:0" json:"like"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
	Categories []DiscussionCategory `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"categories"`
	Images     []DiscussionImage    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"images"`
}

// DiscussionCategory is a child row; the set is replaced wholesale on update.
type DiscussionCategory struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	DiscussionID uint   `gorm:"index;not null" json:"discussion_id"`
	Name         string `gorm:"size:64;not null" json:"name"`
}

// DiscussionImage is a child row; the set is replaced wholesale on update.
type DiscussionImage struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	DiscussionID uint   `gorm:"index;not null" json:"discussion_id"`
	URL          string `gorm:"size:512;not null" json:"url"`
}
