package models

import "time"

// Bookmark marks a discussion as saved by a user. Presence is the whole state;
// the composite unique index makes concurrent duplicate inserts impossible.
type Bookmark struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_bookmark_user_discussion" json:"user_id"`
	DiscussionID uint      `gorm:"not null;uniqueIndex:idx_bookmark_user_discussion" json:"discussion_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Like marks a discussion as liked by a user. Discussion.LikeCount moves in
// lockstep with rows of this table.
type Like struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_like_user_discussion" json:"user_id"`
	DiscussionID uint      `gorm:"not null;uniqueIndex:idx_like_user_discussion" json:"discussion_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Participant records that a user joined a discussion.
type Participant struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_participant_user_discussion" json:"user_id"`
	DiscussionID uint      `gorm:"not null;uniqueIndex:idx_participant_user_discussion" json:"discussion_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Ban blocks a user from participating. A NULL DiscussionID is a global ban.
type Ban struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	DiscussionID *uint     `gorm:"index" json:"discussion_id,omitempty"`
	Reason       string    `gorm:"size:255" json:"reason"`
	CreatedAt    time.Time `json:"created_at"`
}
