package model

import (
	"time"
)

const (
	ReactionLike   = "LIKE"
	ReactionUnlike = "UNLIKE"
)

// Reaction 每个用户对每条评论至多一行，由复合主键保证
type Reaction struct {
	CommentID string    `gorm:"primaryKey;size:36" json:"comment_id"`
	UserID    string    `gorm:"primaryKey;size:191" json:"user_id"`
	Type      string    `gorm:"size:20;not null;default:LIKE" json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

func (Reaction) TableName() string {
	return "comment_reactions"
}
