package model

import (
	"time"
)

// Comment 评论，作者信息为创建时的快照
type Comment struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	PostSlug    string    `gorm:"size:191;not null;index:idx_comments_slug_created,priority:1" json:"post_slug"`
	ParentID    *string   `gorm:"size:36;index" json:"parent_id"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	AuthorID    string    `gorm:"size:191;not null;index" json:"author_id"`
	AuthorName  string    `gorm:"size:191" json:"author_name"`
	AuthorEmail string    `gorm:"size:191" json:"author_email"`
	AuthorImage string    `gorm:"size:500" json:"author_image"`
	CreatedAt   time.Time `gorm:"index:idx_comments_slug_created,priority:2" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// 读取时计算
	ReactionsCount   int64 `gorm:"-" json:"reactions_count"`
	ViewerHasReacted bool  `gorm:"-" json:"viewer_has_reacted"`
}

func (Comment) TableName() string {
	return "comments"
}
