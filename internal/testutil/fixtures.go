package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qs3c/folio_comments/internal/model"
)

var seq atomic.Int64

// 递增的创建时间，保证同一测试内的顺序确定
var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func nextTime() time.Time {
	return baseTime.Add(time.Duration(seq.Add(1)) * time.Second)
}

// TestIdentity 创建测试身份
func TestIdentity(opts ...func(*model.Identity)) *model.Identity {
	n := seq.Add(1)
	identity := &model.Identity{
		ID:          fmt.Sprintf("user_%d", n),
		DisplayName: fmt.Sprintf("Test User %d", n),
		Email:       fmt.Sprintf("test_%d@example.com", n),
		AvatarURL:   fmt.Sprintf("https://img.example.com/%d.png", n),
	}

	for _, opt := range opts {
		opt(identity)
	}

	return identity
}

// WithIdentityID 设置身份 ID
func WithIdentityID(id string) func(*model.Identity) {
	return func(i *model.Identity) {
		i.ID = id
	}
}

// WithIdentityEmail 设置身份邮箱
func WithIdentityEmail(email string) func(*model.Identity) {
	return func(i *model.Identity) {
		i.Email = email
	}
}

// TestComment 创建测试评论，作者为 author 的快照
func TestComment(t *testing.T, db *gorm.DB, author *model.Identity, slug, content string, opts ...func(*model.Comment)) *model.Comment {
	t.Helper()

	createdAt := nextTime()
	comment := &model.Comment{
		ID:          uuid.NewString(),
		PostSlug:    slug,
		Content:     content,
		AuthorID:    author.ID,
		AuthorName:  author.DisplayName,
		AuthorEmail: author.Email,
		AuthorImage: author.AvatarURL,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	for _, opt := range opts {
		opt(comment)
	}

	if err := db.Create(comment).Error; err != nil {
		t.Fatalf("Failed to create test comment: %v", err)
	}

	return comment
}

// TestReply 创建测试回复
func TestReply(t *testing.T, db *gorm.DB, author *model.Identity, parent *model.Comment, content string) *model.Comment {
	t.Helper()

	parentID := parent.ID
	return TestComment(t, db, author, parent.PostSlug, content, WithParentID(parentID))
}

// WithParentID 设置父评论
func WithParentID(parentID string) func(*model.Comment) {
	return func(c *model.Comment) {
		c.ParentID = &parentID
	}
}

// WithCommentID 设置评论 ID
func WithCommentID(id string) func(*model.Comment) {
	return func(c *model.Comment) {
		c.ID = id
	}
}

// WithCreatedAt 设置创建时间
func WithCreatedAt(at time.Time) func(*model.Comment) {
	return func(c *model.Comment) {
		c.CreatedAt = at
		c.UpdatedAt = at
	}
}

// TestReaction 创建测试点赞
func TestReaction(t *testing.T, db *gorm.DB, commentID, userID string) *model.Reaction {
	t.Helper()

	reaction := &model.Reaction{
		CommentID: commentID,
		UserID:    userID,
		Type:      model.ReactionLike,
	}

	if err := db.Create(reaction).Error; err != nil {
		t.Fatalf("Failed to create test reaction: %v", err)
	}

	return reaction
}
