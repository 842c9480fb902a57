package dto

// CreateCommentRequest 创建评论请求
type CreateCommentRequest struct {
	PostSlug string  `json:"postSlug" binding:"required,slug"`
	ParentID *string `json:"parentId"`
	Content  string  `json:"content" binding:"required,max=5000"`
}

// DeleteCommentRequest 删除评论请求
type DeleteCommentRequest struct {
	CommentID string `json:"commentId" binding:"required"`
}

// ReactRequest 点赞/取消点赞请求
type ReactRequest struct {
	CommentID string `json:"commentId" binding:"required"`
	Type      string `json:"type" binding:"required,reaction"`
}

// CommentItem 评论项（树节点）
type CommentItem struct {
	ID               string         `json:"id"`
	PostSlug         string         `json:"postSlug"`
	ParentID         *string        `json:"parentId"`
	Content          string         `json:"content"`
	ContentHTML      string         `json:"contentHtml"`
	Author           *CommentAuthor `json:"author"`
	ReactionsCount   int64          `json:"reactionsCount"`
	ViewerHasReacted bool           `json:"viewerHasReacted"`
	IsDeleted        bool           `json:"isDeleted"`
	Replies          []*CommentItem `json:"replies"`
	CreatedAt        string         `json:"createdAt"`
	UpdatedAt        string         `json:"updatedAt"`
}

// CommentAuthor 评论作者快照
type CommentAuthor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}
