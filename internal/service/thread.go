package service

import (
	"sort"
	"time"

	"github.com/qs3c/folio_comments/internal/model"
	"github.com/qs3c/folio_comments/internal/model/dto"
	"github.com/qs3c/folio_comments/internal/pkg/markdown"
)

// TopLevelOrder 顶层评论的排列顺序，回复始终按创建时间升序
type TopLevelOrder string

const (
	OrderOldest TopLevelOrder = "oldest"
	OrderNewest TopLevelOrder = "newest"
)

// ParseTopLevelOrder 解析配置值，未知值按 oldest 处理
func ParseTopLevelOrder(s string) TopLevelOrder {
	if TopLevelOrder(s) == OrderNewest {
		return OrderNewest
	}
	return OrderOldest
}

// ThreadOptions 构建评论树的参数
type ThreadOptions struct {
	Order TopLevelOrder
	// Reacted 查看者已点赞的评论 ID，匿名时为空
	Reacted map[string]struct{}
}

const (
	resolveUnknown = iota
	resolveVisiting
	resolveAttached
	resolveDetached
)

// BuildThread 将一个 slug 下的扁平评论组装成回复树。
// 父评论不存在（或已删除）的评论作为顶层评论；成环的评论也作为顶层评论。
func BuildThread(rows []model.Comment, opts ThreadOptions) []*dto.CommentItem {
	sorted := make([]*model.Comment, len(rows))
	for i := range rows {
		sorted[i] = &rows[i]
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	byID := make(map[string]*model.Comment, len(sorted))
	for _, c := range sorted {
		byID[c.ID] = c
	}

	state := resolveParents(sorted, byID)

	items := make(map[string]*dto.CommentItem, len(sorted))
	for _, c := range sorted {
		_, reacted := opts.Reacted[c.ID]
		items[c.ID] = toCommentItem(c, reacted)
	}

	roots := make([]*dto.CommentItem, 0)
	for _, c := range sorted {
		item := items[c.ID]
		if state[c.ID] == resolveDetached || c.ParentID == nil {
			roots = append(roots, item)
			continue
		}
		parent, ok := items[*c.ParentID]
		if !ok {
			roots = append(roots, item)
			continue
		}
		parent.Replies = append(parent.Replies, item)
	}

	if opts.Order == OrderNewest {
		for i, j := 0, len(roots)-1; i < j; i, j = i+1, j-1 {
			roots[i], roots[j] = roots[j], roots[i]
		}
	}

	return roots
}

// resolveParents 沿父链向上走，每个节点只解析一次。
// 走到无父或父不存在的节点即为可挂载；走回当前路径上的节点则路径中成环的部分标记为 detached。
func resolveParents(sorted []*model.Comment, byID map[string]*model.Comment) map[string]int {
	state := make(map[string]int, len(sorted))
	var path []string

	for _, start := range sorted {
		if state[start.ID] != resolveUnknown {
			continue
		}

		path = path[:0]
		cur := start
		for {
			state[cur.ID] = resolveVisiting
			path = append(path, cur.ID)

			if cur.ParentID == nil {
				break
			}
			parent, ok := byID[*cur.ParentID]
			if !ok {
				break
			}

			s := state[parent.ID]
			if s == resolveAttached || s == resolveDetached {
				break
			}
			if s == resolveVisiting {
				// parent 之后（含）的路径构成环
				inCycle := false
				for _, id := range path {
					if id == parent.ID {
						inCycle = true
					}
					if inCycle {
						state[id] = resolveDetached
					}
				}
				break
			}
			cur = parent
		}

		for _, id := range path {
			if state[id] == resolveVisiting {
				state[id] = resolveAttached
			}
		}
	}

	return state
}

func toCommentItem(c *model.Comment, viewerHasReacted bool) *dto.CommentItem {
	return &dto.CommentItem{
		ID:          c.ID,
		PostSlug:    c.PostSlug,
		ParentID:    c.ParentID,
		Content:     c.Content,
		ContentHTML: markdown.Render(c.Content),
		Author: &dto.CommentAuthor{
			ID:    c.AuthorID,
			Name:  c.AuthorName,
			Image: c.AuthorImage,
		},
		ReactionsCount:   c.ReactionsCount,
		ViewerHasReacted: viewerHasReacted,
		Replies:          []*dto.CommentItem{},
		CreatedAt:        c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
