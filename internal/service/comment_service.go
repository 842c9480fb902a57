package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/folio_comments/config"
	"github.com/qs3c/folio_comments/internal/model"
	"github.com/qs3c/folio_comments/internal/model/dto"
	"github.com/qs3c/folio_comments/internal/pkg/cache"
	"github.com/qs3c/folio_comments/internal/pkg/logger"
	"github.com/qs3c/folio_comments/internal/repository"
)

type CommentService struct {
	commentRepo  *repository.CommentRepository
	reactionRepo *repository.ReactionRepository
	cache        *cache.ThreadCache
	invalidator  Invalidator
	policy       *DeletePolicy
	order        TopLevelOrder
	queryTimeout time.Duration
}

func NewCommentService(
	commentRepo *repository.CommentRepository,
	reactionRepo *repository.ReactionRepository,
	threadCache *cache.ThreadCache,
	invalidator Invalidator,
	cfg *config.Config,
) *CommentService {
	return &CommentService{
		commentRepo:  commentRepo,
		reactionRepo: reactionRepo,
		cache:        threadCache,
		invalidator:  invalidator,
		policy:       NewDeletePolicy(cfg.Site.AdminEmail),
		order:        ParseTopLevelOrder(cfg.Site.TopLevelOrder),
		queryTimeout: cfg.Database.QueryTimeout(),
	}
}

// Create 创建评论，作者信息取创建时的身份快照
func (s *CommentService) Create(ctx context.Context, author *model.Identity, req *dto.CreateCommentRequest) (*dto.CommentItem, error) {
	if author == nil || author.ID == "" {
		return nil, ErrAuthRequired
	}

	slug := strings.TrimSpace(req.PostSlug)
	if slug == "" {
		return nil, ErrEmptySlug
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyContent
	}

	var parentID *string
	if req.ParentID != nil && *req.ParentID != "" {
		parent, err := s.getComment(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, ErrCommentNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
		if parent.PostSlug != slug {
			return nil, ErrParentSlugMismatch
		}
		parentID = &parent.ID
	}

	// v7 按时间单调递增，created_at 相同时按 id 排序仍保持创建顺序
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate comment id: %w", err)
	}

	comment := &model.Comment{
		ID:          id.String(),
		PostSlug:    slug,
		ParentID:    parentID,
		Content:     req.Content,
		AuthorID:    author.ID,
		AuthorName:  author.DisplayName,
		AuthorEmail: author.Email,
		AuthorImage: author.AvatarURL,
	}

	qctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()
	if err := s.commentRepo.Create(qctx, comment); err != nil {
		return nil, storageError(err)
	}

	logger.For(ctx).WithFields(logrus.Fields{
		"comment_id": comment.ID,
		"slug":       slug,
	}).Info("comment created")

	s.invalidator.Invalidate(ctx, slug)

	return toCommentItem(comment, false), nil
}

// Delete 删除评论，返回被删除的评论（用于重新验证页面）
func (s *CommentService) Delete(ctx context.Context, commentID string, requester *model.Identity) (*dto.CommentItem, error) {
	if requester == nil {
		return nil, ErrAuthRequired
	}
	if commentID == "" {
		return nil, ErrEmptyCommentID
	}

	comment, err := s.getComment(ctx, commentID)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanDelete(comment, requester) {
		return nil, ErrCommentPermission
	}

	qctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()
	if err := s.commentRepo.Delete(qctx, comment.ID); err != nil {
		return nil, storageError(err)
	}

	logger.For(ctx).WithFields(logrus.Fields{
		"comment_id": comment.ID,
		"slug":       comment.PostSlug,
		"requester":  requester.ID,
	}).Info("comment deleted")

	s.invalidator.Invalidate(ctx, comment.PostSlug)

	return toCommentItem(comment, false), nil
}

// ListBySlug 获取 slug 的评论树，viewer 为 nil 时 viewerHasReacted 全为 false
func (s *CommentService) ListBySlug(ctx context.Context, slug string, viewer *model.Identity) ([]*dto.CommentItem, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrEmptySlug
	}

	rows, err := s.loadRows(ctx, slug)
	if err != nil {
		return nil, err
	}

	opts := ThreadOptions{Order: s.order}
	if viewer != nil && viewer.ID != "" && len(rows) > 0 {
		ids := make([]string, len(rows))
		for i, c := range rows {
			ids[i] = c.ID
		}

		qctx, cancel := withTimeout(ctx, s.queryTimeout)
		defer cancel()
		reacted, err := s.reactionRepo.ReactedCommentIDs(qctx, viewer.ID, ids)
		if err != nil {
			return nil, storageError(err)
		}
		opts.Reacted = reacted
	}

	return BuildThread(rows, opts), nil
}

// loadRows 读取与查看者无关的评论行，优先使用本地缓存
func (s *CommentService) loadRows(ctx context.Context, slug string) ([]model.Comment, error) {
	if rows, ok := s.cache.Get(slug); ok {
		return rows, nil
	}

	version := s.cache.Version(slug)

	qctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()
	rows, err := s.commentRepo.ListBySlug(qctx, slug)
	if err != nil {
		return nil, storageError(err)
	}

	s.cache.Set(slug, version, rows)
	return rows, nil
}

func (s *CommentService) getComment(ctx context.Context, id string) (*model.Comment, error) {
	qctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	comment, err := s.commentRepo.GetByID(qctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	return comment, nil
}
