package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/folio_comments/config"
	"github.com/qs3c/folio_comments/internal/model"
	"github.com/qs3c/folio_comments/internal/model/dto"
	"github.com/qs3c/folio_comments/internal/pkg/logger"
	"github.com/qs3c/folio_comments/internal/repository"
)

type ReactionService struct {
	commentRepo  *repository.CommentRepository
	reactionRepo *repository.ReactionRepository
	invalidator  Invalidator
	queryTimeout time.Duration
}

func NewReactionService(
	commentRepo *repository.CommentRepository,
	reactionRepo *repository.ReactionRepository,
	invalidator Invalidator,
	cfg *config.Config,
) *ReactionService {
	return &ReactionService{
		commentRepo:  commentRepo,
		reactionRepo: reactionRepo,
		invalidator:  invalidator,
		queryTimeout: cfg.Database.QueryTimeout(),
	}
}

// React 点赞或取消点赞，返回带最新点赞数的评论。
// 重复点赞只保留一条记录，未点赞时取消点赞不报错。
func (s *ReactionService) React(ctx context.Context, commentID string, viewer *model.Identity, action string) (*dto.CommentItem, error) {
	if viewer == nil || viewer.ID == "" {
		return nil, ErrAuthRequired
	}
	if commentID == "" {
		return nil, ErrEmptyCommentID
	}
	if action != model.ReactionLike && action != model.ReactionUnlike {
		return nil, ErrInvalidReaction
	}

	qctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	comment, err := s.commentRepo.GetByID(qctx, commentID)
	if err != nil {
		return nil, storageError(err)
	}

	if action == model.ReactionLike {
		err = s.reactionRepo.Like(qctx, comment.ID, viewer.ID)
	} else {
		err = s.reactionRepo.Unlike(qctx, comment.ID, viewer.ID)
	}
	if err != nil {
		return nil, storageError(err)
	}
	// 点赞已落库，后续读取失败也要让缓存失效
	defer s.invalidator.Invalidate(ctx, comment.PostSlug)

	count, err := s.reactionRepo.CountByCommentID(qctx, comment.ID)
	if err != nil {
		return nil, storageError(err)
	}
	comment.ReactionsCount = count

	logger.For(ctx).WithFields(logrus.Fields{
		"comment_id": comment.ID,
		"action":     action,
		"count":      count,
	}).Debug("comment reaction updated")

	return toCommentItem(comment, action == model.ReactionLike), nil
}
