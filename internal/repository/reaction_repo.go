package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/folio_comments/internal/model"
)

type ReactionRepository struct {
	db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// Like 点赞，(comment_id, user_id) 已存在时什么都不做。
// 由主键约束去重，并发点赞不会产生重复行。
func (r *ReactionRepository) Like(ctx context.Context, commentID, userID string) error {
	reaction := &model.Reaction{
		CommentID: commentID,
		UserID:    userID,
		Type:      model.ReactionLike,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(reaction).Error
}

// Unlike 取消点赞，不存在时不报错
func (r *ReactionRepository) Unlike(ctx context.Context, commentID, userID string) error {
	return r.db.WithContext(ctx).
		Where("comment_id = ? AND user_id = ?", commentID, userID).
		Delete(&model.Reaction{}).Error
}

// CountByCommentID 获取评论的点赞数
func (r *ReactionRepository) CountByCommentID(ctx context.Context, commentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Reaction{}).
		Where("comment_id = ?", commentID).
		Count(&count).Error
	return count, err
}

// ReactedCommentIDs 返回 commentIDs 中用户已点赞的集合
func (r *ReactionRepository) ReactedCommentIDs(ctx context.Context, userID string, commentIDs []string) (map[string]struct{}, error) {
	reacted := make(map[string]struct{})
	if len(commentIDs) == 0 || userID == "" {
		return reacted, nil
	}

	var ids []string
	err := r.db.WithContext(ctx).Model(&model.Reaction{}).
		Where("user_id = ? AND comment_id IN ?", userID, commentIDs).
		Pluck("comment_id", &ids).Error
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		reacted[id] = struct{}{}
	}
	return reacted, nil
}

type reactionCount struct {
	CommentID string
	Total     int64
}

// countReactions 批量统计点赞数
func countReactions(ctx context.Context, db *gorm.DB, commentIDs []string) (map[string]int64, error) {
	var rows []reactionCount
	err := db.WithContext(ctx).Model(&model.Reaction{}).
		Select("comment_id, COUNT(*) AS total").
		Where("comment_id IN ?", commentIDs).
		Group("comment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.CommentID] = row.Total
	}
	return counts, nil
}

// orphanScope 评论已不存在的点赞（点赞与删除并发时可能留下）
func orphanScope(db *gorm.DB) *gorm.DB {
	return db.Where("comment_id NOT IN (?)", db.Session(&gorm.Session{NewDB: true}).Model(&model.Comment{}).Select("id"))
}

// CountOrphans 统计孤立点赞数
func (r *ReactionRepository) CountOrphans(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Reaction{}).Scopes(orphanScope).Count(&count).Error
	return count, err
}

// DeleteOrphans 删除孤立点赞，返回删除条数
func (r *ReactionRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Scopes(orphanScope).Delete(&model.Reaction{})
	return result.RowsAffected, result.Error
}
