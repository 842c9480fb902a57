package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/qs3c/folio_comments/internal/model"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create 创建评论
func (r *CommentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// GetByID 根据 ID 获取评论
func (r *CommentRepository) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	var comment model.Comment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// Delete 硬删除评论及其点赞，回复保留（读取时成为顶层评论）
func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", id).Delete(&model.Reaction{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Comment{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ListBySlug 获取 slug 下所有评论（含回复），按创建时间升序，附带点赞数
func (r *CommentRepository) ListBySlug(ctx context.Context, slug string) ([]model.Comment, error) {
	var comments []model.Comment
	err := r.db.WithContext(ctx).
		Where("post_slug = ?", slug).
		Order("created_at ASC").
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}

	if len(comments) == 0 {
		return comments, nil
	}

	ids := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}

	counts, err := countReactions(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}

	for i := range comments {
		comments[i].ReactionsCount = counts[comments[i].ID]
	}

	return comments, nil
}
