package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// 错误分类，具体错误通过 %w 包装它们，handler 用 errors.Is 判断状态码
var (
	ErrValidation         = errors.New("invalid request")
	ErrAuthRequired       = errors.New("authentication required")
	ErrCommentPermission  = errors.New("not allowed to delete this comment")
	ErrCommentNotFound    = errors.New("comment not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidation       = errors.New("cache invalidation failed")
)

var (
	ErrEmptySlug          = fmt.Errorf("%w: postSlug is required", ErrValidation)
	ErrEmptyContent       = fmt.Errorf("%w: content is required", ErrValidation)
	ErrEmptyCommentID     = fmt.Errorf("%w: commentId is required", ErrValidation)
	ErrParentNotFound     = fmt.Errorf("%w: parent comment not found", ErrValidation)
	ErrParentSlugMismatch = fmt.Errorf("%w: parent comment belongs to another post", ErrValidation)
	ErrInvalidReaction    = fmt.Errorf("%w: type must be LIKE or UNLIKE", ErrValidation)
)

// storageError 将存储层错误归类，记录不存在映射为 ErrCommentNotFound，
// 其余（包括超时）一律视为可重试的 ErrStorageUnavailable
func storageError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCommentNotFound
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

// withTimeout 为单次存储操作加上超时，d <= 0 时只继承 ctx
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
