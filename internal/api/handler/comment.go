package handler

import (
	"errors"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/qs3c/folio_comments/internal/api/middleware"
	"github.com/qs3c/folio_comments/internal/model/dto"
	"github.com/qs3c/folio_comments/internal/pkg/logger"
	"github.com/qs3c/folio_comments/internal/pkg/response"
	"github.com/qs3c/folio_comments/internal/pkg/validate"
	"github.com/qs3c/folio_comments/internal/service"
)

type CommentHandler struct {
	commentService  *service.CommentService
	reactionService *service.ReactionService
}

func NewCommentHandler(commentService *service.CommentService, reactionService *service.ReactionService) *CommentHandler {
	return &CommentHandler{
		commentService:  commentService,
		reactionService: reactionService,
	}
}

// List 获取评论树
// GET /api/comments?slug=
func (h *CommentHandler) List(c *gin.Context) {
	slug := c.Query("slug")
	if !validate.IsSlug(slug) {
		response.ParamError(c, "slug is invalid")
		return
	}

	viewer, _ := middleware.GetIdentity(c)

	items, err := h.commentService.ListBySlug(c.Request.Context(), slug, viewer)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, gin.H{"comments": items})
}

// Create 发表评论
// POST /api/comments
func (h *CommentHandler) Create(c *gin.Context) {
	author, ok := middleware.GetIdentity(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, validate.Message(err))
		return
	}

	comment, err := h.commentService.Create(c.Request.Context(), author, &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Created(c, gin.H{"comment": comment})
}

// Delete 删除评论，评论 ID 取路径参数或请求体
// DELETE /api/comments/:id
// DELETE /api/comments
func (h *CommentHandler) Delete(c *gin.Context) {
	requester, ok := middleware.GetIdentity(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	commentID := c.Param("id")
	if commentID == "" {
		var req dto.DeleteCommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ParamError(c, validate.Message(err))
			return
		}
		commentID = req.CommentID
	}

	comment, err := h.commentService.Delete(c.Request.Context(), commentID, requester)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, gin.H{"success": true, "comment": comment})
}

// React 点赞/取消点赞
// POST /api/comments/react
func (h *CommentHandler) React(c *gin.Context) {
	viewer, ok := middleware.GetIdentity(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.ReactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, validate.Message(err))
		return
	}

	comment, err := h.reactionService.React(c.Request.Context(), req.CommentID, viewer, req.Type)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, gin.H{"success": true, "comment": comment})
}

// fail 将业务错误映射为状态码，服务器错误只返回通用消息
func (h *CommentHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrAuthRequired):
		response.AuthError(c, "")
	case errors.Is(err, service.ErrCommentPermission):
		response.PermissionError(c, err.Error())
	case errors.Is(err, service.ErrCommentNotFound):
		response.NotFoundError(c, err.Error())
	default:
		ctx := c.Request.Context()
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			ctx = sentry.SetHubOnContext(ctx, hub)
		}
		logger.ReportError(ctx, err, "comment request failed")
		response.ServerError(c, "")
	}
}
