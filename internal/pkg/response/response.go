package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 状态码对应的默认消息
var statusMessages = map[int]string{
	http.StatusBadRequest:          "invalid request",
	http.StatusUnauthorized:        "authentication required",
	http.StatusForbidden:           "not allowed",
	http.StatusNotFound:            "not found",
	http.StatusInternalServerError: "something went wrong",
}

// ErrorBody 统一错误响应结构
type ErrorBody struct {
	Error string `json:"error"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Error 错误响应，message 为空时使用默认消息
func Error(c *gin.Context, status int, message string) {
	if message == "" {
		message = statusMessages[status]
	}
	c.AbortWithStatusJSON(status, ErrorBody{Error: message})
}

// ParamError 参数错误
func ParamError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// AuthError 未登录
func AuthError(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// PermissionError 权限不足
func PermissionError(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message)
}

// NotFoundError 资源不存在
func NotFoundError(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// ServerError 服务器错误，不向客户端暴露内部细节
func ServerError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}
