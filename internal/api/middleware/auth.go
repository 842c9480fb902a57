package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/folio_comments/config"
	"github.com/qs3c/folio_comments/internal/model"
	"github.com/qs3c/folio_comments/internal/pkg/jwt"
	"github.com/qs3c/folio_comments/internal/pkg/logger"
	"github.com/qs3c/folio_comments/internal/pkg/response"
)

const (
	IdentityKey = "identity"
)

// Auth JWT 认证中间件
func Auth(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "")
			return
		}

		identity, err := parseIdentity(authHeader, cfg)
		if err != nil {
			logger.For(c.Request.Context()).WithError(err).Debug("rejected bearer token")
			response.AuthError(c, "invalid or expired token")
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

// OptionalAuth 可选认证中间件（不强制要求登录），令牌无效时按匿名处理
func OptionalAuth(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		if identity, err := parseIdentity(authHeader, cfg); err == nil {
			setIdentity(c, identity)
		}

		c.Next()
	}
}

// GetIdentity 从上下文获取调用者身份
func GetIdentity(c *gin.Context) (*model.Identity, bool) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return nil, false
	}
	identity, ok := v.(*model.Identity)
	return identity, ok && identity != nil
}

func parseIdentity(authHeader string, cfg config.JWTConfig) (*model.Identity, error) {
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return nil, jwt.ErrInvalidToken
	}

	claims, err := jwt.ParseToken(tokenString, cfg.Secret)
	if err != nil {
		return nil, err
	}
	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, jwt.ErrInvalidToken
	}

	return claims.Identity(), nil
}

func setIdentity(c *gin.Context, identity *model.Identity) {
	c.Set(IdentityKey, identity)
	ctx := logger.WithFields(c.Request.Context(), logrus.Fields{"user_id": identity.ID})
	c.Request = c.Request.WithContext(ctx)
}
