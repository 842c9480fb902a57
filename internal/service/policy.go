package service

import (
	"strings"

	"github.com/qs3c/folio_comments/internal/model"
)

// NormalizeEmail 小写并去除首尾空白，邮箱只在归一化后比较
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DeleteRule 单条删除授权规则
type DeleteRule func(comment *model.Comment, requester *model.Identity) bool

// IsSiteAdmin 请求者邮箱等于站点管理员邮箱
func IsSiteAdmin(adminEmail string) DeleteRule {
	admin := NormalizeEmail(adminEmail)
	return func(_ *model.Comment, requester *model.Identity) bool {
		return admin != "" && NormalizeEmail(requester.Email) == admin
	}
}

// IsAuthorByID 请求者 ID 等于评论作者 ID
func IsAuthorByID(comment *model.Comment, requester *model.Identity) bool {
	return requester.ID != "" && requester.ID == comment.AuthorID
}

// IsAuthorByEmail 请求者邮箱等于评论作者邮箱，用于身份提供方更换了 ID 的情况
func IsAuthorByEmail(comment *model.Comment, requester *model.Identity) bool {
	email := NormalizeEmail(requester.Email)
	return email != "" && email == NormalizeEmail(comment.AuthorEmail)
}

// DeletePolicy 按顺序检查规则，任意一条通过即可删除
type DeletePolicy struct {
	rules []DeleteRule
}

// NewDeletePolicy 管理员、作者 ID、作者邮箱三条规则
func NewDeletePolicy(adminEmail string) *DeletePolicy {
	return &DeletePolicy{
		rules: []DeleteRule{
			IsSiteAdmin(adminEmail),
			IsAuthorByID,
			IsAuthorByEmail,
		},
	}
}

// CanDelete 判断 requester 能否删除 comment，无副作用
func (p *DeletePolicy) CanDelete(comment *model.Comment, requester *model.Identity) bool {
	if comment == nil || requester == nil {
		return false
	}
	for _, rule := range p.rules {
		if rule(comment, requester) {
			return true
		}
	}
	return false
}
