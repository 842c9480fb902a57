// Package validate 注册请求体的自定义校验规则
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/qs3c/folio_comments/internal/model"
)

const maxSlugLength = 191

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9]+(?:[-_][A-Za-z0-9]+)*$`)

// Register 为 gin 的默认校验器注册 slug 和 reaction 规则，并使用 json 字段名报错
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected gin validator engine")
	}
	return RegisterOn(v)
}

// RegisterOn 在指定校验器上注册规则
func RegisterOn(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonFieldName)

	if err := v.RegisterValidation("slug", isSlug); err != nil {
		return err
	}
	return v.RegisterValidation("reaction", isReaction)
}

// IsSlug 判断是否为合法的内容 slug
func IsSlug(s string) bool {
	return len(s) <= maxSlugLength && slugPattern.MatchString(s)
}

func isSlug(fl validator.FieldLevel) bool {
	return IsSlug(fl.Field().String())
}

func isReaction(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case model.ReactionLike, model.ReactionUnlike:
		return true
	}
	return false
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// Message 将绑定错误转换为简短的客户端消息
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "malformed request body"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s is too long", fe.Field())
	case "reaction":
		return fmt.Sprintf("%s must be LIKE or UNLIKE", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
