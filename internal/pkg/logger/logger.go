// Package logger 提供基于 logrus 的请求级日志
package logger

import (
	"context"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/folio_comments/config"
)

type ctxKey struct{}

var base = logrus.New()

// Init 根据配置设置日志级别和格式
func Init(cfg config.LogConfig) {
	base.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	if cfg.Format == "json" {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// Std 返回不带请求字段的日志条目，用于启动流程和后台任务
func Std() *logrus.Entry {
	return logrus.NewEntry(base)
}

// For 返回 ctx 上携带请求字段的日志条目，没有时退回 Std
func For(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
		return entry
	}
	return Std()
}

// NewContext 将日志条目挂到 ctx 上
func NewContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry)
}

// WithFields 在 ctx 已有条目基础上追加字段
func WithFields(ctx context.Context, fields logrus.Fields) context.Context {
	return NewContext(ctx, For(ctx).WithFields(fields))
}

// ReportError 记录错误并在配置了 Sentry 时上报
func ReportError(ctx context.Context, err error, msg string) {
	if err == nil {
		return
	}
	For(ctx).WithError(err).Error(msg)

	hub := sentry.CurrentHub()
	if h := sentry.GetHubFromContext(ctx); h != nil {
		hub = h
	}
	if hub.Client() != nil {
		hub.CaptureException(err)
	}
}
