package testutil

import (
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/qs3c/folio_comments/config"
	"github.com/qs3c/folio_comments/internal/database"
	"github.com/qs3c/folio_comments/internal/model"
)

// SetupTestDB 打开内存 SQLite 并迁移评论相关表
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB 关闭底层连接
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("Warning: get underlying DB: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Logf("Warning: close test database: %v", err)
	}
}

// CountRows 统计某个模型的行数
func CountRows(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()

	var n int64
	if err := db.Model(m).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", m, err)
	}
	return n
}

// CountReactions 统计某条评论的点赞行数
func CountReactions(t *testing.T, db *gorm.DB, commentID string) int64 {
	t.Helper()

	var n int64
	if err := db.Model(&model.Reaction{}).Where("comment_id = ?", commentID).Count(&n).Error; err != nil {
		t.Fatalf("count reactions: %v", err)
	}
	return n
}
