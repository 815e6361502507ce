package cache

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ovnexplorer/ovnexplorer/internal/database"
	"github.com/ovnexplorer/ovnexplorer/internal/model"
)

// Index 历史条目索引
type Index interface {
	Record(ctx context.Context, rec *model.CacheRecord) error
}

// GormIndex 基于 SQLite 的索引
type GormIndex struct {
	db *gorm.DB
}

// NewGormIndex 创建索引，db 为 nil 时返回 nil
func NewGormIndex(db *gorm.DB) *GormIndex {
	if db == nil {
		return nil
	}
	return &GormIndex{db: db}
}

// Record 写入一条索引记录
func (i *GormIndex) Record(ctx context.Context, rec *model.CacheRecord) error {
	if i == nil {
		return nil
	}
	return database.WithRetry(i.db, func(tx *gorm.DB) error {
		return tx.WithContext(ctx).Create(rec).Error
	}, 5, 50*time.Millisecond)
}

// List 按时间倒序列出记录，kind 为空表示全部类型
func (i *GormIndex) List(ctx context.Context, kind model.Kind, limit int) ([]model.CacheRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	q := i.db.WithContext(ctx).Order("fetched_at DESC").Order("id DESC").Limit(limit)
	if kind != "" {
		q = q.Where("kind = ?", string(kind))
	}
	var out []model.CacheRecord
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
