package service

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ovnexplorer/ovnexplorer/internal/database"
	"github.com/ovnexplorer/ovnexplorer/internal/model"
)

// RefreshRecorder 记录每次刷新的结果
type RefreshRecorder interface {
	RecordRefresh(ctx context.Context, log *model.RefreshLog) error
}

// GormRefreshRecorder 刷新记录写入 SQLite
type GormRefreshRecorder struct {
	db *gorm.DB
}

// NewGormRefreshRecorder db 为 nil 时返回 nil
func NewGormRefreshRecorder(db *gorm.DB) *GormRefreshRecorder {
	if db == nil {
		return nil
	}
	return &GormRefreshRecorder{db: db}
}

// RecordRefresh 写入一条刷新记录
func (r *GormRefreshRecorder) RecordRefresh(ctx context.Context, log *model.RefreshLog) error {
	return database.WithRetry(r.db, func(tx *gorm.DB) error {
		return tx.WithContext(ctx).Create(log).Error
	}, 5, 50*time.Millisecond)
}

// Recent 最近的刷新记录，kind 为空表示全部
func (r *GormRefreshRecorder) Recent(ctx context.Context, kind model.Kind, limit int) ([]model.RefreshLog, error) {
	if limit <= 0 {
		limit = 50
	}
	q := r.db.WithContext(ctx).Order("id DESC").Limit(limit)
	if kind != "" {
		q = q.Where("kind = ?", string(kind))
	}
	var out []model.RefreshLog
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func refreshLogFrom(res *KindResult, start time.Time) *model.RefreshLog {
	log := &model.RefreshLog{
		Kind:           string(res.Kind),
		State:          string(res.State),
		Status:         string(res.Status),
		Stage:          string(res.Stage),
		ResourceCount:  len(res.Resources),
		ParseExhausted: res.ParseExhausted,
		StartTime:      start,
		Duration:       res.Duration.Milliseconds(),
	}
	if res.FetchErr != nil {
		log.FetchError = res.FetchErr.Error()
	}
	if res.CacheErr != nil {
		log.CacheError = res.CacheErr.Error()
	}
	return log
}
