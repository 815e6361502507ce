package model

import (
	"time"
)

// CacheRecord 缓存历史条目索引（文件本身仍是唯一数据源）
type CacheRecord struct {
	ID            uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Kind          string    `json:"kind" gorm:"type:varchar(32);not null;index:idx_cache_kind_time"`
	FetchedAt     time.Time `json:"fetched_at" gorm:"not null;index:idx_cache_kind_time"`
	Path          string    `json:"path" gorm:"type:varchar(512);not null"`
	Format        string    `json:"format" gorm:"type:varchar(16);not null"`
	Status        string    `json:"status" gorm:"type:varchar(32);not null"`
	Checksum      string    `json:"checksum" gorm:"type:varchar(80)"`
	Size          int64     `json:"size"`
	ResourceCount int       `json:"resource_count"`
	MirrorURI     string    `json:"mirror_uri" gorm:"type:varchar(512)"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 表名
func (CacheRecord) TableName() string {
	return "cache_records"
}

// RefreshLog 每次刷新的结果记录
type RefreshLog struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Kind           string    `json:"kind" gorm:"type:varchar(32);not null;index"`
	State          string    `json:"state" gorm:"type:varchar(16);not null"`
	Status         string    `json:"status" gorm:"type:varchar(16);not null"`
	Stage          string    `json:"stage" gorm:"type:varchar(32)"`
	ResourceCount  int       `json:"resource_count"`
	ParseExhausted bool      `json:"parse_exhausted"`
	FetchError     string    `json:"fetch_error" gorm:"type:text"`
	CacheError     string    `json:"cache_error" gorm:"type:text"`
	StartTime      time.Time `json:"start_time"`
	Duration       int64     `json:"duration"` // 毫秒
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 表名
func (RefreshLog) TableName() string {
	return "refresh_logs"
}
