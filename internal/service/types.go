package service

import (
	"time"

	"github.com/ovnexplorer/ovnexplorer/internal/model"
	"github.com/ovnexplorer/ovnexplorer/internal/parser"
)

// State 单个资源类型的采集状态
type State string

const (
	StateUnfetched   State = "UNFETCHED"
	StateFetching    State = "FETCHING"
	StateFetched     State = "FETCHED"
	StateFetchFailed State = "FETCH_FAILED"
)

// DataStatus 展示层看到的数据来源
type DataStatus string

const (
	// StatusLive 本轮实时采集的数据
	StatusLive DataStatus = "LIVE"
	// StatusCached 采集失败，使用缓存中最近一次成功的数据
	StatusCached DataStatus = "CACHED"
	// StatusEmpty 采集失败且没有缓存
	StatusEmpty DataStatus = "EMPTY"
)

// KindResult 单个类型一次刷新的结果。多个等待同一次刷新的调用方共享该值，只读。
type KindResult struct {
	Kind      model.Kind
	State     State
	Status    DataStatus
	Resources []model.Resource
	// FetchedAt 数据的采集时间，缓存数据为缓存条目时间
	FetchedAt time.Time
	Stage     parser.Stage
	Format    parser.Format
	// ParseExhausted 输出非空但没有解析出任何资源
	ParseExhausted bool
	// FetchErr 执行失败原因（TransportError / CommandError / 超时）
	FetchErr error
	// CacheErr 缓存读写失败，不影响返回的数据
	CacheErr error
	Duration time.Duration
}

// Live 数据是否来自本轮实时采集
func (r *KindResult) Live() bool { return r.Status == StatusLive }

// RefreshAllResult 全量刷新结果，按类型分别报告
type RefreshAllResult struct {
	Results map[model.Kind]*KindResult
	// Set 刷新完成后的当前快照
	Set model.ResourceSet
}

// Status 某类型的数据来源，未参与刷新时为空
func (r *RefreshAllResult) Status(kind model.Kind) DataStatus {
	if res, ok := r.Results[kind]; ok {
		return res.Status
	}
	return ""
}

// KindStatus 对外暴露的类型状态
type KindStatus struct {
	Kind           model.Kind `json:"kind"`
	State          State      `json:"state"`
	Status         DataStatus `json:"status"`
	Count          int        `json:"count"`
	FetchedAt      time.Time  `json:"fetched_at,omitempty"`
	Stage          string     `json:"stage,omitempty"`
	ParseExhausted bool       `json:"parse_exhausted"`
	LastError      string     `json:"last_error,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at,omitempty"`
}
