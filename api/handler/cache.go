package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ovnexplorer/ovnexplorer/internal/cache"
	"github.com/ovnexplorer/ovnexplorer/internal/service"
)

// CacheHandler 缓存历史与刷新记录查询
type CacheHandler struct {
	cache    *cache.Cache
	index    *cache.GormIndex
	recorder *service.GormRefreshRecorder
}

// NewCacheHandler index 与 recorder 可为 nil（未启用 SQLite）
func NewCacheHandler(c *cache.Cache, index *cache.GormIndex, recorder *service.GormRefreshRecorder) *CacheHandler {
	return &CacheHandler{cache: c, index: index, recorder: recorder}
}

// History 某类型的缓存历史，按时间倒序
// @Router /api/v1/cache/{kind}/history [get]
func (h *CacheHandler) History(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	items, err := h.cache.History(kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: "CACHE_READ_FAILED", Message: err.Error()})
		return
	}
	limit := queryLimit(c, 50, 1000)
	if len(items) > limit {
		items = items[:limit]
	}
	c.JSON(http.StatusOK, SuccessResponse{
		Code:    "SUCCESS",
		Message: "获取历史成功",
		Data:    gin.H{"kind": kind, "count": len(items), "items": items},
	})
}

// Records 缓存索引记录（需要 SQLite）
// @Router /api/v1/cache/records [get]
func (h *CacheHandler) Records(c *gin.Context) {
	if h.index == nil {
		c.JSON(http.StatusNotImplemented, ErrorResponse{Code: "INDEX_DISABLED", Message: "未配置 SQLite，缓存索引不可用"})
		return
	}
	kind, ok := queryKind(c)
	if !ok {
		return
	}
	records, err := h.index.List(c.Request.Context(), kind, queryLimit(c, 50, 1000))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: "QUERY_FAILED", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: "SUCCESS", Message: "获取记录成功", Data: records})
}

// RefreshLogs 最近的刷新记录（需要 SQLite）
// @Router /api/v1/refresh-logs [get]
func (h *CacheHandler) RefreshLogs(c *gin.Context) {
	if h.recorder == nil {
		c.JSON(http.StatusNotImplemented, ErrorResponse{Code: "RECORDER_DISABLED", Message: "未配置 SQLite，刷新记录不可用"})
		return
	}
	kind, ok := queryKind(c)
	if !ok {
		return
	}
	logs, err := h.recorder.Recent(c.Request.Context(), kind, queryLimit(c, 50, 1000))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: "QUERY_FAILED", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: "SUCCESS", Message: "获取记录成功", Data: logs})
}
