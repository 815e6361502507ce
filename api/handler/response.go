package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ovnexplorer/ovnexplorer/internal/model"
	"github.com/ovnexplorer/ovnexplorer/internal/service"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuccessResponse 成功响应
type SuccessResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// KindResultView 单类型刷新结果
type KindResultView struct {
	Kind           string                   `json:"kind"`
	State          string                   `json:"state"`
	Status         string                   `json:"status"`
	Count          int                      `json:"count"`
	FetchedAt      *time.Time               `json:"fetched_at,omitempty"`
	Stage          string                   `json:"stage,omitempty"`
	Format         string                   `json:"format,omitempty"`
	ParseExhausted bool                     `json:"parse_exhausted"`
	FetchError     string                   `json:"fetch_error,omitempty"`
	CacheError     string                   `json:"cache_error,omitempty"`
	DurationMs     int64                    `json:"duration_ms"`
	Resources      []map[string]interface{} `json:"resources,omitempty"`
}

func newKindResultView(res *service.KindResult, withResources bool) KindResultView {
	v := KindResultView{
		Kind:           string(res.Kind),
		State:          string(res.State),
		Status:         string(res.Status),
		Count:          len(res.Resources),
		Stage:          string(res.Stage),
		Format:         string(res.Format),
		ParseExhausted: res.ParseExhausted,
		DurationMs:     res.Duration.Milliseconds(),
	}
	if !res.FetchedAt.IsZero() {
		t := res.FetchedAt
		v.FetchedAt = &t
	}
	if res.FetchErr != nil {
		v.FetchError = res.FetchErr.Error()
	}
	if res.CacheErr != nil {
		v.CacheError = res.CacheErr.Error()
	}
	if withResources {
		v.Resources = resourceMaps(res.Resources)
	}
	return v
}

func resourceMaps(list []model.Resource) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(list))
	for _, r := range list {
		out = append(out, resourceView(r))
	}
	return out
}

// resourceView 对外展示的资源，不包含原始输出片段
func resourceView(r model.Resource) map[string]interface{} {
	m := r.ToMap()
	delete(m, "raw_source")
	return m
}

// kindParam 解析路径中的类型参数，失败时已写入响应
func kindParam(c *gin.Context) (model.Kind, bool) {
	kind, err := model.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_KIND",
			Message: err.Error(),
		})
		return "", false
	}
	return kind, true
}

// queryKind 可选的 kind 查询参数
func queryKind(c *gin.Context) (model.Kind, bool) {
	raw := c.Query("kind")
	if raw == "" {
		return "", true
	}
	kind, err := model.ParseKind(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_KIND", Message: err.Error()})
		return "", false
	}
	return kind, true
}

func queryLimit(c *gin.Context, def, max int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit <= 0 || limit > max {
		return def
	}
	return limit
}

func isUnknownKind(err error) bool {
	return errors.Is(err, model.ErrUnknownKind)
}
