package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ovnexplorer/ovnexplorer/internal/model"
	"github.com/ovnexplorer/ovnexplorer/internal/service"
	"github.com/ovnexplorer/ovnexplorer/pkg/logger"
)

// ResourceHandler 资源查询与刷新处理器
type ResourceHandler struct {
	svc *service.AcquisitionService
}

// NewResourceHandler 创建资源处理器
func NewResourceHandler(svc *service.AcquisitionService) *ResourceHandler {
	return &ResourceHandler{svc: svc}
}

// RefreshAll 刷新全部类型
// @Summary 全量刷新
// @Tags resources
// @Produce json
// @Param resources query bool false "是否返回资源明细"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/resources/refresh [post]
func (h *ResourceHandler) RefreshAll(c *gin.Context) {
	withResources := c.Query("resources") == "true"
	out := h.svc.RefreshAll(c.Request.Context())

	views := make([]KindResultView, 0, len(out.Results))
	for _, kind := range model.AllKinds() {
		if res, ok := out.Results[kind]; ok {
			views = append(views, newKindResultView(res, withResources))
		}
	}
	c.JSON(http.StatusOK, SuccessResponse{
		Code:    "SUCCESS",
		Message: "刷新完成",
		Data:    views,
	})
}

// RefreshKind 刷新单个类型
// @Summary 单类型刷新
// @Tags resources
// @Produce json
// @Param kind path string true "资源类型"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse "类型不存在"
// @Router /api/v1/resources/{kind}/refresh [post]
func (h *ResourceHandler) RefreshKind(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	res, err := h.svc.Refresh(c.Request.Context(), kind)
	if err != nil {
		status := http.StatusInternalServerError
		if isUnknownKind(err) {
			status = http.StatusBadRequest
		}
		c.JSON(status, ErrorResponse{Code: "REFRESH_FAILED", Message: err.Error()})
		return
	}
	if res.FetchErr != nil {
		logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"kind":       kind,
			"status":     res.Status,
		}).Warnf("Refresh served non-live data: %v", res.FetchErr)
	}
	c.JSON(http.StatusOK, SuccessResponse{
		Code:    "SUCCESS",
		Message: "刷新完成",
		Data:    newKindResultView(res, c.Query("resources") != "false"),
	})
}

// ListResources 某类型当前资源
// @Summary 资源列表
// @Tags resources
// @Produce json
// @Param kind path string true "资源类型"
// @Param name query string false "按名称过滤"
// @Router /api/v1/resources/{kind} [get]
func (h *ResourceHandler) ListResources(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	list, err := h.svc.ListResources(kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_KIND", Message: err.Error()})
		return
	}
	if name := c.Query("name"); name != "" {
		filtered := make([]model.Resource, 0, len(list))
		for _, r := range list {
			if r.Name() == name {
				filtered = append(filtered, r)
			}
		}
		list = filtered
	}
	st, _ := h.svc.KindStatus(kind)
	c.JSON(http.StatusOK, SuccessResponse{
		Code:    "SUCCESS",
		Message: "获取资源成功",
		Data: gin.H{
			"kind":      kind,
			"status":    st.Status,
			"state":     st.State,
			"count":     len(list),
			"resources": resourceMaps(list),
		},
	})
}

// GetResource 按 uuid 获取资源，附带父资源
// @Summary 资源详情
// @Tags resources
// @Produce json
// @Param kind path string true "资源类型"
// @Param uuid path string true "资源 uuid"
// @Failure 404 {object} ErrorResponse "资源不存在"
// @Router /api/v1/resources/{kind}/{uuid} [get]
func (h *ResourceHandler) GetResource(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	r, found, err := h.svc.GetResource(kind, c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_KIND", Message: err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "RESOURCE_NOT_FOUND",
			Message: "资源不存在",
		})
		return
	}
	data := gin.H{"resource": resourceView(r)}
	if parent, ok := h.svc.Current().Parent(r); ok {
		data["parent"] = gin.H{"kind": parent.Kind(), "uuid": parent.UUID(), "name": parent.Name()}
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: "SUCCESS", Message: "获取资源成功", Data: data})
}

// Status 各类型采集状态
// @Router /api/v1/resources/status [get]
func (h *ResourceHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse{
		Code:    "SUCCESS",
		Message: "获取状态成功",
		Data:    h.svc.Status(),
	})
}

// Health 健康检查
// @Success 200 {object} SuccessResponse "服务正常"
// @Failure 503 {object} ErrorResponse "服务异常"
// @Router /api/v1/health [get]
func (h *ResourceHandler) Health(c *gin.Context) {
	if !h.svc.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Code:    "SERVICE_UNAVAILABLE",
			Message: "采集服务未运行",
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{
		Code:    "SUCCESS",
		Message: "服务正常",
		Data:    gin.H{"running": true, "resources": h.svc.Current().Len()},
	})
}
