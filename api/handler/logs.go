package handler

import (
	"bufio"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ovnexplorer/ovnexplorer/internal/config"
)

// LogsHandler 日志查询处理器
type LogsHandler struct{}

func NewLogsHandler() *LogsHandler { return &LogsHandler{} }

// TailLogs 返回日志文件末尾 N 行，可按关键字、级别、资源类型过滤
// @Router /api/v1/logs [get]
func (h *LogsHandler) TailLogs(c *gin.Context) {
	cfg := config.Get()
	if cfg == nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: "CONFIG_MISSING", Message: "配置未初始化"})
		return
	}
	path := strings.TrimSpace(cfg.Log.FilePath)
	if path == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "LOG_PATH_EMPTY", Message: "日志路径未配置"})
		return
	}
	limit := queryLimit(c, 200, 1000)
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	lvl := strings.ToLower(strings.TrimSpace(c.Query("level")))
	kind, ok := queryKind(c)
	if !ok {
		return
	}

	lines, err := readAllLines(path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: "READ_FAILED", Message: "读取日志失败: " + err.Error()})
		return
	}

	filtered := make([]string, 0, len(lines))
	for _, ln := range lines {
		lc := strings.ToLower(ln)
		if q != "" && !strings.Contains(lc, q) {
			continue
		}
		// json 与 text 两种格式
		if lvl != "" && !strings.Contains(lc, `"level":"`+lvl+`"`) && !strings.Contains(lc, "level="+lvl) {
			continue
		}
		if kind != "" && !strings.Contains(ln, `"kind":"`+string(kind)+`"`) && !strings.Contains(ln, "kind="+string(kind)) {
			continue
		}
		filtered = append(filtered, ln)
	}

	if len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Code:    "SUCCESS",
		Message: "获取日志成功",
		Data: gin.H{
			"path":  path,
			"count": len(filtered),
			"lines": filtered,
		},
	})
}

func readAllLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	res := make([]string, 0, 1024)
	for s.Scan() {
		res = append(res, s.Text())
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
