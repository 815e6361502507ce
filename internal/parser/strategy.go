package parser

import (
	"errors"

	"github.com/ovnexplorer/ovnexplorer/internal/model"
)

// Stage 解析阶段，按尝试顺序排列
type Stage string

const (
	StageNone           Stage = "none"
	StageJSON           Stage = "json"
	StageNormalizedJSON Stage = "normalized_json"
	StageTable          Stage = "table"
	StageLoose          Stage = "loose"
)

// Format 原始输出的格式分类，随缓存条目一起保存
type Format string

const (
	FormatJSON    Format = "JSON"
	FormatTable   Format = "TABLE"
	FormatUnknown Format = "UNKNOWN"
)

// FormatOf 阶段对应的格式分类
func FormatOf(stage Stage) Format {
	switch stage {
	case StageJSON, StageNormalizedJSON:
		return FormatJSON
	case StageTable:
		return FormatTable
	default:
		return FormatUnknown
	}
}

var (
	// ErrNoMatch 输入不具备该策略识别的结构
	ErrNoMatch = errors.New("no recognizable structure")
	// ErrNoIdentifier 识别出记录但没有一条带 uuid
	ErrNoIdentifier = errors.New("no record carries an identifier")
)

// Record 解析出的一条原始记录
type Record struct {
	Props map[string]interface{}
	Raw   string
}

// Strategy 单个解析策略。无法识别时返回错误，由调用方继续尝试下一个策略。
type Strategy interface {
	Name() string
	Stage() Stage
	TryParse(raw string) ([]Record, error)
}

// identified 过滤掉无法提取 uuid 的记录
func identified(records []Record) []Record {
	out := records[:0:0]
	for _, r := range records {
		if model.ExtractUUID(r.Props) != "" {
			out = append(out, r)
		}
	}
	return out
}
