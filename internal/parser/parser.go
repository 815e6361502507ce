package parser

import (
	"strings"

	"github.com/ovnexplorer/ovnexplorer/internal/model"
)

// Attempt 单个策略的尝试结果
type Attempt struct {
	Strategy string
	Stage    Stage
	Records  int
	Err      error
}

// Result 一次解析的完整结果。Exhausted 表示输入非空但所有策略都未产出资源。
type Result struct {
	Resources []model.Resource
	Stage     Stage
	Format    Format
	Exhausted bool
	// Dropped 命中阶段内因缺少 uuid 或构造失败被丢弃的记录数
	Dropped  int
	Attempts []Attempt
}

// Empty 输入本身为空
func (r Result) Empty() bool {
	return len(r.Resources) == 0 && !r.Exhausted
}

// Parser 按顺序尝试策略列表，首个产出带标识记录的策略胜出
type Parser struct {
	strategies []Strategy
}

// DefaultStrategies 默认策略顺序：直接 JSON、修复后 JSON、表格文本、宽松提取
func DefaultStrategies() []Strategy {
	return []Strategy{
		JSONStrategy{},
		NormalizedJSONStrategy{},
		ColumnTableStrategy{},
		PipeTableStrategy{},
		RecordBlockStrategy{},
		LooseStrategy{},
	}
}

// New 创建解析器，未指定策略时使用默认顺序
func New(strategies ...Strategy) *Parser {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Parser{strategies: strategies}
}

var defaultParser = New()

// Parse 使用默认策略解析
func Parse(raw string, kind model.Kind) Result {
	return defaultParser.Parse(raw, kind)
}

// Parse 解析原始输出为指定类型的资源。总会返回结果，不会失败。
func (p *Parser) Parse(raw string, kind model.Kind) Result {
	res := Result{Stage: StageNone, Format: FormatUnknown}
	if strings.TrimSpace(raw) == "" {
		return res
	}

	for _, s := range p.strategies {
		records, err := s.TryParse(raw)
		attempt := Attempt{Strategy: s.Name(), Stage: s.Stage(), Records: len(records), Err: err}
		if err != nil {
			res.Attempts = append(res.Attempts, attempt)
			continue
		}

		kept := identified(records)
		if len(kept) == 0 {
			attempt.Err = ErrNoIdentifier
			res.Attempts = append(res.Attempts, attempt)
			continue
		}
		res.Attempts = append(res.Attempts, attempt)

		resources := make([]model.Resource, 0, len(kept))
		for _, rec := range kept {
			r, err := model.FromProperties(kind, rec.Props, rec.Raw)
			if err != nil {
				continue
			}
			resources = append(resources, r)
		}
		res.Dropped = len(records) - len(resources)
		if len(resources) == 0 {
			continue
		}
		res.Resources = resources
		res.Stage = s.Stage()
		res.Format = FormatOf(res.Stage)
		return res
	}

	res.Exhausted = true
	return res
}
