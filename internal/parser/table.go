package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// ColumnTableStrategy 表头 + 横线分隔行的对齐表格，列边界取自分隔行中每段横线的起点
type ColumnTableStrategy struct{}

func (ColumnTableStrategy) Name() string { return "column_table" }
func (ColumnTableStrategy) Stage() Stage { return StageTable }

func (ColumnTableStrategy) TryParse(raw string) ([]Record, error) {
	lines := splitLines(raw)
	for i := 0; i+1 < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		starts := dashRuns(lines[i+1])
		if len(starts) == 0 {
			continue
		}
		header := []rune(lines[i])
		keys := make([]string, len(starts))
		for c := range starts {
			keys[c] = columnKey(cell(header, starts, c))
		}

		var recs []Record
		for _, line := range lines[i+2:] {
			if strings.TrimSpace(line) == "" || len(dashRuns(line)) > 0 {
				continue
			}
			row := []rune(line)
			props := make(map[string]interface{}, len(keys))
			for c, key := range keys {
				if key == "" {
					continue
				}
				if v := cell(row, starts, c); v != "" {
					props[key] = v
				}
			}
			if len(props) > 0 {
				recs = append(recs, Record{Props: props, Raw: line})
			}
		}
		if len(recs) == 0 {
			return nil, ErrNoMatch
		}
		return recs, nil
	}
	return nil, ErrNoMatch
}

// dashRuns 若整行只由横线与空白组成，返回每段横线的起始列
func dashRuns(line string) []int {
	var starts []int
	prev := ' '
	for i, r := range []rune(strings.TrimRight(line, " \t\r")) {
		switch r {
		case '-':
			if prev != '-' {
				starts = append(starts, i)
			}
		case ' ', '\t':
		default:
			return nil
		}
		prev = r
	}
	return starts
}

func cell(row []rune, starts []int, c int) string {
	from := starts[c]
	if from >= len(row) {
		return ""
	}
	to := len(row)
	if c+1 < len(starts) && starts[c+1] < to {
		to = starts[c+1]
	}
	return strings.TrimSpace(string(row[from:to]))
}

// PipeTableStrategy 以 | 分隔列的表格
type PipeTableStrategy struct{}

func (PipeTableStrategy) Name() string { return "pipe_table" }
func (PipeTableStrategy) Stage() Stage { return StageTable }

var pipeRule = regexp.MustCompile(`^[\s|+=\-]+$`)

func (PipeTableStrategy) TryParse(raw string) ([]Record, error) {
	var keys []string
	var recs []Record
	for _, line := range splitLines(raw) {
		if strings.TrimSpace(line) == "" || pipeRule.MatchString(line) {
			continue
		}
		if !strings.Contains(line, "|") {
			if keys != nil {
				break
			}
			continue
		}
		cells := splitPipe(line)
		if keys == nil {
			if len(cells) < 2 {
				return nil, ErrNoMatch
			}
			keys = make([]string, len(cells))
			for i, c := range cells {
				keys[i] = columnKey(c)
			}
			continue
		}
		props := make(map[string]interface{}, len(keys))
		for i, key := range keys {
			if i < len(cells) && key != "" && cells[i] != "" {
				props[key] = cells[i]
			}
		}
		if len(props) > 0 {
			recs = append(recs, Record{Props: props, Raw: line})
		}
	}
	if len(recs) == 0 {
		return nil, ErrNoMatch
	}
	return recs, nil
}

func splitPipe(line string) []string {
	s := strings.TrimSpace(line)
	s = strings.TrimPrefix(s, "|")
	s = strings.TrimSuffix(s, "|")
	parts := strings.Split(s, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// RecordBlockStrategy ovn-nbctl list 的默认文本格式：
//
//	_uuid               : 1111...
//	name                : sw1
//
// 空行分隔记录。
type RecordBlockStrategy struct{}

func (RecordBlockStrategy) Name() string { return "record_block" }
func (RecordBlockStrategy) Stage() Stage { return StageTable }

var recordLine = regexp.MustCompile(`^\s*([A-Za-z_][\w\-]*)\s*:\s?(.*)$`)

func (RecordBlockStrategy) TryParse(raw string) ([]Record, error) {
	var recs []Record
	var props map[string]interface{}
	var block []string
	flush := func() {
		if len(props) > 0 {
			recs = append(recs, Record{Props: props, Raw: strings.Join(block, "\n")})
		}
		props, block = nil, nil
	}
	for _, line := range splitLines(raw) {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		m := recordLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if props == nil {
			props = map[string]interface{}{}
		}
		props[m[1]] = unquote(strings.TrimSpace(m[2]))
		block = append(block, line)
	}
	flush()
	if len(recs) == 0 {
		return nil, ErrNoMatch
	}
	return recs, nil
}

func unquote(v string) string {
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		if s, err := strconv.Unquote(v); err == nil {
			return s
		}
		return v[1 : len(v)-1]
	}
	return v
}

// columnKey 表头统一为小写下划线形式，"UUID" 与 "_uuid" 均可被识别
func columnKey(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	return strings.Split(raw, "\n")
}
