package parser

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// LooseStrategy 逐行提取 UUID 形式的标识，可选跟随名称：
//
//	11111111-2222-3333-4444-555555555555 (sw1)
//	11111111-2222-3333-4444-555555555555 sw1
//
// 只输出 uuid 与 name，其它内容一律忽略。
type LooseStrategy struct{}

func (LooseStrategy) Name() string { return "loose" }
func (LooseStrategy) Stage() Stage { return StageLoose }

var uuidPattern = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)

var nameToken = regexp.MustCompile(`^\s+(?:\(([^)]*)\)|([\w.:/\-]+))`)

func (LooseStrategy) TryParse(raw string) ([]Record, error) {
	seen := map[string]bool{}
	var recs []Record
	for _, line := range splitLines(raw) {
		for _, loc := range uuidPattern.FindAllStringIndex(line, -1) {
			key := line[loc[0]:loc[1]]
			if _, err := uuid.Parse(key); err != nil {
				continue
			}
			if seen[key] {
				continue
			}
			seen[key] = true

			props := map[string]interface{}{"uuid": key}
			if name := followingName(line[loc[1]:]); name != "" {
				props["name"] = name
			}
			recs = append(recs, Record{Props: props, Raw: strings.TrimSpace(line)})
		}
	}
	if len(recs) == 0 {
		return nil, ErrNoMatch
	}
	return recs, nil
}

func followingName(rest string) string {
	m := nameToken.FindStringSubmatch(rest)
	if m == nil {
		return ""
	}
	name := m[1]
	if name == "" {
		name = m[2]
	}
	name = strings.TrimSpace(name)
	if uuidPattern.MatchString(name) {
		return ""
	}
	return name
}
