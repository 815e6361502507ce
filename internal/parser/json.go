package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ovnexplorer/ovnexplorer/internal/model"
)

// JSONStrategy 直接按 JSON 解析
type JSONStrategy struct{}

func (JSONStrategy) Name() string { return "json" }
func (JSONStrategy) Stage() Stage { return StageJSON }

func (JSONStrategy) TryParse(raw string) ([]Record, error) {
	return recordsFromJSON(raw)
}

// NormalizedJSONStrategy 先修复再按 JSON 解析
type NormalizedJSONStrategy struct{}

func (NormalizedJSONStrategy) Name() string { return "normalized_json" }
func (NormalizedJSONStrategy) Stage() Stage { return StageNormalizedJSON }

func (NormalizedJSONStrategy) TryParse(raw string) ([]Record, error) {
	fixed, ok := Normalize(raw)
	if !ok {
		return nil, fmt.Errorf("normalize: %w", ErrNoMatch)
	}
	return recordsFromJSON(fixed)
}

func recordsFromJSON(raw string) ([]Record, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrNoMatch
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode json: trailing data after value")
	}

	switch t := doc.(type) {
	case map[string]interface{}:
		if recs, ok := fromHeadings(t); ok {
			return recs, nil
		}
		return []Record{{Props: decodeRecord(t), Raw: trimmed}}, nil
	case []interface{}:
		recs := make([]Record, 0, len(t))
		for _, e := range t {
			obj, ok := e.(map[string]interface{})
			if !ok {
				continue
			}
			recs = append(recs, Record{Props: decodeRecord(obj), Raw: marshalFragment(obj)})
		}
		if len(recs) == 0 {
			return nil, fmt.Errorf("json array holds no objects: %w", ErrNoMatch)
		}
		return recs, nil
	default:
		return nil, fmt.Errorf("json scalar: %w", ErrNoMatch)
	}
}

// fromHeadings 处理 {"headings": [...], "data": [[...], ...]} 表格式 JSON。
// 缺少 headings 或某行长度与 headings 不一致时，该行按 key, value, key, value 成对读取。
func fromHeadings(obj map[string]interface{}) ([]Record, bool) {
	rows, ok := obj["data"].([]interface{})
	if !ok {
		return nil, false
	}
	rawHeadings, hasHeadings := obj["headings"].([]interface{})
	if !hasHeadings && model.ExtractUUID(obj) != "" {
		// 普通对象恰好有 data 字段
		return nil, false
	}
	headings := make([]string, len(rawHeadings))
	for i, h := range rawHeadings {
		headings[i] = fmt.Sprint(h)
	}

	recs := make([]Record, 0, len(rows))
	for _, r := range rows {
		row, ok := r.([]interface{})
		if !ok {
			continue
		}
		var props map[string]interface{}
		if len(headings) > 0 && len(headings) == len(row) {
			props = make(map[string]interface{}, len(headings))
			for i, h := range headings {
				props[h] = decodeAtom(row[i])
			}
		} else {
			props = fromPairs(row)
		}
		recs = append(recs, Record{Props: props, Raw: marshalFragment(row)})
	}
	return recs, true
}

// fromPairs 行内容为交替的键和值，键为列表时取第一个元素
func fromPairs(row []interface{}) map[string]interface{} {
	props := make(map[string]interface{}, len(row)/2)
	for i := 0; i+1 < len(row); i += 2 {
		key := row[i]
		if l, ok := key.([]interface{}); ok && len(l) > 0 {
			key = l[0]
		}
		if key == nil {
			continue
		}
		props[fmt.Sprint(key)] = decodeAtom(row[i+1])
	}
	return props
}

func marshalFragment(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimRight(buf.String(), "\n")
}
