package parser

import (
	"encoding/json"
	"strings"
)

// Normalize 尝试把近似 JSON 的文本修复为严格 JSON。
// 修复项：单引号字符串、末尾多余逗号、控制字符、Python 风格的 True/False/None。
// 修复结果必须能通过严格校验才返回 ok=true，否则原样返回输入。
func Normalize(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return raw, false
	}
	if json.Valid([]byte(raw)) {
		return raw, true
	}
	repaired := repair(stripControl(raw))
	if !json.Valid([]byte(repaired)) {
		return raw, false
	}
	return repaired, true
}

// stripControl 去掉除换行、回车、制表符外的控制字符，这三者在字符串内由 repair 转义
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

var pyLiterals = map[string]string{
	"True":  "true",
	"False": "false",
	"None":  "null",
}

// repair 单遍扫描，按所处的字符串状态改写引号与逗号
func repair(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	const (
		outside = iota
		inDouble
		inSingle
	)
	state := outside
	src := []rune(s)
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch state {
		case inDouble:
			if writeEscapedControl(&b, c) {
				continue
			}
			b.WriteRune(c)
			if c == '\\' && i+1 < len(src) {
				i++
				b.WriteRune(src[i])
			} else if c == '"' {
				state = outside
			}
		case inSingle:
			switch {
			case c == '\\' && i+1 < len(src):
				i++
				if src[i] == '\'' {
					b.WriteRune('\'')
				} else {
					b.WriteRune('\\')
					b.WriteRune(src[i])
				}
			case c == '"':
				b.WriteString(`\"`)
			case c == '\'':
				b.WriteRune('"')
				state = outside
			case writeEscapedControl(&b, c):
			default:
				b.WriteRune(c)
			}
		default:
			switch {
			case c == '"':
				b.WriteRune(c)
				state = inDouble
			case c == '\'':
				b.WriteRune('"')
				state = inSingle
			case c == ',' && closesNext(src, i+1):
				// 丢弃 } 或 ] 之前的逗号
			case isIdentStart(c):
				j := i
				for j < len(src) && isIdentPart(src[j]) {
					j++
				}
				word := string(src[i:j])
				if lit, ok := pyLiterals[word]; ok {
					word = lit
				}
				b.WriteString(word)
				i = j - 1
			default:
				b.WriteRune(c)
			}
		}
	}
	return b.String()
}

// writeEscapedControl 字符串内的换行、回车、制表符写成转义序列
func writeEscapedControl(b *strings.Builder, c rune) bool {
	switch c {
	case '\n':
		b.WriteString(`\n`)
	case '\r':
		b.WriteString(`\r`)
	case '\t':
		b.WriteString(`\t`)
	default:
		return false
	}
	return true
}

func closesNext(src []rune, from int) bool {
	for i := from; i < len(src); i++ {
		switch src[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case '}', ']':
			return true
		default:
			return false
		}
	}
	return false
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}
