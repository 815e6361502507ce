package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// OutputPreview 命令回显的头部与尾部行
type OutputPreview struct {
	HeadLines  []string `json:"head_lines"`
	TailLines  []string `json:"tail_lines"`
	TotalLines int      `json:"total_lines"`
}

// PreviewOutput 截取回显的前后各 maxLines 行，行数不足时 tail 与 head 相同
func PreviewOutput(output string, maxLines int) OutputPreview {
	if maxLines <= 0 {
		maxLines = 5
	}
	output = strings.ReplaceAll(output, "\r\n", "\n")
	output = strings.TrimRight(output, "\n")
	if output == "" {
		return OutputPreview{}
	}

	lines := strings.Split(output, "\n")
	total := len(lines)

	headCount := maxLines
	if headCount > total {
		headCount = total
	}
	head := make([]string, headCount)
	copy(head, lines[:headCount])

	var tail []string
	if total <= maxLines {
		tail = make([]string, headCount)
		copy(tail, head)
	} else {
		tail = make([]string, maxLines)
		copy(tail, lines[total-maxLines:])
	}

	return OutputPreview{HeadLines: head, TailLines: tail, TotalLines: total}
}

// String 单行格式，便于写入日志
func (p OutputPreview) String() string {
	if len(p.HeadLines) == 0 {
		return ""
	}
	parts := []string{"head-lines: [" + strings.Join(p.HeadLines, " ⟩ ") + "]"}
	if !sameLines(p.HeadLines, p.TailLines) {
		parts = append(parts, "tail-lines: ["+strings.Join(p.TailLines, " ⟩ ")+"]")
	}
	return strings.Join(parts, ", ")
}

func sameLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DebugCommandOutput 仅在 debug 级别记录命令回显摘要
func DebugCommandOutput(kind, command, output string, maxLines int) {
	if GetLogger().Level < logrus.DebugLevel {
		return
	}
	p := PreviewOutput(output, maxLines)
	if p.TotalLines == 0 {
		return
	}
	WithFields(logrus.Fields{"kind": kind, "lines": p.TotalLines}).
		Debugf("Command echo [%s]: %s", command, p.String())
}
