package cache

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"lukechampine.com/blake3"

	"github.com/ovnexplorer/ovnexplorer/internal/model"
	"github.com/ovnexplorer/ovnexplorer/internal/parser"
)

// Status 缓存条目的采集状态
type Status string

const (
	StatusOK            Status = "ok"
	StatusCommandFailed Status = "command_failed"
)

// timeLayout 历史文件名中的时间戳（UTC，字典序即时间序）
const timeLayout = "20060102T150405.000000000Z"

const latestSuffix = "_latest.json"

// Entry 单个缓存文件的内容。只保存原始输出，解析结果在读取时重新计算。
type Entry struct {
	Kind      model.Kind    `json:"kind"`
	FetchedAt time.Time     `json:"fetched_at"`
	Format    parser.Format `json:"format"`
	Status    Status        `json:"status"`
	Checksum  string        `json:"checksum"`
	// ResourceCount 保存时解析出的资源数，仅供参考
	ResourceCount int    `json:"resource_count"`
	Command       string `json:"command,omitempty"`
	ExitCode      int    `json:"exit_code,omitempty"`
	// Stdout 命令失败时的标准输出，RawPayload 保存标准错误
	Stdout     string `json:"stdout,omitempty"`
	RawPayload string `json:"raw_payload"`
}

// HistoryItem 历史条目元信息
type HistoryItem struct {
	Kind      model.Kind `json:"kind"`
	FetchedAt time.Time  `json:"fetched_at"`
	Path      string     `json:"path"`
	seq       int
}

// Checksum 原始输出的 blake3 校验值
func Checksum(raw string) string {
	sum := blake3.Sum256([]byte(raw))
	return "blake3:" + hex.EncodeToString(sum[:])
}

func (e *Entry) verify() error {
	if e.Checksum == "" {
		return nil
	}
	if got := Checksum(e.RawPayload); got != e.Checksum {
		return fmt.Errorf("%w: checksum mismatch (%s != %s)", ErrCorrupt, got, e.Checksum)
	}
	return nil
}

func latestName(kind model.Kind) string {
	return string(kind) + latestSuffix
}

func historyName(kind model.Kind, at time.Time, seq int) string {
	ts := at.UTC().Format(timeLayout)
	if seq > 0 {
		return fmt.Sprintf("%s_%s_%d.json", kind, ts, seq)
	}
	return fmt.Sprintf("%s_%s.json", kind, ts)
}

// parseHistoryName 解析历史文件名，非该类型的历史文件返回 false。
// router 与 router_port 共享前缀，依靠时间戳的严格解析区分。
func parseHistoryName(kind model.Kind, name string) (time.Time, int, bool) {
	prefix := string(kind) + "_"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, latestSuffix) {
		return time.Time{}, 0, false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json")
	ts, seqPart, hasSeq := strings.Cut(rest, "_")
	at, err := time.Parse(timeLayout, ts)
	if err != nil {
		return time.Time{}, 0, false
	}
	seq := 0
	if hasSeq {
		n, err := strconv.Atoi(seqPart)
		if err != nil || n <= 0 {
			return time.Time{}, 0, false
		}
		seq = n
	}
	return at, seq, true
}

// sortNewestFirst 按时间倒序，同一时间戳按序号倒序
func sortNewestFirst(items []HistoryItem) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].FetchedAt.Equal(items[j].FetchedAt) {
			return items[i].FetchedAt.After(items[j].FetchedAt)
		}
		return items[i].seq > items[j].seq
	})
}
