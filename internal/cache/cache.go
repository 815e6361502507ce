package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ovnexplorer/ovnexplorer/internal/model"
	"github.com/ovnexplorer/ovnexplorer/internal/parser"
	"github.com/ovnexplorer/ovnexplorer/pkg/logger"
)

var (
	// ErrNotFound 该类型没有可用的缓存条目
	ErrNotFound = errors.New("cache entry not found")
	// ErrCorrupt 缓存文件无法读取或校验失败
	ErrCorrupt = errors.New("cache entry corrupt")
)

// Config 缓存配置，目录必须显式指定
type Config struct {
	Dir string
	// Parser 读取时重新解析使用，为空使用默认策略
	Parser *parser.Parser
	// Mirror 历史条目的异地副本，可选
	Mirror Mirror
	// Index 历史条目索引，可选
	Index Index
	// MirrorTimeout 单次镜像写入的上限
	MirrorTimeout time.Duration
	Now           func() time.Time
}

// Cache 按类型分文件的磁盘缓存：历史条目只追加，latest 条目原地覆盖
type Cache struct {
	cfg    Config
	parser *parser.Parser

	mu    sync.Mutex
	locks map[model.Kind]*sync.RWMutex
}

// SaveResult 一次写入的结果。镜像与索引失败不影响本地写入结果。
type SaveResult struct {
	Entry       *Entry
	HistoryPath string
	LatestPath  string
	MirrorURI   string
	MirrorErr   error
	IndexErr    error
}

// Snapshot 从缓存重建的单类型数据
type Snapshot struct {
	Kind      model.Kind
	FetchedAt time.Time
	// Format 保存时的格式分类
	Format parser.Format
	Path   string
	Result parser.Result
	// Recovered latest 不可用，数据来自最新的可读历史条目
	Recovered bool
}

// Resources 重新解析得到的资源
func (s *Snapshot) Resources() []model.Resource {
	return s.Result.Resources
}

// New 创建缓存并确保目录存在
func New(cfg Config) (*Cache, error) {
	cfg.Dir = strings.TrimSpace(cfg.Dir)
	if cfg.Dir == "" {
		return nil, fmt.Errorf("cache dir is empty")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MirrorTimeout <= 0 {
		cfg.MirrorTimeout = 30 * time.Second
	}
	p := cfg.Parser
	if p == nil {
		p = parser.New()
	}
	return &Cache{cfg: cfg, parser: p, locks: make(map[model.Kind]*sync.RWMutex)}, nil
}

// Dir 缓存目录
func (c *Cache) Dir() string { return c.cfg.Dir }

func (c *Cache) lock(kind model.Kind) *sync.RWMutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[kind]
	if !ok {
		l = &sync.RWMutex{}
		c.locks[kind] = l
	}
	return l
}

// Save 无条件写入一条历史条目（即使解析结果为空），再覆盖 latest。
// 重复保存相同内容会产生多条历史，latest 内容保持一致。
func (c *Cache) Save(ctx context.Context, kind model.Kind, raw string, parsed parser.Result) (*SaveResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownKind, kind)
	}
	format := parsed.Format
	if format == "" {
		format = parser.FormatUnknown
	}
	entry := &Entry{
		Kind:          kind,
		FetchedAt:     c.cfg.Now().UTC(),
		Format:        format,
		Status:        StatusOK,
		Checksum:      Checksum(raw),
		ResourceCount: len(parsed.Resources),
		RawPayload:    raw,
	}
	return c.write(ctx, entry, true)
}

// SaveFailure 记录命令执行失败：只写历史条目，latest 保持上一次成功的数据
func (c *Cache) SaveFailure(ctx context.Context, kind model.Kind, command, stdout, stderr string, exitCode int) (*SaveResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownKind, kind)
	}
	entry := &Entry{
		Kind:       kind,
		FetchedAt:  c.cfg.Now().UTC(),
		Format:     parser.FormatUnknown,
		Status:     StatusCommandFailed,
		Checksum:   Checksum(stderr),
		Command:    command,
		ExitCode:   exitCode,
		Stdout:     stdout,
		RawPayload: stderr,
	}
	return c.write(ctx, entry, false)
}

func (c *Cache) write(ctx context.Context, entry *Entry, updateLatest bool) (*SaveResult, error) {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}

	l := c.lock(entry.Kind)
	l.Lock()
	historyPath := ""
	for seq := 0; ; seq++ {
		historyPath = filepath.Join(c.cfg.Dir, historyName(entry.Kind, entry.FetchedAt, seq))
		if !exists(historyPath) {
			break
		}
	}
	res := &SaveResult{Entry: entry, HistoryPath: historyPath}
	if err := writeAtomic(historyPath, data); err != nil {
		l.Unlock()
		return res, fmt.Errorf("write history entry: %w", err)
	}
	if updateLatest {
		latestPath := filepath.Join(c.cfg.Dir, latestName(entry.Kind))
		if err := writeAtomic(latestPath, data); err != nil {
			l.Unlock()
			return res, fmt.Errorf("write latest entry: %w", err)
		}
		res.LatestPath = latestPath
	}
	l.Unlock()

	fields := logrus.Fields{"kind": entry.Kind, "status": entry.Status, "path": historyPath}
	if c.cfg.Mirror != nil {
		mctx, cancel := context.WithTimeout(ctx, c.cfg.MirrorTimeout)
		res.MirrorURI, res.MirrorErr = c.cfg.Mirror.Put(mctx, entry.Kind, filepath.Base(historyPath), data)
		cancel()
		if res.MirrorErr != nil {
			logger.WithFields(fields).Warnf("cache mirror failed: %v", res.MirrorErr)
		}
	}
	if c.cfg.Index != nil {
		res.IndexErr = c.cfg.Index.Record(ctx, &model.CacheRecord{
			Kind:          string(entry.Kind),
			FetchedAt:     entry.FetchedAt,
			Path:          historyPath,
			Format:        string(entry.Format),
			Status:        string(entry.Status),
			Checksum:      entry.Checksum,
			Size:          int64(len(data)),
			ResourceCount: entry.ResourceCount,
			MirrorURI:     res.MirrorURI,
		})
		if res.IndexErr != nil {
			logger.WithFields(fields).Warnf("cache index failed: %v", res.IndexErr)
		}
	}
	return res, nil
}

// LoadLatest 读取 latest 条目并用当前解析器重新解析。
// latest 缺失或损坏时回退到最新的可读成功历史条目；都没有时返回 ErrNotFound。
func (c *Cache) LoadLatest(kind model.Kind) (*Snapshot, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownKind, kind)
	}
	l := c.lock(kind)
	l.RLock()
	defer l.RUnlock()

	path := filepath.Join(c.cfg.Dir, latestName(kind))
	entry, err := readEntry(path, kind)
	if err == nil && entry.Status == StatusOK {
		return c.snapshot(entry, path, false), nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.ForKind(string(kind)).Warnf("latest cache entry unreadable, trying history: %v", err)
	}

	items, herr := c.history(kind)
	if herr != nil {
		return nil, herr
	}
	for _, it := range items {
		e, err := readEntry(it.Path, kind)
		if err != nil {
			logger.ForKind(string(kind)).Warnf("skip unreadable history entry %s: %v", it.Path, err)
			continue
		}
		if e.Status != StatusOK {
			continue
		}
		return c.snapshot(e, it.Path, true), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, kind)
}

// LoadAllLatest 汇总所有类型的 latest 数据，跳过没有缓存的类型
func (c *Cache) LoadAllLatest() (model.ResourceSet, error) {
	byKind := make(map[model.Kind][]model.Resource)
	var errs []error
	for _, kind := range model.AllKinds() {
		snap, err := c.LoadLatest(kind)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				errs = append(errs, fmt.Errorf("%s: %w", kind, err))
			}
			continue
		}
		byKind[kind] = snap.Resources()
	}
	return model.NewResourceSet(byKind), errors.Join(errs...)
}

// History 列出某类型的历史条目，最新在前
func (c *Cache) History(kind model.Kind) ([]HistoryItem, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownKind, kind)
	}
	l := c.lock(kind)
	l.RLock()
	defer l.RUnlock()
	return c.history(kind)
}

// ReadHistory 读取指定历史条目
func (c *Cache) ReadHistory(item HistoryItem) (*Entry, error) {
	return readEntry(item.Path, item.Kind)
}

func (c *Cache) history(kind model.Kind) ([]HistoryItem, error) {
	entries, err := os.ReadDir(c.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("read cache dir: %w", err)
	}
	var items []HistoryItem
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		at, seq, ok := parseHistoryName(kind, de.Name())
		if !ok {
			continue
		}
		items = append(items, HistoryItem{
			Kind:      kind,
			FetchedAt: at,
			Path:      filepath.Join(c.cfg.Dir, de.Name()),
			seq:       seq,
		})
	}
	sortNewestFirst(items)
	return items, nil
}

func (c *Cache) snapshot(entry *Entry, path string, recovered bool) *Snapshot {
	return &Snapshot{
		Kind:      entry.Kind,
		FetchedAt: entry.FetchedAt,
		Format:    entry.Format,
		Path:      path,
		Result:    c.parser.Parse(entry.RawPayload, entry.Kind),
		Recovered: recovered,
	}
}

// readEntry 读取缓存文件。早期版本直接保存命令输出，此类文件整体视为原始输出。
func readEntry(path string, kind model.Kind) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid json", ErrCorrupt, filepath.Base(path))
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil || probe["raw_payload"] == nil {
		info, serr := os.Stat(path)
		at := time.Time{}
		if serr == nil {
			at = info.ModTime().UTC()
		}
		return &Entry{
			Kind:       kind,
			FetchedAt:  at,
			Format:     parser.FormatUnknown,
			Status:     StatusOK,
			RawPayload: string(data),
		}, nil
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if entry.Kind != kind {
		return nil, fmt.Errorf("%w: entry kind %q, want %q", ErrCorrupt, entry.Kind, kind)
	}
	if err := entry.verify(); err != nil {
		return nil, err
	}
	if entry.Status == "" {
		entry.Status = StatusOK
	}
	return &entry, nil
}
