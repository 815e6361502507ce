package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ovnexplorer/ovnexplorer/internal/cache"
	"github.com/ovnexplorer/ovnexplorer/internal/executor"
	"github.com/ovnexplorer/ovnexplorer/internal/model"
	"github.com/ovnexplorer/ovnexplorer/internal/parser"
	"github.com/ovnexplorer/ovnexplorer/pkg/logger"
)

// Options 采集服务依赖与参数
type Options struct {
	Executor executor.CommandExecutor
	Cache    *cache.Cache
	Commands CommandSet
	// Parser 为空使用默认策略
	Parser *parser.Parser
	// FetchTimeout 单次命令执行上限
	FetchTimeout time.Duration
	// Concurrency 全量刷新时的并发类型数
	Concurrency int
	// Kinds 参与全量刷新的类型，为空表示全部
	Kinds              []model.Kind
	LoadCacheOnStartup bool
	// Recorder 刷新记录，可选
	Recorder RefreshRecorder
	// PreviewLines 调试日志中原始输出的首尾行数
	PreviewLines int
}

// AcquisitionService 编排 执行 -> 解析 -> 缓存，并维护当前资源快照
type AcquisitionService struct {
	opts   Options
	parser *parser.Parser
	group  singleflight.Group

	mutex   sync.RWMutex
	running bool
	current model.ResourceSet
	status  map[model.Kind]*KindStatus
}

// NewAcquisitionService 创建采集服务
func NewAcquisitionService(opts Options) (*AcquisitionService, error) {
	if opts.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if opts.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.PreviewLines <= 0 {
		opts.PreviewLines = 5
	}
	if len(opts.Kinds) == 0 {
		opts.Kinds = model.AllKinds()
	}
	for _, k := range opts.Kinds {
		if !k.Valid() {
			return nil, fmt.Errorf("%w: %q", model.ErrUnknownKind, k)
		}
		if len(opts.Commands[k]) == 0 {
			return nil, fmt.Errorf("no command configured for kind %s", k)
		}
	}
	p := opts.Parser
	if p == nil {
		p = parser.New()
	}

	status := make(map[model.Kind]*KindStatus, len(opts.Kinds))
	for _, k := range model.AllKinds() {
		status[k] = &KindStatus{Kind: k, State: StateUnfetched}
	}
	return &AcquisitionService{
		opts:    opts,
		parser:  p,
		current: model.NewResourceSet(nil),
		status:  status,
	}, nil
}

// Start 启动服务，按配置加载缓存作为初始数据
func (s *AcquisitionService) Start(ctx context.Context) error {
	s.mutex.Lock()
	if s.running {
		s.mutex.Unlock()
		return fmt.Errorf("acquisition service is already running")
	}
	s.running = true
	s.mutex.Unlock()

	if s.opts.LoadCacheOnStartup {
		n := s.LoadCache()
		logger.Infof("Acquisition service started, %d kinds loaded from cache %s", n, s.opts.Cache.Dir())
	} else {
		logger.Info("Acquisition service started")
	}
	return nil
}

// Stop 停止服务并关闭执行通道
func (s *AcquisitionService) Stop() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.running {
		return nil
	}
	s.running = false

	if c, ok := s.opts.Executor.(executor.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warnf("Failed to close executor: %v", err)
		}
	}
	logger.Info("Acquisition service stopped")
	return nil
}

// LoadCache 用缓存数据填充当前快照（状态 CACHED），不执行任何远端命令。返回加载的类型数。
func (s *AcquisitionService) LoadCache() int {
	loaded := 0
	for _, kind := range s.opts.Kinds {
		snap, err := s.opts.Cache.LoadLatest(kind)
		if err != nil {
			if !errors.Is(err, cache.ErrNotFound) {
				cacheErrorsTotal.WithLabelValues(string(kind), "load").Inc()
				logger.ForKind(string(kind)).Warnf("Failed to load cache: %v", err)
			}
			continue
		}
		s.mutex.Lock()
		s.current = s.current.With(kind, snap.Resources())
		st := s.status[kind]
		st.Status = StatusCached
		st.Count = len(snap.Resources())
		st.FetchedAt = snap.FetchedAt
		st.Stage = string(snap.Result.Stage)
		st.UpdatedAt = time.Now()
		s.mutex.Unlock()
		resourcesGauge.WithLabelValues(string(kind)).Set(float64(len(snap.Resources())))
		loaded++
	}
	return loaded
}

// Refresh 刷新单个类型。同一类型同时只有一个远端命令在执行，后到的调用等待并共享其结果。
// 共享的刷新不随单个调用方取消而中断，放弃等待的调用方拿到当前数据。
// 只有类型非法时返回 error，执行、解析、缓存失败都体现在结果中。
func (s *AcquisitionService) Refresh(ctx context.Context, kind model.Kind) (*KindResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownKind, kind)
	}
	if len(s.opts.Commands[kind]) == 0 {
		return nil, fmt.Errorf("no command configured for kind %s", kind)
	}

	ch := s.group.DoChan(string(kind), func() (interface{}, error) {
		return s.refresh(context.WithoutCancel(ctx), kind), nil
	})
	select {
	case r := <-ch:
		return r.Val.(*KindResult), nil
	case <-ctx.Done():
		select {
		case r := <-ch:
			return r.Val.(*KindResult), nil
		default:
		}
		return s.pending(kind, ctx.Err()), nil
	}
}

// RefreshAll 并发刷新所有类型，单个类型失败不影响其它类型。
// ctx 取消后尚未开始的类型保持原数据，已完成的类型保留各自结果。
func (s *AcquisitionService) RefreshAll(ctx context.Context) *RefreshAllResult {
	var mu sync.Mutex
	results := make(map[model.Kind]*KindResult, len(s.opts.Kinds))

	g := new(errgroup.Group)
	g.SetLimit(s.opts.Concurrency)
	for _, kind := range s.opts.Kinds {
		kind := kind
		g.Go(func() error {
			var res *KindResult
			if err := ctx.Err(); err != nil {
				res = s.pending(kind, err)
			} else {
				res, _ = s.Refresh(ctx, kind)
			}
			mu.Lock()
			results[kind] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := &RefreshAllResult{Results: results, Set: s.Current()}
	live, cached, empty := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case StatusLive:
			live++
		case StatusCached:
			cached++
		default:
			empty++
		}
	}
	logger.WithFields(logrus.Fields{"live": live, "cached": cached, "empty": empty}).Info("Refresh all finished")
	return out
}

// refresh 单次执行 -> 解析 -> 缓存。任何失败都转为结果中的状态。
func (s *AcquisitionService) refresh(ctx context.Context, kind model.Kind) *KindResult {
	start := time.Now()
	log := logger.ForKind(string(kind))
	s.setState(kind, StateFetching)

	argv := s.opts.Commands[kind]
	fctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	out, err := s.opts.Executor.Execute(fctx, argv)
	cancel()
	if err == nil && out == nil {
		out = &executor.Result{}
	}
	if err == nil {
		err = executor.Check(argv, out)
	}
	// 缓存写入不随调用方取消而中断
	saveCtx := context.WithoutCancel(ctx)

	var res *KindResult
	if err != nil {
		res = s.fallback(saveCtx, kind, argv, err)
		log.WithField("status", res.Status).Warnf("Fetch failed: %v", err)
	} else {
		res = s.accept(saveCtx, kind, argv, out)
	}
	res.Duration = time.Since(start)

	s.commit(res)

	refreshTotal.WithLabelValues(string(kind), string(res.Status)).Inc()
	refreshDuration.WithLabelValues(string(kind)).Observe(res.Duration.Seconds())
	if s.opts.Recorder != nil {
		if rerr := s.opts.Recorder.RecordRefresh(saveCtx, refreshLogFrom(res, start)); rerr != nil {
			log.Warnf("Failed to record refresh log: %v", rerr)
		}
	}
	return res
}

// accept 命令成功：解析并写入缓存
func (s *AcquisitionService) accept(ctx context.Context, kind model.Kind, argv []string, out *executor.Result) *KindResult {
	log := logger.ForKind(string(kind))
	logger.DebugCommandOutput(string(kind), strings.Join(argv, " "), out.Stdout, s.opts.PreviewLines)

	parsed := s.parser.Parse(out.Stdout, kind)
	parseStageTotal.WithLabelValues(string(kind), string(parsed.Stage)).Inc()
	if parsed.Exhausted {
		log.WithField("attempts", len(parsed.Attempts)).Warn("Output not empty but no resources could be parsed")
	} else if parsed.Dropped > 0 {
		log.Debugf("Dropped %d records without identifier", parsed.Dropped)
	}

	res := &KindResult{
		Kind:           kind,
		State:          StateFetched,
		Status:         StatusLive,
		Resources:      parsed.Resources,
		FetchedAt:      time.Now(),
		Stage:          parsed.Stage,
		Format:         parsed.Format,
		ParseExhausted: parsed.Exhausted,
	}
	if _, err := s.opts.Cache.Save(ctx, kind, out.Stdout, parsed); err != nil {
		res.CacheErr = err
		cacheErrorsTotal.WithLabelValues(string(kind), "save").Inc()
		log.Errorf("Failed to save cache: %v", err)
	}
	return res
}

// fallback 执行失败：记录失败条目，回退到缓存，缓存也没有时回退到内存中已有的数据
func (s *AcquisitionService) fallback(ctx context.Context, kind model.Kind, argv []string, fetchErr error) *KindResult {
	log := logger.ForKind(string(kind))
	res := &KindResult{Kind: kind, State: StateFetchFailed, Status: StatusEmpty, FetchErr: fetchErr, Stage: parser.StageNone, Format: parser.FormatUnknown}

	var cmdErr *executor.CommandError
	if errors.As(fetchErr, &cmdErr) {
		if _, err := s.opts.Cache.SaveFailure(ctx, kind, strings.Join(argv, " "), cmdErr.Stdout, cmdErr.Stderr, cmdErr.ExitCode); err != nil {
			cacheErrorsTotal.WithLabelValues(string(kind), "save").Inc()
			log.Warnf("Failed to record command failure: %v", err)
		}
	}

	snap, err := s.opts.Cache.LoadLatest(kind)
	if err == nil {
		res.Status = StatusCached
		res.Resources = snap.Resources()
		res.FetchedAt = snap.FetchedAt
		res.Stage = snap.Result.Stage
		res.Format = snap.Result.Format
		return res
	}
	if !errors.Is(err, cache.ErrNotFound) {
		res.CacheErr = err
		cacheErrorsTotal.WithLabelValues(string(kind), "load").Inc()
	}

	s.mutex.RLock()
	has := s.current.Has(kind)
	prev := s.current.List(kind)
	fetchedAt := s.status[kind].FetchedAt
	s.mutex.RUnlock()
	if has && len(prev) > 0 {
		res.Status = StatusCached
		res.Resources = prev
		res.FetchedAt = fetchedAt
	}
	return res
}

// commit 用本次结果替换当前快照中的该类型
func (s *AcquisitionService) commit(res *KindResult) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.current = s.current.With(res.Kind, res.Resources)
	st := s.status[res.Kind]
	st.State = res.State
	st.Status = res.Status
	st.Count = len(res.Resources)
	st.FetchedAt = res.FetchedAt
	st.Stage = string(res.Stage)
	st.ParseExhausted = res.ParseExhausted
	st.LastError = ""
	if res.FetchErr != nil {
		st.LastError = res.FetchErr.Error()
	} else if res.CacheErr != nil {
		st.LastError = res.CacheErr.Error()
	}
	st.UpdatedAt = time.Now()
	resourcesGauge.WithLabelValues(string(res.Kind)).Set(float64(len(res.Resources)))
}

// pending 调用方在刷新完成前放弃等待：返回当前持有的数据
func (s *AcquisitionService) pending(kind model.Kind, cause error) *KindResult {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	st := s.status[kind]
	res := &KindResult{
		Kind:      kind,
		State:     st.State,
		Status:    st.Status,
		Resources: s.current.List(kind),
		FetchedAt: st.FetchedAt,
		Stage:     parser.Stage(st.Stage),
		FetchErr:  cause,
	}
	if res.Status == "" {
		res.Status = StatusEmpty
	}
	return res
}

func (s *AcquisitionService) setState(kind model.Kind, state State) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.status[kind].State = state
	s.status[kind].UpdatedAt = time.Now()
}

// Current 当前快照
func (s *AcquisitionService) Current() model.ResourceSet {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.current
}

// ListResources 某类型的当前资源
func (s *AcquisitionService) ListResources(kind model.Kind) ([]model.Resource, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownKind, kind)
	}
	return s.Current().List(kind), nil
}

// GetResource 按 uuid 获取资源
func (s *AcquisitionService) GetResource(kind model.Kind, uuid string) (model.Resource, bool, error) {
	if !kind.Valid() {
		return nil, false, fmt.Errorf("%w: %q", model.ErrUnknownKind, kind)
	}
	r, ok := s.Current().Get(kind, uuid)
	return r, ok, nil
}

// Status 各类型状态，按固定顺序
func (s *AcquisitionService) Status() []KindStatus {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	out := make([]KindStatus, 0, len(s.opts.Kinds))
	for _, k := range s.opts.Kinds {
		out = append(out, *s.status[k])
	}
	return out
}

// KindStatus 单个类型状态
func (s *AcquisitionService) KindStatus(kind model.Kind) (KindStatus, error) {
	if !kind.Valid() {
		return KindStatus{}, fmt.Errorf("%w: %q", model.ErrUnknownKind, kind)
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return *s.status[kind], nil
}

// IsRunning 服务是否已启动
func (s *AcquisitionService) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}
