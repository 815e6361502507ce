package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovnexplorer/ovnexplorer/internal/model"
	"github.com/ovnexplorer/ovnexplorer/internal/parser"
)

const (
	u1 = "11111111-2222-3333-4444-555555555555"
	u2 = "22222222-2222-3333-4444-555555555555"
)

var switchJSON = `{"headings":["_uuid","name"],"data":[["` + u1 + `","sw1"],["` + u2 + `","sw2"]]}`

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestCache(t *testing.T, mutate ...func(*Config)) *Cache {
	t.Helper()
	clock := &stepClock{now: time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)}
	cfg := Config{Dir: filepath.Join(t.TempDir(), "cache"), Now: clock.Now}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func uuidSet(res []model.Resource) []string {
	out := make([]string, 0, len(res))
	for _, r := range res {
		out = append(out, r.UUID())
	}
	sort.Strings(out)
	return out
}

func TestSaveThenLoadLatest(t *testing.T) {
	c := newTestCache(t)
	parsed := parser.Parse(switchJSON, model.KindSwitch)

	res, err := c.Save(context.Background(), model.KindSwitch, switchJSON, parsed)
	require.NoError(t, err)
	assert.FileExists(t, res.HistoryPath)
	assert.Equal(t, filepath.Join(c.Dir(), "switch_latest.json"), res.LatestPath)
	assert.Equal(t, parser.FormatJSON, res.Entry.Format)
	assert.Equal(t, 2, res.Entry.ResourceCount)

	snap, err := c.LoadLatest(model.KindSwitch)
	require.NoError(t, err)
	assert.Equal(t, uuidSet(parsed.Resources), uuidSet(snap.Resources()))
	assert.Equal(t, parser.FormatJSON, snap.Format)
	assert.False(t, snap.Recovered)
	assert.Equal(t, res.Entry.FetchedAt, snap.FetchedAt)
}

func TestLoadLatestReparsesStoredPayload(t *testing.T) {
	c := newTestCache(t)
	table := "uuid                                 name\n----                                 ----\n" + u1 + " sw1\n"

	// 保存时未能解析（例如旧版解析器），读取时按当前解析器重新解析
	_, err := c.Save(context.Background(), model.KindSwitch, table, parser.Result{})
	require.NoError(t, err)

	snap, err := c.LoadLatest(model.KindSwitch)
	require.NoError(t, err)
	assert.Equal(t, parser.FormatUnknown, snap.Format)
	assert.Equal(t, parser.StageTable, snap.Result.Stage)
	require.Len(t, snap.Resources(), 1)
	assert.Equal(t, "sw1", snap.Resources()[0].Name())
}

func TestSaveEmptyResultStillWritesEntries(t *testing.T) {
	c := newTestCache(t)
	res, err := c.Save(context.Background(), model.KindRouter, "", parser.Result{})
	require.NoError(t, err)
	assert.FileExists(t, res.HistoryPath)
	assert.FileExists(t, res.LatestPath)

	snap, err := c.LoadLatest(model.KindRouter)
	require.NoError(t, err)
	assert.Empty(t, snap.Resources())
}

func TestSaveIsIdempotentForLatest(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	parsed := parser.Parse(switchJSON, model.KindSwitch)

	_, err := c.Save(ctx, model.KindSwitch, switchJSON, parsed)
	require.NoError(t, err)
	_, err = c.Save(ctx, model.KindSwitch, switchJSON, parsed)
	require.NoError(t, err)

	items, err := c.History(model.KindSwitch)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.True(t, items[0].FetchedAt.After(items[1].FetchedAt))

	entry, err := readEntry(filepath.Join(c.Dir(), "switch_latest.json"), model.KindSwitch)
	require.NoError(t, err)
	prev, err := readEntry(items[1].Path, model.KindSwitch)
	require.NoError(t, err)
	assert.Equal(t, prev.RawPayload, entry.RawPayload)
	assert.Equal(t, prev.Checksum, entry.Checksum)
}

func TestSameTimestampGetsSequenceSuffix(t *testing.T) {
	fixed := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	c := newTestCache(t, func(cfg *Config) { cfg.Now = func() time.Time { return fixed } })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.Save(ctx, model.KindACL, "raw", parser.Result{})
		require.NoError(t, err)
	}
	items, err := c.History(model.KindACL)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "acl_20261019T080000.000000000Z_2.json", filepath.Base(items[0].Path))
	assert.Equal(t, "acl_20261019T080000.000000000Z.json", filepath.Base(items[2].Path))
}

func TestSaveFailureKeepsLatest(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	_, err := c.Save(ctx, model.KindSwitch, switchJSON, parser.Parse(switchJSON, model.KindSwitch))
	require.NoError(t, err)

	res, err := c.SaveFailure(ctx, model.KindSwitch, "ovn-nbctl list Logical_Switch", "", "ovn-nbctl: database connection failed", 1)
	require.NoError(t, err)
	assert.Empty(t, res.LatestPath)

	items, err := c.History(model.KindSwitch)
	require.NoError(t, err)
	require.Len(t, items, 2)
	failed, err := c.ReadHistory(items[0])
	require.NoError(t, err)
	assert.Equal(t, StatusCommandFailed, failed.Status)
	assert.Equal(t, "ovn-nbctl: database connection failed", failed.RawPayload)
	assert.Equal(t, 1, failed.ExitCode)

	snap, err := c.LoadLatest(model.KindSwitch)
	require.NoError(t, err)
	assert.Equal(t, []string{u1, u2}, uuidSet(snap.Resources()))
}

func TestLoadLatestNotFound(t *testing.T) {
	c := newTestCache(t)
	_, err := c.LoadLatest(model.KindNAT)
	assert.ErrorIs(t, err, ErrNotFound)

	// 只有失败记录时同样视为没有缓存
	_, err = c.SaveFailure(context.Background(), model.KindNAT, "cmd", "", "boom", 2)
	require.NoError(t, err)
	_, err = c.LoadLatest(model.KindNAT)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.LoadLatest(model.Kind("bridge"))
	assert.ErrorIs(t, err, model.ErrUnknownKind)
}

func TestCorruptLatestFallsBackToHistory(t *testing.T) {
	c := newTestCache(t)
	_, err := c.Save(context.Background(), model.KindSwitch, switchJSON, parser.Parse(switchJSON, model.KindSwitch))
	require.NoError(t, err)

	latest := filepath.Join(c.Dir(), "switch_latest.json")
	require.NoError(t, os.WriteFile(latest, []byte(`{"kind":"switch","raw_pay`), 0o644))

	snap, err := c.LoadLatest(model.KindSwitch)
	require.NoError(t, err)
	assert.True(t, snap.Recovered)
	assert.Equal(t, []string{u1, u2}, uuidSet(snap.Resources()))
}

func TestChecksumMismatchIsCorrupt(t *testing.T) {
	c := newTestCache(t)
	res, err := c.Save(context.Background(), model.KindSwitch, switchJSON, parser.Result{})
	require.NoError(t, err)

	tampered := `{"kind":"switch","format":"JSON","status":"ok","checksum":"` + res.Entry.Checksum + `","raw_payload":"{}"}`
	require.NoError(t, os.WriteFile(res.LatestPath, []byte(tampered), 0o644))
	_, err = readEntry(res.LatestPath, model.KindSwitch)
	assert.ErrorIs(t, err, ErrCorrupt)

	snap, err := c.LoadLatest(model.KindSwitch)
	require.NoError(t, err)
	assert.True(t, snap.Recovered)
}

func TestLegacyLatestFile(t *testing.T) {
	c := newTestCache(t)
	legacy := `[{"_uuid":"` + u1 + `","name":"lr0"}]`
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), "router_latest.json"), []byte(legacy), 0o644))

	snap, err := c.LoadLatest(model.KindRouter)
	require.NoError(t, err)
	require.Len(t, snap.Resources(), 1)
	assert.Equal(t, "lr0", snap.Resources()[0].Name())
	assert.Equal(t, parser.FormatUnknown, snap.Format)
}

func TestLoadAllLatestSkipsMissingKinds(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	_, err := c.Save(ctx, model.KindSwitch, switchJSON, parser.Result{})
	require.NoError(t, err)
	_, err = c.Save(ctx, model.KindRouter, `[{"uuid":"r1"}]`, parser.Result{})
	require.NoError(t, err)

	set, err := c.LoadAllLatest()
	require.NoError(t, err)
	assert.Equal(t, []model.Kind{model.KindRouter, model.KindSwitch}, set.Kinds())
	assert.Equal(t, 2, set.Count(model.KindSwitch))
	_, ok := set.Get(model.KindRouter, "r1")
	assert.True(t, ok)
}

func TestHistorySeparatesKindsWithSharedPrefix(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	_, err := c.Save(ctx, model.KindRouter, "r", parser.Result{})
	require.NoError(t, err)
	_, err = c.Save(ctx, model.KindRouterPort, "rp", parser.Result{})
	require.NoError(t, err)

	routers, err := c.History(model.KindRouter)
	require.NoError(t, err)
	assert.Len(t, routers, 1)
	ports, err := c.History(model.KindRouterPort)
	require.NoError(t, err)
	assert.Len(t, ports, 1)

	_, err = c.History(model.Kind("bridge"))
	assert.ErrorIs(t, err, model.ErrUnknownKind)
}

func TestConcurrentSavesOfDistinctKinds(t *testing.T) {
	c := newTestCache(t)
	var wg sync.WaitGroup
	for _, kind := range model.AllKinds() {
		wg.Add(1)
		go func(kind model.Kind) {
			defer wg.Done()
			raw := `[{"uuid":"` + string(kind) + `-id"}]`
			_, err := c.Save(context.Background(), kind, raw, parser.Result{})
			assert.NoError(t, err)
		}(kind)
	}
	wg.Wait()

	for _, kind := range model.AllKinds() {
		snap, err := c.LoadLatest(kind)
		require.NoError(t, err, kind)
		assert.Equal(t, []string{string(kind) + "-id"}, uuidSet(snap.Resources()))
	}
}

type fakeMirror struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (m *fakeMirror) Put(_ context.Context, kind model.Kind, name string, _ []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.names = append(m.names, objectName("cache", kind, name))
	return "mem://" + name, nil
}

type fakeIndex struct {
	records []*model.CacheRecord
}

func (i *fakeIndex) Record(_ context.Context, rec *model.CacheRecord) error {
	i.records = append(i.records, rec)
	return nil
}

func TestMirrorAndIndexAreBestEffort(t *testing.T) {
	mirror := &fakeMirror{}
	index := &fakeIndex{}
	c := newTestCache(t, func(cfg *Config) {
		cfg.Mirror = mirror
		cfg.Index = index
	})

	res, err := c.Save(context.Background(), model.KindSwitch, switchJSON, parser.Parse(switchJSON, model.KindSwitch))
	require.NoError(t, err)
	assert.Equal(t, "mem://"+filepath.Base(res.HistoryPath), res.MirrorURI)
	require.Len(t, mirror.names, 1)
	assert.Equal(t, "cache/switch/"+filepath.Base(res.HistoryPath), mirror.names[0])
	require.Len(t, index.records, 1)
	assert.Equal(t, res.MirrorURI, index.records[0].MirrorURI)
	assert.Equal(t, 2, index.records[0].ResourceCount)

	mirror.err = errors.New("connection refused")
	res, err = c.Save(context.Background(), model.KindSwitch, switchJSON, parser.Result{})
	require.NoError(t, err)
	assert.Error(t, res.MirrorErr)
	assert.Empty(t, res.MirrorURI)
	assert.Len(t, index.records, 2)
}

func TestNewRequiresDir(t *testing.T) {
	_, err := New(Config{Dir: "  "})
	assert.Error(t, err)
}
