package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustResource(t *testing.T, kind Kind, props map[string]interface{}) Resource {
	t.Helper()
	r, err := FromProperties(kind, props, "")
	require.NoError(t, err)
	return r
}

func TestResourceSetGetAndList(t *testing.T) {
	s1 := mustResource(t, KindSwitch, map[string]interface{}{"uuid": "s1", "name": "sw1"})
	s2 := mustResource(t, KindSwitch, map[string]interface{}{"uuid": "s2", "name": "sw2"})
	set := NewResourceSet(map[Kind][]Resource{KindSwitch: {s1, s2}})

	assert.Equal(t, 2, set.Count(KindSwitch))
	assert.Equal(t, []string{"s1", "s2"}, set.UUIDs(KindSwitch))
	got, ok := set.Get(KindSwitch, "s2")
	require.True(t, ok)
	assert.Equal(t, "sw2", got.Name())

	_, ok = set.Get(KindRouter, "s2")
	assert.False(t, ok)
	found, ok := set.Find("s1")
	require.True(t, ok)
	assert.Equal(t, KindSwitch, found.Kind())

	// List 返回副本
	list := set.List(KindSwitch)
	list[0] = nil
	assert.Equal(t, "s1", set.List(KindSwitch)[0].UUID())
}

func TestResourceSetDuplicateUUIDKeepsLatestVersion(t *testing.T) {
	old := mustResource(t, KindSwitch, map[string]interface{}{"uuid": "s1", "name": "old"})
	other := mustResource(t, KindSwitch, map[string]interface{}{"uuid": "s2"})
	newer := mustResource(t, KindSwitch, map[string]interface{}{"uuid": "s1", "name": "new"})
	set := NewResourceSet(map[Kind][]Resource{KindSwitch: {old, other, newer}})

	assert.Equal(t, []string{"s1", "s2"}, set.UUIDs(KindSwitch))
	got, _ := set.Get(KindSwitch, "s1")
	assert.Equal(t, "new", got.Name())
}

func TestResourceSetWithIsCopyOnWrite(t *testing.T) {
	r1 := mustResource(t, KindRouter, map[string]interface{}{"uuid": "r1"})
	base := NewResourceSet(map[Kind][]Resource{KindRouter: {r1}})

	s1 := mustResource(t, KindSwitch, map[string]interface{}{"uuid": "s1"})
	next := base.With(KindSwitch, []Resource{s1})

	assert.False(t, base.Has(KindSwitch))
	assert.True(t, next.Has(KindSwitch))
	assert.True(t, next.Has(KindRouter))
	assert.Equal(t, []Kind{KindRouter, KindSwitch}, next.Kinds())
	assert.Equal(t, 2, next.Len())

	empty := next.With(KindRouter, nil)
	assert.True(t, empty.Has(KindRouter))
	assert.Equal(t, 0, empty.Count(KindRouter))
	assert.Equal(t, 1, next.Count(KindRouter))
}

func TestResourceSetParent(t *testing.T) {
	sw := mustResource(t, KindSwitch, map[string]interface{}{
		"uuid": "s1", "name": "node1", "ports": []interface{}{"p1", "p2"},
	})
	explicit := mustResource(t, KindPort, map[string]interface{}{"uuid": "p3", "parent_uuid": "s1"})
	byName := mustResource(t, KindPort, map[string]interface{}{"uuid": "p4", "switch": "node1"})
	implicit := mustResource(t, KindPort, map[string]interface{}{"uuid": "p2"})
	dangling := mustResource(t, KindPort, map[string]interface{}{"uuid": "p9", "parent_uuid": "missing"})
	set := NewResourceSet(map[Kind][]Resource{
		KindSwitch: {sw},
		KindPort:   {explicit, byName, implicit, dangling},
	})

	for _, p := range []Resource{explicit, byName, implicit} {
		parent, ok := set.Parent(p)
		require.True(t, ok, p.UUID())
		assert.Equal(t, "s1", parent.UUID())
	}

	_, ok := set.Parent(dangling)
	assert.False(t, ok)
	_, ok = set.Parent(sw)
	assert.False(t, ok)
}

func TestResourceSetZeroValue(t *testing.T) {
	var set ResourceSet
	assert.Equal(t, 0, set.Len())
	assert.Empty(t, set.List(KindSwitch))
	_, ok := set.Get(KindSwitch, "x")
	assert.False(t, ok)
	assert.Empty(t, set.ToMap())
}
