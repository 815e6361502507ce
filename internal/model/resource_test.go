package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"router":              KindRouter,
		"Logical_Switch":      KindSwitch,
		"load-balancer":       KindLoadBalancer,
		"lsp":                 KindPort,
		"Logical_Router_Port": KindRouterPort,
		" ACL ":               KindACL,
	}
	for in, want := range cases {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("bridge")
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Equal(t, "Logical_Switch_Port", KindPort.Table())
	assert.Len(t, AllKinds(), 8)
}

func TestFromPropertiesRoundTrip(t *testing.T) {
	r, err := FromProperties(KindSwitch, map[string]interface{}{"uuid": "u1", "name": "n1"}, `{"uuid":"u1"}`)
	require.NoError(t, err)

	props := r.Properties()
	assert.Equal(t, "u1", r.UUID())
	assert.Equal(t, "n1", r.Name())
	assert.Equal(t, "u1", props["uuid"])
	assert.Equal(t, "n1", props["name"])
	assert.Equal(t, `{"uuid":"u1"}`, r.RawSource())

	// 导出的是副本，修改不影响资源本身
	props["name"] = "changed"
	assert.Equal(t, "n1", r.Properties()["name"])
}

func TestFromPropertiesKeepsUnknownKeys(t *testing.T) {
	r, err := FromProperties(KindRouter, map[string]interface{}{
		"_uuid":        "r1",
		"name":         "lr0",
		"future_field": map[string]interface{}{"x": 1.0},
	}, "")
	require.NoError(t, err)

	v, ok := r.Property("future_field")
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"x": 1.0}, v)
	assert.IsType(t, &Router{}, r)
}

func TestFromPropertiesUUIDAtom(t *testing.T) {
	r, err := FromProperties(KindPort, map[string]interface{}{
		"_uuid": []interface{}{"uuid", "11111111-2222-3333-4444-555555555555"},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", r.UUID())
}

func TestFromPropertiesRejectsMissingUUID(t *testing.T) {
	_, err := FromProperties(KindSwitch, map[string]interface{}{"name": "orphan"}, "")
	assert.ErrorIs(t, err, ErrMissingUUID)

	_, err = FromProperties(KindSwitch, map[string]interface{}{"uuid": "  "}, "")
	assert.ErrorIs(t, err, ErrMissingUUID)

	_, err = FromProperties(Kind("bridge"), map[string]interface{}{"uuid": "x"}, "")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestSameIsByUUID(t *testing.T) {
	a, _ := FromProperties(KindSwitch, map[string]interface{}{"uuid": "u1", "name": "old"}, "")
	b, _ := FromProperties(KindSwitch, map[string]interface{}{"uuid": "u1", "name": "new"}, "")
	c, _ := FromProperties(KindSwitch, map[string]interface{}{"uuid": "u2", "name": "old"}, "")
	assert.True(t, Same(a, b))
	assert.False(t, Same(a, c))
	assert.False(t, Same(a, nil))
}

func TestTypedAccessors(t *testing.T) {
	lb, _ := FromProperties(KindLoadBalancer, map[string]interface{}{
		"uuid":     "lb1",
		"protocol": "tcp",
		"vips":     map[string]interface{}{"10.0.0.1:80": "192.168.0.2:8080"},
	}, "")
	assert.Equal(t, "tcp", lb.(*LoadBalancer).Protocol())
	assert.Equal(t, map[string]string{"10.0.0.1:80": "192.168.0.2:8080"}, lb.(*LoadBalancer).VIPs())

	lbText, _ := FromProperties(KindLoadBalancer, map[string]interface{}{
		"uuid": "lb2",
		"vips": `{"10.0.0.1:80"="192.168.0.2:8080", "10.0.0.2:53"="192.168.0.3:53"}`,
	}, "")
	assert.Len(t, lbText.(*LoadBalancer).VIPs(), 2)

	acl, _ := FromProperties(KindACL, map[string]interface{}{
		"uuid": "a1", "priority": "1001", "direction": "to-lport", "action": "drop", "match": "ip4",
	}, "")
	assert.Equal(t, 1001, acl.(*ACL).Priority())
	assert.Equal(t, "to-lport", acl.(*ACL).Direction())

	port, _ := FromProperties(KindPort, map[string]interface{}{
		"uuid":      "p1",
		"switch":    "s1",
		"addresses": []interface{}{"0a:58:0a:80:00:05 10.128.0.5"},
	}, "")
	assert.Equal(t, "s1", port.(*Port).ParentUUID())
	assert.Equal(t, []string{"0a:58:0a:80:00:05 10.128.0.5"}, port.(*Port).Addresses())

	lrp, _ := FromProperties(KindRouterPort, map[string]interface{}{
		"uuid": "rp1", "mac": "0a:58:64:40:00:01", "networks": "[100.64.0.1/16]", "router": "r1",
	}, "")
	assert.Equal(t, []string{"100.64.0.1/16"}, lrp.(*RouterPort).Networks())
	assert.Equal(t, "r1", lrp.(*RouterPort).ParentUUID())

	nat, _ := FromProperties(KindNAT, map[string]interface{}{
		"uuid": "n1", "type": "snat", "external_ip": "172.18.0.2", "logical_ip": "10.244.0.0/16",
	}, "")
	assert.Equal(t, "snat", nat.(*NAT).Type())
	assert.Equal(t, "172.18.0.2", nat.(*NAT).ExternalIP())
}

func TestToMap(t *testing.T) {
	r, _ := FromProperties(KindSwitch, map[string]interface{}{"uuid": "u1", "name": "n1"}, "raw")
	m := r.ToMap()
	assert.Equal(t, "switch", m["kind"])
	assert.Equal(t, "u1", m["uuid"])
	assert.Equal(t, "n1", m["name"])
	assert.Equal(t, "raw", m["raw_source"])
}

func TestResourceIsNotMutatedThroughAccessors(t *testing.T) {
	src := map[string]interface{}{
		"_uuid":        "11111111-2222-3333-4444-555555555555",
		"external_ids": map[string]interface{}{"k": "v"},
		"ports":        []interface{}{"p1", "p2"},
	}
	r, err := FromProperties(KindSwitch, src, "")
	require.NoError(t, err)

	// 构造后修改输入
	src["external_ids"].(map[string]interface{})["k"] = "changed"
	src["ports"].([]interface{})[0] = "changed"

	props := r.Properties()
	props["external_ids"].(map[string]interface{})["k"] = "MUTATED"
	props["ports"].([]interface{})[1] = "MUTATED"

	v, ok := r.Property("external_ids")
	require.True(t, ok)
	v.(map[string]interface{})["extra"] = "x"

	ext, _ := r.Property("external_ids")
	assert.Equal(t, map[string]interface{}{"k": "v"}, ext)
	ports, _ := r.Property("ports")
	assert.Equal(t, []interface{}{"p1", "p2"}, ports)
	assert.Equal(t, []string{"p1", "p2"}, r.(*Switch).Ports())
}
