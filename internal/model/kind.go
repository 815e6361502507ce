package model

import (
	"errors"
	"fmt"
	"strings"
)

// Kind OVN 北向资源类型
type Kind string

const (
	KindRouter       Kind = "router"
	KindSwitch       Kind = "switch"
	KindLoadBalancer Kind = "load_balancer"
	KindPort         Kind = "port"
	KindRouterPort   Kind = "router_port"
	KindACL          Kind = "acl"
	KindNAT          Kind = "nat"
	KindAddressSet   Kind = "address_set"
)

// ErrUnknownKind 请求了未定义的资源类型
var ErrUnknownKind = errors.New("unknown resource kind")

// allKinds 固定顺序，刷新与输出均按此顺序
var allKinds = []Kind{
	KindRouter,
	KindSwitch,
	KindLoadBalancer,
	KindPort,
	KindRouterPort,
	KindACL,
	KindNAT,
	KindAddressSet,
}

// 北向库表名
var kindTables = map[Kind]string{
	KindRouter:       "Logical_Router",
	KindSwitch:       "Logical_Switch",
	KindLoadBalancer: "Load_Balancer",
	KindPort:         "Logical_Switch_Port",
	KindRouterPort:   "Logical_Router_Port",
	KindACL:          "ACL",
	KindNAT:          "NAT",
	KindAddressSet:   "Address_Set",
}

// 兼容别名：表名、旧版类型名与复数形式
var kindAliases = map[string]Kind{
	"logical_router":      KindRouter,
	"routers":             KindRouter,
	"logical_switch":      KindSwitch,
	"switches":            KindSwitch,
	"lb":                  KindLoadBalancer,
	"load_balancers":      KindLoadBalancer,
	"logical_switch_port": KindPort,
	"ports":               KindPort,
	"lsp":                 KindPort,
	"logical_router_port": KindRouterPort,
	"router_ports":        KindRouterPort,
	"lrp":                 KindRouterPort,
	"acls":                KindACL,
	"nats":                KindNAT,
	"address_sets":        KindAddressSet,
}

// AllKinds 返回全部已知类型（副本）
func AllKinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// Valid 是否为已知类型
func (k Kind) Valid() bool {
	_, ok := kindTables[k]
	return ok
}

// Table 对应的北向库表名
func (k Kind) Table() string {
	return kindTables[k]
}

func (k Kind) String() string { return string(k) }

// ParseKind 解析类型名，大小写与连字符不敏感
func ParseKind(s string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "-", "_")
	if k := Kind(key); k.Valid() {
		return k, nil
	}
	if k, ok := kindAliases[key]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}
