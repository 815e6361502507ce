package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMissingUUID 记录中无法提取标识
var ErrMissingUUID = errors.New("resource has no uuid")

// Resource 北向资源的统一契约。构造后不可变，新一轮采集整体替换。
type Resource interface {
	Kind() Kind
	UUID() string
	Name() string
	// Properties 返回属性副本，未知字段同样保留
	Properties() map[string]interface{}
	Property(key string) (interface{}, bool)
	// RawSource 构造该资源的原始片段，仅用于排查
	RawSource() string
	ToMap() map[string]interface{}
}

type resourceBase struct {
	kind  Kind
	uuid  string
	name  string
	props map[string]interface{}
	raw   string
}

func (r *resourceBase) Kind() Kind        { return r.kind }
func (r *resourceBase) UUID() string      { return r.uuid }
func (r *resourceBase) Name() string      { return r.name }
func (r *resourceBase) RawSource() string { return r.raw }

func (r *resourceBase) Properties() map[string]interface{} {
	return copyProps(r.props)
}

func (r *resourceBase) Property(key string) (interface{}, bool) {
	v, ok := r.props[key]
	return deepCopy(v), ok
}

func (r *resourceBase) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"kind":       string(r.kind),
		"uuid":       r.uuid,
		"name":       r.name,
		"properties": r.Properties(),
		"raw_source": r.raw,
	}
}

func (r *resourceBase) String() string {
	return fmt.Sprintf("%s: %s (%s)", r.kind, r.name, r.uuid)
}

func (r *resourceBase) str(key string) string {
	return toString(r.props[key])
}

func (r *resourceBase) strs(key string) []string {
	return toStrings(r.props[key])
}

func (r *resourceBase) firstStr(keys ...string) string {
	for _, k := range keys {
		if s := r.str(k); s != "" {
			return s
		}
	}
	return ""
}

// Router 逻辑路由器
type Router struct{ resourceBase }

// Ports 路由器端口 uuid 列表
func (r *Router) Ports() []string { return r.strs("ports") }

// NATs 关联的 NAT 规则
func (r *Router) NATs() []string { return r.strs("nat") }

// Switch 逻辑交换机
type Switch struct{ resourceBase }

// Ports 交换机端口 uuid 列表
func (s *Switch) Ports() []string { return s.strs("ports") }

// ACLs 关联的 ACL
func (s *Switch) ACLs() []string { return s.strs("acls") }

// LoadBalancers 关联的负载均衡
func (s *Switch) LoadBalancers() []string { return s.strs("load_balancer") }

// LoadBalancer 负载均衡
type LoadBalancer struct{ resourceBase }

// VIPs vip -> 后端列表
func (lb *LoadBalancer) VIPs() map[string]string { return toStringMap(lb.props["vips"]) }

// Protocol tcp/udp/sctp，未设置时为空
func (lb *LoadBalancer) Protocol() string { return lb.str("protocol") }

// Port 逻辑交换机端口
type Port struct{ resourceBase }

// ParentUUID 所属交换机 uuid（弱引用，仅用于查找，可能指向未加载的对象）
func (p *Port) ParentUUID() string {
	return p.firstStr("parent_uuid", "switch", "logical_switch")
}

// Type 端口类型（router/localnet/patch 等，普通 VIF 为空）
func (p *Port) Type() string { return p.str("type") }

// Addresses MAC/IP 地址列表
func (p *Port) Addresses() []string { return p.strs("addresses") }

// RouterPort 逻辑路由器端口
type RouterPort struct{ resourceBase }

// ParentUUID 所属路由器 uuid
func (p *RouterPort) ParentUUID() string {
	return p.firstStr("parent_uuid", "router", "logical_router")
}

// MAC 端口 MAC
func (p *RouterPort) MAC() string { return p.str("mac") }

// Networks 端口网段
func (p *RouterPort) Networks() []string {
	if n := p.strs("networks"); len(n) > 0 {
		return n
	}
	return p.strs("network")
}

// ACL 访问控制规则
type ACL struct{ resourceBase }

func (a *ACL) Direction() string { return a.str("direction") }
func (a *ACL) Match() string     { return a.str("match") }
func (a *ACL) Action() string    { return a.str("action") }

// Priority 解析失败时为 0
func (a *ACL) Priority() int { return toInt(a.props["priority"]) }

// NAT 地址转换规则
type NAT struct{ resourceBase }

func (n *NAT) Type() string        { return n.str("type") }
func (n *NAT) ExternalIP() string  { return n.str("external_ip") }
func (n *NAT) LogicalIP() string   { return n.str("logical_ip") }
func (n *NAT) LogicalPort() string { return n.str("logical_port") }

// AddressSet 地址集
type AddressSet struct{ resourceBase }

func (a *AddressSet) Addresses() []string { return a.strs("addresses") }

// ParentRef 携带父对象弱引用的资源
type ParentRef interface {
	ParentUUID() string
}

var constructors = map[Kind]func(resourceBase) Resource{
	KindRouter:       func(b resourceBase) Resource { return &Router{b} },
	KindSwitch:       func(b resourceBase) Resource { return &Switch{b} },
	KindLoadBalancer: func(b resourceBase) Resource { return &LoadBalancer{b} },
	KindPort:         func(b resourceBase) Resource { return &Port{b} },
	KindRouterPort:   func(b resourceBase) Resource { return &RouterPort{b} },
	KindACL:          func(b resourceBase) Resource { return &ACL{b} },
	KindNAT:          func(b resourceBase) Resource { return &NAT{b} },
	KindAddressSet:   func(b resourceBase) Resource { return &AddressSet{b} },
}

// FromProperties 按类型构造资源，所有变体共用的唯一入口。
// 无法提取 uuid 的记录返回 ErrMissingUUID，不会生成占位标识。
func FromProperties(kind Kind, props map[string]interface{}, raw string) (Resource, error) {
	ctor, ok := constructors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	id := ExtractUUID(props)
	if id == "" {
		return nil, ErrMissingUUID
	}
	return ctor(resourceBase{
		kind:  kind,
		uuid:  id,
		name:  toString(props["name"]),
		props: copyProps(props),
		raw:   raw,
	}), nil
}

func copyProps(props map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = deepCopy(v)
	}
	return out
}

// deepCopy 复制嵌套的 map 与切片，标量原样返回
func deepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return copyProps(t)
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

// ExtractUUID 依次读取 _uuid / uuid，兼容 ["uuid", "<id>"] 原子
func ExtractUUID(props map[string]interface{}) string {
	for _, key := range []string{"_uuid", "uuid"} {
		v, ok := props[key]
		if !ok {
			continue
		}
		if pair, ok := v.([]interface{}); ok && len(pair) == 2 {
			if tag, _ := pair[0].(string); tag == "uuid" || tag == "named-uuid" {
				v = pair[1]
			}
		}
		if s := strings.TrimSpace(toString(v)); s != "" {
			return s
		}
	}
	return ""
}

// Same uuid 相同即视为同一逻辑资源（属性不同只代表版本不同）
func Same(a, b Resource) bool {
	if a == nil || b == nil {
		return false
	}
	return a.UUID() == b.UUID()
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []interface{}:
		// 空集合
		if len(t) == 0 {
			return ""
		}
		if len(t) == 1 {
			return toString(t[0])
		}
		return fmt.Sprint(t)
	default:
		return fmt.Sprint(t)
	}
}

// toStrings 兼容集合、单值与表格文本中的 "[a, b]" 形式
func toStrings(v interface{}) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s := toString(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		s := strings.TrimSpace(t)
		if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
		if s == "" {
			return nil
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.Trim(strings.TrimSpace(p), `"`); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return []string{fmt.Sprint(t)}
	}
}

func toStringMap(v interface{}) map[string]string {
	out := map[string]string{}
	switch t := v.(type) {
	case map[string]interface{}:
		for k, e := range t {
			out[k] = toString(e)
		}
	case map[string]string:
		for k, e := range t {
			out[k] = e
		}
	case string:
		// 文本格式：{"10.0.0.1:80"="192.168.0.2:8080", ...}
		s := strings.TrimSpace(t)
		s = strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
		for _, kv := range strings.Split(s, ", ") {
			k, val, ok := strings.Cut(kv, "=")
			if !ok {
				continue
			}
			out[strings.Trim(strings.TrimSpace(k), `"`)] = strings.Trim(strings.TrimSpace(val), `"`)
		}
	}
	return out
}

func toInt(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case interface{ Int64() (int64, error) }:
		n, _ := t.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(t))
		return n
	}
	return 0
}
