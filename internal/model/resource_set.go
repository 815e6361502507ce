package model

// ResourceSet 一次采集快照：类型 -> 有序资源列表。构造后只读，修改请用 With 生成新集合。
type ResourceSet struct {
	items map[Kind][]Resource
	index map[Kind]map[string]int
}

// NewResourceSet 复制输入构造快照。同一类型内 uuid 重复时保留最后出现的版本，位置取首次出现处。
func NewResourceSet(byKind map[Kind][]Resource) ResourceSet {
	s := ResourceSet{
		items: make(map[Kind][]Resource, len(byKind)),
		index: make(map[Kind]map[string]int, len(byKind)),
	}
	for k, list := range byKind {
		s.put(k, list)
	}
	return s
}

func (s *ResourceSet) put(kind Kind, list []Resource) {
	idx := make(map[string]int, len(list))
	out := make([]Resource, 0, len(list))
	for _, r := range list {
		if r == nil || r.UUID() == "" {
			continue
		}
		if pos, ok := idx[r.UUID()]; ok {
			out[pos] = r
			continue
		}
		idx[r.UUID()] = len(out)
		out = append(out, r)
	}
	s.items[kind] = out
	s.index[kind] = idx
}

// With 返回替换了某一类型的新快照，原快照不变
func (s ResourceSet) With(kind Kind, list []Resource) ResourceSet {
	next := ResourceSet{
		items: make(map[Kind][]Resource, len(s.items)+1),
		index: make(map[Kind]map[string]int, len(s.index)+1),
	}
	for k, v := range s.items {
		if k == kind {
			continue
		}
		next.items[k] = v
		next.index[k] = s.index[k]
	}
	next.put(kind, list)
	return next
}

// Has 快照中是否包含该类型（包含空列表）
func (s ResourceSet) Has(kind Kind) bool {
	_, ok := s.items[kind]
	return ok
}

// Kinds 快照包含的类型，按固定顺序
func (s ResourceSet) Kinds() []Kind {
	out := make([]Kind, 0, len(s.items))
	for _, k := range allKinds {
		if _, ok := s.items[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// List 某类型的资源列表副本
func (s ResourceSet) List(kind Kind) []Resource {
	src := s.items[kind]
	out := make([]Resource, len(src))
	copy(out, src)
	return out
}

// Get 按 uuid 查找
func (s ResourceSet) Get(kind Kind, uuid string) (Resource, bool) {
	pos, ok := s.index[kind][uuid]
	if !ok {
		return nil, false
	}
	return s.items[kind][pos], true
}

// Find 跨类型按 uuid 查找
func (s ResourceSet) Find(uuid string) (Resource, bool) {
	for _, k := range allKinds {
		if r, ok := s.Get(k, uuid); ok {
			return r, true
		}
	}
	return nil, false
}

// Count 某类型资源数
func (s ResourceSet) Count(kind Kind) int { return len(s.items[kind]) }

// Len 全部资源数
func (s ResourceSet) Len() int {
	n := 0
	for _, v := range s.items {
		n += len(v)
	}
	return n
}

// UUIDs 某类型的 uuid 列表，保持原顺序
func (s ResourceSet) UUIDs(kind Kind) []string {
	src := s.items[kind]
	out := make([]string, 0, len(src))
	for _, r := range src {
		out = append(out, r.UUID())
	}
	return out
}

// Parent 查找端口的父对象。优先使用显式的父引用，否则反查交换机/路由器的 ports 集合。
// 父对象不在当前快照中时返回 false。
func (s ResourceSet) Parent(r Resource) (Resource, bool) {
	if r == nil {
		return nil, false
	}
	var parentKind Kind
	switch r.Kind() {
	case KindPort:
		parentKind = KindSwitch
	case KindRouterPort:
		parentKind = KindRouter
	default:
		return nil, false
	}
	if ref, ok := r.(ParentRef); ok {
		if id := ref.ParentUUID(); id != "" {
			if p, ok := s.Get(parentKind, id); ok {
				return p, true
			}
			// 也可能记录的是名称
			for _, cand := range s.items[parentKind] {
				if cand.Name() == id {
					return cand, true
				}
			}
		}
	}
	for _, cand := range s.items[parentKind] {
		ports, _ := cand.Property("ports")
		for _, child := range toStrings(ports) {
			if child == r.UUID() {
				return cand, true
			}
		}
	}
	return nil, false
}

// ToMap 导出为 JSON 友好结构
func (s ResourceSet) ToMap() map[string][]map[string]interface{} {
	out := make(map[string][]map[string]interface{}, len(s.items))
	for _, k := range s.Kinds() {
		list := make([]map[string]interface{}, 0, len(s.items[k]))
		for _, r := range s.items[k] {
			list = append(list, r.ToMap())
		}
		out[string(k)] = list
	}
	return out
}
