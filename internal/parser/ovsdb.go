package parser

// decodeAtom 将 OVSDB JSON 表示法展开为普通值：
//
//	["uuid", x] / ["named-uuid", x] -> x
//	["set", [a, b]]                 -> [a, b]
//	["map", [[k, v], ...]]          -> {k: v}
//
// 其它值原样返回，对象内部递归处理。
func decodeAtom(v interface{}) interface{} {
	switch t := v.(type) {
	case []interface{}:
		if len(t) == 2 {
			if tag, ok := t[0].(string); ok {
				switch tag {
				case "uuid", "named-uuid":
					if _, ok := t[1].(string); ok {
						return t[1]
					}
				case "set":
					if elems, ok := t[1].([]interface{}); ok {
						out := make([]interface{}, 0, len(elems))
						for _, e := range elems {
							out = append(out, decodeAtom(e))
						}
						return out
					}
				case "map":
					if pairs, ok := t[1].([]interface{}); ok {
						if m, ok := decodeMap(pairs); ok {
							return m
						}
					}
				}
			}
		}
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = decodeAtom(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = decodeAtom(e)
		}
		return out
	default:
		return v
	}
}

func decodeMap(pairs []interface{}) (map[string]interface{}, bool) {
	out := make(map[string]interface{}, len(pairs))
	for _, p := range pairs {
		kv, ok := p.([]interface{})
		if !ok || len(kv) != 2 {
			return nil, false
		}
		key, ok := decodeAtom(kv[0]).(string)
		if !ok {
			return nil, false
		}
		out[key] = decodeAtom(kv[1])
	}
	return out, true
}

// decodeRecord 对一条记录的全部字段做原子展开
func decodeRecord(props map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = decodeAtom(v)
	}
	return out
}
