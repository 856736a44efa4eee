// Package conv 读取 Pipeline 节点配置（YAML/JSON 解析得到的 map[string]any）。
package conv

// ConfigGet 从 m 按 key 取 T，取不到或类型不符时返回 defaultVal。
func ConfigGet[T any](m map[string]any, key string, defaultVal T) T {
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	t, ok := v.(T)
	if !ok {
		return defaultVal
	}
	return t
}

// ConfigGetInt 取整数。YAML 解析得到 int，JSON 解析得到 float64，两者都接受；
// 带小数部分的值视为类型不符。
func ConfigGetInt(m map[string]any, key string, defaultVal int) int {
	switch val := m[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val != float64(int(val)) {
			return defaultVal
		}
		return int(val)
	default:
		return defaultVal
	}
}

// ConfigGetMaps 取子配置列表，例如 filter 节点的 filters。
// key 缺失或不是列表时 ok 为 false；列表中不是 map 的元素被跳过。
func ConfigGetMaps(m map[string]any, key string) (out []map[string]any, ok bool) {
	raw, ok := m[key].([]any)
	if !ok {
		return nil, false
	}
	out = make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		if sub, isMap := e.(map[string]any); isMap {
			out = append(out, sub)
		}
	}
	return out, true
}
