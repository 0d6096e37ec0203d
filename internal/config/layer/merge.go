package layer

import (
	"reflect"
	"sort"
	"strings"
)

// DeepMerge merges override into base and returns a new map. Nested maps
// merge recursively; any other override value replaces the base value.
// Neither input is modified.
func DeepMerge(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = cloneValue(v)
	}
	for k, v := range override {
		if baseMap, ok := result[k].(map[string]any); ok {
			if overMap, ok := v.(map[string]any); ok {
				result[k] = DeepMerge(baseMap, overMap)
				continue
			}
		}
		result[k] = cloneValue(v)
	}
	return result
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// GetByPath returns the value at a dotted path.
func GetByPath(data map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	current := data
	for i, part := range parts {
		v, ok := current[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		if current, ok = v.(map[string]any); !ok {
			return nil, false
		}
	}
	return nil, false
}

// SetByPath sets the value at a dotted path, creating intermediate maps and
// replacing non-map intermediates.
func SetByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// FlattenMap returns the leaves of data keyed by dotted path.
func FlattenMap(data map[string]any) map[string]any {
	result := make(map[string]any)
	flatten(data, "", result)
	return result
}

func flatten(data map[string]any, prefix string, out map[string]any) {
	for k, v := range data {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if m, ok := v.(map[string]any); ok {
			flatten(m, key, out)
			continue
		}
		out[key] = v
	}
}

// DiffMaps returns the sorted dotted paths whose leaf values differ between
// a and b, including paths present on one side only.
func DiffMaps(a, b map[string]any) []string {
	fa, fb := FlattenMap(a), FlattenMap(b)
	var changed []string
	for k, va := range fa {
		vb, ok := fb[k]
		if !ok || !reflect.DeepEqual(va, vb) {
			changed = append(changed, k)
		}
	}
	for k := range fb {
		if _, ok := fa[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}
