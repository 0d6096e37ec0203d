package property

import "reflect"

// equal reports whether two values are the same. Comparable values use ==;
// values whose dynamic type is not comparable fall back to DeepEqual.
func equal[T any](a, b T) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = reflect.DeepEqual(a, b)
		}
	}()
	return any(a) == any(b)
}

// isNil reports whether v is nil or a nil pointer, map, slice, func, chan
// or interface wrapped in an interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
