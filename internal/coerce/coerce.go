// Package coerce holds the value coercions shared by the visibility and
// validation engines. Values are the loosely typed field values of a form.
package coerce

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Number coerces value to a float64. Anything that is not numeric yields
// NaN, which never compares greater or less than another number.
func Number(value any) float64 {
	switch v := value.(type) {
	case nil:
		return math.NaN()
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case int16:
		return float64(v)
	case int8:
		return float64(v)
	case uint:
		return float64(v)
	case uint64:
		return float64(v)
	case uint32:
		return float64(v)
	case uint16:
		return float64(v)
	case uint8:
		return float64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// String renders value the way comparisons, containment checks and length
// rules see it. Lists render as comma-joined elements.
func String(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	if list, ok := List(value); ok {
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = String(item)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(value)
}

// List exposes any slice (other than []byte) as []any.
func List(value any) ([]any, bool) {
	switch v := value.(type) {
	case nil, []byte, string:
		return nil, false
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// IsNumber reports whether value holds a Go numeric kind.
func IsNumber(value any) bool {
	switch value.(type) {
	case float64, float32, int, int64, int32, int16, int8, uint, uint64, uint32, uint16, uint8:
		return true
	default:
		return false
	}
}

// StrictEqual is type-sensitive: the string "3" never equals the number 3.
// Numeric kinds are normalised so an int decoded from YAML equals the same
// float64 decoded from JSON. Lists and objects compare element by element.
func StrictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if IsNumber(a) || IsNumber(b) {
		if !IsNumber(a) || !IsNumber(b) {
			return false
		}
		return Number(a) == Number(b)
	}
	if left, ok := List(a); ok {
		right, ok := List(b)
		if !ok || len(left) != len(right) {
			return false
		}
		for i := range left {
			if !StrictEqual(left[i], right[i]) {
				return false
			}
		}
		return true
	}
	if left, ok := a.(map[string]any); ok {
		right, ok := b.(map[string]any)
		if !ok || len(left) != len(right) {
			return false
		}
		for k, lv := range left {
			rv, exists := right[k]
			if !exists || !StrictEqual(lv, rv) {
				return false
			}
		}
		return true
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) || !reflect.TypeOf(a).Comparable() {
		return false
	}
	return a == b
}
