package schema

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Values maps field codes to their current value. Values may be strings,
// numbers, booleans, lists ([]any), structured objects (map[string]any) or
// nil. Attachment fields hold opaque payload references the engine forwards
// without interpreting.
type Values map[string]any

// Get returns the value stored under code.
func (v Values) Get(code string) (any, bool) {
	if v == nil {
		return nil, false
	}
	value, ok := v[code]
	return value, ok
}

// Clone returns a deep copy of the map, including nested lists and objects.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, value := range v {
		out[k] = DeepCopy(value)
	}
	return out
}

// With returns a copy of v with code set to a deep copy of value. The
// receiver is left untouched.
func (v Values) With(code string, value any) Values {
	out := make(Values, len(v)+1)
	for k, existing := range v {
		out[k] = existing
	}
	out[code] = DeepCopy(value)
	return out
}

// Without returns a copy of v without code.
func (v Values) Without(code string) Values {
	out := make(Values, len(v))
	for k, existing := range v {
		if k == code {
			continue
		}
		out[k] = existing
	}
	return out
}

// Overlay returns a copy of v with every key of top applied over it. Section
// instances use it so gates inside an instance see the instance's own values
// ahead of the form-level ones.
func (v Values) Overlay(top Values) Values {
	out := make(Values, len(v)+len(top))
	for k, existing := range v {
		out[k] = existing
	}
	for k, value := range top {
		out[k] = value
	}
	return out
}

// Equal compares two value sets structurally. Nil and empty collections are
// considered equal so an untouched multi-select does not read as an edit.
func (v Values) Equal(other Values) bool {
	return cmp.Equal(map[string]any(v), map[string]any(other), cmpopts.EquateEmpty())
}

// DeepCopy clones nested maps and slices; scalars are returned as-is.
func DeepCopy(value any) any {
	switch typed := value.(type) {
	case Values:
		return typed.Clone()
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = DeepCopy(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = DeepCopy(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	case []byte:
		return append([]byte(nil), typed...)
	default:
		return typed
	}
}
