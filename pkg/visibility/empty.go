package visibility

import (
	"strings"

	"github.com/goliatone/go-formstate/internal/coerce"
)

// isEmpty: absent, nil, blank string or empty list. Zero and false are not
// empty.
func isEmpty(value any, present bool) bool {
	if !present || value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	if list, ok := coerce.List(value); ok {
		return len(list) == 0
	}
	return false
}

// isNotEmpty is checked on its own rather than as !isEmpty: a whitespace-only
// string counts as not empty here while isEmpty also reports it empty.
func isNotEmpty(value any, present bool) bool {
	if !present || value == nil {
		return false
	}
	if s, ok := value.(string); ok {
		return s != ""
	}
	if list, ok := coerce.List(value); ok {
		return len(list) > 0
	}
	return true
}
