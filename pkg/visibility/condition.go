package visibility

import (
	"strings"
	"sync"

	"github.com/untillpro/goutils/logger"

	"github.com/goliatone/go-formstate/internal/coerce"
	"github.com/goliatone/go-formstate/pkg/schema"
)

// Evaluate reports whether a gate passes for the supplied values. A nil gate
// always passes, as does an unknown operator. When the referenced field id is
// not in codes the reference itself is used as the field code; the fallback
// is logged once per reference so template authors can fix it.
//
// Evaluate is pure apart from that diagnostic: identical inputs always
// produce the same result.
func Evaluate(logic *schema.ConditionalLogic, values schema.Values, codes schema.CodeMap) bool {
	if logic == nil {
		return true
	}

	code, found := codes.Resolve(logic.FieldID)
	if !found {
		reportFallback(logic.FieldID)
	}
	target, present := values.Get(code)

	switch logic.Operator {
	case schema.OperatorEquals:
		return present && coerce.StrictEqual(target, logic.Value)
	case schema.OperatorNotEquals:
		return !(present && coerce.StrictEqual(target, logic.Value))
	case schema.OperatorContains:
		return contains(target, logic.Value)
	case schema.OperatorNotContains:
		return !contains(target, logic.Value)
	case schema.OperatorGreaterThan:
		return coerce.Number(target) > coerce.Number(logic.Value)
	case schema.OperatorLessThan:
		return coerce.Number(target) < coerce.Number(logic.Value)
	case schema.OperatorIsEmpty:
		return isEmpty(target, present)
	case schema.OperatorIsNotEmpty:
		return isNotEmpty(target, present)
	default:
		return true
	}
}

// contains checks substring containment for strings and membership (compared
// as strings) for lists. Any other target contains nothing.
func contains(target, needle any) bool {
	if s, ok := target.(string); ok {
		return strings.Contains(s, coerce.String(needle))
	}
	if list, ok := coerce.List(target); ok {
		want := coerce.String(needle)
		for _, item := range list {
			if coerce.String(item) == want {
				return true
			}
		}
	}
	return false
}

var reportedFallbacks sync.Map

func reportFallback(ref string) {
	if _, loaded := reportedFallbacks.LoadOrStore(ref, struct{}{}); loaded {
		return
	}
	logger.Warning("visibility: conditional reference", ref, "is not a known field id; using it as a field code")
}
