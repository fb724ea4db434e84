package validation

import (
	"regexp"

	"github.com/untillpro/goutils/logger"
)

type compiledPattern struct {
	re  *regexp.Regexp
	err error
}

// compile returns the cached regexp for pattern. A pattern that does not
// compile is an authoring error: it is logged when first seen and the check
// is skipped rather than failing the field.
func (v *Validator) compile(pattern, fieldCode string) (*regexp.Regexp, bool) {
	if cached, ok := v.patterns.Get(pattern); ok {
		return cached.re, cached.err == nil
	}
	re, err := regexp.Compile(pattern)
	v.patterns.Add(pattern, &compiledPattern{re: re, err: err})
	if err != nil {
		logger.Error("validation: field", fieldCode, "has an invalid pattern", pattern+":", err)
		return nil, false
	}
	return re, true
}
