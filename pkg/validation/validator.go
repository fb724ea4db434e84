// Package validation checks field values against the rules authored on a
// template. Each field yields at most one message; the first failing check
// wins. Only the visible subset of a form is ever validated, so a required
// field hidden by a gate never blocks submission.
package validation

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/visibility"
)

const defaultPatternCacheSize = 256

// Lookup answers whether a role-scoped list (workers, jobsites, ...) contains
// an id. known=false means the list is not available and the check is skipped.
type Lookup interface {
	Contains(kind, id string) (contains bool, known bool)
}

// Validator runs field rules. The zero value is not usable; call New.
type Validator struct {
	patterns *lru.Cache[string, *compiledPattern]
	lookup   Lookup
}

// Option configures a Validator.
type Option func(*Validator)

// WithLookup enables membership checks for lookup-typed fields.
func WithLookup(lookup Lookup) Option {
	return func(v *Validator) {
		v.lookup = lookup
	}
}

// WithPatternCacheSize bounds the number of compiled patterns kept around.
func WithPatternCacheSize(size int) Option {
	return func(v *Validator) {
		if size <= 0 {
			return
		}
		cache, err := lru.New[string, *compiledPattern](size)
		if err == nil {
			v.patterns = cache
		}
	}
}

// New constructs a Validator.
func New(options ...Option) *Validator {
	v := &Validator{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(v)
	}
	if v.patterns == nil {
		cache, err := lru.New[string, *compiledPattern](defaultPatternCacheSize)
		if err != nil {
			panic(fmt.Sprintf("validation: pattern cache: %v", err))
		}
		v.patterns = cache
	}
	return v
}

var defaultValidator = New()

// ValidateField validates a single value with the default validator.
func ValidateField(field schema.Field, value any, all schema.Values) string {
	return defaultValidator.ValidateField(field, value, all)
}

// ValidateFields validates the visible subset of fields with the default validator.
func ValidateFields(fields []schema.Field, values schema.Values, codes schema.CodeMap) map[string]string {
	return defaultValidator.ValidateFields(fields, values, codes)
}

// ValidateForm validates a whole template with the default validator.
func ValidateForm(tpl schema.FormTemplate, values schema.Values, codes schema.CodeMap) map[string]string {
	return defaultValidator.ValidateForm(tpl, values, codes)
}

// IsFormValid reports whether an error map is empty.
func IsFormValid(errs map[string]string) bool {
	return len(errs) == 0
}

// ValidateField returns the first failing rule's message or "" when the value
// is acceptable. Every rule is single-field; the form values argument keeps
// the signature stable for callers that pass it and is not read.
func (v *Validator) ValidateField(field schema.Field, value any, _ schema.Values) string {
	rules := field.Validation

	if rules.Required && isMissing(value) {
		return messageFor(field, msgRequired)
	}
	if isAbsent(value) {
		return ""
	}

	checks := []check{
		checkLength,
		checkRange,
		v.checkPattern,
		checkDates,
		checkFormat,
		checkAttachment,
		v.checkLookup,
	}
	for _, run := range checks {
		if msg := run(field, value); msg != "" {
			return msg
		}
	}
	return ""
}

// ValidateFields validates the fields whose own gates pass. Fields filtered
// out by visibility never produce an error. Display-only fields are skipped.
func (v *Validator) ValidateFields(fields []schema.Field, values schema.Values, codes schema.CodeMap) map[string]string {
	errs := make(map[string]string)
	for _, field := range visibility.VisibleFields(fields, values, codes) {
		if field.Type.Kind() == schema.ValueKindNone {
			continue
		}
		value, _ := values.Get(field.Code)
		if msg := v.ValidateField(field, value, values); msg != "" {
			errs[field.Code] = msg
		}
	}
	return errs
}

// ValidateForm validates the visible fields of visible, non-repeatable
// sections. Repeatable sections are validated per instance by
// ValidateInstances.
func (v *Validator) ValidateForm(tpl schema.FormTemplate, values schema.Values, codes schema.CodeMap) map[string]string {
	errs := make(map[string]string)
	for _, section := range visibility.VisibleSections(tpl.Sections, values, codes) {
		if section.Repeatable {
			continue
		}
		for code, msg := range v.ValidateFields(section.Fields, values, codes) {
			errs[code] = msg
		}
	}
	return errs
}

// ValidateInstances validates every instance of the visible repeatable
// sections. Gates inside an instance see the instance's values over the
// form's. Errors are keyed by InstanceKey.
func (v *Validator) ValidateInstances(tpl schema.FormTemplate, values schema.Values, instances []schema.SectionInstance, codes schema.CodeMap) map[string]string {
	errs := make(map[string]string)
	visible := make(map[string]schema.Section)
	for _, section := range visibility.VisibleSections(tpl.Sections, values, codes) {
		if section.Repeatable {
			visible[section.ID] = section
		}
	}
	for _, instance := range instances {
		section, ok := visible[instance.SectionID]
		if !ok {
			continue
		}
		scope := values.Overlay(instance.Values)
		for code, msg := range v.ValidateFields(section.Fields, scope, codes) {
			errs[InstanceKey(code, instance.Ordinal)] = msg
		}
	}
	return errs
}

// InstanceKey names a field inside a section instance, e.g. "hazard[2]".
func InstanceKey(code string, ordinal int) string {
	return fmt.Sprintf("%s[%d]", code, ordinal)
}

type check func(field schema.Field, value any) string
