package validation

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-formstate/internal/coerce"
	"github.com/goliatone/go-formstate/pkg/schema"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[\d\s\-\+\(\)\.]{10,}$`)
)

// isMissing is the required-rule notion of empty: nil, "" or an empty list.
func isMissing(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return s == ""
	}
	if list, ok := coerce.List(value); ok {
		return len(list) == 0
	}
	return false
}

// isAbsent reports values that skip every rule on an optional field. Zero and
// false are real answers and are still checked.
func isAbsent(value any) bool {
	if isMissing(value) {
		return true
	}
	if f, ok := value.(float64); ok && math.IsNaN(f) {
		return true
	}
	return false
}

func checkLength(field schema.Field, value any) string {
	rules := field.Validation
	if rules.MinLength == nil && rules.MaxLength == nil {
		return ""
	}
	length := utf8.RuneCountInString(coerce.String(value))
	if rules.MinLength != nil && length < *rules.MinLength {
		return messageFor(field, msgMinLength, *rules.MinLength)
	}
	if rules.MaxLength != nil && length > *rules.MaxLength {
		return messageFor(field, msgMaxLength, *rules.MaxLength)
	}
	return ""
}

func checkRange(field schema.Field, value any) string {
	rules := field.Validation
	if rules.MinValue == nil && rules.MaxValue == nil {
		return ""
	}
	number := coerce.Number(value)
	if math.IsNaN(number) {
		return ""
	}
	if rules.MinValue != nil && number < *rules.MinValue {
		return messageFor(field, msgMinValue, formatNumber(*rules.MinValue))
	}
	if rules.MaxValue != nil && number > *rules.MaxValue {
		return messageFor(field, msgMaxValue, formatNumber(*rules.MaxValue))
	}
	return ""
}

func (v *Validator) checkPattern(field schema.Field, value any) string {
	if field.Validation.Pattern == "" {
		return ""
	}
	re, ok := v.compile(field.Validation.Pattern, field.Code)
	if !ok {
		return ""
	}
	if !re.MatchString(coerce.String(value)) {
		return messageFor(field, msgPattern)
	}
	return ""
}

func checkDates(field schema.Field, value any) string {
	layout, ok := field.Type.DateLayout()
	if !ok {
		return ""
	}
	rules := field.Validation
	if rules.MinDate == "" && rules.MaxDate == "" {
		return ""
	}
	raw, ok := value.(string)
	if !ok {
		return ""
	}
	current, err := schema.ParseDate(raw, layout)
	if err != nil {
		return ""
	}
	if rules.MinDate != "" {
		if bound, err := schema.ParseDate(rules.MinDate, layout); err == nil && current.Before(bound) {
			return messageFor(field, msgMinDate, rules.MinDate)
		}
	}
	if rules.MaxDate != "" {
		if bound, err := schema.ParseDate(rules.MaxDate, layout); err == nil && current.After(bound) {
			return messageFor(field, msgMaxDate, rules.MaxDate)
		}
	}
	return ""
}

// formatCheckers dispatches type-specific format rules. Every field type has
// an explicit entry; nil means the type has no format of its own.
var formatCheckers = [schema.FieldTypeCount]check{
	schema.FieldTypeText:         nil,
	schema.FieldTypeTextArea:     nil,
	schema.FieldTypeNumber:       nil,
	schema.FieldTypeCurrency:     nil,
	schema.FieldTypeEmail:        checkEmail,
	schema.FieldTypePhone:        checkPhone,
	schema.FieldTypeURL:          nil,
	schema.FieldTypeDate:         nil,
	schema.FieldTypeTime:         nil,
	schema.FieldTypeDateTime:     nil,
	schema.FieldTypeSelect:       nil,
	schema.FieldTypeMultiSelect:  nil,
	schema.FieldTypeRadio:        nil,
	schema.FieldTypeCheckbox:     nil,
	schema.FieldTypeToggle:       nil,
	schema.FieldTypeYesNo:        nil,
	schema.FieldTypeYesNoNA:      nil,
	schema.FieldTypeRating:       nil,
	schema.FieldTypeSlider:       nil,
	schema.FieldTypeSignature:    nil,
	schema.FieldTypePhoto:        nil,
	schema.FieldTypeFile:         nil,
	schema.FieldTypeGeolocation:  nil,
	schema.FieldTypeWorker:       nil,
	schema.FieldTypeJobsite:      nil,
	schema.FieldTypeEquipment:    nil,
	schema.FieldTypeHazard:       nil,
	schema.FieldTypeTask:         nil,
	schema.FieldTypeHidden:       nil,
	schema.FieldTypeInstructions: nil,
}

func checkFormat(field schema.Field, value any) string {
	if !field.Type.Valid() {
		return ""
	}
	if run := formatCheckers[field.Type]; run != nil {
		return run(field, value)
	}
	return ""
}

func checkEmail(field schema.Field, value any) string {
	if !emailPattern.MatchString(coerce.String(value)) {
		return messageFor(field, msgEmail)
	}
	return ""
}

func checkPhone(field schema.Field, value any) string {
	if !phonePattern.MatchString(strings.TrimSpace(coerce.String(value))) {
		return messageFor(field, msgPhone)
	}
	return ""
}

func (v *Validator) checkLookup(field schema.Field, value any) string {
	if v.lookup == nil {
		return ""
	}
	kind, ok := field.Type.Lookup()
	if !ok && field.Library != nil && field.Library.Source != "" {
		kind, ok = field.Library.Source, true
	}
	if !ok {
		return ""
	}
	id := coerce.String(value)
	contains, known := v.lookup.Contains(kind, id)
	if known && !contains {
		return messageFor(field, msgSelection)
	}
	return ""
}
