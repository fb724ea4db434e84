package visibility

import "github.com/goliatone/go-formstate/pkg/schema"

// VisibleSections filters sections by their own gates, preserving order.
func VisibleSections(sections []schema.Section, values schema.Values, codes schema.CodeMap) []schema.Section {
	out := make([]schema.Section, 0, len(sections))
	for _, section := range sections {
		if Evaluate(section.ConditionalLogic, values, codes) {
			out = append(out, section)
		}
	}
	return out
}

// VisibleFields filters fields by their own gates, preserving order. It does
// not look at the owning section.
func VisibleFields(fields []schema.Field, values schema.Values, codes schema.CodeMap) []schema.Field {
	out := make([]schema.Field, 0, len(fields))
	for _, field := range fields {
		if Evaluate(field.ConditionalLogic, values, codes) {
			out = append(out, field)
		}
	}
	return out
}

// VisibleFieldsOf returns the visible fields of visible sections: the subset
// that gates rendering and validation.
func VisibleFieldsOf(tpl schema.FormTemplate, values schema.Values, codes schema.CodeMap) []schema.Field {
	var out []schema.Field
	for _, section := range VisibleSections(tpl.Sections, values, codes) {
		out = append(out, VisibleFields(section.Fields, values, codes)...)
	}
	return out
}

// SectionVisible reports whether the section's own gate passes.
func SectionVisible(section schema.Section, values schema.Values, codes schema.CodeMap) bool {
	return Evaluate(section.ConditionalLogic, values, codes)
}

// FieldVisible reports whether the field's own gate passes.
func FieldVisible(field schema.Field, values schema.Values, codes schema.CodeMap) bool {
	return Evaluate(field.ConditionalLogic, values, codes)
}
