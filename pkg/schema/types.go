package schema

// FormTemplate is the authored, versioned definition of a form. Sections and
// their fields are expected to be sorted by Order; the templates loader does
// this before handing a template to a session.
type FormTemplate struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Code        string         `json:"code" yaml:"code"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Sections    []Section      `json:"sections" yaml:"sections"`
	Workflow    map[string]any `json:"workflow,omitempty" yaml:"workflow,omitempty"`
	Version     int            `json:"version" yaml:"version"`
	Active      bool           `json:"active" yaml:"active"`
}

// Section groups fields. A repeatable section's fields act as a template for
// any number of SectionInstance records bounded by MinRepeats/MaxRepeats.
type Section struct {
	ID               string            `json:"id" yaml:"id"`
	Title            string            `json:"title" yaml:"title"`
	Description      string            `json:"description,omitempty" yaml:"description,omitempty"`
	Order            int               `json:"order" yaml:"order"`
	Repeatable       bool              `json:"repeatable,omitempty" yaml:"repeatable,omitempty"`
	MinRepeats       int               `json:"min_repeats,omitempty" yaml:"min_repeats,omitempty"`
	MaxRepeats       int               `json:"max_repeats,omitempty" yaml:"max_repeats,omitempty"`
	ConditionalLogic *ConditionalLogic `json:"conditional_logic,omitempty" yaml:"conditional_logic,omitempty"`
	Fields           []Field           `json:"fields" yaml:"fields"`
}

// Field models a single input. Its value is stored under Code.
type Field struct {
	ID               string            `json:"id" yaml:"id"`
	Code             string            `json:"field_code" yaml:"field_code"`
	Label            string            `json:"label" yaml:"label"`
	Type             FieldType         `json:"type" yaml:"type"`
	Placeholder      string            `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	HelpText         string            `json:"help_text,omitempty" yaml:"help_text,omitempty"`
	DefaultValue     any               `json:"default_value,omitempty" yaml:"default_value,omitempty"`
	Width            Width             `json:"width,omitempty" yaml:"width,omitempty"`
	Options          []Option          `json:"options,omitempty" yaml:"options,omitempty"`
	Validation       ValidationRules   `json:"validation,omitempty" yaml:"validation,omitempty"`
	ConditionalLogic *ConditionalLogic `json:"conditional_logic,omitempty" yaml:"conditional_logic,omitempty"`
	Order            int               `json:"order" yaml:"order"`
	Library          *LibraryBinding   `json:"library,omitempty" yaml:"library,omitempty"`
}

// Width is a display hint; the engine never interprets it.
type Width string

const (
	WidthFull    Width = "full"
	WidthHalf    Width = "half"
	WidthThird   Width = "third"
	WidthQuarter Width = "quarter"
)

// Option is a single choice for select/radio/checkbox style fields.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// LibraryBinding describes where a field's options come from and which
// sibling fields are filled in when a catalog record is picked. AutoPopulate
// maps sibling field codes to record keys.
type LibraryBinding struct {
	Source       string            `json:"source" yaml:"source"`
	ValueKey     string            `json:"value_key,omitempty" yaml:"value_key,omitempty"`
	LabelKey     string            `json:"label_key,omitempty" yaml:"label_key,omitempty"`
	AutoPopulate map[string]string `json:"auto_populate,omitempty" yaml:"auto_populate,omitempty"`
}

// ValidationRules lists optional constraints. A nil pointer or empty string
// means "no constraint".
type ValidationRules struct {
	Required          bool     `json:"required,omitempty" yaml:"required,omitempty"`
	MinLength         *int     `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength         *int     `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	MinValue          *float64 `json:"min_value,omitempty" yaml:"min_value,omitempty"`
	MaxValue          *float64 `json:"max_value,omitempty" yaml:"max_value,omitempty"`
	Pattern           string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	MinDate           string   `json:"min_date,omitempty" yaml:"min_date,omitempty"`
	MaxDate           string   `json:"max_date,omitempty" yaml:"max_date,omitempty"`
	AllowedExtensions []string `json:"allowed_extensions,omitempty" yaml:"allowed_extensions,omitempty"`
	MaxFileSizeMB     *float64 `json:"max_file_size_mb,omitempty" yaml:"max_file_size_mb,omitempty"`
	CustomMessage     string   `json:"custom_message,omitempty" yaml:"custom_message,omitempty"`
}

// ConditionalLogic gates a field or section on another field's value.
// FieldID references the controlling field by identity; it is resolved to a
// field code through a CodeMap.
type ConditionalLogic struct {
	FieldID  string   `json:"field_id" yaml:"field_id"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value,omitempty" yaml:"value,omitempty"`
}

// SectionInstance is one repetition of a repeatable section. Ordinal is
// assigned at creation and never renumbered.
type SectionInstance struct {
	ID        string `json:"id" yaml:"id"`
	SectionID string `json:"section_id" yaml:"section_id"`
	Ordinal   int    `json:"ordinal" yaml:"ordinal"`
	Values    Values `json:"values" yaml:"values"`
}

// Fields returns every field of the template in section order.
func (t FormTemplate) Fields() []Field {
	var out []Field
	for _, section := range t.Sections {
		out = append(out, section.Fields...)
	}
	return out
}

// Section returns the section with the supplied id.
func (t FormTemplate) Section(id string) (Section, bool) {
	for _, section := range t.Sections {
		if section.ID == id {
			return section, true
		}
	}
	return Section{}, false
}

// FieldByCode returns the field stored under code.
func (t FormTemplate) FieldByCode(code string) (Field, bool) {
	for _, section := range t.Sections {
		for _, field := range section.Fields {
			if field.Code == code {
				return field, true
			}
		}
	}
	return Field{}, false
}

// SectionOf returns the section owning the field stored under code.
func (t FormTemplate) SectionOf(code string) (Section, bool) {
	for _, section := range t.Sections {
		for _, field := range section.Fields {
			if field.Code == code {
				return section, true
			}
		}
	}
	return Section{}, false
}

// DisplayLabel falls back to the field code when no label is authored.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Code
}
