package schema

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldType is the closed set of field kinds a template may use. Decoding an
// unknown tag fails instead of silently producing an untyped field.
type FieldType uint8

const (
	FieldTypeText FieldType = iota
	FieldTypeTextArea
	FieldTypeNumber
	FieldTypeCurrency
	FieldTypeEmail
	FieldTypePhone
	FieldTypeURL
	FieldTypeDate
	FieldTypeTime
	FieldTypeDateTime
	FieldTypeSelect
	FieldTypeMultiSelect
	FieldTypeRadio
	FieldTypeCheckbox
	FieldTypeToggle
	FieldTypeYesNo
	FieldTypeYesNoNA
	FieldTypeRating
	FieldTypeSlider
	FieldTypeSignature
	FieldTypePhoto
	FieldTypeFile
	FieldTypeGeolocation
	FieldTypeWorker
	FieldTypeJobsite
	FieldTypeEquipment
	FieldTypeHazard
	FieldTypeTask
	FieldTypeHidden
	FieldTypeInstructions

	// FieldTypeCount is not a valid type; it bounds per-type tables.
	FieldTypeCount
)

// ValueKind describes the shape of the value a field type stores.
type ValueKind uint8

const (
	ValueKindScalar ValueKind = iota
	ValueKindList
	ValueKindAttachment
	ValueKindLocation
	// ValueKindNone marks display-only fields that never hold a value.
	ValueKindNone
)

// Lookup kinds served by a context data provider.
const (
	LookupWorkers   = "workers"
	LookupJobsites  = "jobsites"
	LookupEquipment = "equipment"
	LookupHazards   = "hazards"
	LookupTasks     = "tasks"
)

type fieldTypeProps struct {
	tag        string
	kind       ValueKind
	choice     bool
	lookup     string
	dateLayout string
}

var typeProps = [FieldTypeCount]fieldTypeProps{
	FieldTypeText:         {tag: "text", kind: ValueKindScalar},
	FieldTypeTextArea:     {tag: "textarea", kind: ValueKindScalar},
	FieldTypeNumber:       {tag: "number", kind: ValueKindScalar},
	FieldTypeCurrency:     {tag: "currency", kind: ValueKindScalar},
	FieldTypeEmail:        {tag: "email", kind: ValueKindScalar},
	FieldTypePhone:        {tag: "phone", kind: ValueKindScalar},
	FieldTypeURL:          {tag: "url", kind: ValueKindScalar},
	FieldTypeDate:         {tag: "date", kind: ValueKindScalar, dateLayout: "2006-01-02"},
	FieldTypeTime:         {tag: "time", kind: ValueKindScalar},
	FieldTypeDateTime:     {tag: "datetime", kind: ValueKindScalar, dateLayout: "2006-01-02T15:04"},
	FieldTypeSelect:       {tag: "select", kind: ValueKindScalar, choice: true},
	FieldTypeMultiSelect:  {tag: "multiselect", kind: ValueKindList, choice: true},
	FieldTypeRadio:        {tag: "radio", kind: ValueKindScalar, choice: true},
	FieldTypeCheckbox:     {tag: "checkbox", kind: ValueKindList, choice: true},
	FieldTypeToggle:       {tag: "toggle", kind: ValueKindScalar},
	FieldTypeYesNo:        {tag: "yes_no", kind: ValueKindScalar},
	FieldTypeYesNoNA:      {tag: "yes_no_na", kind: ValueKindScalar},
	FieldTypeRating:       {tag: "rating", kind: ValueKindScalar},
	FieldTypeSlider:       {tag: "slider", kind: ValueKindScalar},
	FieldTypeSignature:    {tag: "signature", kind: ValueKindAttachment},
	FieldTypePhoto:        {tag: "photo", kind: ValueKindAttachment},
	FieldTypeFile:         {tag: "file", kind: ValueKindAttachment},
	FieldTypeGeolocation:  {tag: "geolocation", kind: ValueKindLocation},
	FieldTypeWorker:       {tag: "worker", kind: ValueKindScalar, lookup: LookupWorkers},
	FieldTypeJobsite:      {tag: "jobsite", kind: ValueKindScalar, lookup: LookupJobsites},
	FieldTypeEquipment:    {tag: "equipment", kind: ValueKindScalar, lookup: LookupEquipment},
	FieldTypeHazard:       {tag: "hazard", kind: ValueKindScalar, lookup: LookupHazards},
	FieldTypeTask:         {tag: "task", kind: ValueKindScalar, lookup: LookupTasks},
	FieldTypeHidden:       {tag: "hidden", kind: ValueKindScalar},
	FieldTypeInstructions: {tag: "instructions", kind: ValueKindNone},
}

var tagToType = func() map[string]FieldType {
	out := make(map[string]FieldType, FieldTypeCount)
	for ft := FieldType(0); ft < FieldTypeCount; ft++ {
		out[typeProps[ft].tag] = ft
	}
	return out
}()

// ParseFieldType resolves a type tag such as "yes_no" or "multiselect".
func ParseFieldType(tag string) (FieldType, error) {
	ft, ok := tagToType[strings.ToLower(strings.TrimSpace(tag))]
	if !ok {
		return 0, fmt.Errorf("schema: unknown field type %q", tag)
	}
	return ft, nil
}

// Valid reports whether ft is one of the declared field types.
func (ft FieldType) Valid() bool {
	return ft < FieldTypeCount
}

func (ft FieldType) String() string {
	if !ft.Valid() {
		return "FieldType(" + strconv.Itoa(int(ft)) + ")"
	}
	return typeProps[ft].tag
}

// Kind returns the value shape stored by the type.
func (ft FieldType) Kind() ValueKind {
	if !ft.Valid() {
		return ValueKindNone
	}
	return typeProps[ft].kind
}

// IsChoice reports whether the type picks from Field.Options.
func (ft FieldType) IsChoice() bool {
	return ft.Valid() && typeProps[ft].choice
}

// Lookup returns the context data list kind for role-scoped lookups.
func (ft FieldType) Lookup() (string, bool) {
	if !ft.Valid() || typeProps[ft].lookup == "" {
		return "", false
	}
	return typeProps[ft].lookup, true
}

// DateLayout returns the time layout used by date-typed fields.
func (ft FieldType) DateLayout() (string, bool) {
	if !ft.Valid() || typeProps[ft].dateLayout == "" {
		return "", false
	}
	return typeProps[ft].dateLayout, true
}

// ZeroValue is the value a field of this type starts with when the template
// does not author a default.
func (ft FieldType) ZeroValue() any {
	switch ft.Kind() {
	case ValueKindList:
		return []any{}
	}
	if ft == FieldTypeToggle {
		return false
	}
	return nil
}

func (ft FieldType) MarshalText() ([]byte, error) {
	if !ft.Valid() {
		return nil, fmt.Errorf("schema: invalid field type %d", ft)
	}
	return []byte(typeProps[ft].tag), nil
}

func (ft *FieldType) UnmarshalText(text []byte) error {
	parsed, err := ParseFieldType(string(text))
	if err != nil {
		return err
	}
	*ft = parsed
	return nil
}

func (ft FieldType) MarshalYAML() (any, error) {
	text, err := ft.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(text), nil
}

func (ft *FieldType) UnmarshalYAML(node *yaml.Node) error {
	var tag string
	if err := node.Decode(&tag); err != nil {
		return err
	}
	return ft.UnmarshalText([]byte(tag))
}
