package validation

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	fuzz "github.com/google/gofuzz"

	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/testsupport"
)

func TestValidateFieldRules(t *testing.T) {
	t.Parallel()

	ptr := testsupport.Ptr[int]
	num := testsupport.Ptr[float64]

	tests := []struct {
		name  string
		field schema.Field
		value any
		want  string
	}{
		{
			name:  "below minimum numeric string",
			field: schema.Field{Code: "age", Label: "Age", Type: schema.FieldTypeNumber, Validation: schema.ValidationRules{MinValue: num(18)}},
			value: "17",
			want:  "Age must be at least 18",
		},
		{
			name:  "below minimum small int kind",
			field: schema.Field{Code: "age", Label: "Age", Type: schema.FieldTypeNumber, Validation: schema.ValidationRules{MinValue: num(18)}},
			value: int16(17),
			want:  "Age must be at least 18",
		},
		{
			name:  "custom message replaces default",
			field: schema.Field{Code: "age", Label: "Age", Type: schema.FieldTypeNumber, Validation: schema.ValidationRules{MinValue: num(18), CustomMessage: "Adults only"}},
			value: 12,
			want:  "Adults only",
		},
		{
			name:  "above maximum",
			field: schema.Field{Code: "score", Label: "Score", Type: schema.FieldTypeSlider, Validation: schema.ValidationRules{MaxValue: num(2.5)}},
			value: 3.0,
			want:  "Score must be at most 2.5",
		},
		{
			name:  "non numeric skips range",
			field: schema.Field{Code: "age", Label: "Age", Type: schema.FieldTypeNumber, Validation: schema.ValidationRules{MinValue: num(18)}},
			value: "n/a",
		},
		{
			name:  "zero is checked",
			field: schema.Field{Code: "count", Label: "Count", Type: schema.FieldTypeNumber, Validation: schema.ValidationRules{MinValue: num(1)}},
			value: 0,
			want:  "Count must be at least 1",
		},
		{
			name:  "required empty string",
			field: schema.Field{Code: "name", Label: "Name", Type: schema.FieldTypeText, Validation: schema.ValidationRules{Required: true}},
			value: "",
			want:  "Name is required",
		},
		{
			name:  "required empty list",
			field: schema.Field{Code: "tags", Label: "Tags", Type: schema.FieldTypeMultiSelect, Validation: schema.ValidationRules{Required: true}},
			value: []any{},
			want:  "Tags is required",
		},
		{
			name:  "required uses code without label",
			field: schema.Field{Code: "site_name", Type: schema.FieldTypeText, Validation: schema.ValidationRules{Required: true}},
			want:  "site_name is required",
		},
		{
			name:  "required false is an answer",
			field: schema.Field{Code: "ok", Label: "OK", Type: schema.FieldTypeToggle, Validation: schema.ValidationRules{Required: true}},
			value: false,
		},
		{
			name:  "optional absent skips every rule",
			field: schema.Field{Code: "email", Label: "Email", Type: schema.FieldTypeEmail, Validation: schema.ValidationRules{MinLength: ptr(5)}},
			value: "",
		},
		{
			name:  "min length counts runes",
			field: schema.Field{Code: "name", Label: "Name", Type: schema.FieldTypeText, Validation: schema.ValidationRules{MinLength: ptr(3)}},
			value: "éé",
			want:  "Name must be at least 3 characters",
		},
		{
			name:  "max length",
			field: schema.Field{Code: "notes", Label: "Notes", Type: schema.FieldTypeTextArea, Validation: schema.ValidationRules{MaxLength: ptr(4)}},
			value: "hello",
			want:  "Notes must be at most 4 characters",
		},
		{
			name:  "pattern mismatch",
			field: schema.Field{Code: "plate", Label: "Plate", Type: schema.FieldTypeText, Validation: schema.ValidationRules{Pattern: `^[A-Z]{3}$`}},
			value: "ab",
			want:  "Plate format is invalid",
		},
		{
			name:  "pattern match",
			field: schema.Field{Code: "plate", Label: "Plate", Type: schema.FieldTypeText, Validation: schema.ValidationRules{Pattern: `^[A-Z]{3}$`}},
			value: "ABC",
		},
		{
			name:  "broken pattern is skipped",
			field: schema.Field{Code: "plate", Label: "Plate", Type: schema.FieldTypeText, Validation: schema.ValidationRules{Pattern: `([A-Z`}},
			value: "anything",
		},
		{
			name:  "email",
			field: schema.Field{Code: "email", Label: "Email", Type: schema.FieldTypeEmail},
			value: "not-an-email",
			want:  "Email must be a valid email address",
		},
		{
			name:  "email ok",
			field: schema.Field{Code: "email", Label: "Email", Type: schema.FieldTypeEmail},
			value: "crew@example.com",
		},
		{
			name:  "phone too short",
			field: schema.Field{Code: "phone", Label: "Phone", Type: schema.FieldTypePhone},
			value: "555-12",
			want:  "Phone must be a valid phone number",
		},
		{
			name:  "phone ok",
			field: schema.Field{Code: "phone", Label: "Phone", Type: schema.FieldTypePhone},
			value: "+1 (555) 123-4567",
		},
		{
			name:  "date before minimum",
			field: schema.Field{Code: "day", Label: "Day", Type: schema.FieldTypeDate, Validation: schema.ValidationRules{MinDate: "2024-01-01"}},
			value: "2023-12-31",
			want:  "Day must be on or after 2024-01-01",
		},
		{
			name:  "date on minimum",
			field: schema.Field{Code: "day", Label: "Day", Type: schema.FieldTypeDate, Validation: schema.ValidationRules{MinDate: "2024-01-01"}},
			value: "2024-01-01",
		},
		{
			name:  "datetime after maximum",
			field: schema.Field{Code: "at", Label: "At", Type: schema.FieldTypeDateTime, Validation: schema.ValidationRules{MaxDate: "2024-06-01T12:00"}},
			value: "2024-06-01T12:30",
			want:  "At must be on or before 2024-06-01T12:00",
		},
		{
			name:  "unparseable date skips bounds",
			field: schema.Field{Code: "day", Label: "Day", Type: schema.FieldTypeDate, Validation: schema.ValidationRules{MinDate: "2024-01-01"}},
			value: "yesterday",
		},
		{
			name:  "file extension rejected",
			field: schema.Field{Code: "doc", Label: "Document", Type: schema.FieldTypeFile, Validation: schema.ValidationRules{AllowedExtensions: []string{".pdf", "PNG"}}},
			value: map[string]any{"name": "notes.docx", "size": 10},
			want:  "Document file type is not allowed",
		},
		{
			name:  "file extension case insensitive",
			field: schema.Field{Code: "doc", Label: "Document", Type: schema.FieldTypeFile, Validation: schema.ValidationRules{AllowedExtensions: []string{".pdf", "PNG"}}},
			value: map[string]any{"name": "scan.png"},
		},
		{
			name:  "photo list over size",
			field: schema.Field{Code: "photos", Label: "Photos", Type: schema.FieldTypePhoto, Validation: schema.ValidationRules{MaxFileSizeMB: num(1)}},
			value: []any{map[string]any{"name": "a.jpg", "size": 1024}, map[string]any{"name": "b.jpg", "size": 3 * 1024 * 1024}},
			want:  "Photos file must be smaller than 1 MB",
		},
		{
			name:  "opaque attachment reference",
			field: schema.Field{Code: "doc", Label: "Document", Type: schema.FieldTypeFile, Validation: schema.ValidationRules{AllowedExtensions: []string{"pdf"}}},
			value: "blob://123",
		},
	}

	v := New()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := v.ValidateField(tt.field, tt.value, nil); got != tt.want {
				t.Fatalf("ValidateField() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateFieldIgnoresOtherValues(t *testing.T) {
	t.Parallel()

	field := schema.Field{Code: "age", Label: "Age", Type: schema.FieldTypeNumber, Validation: schema.ValidationRules{Required: true, MinValue: testsupport.Ptr[float64](18)}}
	others := schema.Values{"age": 40, "name": "Ada"}

	for _, value := range []any{nil, 12, 30} {
		if alone, with := ValidateField(field, value, nil), ValidateField(field, value, others); alone != with {
			t.Fatalf("ValidateField(%v) = %q alone, %q with form values", value, alone, with)
		}
	}
	if got := ValidateField(field, nil, others); got != "Age is required" {
		t.Fatalf("expected the field's own value to be checked, got %q", got)
	}
}

type stubLookup map[string][]string

func (s stubLookup) Contains(kind, id string) (bool, bool) {
	ids, ok := s[kind]
	if !ok {
		return false, false
	}
	for _, candidate := range ids {
		if candidate == id {
			return true, true
		}
	}
	return false, true
}

func TestValidateFieldLookup(t *testing.T) {
	t.Parallel()

	v := New(WithLookup(stubLookup{schema.LookupWorkers: {"w-1", "w-2"}}))
	worker := schema.Field{Code: "inspector", Label: "Inspector", Type: schema.FieldTypeWorker}
	jobsite := schema.Field{Code: "jobsite", Label: "Jobsite", Type: schema.FieldTypeJobsite}
	bound := schema.Field{Code: "lead", Label: "Lead", Type: schema.FieldTypeSelect, Library: &schema.LibraryBinding{Source: schema.LookupWorkers}}

	if got := v.ValidateField(worker, "w-2", nil); got != "" {
		t.Fatalf("expected known worker to pass, got %q", got)
	}
	if got := v.ValidateField(worker, "w-9", nil); got != "Inspector is not a valid selection" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := v.ValidateField(jobsite, "anything", nil); got != "" {
		t.Fatalf("expected unknown list to skip the check, got %q", got)
	}
	if got := v.ValidateField(bound, "w-9", nil); got != "Lead is not a valid selection" {
		t.Fatalf("expected library binding to be checked, got %q", got)
	}
	if got := New().ValidateField(worker, "w-9", nil); got != "" {
		t.Fatalf("expected validator without lookup to skip membership, got %q", got)
	}
}

func TestValidateFormSkipsHiddenFields(t *testing.T) {
	t.Parallel()

	tpl := testsupport.SafetyInspection()
	codes := schema.BuildCodeMap(tpl)
	values := schema.Values{
		"jobsite":         "js-1",
		"inspection_date": "2024-05-01",
		"signature":       "sig-ref",
	}

	if errs := ValidateForm(tpl, values, codes); !IsFormValid(errs) {
		t.Fatalf("expected valid form while vehicle section is hidden, got %v", errs)
	}

	values = values.With("has_vehicle", true)
	want := map[string]string{"plate": "Plate is required"}
	if diff := cmp.Diff(want, ValidateForm(tpl, values, codes)); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateFormCollectsEveryField(t *testing.T) {
	t.Parallel()

	tpl := testsupport.SafetyInspection()
	values := schema.Values{"inspection_date": "2023-05-01", "contact_email": "nope"}

	want := map[string]string{
		"jobsite":         "Jobsite is required",
		"inspection_date": "Inspection date must be on or after 2024-01-01",
		"contact_email":   "Contact email must be a valid email address",
		"signature":       "Signature is required",
	}
	if diff := cmp.Diff(want, ValidateForm(tpl, values, schema.BuildCodeMap(tpl))); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateInstances(t *testing.T) {
	t.Parallel()

	tpl := testsupport.SafetyInspection()
	instances := []schema.SectionInstance{
		{ID: "i-1", SectionID: "sec-hazards", Ordinal: 1, Values: schema.Values{"hazard": "hz-1", "severity": 3}},
		{ID: "i-2", SectionID: "sec-hazards", Ordinal: 2, Values: schema.Values{"severity": 9}},
		{ID: "i-3", SectionID: "sec-unknown", Ordinal: 1, Values: schema.Values{}},
	}

	want := map[string]string{
		"hazard[2]":   "Hazard is required",
		"severity[2]": "Severity must be at most 5",
	}
	got := New().ValidateInstances(tpl, schema.Values{}, instances, schema.BuildCodeMap(tpl))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatCheckersCoverEveryType(t *testing.T) {
	t.Parallel()

	for ft := schema.FieldType(0); ft < schema.FieldTypeCount; ft++ {
		hasChecker := formatCheckers[ft] != nil
		wantChecker := ft == schema.FieldTypeEmail || ft == schema.FieldTypePhone
		if hasChecker != wantChecker {
			t.Fatalf("%s: format checker present = %v, want %v", ft, hasChecker, wantChecker)
		}
	}
}

func TestPatternCacheReusesCompiledPatterns(t *testing.T) {
	t.Parallel()

	v := New(WithPatternCacheSize(2))
	field := schema.Field{Code: "code", Label: "Code", Type: schema.FieldTypeText, Validation: schema.ValidationRules{Pattern: `^\d+$`}}
	for i := 0; i < 3; i++ {
		if got := v.ValidateField(field, "12", nil); got != "" {
			t.Fatalf("unexpected message %q", got)
		}
	}
	if v.patterns.Len() != 1 {
		t.Fatalf("expected one cached pattern, got %d", v.patterns.Len())
	}
}

func TestOptionalFieldsAcceptAbsentValuesFuzz(t *testing.T) {
	t.Parallel()

	f := fuzz.New().NilChance(0.3)
	v := New()
	for i := 0; i < 200; i++ {
		var rules schema.ValidationRules
		f.Fuzz(&rules)
		rules.Required = false
		rules.CustomMessage = ""
		for ft := schema.FieldType(0); ft < schema.FieldTypeCount; ft++ {
			field := schema.Field{Code: "x", Label: "X", Type: ft, Validation: rules}
			for _, absent := range []any{nil, "", []any{}} {
				if got := v.ValidateField(field, absent, nil); got != "" {
					t.Fatalf("%s with rules %+v and value %#v: got %q", ft, rules, absent, got)
				}
			}
		}
	}
}
