package testsupport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// LoadTemplate reads a YAML/JSON template fixture. Testing helpers fail the
// test on error to keep table tests concise.
func LoadTemplate(t *testing.T, path string) schema.FormTemplate {
	t.Helper()

	tpl, err := LoadTemplateFromPath(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	return tpl
}

// LoadTemplateFromPath returns a template without requiring testing.T so
// callers can wire fixtures in setup functions.
func LoadTemplateFromPath(path string) (schema.FormTemplate, error) {
	if path == "" {
		return schema.FormTemplate{}, errors.New("testsupport: template path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.FormTemplate{}, fmt.Errorf("testsupport: read template: %w", err)
	}
	var out schema.FormTemplate
	if err := yaml.Unmarshal(data, &out); err != nil {
		return schema.FormTemplate{}, fmt.Errorf("testsupport: unmarshal template: %w", err)
	}
	return out, nil
}

// MustLoadValues reads a YAML/JSON values fixture.
func MustLoadValues(t *testing.T, path string) schema.Values {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read values: %v", err)
	}
	var out schema.Values
	if err := yaml.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal values: %v", err)
	}
	return out
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// Ptr returns a pointer to v; handy for optional validation bounds.
func Ptr[T any](v T) *T {
	return &v
}

// SafetyInspection builds a four-section inspection template covering lookup
// fields, a gated section, a repeatable section and attachment fields.
//
//	site     always visible: jobsite, inspector, inspection_date, has_vehicle
//	vehicle  visible when has_vehicle equals true: plate, mileage
//	hazards  repeatable (1..3): hazard, severity, notes
//	signoff  always visible: contact_email, signature
func SafetyInspection() schema.FormTemplate {
	return schema.FormTemplate{
		ID:      "tpl-safety",
		Name:    "Daily Safety Inspection",
		Code:    "daily_safety_inspection",
		Version: 3,
		Active:  true,
		Sections: []schema.Section{
			{
				ID:    "sec-site",
				Title: "Site",
				Order: 0,
				Fields: []schema.Field{
					{ID: "f-jobsite", Code: "jobsite", Label: "Jobsite", Type: schema.FieldTypeJobsite, Order: 0,
						Validation: schema.ValidationRules{Required: true}},
					{ID: "f-inspector", Code: "inspector", Label: "Inspector", Type: schema.FieldTypeWorker, Order: 1},
					{ID: "f-date", Code: "inspection_date", Label: "Inspection date", Type: schema.FieldTypeDate, Order: 2,
						Validation: schema.ValidationRules{Required: true, MinDate: "2024-01-01"}},
					{ID: "f-has-vehicle", Code: "has_vehicle", Label: "Vehicle on site", Type: schema.FieldTypeToggle, Order: 3},
				},
			},
			{
				ID:    "sec-vehicle",
				Title: "Vehicle",
				Order: 1,
				ConditionalLogic: &schema.ConditionalLogic{
					FieldID:  "f-has-vehicle",
					Operator: schema.OperatorEquals,
					Value:    true,
				},
				Fields: []schema.Field{
					{ID: "f-plate", Code: "plate", Label: "Plate", Type: schema.FieldTypeText, Order: 0,
						Validation: schema.ValidationRules{Required: true, Pattern: `^[A-Z0-9-]{4,10}$`}},
					{ID: "f-mileage", Code: "mileage", Label: "Mileage", Type: schema.FieldTypeNumber, Order: 1,
						Validation: schema.ValidationRules{MinValue: Ptr(0.0)}},
				},
			},
			{
				ID:         "sec-hazards",
				Title:      "Hazards",
				Order:      2,
				Repeatable: true,
				MinRepeats: 1,
				MaxRepeats: 3,
				Fields: []schema.Field{
					{ID: "f-hazard", Code: "hazard", Label: "Hazard", Type: schema.FieldTypeHazard, Order: 0,
						Validation: schema.ValidationRules{Required: true}},
					{ID: "f-severity", Code: "severity", Label: "Severity", Type: schema.FieldTypeRating, Order: 1,
						Validation: schema.ValidationRules{MinValue: Ptr(1.0), MaxValue: Ptr(5.0)}},
					{ID: "f-notes", Code: "notes", Label: "Notes", Type: schema.FieldTypeTextArea, Order: 2,
						Validation: schema.ValidationRules{MaxLength: Ptr(200)}},
				},
			},
			{
				ID:    "sec-signoff",
				Title: "Sign-off",
				Order: 3,
				Fields: []schema.Field{
					{ID: "f-email", Code: "contact_email", Label: "Contact email", Type: schema.FieldTypeEmail, Order: 0},
					{ID: "f-signature", Code: "signature", Label: "Signature", Type: schema.FieldTypeSignature, Order: 1,
						Validation: schema.ValidationRules{Required: true}},
				},
			},
		},
	}
}

// SectionsTemplate builds a template with n plain sections, each holding one
// optional text field coded "field_<i>". Section i > 0 is gated on
// "hide_<i>" being empty when gated is true.
func SectionsTemplate(n int, gated bool) schema.FormTemplate {
	tpl := schema.FormTemplate{ID: "tpl-sections", Name: "Sections", Code: "sections", Version: 1, Active: true}
	for i := 0; i < n; i++ {
		section := schema.Section{
			ID:    fmt.Sprintf("sec-%d", i),
			Title: fmt.Sprintf("Section %d", i),
			Order: i,
			Fields: []schema.Field{
				{ID: fmt.Sprintf("f-%d", i), Code: fmt.Sprintf("field_%d", i), Label: fmt.Sprintf("Field %d", i), Type: schema.FieldTypeText},
			},
		}
		if gated && i > 0 {
			section.ConditionalLogic = &schema.ConditionalLogic{
				FieldID:  fmt.Sprintf("hide_%d", i),
				Operator: schema.OperatorIsEmpty,
			}
		}
		tpl.Sections = append(tpl.Sections, section)
	}
	return tpl
}
