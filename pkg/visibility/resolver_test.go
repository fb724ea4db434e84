package visibility

import (
	"testing"

	fuzz "github.com/google/gofuzz"

	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/testsupport"
)

func TestVisibleFieldsDoesNotCascade(t *testing.T) {
	t.Parallel()

	tpl := testsupport.SafetyInspection()
	codes := schema.BuildCodeMap(tpl)
	values := schema.Values{"has_vehicle": false}

	vehicle, _ := tpl.Section("sec-vehicle")
	if SectionVisible(vehicle, values, codes) {
		t.Fatalf("vehicle section should be hidden")
	}
	if got := VisibleFields(vehicle.Fields, values, codes); len(got) != 2 {
		t.Fatalf("fields keep their own visibility, got %d", len(got))
	}

	for _, field := range VisibleFieldsOf(tpl, values, codes) {
		if field.Code == "plate" || field.Code == "mileage" {
			t.Fatalf("field %s of hidden section leaked into VisibleFieldsOf", field.Code)
		}
	}
}

func TestVisibleFieldsOfNeverIncludesHiddenSectionFields(t *testing.T) {
	t.Parallel()

	tpl := testsupport.SectionsTemplate(5, true)
	codes := schema.BuildCodeMap(tpl)
	owner := make(map[string]string)
	for _, section := range tpl.Sections {
		for _, field := range section.Fields {
			owner[field.Code] = section.ID
		}
	}

	f := fuzz.New()
	var hide [5]bool
	for i := 0; i < 500; i++ {
		f.Fuzz(&hide)
		values := schema.Values{}
		for idx, hidden := range hide {
			if hidden {
				values["hide_"+string(rune('0'+idx))] = "yes"
			}
		}
		visible := make(map[string]bool)
		for _, section := range VisibleSections(tpl.Sections, values, codes) {
			visible[section.ID] = true
		}
		for _, field := range VisibleFieldsOf(tpl, values, codes) {
			if !visible[owner[field.Code]] {
				t.Fatalf("field %s returned while section %s hidden", field.Code, owner[field.Code])
			}
		}
	}
}
