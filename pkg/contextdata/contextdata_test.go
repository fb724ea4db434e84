package contextdata

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/testsupport"
	"github.com/goliatone/go-formstate/pkg/validation"
)

func loadFixture(t *testing.T) Static {
	t.Helper()
	provider, err := LoadStaticFile(filepath.Join("testdata", "context.yaml"))
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return provider
}

func TestStaticList(t *testing.T) {
	t.Parallel()

	provider := loadFixture(t)
	records, err := provider.List(context.Background(), "acme", schema.LookupWorkers)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 workers, got %d", len(records))
	}
	if _, err := provider.List(context.Background(), "acme", "vehicles"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if diff := cmp.Diff([]string{"acme", "globex"}, provider.Tenants()); diff != "" {
		t.Fatalf("tenants mismatch (-want +got):\n%s", diff)
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	provider := loadFixture(t)
	ctx := context.Background()

	worker := schema.Field{Code: "inspector", Type: schema.FieldTypeWorker}
	got, err := Options(ctx, provider, "acme", worker)
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	want := []schema.Option{{Value: "w-1", Label: "Dana Ortiz"}, {Value: "w-2", Label: "Lee Park"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("worker options mismatch (-want +got):\n%s", diff)
	}

	bound := schema.Field{Code: "unit", Type: schema.FieldTypeSelect, Library: &schema.LibraryBinding{Source: "equipment", ValueKey: "code", LabelKey: "label"}}
	got, err = Options(ctx, provider, "acme", bound)
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	want = []schema.Option{{Value: "EQ-100", Label: "Scissor lift"}, {Value: "EQ-200", Label: "Generator"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("library options mismatch (-want +got):\n%s", diff)
	}

	static := schema.Field{Code: "shift", Type: schema.FieldTypeRadio, Options: []schema.Option{{Value: "day", Label: "Day"}}}
	got, err = Options(ctx, nil, "acme", static)
	if err != nil || len(got) != 1 {
		t.Fatalf("expected authored options, got %v (%v)", got, err)
	}

	if _, err := Options(ctx, nil, "acme", worker); err == nil {
		t.Fatalf("expected error without provider")
	}
}

func TestAutoPopulate(t *testing.T) {
	t.Parallel()

	binding := &schema.LibraryBinding{
		Source:       "equipment",
		ValueKey:     "code",
		AutoPopulate: map[string]string{"serial_number": "serial", "inspected_on": "last_inspected", "owner": "owner"},
	}
	record := Record{"code": "EQ-100", "serial": "SL-5521", "last_inspected": "2024-04-01"}

	want := map[string]any{"serial_number": "SL-5521", "inspected_on": "2024-04-01"}
	if diff := cmp.Diff(want, AutoPopulate(binding, record)); diff != "" {
		t.Fatalf("auto populate mismatch (-want +got):\n%s", diff)
	}
	if got := AutoPopulate(nil, record); got != nil {
		t.Fatalf("expected nil without binding, got %v", got)
	}
}

func TestContains(t *testing.T) {
	t.Parallel()

	records := []Record{{"id": "w-1"}, {"id": 7}}
	if !Contains(records, "w-1") || !Contains(records, "7") {
		t.Fatalf("expected ids to be found")
	}
	if Contains(records, "w-2") {
		t.Fatalf("unexpected membership")
	}
}

func TestCatalogSnapshot(t *testing.T) {
	t.Parallel()

	provider := loadFixture(t)
	tpl := testsupport.SafetyInspection()

	catalog, err := Snapshot(context.Background(), provider, "globex", tpl)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	var lookup validation.Lookup = catalog
	if contains, known := lookup.Contains(schema.LookupWorkers, "w-9"); !contains || !known {
		t.Fatalf("expected globex worker w-9, got contains=%v known=%v", contains, known)
	}
	if contains, known := lookup.Contains(schema.LookupWorkers, "w-1"); contains || !known {
		t.Fatalf("expected acme worker to be rejected for globex, got contains=%v known=%v", contains, known)
	}
	if _, known := lookup.Contains(schema.LookupJobsites, "js-1"); known {
		t.Fatalf("expected missing globex jobsites list to be unknown")
	}
}

func TestCatalogOptions(t *testing.T) {
	t.Parallel()

	catalog, err := Snapshot(context.Background(), loadFixture(t), "acme", testsupport.SafetyInspection())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	worker := schema.Field{Code: "inspector", Type: schema.FieldTypeWorker}
	want := []schema.Option{{Value: "w-1", Label: "Dana Ortiz"}, {Value: "w-2", Label: "Lee Park"}}
	if diff := cmp.Diff(want, catalog.Options(worker)); diff != "" {
		t.Fatalf("worker options mismatch (-want +got):\n%s", diff)
	}

	authored := []schema.Option{{Value: "EQ-1", Label: "Lift"}}
	unloaded := schema.Field{Code: "unit", Type: schema.FieldTypeSelect, Options: authored, Library: &schema.LibraryBinding{Source: "vehicles"}}
	if diff := cmp.Diff(authored, catalog.Options(unloaded)); diff != "" {
		t.Fatalf("expected authored options for an unloaded list (-want +got):\n%s", diff)
	}

	var none *Catalog
	if diff := cmp.Diff(authored, none.Options(unloaded)); diff != "" {
		t.Fatalf("expected a nil catalog to keep authored options (-want +got):\n%s", diff)
	}
	if got := none.Options(worker); len(got) != 0 {
		t.Fatalf("expected no options without a catalog, got %v", got)
	}
}

func TestCatalogDrivesValidation(t *testing.T) {
	t.Parallel()

	tpl := testsupport.SafetyInspection()
	catalog, err := Snapshot(context.Background(), loadFixture(t), "acme", tpl)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	v := validation.New(validation.WithLookup(catalog))
	field, _ := tpl.FieldByCode("jobsite")

	if msg := v.ValidateField(field, "js-2", nil); msg != "" {
		t.Fatalf("expected js-2 to be valid, got %q", msg)
	}
	if msg := v.ValidateField(field, "js-404", nil); msg != "Jobsite is not a valid selection" {
		t.Fatalf("unexpected message %q", msg)
	}
	if record, ok := catalog.Record(schema.LookupJobsites, "js-1"); !ok || record["name"] != "North Yard" {
		t.Fatalf("unexpected record %v", record)
	}
}
