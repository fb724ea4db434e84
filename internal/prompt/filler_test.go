package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/contextdata"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/session"
	"github.com/goliatone/go-formstate/pkg/testsupport"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	multiIdx     [][]int
	confirm      []bool
	textAreas    []string
	infoMessages []string
	inputPos     int
	selectPos    int
	multiPos     int
	confirmPos   int
	textPos      int
}

func (s *stubDriver) Text(_ context.Context, _ TextConfig) (string, error) {
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Choose(_ context.Context, _ ChoiceConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) ChooseMany(_ context.Context, _ ChoiceConfig) ([]int, error) {
	if s.multiPos >= len(s.multiIdx) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multiIdx[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *stubDriver) Multiline(_ context.Context, _ TextConfig) (string, error) {
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Note(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func (s *stubDriver) sawInfo(substr string) bool {
	for _, msg := range s.infoMessages {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

func acmeCatalog(t *testing.T, tpl schema.FormTemplate) *contextdata.Catalog {
	t.Helper()
	static := contextdata.Static{
		"acme": {
			"jobsites": {{"id": "js-1", "name": "North Yard"}, {"id": "js-2", "name": "Dock 4"}},
			"workers":  {{"id": "w-1", "name": "Ana"}, {"id": "w-2", "name": "Bo"}},
			"hazards":  {{"id": "hz-1", "name": "Wet floor"}, {"id": "hz-2", "name": "Live wire"}},
		},
	}
	catalog, err := contextdata.Snapshot(testsupport.Context(), static, "acme", tpl)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return catalog
}

func TestFill_SafetyInspection(t *testing.T) {
	t.Parallel()

	tpl := testsupport.SafetyInspection()
	catalog := acmeCatalog(t, tpl)
	sess, err := session.New(tpl, session.WithCatalog(catalog))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	driver := &stubDriver{
		selectIdx: []int{0, 1, 0},
		inputs:    []string{"2023-05-01", "2024-06-01", "4", "bad", "ops@example.com", "J. Doe"},
		confirm:   []bool{false, false},
		textAreas: []string{"slippery"},
	}
	filler := NewFiller(WithDriver(driver), WithCatalog(catalog))
	if err := filler.Fill(context.Background(), sess); err != nil {
		t.Fatalf("fill: %v", err)
	}

	st := sess.State()
	want := schema.Values{
		"jobsite":         "js-1",
		"inspector":       "w-2",
		"inspection_date": "2024-06-01",
		"has_vehicle":     false,
		"contact_email":   "ops@example.com",
		"signature":       "J. Doe",
	}
	got := st.Values()
	for code, value := range want {
		if diff := cmp.Diff(value, got[code]); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", code, diff)
		}
	}

	instances := st.Instances("sec-hazards")
	if len(instances) != 1 {
		t.Fatalf("expected one hazard instance, got %d", len(instances))
	}
	wantInstance := schema.Values{"hazard": "hz-1", "severity": 4.0, "notes": "slippery"}
	for code, value := range wantInstance {
		if diff := cmp.Diff(value, instances[0].Values[code]); diff != "" {
			t.Fatalf("instance %s mismatch (-want +got):\n%s", code, diff)
		}
	}

	if !driver.sawInfo("Inspection date must be on or after 2024-01-01") {
		t.Fatalf("expected date error to be shown, got %v", driver.infoMessages)
	}
	if !driver.sawInfo("Contact email must be a valid email address") {
		t.Fatalf("expected email error to be shown, got %v", driver.infoMessages)
	}
	if !driver.sawInfo("[1/3] Site") || !driver.sawInfo("[3/3] Sign-off") {
		t.Fatalf("expected step headers, got %v", driver.infoMessages)
	}
	if driver.sawInfo("Vehicle") {
		t.Fatalf("hidden section was prompted: %v", driver.infoMessages)
	}

	valid, err := sess.Validate()
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !valid {
		t.Fatalf("expected filled form to be valid, got %v", sess.State().Errors())
	}
}

func TestFill_FieldShapesAndGates(t *testing.T) {
	t.Parallel()

	tpl := schema.FormTemplate{
		ID: "tpl-shapes", Code: "shapes", Version: 1, Active: true,
		Sections: []schema.Section{{
			ID: "sec-main", Title: "Main",
			Fields: []schema.Field{
				{ID: "f-intro", Code: "intro", Type: schema.FieldTypeInstructions, HelpText: "Walk the perimeter first."},
				{ID: "f-ref", Code: "ref", Type: schema.FieldTypeHidden},
				{ID: "f-clear", Code: "all_clear", Label: "All clear", Type: schema.FieldTypeYesNoNA},
				{ID: "f-tags", Code: "tags", Label: "Tags", Type: schema.FieldTypeMultiSelect, Options: []schema.Option{
					{Value: "a", Label: "A"}, {Value: "b", Label: "B"}, {Value: "c", Label: "C"},
				}},
				{ID: "f-more", Code: "has_notes", Label: "Add notes", Type: schema.FieldTypeToggle},
				{ID: "f-notes", Code: "notes", Label: "Notes", Type: schema.FieldTypeText,
					ConditionalLogic: &schema.ConditionalLogic{FieldID: "f-more", Operator: schema.OperatorEquals, Value: true}},
				{ID: "f-loc", Code: "location", Label: "Location", Type: schema.FieldTypeGeolocation},
				{ID: "f-photo", Code: "photo", Label: "Photo", Type: schema.FieldTypePhoto},
			},
		}},
	}
	sess, err := session.New(tpl)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	driver := &stubDriver{
		selectIdx: []int{2},
		multiIdx:  [][]int{{0, 2}},
		confirm:   []bool{true},
		inputs:    []string{"details", "45.5, -122.6", "/tmp/shots/north.jpg"},
	}
	if err := NewFiller(WithDriver(driver)).Fill(context.Background(), sess); err != nil {
		t.Fatalf("fill: %v", err)
	}

	want := schema.Values{
		"all_clear": "na",
		"tags":      []any{"a", "c"},
		"has_notes": true,
		"notes":     "details",
		"location":  map[string]any{"lat": 45.5, "lng": -122.6},
		"photo":     map[string]any{"name": "north.jpg", "ref": "/tmp/shots/north.jpg"},
	}
	got := sess.State().Values()
	for code, value := range want {
		if diff := cmp.Diff(value, got[code]); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", code, diff)
		}
	}
	if !driver.sawInfo("Walk the perimeter first.") {
		t.Fatalf("expected instructions to be shown, got %v", driver.infoMessages)
	}
	if driver.inputPos != 3 {
		t.Fatalf("expected 3 inputs consumed, got %d", driver.inputPos)
	}
}

func TestFill_SkipsFieldHiddenByEarlierAnswer(t *testing.T) {
	t.Parallel()

	tpl := schema.FormTemplate{
		ID: "tpl-gate", Code: "gate", Version: 1, Active: true,
		Sections: []schema.Section{{
			ID: "sec-main", Title: "Main",
			Fields: []schema.Field{
				{ID: "f-more", Code: "has_notes", Label: "Add notes", Type: schema.FieldTypeToggle},
				{ID: "f-notes", Code: "notes", Label: "Notes", Type: schema.FieldTypeText,
					Validation:       schema.ValidationRules{Required: true},
					ConditionalLogic: &schema.ConditionalLogic{FieldID: "f-more", Operator: schema.OperatorEquals, Value: true}},
			},
		}},
	}
	sess, err := session.New(tpl)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	driver := &stubDriver{confirm: []bool{false}}
	if err := NewFiller(WithDriver(driver)).Fill(context.Background(), sess); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if driver.inputPos != 0 {
		t.Fatalf("hidden field was prompted")
	}
	if _, ok := sess.State().Value("notes"); ok {
		t.Fatalf("hidden field should stay unset")
	}
}

func TestFill_RepeatableSection(t *testing.T) {
	t.Parallel()

	tpl := schema.FormTemplate{
		ID: "tpl-crew", Code: "crew", Version: 1, Active: true,
		Sections: []schema.Section{{
			ID: "sec-crew", Title: "Crew", Repeatable: true, MinRepeats: 1, MaxRepeats: 2,
			Fields: []schema.Field{
				{ID: "f-name", Code: "name", Label: "Name", Type: schema.FieldTypeText,
					Validation: schema.ValidationRules{Required: true}},
			},
		}},
	}
	sess, err := session.New(tpl)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	driver := &stubDriver{
		inputs:  []string{"", "Ana", "Bo"},
		confirm: []bool{true},
	}
	if err := NewFiller(WithDriver(driver)).Fill(context.Background(), sess); err != nil {
		t.Fatalf("fill: %v", err)
	}

	instances := sess.State().Instances("sec-crew")
	var names []any
	for _, instance := range instances {
		names = append(names, instance.Values["name"])
	}
	if diff := cmp.Diff([]any{"Ana", "Bo"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if !driver.sawInfo("Name is required") {
		t.Fatalf("expected required error to be shown, got %v", driver.infoMessages)
	}
	if driver.confirmPos != 1 {
		t.Fatalf("expected no add prompt once max repeats is reached, got %d confirms", driver.confirmPos)
	}
}

func TestFill_CancelledContext(t *testing.T) {
	t.Parallel()

	sess, err := session.New(testsupport.SectionsTemplate(2, false))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = NewFiller(WithDriver(&stubDriver{})).Fill(ctx, sess)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFill_DriverErrorStops(t *testing.T) {
	t.Parallel()

	sess, err := session.New(testsupport.SectionsTemplate(2, false))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	err = NewFiller(WithDriver(&stubDriver{})).Fill(context.Background(), sess)
	if err == nil || !strings.Contains(err.Error(), "no input scripted") {
		t.Fatalf("expected driver error, got %v", err)
	}
}
