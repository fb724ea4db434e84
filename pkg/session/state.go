package session

import (
	"fmt"
	"math"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formstate/pkg/contextdata"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/validation"
	"github.com/goliatone/go-formstate/pkg/visibility"
)

// WizardThreshold is the number of visible sections from which a form is
// presented one section at a time.
const WizardThreshold = 3

// form is the read-only part shared by every State of a session.
type form struct {
	tpl       schema.FormTemplate
	codes     schema.CodeMap
	validator *validation.Validator
	catalog   *contextdata.Catalog
	newID     func() string
}

// State is an immutable snapshot of a form-filling session. Every transition
// returns a new State and leaves the receiver untouched, so a State can be
// handed to readers without copying.
type State struct {
	form *form

	initial          schema.Values
	initialInstances []schema.SectionInstance

	values          schema.Values
	instances       []schema.SectionInstance
	nextOrdinal     map[string]int
	errors          map[string]string
	touched         map[string]bool
	step            int
	submitting      bool
	submitAttempted bool
	lastSavedAt     time.Time
}

// NewState starts a session over tpl. Values are seeded from each field's
// default, or its type's zero value, and every repeatable section starts with
// min_repeats instances.
func NewState(tpl schema.FormTemplate, options ...Option) State {
	cfg := newConfig(options)
	return newState(tpl, cfg)
}

func newState(tpl schema.FormTemplate, cfg config) State {
	f := &form{
		tpl:       tpl,
		codes:     schema.BuildCodeMap(tpl),
		validator: cfg.validator,
		catalog:   cfg.catalog,
		newID:     cfg.newID,
	}
	s := State{
		form:        f,
		nextOrdinal: make(map[string]int),
		errors:      map[string]string{},
		touched:     map[string]bool{},
	}

	values := schema.Values{}
	for _, section := range tpl.Sections {
		if section.Repeatable {
			for i := 0; i < section.MinRepeats; i++ {
				s.instances = append(s.instances, s.newInstance(section))
			}
			continue
		}
		for code, value := range defaults(section.Fields) {
			values[code] = value
		}
	}

	if d := cfg.draft; d != nil {
		values = values.Overlay(d.Values.Clone())
		if d.Instances != nil {
			s.instances = cloneInstances(d.Instances)
			s.nextOrdinal = make(map[string]int)
			for _, instance := range s.instances {
				if instance.Ordinal >= s.nextOrdinal[instance.SectionID] {
					s.nextOrdinal[instance.SectionID] = instance.Ordinal + 1
				}
			}
		}
		// The saved counter also covers instances removed before the save.
		for sectionID, next := range d.NextOrdinals {
			if next > s.nextOrdinal[sectionID] {
				s.nextOrdinal[sectionID] = next
			}
		}
		s.lastSavedAt = d.SavedAt
	}

	s.values = values
	s.initial = values.Clone()
	s.initialInstances = cloneInstances(s.instances)
	return s
}

func defaults(fields []schema.Field) schema.Values {
	out := schema.Values{}
	for _, field := range fields {
		if field.Type.Kind() == schema.ValueKindNone {
			continue
		}
		value := field.DefaultValue
		if value == nil {
			value = field.Type.ZeroValue()
		}
		if value != nil {
			out[field.Code] = schema.DeepCopy(value)
		}
	}
	return out
}

// newInstance mutates s.nextOrdinal; callers own s.
func (s *State) newInstance(section schema.Section) schema.SectionInstance {
	ordinal := s.nextOrdinal[section.ID]
	s.nextOrdinal[section.ID] = ordinal + 1
	return schema.SectionInstance{
		ID:        s.form.newID(),
		SectionID: section.ID,
		Ordinal:   ordinal,
		Values:    defaults(section.Fields),
	}
}

// nextOrdinals copies the per-section ordinal counters.
func (s State) nextOrdinals() map[string]int {
	if len(s.nextOrdinal) == 0 {
		return nil
	}
	out := make(map[string]int, len(s.nextOrdinal))
	for k, v := range s.nextOrdinal {
		out[k] = v
	}
	return out
}

// clone copies every mutable collection so the result can be changed freely.
func (s State) clone() State {
	out := s
	out.values = s.values.Clone()
	out.instances = cloneInstances(s.instances)
	out.nextOrdinal = make(map[string]int, len(s.nextOrdinal))
	for k, v := range s.nextOrdinal {
		out.nextOrdinal[k] = v
	}
	out.errors = make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		out.errors[k] = v
	}
	out.touched = make(map[string]bool, len(s.touched))
	for k, v := range s.touched {
		out.touched[k] = v
	}
	return out
}

// settle clamps the wizard step after a transition. Visibility can shrink the
// step count under the current position.
func (s State) settle() State {
	s.step = clampStep(s.step, s.TotalSteps())
	return s
}

func clampStep(step, total int) int {
	if step >= total {
		step = total - 1
	}
	if step < 0 {
		step = 0
	}
	return step
}

// Template returns the template the session runs over.
func (s State) Template() schema.FormTemplate {
	return s.form.tpl
}

// Codes returns the template's id to code map.
func (s State) Codes() schema.CodeMap {
	return s.form.codes
}

// Values returns a copy of the current form-level values.
func (s State) Values() schema.Values {
	return s.values.Clone()
}

// Value returns one form-level value.
func (s State) Value(code string) (any, bool) {
	return s.values.Get(code)
}

// Instances returns copies of the instances of sectionID in creation order.
// An empty sectionID returns every instance.
func (s State) Instances(sectionID string) []schema.SectionInstance {
	var out []schema.SectionInstance
	for _, instance := range s.instances {
		if sectionID == "" || instance.SectionID == sectionID {
			instance.Values = instance.Values.Clone()
			out = append(out, instance)
		}
	}
	return out
}

// Errors returns a copy of the last validation result.
func (s State) Errors() map[string]string {
	out := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

// Touched reports whether key has been interacted with.
func (s State) Touched(key string) bool {
	return s.touched[key]
}

// IsDirty compares the current values and instances with the initial
// snapshot.
func (s State) IsDirty() bool {
	if !s.values.Equal(s.initial) {
		return true
	}
	return !cmp.Equal(s.instances, s.initialInstances, cmpopts.EquateEmpty())
}

// IsSubmitting reports whether a submit is in flight.
func (s State) IsSubmitting() bool {
	return s.submitting
}

// SubmitAttempted reports whether submit has been tried since the last reset.
func (s State) SubmitAttempted() bool {
	return s.submitAttempted
}

// LastSavedAt returns the time of the last successful draft save.
func (s State) LastSavedAt() time.Time {
	return s.lastSavedAt
}

// VisibleSections returns the sections whose gates pass.
func (s State) VisibleSections() []schema.Section {
	return visibility.VisibleSections(s.form.tpl.Sections, s.values, s.form.codes)
}

// WizardMode reports whether enough sections are visible to page through them.
func (s State) WizardMode() bool {
	return len(s.VisibleSections()) >= WizardThreshold
}

// TotalSteps is the number of visible sections.
func (s State) TotalSteps() int {
	return len(s.VisibleSections())
}

// CurrentStep returns the wizard position, clamped into [0, TotalSteps).
func (s State) CurrentStep() int {
	return clampStep(s.step, s.TotalSteps())
}

// CurrentSection returns the visible section at the current step.
func (s State) CurrentSection() (schema.Section, bool) {
	visible := s.VisibleSections()
	if len(visible) == 0 {
		return schema.Section{}, false
	}
	return visible[clampStep(s.step, len(visible))], true
}

// Completion is round(100 * completed / total) over the visible required
// fields, counting instance fields once per instance. With nothing required
// the form is complete.
func (s State) Completion() int {
	var total, completed int
	count := func(fields []schema.Field, scope schema.Values) {
		for _, field := range visibility.VisibleFields(fields, scope, s.form.codes) {
			if !field.Validation.Required || field.Type.Kind() == schema.ValueKindNone {
				continue
			}
			total++
			if value, ok := scope.Get(field.Code); ok && isAnswered(value) {
				completed++
			}
		}
	}
	for _, section := range s.VisibleSections() {
		if !section.Repeatable {
			count(section.Fields, s.values)
			continue
		}
		for _, instance := range s.instances {
			if instance.SectionID == section.ID {
				count(section.Fields, s.values.Overlay(instance.Values))
			}
		}
	}
	if total == 0 {
		return 100
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

func isAnswered(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case []string:
		return len(v) > 0
	}
	return true
}

// VisibleErrors returns the errors that may be shown: those of touched keys,
// or all of them once submit has been attempted.
func (s State) VisibleErrors() map[string]string {
	out := make(map[string]string)
	for key, msg := range s.errors {
		if s.submitAttempted || s.touched[key] {
			out[key] = msg
		}
	}
	return out
}

// SetValue assigns a form-level value. It neither touches nor revalidates.
func (s State) SetValue(code string, value any) State {
	out := s.clone()
	out.values[code] = schema.DeepCopy(value)
	return out.settle()
}

// SetTouched marks key as interacted with. Instance fields use
// validation.InstanceKey.
func (s State) SetTouched(key string) State {
	out := s.clone()
	out.touched[key] = true
	return out
}

// Validate replaces the error map with a fresh run over the visible form and
// every instance of the visible repeatable sections.
func (s State) Validate() (State, bool) {
	out := s.clone()
	v := s.form.validator
	errs := v.ValidateForm(s.form.tpl, s.values, s.form.codes)
	for key, msg := range v.ValidateInstances(s.form.tpl, s.values, s.instances, s.form.codes) {
		errs[key] = msg
	}
	out.errors = errs
	return out, validation.IsFormValid(errs)
}

// Reset restores the initial snapshot and clears errors, touched flags and
// the submit attempt. Ordinals keep counting from where they were.
func (s State) Reset() State {
	out := s.clone()
	out.values = s.initial.Clone()
	out.instances = cloneInstances(s.initialInstances)
	out.errors = map[string]string{}
	out.touched = map[string]bool{}
	out.submitAttempted = false
	out.step = 0
	return out
}

// GoToStep moves to step n. Out-of-range steps are ignored.
func (s State) GoToStep(n int) State {
	if n < 0 || n >= s.TotalSteps() {
		return s
	}
	out := s
	out.step = n
	return out
}

// NextStep advances one step when possible.
func (s State) NextStep() State {
	return s.GoToStep(s.CurrentStep() + 1)
}

// PrevStep goes back one step when possible.
func (s State) PrevStep() State {
	return s.GoToStep(s.CurrentStep() - 1)
}

func (s State) repeatable(sectionID string) (schema.Section, error) {
	section, ok := s.form.tpl.Section(sectionID)
	if !ok {
		return schema.Section{}, fmt.Errorf("%w: %q", ErrUnknownSection, sectionID)
	}
	if !section.Repeatable {
		return schema.Section{}, fmt.Errorf("%w: %q", ErrNotRepeatable, sectionID)
	}
	return section, nil
}

func (s State) countInstances(sectionID string) int {
	n := 0
	for _, instance := range s.instances {
		if instance.SectionID == sectionID {
			n++
		}
	}
	return n
}

// AddInstance appends an instance with a fresh id and the next ordinal. The
// receiver is returned unchanged with ErrMaxRepeats once the section is full.
func (s State) AddInstance(sectionID string) (State, schema.SectionInstance, error) {
	section, err := s.repeatable(sectionID)
	if err != nil {
		return s, schema.SectionInstance{}, err
	}
	if section.MaxRepeats > 0 && s.countInstances(sectionID) >= section.MaxRepeats {
		return s, schema.SectionInstance{}, fmt.Errorf("%w: %q allows %d", ErrMaxRepeats, sectionID, section.MaxRepeats)
	}
	out := s.clone()
	instance := out.newInstance(section)
	out.instances = append(out.instances, instance)
	instance.Values = instance.Values.Clone()
	return out, instance, nil
}

// RemoveInstance drops an instance. Remaining ordinals are not renumbered.
func (s State) RemoveInstance(sectionID, instanceID string) (State, error) {
	section, err := s.repeatable(sectionID)
	if err != nil {
		return s, err
	}
	index := -1
	for i, instance := range s.instances {
		if instance.ID == instanceID && instance.SectionID == sectionID {
			index = i
			break
		}
	}
	if index < 0 {
		return s, fmt.Errorf("%w: %q", ErrUnknownInstance, instanceID)
	}
	if s.countInstances(sectionID) <= section.MinRepeats {
		return s, fmt.Errorf("%w: %q requires %d", ErrMinRepeats, sectionID, section.MinRepeats)
	}

	out := s.clone()
	removed := out.instances[index]
	out.instances = append(out.instances[:index], out.instances[index+1:]...)
	for _, field := range section.Fields {
		key := validation.InstanceKey(field.Code, removed.Ordinal)
		delete(out.errors, key)
		delete(out.touched, key)
	}
	return out.settle(), nil
}

// SetInstanceValue assigns a value inside one instance.
func (s State) SetInstanceValue(instanceID, code string, value any) (State, error) {
	for i, instance := range s.instances {
		if instance.ID != instanceID {
			continue
		}
		section, _ := s.form.tpl.Section(instance.SectionID)
		if !hasField(section.Fields, code) {
			return s, fmt.Errorf("%w: %q in section %q", ErrUnknownField, code, section.ID)
		}
		out := s.clone()
		out.instances[i].Values[code] = schema.DeepCopy(value)
		return out.settle(), nil
	}
	return s, fmt.Errorf("%w: %q", ErrUnknownInstance, instanceID)
}

func hasField(fields []schema.Field, code string) bool {
	for _, field := range fields {
		if field.Code == code {
			return true
		}
	}
	return false
}

// ApplyLibrarySelection sets a lookup or library field to id and copies the
// selected record's bound keys into sibling fields. Without a catalog, or
// when the record is not found, only the field itself is set.
func (s State) ApplyLibrarySelection(code, id string) (State, error) {
	field, ok := s.form.tpl.FieldByCode(code)
	if !ok {
		return s, fmt.Errorf("%w: %q", ErrUnknownField, code)
	}
	out := s.clone()
	out.values[code] = id

	kind, _, _, ok := contextdata.SourceOf(field)
	if !ok || s.form.catalog == nil {
		return out.settle(), nil
	}
	record, found := s.form.catalog.Record(kind, id)
	if !found {
		return out.settle(), nil
	}
	for sibling, value := range contextdata.AutoPopulate(field.Library, record) {
		out.values[sibling] = value
	}
	return out.settle(), nil
}

// BeginSubmit records a submit attempt and validates. Only a valid form
// enters the submitting state.
func (s State) BeginSubmit() (State, bool) {
	out, valid := s.Validate()
	out.submitAttempted = true
	if valid {
		out.submitting = true
	}
	return out, valid
}

// EndSubmit leaves the submitting state. Values are kept either way.
func (s State) EndSubmit() State {
	out := s
	out.submitting = false
	return out
}

// MarkSaved records a successful draft save. The dirty baseline is left as
// is; only Reset or a reload moves it.
func (s State) MarkSaved(at time.Time) State {
	out := s
	out.lastSavedAt = at
	return out
}

func cloneInstances(instances []schema.SectionInstance) []schema.SectionInstance {
	if instances == nil {
		return nil
	}
	out := make([]schema.SectionInstance, len(instances))
	for i, instance := range instances {
		instance.Values = instance.Values.Clone()
		out[i] = instance
	}
	return out
}
