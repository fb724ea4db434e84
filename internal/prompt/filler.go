package prompt

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goliatone/go-formstate/internal/coerce"
	"github.com/goliatone/go-formstate/pkg/contextdata"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/session"
	"github.com/goliatone/go-formstate/pkg/validation"
	"github.com/goliatone/go-formstate/pkg/visibility"
)

// Filler walks a session's visible sections in wizard order and prompts for
// every visible field, re-asking while the session reports an error for it.
type Filler struct {
	driver  Driver
	catalog *contextdata.Catalog
}

// Option configures a Filler.
type Option func(*Filler)

// WithDriver overrides the prompt driver.
func WithDriver(driver Driver) Option {
	return func(f *Filler) {
		if driver != nil {
			f.driver = driver
		}
	}
}

// WithCatalog offers lookup fields the records of a context data snapshot.
func WithCatalog(catalog *contextdata.Catalog) Option {
	return func(f *Filler) {
		f.catalog = catalog
	}
}

// NewFiller builds a Filler on the survey driver unless WithDriver is given.
func NewFiller(options ...Option) *Filler {
	f := &Filler{driver: NewSurveyDriver()}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// target abstracts where an answer lands: the form or one instance.
type target struct {
	key   func(code string) string
	scope func(st session.State) schema.Values
	set   func(code string, value any) error
	// form is false for instance targets; library selections only apply to
	// form-level fields.
	form bool
}

// Fill prompts until the last visible section has been answered.
func (f *Filler) Fill(ctx context.Context, sess *session.Session) error {
	if f.driver == nil {
		return ErrNoDriver
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		st := sess.State()
		section, ok := st.CurrentSection()
		if !ok {
			return nil
		}
		if err := f.driver.Note(ctx, fmt.Sprintf("[%d/%d] %s", st.CurrentStep()+1, st.TotalSteps(), section.Title)); err != nil {
			return err
		}

		var err error
		if section.Repeatable {
			err = f.fillInstances(ctx, sess, section)
		} else {
			err = f.fillFields(ctx, sess, section.Fields, formTarget(sess))
		}
		if err != nil {
			return err
		}

		st = sess.State()
		if st.CurrentStep() >= st.TotalSteps()-1 {
			return nil
		}
		if err := sess.NextStep(); err != nil {
			return err
		}
	}
}

func formTarget(sess *session.Session) target {
	return target{
		key:   func(code string) string { return code },
		scope: func(st session.State) schema.Values { return st.Values() },
		set:   sess.SetValue,
		form:  true,
	}
}

func instanceTarget(sess *session.Session, instance schema.SectionInstance) target {
	return target{
		key: func(code string) string { return validation.InstanceKey(code, instance.Ordinal) },
		scope: func(st session.State) schema.Values {
			for _, current := range st.Instances(instance.SectionID) {
				if current.ID == instance.ID {
					return st.Values().Overlay(current.Values)
				}
			}
			return st.Values()
		},
		set: func(code string, value any) error {
			return sess.SetInstanceValue(instance.ID, code, value)
		},
	}
}

func (f *Filler) fillInstances(ctx context.Context, sess *session.Session, section schema.Section) error {
	filled := 0
	for {
		instances := sess.State().Instances(section.ID)
		if filled >= len(instances) {
			if section.MaxRepeats > 0 && len(instances) >= section.MaxRepeats {
				return nil
			}
			more, err := f.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Add another %s entry?", section.Title)})
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
			if _, err := sess.AddInstance(section.ID); err != nil {
				return err
			}
			continue
		}
		instance := instances[filled]
		if err := f.driver.Note(ctx, fmt.Sprintf("%s #%d", section.Title, filled+1)); err != nil {
			return err
		}
		if err := f.fillFields(ctx, sess, section.Fields, instanceTarget(sess, instance)); err != nil {
			return err
		}
		filled++
	}
}

// fillFields re-reads visibility before each field so an answer can reveal
// or hide the fields after it.
func (f *Filler) fillFields(ctx context.Context, sess *session.Session, fields []schema.Field, t target) error {
	for _, field := range fields {
		st := sess.State()
		if !visibility.FieldVisible(field, t.scope(st), st.Codes()) {
			continue
		}
		if err := f.fillField(ctx, sess, field, t); err != nil {
			return err
		}
	}
	return nil
}

func (f *Filler) fillField(ctx context.Context, sess *session.Session, field schema.Field, t target) error {
	switch field.Type {
	case schema.FieldTypeHidden:
		return nil
	case schema.FieldTypeInstructions:
		text := field.HelpText
		if text == "" {
			text = field.DisplayLabel()
		}
		return f.driver.Note(ctx, text)
	}

	key := t.key(field.Code)
	for {
		current, _ := t.scope(sess.State()).Get(field.Code)
		value, err := f.ask(ctx, field, current)
		if err != nil {
			return err
		}
		if err := t.set(field.Code, value); err != nil {
			return err
		}
		if t.form {
			if err := f.applyLibrary(sess, field, value); err != nil {
				return err
			}
		}
		if err := sess.SetTouched(key); err != nil {
			return err
		}
		if _, err := sess.Validate(); err != nil {
			return err
		}
		msg, failed := sess.State().VisibleErrors()[key]
		if !failed {
			return nil
		}
		if err := f.driver.Note(ctx, "  "+msg); err != nil {
			return err
		}
	}
}

func (f *Filler) applyLibrary(sess *session.Session, field schema.Field, value any) error {
	if field.Library == nil || len(field.Library.AutoPopulate) == 0 {
		return nil
	}
	id, ok := value.(string)
	if !ok || id == "" {
		return nil
	}
	return sess.ApplyLibrarySelection(field.Code, id)
}

func (f *Filler) ask(ctx context.Context, field schema.Field, current any) (any, error) {
	label := field.DisplayLabel()
	help := field.HelpText

	switch field.Type {
	case schema.FieldTypeToggle:
		def, _ := current.(bool)
		return f.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: def, Help: help})
	case schema.FieldTypeYesNo, schema.FieldTypeYesNoNA:
		values := []string{"yes", "no"}
		labels := []string{"Yes", "No"}
		if field.Type == schema.FieldTypeYesNoNA {
			values = append(values, "na")
			labels = append(labels, "N/A")
		}
		idx, err := f.driver.Choose(ctx, ChoiceConfig{Message: label, Options: labels, Default: indexOf(values, coerce.String(current)), Help: help})
		if err != nil || idx < 0 || idx >= len(values) {
			return nil, err
		}
		return values[idx], nil
	case schema.FieldTypeTextArea:
		out, err := f.driver.Multiline(ctx, TextConfig{Message: label, Default: coerce.String(current), Help: help})
		return emptyToNil(out), err
	}

	options := f.catalog.Options(field)
	if field.Type.Kind() == schema.ValueKindList && len(options) == 0 {
		raw, err := f.driver.Text(ctx, TextConfig{Message: label, Default: coerce.String(current), Help: help + " (comma separated)"})
		if err != nil {
			return nil, err
		}
		out := []any{}
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out, nil
	}
	if field.Type.Kind() == schema.ValueKindList {
		values, labels := splitOptions(options)
		var defaults []int
		if list, ok := coerce.List(current); ok {
			for _, item := range list {
				if i := indexOf(values, coerce.String(item)); i >= 0 {
					defaults = append(defaults, i)
				}
			}
		}
		picked, err := f.driver.ChooseMany(ctx, ChoiceConfig{Message: label, Options: labels, Defaults: defaults, Help: help})
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(picked))
		for _, i := range picked {
			if i >= 0 && i < len(values) {
				out = append(out, values[i])
			}
		}
		return out, nil
	}
	if len(options) > 0 {
		values, labels := splitOptions(options)
		idx, err := f.driver.Choose(ctx, ChoiceConfig{Message: label, Options: labels, Default: indexOf(values, coerce.String(current)), Help: help})
		if err != nil || idx < 0 || idx >= len(values) {
			return nil, err
		}
		return values[idx], nil
	}

	raw, err := f.driver.Text(ctx, TextConfig{Message: label, Default: inputDefault(current), Help: help + placeholderHint(field)})
	if err != nil {
		return nil, err
	}
	return parseInput(field, raw), nil
}

func splitOptions(options []schema.Option) (values, labels []string) {
	for _, option := range options {
		values = append(values, option.Value)
		label := option.Label
		if label == "" {
			label = option.Value
		}
		labels = append(labels, label)
	}
	return values, labels
}

func placeholderHint(field schema.Field) string {
	switch field.Type {
	case schema.FieldTypeGeolocation:
		return " (lat,lng)"
	case schema.FieldTypePhoto, schema.FieldTypeFile:
		return " (file path or reference)"
	}
	if layout, ok := field.Type.DateLayout(); ok {
		return " (" + layout + ")"
	}
	return ""
}

func inputDefault(current any) string {
	switch v := current.(type) {
	case map[string]any:
		if lat, ok := v["lat"]; ok {
			return fmt.Sprintf("%s,%s", coerce.String(lat), coerce.String(v["lng"]))
		}
		return coerce.String(v["ref"])
	}
	return coerce.String(current)
}

// parseInput turns a typed answer into the value shape of the field type.
// Answers that do not parse are kept as strings so validation can report
// them.
func parseInput(field schema.Field, raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	switch field.Type {
	case schema.FieldTypeNumber, schema.FieldTypeCurrency, schema.FieldTypeRating, schema.FieldTypeSlider:
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f
		}
		return trimmed
	case schema.FieldTypeGeolocation:
		parts := strings.Split(trimmed, ",")
		if len(parts) == 2 {
			lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if errLat == nil && errLng == nil {
				return map[string]any{"lat": lat, "lng": lng}
			}
		}
		return trimmed
	case schema.FieldTypePhoto, schema.FieldTypeFile:
		return map[string]any{"name": filepath.Base(trimmed), "ref": trimmed}
	}
	return trimmed
}

func indexOf(options []string, value string) int {
	for i, option := range options {
		if option == value {
			return i
		}
	}
	return -1
}

func emptyToNil(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
