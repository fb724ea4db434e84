// Package templates loads form templates from JSON or YAML documents and
// hands back a hydrated schema.FormTemplate: sections and fields sorted by
// order, display strings sanitised and authoring mistakes reported as lint
// issues.
package templates

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/untillpro/goutils/logger"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// ErrLint is returned when a template has lint errors and the loader is not
// lenient. The issues are returned alongside it.
var ErrLint = errors.New("templates: template has lint errors")

// Loader reads and hydrates templates.
type Loader struct {
	fs      fs.FS
	lenient bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithFS sets the filesystem used for SourceKindFS sources.
func WithFS(files fs.FS) Option {
	return func(l *Loader) {
		l.fs = files
	}
}

// WithLenient accepts templates with lint errors. Evaluation falls back to
// its defensive defaults for whatever the lint reported.
func WithLenient() Option {
	return func(l *Loader) {
		l.lenient = true
	}
}

// NewLoader constructs a Loader.
func NewLoader(options ...Option) *Loader {
	l := &Loader{}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Read fetches the raw document for src.
func (l *Loader) Read(ctx context.Context, src Source) (Document, error) {
	if src == nil {
		return Document{}, errors.New("templates: source is nil")
	}
	var (
		data []byte
		err  error
	)
	switch src.Kind() {
	case SourceKindFile:
		data, err = readFile(ctx, src.Location())
	case SourceKindFS:
		data, err = readFS(ctx, l.fs, src.Location())
	default:
		err = fmt.Errorf("templates: unsupported source kind %q", src.Kind())
	}
	if err != nil {
		return Document{}, err
	}
	return NewDocument(src, data)
}

// Load reads, decodes and hydrates the template at src. Lint issues are
// always returned; issues of error severity fail the load unless the loader
// is lenient.
func (l *Loader) Load(ctx context.Context, src Source) (schema.FormTemplate, []schema.Issue, error) {
	doc, err := l.Read(ctx, src)
	if err != nil {
		return schema.FormTemplate{}, nil, err
	}
	return l.Decode(doc)
}

// Decode hydrates an already-read document.
func (l *Loader) Decode(doc Document) (schema.FormTemplate, []schema.Issue, error) {
	tpl, err := parseTemplate(doc.raw, doc.Location())
	if err != nil {
		return schema.FormTemplate{}, nil, err
	}
	tpl = Hydrate(tpl)
	issues := schema.Lint(tpl)
	for _, issue := range issues {
		if issue.Severity == schema.SeverityWarning {
			logger.Warning("templates:", doc.Location()+":", issue.String())
		}
	}
	if schema.HasErrors(issues) {
		if !l.lenient {
			return schema.FormTemplate{}, issues, fmt.Errorf("%w: %s", ErrLint, doc.Location())
		}
		logger.Warning("templates:", doc.Location(), "loaded leniently with lint errors")
	}
	return tpl, issues, nil
}

// Hydrate sorts sections and fields by order (stable, so equal orders keep
// document order) and sanitises display strings.
func Hydrate(tpl schema.FormTemplate) schema.FormTemplate {
	tpl = schema.Sanitize(tpl)
	sort.SliceStable(tpl.Sections, func(i, j int) bool {
		return tpl.Sections[i].Order < tpl.Sections[j].Order
	})
	for i := range tpl.Sections {
		fields := tpl.Sections[i].Fields
		sort.SliceStable(fields, func(a, b int) bool {
			return fields[a].Order < fields[b].Order
		})
	}
	return tpl
}

func parseTemplate(data []byte, location string) (schema.FormTemplate, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return schema.FormTemplate{}, fmt.Errorf("templates: %s is empty", location)
	}
	var tpl schema.FormTemplate
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &tpl); err != nil {
			return schema.FormTemplate{}, fmt.Errorf("templates: parse %s as JSON: %w", location, err)
		}
		return tpl, nil
	}
	if err := yaml.Unmarshal(trimmed, &tpl); err != nil {
		return schema.FormTemplate{}, fmt.Errorf("templates: parse %s as YAML: %w", location, err)
	}
	return tpl, nil
}
