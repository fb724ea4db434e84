// Package contextdata supplies the read-only reference lists (workers,
// jobsites, equipment, hazards, tasks) that lookup fields draw their options
// from. Lists are keyed by tenant. The engine only ever asks whether a
// selected id is present; it never validates the records themselves.
package contextdata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/internal/coerce"
	"github.com/goliatone/go-formstate/pkg/schema"
)

// Default record keys used when a field has no library binding.
const (
	DefaultValueKey = "id"
	DefaultLabelKey = "name"
)

// ErrUnknownKind is returned by providers that do not serve a list kind.
var ErrUnknownKind = errors.New("contextdata: unknown list kind")

// Record is one entry of a reference list.
type Record map[string]any

// Provider lists records of a kind for a tenant.
type Provider interface {
	List(ctx context.Context, tenant, kind string) ([]Record, error)
}

// Static serves lists held in memory, keyed tenant -> kind -> records.
type Static map[string]map[string][]Record

var _ Provider = Static(nil)

// List implements Provider.
func (s Static) List(ctx context.Context, tenant, kind string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lists, ok := s[tenant]
	if !ok {
		return nil, fmt.Errorf("contextdata: tenant %q: %w", tenant, ErrUnknownKind)
	}
	records, ok := lists[kind]
	if !ok {
		return nil, fmt.Errorf("contextdata: %s/%s: %w", tenant, kind, ErrUnknownKind)
	}
	return append([]Record(nil), records...), nil
}

// LoadStatic reads a YAML or JSON document shaped as tenant -> kind ->
// records.
func LoadStatic(data []byte) (Static, error) {
	var out Static
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("contextdata: decode: %w", err)
	}
	if out == nil {
		out = Static{}
	}
	return out, nil
}

// LoadStaticFile reads a Static provider from disk.
func LoadStaticFile(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("contextdata: read %s: %w", path, err)
	}
	return LoadStatic(data)
}

// Tenants lists the tenants a Static provider knows, sorted.
func (s Static) Tenants() []string {
	out := make([]string, 0, len(s))
	for tenant := range s {
		out = append(out, tenant)
	}
	sort.Strings(out)
	return out
}

// SourceOf returns the list kind a field draws from and the record keys to
// use. ok is false for fields without an external list.
func SourceOf(field schema.Field) (kind, valueKey, labelKey string, ok bool) {
	valueKey, labelKey = DefaultValueKey, DefaultLabelKey
	if b := field.Library; b != nil && b.Source != "" {
		if b.ValueKey != "" {
			valueKey = b.ValueKey
		}
		if b.LabelKey != "" {
			labelKey = b.LabelKey
		}
		return b.Source, valueKey, labelKey, true
	}
	kind, ok = field.Type.Lookup()
	return kind, valueKey, labelKey, ok
}

// Options resolves the selectable options for a field. Fields without an
// external list return their authored options.
func Options(ctx context.Context, provider Provider, tenant string, field schema.Field) ([]schema.Option, error) {
	kind, valueKey, labelKey, ok := SourceOf(field)
	if !ok {
		return field.Options, nil
	}
	if provider == nil {
		return nil, fmt.Errorf("contextdata: field %s needs %q but no provider is configured", field.Code, kind)
	}
	records, err := provider.List(ctx, tenant, kind)
	if err != nil {
		return nil, fmt.Errorf("contextdata: options for %s: %w", field.Code, err)
	}
	return recordOptions(records, valueKey, labelKey), nil
}

// recordOptions maps records to options, skipping records without a value.
// The label falls back to the value.
func recordOptions(records []Record, valueKey, labelKey string) []schema.Option {
	out := make([]schema.Option, 0, len(records))
	for _, record := range records {
		value := coerce.String(record[valueKey])
		if value == "" {
			continue
		}
		label := strings.TrimSpace(coerce.String(record[labelKey]))
		if label == "" {
			label = value
		}
		out = append(out, schema.Option{Value: value, Label: label})
	}
	return out
}

// Find returns the record whose valueKey renders as id.
func Find(records []Record, valueKey, id string) (Record, bool) {
	if valueKey == "" {
		valueKey = DefaultValueKey
	}
	for _, record := range records {
		if v, ok := record[valueKey]; ok && coerce.String(v) == id {
			return record, true
		}
	}
	return nil, false
}

// Contains reports whether any record's id renders as id.
func Contains(records []Record, id string) bool {
	_, ok := Find(records, DefaultValueKey, id)
	return ok
}

// AutoPopulate maps a selected record onto sibling field values following
// binding.AutoPopulate (sibling field code -> record key). Keys missing from
// the record are skipped.
func AutoPopulate(binding *schema.LibraryBinding, record Record) map[string]any {
	if binding == nil || len(binding.AutoPopulate) == 0 || record == nil {
		return nil
	}
	out := make(map[string]any, len(binding.AutoPopulate))
	for code, key := range binding.AutoPopulate {
		if value, ok := record[key]; ok {
			out[code] = schema.DeepCopy(value)
		}
	}
	return out
}
