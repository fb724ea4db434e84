package contextdata

import (
	"context"

	"github.com/untillpro/goutils/logger"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// Catalog is a per-tenant snapshot of every list a template draws from. It is
// taken once at session start so validation can check membership without
// blocking on the provider. It satisfies validation.Lookup.
type Catalog struct {
	tenant string
	lists  map[string]catalogList
}

type catalogList struct {
	valueKey string
	records  []Record
}

// Snapshot fetches the lists referenced by tpl. A list the provider cannot
// serve is logged and left out, so checks against it are skipped.
func Snapshot(ctx context.Context, provider Provider, tenant string, tpl schema.FormTemplate) (*Catalog, error) {
	c := &Catalog{tenant: tenant, lists: make(map[string]catalogList)}
	if provider == nil {
		return c, nil
	}
	for _, field := range tpl.Fields() {
		kind, valueKey, _, ok := SourceOf(field)
		if !ok {
			continue
		}
		if _, seen := c.lists[kind]; seen {
			continue
		}
		records, err := provider.List(ctx, tenant, kind)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warning("contextdata: list", kind, "unavailable for tenant", tenant+":", err)
			continue
		}
		c.lists[kind] = catalogList{valueKey: valueKey, records: records}
	}
	if logger.IsVerbose() {
		logger.Verbose("contextdata: snapshot for tenant", tenant, "holds", len(c.lists), "lists")
	}
	return c, nil
}

// Tenant returns the tenant the snapshot was taken for.
func (c *Catalog) Tenant() string {
	return c.tenant
}

// Contains reports list membership. known is false when the list was not
// loaded.
func (c *Catalog) Contains(kind, id string) (contains bool, known bool) {
	if c == nil {
		return false, false
	}
	list, ok := c.lists[kind]
	if !ok {
		return false, false
	}
	_, found := Find(list.records, list.valueKey, id)
	return found, true
}

// Record returns the record selected in a list.
func (c *Catalog) Record(kind, id string) (Record, bool) {
	if c == nil {
		return nil, false
	}
	list, ok := c.lists[kind]
	if !ok {
		return nil, false
	}
	return Find(list.records, list.valueKey, id)
}

// Records returns the snapshotted records of a list.
func (c *Catalog) Records(kind string) ([]Record, bool) {
	if c == nil {
		return nil, false
	}
	list, ok := c.lists[kind]
	return list.records, ok
}

// Options resolves a field's options from the snapshot. Fields without an
// external list, or whose list was not snapshotted, keep their authored
// options.
func (c *Catalog) Options(field schema.Field) []schema.Option {
	kind, valueKey, labelKey, ok := SourceOf(field)
	if !ok {
		return field.Options
	}
	records, ok := c.Records(kind)
	if !ok {
		return field.Options
	}
	return recordOptions(records, valueKey, labelKey)
}
