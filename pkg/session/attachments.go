package session

import (
	"math"

	"github.com/goliatone/go-formstate/internal/coerce"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/store"
	"github.com/goliatone/go-formstate/pkg/validation"
	"github.com/goliatone/go-formstate/pkg/visibility"
)

// Attachments lists the attachment references held by visible photo,
// signature and file fields, form level first and then per instance. A
// string value is taken as the reference itself; a map may carry ref, name,
// content_type and size.
func (s State) Attachments() []store.Attachment {
	var out []store.Attachment
	collect := func(fields []schema.Field, scope schema.Values, key func(string) string) {
		for _, field := range visibility.VisibleFields(fields, scope, s.form.codes) {
			if field.Type.Kind() != schema.ValueKindAttachment {
				continue
			}
			value, ok := scope.Get(field.Code)
			if !ok {
				continue
			}
			items, isList := coerce.List(value)
			if !isList {
				items = []any{value}
			}
			for _, item := range items {
				if a, ok := attachmentOf(key(field.Code), item); ok {
					out = append(out, a)
				}
			}
		}
	}
	formKey := func(code string) string { return code }
	for _, section := range s.VisibleSections() {
		if !section.Repeatable {
			collect(section.Fields, s.values, formKey)
			continue
		}
		for _, instance := range s.instances {
			if instance.SectionID != section.ID {
				continue
			}
			ordinal := instance.Ordinal
			collect(section.Fields, s.values.Overlay(instance.Values), func(code string) string {
				return validation.InstanceKey(code, ordinal)
			})
		}
	}
	return out
}

func attachmentOf(fieldKey string, value any) (store.Attachment, bool) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return store.Attachment{}, false
		}
		return store.Attachment{FieldCode: fieldKey, Ref: v}, true
	case map[string]any:
		a := store.Attachment{
			FieldCode:   fieldKey,
			Ref:         coerce.String(v["ref"]),
			Name:        coerce.String(v["name"]),
			ContentType: coerce.String(v["content_type"]),
		}
		if size := coerce.Number(v["size"]); !math.IsNaN(size) {
			a.Size = int64(size)
		}
		if a.Ref == "" {
			a.Ref = a.Name
		}
		return a, a.Ref != ""
	}
	return store.Attachment{}, false
}
