package validation

import (
	"math"
	"path"
	"strings"

	"github.com/goliatone/go-formstate/internal/coerce"
	"github.com/goliatone/go-formstate/pkg/schema"
)

const bytesPerMB = 1024 * 1024

// checkAttachment applies allowed_extensions and max_file_size_mb to file and
// photo values. Attachments are opaque; only the optional "name" and "size"
// metadata keys are read. A list of attachments is checked item by item.
func checkAttachment(field schema.Field, value any) string {
	if field.Type.Kind() != schema.ValueKindAttachment {
		return ""
	}
	rules := field.Validation
	if len(rules.AllowedExtensions) == 0 && rules.MaxFileSizeMB == nil {
		return ""
	}
	items, ok := coerce.List(value)
	if !ok {
		items = []any{value}
	}
	for _, item := range items {
		meta, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := meta["name"].(string); ok && len(rules.AllowedExtensions) > 0 {
			if !extensionAllowed(name, rules.AllowedExtensions) {
				return messageFor(field, msgExtension)
			}
		}
		if rules.MaxFileSizeMB != nil {
			if size := coerce.Number(meta["size"]); !math.IsNaN(size) && size > *rules.MaxFileSizeMB*bytesPerMB {
				return messageFor(field, msgFileSize, formatNumber(*rules.MaxFileSizeMB))
			}
		}
	}
	return ""
}

func extensionAllowed(name string, allowed []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	for _, candidate := range allowed {
		if strings.TrimPrefix(strings.ToLower(strings.TrimSpace(candidate)), ".") == ext {
			return true
		}
	}
	return false
}
