package validation

import (
	"fmt"
	"strconv"

	"github.com/goliatone/go-formstate/pkg/schema"
)

const (
	msgRequired  = "%s is required"
	msgMinLength = "%s must be at least %d characters"
	msgMaxLength = "%s must be at most %d characters"
	msgMinValue  = "%s must be at least %s"
	msgMaxValue  = "%s must be at most %s"
	msgPattern   = "%s format is invalid"
	msgMinDate   = "%s must be on or after %s"
	msgMaxDate   = "%s must be on or before %s"
	msgEmail     = "%s must be a valid email address"
	msgPhone     = "%s must be a valid phone number"
	msgExtension = "%s file type is not allowed"
	msgFileSize  = "%s file must be smaller than %s MB"
	msgSelection = "%s is not a valid selection"
)

// messageFor prefers the author's custom message over the default text.
func messageFor(field schema.Field, format string, args ...any) string {
	if field.Validation.CustomMessage != "" {
		return field.Validation.CustomMessage
	}
	return fmt.Sprintf(format, append([]any{field.DisplayLabel()}, args...)...)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
