package schema

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// Sanitize returns a copy of the template with markup stripped from every
// author-supplied display string. Codes, ids and values are left untouched.
func Sanitize(tpl FormTemplate) FormTemplate {
	out := tpl
	out.Name = sanitizeText(tpl.Name)
	out.Description = sanitizeText(tpl.Description)
	out.Sections = make([]Section, len(tpl.Sections))
	for i, section := range tpl.Sections {
		section.Title = sanitizeText(section.Title)
		section.Description = sanitizeText(section.Description)
		fields := make([]Field, len(section.Fields))
		for j, field := range section.Fields {
			field.Label = sanitizeText(field.Label)
			field.Placeholder = sanitizeText(field.Placeholder)
			field.HelpText = sanitizeText(field.HelpText)
			field.Validation.CustomMessage = sanitizeText(field.Validation.CustomMessage)
			if len(field.Options) > 0 {
				options := make([]Option, len(field.Options))
				for k, option := range field.Options {
					option.Label = sanitizeText(option.Label)
					options[k] = option
				}
				field.Options = options
			}
			fields[j] = field
		}
		section.Fields = fields
		out.Sections[i] = section
	}
	return out
}

func sanitizeText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	cleaned := textSanitizer().Sanitize(trimmed)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}
