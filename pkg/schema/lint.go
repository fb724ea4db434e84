package schema

import (
	"fmt"
	"regexp"
	"time"
)

// Severity ranks lint issues. Errors make a template unusable; warnings are
// tolerated at runtime.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a template authoring problem with optional location metadata.
type Issue struct {
	Path     string   `json:"path,omitempty"`
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

var codePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Lint inspects a template for authoring mistakes. Dangling conditional
// references are reported as warnings because evaluation falls back to using
// the raw reference as a field code.
func Lint(tpl FormTemplate) []Issue {
	l := linter{
		codes:      BuildCodeMap(tpl),
		fieldCodes: make(map[string]string),
		fieldIDs:   make(map[string]string),
	}

	if tpl.Code == "" {
		l.errorf("code", "", "template code is required")
	} else if !codePattern.MatchString(tpl.Code) {
		l.errorf("code", "", "template code %q must be lowercase letters, digits and underscores", tpl.Code)
	}

	sectionIDs := make(map[string]string)
	for i, section := range tpl.Sections {
		path := fmt.Sprintf("sections[%d]", i)
		if section.ID == "" {
			l.errorf(path, "", "section id is required")
		} else if prev, exists := sectionIDs[section.ID]; exists {
			l.errorf(path, "", "duplicate section id %q (first declared at %s)", section.ID, prev)
		} else {
			sectionIDs[section.ID] = path
		}
		l.repeats(path, section)
		for j, field := range section.Fields {
			l.field(fmt.Sprintf("%s.fields[%d]", path, j), field)
		}
	}

	// References are checked once every code is known.
	for i, section := range tpl.Sections {
		path := fmt.Sprintf("sections[%d]", i)
		l.condition(path+".conditional_logic", "", section.ConditionalLogic)
		for j, field := range section.Fields {
			fieldPath := fmt.Sprintf("%s.fields[%d].conditional_logic", path, j)
			l.condition(fieldPath, field.Code, field.ConditionalLogic)
			if field.ConditionalLogic != nil {
				if code, _ := l.codes.Resolve(field.ConditionalLogic.FieldID); code == field.Code {
					l.warnf(fieldPath, field.Code, "field is gated on its own value")
				}
			}
		}
	}
	return l.issues
}

type linter struct {
	codes      CodeMap
	fieldCodes map[string]string
	fieldIDs   map[string]string
	issues     []Issue
}

func (l *linter) errorf(path, field, format string, args ...any) {
	l.issues = append(l.issues, Issue{Path: path, Field: field, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
}

func (l *linter) warnf(path, field, format string, args ...any) {
	l.issues = append(l.issues, Issue{Path: path, Field: field, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

func (l *linter) repeats(path string, section Section) {
	if !section.Repeatable {
		return
	}
	if section.MinRepeats < 0 || section.MaxRepeats < 0 {
		l.errorf(path, "", "repeat bounds must not be negative")
		return
	}
	if section.MaxRepeats > 0 && section.MinRepeats > section.MaxRepeats {
		l.errorf(path, "", "min_repeats %d exceeds max_repeats %d", section.MinRepeats, section.MaxRepeats)
	}
}

func (l *linter) field(path string, field Field) {
	if field.Code == "" {
		l.errorf(path, "", "field_code is required")
	} else if prev, exists := l.fieldCodes[field.Code]; exists {
		l.errorf(path, field.Code, "duplicate field_code %q (first declared at %s)", field.Code, prev)
	} else {
		l.fieldCodes[field.Code] = path
	}
	if field.ID != "" {
		if prev, exists := l.fieldIDs[field.ID]; exists {
			l.errorf(path, field.Code, "duplicate field id %q (first declared at %s)", field.ID, prev)
		} else {
			l.fieldIDs[field.ID] = path
		}
	}
	if !field.Type.Valid() {
		l.errorf(path, field.Code, "invalid field type %s", field.Type)
		return
	}
	if field.Type.IsChoice() && len(field.Options) == 0 && field.Library == nil {
		l.warnf(path, field.Code, "%s field has no options", field.Type)
	}

	rules := field.Validation
	if rules.MinLength != nil && rules.MaxLength != nil && *rules.MinLength > *rules.MaxLength {
		l.errorf(path+".validation", field.Code, "min_length %d exceeds max_length %d", *rules.MinLength, *rules.MaxLength)
	}
	if rules.MinValue != nil && rules.MaxValue != nil && *rules.MinValue > *rules.MaxValue {
		l.errorf(path+".validation", field.Code, "min_value %v exceeds max_value %v", *rules.MinValue, *rules.MaxValue)
	}
	if rules.Pattern != "" {
		if _, err := regexp.Compile(rules.Pattern); err != nil {
			l.errorf(path+".validation.pattern", field.Code, "pattern does not compile: %v", err)
		}
	}
	if layout, ok := field.Type.DateLayout(); ok {
		bounds := [][2]string{{"min_date", rules.MinDate}, {"max_date", rules.MaxDate}}
		for _, bound := range bounds {
			if bound[1] == "" {
				continue
			}
			if _, err := ParseDate(bound[1], layout); err != nil {
				l.warnf(path+".validation."+bound[0], field.Code, "%s %q is not a date", bound[0], bound[1])
			}
		}
	}
}

func (l *linter) condition(path, field string, logic *ConditionalLogic) {
	if logic == nil {
		return
	}
	if logic.FieldID == "" {
		l.errorf(path, field, "conditional logic has no field_id")
		return
	}
	if !logic.Operator.Known() {
		l.warnf(path, field, "unknown operator %q; the gate always passes", logic.Operator)
	}
	if _, found := l.codes.Resolve(logic.FieldID); found {
		return
	}
	if _, isCode := l.fieldCodes[logic.FieldID]; isCode {
		l.warnf(path, field, "field_id %q is a field code, not a field id", logic.FieldID)
		return
	}
	l.warnf(path, field, "field_id %q does not match any field", logic.FieldID)
}

// ParseDate parses raw with layout, also accepting RFC 3339 timestamps and
// plain dates so authored bounds and stored values can mix precisions.
func ParseDate(raw, layout string) (time.Time, error) {
	layouts := []string{layout, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}
	var firstErr error
	for _, candidate := range layouts {
		if candidate == "" {
			continue
		}
		parsed, err := time.Parse(candidate, raw)
		if err == nil {
			return parsed, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
