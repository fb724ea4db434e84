package schema

// CodeMap resolves field identities to field codes. Build it once per template
// load with BuildCodeMap.
type CodeMap map[string]string

// BuildCodeMap indexes every field of the template by its ID. Fields without
// an ID are skipped.
func BuildCodeMap(tpl FormTemplate) CodeMap {
	out := make(CodeMap)
	for _, section := range tpl.Sections {
		for _, field := range section.Fields {
			if field.ID == "" {
				continue
			}
			out[field.ID] = field.Code
		}
	}
	return out
}

// Resolve returns the field code for ref. When ref is not a known identity the
// reference itself is returned with found=false; callers treat it as a code.
func (m CodeMap) Resolve(ref string) (code string, found bool) {
	if code, ok := m[ref]; ok {
		return code, true
	}
	return ref, false
}
