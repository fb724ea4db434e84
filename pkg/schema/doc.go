// Package schema defines the immutable description of a form template: its
// sections, fields, validation rules and visibility gates. Templates are pure
// data; evaluation lives in the visibility, validation and session packages.
//
// Field values are stored under the field's code (see Field.Code), which is
// distinct from the field identity referenced by ConditionalLogic. BuildCodeMap
// produces the id → code lookup that evaluators consume. Lint reports author
// mistakes (dangling references, duplicate codes, broken patterns) at load
// time so they never surface to the person filling the form.
package schema
