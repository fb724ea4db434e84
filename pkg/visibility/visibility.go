// Package visibility decides which sections and fields of a template currently
// participate in rendering and validation.
//
// Evaluate applies a single ConditionalLogic gate. The resolver helpers filter
// sections and fields by their own gates only: a field's visibility does not
// cascade from its section, so callers check the section first and then the
// field (VisibleFieldsOf does both).
package visibility
