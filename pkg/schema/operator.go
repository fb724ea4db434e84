package schema

// Operator compares the controlling field's value in a ConditionalLogic gate.
// Unknown operators decode without error; evaluators treat them as "visible".
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorContains    Operator = "contains"
	OperatorNotContains Operator = "not_contains"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorIsEmpty     Operator = "is_empty"
	OperatorIsNotEmpty  Operator = "is_not_empty"
)

// Known reports whether op is one of the declared operators.
func (op Operator) Known() bool {
	switch op {
	case OperatorEquals, OperatorNotEquals,
		OperatorContains, OperatorNotContains,
		OperatorGreaterThan, OperatorLessThan,
		OperatorIsEmpty, OperatorIsNotEmpty:
		return true
	default:
		return false
	}
}

// NeedsValue reports whether the operator compares against ConditionalLogic.Value.
func (op Operator) NeedsValue() bool {
	return op.Known() && op != OperatorIsEmpty && op != OperatorIsNotEmpty
}
