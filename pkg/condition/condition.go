// Package condition models the boolean expressions that decide whether an
// input layer takes part in a computation.
//
// An expression is either a reference string (args.x, inputs.y, outputs.z)
// or a mapping with one operator key: or, and, not, equal (with a sibling
// value) or the literal keys true and false.
package condition

import (
	"slices"
	"strings"
)

// Operator keys.
const (
	OpOr    = "or"
	OpAnd   = "and"
	OpNot   = "not"
	OpEqual = "equal"
	OpTrue  = "true"
	OpFalse = "false"
	// KeyValue is the literal compared by an equal operator.
	KeyValue = "value"
)

var operators = []string{OpOr, OpAnd, OpNot, OpEqual, OpTrue, OpFalse}

// IsOperator reports whether key is a recognized operator key.
func IsOperator(key string) bool {
	return slices.Contains(operators, key)
}

// Expr is a parsed condition. The concrete type is one of Ref, Or, And, Not,
// Equal, Literal, List, Mixed or Invalid.
type Expr interface {
	isExpr()
}

// Ref is a reference string.
type Ref struct {
	Text string
}

// Or holds when any item holds. Malformed is set when the operand was not a
// sequence.
type Or struct {
	Items     []Expr
	Malformed bool
}

// And holds when every item holds. Malformed is set when the operand was not
// a sequence.
type And struct {
	Items     []Expr
	Malformed bool
}

// Not negates its operand.
type Not struct {
	Operand Expr
}

// Equal compares the referenced value against a literal. Ref is kept raw
// because only string operands are references.
type Equal struct {
	Ref      any
	Value    any
	HasValue bool
}

// Literal is a constant produced by the true or false operator keys.
type Literal struct {
	Value bool
}

// List is a sequence used directly as a layer's conditions.
type List struct {
	Items []Expr
}

// Field is a key of a mapping that is not a single recognized operator.
type Field struct {
	Key   string
	Value any
}

// Mixed is a mapping with zero or several operators, or with keys that are
// not operators. Ops holds the parsed operators in canonical order; Extra
// holds the other keys sorted by name, without the value key of an equal.
type Mixed struct {
	Ops   []Expr
	Extra []Field
}

// Invalid is any other value.
type Invalid struct {
	Raw any
}

func (Ref) isExpr()     {}
func (Or) isExpr()      {}
func (And) isExpr()     {}
func (Not) isExpr()     {}
func (Equal) isExpr()   {}
func (Literal) isExpr() {}
func (List) isExpr()    {}
func (Mixed) isExpr()   {}
func (Invalid) isExpr() {}

// Parse converts a decoded YAML value into an expression.
func Parse(v any) Expr {
	switch t := v.(type) {
	case string:
		return Ref{Text: t}
	case []any:
		return List{Items: parseItems(t)}
	case map[string]any:
		return parseMapping(t)
	}
	return Invalid{Raw: v}
}

func parseItems(items []any) []Expr {
	out := make([]Expr, len(items))
	for i, item := range items {
		out[i] = Parse(item)
	}
	return out
}

func parseMapping(m map[string]any) Expr {
	var ops []Expr
	for _, key := range operators {
		if v, ok := m[key]; ok {
			ops = append(ops, parseOperator(key, v, m))
		}
	}

	var extra []Field
	_, hasEqual := m[OpEqual]
	for _, key := range sortedKeys(m) {
		if IsOperator(key) || (key == KeyValue && hasEqual) {
			continue
		}
		extra = append(extra, Field{Key: key, Value: m[key]})
	}

	if len(ops) == 1 && len(extra) == 0 {
		return ops[0]
	}
	return Mixed{Ops: ops, Extra: extra}
}

func parseOperator(key string, v any, m map[string]any) Expr {
	switch key {
	case OpOr:
		items, ok := v.([]any)
		return Or{Items: parseItems(items), Malformed: !ok}
	case OpAnd:
		items, ok := v.([]any)
		return And{Items: parseItems(items), Malformed: !ok}
	case OpNot:
		return Not{Operand: Parse(v)}
	case OpEqual:
		value, has := m[KeyValue]
		return Equal{Ref: v, Value: value, HasValue: has}
	case OpTrue:
		return Literal{Value: true}
	default:
		return Literal{Value: false}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Namespace is the part of a reference before the first dot.
type Namespace int

const (
	// NamespaceNone is a string without a dot, which is not a reference.
	NamespaceNone Namespace = iota
	NamespaceArgs
	NamespaceInputs
	NamespaceOutputs
	// NamespaceArgTypo is the singular "arg." prefix.
	NamespaceArgTypo
	// NamespaceUnknown is any other dotted prefix.
	NamespaceUnknown
)

// Classify splits a reference into its namespace and name.
func Classify(ref string) (Namespace, string) {
	switch {
	case strings.HasPrefix(ref, "args."):
		return NamespaceArgs, ref[len("args."):]
	case strings.HasPrefix(ref, "inputs."):
		return NamespaceInputs, ref[len("inputs."):]
	case strings.HasPrefix(ref, "outputs."):
		return NamespaceOutputs, ref[len("outputs."):]
	case strings.HasPrefix(ref, "arg."):
		return NamespaceArgTypo, ref[len("arg."):]
	case strings.Contains(ref, "."):
		return NamespaceUnknown, ref
	}
	return NamespaceNone, ref
}

// IsKnownReference reports whether s uses one of the args, inputs or outputs
// prefixes.
func IsKnownReference(s string) bool {
	ns, _ := Classify(s)
	return ns == NamespaceArgs || ns == NamespaceInputs || ns == NamespaceOutputs
}
