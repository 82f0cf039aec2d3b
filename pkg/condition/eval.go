package condition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

// ErrAmbiguousList is returned when evaluating a top-level conditions list;
// whether such a list means "any" or "all" is not defined.
var ErrAmbiguousList = errors.New("conditions list has no defined meaning, use 'or' or 'and'")

// Env holds the values references resolve to. Args are argument values;
// Inputs and Outputs mark which layers are present or selected.
type Env struct {
	Args    map[string]any
	Inputs  map[string]bool
	Outputs map[string]bool
}

// Compile translates e into expr-lang source over the environment built by
// Evaluate.
func Compile(e Expr) (string, error) {
	switch t := e.(type) {
	case Ref:
		return compileRef(t.Text)
	case Or:
		return compileJoin(OpOr, t.Items, t.Malformed, " || ", "false")
	case And:
		return compileJoin(OpAnd, t.Items, t.Malformed, " && ", "true")
	case Not:
		inner, err := Compile(t.Operand)
		if err != nil {
			return "", err
		}
		return "!(" + inner + ")", nil
	case Equal:
		ref, ok := t.Ref.(string)
		if !ok {
			return "", fmt.Errorf("equal: reference must be a string, got %T", t.Ref)
		}
		if !t.HasValue {
			return "", fmt.Errorf("equal %q: missing value", ref)
		}
		lookup, err := lookup(ref)
		if err != nil {
			return "", err
		}
		return "str(" + lookup + ") == " + strconv.Quote(literal(t.Value)), nil
	case Literal:
		return strconv.FormatBool(t.Value), nil
	case List:
		return "", ErrAmbiguousList
	case Mixed:
		keys := make([]string, 0, len(t.Extra))
		for _, f := range t.Extra {
			keys = append(keys, f.Key)
		}
		if len(t.Ops) == 0 {
			return "", fmt.Errorf("condition has no operator (keys: %s)", strings.Join(keys, ", "))
		}
		return "", fmt.Errorf("condition must have exactly one operator")
	case Invalid:
		return "", fmt.Errorf("unsupported condition value %v (%T)", t.Raw, t.Raw)
	}
	return "", fmt.Errorf("unsupported condition %T", e)
}

func compileJoin(op string, items []Expr, malformed bool, sep, empty string) (string, error) {
	if malformed {
		return "", fmt.Errorf("%s: operand must be a list", op)
	}
	if len(items) == 0 {
		return empty, nil
	}
	parts := make([]string, len(items))
	for i, item := range items {
		src, err := Compile(item)
		if err != nil {
			return "", fmt.Errorf("%s.%d: %w", op, i, err)
		}
		parts[i] = src
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func compileRef(ref string) (string, error) {
	l, err := lookup(ref)
	if err != nil {
		return "", err
	}
	return "truthy(" + l + ")", nil
}

func lookup(ref string) (string, error) {
	ns, name := Classify(ref)
	switch ns {
	case NamespaceArgs:
		return "args[" + strconv.Quote(name) + "]", nil
	case NamespaceInputs:
		return "inputs[" + strconv.Quote(name) + "]", nil
	case NamespaceOutputs:
		return "outputs[" + strconv.Quote(name) + "]", nil
	case NamespaceArgTypo:
		return "", fmt.Errorf("invalid reference %q: use 'args.%s'", ref, name)
	}
	return "", fmt.Errorf("unknown reference %q", ref)
}

// Evaluate reports whether e holds in env. Unset references are false.
func Evaluate(e Expr, env Env) (bool, error) {
	src, err := Compile(e)
	if err != nil {
		return false, err
	}
	data := env.data()
	program, err := expr.Compile(src, expr.Env(data), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compile condition %q: %w", src, err)
	}
	output, err := expr.Run(program, data)
	if err != nil {
		return false, fmt.Errorf("eval condition %q: %w", src, err)
	}
	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not return bool (got %T: %v)", src, output, output)
	}
	return result, nil
}

func (env Env) data() map[string]any {
	args := make(map[string]any, len(env.Args))
	for k, v := range env.Args {
		args[k] = v
	}
	inputs := make(map[string]any, len(env.Inputs))
	for k, v := range env.Inputs {
		inputs[k] = v
	}
	outputs := make(map[string]any, len(env.Outputs))
	for k, v := range env.Outputs {
		outputs[k] = v
	}
	return map[string]any{
		"args":    args,
		"inputs":  inputs,
		"outputs": outputs,
		"truthy":  Truthy,
		"str":     literal,
	}
}

// Truthy is the boolean reading of a referenced value.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		s := strings.TrimSpace(strings.ToLower(t))
		return s != "" && s != "false" && s != "0" && s != "no"
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	}
	return true
}

func literal(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
