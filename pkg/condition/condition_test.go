package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Expr
	}{
		{"reference", "args.x", Ref{Text: "args.x"}},
		{"or", map[string]any{"or": []any{"args.a", "inputs.b"}},
			Or{Items: []Expr{Ref{Text: "args.a"}, Ref{Text: "inputs.b"}}}},
		{"malformed and", map[string]any{"and": "args.a"}, And{Items: []Expr{}, Malformed: true}},
		{"not nested", map[string]any{"not": map[string]any{"true": map[string]any{}}},
			Not{Operand: Literal{Value: true}}},
		{"equal", map[string]any{"equal": "args.mode", "value": "fast"},
			Equal{Ref: "args.mode", Value: "fast", HasValue: true}},
		{"equal without value", map[string]any{"equal": "args.mode"},
			Equal{Ref: "args.mode"}},
		{"false literal", map[string]any{"false": nil}, Literal{Value: false}},
		{"list", []any{"args.a"}, List{Items: []Expr{Ref{Text: "args.a"}}}},
		{"no operator", map[string]any{"b": "args.b", "a": 1},
			Mixed{Extra: []Field{{Key: "a", Value: 1}, {Key: "b", Value: "args.b"}}}},
		{"two operators", map[string]any{"or": []any{}, "not": "args.a", "x": "y"},
			Mixed{
				Ops:   []Expr{Or{Items: []Expr{}}, Not{Operand: Ref{Text: "args.a"}}},
				Extra: []Field{{Key: "x", Value: "y"}},
			}},
		{"number", 3, Invalid{Raw: 3}},
		{"nil", nil, Invalid{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		ref  string
		ns   Namespace
		name string
	}{
		{"args.year", NamespaceArgs, "year"},
		{"inputs.layer", NamespaceInputs, "layer"},
		{"outputs.o1", NamespaceOutputs, "o1"},
		{"arg.year", NamespaceArgTypo, "year"},
		{"params.year", NamespaceUnknown, "params.year"},
		{"plain", NamespaceNone, "plain"},
	}
	for _, tt := range tests {
		ns, name := Classify(tt.ref)
		assert.Equal(t, tt.ns, ns, tt.ref)
		assert.Equal(t, tt.name, name, tt.ref)
	}
	assert.True(t, IsKnownReference("outputs.x"))
	assert.False(t, IsKnownReference("arg.x"))
}

func TestCompile(t *testing.T) {
	e := Parse(map[string]any{
		"or": []any{
			"args.a",
			map[string]any{"not": "outputs.o"},
			map[string]any{"equal": "args.mode", "value": 2.5},
			map[string]any{"and": []any{}},
		},
	})
	src, err := Compile(e)
	require.NoError(t, err)
	assert.Equal(t, `(truthy(args["a"]) || !(truthy(outputs["o"])) || str(args["mode"]) == "2.5" || true)`, src)

	src, err = Compile(Or{})
	require.NoError(t, err)
	assert.Equal(t, "false", src)
}

func TestCompileErrors(t *testing.T) {
	for name, e := range map[string]Expr{
		"list":          List{},
		"typo":          Ref{Text: "arg.a"},
		"unknown":       Ref{Text: "foo.a"},
		"plain string":  Ref{Text: "a"},
		"no value":      Equal{Ref: "args.a"},
		"non string eq": Equal{Ref: 1, HasValue: true},
		"malformed":     Or{Malformed: true},
		"mixed":         Mixed{Extra: []Field{{Key: "k", Value: "v"}}},
		"invalid":       Invalid{Raw: 1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Compile(e)
			assert.Error(t, err)
		})
	}
	_, err := Compile(List{})
	assert.ErrorIs(t, err, ErrAmbiguousList)
}

func TestEvaluate(t *testing.T) {
	env := Env{
		Args:    map[string]any{"flag": true, "mode": "fast", "count": 0, "ratio": 1.5, "off": "false"},
		Inputs:  map[string]bool{"base": true},
		Outputs: map[string]bool{"o1": true, "o2": false},
	}
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"true arg", "args.flag", true},
		{"unset arg", "args.missing", false},
		{"zero arg", "args.count", false},
		{"false string", "args.off", false},
		{"input present", "inputs.base", true},
		{"output selected", "outputs.o1", true},
		{"output not selected", "outputs.o2", false},
		{"or", map[string]any{"or": []any{"outputs.o2", "args.flag"}}, true},
		{"and", map[string]any{"and": []any{"outputs.o1", "args.count"}}, false},
		{"empty and", map[string]any{"and": []any{}}, true},
		{"empty or", map[string]any{"or": []any{}}, false},
		{"not", map[string]any{"not": "outputs.o2"}, true},
		{"equal string", map[string]any{"equal": "args.mode", "value": "fast"}, true},
		{"equal mismatch", map[string]any{"equal": "args.mode", "value": "slow"}, false},
		{"equal number", map[string]any{"equal": "args.ratio", "value": 1.5}, true},
		{"equal bool", map[string]any{"equal": "args.flag", "value": true}, true},
		{"true literal", map[string]any{"true": map[string]any{}}, true},
		{"nested", map[string]any{"and": []any{
			map[string]any{"or": []any{"args.missing", "inputs.base"}},
			map[string]any{"not": map[string]any{"false": nil}},
		}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(Parse(tt.in), env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateEmptyEnv(t *testing.T) {
	got, err := Evaluate(Parse("args.x"), Env{})
	require.NoError(t, err)
	assert.False(t, got)
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy("0"))
	assert.False(t, Truthy("No"))
	assert.True(t, Truthy("yes"))
	assert.True(t, Truthy(int64(2)))
	assert.False(t, Truthy(0.0))
	assert.True(t, Truthy([]any{}))
}
