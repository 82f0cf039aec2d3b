package validate

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ormasoftchile/modlint/pkg/schema"
)

const structuralURL = "manifest-structural.json"

const (
	anyOfMessage = "Value does not match any of the allowed forms"
	oneOfMessage = "Value must match exactly one of the allowed forms"
)

var printer = message.NewPrinter(language.English)

// compileStructural compiles the converted schema of src.
func compileStructural(src *schema.Source) (*sjsonschema.Schema, error) {
	data, err := json.Marshal(src.Structural())
	if err != nil {
		return nil, fmt.Errorf("marshal structural schema: %w", err)
	}
	doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal structural schema: %w", err)
	}
	c := sjsonschema.NewCompiler()
	if err := c.AddResource(structuralURL, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile(structuralURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return sch, nil
}

// finding is a structural violation before it becomes an Issue.
type finding struct {
	loc     []string
	message string
}

// structuralFindings validates root and describes every violation.
func structuralFindings(sch *sjsonschema.Schema, root any) []finding {
	err := sch.Validate(root)
	if err == nil {
		return nil
	}
	ve, ok := err.(*sjsonschema.ValidationError)
	if !ok {
		return []finding{{message: err.Error()}}
	}
	d := describer{root: root}
	var out []finding
	for _, leaf := range leaves(ve) {
		out = append(out, d.describe(leaf)...)
	}
	return out
}

// leaves returns the meaningful errors below ve, looking through wrappers
// that only group other errors.
func leaves(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	switch ve.ErrorKind.(type) {
	case *kind.Schema, *kind.Group, *kind.Reference, *kind.AllOf:
		if len(ve.Causes) == 0 {
			return []*sjsonschema.ValidationError{ve}
		}
		var out []*sjsonschema.ValidationError
		for _, c := range ve.Causes {
			out = append(out, leaves(c)...)
		}
		return out
	}
	return []*sjsonschema.ValidationError{ve}
}

type describer struct {
	root any
}

func (d describer) describe(ve *sjsonschema.ValidationError) []finding {
	loc := ve.InstanceLocation
	switch k := ve.ErrorKind.(type) {
	case *kind.Required:
		out := make([]finding, 0, len(k.Missing))
		for _, field := range k.Missing {
			out = append(out, finding{loc, fmt.Sprintf("Missing required field: '%s'", field)})
		}
		return out
	case *kind.AdditionalProperties:
		out := make([]finding, 0, len(k.Properties))
		for _, prop := range k.Properties {
			out = append(out, finding{append(slices.Clone(loc), prop), "Unexpected property: " + prop})
		}
		return out
	case *kind.Type:
		actual := runtimeType(valueAt(d.root, loc))
		return []finding{{loc, fmt.Sprintf("Field must be of type '%s', got '%s'", strings.Join(k.Want, " or "), actual)}}
	case *kind.Enum:
		vals := make([]string, len(k.Want))
		for i, v := range k.Want {
			vals[i] = fmt.Sprint(v)
		}
		return []finding{{loc, fmt.Sprintf("Value must be one of: [%s]", strings.Join(vals, ", "))}}
	case *kind.Const:
		return []finding{{loc, fmt.Sprintf("Value must be '%v'", k.Want)}}
	case *kind.AnyOf:
		return []finding{{loc, d.composite(ve, anyOfMessage)}}
	case *kind.OneOf:
		if len(k.Subschemas) > 0 {
			return []finding{{loc, oneOfMessage}}
		}
		return []finding{{loc, d.composite(ve, oneOfMessage)}}
	}
	return []finding{{loc, upperFirst(ve.ErrorKind.LocalizedString(printer))}}
}

// composite appends the most specific nested message to top.
func (d describer) composite(ve *sjsonschema.ValidationError, top string) string {
	if detail := d.detail(ve); detail != "" && detail != top {
		return top + ". " + detail
	}
	return top
}

// detail describes the alternative that came closest to matching.
func (d describer) detail(ve *sjsonschema.ValidationError) string {
	best := bestBranch(ve)
	if best == nil {
		return ""
	}
	var msgs []string
	for _, leaf := range leaves(best) {
		switch leaf.ErrorKind.(type) {
		case *kind.AnyOf, *kind.OneOf:
			if nested := d.detail(leaf); nested != "" {
				msgs = append(msgs, nested)
				continue
			}
		}
		for _, f := range d.describe(leaf) {
			msgs = append(msgs, f.message)
		}
	}
	if len(msgs) == 0 {
		return ""
	}
	slices.Sort(msgs)
	return msgs[0]
}

// branchScore ranks the alternatives of a composite error. An alternative
// whose type does not even match the value is worst; otherwise fewer const
// mismatches, then fewer violations, then declaration order win.
type branchScore struct {
	typeMismatch bool
	consts       int
	leaves       int
	index        int
}

func (a branchScore) less(b branchScore) bool {
	if a.typeMismatch != b.typeMismatch {
		return !a.typeMismatch
	}
	return cmp.Or(
		cmp.Compare(a.consts, b.consts),
		cmp.Compare(a.leaves, b.leaves),
		cmp.Compare(a.index, b.index),
	) < 0
}

func bestBranch(ve *sjsonschema.ValidationError) *sjsonschema.ValidationError {
	var best *sjsonschema.ValidationError
	var bestScore branchScore
	for i, branch := range ve.Causes {
		ls := leaves(branch)
		s := branchScore{leaves: len(ls), index: i}
		for _, l := range ls {
			switch l.ErrorKind.(type) {
			case *kind.Type:
				if slices.Equal(l.InstanceLocation, ve.InstanceLocation) {
					s.typeMismatch = true
				}
			case *kind.Const:
				s.consts++
			}
		}
		if best == nil || s.less(bestScore) {
			best, bestScore = branch, s
		}
	}
	return best
}

// valueAt walks root along an instance location.
func valueAt(root any, loc []string) any {
	cur := root
	for _, tok := range loc {
		switch t := cur.(type) {
		case map[string]any:
			cur = t[tok]
		case []any:
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(t) {
				return nil
			}
			cur = t[i]
		default:
			return nil
		}
	}
	return cur
}

// runtimeType names the JSON category of v.
func runtimeType(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "integer"
	case float32, float64, json.Number:
		return "number"
	case string:
		return "string"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", t)
	}
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
