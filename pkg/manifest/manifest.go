// Package manifest loads module manifest documents.
//
// A Document keeps the raw source lines next to the decoded value so that
// findings can be mapped back to the text. The decoded value uses only
// JSON-compatible types (map[string]any, []any, string, bool, int, float64
// and nil) which is what the structural schema validator expects.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmpty is returned when a manifest decodes to nothing.
var ErrEmpty = errors.New("manifest file is empty")

// SyntaxError is a YAML parse failure with the best known source line.
type SyntaxError struct {
	Line int
	Err  error
}

func (e *SyntaxError) Error() string { return e.Err.Error() }
func (e *SyntaxError) Unwrap() error { return e.Err }

// Document is a parsed manifest.
type Document struct {
	Path  string
	Lines []string
	Root  any
}

// Load reads and parses the manifest at path. A missing file is reported
// with an error matching fs.ErrNotExist.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes manifest text. The returned document is non-nil whenever the
// source could be split into lines, so callers can still show context for
// syntax errors.
func Parse(name string, data []byte) (*Document, error) {
	doc := &Document{Path: name, Lines: SplitLines(string(data))}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return doc, &SyntaxError{Line: errorLine(err), Err: err}
	}
	if len(node.Content) == 0 {
		return doc, ErrEmpty
	}
	root, err := Value(&node)
	if err != nil {
		return doc, err
	}
	if isEmpty(root) {
		return doc, ErrEmpty
	}
	doc.Root = root
	return doc, nil
}

// SplitLines splits text on newlines, dropping carriage returns and a single
// trailing empty line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

var lineRe = regexp.MustCompile(`line (\d+)`)

func errorLine(err error) int {
	var te *yaml.TypeError
	if errors.As(err, &te) && len(te.Errors) > 0 {
		err = errors.New(te.Errors[0])
	}
	m := lineRe.FindStringSubmatch(err.Error())
	if m == nil {
		return 1
	}
	n, convErr := strconv.Atoi(m[1])
	if convErr != nil || n < 1 {
		return 1
	}
	return n
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case string:
		return t == ""
	}
	return false
}

// Value converts a YAML node tree into JSON-compatible Go values. Mapping
// keys are always strings: a bare `true:` key becomes "true".
func Value(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return Value(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, nil
		}
		return Value(n.Alias)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := Value(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind == yaml.ScalarNode && k.ShortTag() == "!!merge" {
				if err := merge(out, v); err != nil {
					return nil, err
				}
				continue
			}
			val, err := Value(v)
			if err != nil {
				return nil, err
			}
			out[keyString(k)] = val
		}
		return out, nil
	case yaml.ScalarNode:
		return scalar(n)
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
}

func merge(dst map[string]any, n *yaml.Node) error {
	v, err := Value(n)
	if err != nil {
		return err
	}
	var sources []any
	if list, ok := v.([]any); ok {
		sources = list
	} else {
		sources = []any{v}
	}
	for _, s := range sources {
		m, ok := s.(map[string]any)
		if !ok {
			return fmt.Errorf("line %d: merge value must be a mapping", n.Line)
		}
		for k, val := range m {
			if _, exists := dst[k]; !exists {
				dst[k] = val
			}
		}
	}
	return nil
}

func keyString(k *yaml.Node) string {
	if k.Kind == yaml.AliasNode && k.Alias != nil {
		k = k.Alias
	}
	if k.Kind == yaml.ScalarNode {
		return k.Value
	}
	v, err := Value(k)
	if err != nil {
		return ""
	}
	return fmt.Sprint(v)
}

func scalar(n *yaml.Node) (any, error) {
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	switch t := v.(type) {
	case nil, bool, string, int, float64:
		return t, nil
	case int64:
		return t, nil
	case uint64:
		return float64(t), nil
	default:
		// timestamps and binary values are kept as their source text
		return n.Value, nil
	}
}
