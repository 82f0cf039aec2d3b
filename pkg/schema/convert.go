package schema

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrMissingComponents means the schema document has no components.schemas
// section, so nothing can be validated against it.
var ErrMissingComponents = errors.New("schema has no components.schemas section")

const (
	componentsRef  = "#/components/schemas/"
	definitionsRef = "#/definitions/"
	moduleSchema   = "ManifestModule"
	draft07        = "http://json-schema.org/draft-07/schema#"
)

// copied keywords; anything else in the source schema is documentation.
var passthrough = []string{"type", "required", "const", "enum"}

// Convert turns an OpenAPI-style schema document into a self-contained
// draft-07 structural schema. Every entry of components.schemas is kept
// under definitions and the root requires a single module property.
func Convert(doc map[string]any) (map[string]any, error) {
	components, ok := doc["components"].(map[string]any)
	if !ok {
		return nil, ErrMissingComponents
	}
	schemas, ok := components["schemas"].(map[string]any)
	if !ok {
		return nil, ErrMissingComponents
	}
	if _, ok := schemas[moduleSchema]; !ok {
		return nil, fmt.Errorf("schema has no %s definition", moduleSchema)
	}

	defs := make(map[string]any, len(schemas))
	for _, name := range slices.Sorted(maps.Keys(schemas)) {
		def, ok := schemas[name].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("schema %s: definition must be a mapping", name)
		}
		defs[name] = convertNode(def)
	}

	return map[string]any{
		"$schema": draft07,
		"type":    "object",
		"properties": map[string]any{
			"module": map[string]any{"$ref": definitionsRef + moduleSchema},
		},
		"required":             []any{"module"},
		"additionalProperties": false,
		"definitions":          defs,
	}, nil
}

func convertNode(node map[string]any) map[string]any {
	out := make(map[string]any)
	if ref, ok := node["$ref"].(string); ok {
		out["$ref"] = rewriteRef(ref)
	}
	for _, k := range passthrough {
		if v, ok := node[k]; ok {
			out[k] = v
		}
	}
	if props, ok := node["properties"].(map[string]any); ok {
		converted := make(map[string]any, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				converted[name] = convertNode(pm)
			} else {
				converted[name] = map[string]any{}
			}
		}
		out["properties"] = converted
	}
	if items, ok := node["items"].(map[string]any); ok {
		out["items"] = convertNode(items)
	}
	if alts, ok := node["anyOf"].([]any); ok {
		converted := make([]any, 0, len(alts))
		for _, a := range alts {
			if am, ok := a.(map[string]any); ok {
				converted = append(converted, convertNode(am))
			}
		}
		out["anyOf"] = converted
	}
	switch ap := node["additionalProperties"].(type) {
	case bool:
		out["additionalProperties"] = ap
	case map[string]any:
		out["additionalProperties"] = convertNode(ap)
	}
	return out
}

func rewriteRef(ref string) string {
	if name, ok := strings.CutPrefix(ref, componentsRef); ok {
		return definitionsRef + name
	}
	return ref
}
