package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// GenerateManifestJSONSchema produces a JSON Schema Draft 2020-12 document
// from the Go Manifest struct using invopop/jsonschema.
func GenerateManifestJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&Manifest{})
	s.ID = "https://github.com/ormasoftchile/modlint/schemas/manifest-v1.json"
	s.Title = "Module manifest v1"
	s.Description = "Typed model of module manifest YAML documents (Draft 2020-12)"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest schema: %w", err)
	}
	return data, nil
}
