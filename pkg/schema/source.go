// Package schema loads the manifest schema and turns it into the structural
// schema used for validation.
package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/modlint/pkg/manifest"
)

//go:embed manifest_schema.yml
var bundled []byte

// BundledName identifies the embedded schema in messages.
const BundledName = "bundled manifest_schema.yml"

// SupportedVersions is the range of info.version values this validator
// understands.
const SupportedVersions = ">= 1.0, < 2.0"

// ErrUnsupportedSchemaVersion is returned for schemas outside SupportedVersions.
var ErrUnsupportedSchemaVersion = errors.New("unsupported schema version")

// Source is a loaded schema document.
type Source struct {
	name       string
	data       []byte
	doc        map[string]any
	structural map[string]any
	version    *version.Version
}

// Bundled returns the schema embedded in the binary.
func Bundled() (*Source, error) {
	return ParseSource(BundledName, bundled)
}

// BundledData returns the raw embedded schema document.
func BundledData() []byte {
	return bundled
}

// LoadSource reads the schema at path, or the bundled schema when path is
// empty.
func LoadSource(path string) (*Source, error) {
	if path == "" {
		return Bundled()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	return ParseSource(path, data)
}

// ParseSource parses and converts a schema document.
func ParseSource(name string, data []byte) (*Source, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}
	v, err := manifest.Value(&node)
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parse schema %s: document must be a mapping", name)
	}

	src := &Source{name: name, data: data, doc: doc}
	if err := src.checkVersion(); err != nil {
		return nil, err
	}
	src.structural, err = Convert(doc)
	if err != nil {
		return nil, fmt.Errorf("convert schema %s: %w", name, err)
	}
	return src, nil
}

func (s *Source) checkVersion() error {
	info, _ := s.doc["info"].(map[string]any)
	raw, ok := info["version"]
	if !ok || raw == nil {
		return nil
	}
	v, err := version.NewVersion(fmt.Sprint(raw))
	if err != nil {
		return fmt.Errorf("schema %s: invalid info.version %q: %w", s.name, raw, err)
	}
	constraint, err := version.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%w: schema %s has version %s, supported %s", ErrUnsupportedSchemaVersion, s.name, v, SupportedVersions)
	}
	s.version = v
	return nil
}

// Name is the file path or BundledName.
func (s *Source) Name() string { return s.name }

// Data returns the raw schema text, which also carries validation_rules.
func (s *Source) Data() []byte { return s.data }

// Version returns info.version, or nil when the schema does not declare one.
func (s *Source) Version() *version.Version { return s.version }

// Structural returns the converted draft-07 schema. Callers must not modify it.
func (s *Source) Structural() map[string]any { return s.structural }

// StructuralJSON returns the converted schema as indented JSON.
func (s *Source) StructuralJSON() ([]byte, error) {
	data, err := json.MarshalIndent(s.structural, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal structural schema: %w", err)
	}
	return data, nil
}
