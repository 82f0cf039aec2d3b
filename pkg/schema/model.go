package schema

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/modlint/pkg/manifest"
)

// Manifest is the typed form of a module manifest.
type Manifest struct {
	Module Module `yaml:"module" json:"module" jsonschema:"required"`
}

// Module is the single computation module a manifest describes.
type Module struct {
	ID           string        `yaml:"id,omitempty"          json:"id,omitempty"`
	Title        string        `yaml:"title"                 json:"title"        jsonschema:"required"`
	Description  string        `yaml:"description,omitempty" json:"description,omitempty"`
	Arguments    []Argument    `yaml:"arguments,omitempty"   json:"arguments,omitempty"`
	Datasets     []Dataset     `yaml:"datasets"              json:"datasets"     jsonschema:"required"`
	Collections  []Collection  `yaml:"collections"           json:"collections"  jsonschema:"required"`
	InputLayers  []InputLayer  `yaml:"inputLayers"           json:"inputLayers"  jsonschema:"required"`
	OutputLayers []OutputLayer `yaml:"outputLayers"          json:"outputLayers" jsonschema:"required"`
}

// Argument is a user supplied parameter of the module.
type Argument struct {
	Name        string   `yaml:"name"                  json:"name"     jsonschema:"required"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Required    bool     `yaml:"required,omitempty"    json:"required,omitempty"`
	Type        string   `yaml:"type"                  json:"type"     jsonschema:"required,enum=enum,enum=string,enum=number,enum=boolean"`
	Options     []string `yaml:"options,omitempty"     json:"options,omitempty"`
	Default     any      `yaml:"default,omitempty"     json:"default,omitempty"`
}

// Dataset names a source dataset.
type Dataset struct {
	ID          string `yaml:"id"                    json:"id"          jsonschema:"required"`
	DatasetName string `yaml:"datasetName"           json:"datasetName" jsonschema:"required"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Collection selects items of a dataset.
type Collection struct {
	ID        string         `yaml:"id"                json:"id"        jsonschema:"required"`
	DatasetID string         `yaml:"datasetId"         json:"datasetId" jsonschema:"required"`
	Filters   map[string]any `yaml:"filters,omitempty" json:"filters,omitempty"`
}

// InputLayer feeds a collection into the computation, optionally only when
// its conditions hold.
type InputLayer struct {
	ID           string      `yaml:"id"                    json:"id"           jsonschema:"required"`
	Label        string      `yaml:"label"                 json:"label"        jsonschema:"required"`
	Description  string      `yaml:"description,omitempty" json:"description,omitempty"`
	CollectionID string      `yaml:"collectionId"          json:"collectionId" jsonschema:"required"`
	Scale        float64     `yaml:"scale,omitempty"       json:"scale,omitempty"`
	Conditions   *Conditions `yaml:"conditions,omitempty"  json:"conditions,omitempty"`
}

// Conditions is the raw condition expression of an input layer. Mapping keys
// are strings, so a bare true: key reads as "true".
type Conditions struct {
	Value any
}

func (c *Conditions) UnmarshalYAML(n *yaml.Node) error {
	v, err := manifest.Value(n)
	if err != nil {
		return err
	}
	c.Value = v
	return nil
}

func (c Conditions) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Value)
}

// JSONSchema leaves conditions open in the reflected schema; the structural
// schema describes their forms.
func (Conditions) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{}
}

// OutputLayer is a result the module can produce.
type OutputLayer struct {
	ID          string `yaml:"id"          json:"id"          jsonschema:"required"`
	Label       string `yaml:"label"       json:"label"       jsonschema:"required"`
	Description string `yaml:"description" json:"description" jsonschema:"required"`
	Required    bool   `yaml:"required"    json:"required"    jsonschema:"required"`
}

// DecodeManifest reads a manifest into the typed model, rejecting unknown
// fields. Use it after validation succeeded.
func DecodeManifest(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}
