package schema

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/modlint/pkg/rules"
)

func TestConvert(t *testing.T) {
	doc := map[string]any{
		"components": map[string]any{
			"schemas": map[string]any{
				"ManifestModule": map[string]any{
					"type":        "object",
					"description": "dropped",
					"required":    []any{"title"},
					"properties": map[string]any{
						"title": map[string]any{"type": "string", "example": "x"},
						"layers": map[string]any{
							"type":  "array",
							"items": map[string]any{"$ref": "#/components/schemas/Layer"},
						},
						"mode": map[string]any{"type": "string", "enum": []any{"a", "b"}},
					},
					"additionalProperties": false,
				},
				"Layer": map[string]any{
					"anyOf": []any{
						map[string]any{"type": "string", "const": "x"},
						map[string]any{"$ref": "#/components/schemas/Other"},
					},
				},
				"Other": map[string]any{
					"type":                 "object",
					"additionalProperties": map[string]any{"type": "number", "format": "float"},
				},
			},
		},
	}

	out, err := Convert(doc)
	require.NoError(t, err)

	assert.Equal(t, "http://json-schema.org/draft-07/schema#", out["$schema"])
	assert.Equal(t, []any{"module"}, out["required"])
	assert.Equal(t, false, out["additionalProperties"])
	assert.Equal(t, map[string]any{"$ref": "#/definitions/ManifestModule"},
		out["properties"].(map[string]any)["module"])

	defs := out["definitions"].(map[string]any)
	require.Len(t, defs, 3)

	module := defs["ManifestModule"].(map[string]any)
	assert.NotContains(t, module, "description")
	props := module["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string"}, props["title"])
	assert.Equal(t, map[string]any{"$ref": "#/definitions/Layer"}, props["layers"].(map[string]any)["items"])
	assert.Equal(t, []any{"a", "b"}, props["mode"].(map[string]any)["enum"])

	layer := defs["Layer"].(map[string]any)
	alts := layer["anyOf"].([]any)
	require.Len(t, alts, 2)
	assert.Equal(t, map[string]any{"type": "string", "const": "x"}, alts[0])
	assert.Equal(t, map[string]any{"$ref": "#/definitions/Other"}, alts[1])

	other := defs["Other"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "number"}, other["additionalProperties"])
}

func TestConvertMissingComponents(t *testing.T) {
	_, err := Convert(map[string]any{"openapi": "3.0.3"})
	assert.ErrorIs(t, err, ErrMissingComponents)

	_, err = Convert(map[string]any{"components": map[string]any{}})
	assert.ErrorIs(t, err, ErrMissingComponents)

	_, err = Convert(map[string]any{"components": map[string]any{"schemas": map[string]any{}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ManifestModule")
}

func TestBundled(t *testing.T) {
	src, err := Bundled()
	require.NoError(t, err)
	assert.Equal(t, BundledName, src.Name())
	require.NotNil(t, src.Version())
	assert.Equal(t, 1, src.Version().Segments()[0])

	defs := src.Structural()["definitions"].(map[string]any)
	for _, name := range []string{"ManifestModule", "AnyCondition", "TrueCondition", "EqualCondition"} {
		assert.Contains(t, defs, name)
	}
	trueProps := defs["TrueCondition"].(map[string]any)["properties"].(map[string]any)
	assert.Contains(t, trueProps, "true", "quoted keys stay strings")

	data, err := src.StructuralJSON()
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
	assert.NotContains(t, string(data), "#/components/schemas/")
}

func TestBundledDeclaresEveryRule(t *testing.T) {
	reg, err := rules.Load(BundledData(), rules.Options{Strict: true})
	require.NoError(t, err)
	for _, id := range rules.All() {
		assert.True(t, reg.Has(id), "rule %s", id)
	}
}

func TestLoadSource(t *testing.T) {
	src, err := LoadSource("")
	require.NoError(t, err)
	assert.Equal(t, BundledName, src.Name())

	_, err = LoadSource(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	path := filepath.Join(t.TempDir(), "schema.yml")
	require.NoError(t, os.WriteFile(path, BundledData(), 0o644))
	src, err = LoadSource(path)
	require.NoError(t, err)
	assert.Equal(t, path, src.Name())
	assert.Equal(t, BundledData(), src.Data())
}

func TestSchemaVersion(t *testing.T) {
	withVersion := func(v string) []byte {
		return []byte(strings.Replace(string(BundledData()), "version: 1.2.0", "version: "+v, 1))
	}

	_, err := ParseSource("v2", withVersion("2.0.0"))
	assert.ErrorIs(t, err, ErrUnsupportedSchemaVersion)

	_, err = ParseSource("garbage", withVersion("not-a-version"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid info.version")

	src, err := ParseSource("v1.9", withVersion("1.9"))
	require.NoError(t, err)
	assert.Equal(t, "1.9.0", src.Version().String())

	noInfo := strings.Replace(string(BundledData()), "info:\n", "meta:\n", 1)
	src, err = ParseSource("none", []byte(noInfo))
	require.NoError(t, err)
	assert.Nil(t, src.Version())
}

func TestParseSourceErrors(t *testing.T) {
	_, err := ParseSource("bad", []byte("components: [unclosed"))
	require.Error(t, err)

	_, err = ParseSource("list", []byte("- a\n- b\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapping")

	_, err = ParseSource("empty", []byte("info:\n  version: 1.0.0\n"))
	assert.ErrorIs(t, err, ErrMissingComponents)
}

func TestGenerateManifestJSONSchema(t *testing.T) {
	data, err := GenerateManifestJSONSchema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "Module manifest v1", doc["title"])
	assert.Contains(t, string(data), "collectionId")
	assert.Contains(t, string(data), "outputLayers")
}

func TestDecodeManifest(t *testing.T) {
	src := `module:
  title: T
  datasets:
    - id: d
      datasetName: D
  collections:
    - id: c
      datasetId: d
  inputLayers:
    - id: l
      label: L
      collectionId: c
      conditions: args.flag
  outputLayers:
    - id: o
      label: O
      description: out
      required: true
`
	m, err := DecodeManifest(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "T", m.Module.Title)
	require.Len(t, m.Module.InputLayers, 1)
	require.NotNil(t, m.Module.InputLayers[0].Conditions)
	assert.Equal(t, "args.flag", m.Module.InputLayers[0].Conditions.Value)
	assert.True(t, m.Module.OutputLayers[0].Required)

	_, err = DecodeManifest(strings.NewReader("module:\n  title: T\n  bogus: 1\n"))
	require.Error(t, err)
}

func TestDecodeConditionsNormalizesKeys(t *testing.T) {
	src := `module:
  title: T
  inputLayers:
    - id: l
      label: L
      collectionId: c
      conditions:
        or:
          - true: {}
          - not: outputs.o
    - id: plain
      label: P
      collectionId: c
`
	m, err := DecodeManifest(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, m.Module.InputLayers, 2)
	assert.Nil(t, m.Module.InputLayers[1].Conditions)

	want := map[string]any{"or": []any{
		map[string]any{"true": map[string]any{}},
		map[string]any{"not": "outputs.o"},
	}}
	assert.Equal(t, want, m.Module.InputLayers[0].Conditions.Value)

	data, err := json.Marshal(m.Module.InputLayers[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"conditions":{"or":[{"true":{}},{"not":"outputs.o"}]}`)
}
