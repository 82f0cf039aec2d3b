package manifest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNormalizesKeys(t *testing.T) {
	src := `module:
  title: T
  count: 3
  ratio: 0.5
  conditions:
    true: {}
    "false": ~
  list:
    - a
    - 2
`
	doc, err := Parse("m.yml", []byte(src))
	require.NoError(t, err)

	root, ok := doc.Root.(map[string]any)
	require.True(t, ok)
	module := root["module"].(map[string]any)
	assert.Equal(t, "T", module["title"])
	assert.Equal(t, 3, module["count"])
	assert.Equal(t, 0.5, module["ratio"])
	assert.Equal(t, []any{"a", 2}, module["list"])

	cond := module["conditions"].(map[string]any)
	assert.Contains(t, cond, "true")
	assert.Contains(t, cond, "false")
	assert.Nil(t, cond["false"])
}

func TestParseResolvesAliasesAndMerges(t *testing.T) {
	src := `base: &base
  label: shared
  scale: 1
layer:
  <<: *base
  scale: 2
ref: *base
`
	doc, err := Parse("m.yml", []byte(src))
	require.NoError(t, err)
	root := doc.Root.(map[string]any)

	layer := root["layer"].(map[string]any)
	assert.Equal(t, "shared", layer["label"])
	assert.Equal(t, 2, layer["scale"])
	assert.Equal(t, root["base"], root["ref"])
}

func TestParseEmpty(t *testing.T) {
	for name, src := range map[string]string{
		"nothing":      "",
		"comment only": "# just a comment\n",
		"null doc":     "---\n",
		"empty map":    "{}\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("m.yml", []byte(src))
			assert.ErrorIs(t, err, ErrEmpty)
		})
	}
}

func TestParseSyntaxErrorLine(t *testing.T) {
	src := "module:\n  title: ok\n  bad: [unclosed\n  other: x\n"
	doc, err := Parse("m.yml", []byte(src))
	require.Error(t, err)

	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Greater(t, se.Line, 1)
	require.NotNil(t, doc)
	assert.Len(t, doc.Lines, 4)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yml")
	require.NoError(t, os.WriteFile(path, []byte("module:\r\n  title: T\r\n"), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Path)
	assert.Equal(t, []string{"module:", "  title: T"}, doc.Lines)
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(""))
	assert.Equal(t, []string{"a", "", "b"}, SplitLines("a\n\nb\n"))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\r\nb"))
}
