package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveValidation(t *testing.T) {
	c := New(nil)
	c.ObserveValidation(true, 0, 2, 10*time.Millisecond)
	c.ObserveValidation(false, 3, 1, 20*time.Millisecond)
	c.ObserveValidation(false, 1, 0, 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.validations.WithLabelValues("valid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.validations.WithLabelValues("invalid")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.issues.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.issues.WithLabelValues("warning")))
}

func TestWriteFile(t *testing.T) {
	c := New(nil)
	c.ObserveValidation(false, 1, 0, time.Millisecond)

	path := filepath.Join(t.TempDir(), "modlint.prom")
	require.NoError(t, c.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `modlint_validations_total{result="invalid"} 1`)
	assert.Contains(t, string(data), "modlint_validation_duration_seconds_count 1")
}

func TestWriteFileError(t *testing.T) {
	c := New(nil)
	err := c.WriteFile(filepath.Join(t.TempDir(), "missing", "dir", "out.prom"))
	assert.ErrorContains(t, err, "write metrics")
}
