package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func start(t *testing.T, w *Watcher, onChange func()) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, onChange) }()
	select {
	case <-w.Ready():
	case err := <-done:
		stop()
		t.Fatalf("watcher stopped early: %v", err)
	case <-time.After(5 * time.Second):
		stop()
		t.Fatal("watcher not ready")
	}
	return func() {
		stop()
		require.NoError(t, <-done)
	}
}

func TestBurstIsDebounced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o644))

	w, err := New([]string{path}, 200*time.Millisecond, quiet())
	require.NoError(t, err)
	var calls atomic.Int32
	cancel := start(t, w, func() { calls.Add(1) })
	defer cancel()

	for i := range 5 {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i), '\n'}, 0o644))
		time.Sleep(5 * time.Millisecond)
	}
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOtherFilesAreIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o644))

	w, err := New([]string{path}, 50*time.Millisecond, quiet())
	require.NoError(t, err)
	var calls atomic.Int32
	cancel := start(t, w, func() { calls.Add(1) })
	defer cancel()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yml"), []byte("b: 2\n"), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestReplacedFileIsNoticed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o644))

	w, err := New([]string{path}, 50*time.Millisecond, quiet())
	require.NoError(t, err)
	var calls atomic.Int32
	cancel := start(t, w, func() { calls.Add(1) })
	defer cancel()

	tmp := filepath.Join(dir, "manifest.yml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("a: 2\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)
}

func TestMissingDirectory(t *testing.T) {
	w, err := New([]string{filepath.Join(t.TempDir(), "nope", "manifest.yml")}, 0, quiet())
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.debounce)
	err = w.Run(context.Background(), func() {})
	assert.ErrorContains(t, err, "watch")
}
