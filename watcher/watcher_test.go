package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 50 * time.Millisecond

func startWatcher(t *testing.T, dir string, filter FilterConfig) *Watcher {
	t.Helper()
	w, err := New(dir, filter)
	require.NoError(t, err)
	w.SetDebounce(testDebounce)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w
}

func nextEvent(t *testing.T, w *Watcher) FileEvent {
	t.Helper()
	select {
	case ev, ok := <-w.Events():
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return FileEvent{}
	}
}

func assertNoEvent(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case ev := <-w.Events():
		t.Errorf("unexpected event %+v", ev)
	case <-time.After(4 * testDebounce):
	}
}

func TestWatcherReportsNewFile(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, DefaultFilterConfig())

	path := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf"), 0o644))

	ev := nextEvent(t, w)
	assert.Equal(t, path, ev.Path)
	assert.Equal(t, EventCreate, ev.Type)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestWatcherDebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, DefaultFilterConfig())

	path := filepath.Join(dir, "growing.log")
	f, err := os.Create(path)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := f.WriteString("line\n")
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	ev := nextEvent(t, w)
	assert.Equal(t, path, ev.Path)
	assert.Equal(t, EventCreate, ev.Type, "writes right after a create keep the create")
	assertNoEvent(t, w)
}

func TestWatcherFiltersIgnored(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, DefaultFilterConfig())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "draft.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kept.txt"), []byte("x"), 0o644))

	ev := nextEvent(t, w)
	assert.Equal(t, filepath.Join(dir, "kept.txt"), ev.Path)
	assertNoEvent(t, w)
}

func TestWatcherSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))

	filter := DefaultFilterConfig()
	filter.WatchSubdirectories = true
	w := startWatcher(t, dir, filter)

	path := filepath.Join(sub, "deep.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	ev := nextEvent(t, w)
	assert.Equal(t, path, ev.Path)
}

func TestWatcherStartMissingDir(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "absent"), DefaultFilterConfig())
	require.NoError(t, err)
	defer w.Stop()

	assert.Error(t, w.Start(context.Background()))
}

func TestWatcherStopClosesChannels(t *testing.T) {
	w := startWatcher(t, t.TempDir(), DefaultFilterConfig())

	w.Stop()
	w.Stop()

	_, ok := <-w.Events()
	assert.False(t, ok)
	_, ok = <-w.Errors()
	assert.False(t, ok)
}
