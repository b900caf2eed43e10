package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestListImagesFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"b.PNG", "a.jpg", "c.tiff", "notes.txt", "scan.JPEG", "d.webp", "e.bmp", "f.gif", ".hidden.png"} {
		touch(t, filepath.Join(dir, n))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.png"), 0o755))
	touch(t, filepath.Join(dir, "nested.png", "inner.png"))

	paths, stats, err := ListImages(dir, true)
	require.NoError(t, err)
	want := []string{"a.jpg", "b.PNG", "c.tiff", "d.webp", "e.bmp", "scan.JPEG"}
	require.Len(t, paths, len(want))
	for i, n := range want {
		assert.Equal(t, filepath.Join(dir, n), paths[i])
	}
	assert.Equal(t, uint32(10), stats.Scanned)
	assert.Equal(t, uint32(6), stats.Matched)
	assert.Equal(t, uint32(1), stats.Skipped)

	withHidden, _, err := ListImages(dir, false)
	require.NoError(t, err)
	assert.Len(t, withHidden, 7)
}

func TestListImagesFollowsSymlinks(t *testing.T) {
	src := t.TempDir()
	touch(t, filepath.Join(src, "real.png"))
	require.NoError(t, os.Mkdir(filepath.Join(src, "folder"), 0o755))

	dir := t.TempDir()
	links := map[string]string{
		"linked.png":   filepath.Join(src, "real.png"),
		"dangling.png": filepath.Join(src, "gone.png"),
		"dir.png":      filepath.Join(src, "folder"),
	}
	for name, target := range links {
		if err := os.Symlink(target, filepath.Join(dir, name)); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}
	}

	paths, stats, err := ListImages(dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "linked.png")}, paths)
	assert.Equal(t, uint32(3), stats.Scanned)
	assert.Equal(t, uint32(1), stats.Matched)
}

func TestListImagesEmptyDir(t *testing.T) {
	paths, stats, err := ListImages(t.TempDir(), false)
	require.NoError(t, err)
	assert.Empty(t, paths)
	assert.Zero(t, stats.Matched)
}

func TestListImagesMissingDir(t *testing.T) {
	_, _, err := ListImages(filepath.Join(t.TempDir(), "nope"), false)
	assert.ErrorIs(t, err, common.ErrNotFound)

	file := filepath.Join(t.TempDir(), "a.png")
	touch(t, file)
	_, _, err = ListImages(file, false)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, _, err = ListImages("  ", false)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestWatcherEmitsExistingAndNewImages(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "old.png"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Root: dir, InitialScan: true})
	require.NoError(t, err)

	select {
	case p := <-events:
		assert.Equal(t, filepath.Join(dir, "old.png"), p)
	case <-time.After(5 * time.Second):
		t.Fatal("initial scan not emitted")
	}

	touch(t, filepath.Join(dir, "ignored.txt"))
	touch(t, filepath.Join(dir, "new.jpg"))
	select {
	case p := <-events:
		assert.Equal(t, filepath.Join(dir, "new.jpg"), p)
	case <-time.After(5 * time.Second):
		t.Fatal("new image not emitted")
	}

	cancel()
	for range events {
	}
}
