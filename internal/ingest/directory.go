package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

type DirStats struct {
	Scanned uint32 // directory entries seen
	Matched uint32 // regular files (or links to them) with an image extension
	Skipped uint32 // hidden files, when skipping them
}

// ListImages returns the image files directly inside dir (no recursion), as
// full paths sorted by name. Extensions match case-insensitively. Symlinks are
// followed and kept when they resolve to a regular file; the listed path is the
// link itself.
func ListImages(dir string, skipHidden bool) ([]string, DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(dir) == "" {
		return nil, stats, fmt.Errorf("input folder is required: %w", common.ErrInvalidInput)
	}
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, stats, fmt.Errorf("input folder %s: %w", dir, common.ErrNotFound)
		}
		return nil, stats, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, stats, fmt.Errorf("input folder %s is not a directory: %w", dir, common.ErrInvalidInput)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, stats, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		stats.Scanned++
		if !isRegular(dir, e) {
			continue
		}
		if skipHidden && IsHidden(e.Name()) {
			stats.Skipped++
			continue
		}
		if !AllowedExt(filepath.Ext(e.Name())) {
			continue
		}
		stats.Matched++
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, stats, nil
}

func isRegular(dir string, e fs.DirEntry) bool {
	if e.Type().IsRegular() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, e.Name()))
	return err == nil && info.Mode().IsRegular()
}
