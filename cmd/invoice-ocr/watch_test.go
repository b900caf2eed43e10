package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	repo "github.com/joseph-ayodele/invoice-ocr/internal/repository"
)

func TestWatchOutDir(t *testing.T) {
	assert.Equal(t, "/out", watchOutDir("/in", "/out", "/x/results.json"))
	assert.Equal(t, "/x", watchOutDir("/in", "", "/x/results.json"))
	assert.Equal(t, filepath.Join("/in", "ocr_results"), watchOutDir("/in", "", ""))
}

func TestRequireSink(t *testing.T) {
	assert.ErrorIs(t, requireSink(repo.NewMultiSink(nil)), common.ErrInvalidInput)
	assert.ErrorIs(t, requireSink(nil), common.ErrInvalidInput)
	assert.NoError(t, requireSink(repo.NewMultiSink(nil, repo.NewJSONDirSink(t.TempDir(), false, nil))))
}
