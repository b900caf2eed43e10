package core

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	"github.com/joseph-ayodele/invoice-ocr/internal/core/extract"
	"github.com/joseph-ayodele/invoice-ocr/internal/core/pipeline"
	"github.com/joseph-ayodele/invoice-ocr/internal/entity"
)

type textAdapter struct {
	name string
	text map[string]string // by base name
	conf float64
}

func (a textAdapter) Name() string { return a.name }

func (a textAdapter) Invoke(_ context.Context, path string) extract.Outcome {
	c := entity.NewCandidate(a.text[filepath.Base(path)], a.name, a.conf)
	return extract.Outcome{Candidate: c, Detail: map[string]any{"text": c.Text}}
}

type recordingSink struct {
	batches []*entity.BatchResult
	images  []entity.ExtractionResult
	err     error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) SaveBatch(_ context.Context, b *entity.BatchResult) error {
	s.batches = append(s.batches, b)
	return s.err
}

func (s *recordingSink) SaveImage(_ context.Context, r entity.ExtractionResult) error {
	s.images = append(s.images, r)
	return s.err
}

type panickingPipeline struct{ on string }

func (p panickingPipeline) Process(_ context.Context, path string) entity.ExtractionResult {
	if filepath.Base(path) == p.on {
		panic("index out of range")
	}
	best := entity.NewCandidate("text", "tesseract_auto", 0.8)
	return entity.ExtractionResult{FilePath: path, BestResult: &best, AllResults: map[string]any{}}
}

func writeImages(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, imaging.Save(imaging.New(32, 32, color.White), filepath.Join(dir, n)))
	}
}

func TestProcessDirectoryWithCorruptFile(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "a.png", "b.jpg", "c.png")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "d.PNG"), []byte("garbage"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644))

	adapters := []extract.Adapter{
		textAdapter{name: "tesseract", conf: 0.8, text: map[string]string{"a.png": "INVOICE 1", "b.jpg": "INVOICE 2"}},
		textAdapter{name: "trocr_printed", conf: 0.9, text: map[string]string{"a.png": "INVOICE 1"}},
	}
	sink := &recordingSink{}
	var seen []int
	proc := NewProcessor(nil, pipeline.New(nil, adapters, pipeline.Config{}),
		WithSink(sink),
		WithProgress(func(i, total int, _ entity.ExtractionResult) {
			assert.Equal(t, 4, total)
			seen = append(seen, i)
		}),
	)

	batch, err := proc.ProcessDirectory(context.Background(), dir)
	require.NoError(t, err)

	m := batch.Metadata
	assert.Equal(t, 4, m.TotalImages)
	assert.Equal(t, 2, m.Successful)
	assert.Equal(t, 2, m.Failed)
	assert.Equal(t, m.TotalImages, m.Successful+m.Failed)
	assert.Equal(t, dir, m.InputFolder)
	assert.NotEmpty(t, m.RunID)
	assert.Equal(t, []int{1, 2, 3, 4}, seen)

	corrupt := batch.Results[filepath.Join(dir, "d.PNG")]
	assert.NotEmpty(t, corrupt.Error)
	assert.Nil(t, corrupt.BestResult)
	assert.Equal(t, "trocr_printed", batch.Results[filepath.Join(dir, "a.png")].BestResult.Method)
	assert.Equal(t, "none", batch.Results[filepath.Join(dir, "c.png")].BestResult.Method)

	require.Len(t, sink.batches, 1)
	assert.Same(t, batch, sink.batches[0])
}

func TestProcessDirectoryRecoversPanics(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "1.png", "2.png", "3.png")
	batch, err := NewProcessor(nil, panickingPipeline{on: "2.png"}).ProcessDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, batch.Metadata.TotalImages)
	assert.Equal(t, 2, batch.Metadata.Successful)
	assert.Contains(t, batch.Results[filepath.Join(dir, "2.png")].Error, "index out of range")
}

func TestProcessDirectoryEmptyStillWrites(t *testing.T) {
	sink := &recordingSink{}
	batch, err := NewProcessor(nil, panickingPipeline{}, WithSink(sink)).ProcessDirectory(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, batch.Metadata.TotalImages)
	assert.Empty(t, batch.Results)
	assert.Len(t, sink.batches, 1)
}

func TestProcessDirectoryMissingFolder(t *testing.T) {
	sink := &recordingSink{}
	_, err := NewProcessor(nil, panickingPipeline{}, WithSink(sink)).ProcessDirectory(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Empty(t, sink.batches)
}

func TestProcessDirectoryCancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "a.png", "b.png")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &recordingSink{}
	batch, err := NewProcessor(nil, panickingPipeline{}, WithSink(sink)).ProcessDirectory(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Metadata.Failed)
	assert.Len(t, sink.batches, 1)
}

func TestProcessDirectorySinkFailure(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "a.png")
	sink := &recordingSink{err: errors.New("disk full")}
	batch, err := NewProcessor(nil, panickingPipeline{}, WithSink(sink)).ProcessDirectory(context.Background(), dir)
	assert.Error(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, 1, batch.Metadata.Successful)
}

func TestProcessImageSavesDocument(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "x.png")
	sink := &recordingSink{}
	res, err := NewProcessor(nil, panickingPipeline{}, WithSink(sink)).ProcessImage(context.Background(), filepath.Join(dir, "x.png"))
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	require.Len(t, sink.images, 1)
	assert.Equal(t, res.FilePath, sink.images[0].FilePath)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	long := strings.Repeat("é", 150)
	p := preview(long)
	assert.True(t, strings.HasSuffix(p, "..."))
	assert.Equal(t, 103, len([]rune(p)))
}
