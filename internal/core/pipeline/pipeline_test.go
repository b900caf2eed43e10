package pipeline

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	"github.com/joseph-ayodele/invoice-ocr/internal/core/extract"
	"github.com/joseph-ayodele/invoice-ocr/internal/entity"
)

type stubAdapter struct {
	name  string
	out   extract.Outcome
	panic bool
	calls int
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Invoke(context.Context, string) extract.Outcome {
	s.calls++
	if s.panic {
		panic("cuda error")
	}
	return s.out
}

func ok(name, method, text string, conf float64) *stubAdapter {
	return &stubAdapter{name: name, out: extract.Outcome{
		Candidate: entity.NewCandidate(text, method, conf),
		Detail:    map[string]any{"text": text},
	}}
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoice.png")
	require.NoError(t, imaging.Save(imaging.New(40, 30, color.White), path))
	return path
}

func TestProcessPicksBestAndKeepsAllResults(t *testing.T) {
	path := writeImage(t)
	classical := ok("tesseract", "tesseract_printed", "INVOICE 1001 TOTAL 45.00 DUE 2024-01-31", 0.8)
	printed := ok("trocr_printed", "trocr_printed", "INVOICE 1001", 0.9)
	handwritten := ok("trocr_handwritten", "trocr_handwritten", "lnvoice", 0.3)

	res := New(nil, []extract.Adapter{classical, printed, handwritten}, Config{}).Process(context.Background(), path)

	require.Empty(t, res.Error)
	require.NotNil(t, res.BestResult)
	assert.Equal(t, "tesseract_printed", res.BestResult.Method)
	assert.Equal(t, path, res.FilePath)
	assert.False(t, res.Timestamp.IsZero())
	assert.Len(t, res.AllResults, 3)
	assert.Contains(t, res.AllResults, "trocr_handwritten")
	assert.True(t, res.Succeeded())
}

func TestProcessUndecodableImageRunsNoAdapter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.jpg")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xd8, 0x00}, 0o644))
	a := ok("tesseract", "tesseract_printed", "x", 0.8)

	res := New(nil, []extract.Adapter{a}, Config{}).Process(context.Background(), path)
	assert.NotEmpty(t, res.Error)
	assert.Nil(t, res.BestResult)
	assert.Nil(t, res.AllResults)
	assert.Zero(t, a.calls)
	assert.False(t, res.Succeeded())
}

func TestProcessSurvivesCrashingAdapter(t *testing.T) {
	path := writeImage(t)
	crashing := &stubAdapter{name: "trocr_printed", panic: true}
	classical := ok("tesseract", "tesseract_auto", "Invoice total 12", 0.8)
	handwritten := ok("trocr_handwritten", "trocr_handwritten", "Invoice total 12", 0.95)

	res := New(nil, []extract.Adapter{classical, crashing, handwritten}, Config{}).Process(context.Background(), path)
	require.NotNil(t, res.BestResult)
	assert.Equal(t, "trocr_handwritten", res.BestResult.Method)
	assert.Contains(t, res.AllResults, "trocr_printed")
	assert.Equal(t, 1, crashing.calls)
}

func TestProcessEveryAdapterEmpty(t *testing.T) {
	path := writeImage(t)
	failing := &stubAdapter{name: "trocr_printed", out: extract.Failure("trocr_printed", common.NewModelInvocationError("m", errors.New("oom")))}
	empty := ok("tesseract", "tesseract", "", 0.8)

	res := New(nil, []extract.Adapter{empty, failing}, Config{AdapterTimeout: time.Second}).Process(context.Background(), path)
	require.NotNil(t, res.BestResult)
	assert.Equal(t, entity.Candidate{Method: "none"}, *res.BestResult)
	assert.Empty(t, res.Error)
	assert.False(t, res.Succeeded())
}
