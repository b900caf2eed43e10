package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	"github.com/joseph-ayodele/invoice-ocr/internal/entity"
	"github.com/joseph-ayodele/invoice-ocr/internal/ingest"
	"github.com/joseph-ayodele/invoice-ocr/internal/repository"
)

const previewChars = 100

// ImageProcessor is the single-image stage; *pipeline.Pipeline implements it.
type ImageProcessor interface {
	Process(ctx context.Context, path string) entity.ExtractionResult
}

// ProgressFunc is called after each image of a batch, i counting from 1.
type ProgressFunc func(i, total int, r entity.ExtractionResult)

// Processor runs the pipeline over one image or a directory and hands the
// documents to the sink.
type Processor struct {
	logger     *slog.Logger
	pipeline   ImageProcessor
	sink       repository.ResultSink // nil keeps results in memory only
	skipHidden bool
	progress   ProgressFunc
	now        func() time.Time
}

type Option func(*Processor)

// WithSink sets where finished documents go.
func WithSink(s repository.ResultSink) Option { return func(p *Processor) { p.sink = s } }

// WithProgress registers a per-image callback.
func WithProgress(f ProgressFunc) Option { return func(p *Processor) { p.progress = f } }

// WithSkipHidden ignores dot files when listing a directory.
func WithSkipHidden(skip bool) Option { return func(p *Processor) { p.skipHidden = skip } }

func NewProcessor(logger *slog.Logger, pipeline ImageProcessor, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{logger: logger, pipeline: pipeline, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessImage runs one image and writes its document. The result is returned
// even when the sink fails.
func (p *Processor) ProcessImage(ctx context.Context, path string) (entity.ExtractionResult, error) {
	res := p.processOne(ctx, path)
	p.logResult(res)
	if p.sink == nil {
		return res, nil
	}
	if err := p.sink.SaveImage(ctx, res); err != nil {
		return res, fmt.Errorf("save result: %w", err)
	}
	return res, nil
}

// ProcessDirectory runs every image directly inside dir, in name order, one
// at a time. No image aborts the run; the batch document is always written.
// Only an unreadable directory or a sink failure is returned as an error.
func (p *Processor) ProcessDirectory(ctx context.Context, dir string) (*entity.BatchResult, error) {
	paths, stats, err := ingest.ListImages(dir, p.skipHidden)
	if err != nil {
		p.logger.Error("input folder unusable", "input_folder", dir, "error", err)
		return nil, err
	}

	runID := uuid.NewString()
	ctx = common.WithRunID(ctx, runID)
	batch := entity.NewBatchResult(runID, dir, p.now())
	if len(paths) == 0 {
		p.logger.Warn("no image files found", "input_folder", dir, "scanned", stats.Scanned)
	} else {
		p.logger.Info("found images to process", "run_id", runID, "input_folder", dir, "count", len(paths))
	}

	start := p.now()
	for i, path := range paths {
		p.logger.Info(fmt.Sprintf("[%d/%d] processing", i+1, len(paths)), "run_id", runID, "file", filepath.Base(path))
		res := p.processOne(ctx, path)
		batch.Add(res)
		p.logResult(res)
		if p.progress != nil {
			p.progress(i+1, len(paths), res)
		}
	}
	batch.Metadata.ProcessingDate = p.now()

	m := batch.Metadata
	p.logger.Info("batch processing completed",
		"run_id", runID,
		"input_folder", dir,
		"total_images", m.TotalImages,
		"successful", m.Successful,
		"failed", m.Failed,
		"duration_ms", p.now().Sub(start).Milliseconds(),
	)
	if err := batch.Validate(); err != nil {
		return batch, common.WrapError(err, "batch counters")
	}
	if p.sink == nil {
		return batch, nil
	}
	if err := p.sink.SaveBatch(ctx, batch); err != nil {
		return batch, fmt.Errorf("save batch: %w", err)
	}
	return batch, nil
}

// processOne never panics; anything escaping the pipeline becomes an error result.
func (p *Processor) processOne(ctx context.Context, path string) (res entity.ExtractionResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("unexpected failure: %v", r)
			p.logger.Error("image processing panicked", "file_path", path, "error", err)
			res = entity.ErrorResult(path, p.now(), err)
		}
	}()
	if err := ctx.Err(); err != nil {
		return entity.ErrorResult(path, p.now(), err)
	}
	return p.pipeline.Process(ctx, path)
}

func (p *Processor) logResult(res entity.ExtractionResult) {
	switch {
	case res.Error != "":
		p.logger.Error("image failed", "file_path", res.FilePath, "error", res.Error)
	case res.Succeeded():
		p.logger.Info("image succeeded",
			"file_path", res.FilePath,
			"method", res.BestResult.Method,
			"characters", res.BestResult.Length,
			"preview", preview(res.BestResult.Text),
		)
	default:
		p.logger.Warn("no text extracted", "file_path", res.FilePath)
	}
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewChars {
		return s
	}
	return string([]rune(s)[:previewChars]) + "..."
}
