package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	"github.com/joseph-ayodele/invoice-ocr/internal/core/extract"
	"github.com/joseph-ayodele/invoice-ocr/internal/core/fusion"
	"github.com/joseph-ayodele/invoice-ocr/internal/core/preprocess"
	"github.com/joseph-ayodele/invoice-ocr/internal/entity"
)

type Config struct {
	AdapterTimeout time.Duration // per adapter; 0 disables
}

// Pipeline runs every adapter on one image and fuses their candidates.
type Pipeline struct {
	logger   *slog.Logger
	adapters []extract.Adapter
	cfg      Config
	now      func() time.Time
}

// New builds a pipeline. Adapter order is the tie-break precedence.
func New(logger *slog.Logger, adapters []extract.Adapter, cfg Config) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{logger: logger, adapters: adapters, cfg: cfg, now: time.Now}
}

// Adapters returns the adapters in run order.
func (p *Pipeline) Adapters() []extract.Adapter { return p.adapters }

// Process checks that path decodes, then runs the adapters one after the
// other. An undecodable image gives an error-only result and no adapter runs.
// Adapter failures only empty that adapter's candidate.
func (p *Pipeline) Process(ctx context.Context, path string) entity.ExtractionResult {
	ctx = common.WithFilePath(ctx, path)
	start := p.now()

	if _, err := preprocess.Load(path); err != nil {
		p.logger.Error("image decode failed", "file_path", path, "error", err)
		return entity.ErrorResult(path, p.now(), err)
	}

	cands := make([]entity.Candidate, 0, len(p.adapters))
	all := make(map[string]any, len(p.adapters))
	for _, a := range p.adapters {
		out := extract.Guarded(ctx, a, path, p.cfg.AdapterTimeout, p.logger)
		if out.Err != nil {
			p.logger.Warn("adapter failed", "adapter", a.Name(), "file_path", path, "error", out.Err)
		}
		cands = append(cands, out.Candidate)
		all[a.Name()] = out.Detail
	}

	best := fusion.Select(cands)
	p.logger.Debug("pipeline selected result",
		"file_path", path,
		"method", best.Method,
		"length", best.Length,
		"confidence", best.Confidence,
		"score", fusion.Score(best),
		"duration_ms", p.now().Sub(start).Milliseconds(),
	)
	return entity.ExtractionResult{
		FilePath:   path,
		Timestamp:  p.now(),
		BestResult: &best,
		AllResults: all,
	}
}
