package neural

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

type Config struct {
	ModelID   string // reported model id, e.g. microsoft/trocr-base-printed
	InputSize int    // square model input, default 384
	Beam      BeamConfig
}

// Recognition is one model's answer for an image.
type Recognition struct {
	Text       string
	Confidence float64
	ModelID    string
	Tokens     int
	Duration   time.Duration
}

// Recognizer turns images into text with one Seq2Seq model. It owns the model
// and runs one generation at a time.
type Recognizer struct {
	mu     sync.Mutex
	model  Seq2Seq
	vocab  *Vocab
	cfg    Config
	logger *slog.Logger
}

func NewRecognizer(model Seq2Seq, vocab *Vocab, cfg Config, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = 384
	}
	if cfg.Beam.NumBeams <= 0 {
		cfg.Beam = DefaultBeamConfig()
	}
	return &Recognizer{model: model, vocab: vocab, cfg: cfg, logger: logger}
}

// ModelID reports the configured model id.
func (r *Recognizer) ModelID() string { return r.cfg.ModelID }

// ExtractWithConfidence converts img, generates with beam search and decodes.
// Confidence is the mean probability of the emitted tokens along the winning
// beam, an uncalibrated proxy. Every failure, panics included, is returned as
// a model invocation error.
func (r *Recognizer) ExtractWithConfidence(ctx context.Context, img image.Image) (rec Recognition, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			rec = Recognition{ModelID: r.cfg.ModelID}
			err = common.NewModelInvocationError(r.cfg.ModelID, fmt.Errorf("panic: %v", p))
		}
	}()

	pixels := PixelValues(img, r.cfg.InputSize)
	enc, err := r.model.Encode(ctx, pixels, r.cfg.InputSize)
	if err != nil {
		return Recognition{ModelID: r.cfg.ModelID}, common.NewModelInvocationError(r.cfg.ModelID, err)
	}

	gen, err := BeamSearch(ctx, func(ctx context.Context, prefixes [][]int64) ([][]float32, error) {
		return r.model.NextTokenLogits(ctx, enc, prefixes)
	}, r.cfg.Beam)
	if err != nil {
		return Recognition{ModelID: r.cfg.ModelID}, common.NewModelInvocationError(r.cfg.ModelID, err)
	}

	rec = Recognition{
		Text:       strings.TrimSpace(r.vocab.Decode(gen.Tokens)),
		Confidence: gen.MeanProb(),
		ModelID:    r.cfg.ModelID,
		Tokens:     len(gen.Tokens),
		Duration:   time.Since(start),
	}
	r.logger.Debug("model generation done",
		"model", r.cfg.ModelID,
		"file_path", common.FilePathFromContext(ctx),
		"tokens", rec.Tokens,
		"confidence", rec.Confidence,
		"duration_ms", rec.Duration.Milliseconds(),
	)
	return rec, nil
}

// Close releases the model.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.model.Close()
}
