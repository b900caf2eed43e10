package extract

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-ocr/constants"
	"github.com/joseph-ayodele/invoice-ocr/internal/core/ocr"
	"github.com/joseph-ayodele/invoice-ocr/internal/core/preprocess"
	"github.com/joseph-ayodele/invoice-ocr/internal/entity"
)

// DefaultClassicalConfidence is the fixed confidence reported for tesseract
// output. Tesseract gives no comparable sequence score, so this is an estimate.
const DefaultClassicalConfidence = 0.8

type ClassicalConfig struct {
	Confidence float64 // reported confidence; <= 0 means DefaultClassicalConfidence

	// UseMeasuredConfidence replaces Confidence with the engine's mean word
	// confidence when the sweep measured one.
	UseMeasuredConfidence bool

	// Normalizer, when set, feeds the engine the classical-profile image
	// written to CacheDir instead of the original file.
	Normalizer preprocess.Normalizer
	CacheDir   string
}

// OCRAdapter wraps the tesseract profile sweep.
type OCRAdapter struct {
	extractor *ocr.Extractor
	cfg       ClassicalConfig
	logger    *slog.Logger
}

func NewOCRAdapter(e *ocr.Extractor, cfg ClassicalConfig, l *slog.Logger) *OCRAdapter {
	if l == nil {
		l = slog.Default()
	}
	if cfg.Confidence <= 0 {
		cfg.Confidence = DefaultClassicalConfidence
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = os.TempDir()
	}
	return &OCRAdapter{
		extractor: e,
		cfg:       cfg,
		logger:    l,
	}
}

func (a *OCRAdapter) Name() string { return constants.MethodTesseract }

func (a *OCRAdapter) Invoke(ctx context.Context, path string) Outcome {
	input := path
	if a.cfg.Normalizer != nil {
		tmp, err := a.writeClassicalInput(ctx, path)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Failure(a.Name(), ctxErr)
		}
		if err != nil {
			a.logger.Warn("classical preprocessing failed, using original file", "file_path", path, "error", err)
		} else {
			input = tmp
			defer os.Remove(tmp)
		}
	}

	r := a.extractor.ExtractAll(ctx, input)
	detail := entity.ClassicalDetail{
		BestText:   r.BestText,
		BestConfig: r.BestProfile,
		AllResults: r.Texts(),
	}

	if r.BestProfile == "" {
		out := Outcome{Candidate: entity.EmptyCandidate(a.Name()), Detail: detail}
		if err := allFailed(r.Profiles); err != nil {
			detail.Error = err.Error()
			out.Detail = detail
			out.Err = err
		}
		return out
	}

	conf := a.cfg.Confidence
	if a.cfg.UseMeasuredConfidence && r.Confidence > 0 {
		conf = r.Confidence
	}
	return Outcome{
		Candidate: entity.NewCandidate(r.BestText, constants.TesseractMethod(r.BestProfile), conf),
		Detail:    detail,
	}
}

func (a *OCRAdapter) writeClassicalInput(ctx context.Context, path string) (string, error) {
	raw, err := preprocess.Load(path)
	if err != nil {
		return "", err
	}
	pp, err := a.cfg.Normalizer.Normalize(ctx, raw, preprocess.ProfileClassical)
	if err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return preprocess.SavePNG(a.cfg.CacheDir, base+"-classical-"+uuid.NewString(), pp.Image)
}

// allFailed returns the joined profile errors when every profile errored, nil otherwise.
func allFailed(profiles []ocr.ProfileText) error {
	if len(profiles) == 0 {
		return nil
	}
	errs := make([]error, 0, len(profiles))
	for _, p := range profiles {
		if p.Err == nil {
			return nil
		}
		errs = append(errs, p.Err)
	}
	return errors.Join(errs...)
}
