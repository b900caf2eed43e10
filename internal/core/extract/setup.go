package extract

import (
	"context"
	"errors"
	"log/slog"

	"github.com/joseph-ayodele/invoice-ocr/constants"
	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	"github.com/joseph-ayodele/invoice-ocr/internal/core/neural"
	"github.com/joseph-ayodele/invoice-ocr/internal/core/ocr"
	"github.com/joseph-ayodele/invoice-ocr/internal/core/preprocess"
)

// Set is the ordered adapter list: classical, printed, handwritten.
// The order is the fusion tie-break precedence.
type Set struct {
	Adapters []Adapter
	closers  []func() error
}

// Close releases every model.
func (s *Set) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// unavailable stands in for a backend that could not be loaded. Every image
// gets an empty candidate with the load error.
type unavailable struct {
	name string
	err  error
}

func (u unavailable) Name() string { return u.name }

func (u unavailable) Invoke(context.Context, string) Outcome { return Failure(u.name, u.err) }

// NewSet builds the adapters from configuration. A missing tesseract binary
// or an invalid profiles file is fatal; a neural model that does not load
// degrades to an adapter that always fails.
func NewSet(cfg *common.Config, logger *slog.Logger) (*Set, error) {
	if logger == nil {
		logger = slog.Default()
	}

	profiles := ocr.DefaultProfiles()
	if cfg.OCR.ProfilesFile != "" {
		p, err := ocr.LoadProfiles(cfg.OCR.ProfilesFile)
		if err != nil {
			return nil, err
		}
		profiles = p
	}
	engine, err := ocr.NewEngine(ocr.ExecConfig{
		Binary:      cfg.OCR.TesseractBin,
		Language:    cfg.OCR.Language,
		TessdataDir: cfg.OCR.TessdataDir,
	}, logger)
	if err != nil {
		return nil, err
	}

	opts := preprocess.DefaultOptions()
	opts.Binarize = cfg.Preprocess.Binarize
	normalizer := preprocess.NewNormalizer(opts, logger)

	classical := ClassicalConfig{
		Confidence:            cfg.OCR.ClassicalConfidence,
		UseMeasuredConfidence: cfg.OCR.MeasureConfidence,
		CacheDir:              cfg.OCR.ArtifactCacheDir,
	}
	if cfg.OCR.PreprocessInput {
		classical.Normalizer = normalizer
	}
	extractor := ocr.NewExtractor(engine, ocr.Config{
		Profiles:          profiles,
		MeasureConfidence: cfg.OCR.MeasureConfidence,
	}, logger)

	set := &Set{Adapters: []Adapter{NewOCRAdapter(extractor, classical, logger)}}

	var neuralNorm preprocess.Normalizer
	if cfg.Preprocess.Neural {
		neuralNorm = normalizer
	}
	for _, m := range []struct {
		name, model, dir string
		enabled          bool
	}{
		{constants.MethodTrOCRPrinted, constants.ModelTrOCRPrinted, cfg.Neural.PrintedDir, cfg.Neural.PrintedEnabled},
		{constants.MethodTrOCRHandwritten, constants.ModelTrOCRHandwritten, cfg.Neural.HandwrittenDir, cfg.Neural.HandwrittenEnabled},
	} {
		if !m.enabled {
			continue
		}
		model, vocab, err := neural.OpenModel(neural.ModelConfig{
			Dir:                m.dir,
			OnnxRuntimeLibPath: cfg.Neural.RuntimeLib,
			HiddenSize:         cfg.Neural.HiddenSize,
		}, logger)
		if err != nil {
			logger.Error("neural model unavailable", "adapter", m.name, "dir", m.dir, "error", err)
			set.Adapters = append(set.Adapters, unavailable{name: m.name, err: err})
			continue
		}
		beam := neural.DefaultBeamConfig()
		beam.NumBeams = cfg.Neural.NumBeams
		beam.MaxLength = cfg.Neural.MaxLength
		beam.NoRepeatNgram = cfg.Neural.NoRepeatNgram
		rec := neural.NewRecognizer(model, vocab, neural.Config{
			ModelID:   m.model,
			InputSize: cfg.Neural.InputSize,
			Beam:      beam,
		}, logger)
		a := NewNeuralAdapter(m.name, rec, neuralNorm, logger)
		set.Adapters = append(set.Adapters, a)
		set.closers = append(set.closers, a.Close)
	}

	names := make([]string, 0, len(set.Adapters))
	for _, a := range set.Adapters {
		names = append(names, a.Name())
	}
	logger.Info("adapters ready", "adapters", names, "profiles", len(profiles))
	return set, nil
}
